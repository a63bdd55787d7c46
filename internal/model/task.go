package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrEmptyTitle      = errors.New("model: task title is required")
	ErrInvalidPriority = errors.New("model: invalid task priority")
	ErrEmptyPatch      = errors.New("model: patch has no fields")
)

type Priority int

const (
	PriorityLow    Priority = 1
	PriorityLower  Priority = 2
	PriorityMedium Priority = 3
	PriorityHigher Priority = 4
	PriorityHigh   Priority = 5

	DefaultPriority = PriorityLow
)

func (p Priority) IsValid() bool {
	return p >= PriorityLow && p <= PriorityHigh
}

// Key is the message id used to look up the display label.
func (p Priority) Key() string {
	switch p {
	case PriorityLow:
		return "priority.low"
	case PriorityLower:
		return "priority.lower"
	case PriorityMedium:
		return "priority.medium"
	case PriorityHigher:
		return "priority.higher"
	case PriorityHigh:
		return "priority.high"
	default:
		return "priority.unknown"
	}
}

func (p Priority) String() string {
	return strings.TrimPrefix(p.Key(), "priority.")
}

func ParsePriority(raw string) (Priority, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for p := PriorityLow; p <= PriorityHigh; p++ {
		if raw == p.String() || raw == fmt.Sprintf("%d", int(p)) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPriority, raw)
}

type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	IsCompleted bool       `json:"is_completed"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreateTime  time.Time  `json:"create_time"`
	ModifyTime  time.Time  `json:"modify_time"`
}

func (t Task) DescriptionText() string {
	if t.Description == nil {
		return ""
	}
	return *t.Description
}

func (t Task) Overdue(now time.Time) bool {
	return IsOverdue(t.IsCompleted, t.DueDate, now)
}

// IsOverdue is the only place the overdue rule lives. Completed tasks are
// never overdue, whatever their due date.
func IsOverdue(isCompleted bool, due *time.Time, now time.Time) bool {
	return !isCompleted && due != nil && due.Before(now)
}

type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

type Draft struct {
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// Normalize trims text fields and drops a blank description.
func (d Draft) Normalize() Draft {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = trimOptional(d.Description)
	return d
}

func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty", Err: ErrEmptyTitle}
	}
	if d.Priority != nil && !d.Priority.IsValid() {
		return &ValidationError{Field: "priority", Reason: fmt.Sprintf("%d is outside 1..5", *d.Priority), Err: ErrInvalidPriority}
	}
	return nil
}

type Patch struct {
	Title        *string
	Description  *string
	IsCompleted  *bool
	Priority     *Priority
	DueDate      *time.Time
	ClearDueDate bool
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.IsCompleted == nil &&
		p.Priority == nil && p.DueDate == nil && !p.ClearDueDate
}

func (p Patch) Validate() error {
	if p.IsEmpty() {
		return &ValidationError{Field: "patch", Reason: "no fields to update", Err: ErrEmptyPatch}
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty", Err: ErrEmptyTitle}
	}
	if p.Priority != nil && !p.Priority.IsValid() {
		return &ValidationError{Field: "priority", Reason: fmt.Sprintf("%d is outside 1..5", *p.Priority), Err: ErrInvalidPriority}
	}
	return nil
}

// Fields returns the JSON body for the patch. Only supplied fields appear;
// ClearDueDate maps to an explicit null. A description that trims to empty
// is sent as null as well.
func (p Patch) Fields() map[string]any {
	out := make(map[string]any, 5)
	if p.Title != nil {
		out["title"] = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		if d := trimOptional(p.Description); d != nil {
			out["description"] = *d
		} else {
			out["description"] = nil
		}
	}
	if p.IsCompleted != nil {
		out["is_completed"] = *p.IsCompleted
	}
	if p.Priority != nil {
		out["priority"] = int(*p.Priority)
	}
	if p.ClearDueDate {
		out["due_date"] = nil
	} else if p.DueDate != nil {
		out["due_date"] = p.DueDate.UTC().Format(time.RFC3339)
	}
	return out
}

// Apply returns t with the patch fields applied. Timestamps are left alone;
// the server owns them.
func (p Patch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = trimOptional(p.Description)
	}
	if p.IsCompleted != nil {
		t.IsCompleted = *p.IsCompleted
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.ClearDueDate {
		t.DueDate = nil
	} else if p.DueDate != nil {
		due := *p.DueDate
		t.DueDate = &due
	}
	return t
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func Ptr[T any](v T) *T { return &v }
