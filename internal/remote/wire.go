package remote

import (
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/restodo/internal/model"
)

type wireTask struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	IsCompleted bool    `json:"is_completed"`
	Priority    int     `json:"priority"`
	DueDate     *string `json:"due_date"`
	CreateTime  string  `json:"create_time"`
	ModifyTime  string  `json:"modify_time"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Values without a zone are UTC.
func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

func (w wireTask) toModel() (model.Task, error) {
	created, err := parseTimestamp(w.CreateTime)
	if err != nil {
		return model.Task{}, fmt.Errorf("create_time: %w", err)
	}
	modified, err := parseTimestamp(w.ModifyTime)
	if err != nil {
		return model.Task{}, fmt.Errorf("modify_time: %w", err)
	}
	task := model.Task{
		ID:          w.ID,
		Title:       w.Title,
		Description: w.Description,
		IsCompleted: w.IsCompleted,
		Priority:    model.Priority(w.Priority),
		CreateTime:  created,
		ModifyTime:  modified,
	}
	if w.Priority == 0 {
		task.Priority = model.DefaultPriority
	}
	if w.DueDate != nil && strings.TrimSpace(*w.DueDate) != "" {
		due, err := parseTimestamp(*w.DueDate)
		if err != nil {
			return model.Task{}, fmt.Errorf("due_date: %w", err)
		}
		task.DueDate = &due
	}
	return task, nil
}

func toModels(in []wireTask) ([]model.Task, error) {
	out := make([]model.Task, 0, len(in))
	for _, w := range in {
		task, err := w.toModel()
		if err != nil {
			return nil, fmt.Errorf("todo %d: %w", w.ID, err)
		}
		out = append(out, task)
	}
	return out, nil
}
