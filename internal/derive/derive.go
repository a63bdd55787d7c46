// Package derive computes the filtered, sorted and grouped views shown to
// the user. Nothing here writes to the slice it is given.
package derive

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sandeepkv93/restodo/internal/model"
)

var (
	ErrUnknownFilter = errors.New("derive: unknown filter")
	ErrUnknownSort   = errors.New("derive: unknown sort key")
)

type Filter string

const (
	FilterAll       Filter = "all"
	FilterPending   Filter = "pending"
	FilterCompleted Filter = "completed"
	FilterOverdue   Filter = "overdue"
)

var Filters = []Filter{FilterAll, FilterPending, FilterCompleted, FilterOverdue}

func ParseFilter(raw string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterPending, FilterCompleted, FilterOverdue:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFilter, raw)
	}
}

// Next cycles through Filters.
func (f Filter) Next() Filter {
	for i, v := range Filters {
		if v == f {
			return Filters[(i+1)%len(Filters)]
		}
	}
	return FilterAll
}

type SortKey string

const (
	SortCreateTime SortKey = "create_time"
	SortTitle      SortKey = "title"
	SortPriority   SortKey = "priority"
	SortDueDate    SortKey = "due_date"
)

var SortKeys = []SortKey{SortCreateTime, SortTitle, SortPriority, SortDueDate}

func ParseSort(raw string) (SortKey, error) {
	switch s := SortKey(strings.ToLower(strings.TrimSpace(raw))); s {
	case "", "created", "create", "newest":
		return SortCreateTime, nil
	case "due", "deadline":
		return SortDueDate, nil
	case SortCreateTime, SortTitle, SortPriority, SortDueDate:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSort, raw)
	}
}

func (s SortKey) Next() SortKey {
	for i, v := range SortKeys {
		if v == s {
			return SortKeys[(i+1)%len(SortKeys)]
		}
	}
	return SortCreateTime
}

type Options struct {
	Filter Filter
	Sort   SortKey
	Search string
	Now    time.Time
	// Collator orders titles. When nil a collator for Locale is built.
	Collator *collate.Collator
	Locale   language.Tag
}

// NewCollator returns a collator for tag; collators are not safe for
// concurrent use, so callers keep one per goroutine.
func NewCollator(tag language.Tag) *collate.Collator {
	return collate.New(tag)
}

// Derive applies search, then filter, then a stable sort.
func Derive(tasks []model.Task, opts Options) []model.Task {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	needle := foldText(strings.TrimSpace(opts.Search))

	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if needle != "" && !matches(t, needle) {
			continue
		}
		if !keep(t, opts.Filter, now) {
			continue
		}
		out = append(out, t)
	}

	switch opts.Sort {
	case SortTitle:
		col := opts.Collator
		if col == nil {
			col = NewCollator(opts.Locale)
		}
		sort.SliceStable(out, func(i, j int) bool {
			return col.CompareString(out[i].Title, out[j].Title) < 0
		})
	case SortPriority:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Priority > out[j].Priority
		})
	case SortDueDate:
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i].DueDate, out[j].DueDate
			switch {
			case a == nil:
				return false
			case b == nil:
				return true
			default:
				return a.Before(*b)
			}
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreateTime.After(out[j].CreateTime)
		})
	}
	return out
}

func keep(t model.Task, f Filter, now time.Time) bool {
	switch f {
	case FilterPending:
		return !t.IsCompleted
	case FilterCompleted:
		return t.IsCompleted
	case FilterOverdue:
		return t.Overdue(now)
	default:
		return true
	}
}

func matches(t model.Task, needle string) bool {
	if strings.Contains(foldText(t.Title), needle) {
		return true
	}
	return t.Description != nil && strings.Contains(foldText(*t.Description), needle)
}

func foldText(s string) string {
	return cases.Fold().String(s)
}
