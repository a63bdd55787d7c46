package derive

import (
	"time"

	"github.com/sandeepkv93/restodo/internal/model"
)

type Groups struct {
	Overdue   []model.Task
	Pending   []model.Task
	Completed []model.Task
}

func (g Groups) Len() int {
	return len(g.Overdue) + len(g.Pending) + len(g.Completed)
}

// Partition splits a derived sequence into display sections. Relative order
// inside each section is the order of derived.
func Partition(derived []model.Task, now time.Time) Groups {
	var g Groups
	for _, t := range derived {
		switch {
		case t.IsCompleted:
			g.Completed = append(g.Completed, t)
		case t.Overdue(now):
			g.Overdue = append(g.Overdue, t)
		default:
			g.Pending = append(g.Pending, t)
		}
	}
	return g
}

type Counts struct {
	Total     int
	Pending   int
	Completed int
	Overdue   int
}

// Count tallies the header counters. Overdue tasks are also counted as pending.
func Count(tasks []model.Task, now time.Time) Counts {
	c := Counts{Total: len(tasks)}
	for _, t := range tasks {
		if t.IsCompleted {
			c.Completed++
			continue
		}
		c.Pending++
		if t.Overdue(now) {
			c.Overdue++
		}
	}
	return c
}
