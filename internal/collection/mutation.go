package collection

import "github.com/sandeepkv93/restodo/internal/model"

type mutationKind int

const (
	mutationAdd mutationKind = iota + 1
	mutationReplace
	mutationRemove
)

type mutation struct {
	ticket uint64
	kind   mutationKind
	task   model.Task
	id     int64
}

func (m mutation) replay(tasks []model.Task) []model.Task {
	switch m.kind {
	case mutationAdd:
		if i := indexOf(tasks, m.task.ID); i >= 0 {
			return replaceAt(tasks, i, m.task)
		}
		out := make([]model.Task, 0, len(tasks)+1)
		out = append(out, m.task)
		return append(out, tasks...)
	case mutationReplace:
		if i := indexOf(tasks, m.task.ID); i >= 0 {
			return replaceAt(tasks, i, m.task)
		}
		return tasks
	case mutationRemove:
		i := indexOf(tasks, m.id)
		if i < 0 {
			return tasks
		}
		out := make([]model.Task, 0, len(tasks)-1)
		out = append(out, tasks[:i]...)
		return append(out, tasks[i+1:]...)
	default:
		return tasks
	}
}

func indexOf(tasks []model.Task, id int64) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func replaceAt(tasks []model.Task, i int, task model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	copy(out, tasks)
	out[i] = task
	return out
}

// dedupe keeps the first occurrence of every id.
func dedupe(tasks []model.Task) []model.Task {
	seen := make(map[int64]struct{}, len(tasks))
	out := tasks[:0]
	for _, t := range tasks {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}

func cloneTasks(in []model.Task) []model.Task {
	out := make([]model.Task, len(in))
	for i, t := range in {
		if t.Description != nil {
			d := *t.Description
			t.Description = &d
		}
		if t.DueDate != nil {
			due := *t.DueDate
			t.DueDate = &due
		}
		out[i] = t
	}
	return out
}
