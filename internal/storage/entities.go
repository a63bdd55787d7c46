package storage

import (
	"database/sql"
	"time"
)

// Todo is one row of the todos table.
type Todo struct {
	ID          int64
	Title       string
	Description *string
	IsCompleted bool
	Priority    int
	DueDate     *time.Time
	CreateTime  time.Time
	ModifyTime  time.Time
}

// TodoChanges lists the columns an update touches. Nil fields are left as
// they are; the Clear flags write NULL.
type TodoChanges struct {
	Title            *string
	Description      *string
	ClearDescription bool
	IsCompleted      *bool
	Priority         *int
	DueDate          *time.Time
	ClearDueDate     bool
}

func (c TodoChanges) IsEmpty() bool {
	return c.Title == nil && c.Description == nil && !c.ClearDescription &&
		c.IsCompleted == nil && c.Priority == nil && c.DueDate == nil && !c.ClearDueDate
}

type ListOptions struct {
	// OrderBy is a column name; see OrderColumns.
	OrderBy    string
	Descending bool
}

// OrderColumns are the columns List accepts in ListOptions.OrderBy.
var OrderColumns = map[string]bool{
	"id":           true,
	"title":        true,
	"description":  true,
	"is_completed": true,
	"priority":     true,
	"due_date":     true,
	"create_time":  true,
	"modify_time":  true,
}

type todoRow struct {
	ID          int64          `db:"id"`
	Title       string         `db:"title"`
	Description sql.NullString `db:"description"`
	IsCompleted bool           `db:"is_completed"`
	Priority    int            `db:"priority"`
	DueDate     sql.NullString `db:"due_date"`
	CreateTime  string         `db:"create_time"`
	ModifyTime  string         `db:"modify_time"`
}

func (r todoRow) toTodo() (Todo, error) {
	out := Todo{
		ID:          r.ID,
		Title:       r.Title,
		IsCompleted: r.IsCompleted,
		Priority:    r.Priority,
	}
	if r.Description.Valid {
		d := r.Description.String
		out.Description = &d
	}
	due, err := parseNullableTime(r.DueDate)
	if err != nil {
		return Todo{}, err
	}
	out.DueDate = due
	if out.CreateTime, err = parseRequiredTime(r.CreateTime); err != nil {
		return Todo{}, err
	}
	if out.ModifyTime, err = parseRequiredTime(r.ModifyTime); err != nil {
		return Todo{}, err
	}
	return out, nil
}
