package storage

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("storage: not found")
	ErrNoChanges   = errors.New("storage: no columns to update")
	ErrUnknownSort = errors.New("storage: unknown order column")
)

// ConstraintError reports a row rejected by a table CHECK or NOT NULL rule.
type ConstraintError struct {
	Err error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("storage: constraint violated: %v", e.Err)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

type TodoRepository interface {
	List(ctx context.Context, opts ListOptions) ([]Todo, error)
	Get(ctx context.Context, id int64) (Todo, error)
	Create(ctx context.Context, in Todo) (Todo, error)
	Update(ctx context.Context, id int64, changes TodoChanges) (Todo, error)
	Delete(ctx context.Context, id int64) (Todo, error)
}
