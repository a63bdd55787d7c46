package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

// Fixed width so that text ordering in sqlite matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000Z07:00"

const todoColumns = `id, title, description, is_completed, priority, due_date, create_time, modify_time`

type SQLiteRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ TodoRepository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db *sqlx.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	return &SQLiteRepository{db: db, now: time.Now}, nil
}

// OpenSQLite opens path, applies migrations and returns a repository that
// owns the connection.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sqlx.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps sqlite writes serialized.
	db.SetMaxOpenConns(1)
	if err := MigrateUp(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// SetClock replaces the time source used for create_time and modify_time.
func (r *SQLiteRepository) SetClock(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) List(ctx context.Context, opts ListOptions) ([]Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos`
	if opts.OrderBy != "" {
		if !OrderColumns[opts.OrderBy] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSort, opts.OrderBy)
		}
		dir := "ASC"
		if opts.Descending {
			dir = "DESC"
		}
		// Postgres ordering: nulls sort as larger than every value.
		query += fmt.Sprintf(` ORDER BY (%[1]s IS NULL) %[2]s, %[1]s %[2]s, id %[2]s`, opts.OrderBy, dir)
	} else {
		query += ` ORDER BY id ASC`
	}

	var rows []todoRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	out := make([]Todo, 0, len(rows))
	for _, row := range rows {
		todo, err := row.toTodo()
		if err != nil {
			return nil, err
		}
		out = append(out, todo)
	}
	return out, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (Todo, error) {
	return r.get(ctx, r.db, id)
}

func (r *SQLiteRepository) Create(ctx context.Context, in Todo) (Todo, error) {
	now := r.now()
	if in.Priority == 0 {
		in.Priority = 1
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO todos (title, description, is_completed, priority, due_date, create_time, modify_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.Title, nullString(in.Description), boolInt(in.IsCompleted), in.Priority,
		nullTime(in.DueDate), mustTime(now), mustTime(now),
	)
	if err != nil {
		return Todo{}, mapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Todo{}, err
	}
	return r.Get(ctx, id)
}

func (r *SQLiteRepository) Update(ctx context.Context, id int64, changes TodoChanges) (Todo, error) {
	if changes.IsEmpty() {
		return Todo{}, ErrNoChanges
	}
	sets := make([]string, 0, 7)
	args := make([]any, 0, 8)
	if changes.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *changes.Title)
	}
	if changes.ClearDescription {
		sets = append(sets, "description = NULL")
	} else if changes.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *changes.Description)
	}
	if changes.IsCompleted != nil {
		sets = append(sets, "is_completed = ?")
		args = append(args, boolInt(*changes.IsCompleted))
	}
	if changes.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, *changes.Priority)
	}
	if changes.ClearDueDate {
		sets = append(sets, "due_date = NULL")
	} else if changes.DueDate != nil {
		sets = append(sets, "due_date = ?")
		args = append(args, nullTime(changes.DueDate))
	}
	sets = append(sets, "modify_time = ?")
	args = append(args, mustTime(r.now()), id)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Todo{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE todos SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return Todo{}, mapError(err)
	}
	if err := checkRowsAffected(res); err != nil {
		return Todo{}, err
	}
	out, err := r.get(ctx, tx, id)
	if err != nil {
		return Todo{}, err
	}
	return out, tx.Commit()
}

// Delete removes the row and returns it as it was.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) (Todo, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Todo{}, err
	}
	defer func() { _ = tx.Rollback() }()

	out, err := r.get(ctx, tx, id)
	if err != nil {
		return Todo{}, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return Todo{}, err
	}
	if err := checkRowsAffected(res); err != nil {
		return Todo{}, err
	}
	return out, tx.Commit()
}

func (r *SQLiteRepository) get(ctx context.Context, q sqlx.QueryerContext, id int64) (Todo, error) {
	var row todoRow
	if err := sqlx.GetContext(ctx, q, &row, `SELECT `+todoColumns+` FROM todos WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Todo{}, ErrNotFound
		}
		return Todo{}, err
	}
	return row.toTodo()
}

func mapError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return &ConstraintError{Err: err}
	}
	return err
}

func nullString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(sqliteTimeLayout)
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	tm, err := time.Parse(sqliteTimeLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
