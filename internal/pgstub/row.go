package pgstub

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sandeepkv93/restodo/internal/storage"
)

// Postgres renders timestamptz with an explicit offset.
const timestampLayout = "2006-01-02T15:04:05.999999-07:00"

func rowJSON(t storage.Todo, columns []string) map[string]any {
	if columns == nil {
		columns = allColumns
	}
	out := make(map[string]any, len(columns))
	for _, col := range columns {
		switch col {
		case "id":
			out[col] = t.ID
		case "title":
			out[col] = t.Title
		case "description":
			if t.Description != nil {
				out[col] = *t.Description
			} else {
				out[col] = nil
			}
		case "is_completed":
			out[col] = t.IsCompleted
		case "priority":
			out[col] = t.Priority
		case "due_date":
			if t.DueDate != nil {
				out[col] = t.DueDate.UTC().Format(timestampLayout)
			} else {
				out[col] = nil
			}
		case "create_time":
			out[col] = t.CreateTime.UTC().Format(timestampLayout)
		case "modify_time":
			out[col] = t.ModifyTime.UTC().Format(timestampLayout)
		}
	}
	return out
}

func rowsJSON(todos []storage.Todo, columns []string) []map[string]any {
	out := make([]map[string]any, 0, len(todos))
	for _, t := range todos {
		out = append(out, rowJSON(t, columns))
	}
	return out
}

// decodeObjects accepts a single JSON object or an array of objects.
func decodeObjects(raw []byte) ([]map[string]json.RawMessage, *pgError) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, newError(http.StatusBadRequest, "PGRST102", "Empty or invalid json")
	}
	if raw[0] == '[' {
		var many []map[string]json.RawMessage
		if err := json.Unmarshal(raw, &many); err != nil {
			return nil, newError(http.StatusBadRequest, "PGRST102", "Empty or invalid json").withDetails("%v", err)
		}
		return many, nil
	}
	var one map[string]json.RawMessage
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, newError(http.StatusBadRequest, "PGRST102", "Empty or invalid json").withDetails("%v", err)
	}
	return []map[string]json.RawMessage{one}, nil
}

// changesFromObject maps a request body onto column changes. When only is
// non-nil, keys outside it are ignored.
func changesFromObject(obj map[string]json.RawMessage, only []string) (storage.TodoChanges, *pgError) {
	var ch storage.TodoChanges
	allowed := func(string) bool { return true }
	if only != nil {
		set := make(map[string]bool, len(only))
		for _, c := range only {
			set[c] = true
		}
		allowed = func(k string) bool { return set[k] }
	}
	for key, value := range obj {
		if !allowed(key) {
			continue
		}
		isNull := bytes.Equal(bytes.TrimSpace(value), []byte("null"))
		switch key {
		case "title":
			if isNull {
				return ch, notNull("title")
			}
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return ch, invalidText("text", value)
			}
			ch.Title = &s
		case "description":
			if isNull {
				ch.ClearDescription = true
				continue
			}
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return ch, invalidText("text", value)
			}
			ch.Description = &s
		case "is_completed":
			if isNull {
				return ch, notNull("is_completed")
			}
			var b bool
			if err := json.Unmarshal(value, &b); err != nil {
				return ch, invalidText("boolean", value)
			}
			ch.IsCompleted = &b
		case "priority":
			if isNull {
				return ch, notNull("priority")
			}
			var p int
			if err := json.Unmarshal(value, &p); err != nil {
				return ch, invalidText("integer", value)
			}
			ch.Priority = &p
		case "due_date":
			if isNull {
				ch.ClearDueDate = true
				continue
			}
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return ch, invalidText("timestamp with time zone", value)
			}
			due, err := parseTimestamp(s)
			if err != nil {
				return ch, invalidText("timestamp with time zone", value)
			}
			ch.DueDate = &due
		case "id", "create_time", "modify_time":
			return ch, newError(http.StatusBadRequest, CodeGenerated, fmt.Sprintf("cannot insert a non-DEFAULT value into column %q", key)).
				withDetails("Column %q is managed by the server.", key)
		default:
			return ch, newError(http.StatusBadRequest, CodeUnknownColumn, fmt.Sprintf("Could not find the '%s' column of 'todos' in the schema cache", key))
		}
	}
	return ch, nil
}

// checkRow applies the table's CHECK constraints before any write so that a
// batch insert fails as a whole.
func checkRow(ch storage.TodoChanges, insert bool) *pgError {
	if insert && ch.Title == nil {
		return notNull("title")
	}
	if ch.Title != nil && strings.TrimSpace(*ch.Title) == "" {
		return checkViolation("todos_title_check")
	}
	if ch.Priority != nil && (*ch.Priority < 1 || *ch.Priority > 5) {
		return checkViolation("todos_priority_check")
	}
	return nil
}

func todoFromChanges(ch storage.TodoChanges) storage.Todo {
	t := storage.Todo{Priority: 1}
	if ch.Title != nil {
		t.Title = *ch.Title
	}
	if ch.Description != nil && !ch.ClearDescription {
		d := *ch.Description
		t.Description = &d
	}
	if ch.IsCompleted != nil {
		t.IsCompleted = *ch.IsCompleted
	}
	if ch.Priority != nil {
		t.Priority = *ch.Priority
	}
	if ch.DueDate != nil && !ch.ClearDueDate {
		due := *ch.DueDate
		t.DueDate = &due
	}
	return t
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func notNull(column string) *pgError {
	return newError(http.StatusBadRequest, CodeNotNull, fmt.Sprintf("null value in column %q of relation \"todos\" violates not-null constraint", column))
}

func checkViolation(constraint string) *pgError {
	return newError(http.StatusBadRequest, CodeCheckViolation, fmt.Sprintf("new row for relation \"todos\" violates check constraint %q", constraint))
}

func invalidText(typ string, value json.RawMessage) *pgError {
	return newError(http.StatusBadRequest, CodeInvalidText, fmt.Sprintf("invalid input syntax for type %s: %s", typ, string(value)))
}
