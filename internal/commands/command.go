package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/restodo/internal/derive"
	"github.com/sandeepkv93/restodo/internal/model"
)

type Type string

const (
	TypeAdd     Type = "add"
	TypeEdit    Type = "edit"
	TypeDone    Type = "done"
	TypeUndone  Type = "undone"
	TypeRemove  Type = "rm"
	TypeFilter  Type = "filter"
	TypeSort    Type = "sort"
	TypeSearch  Type = "search"
	TypeRefresh Type = "refresh"
)

var aliases = map[string]Type{
	"new":    TypeAdd,
	"delete": TypeRemove,
	"del":    TypeRemove,
	"reopen": TypeUndone,
	"find":   TypeSearch,
	"reload": TypeRefresh,
}

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalid(format string, args ...any) error {
	return &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

type AddArgs struct {
	Draft model.Draft
}

type EditArgs struct {
	ID    int64
	Patch model.Patch
}

type IDArgs struct {
	ID int64
}

type FilterArgs struct {
	Filter derive.Filter
}

type SortArgs struct {
	Sort derive.SortKey
}

type SearchArgs struct {
	Query string
}

type Command struct {
	Type   Type
	Raw    string
	Add    *AddArgs
	Edit   *EditArgs
	Target *IDArgs
	Filter *FilterArgs
	Sort   *SortArgs
	Search *SearchArgs
}

// Parse reads one palette line. Options are key:value tokens; a value may be
// double quoted to include spaces, e.g. desc:"call before noon".
func Parse(input string) (Command, error) {
	return ParseAt(input, time.Local)
}

// ParseAt is Parse with due dates interpreted in loc.
func ParseAt(input string, loc *time.Location) (Command, error) {
	raw := strings.TrimSpace(input)
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts, err := tokenize(raw)
	if err != nil {
		return Command{}, err
	}
	head := strings.ToLower(parts[0])
	args := parts[1:]
	typ := Type(head)
	if alias, ok := aliases[head]; ok {
		typ = alias
	}

	switch typ {
	case TypeAdd:
		return parseAdd(input, args, loc)
	case TypeEdit:
		return parseEdit(input, args, loc)
	case TypeDone, TypeUndone, TypeRemove:
		return parseTarget(input, typ, args)
	case TypeFilter:
		if len(args) != 1 {
			return Command{}, invalid("filter requires one of all, pending, completed, overdue")
		}
		f, err := derive.ParseFilter(args[0])
		if err != nil {
			return Command{}, invalid("%v", err)
		}
		return Command{Type: TypeFilter, Raw: input, Filter: &FilterArgs{Filter: f}}, nil
	case TypeSort:
		if len(args) != 1 {
			return Command{}, invalid("sort requires one of create_time, title, priority, due_date")
		}
		s, err := derive.ParseSort(args[0])
		if err != nil {
			return Command{}, invalid("%v", err)
		}
		return Command{Type: TypeSort, Raw: input, Sort: &SortArgs{Sort: s}}, nil
	case TypeSearch:
		return Command{Type: TypeSearch, Raw: input, Search: &SearchArgs{Query: strings.Join(args, " ")}}, nil
	case TypeRefresh:
		return Command{Type: TypeRefresh, Raw: input}, nil
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseAdd(raw string, args []string, loc *time.Location) (Command, error) {
	words := make([]string, 0, len(args))
	var draft model.Draft
	for _, arg := range args {
		key, value, ok := option(arg)
		if !ok {
			words = append(words, arg)
			continue
		}
		switch key {
		case "p", "priority":
			p, err := model.ParsePriority(value)
			if err != nil {
				return Command{}, invalid("%v", err)
			}
			draft.Priority = &p
		case "due":
			due, err := ParseDue(value, loc)
			if err != nil {
				return Command{}, invalid("%v", err)
			}
			draft.DueDate = due
		case "desc", "description":
			draft.Description = &value
		default:
			words = append(words, arg)
		}
	}
	draft.Title = strings.TrimSpace(strings.Join(words, " "))
	if draft.Title == "" {
		return Command{}, invalid("add requires a title")
	}
	return Command{Type: TypeAdd, Raw: raw, Add: &AddArgs{Draft: draft}}, nil
}

func parseEdit(raw string, args []string, loc *time.Location) (Command, error) {
	if len(args) < 2 {
		return Command{}, invalid("edit requires an id and at least one field")
	}
	id, err := parseID(args[0])
	if err != nil {
		return Command{}, err
	}
	var patch model.Patch
	for _, arg := range args[1:] {
		key, value, ok := option(arg)
		if !ok {
			return Command{}, invalid("unexpected argument %q, use title:, desc:, p: or due:", arg)
		}
		switch key {
		case "title":
			patch.Title = &value
		case "desc", "description":
			if strings.EqualFold(value, "none") {
				value = ""
			}
			patch.Description = &value
		case "p", "priority":
			p, err := model.ParsePriority(value)
			if err != nil {
				return Command{}, invalid("%v", err)
			}
			patch.Priority = &p
		case "due":
			if strings.EqualFold(value, "none") {
				patch.ClearDueDate = true
				continue
			}
			due, err := ParseDue(value, loc)
			if err != nil {
				return Command{}, invalid("%v", err)
			}
			patch.DueDate = due
		default:
			return Command{}, invalid("unknown field %q", key)
		}
	}
	return Command{Type: TypeEdit, Raw: raw, Edit: &EditArgs{ID: id, Patch: patch}}, nil
}

func parseTarget(raw string, typ Type, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, invalid("%s requires a task id", typ)
	}
	id, err := parseID(args[0])
	if err != nil {
		return Command{}, err
	}
	return Command{Type: typ, Raw: raw, Target: &IDArgs{ID: id}}, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(raw, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("invalid task id %q", raw)
	}
	return id, nil
}

var dueLayouts = []string{"2006-01-02", "2006-01-02 15:04", "2006-01-02T15:04"}

// ParseDue accepts a date, a date with a minute-precision time, or RFC 3339.
// Dates without a zone are read in loc.
func ParseDue(raw string, loc *time.Location) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	for _, layout := range dueLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid due date %q, want YYYY-MM-DD", raw)
}

func option(token string) (string, string, bool) {
	key, value, ok := strings.Cut(token, ":")
	if !ok || key == "" {
		return "", "", false
	}
	return strings.ToLower(key), value, true
}

// tokenize splits on whitespace, keeping double-quoted runs together with
// the quotes removed.
func tokenize(s string) ([]string, error) {
	var (
		out     []string
		current strings.Builder
		quoted  bool
		pending bool
	)
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			pending = true
		case !quoted && (r == ' ' || r == '\t'):
			if pending {
				out = append(out, current.String())
				current.Reset()
				pending = false
			}
		default:
			current.WriteRune(r)
			pending = true
		}
	}
	if quoted {
		return nil, &CommandError{Code: ErrCodeInvalidArgument, Message: "unterminated quote"}
	}
	if pending {
		out = append(out, current.String())
	}
	if len(out) == 0 {
		return nil, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}
	return out, nil
}
