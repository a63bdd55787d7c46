package pgstub

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/sandeepkv93/restodo/internal/storage"
)

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// allColumns is the order columns appear in with select=*.
var allColumns = []string{"id", "title", "description", "is_completed", "priority", "due_date", "create_time", "modify_time"}

type query struct {
	// columns is the select list; nil means every column.
	columns []string
	// insert limits which body keys POST reads.
	insert []string
	order  storage.ListOptions
	id     *int64
}

// parseQuery rejects the whole query string when any pair is malformed,
// including pairs containing ';'.
func parseQuery(rawQuery string) (query, *pgError) {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return query{}, newError(http.StatusBadRequest, CodeParse, "malformed query string").withDetails("%s", err.Error())
	}
	var q query
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		raw := vals[len(vals)-1]
		switch key {
		case "select":
			cols, err := parseColumns("select", raw, true)
			if err != nil {
				return query{}, err
			}
			q.columns = cols
		case "columns":
			cols, err := parseColumns("columns", raw, false)
			if err != nil {
				return query{}, err
			}
			q.insert = cols
		case "order":
			order, err := parseOrder(raw)
			if err != nil {
				return query{}, err
			}
			q.order = order
		case "id":
			id, err := parseIDFilter(raw)
			if err != nil {
				return query{}, err
			}
			q.id = &id
		default:
			if storage.OrderColumns[key] {
				return query{}, newError(http.StatusBadRequest, CodeParse, fmt.Sprintf("unsupported filter on column %s", key)).
					withHint("only id=eq.N is supported")
			}
			return query{}, newError(http.StatusBadRequest, CodeParse, fmt.Sprintf("unknown query parameter %s", key))
		}
	}
	return q, nil
}

// parseColumns rejects quoted identifiers, the form some clients emit for
// the columns parameter.
func parseColumns(param, raw string, allowStar bool) ([]string, *pgError) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, parseError(param, raw)
	}
	if allowStar && raw == "*" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if allowStar && name == "*" {
			return nil, nil
		}
		if !identRe.MatchString(name) {
			return nil, parseError(param, raw)
		}
		if !storage.OrderColumns[name] {
			return nil, unknownColumn(name)
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out, nil
}

func parseOrder(raw string) (storage.ListOptions, *pgError) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) == 0 || len(parts) > 2 || !identRe.MatchString(parts[0]) {
		return storage.ListOptions{}, parseError("order", raw)
	}
	if !storage.OrderColumns[parts[0]] {
		return storage.ListOptions{}, unknownColumn(parts[0])
	}
	opts := storage.ListOptions{OrderBy: parts[0]}
	if len(parts) == 2 {
		switch parts[1] {
		case "asc":
		case "desc":
			opts.Descending = true
		default:
			return storage.ListOptions{}, parseError("order", raw)
		}
	}
	return opts, nil
}

func parseIDFilter(raw string) (int64, *pgError) {
	op, value, ok := strings.Cut(raw, ".")
	if !ok || op != "eq" {
		return 0, parseError("filter", raw).withHint("only the eq operator is supported")
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, newError(http.StatusBadRequest, CodeInvalidText, fmt.Sprintf("invalid input syntax for type bigint: %q", value))
	}
	return id, nil
}

func unknownColumn(name string) *pgError {
	return newError(http.StatusBadRequest, "42703", fmt.Sprintf("column todos.%s does not exist", name))
}
