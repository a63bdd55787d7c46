package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const CodeNoRows = "PGRST116"

var ErrNotFound = errors.New("remote: todo not found")

type RemoteError struct {
	Op      string
	// Status is 0 for transport failures.
	Status  int
	Code    string
	Message string
	Details string
	Hint    string
	Err     error
}

func (e *RemoteError) Error() string {
	var b strings.Builder
	b.WriteString("remote: ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	switch {
	case e.Status != 0 && e.Code != "":
		fmt.Fprintf(&b, " (status %d, code %s)", e.Status, e.Code)
	case e.Status != 0:
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	return b.String()
}

func (e *RemoteError) Unwrap() error { return e.Err }

func (e *RemoteError) Is(target error) bool {
	return target == ErrNotFound && e.NotFound()
}

func (e *RemoteError) NotFound() bool {
	return e.Status == http.StatusNotFound || e.Code == CodeNoRows
}

type apiError struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
	Hint    json.RawMessage `json:"hint"`
}

func newStatusError(op string, status int, body []byte) *RemoteError {
	e := &RemoteError{Op: op, Status: status}
	var payload apiError
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		e.Code = payload.Code
		e.Message = payload.Message
		e.Details = rawText(payload.Details)
		e.Hint = rawText(payload.Hint)
		return e
	}
	e.Message = strings.TrimSpace(string(body))
	if e.Message == "" {
		e.Message = strings.ToLower(http.StatusText(status))
	}
	return e
}

func rawText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
