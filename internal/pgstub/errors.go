package pgstub

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes as PostgREST and Postgres report them.
const (
	CodeParse          = "PGRST100"
	CodeSchema         = "PGRST106"
	CodeSingular       = "PGRST116"
	CodeUnknownColumn  = "PGRST204"
	CodeUnknownTable   = "PGRST205"
	CodeCheckViolation = "23514"
	CodeNotNull        = "23502"
	CodeInvalidText    = "22P02"
	CodeNoWhere        = "21000"
	CodeGenerated      = "428C9"
	CodeInternal       = "XX000"
)

type pgError struct {
	status  int
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Details *string `json:"details"`
	Hint    *string `json:"hint"`
}

func (e *pgError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(status int, code, message string) *pgError {
	return &pgError{status: status, Code: code, Message: message}
}

func (e *pgError) withDetails(format string, args ...any) *pgError {
	d := fmt.Sprintf(format, args...)
	e.Details = &d
	return e
}

func (e *pgError) withHint(hint string) *pgError {
	e.Hint = &hint
	return e
}

func parseError(param, raw string) *pgError {
	return newError(http.StatusBadRequest, CodeParse, fmt.Sprintf("failed to parse %s parameter (%s)", param, raw)).
		withDetails("unexpected token in %q", raw)
}

func singularError(rows int) *pgError {
	return newError(http.StatusNotAcceptable, CodeSingular, "JSON object requested, multiple (or no) rows returned").
		withDetails("The result contains %d rows", rows)
}

func (s *Server) respondError(c *gin.Context, e *pgError) {
	if e.status >= http.StatusInternalServerError {
		_ = c.Error(e)
	}
	c.Header("Content-Type", mediaJSON+"; charset=utf-8")
	c.AbortWithStatusJSON(e.status, e)
}
