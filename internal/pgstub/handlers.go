package pgstub

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sandeepkv93/restodo/internal/storage"
)

const maxBodySize = 1 << 20

func (s *Server) handleSelect(c *gin.Context) {
	q, perr := parseQuery(c.Request.URL.RawQuery)
	if perr != nil {
		s.respondError(c, perr)
		return
	}
	ctx := c.Request.Context()

	var rows []storage.Todo
	if q.id != nil {
		row, err := s.repo.Get(ctx, *q.id)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			rows = []storage.Todo{}
		case err != nil:
			s.respondStorageError(c, err)
			return
		default:
			rows = []storage.Todo{row}
		}
	} else {
		var err error
		rows, err = s.repo.List(ctx, q.order)
		if err != nil {
			s.respondStorageError(c, err)
			return
		}
	}
	if len(rows) > 0 {
		c.Header("Content-Range", fmt.Sprintf("0-%d/*", len(rows)-1))
	} else {
		c.Header("Content-Range", "*/*")
	}
	s.respondRows(c, http.StatusOK, rows, q.columns)
}

func (s *Server) handleInsert(c *gin.Context) {
	q, perr := parseQuery(c.Request.URL.RawQuery)
	if perr != nil {
		s.respondError(c, perr)
		return
	}
	objects, perr := s.readBody(c)
	if perr != nil {
		s.respondError(c, perr)
		return
	}
	if wantsObject(c) && len(objects) != 1 {
		s.respondError(c, singularError(len(objects)))
		return
	}

	inserts := make([]storage.Todo, 0, len(objects))
	for _, obj := range objects {
		ch, perr := changesFromObject(obj, q.insert)
		if perr != nil {
			s.respondError(c, perr)
			return
		}
		if perr := checkRow(ch, true); perr != nil {
			s.respondError(c, perr)
			return
		}
		inserts = append(inserts, todoFromChanges(ch))
	}

	created := make([]storage.Todo, 0, len(inserts))
	for _, in := range inserts {
		row, err := s.repo.Create(c.Request.Context(), in)
		if err != nil {
			s.respondStorageError(c, err)
			return
		}
		created = append(created, row)
	}
	if !wantsRepresentation(c) {
		c.Status(http.StatusCreated)
		return
	}
	s.respondRows(c, http.StatusCreated, created, q.columns)
}

func (s *Server) handleUpdate(c *gin.Context) {
	q, perr := parseQuery(c.Request.URL.RawQuery)
	if perr != nil {
		s.respondError(c, perr)
		return
	}
	if q.id == nil {
		s.respondError(c, newError(http.StatusBadRequest, CodeNoWhere, "UPDATE requires a WHERE clause"))
		return
	}
	objects, perr := s.readBody(c)
	if perr != nil {
		s.respondError(c, perr)
		return
	}
	if len(objects) != 1 {
		s.respondError(c, newError(http.StatusBadRequest, "PGRST102", "A PATCH body must be a single JSON object"))
		return
	}
	ch, perr := changesFromObject(objects[0], nil)
	if perr != nil {
		s.respondError(c, perr)
		return
	}
	if perr := checkRow(ch, false); perr != nil {
		s.respondError(c, perr)
		return
	}

	ctx := c.Request.Context()
	var rows []storage.Todo
	var row storage.Todo
	var err error
	if ch.IsEmpty() {
		row, err = s.repo.Get(ctx, *q.id)
	} else {
		row, err = s.repo.Update(ctx, *q.id, ch)
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		rows = []storage.Todo{}
	case err != nil:
		s.respondStorageError(c, err)
		return
	default:
		rows = []storage.Todo{row}
	}
	s.respondMutation(c, rows, q.columns)
}

func (s *Server) handleDelete(c *gin.Context) {
	q, perr := parseQuery(c.Request.URL.RawQuery)
	if perr != nil {
		s.respondError(c, perr)
		return
	}
	if q.id == nil {
		s.respondError(c, newError(http.StatusBadRequest, CodeNoWhere, "DELETE requires a WHERE clause"))
		return
	}
	row, err := s.repo.Delete(c.Request.Context(), *q.id)
	var rows []storage.Todo
	switch {
	case errors.Is(err, storage.ErrNotFound):
		rows = []storage.Todo{}
	case err != nil:
		s.respondStorageError(c, err)
		return
	default:
		rows = []storage.Todo{row}
	}
	s.respondMutation(c, rows, q.columns)
}

func (s *Server) respondMutation(c *gin.Context, rows []storage.Todo, columns []string) {
	if wantsObject(c) && len(rows) != 1 {
		s.respondError(c, singularError(len(rows)))
		return
	}
	if !wantsRepresentation(c) {
		c.Status(http.StatusNoContent)
		return
	}
	s.respondRows(c, http.StatusOK, rows, columns)
}

func (s *Server) respondRows(c *gin.Context, status int, rows []storage.Todo, columns []string) {
	if wantsObject(c) {
		if len(rows) != 1 {
			s.respondError(c, singularError(len(rows)))
			return
		}
		c.Header("Content-Type", mediaObjectJSON+"; charset=utf-8")
		c.JSON(status, rowJSON(rows[0], columns))
		return
	}
	c.Header("Content-Type", mediaJSON+"; charset=utf-8")
	c.JSON(status, rowsJSON(rows, columns))
}

func (s *Server) respondStorageError(c *gin.Context, err error) {
	var constraint *storage.ConstraintError
	switch {
	case errors.As(err, &constraint):
		s.respondError(c, newError(http.StatusBadRequest, CodeCheckViolation, "new row for relation \"todos\" violates check constraint").
			withDetails("%v", constraint.Err))
	case errors.Is(err, storage.ErrUnknownSort):
		s.respondError(c, newError(http.StatusBadRequest, CodeParse, err.Error()))
	default:
		s.respondError(c, newError(http.StatusInternalServerError, CodeInternal, err.Error()))
	}
}

func (s *Server) readBody(c *gin.Context) ([]map[string]json.RawMessage, *pgError) {
	if ct := c.ContentType(); ct != "" && ct != mediaJSON {
		return nil, newError(http.StatusUnsupportedMediaType, "PGRST107", "Content-Type not acceptable: "+ct)
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodySize))
	if err != nil {
		return nil, newError(http.StatusBadRequest, "PGRST102", "could not read request body").withDetails("%v", err)
	}
	return decodeObjects(raw)
}

func wantsObject(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), mediaObjectJSON)
}

func wantsRepresentation(c *gin.Context) bool {
	for _, pref := range strings.Split(c.GetHeader("Prefer"), ",") {
		if strings.TrimSpace(pref) == "return=representation" {
			return true
		}
	}
	return false
}
