package pgstub

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/restodo/internal/storage"
)

type stubEnv struct {
	server *httptest.Server
	repo   *storage.SQLiteRepository
}

func newStub(t *testing.T) *stubEnv {
	t.Helper()
	repo, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "todos.db"))
	require.NoError(t, err)
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo.SetClock(func() time.Time {
		start = start.Add(time.Second)
		return start
	})
	srv := New(repo, Config{Schema: "public"})
	ts := httptest.NewServer(srv.Engine())
	t.Cleanup(func() {
		ts.Close()
		_ = repo.Close()
	})
	return &stubEnv{server: ts, repo: repo}
}

type call struct {
	method  string
	path    string
	body    string
	headers map[string]string
}

func (e *stubEnv) do(t *testing.T, c call) (*http.Response, []byte) {
	t.Helper()
	var body io.Reader
	if c.body != "" {
		body = strings.NewReader(c.body)
	}
	req, err := http.NewRequest(c.method, e.server.URL+c.path, body)
	require.NoError(t, err)
	if c.body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func (e *stubEnv) seed(t *testing.T, titles ...string) {
	t.Helper()
	for _, title := range titles {
		_, err := e.repo.Create(context.Background(), storage.Todo{Title: title, Priority: 1})
		require.NoError(t, err)
	}
}

func decodeError(t *testing.T, raw []byte) pgError {
	t.Helper()
	var e pgError
	require.NoError(t, json.Unmarshal(raw, &e))
	return e
}

var (
	representation = map[string]string{"Prefer": "return=representation"}
	single         = map[string]string{"Prefer": "return=representation", "Accept": mediaObjectJSON}
)

func TestSelectOrdersAndProjects(t *testing.T) {
	env := newStub(t)
	env.seed(t, "first", "second", "third")

	resp, raw := env.do(t, call{method: http.MethodGet, path: "/todos?select=id,title&order=create_time.desc"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0-2/*", resp.Header.Get("Content-Range"))
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), mediaJSON))

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(raw, &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "third", rows[0]["title"])
	assert.Equal(t, "first", rows[2]["title"])
	assert.Len(t, rows[0], 2, "only selected columns are returned")
}

func TestSelectStarReturnsEveryColumnWithNulls(t *testing.T) {
	env := newStub(t)
	env.seed(t, "only")

	_, raw := env.do(t, call{method: http.MethodGet, path: "/todos?select=*"})
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(raw, &rows))
	require.Len(t, rows, 1)
	for _, col := range allColumns {
		assert.Contains(t, rows[0], col)
	}
	assert.Nil(t, rows[0]["description"])
	assert.Nil(t, rows[0]["due_date"])
	assert.Equal(t, "2026-03-01T09:00:01+00:00", rows[0]["create_time"])
}

func TestQuotedColumnListIsRejected(t *testing.T) {
	env := newStub(t)

	resp, raw := env.do(t, call{method: http.MethodGet, path: `/todos?select="title","priority"`})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, CodeParse, decodeError(t, raw).Code)

	resp, raw = env.do(t, call{method: http.MethodPost, path: `/todos?columns="title"`, body: `{"title":"x"}`, headers: representation})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, CodeParse, decodeError(t, raw).Code)
}

func TestInsertSingleObject(t *testing.T) {
	env := newStub(t)

	resp, raw := env.do(t, call{
		method:  http.MethodPost,
		path:    "/todos?select=*",
		body:    `{"title":"buy milk","priority":3,"due_date":"2026-03-05T00:00:00Z"}`,
		headers: single,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), mediaObjectJSON))

	var row map[string]any
	require.NoError(t, json.Unmarshal(raw, &row))
	assert.Equal(t, "buy milk", row["title"])
	assert.EqualValues(t, 3, row["priority"])
	assert.Equal(t, false, row["is_completed"])
	assert.Equal(t, "2026-03-05T00:00:00+00:00", row["due_date"])
	assert.Equal(t, row["create_time"], row["modify_time"])
}

func TestInsertHonoursColumnsParameter(t *testing.T) {
	env := newStub(t)

	resp, raw := env.do(t, call{
		method:  http.MethodPost,
		path:    "/todos?columns=title&select=*",
		body:    `[{"title":"a","priority":5},{"title":"b","priority":4}]`,
		headers: representation,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(raw, &rows))
	require.Len(t, rows, 2)
	assert.EqualValues(t, 1, rows[0]["priority"], "keys outside columns are ignored")
}

func TestInsertWithoutRepresentation(t *testing.T) {
	env := newStub(t)
	resp, raw := env.do(t, call{method: http.MethodPost, path: "/todos", body: `{"title":"quiet"}`})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Empty(t, raw)
}

func TestInsertConstraintViolations(t *testing.T) {
	env := newStub(t)
	cases := []struct {
		body string
		code string
	}{
		{`{"title":"   "}`, CodeCheckViolation},
		{`{"description":"no title"}`, CodeNotNull},
		{`{"title":"x","priority":7}`, CodeCheckViolation},
		{`{"title":"x","priority":"high"}`, CodeInvalidText},
		{`{"title":"x","owner":"me"}`, CodeUnknownColumn},
		{`{"title":"x","id":4}`, CodeGenerated},
		{`{"title":"x","due_date":"someday"}`, CodeInvalidText},
		{`[{"title":"ok"},{"title":""}]`, CodeCheckViolation},
	}
	for _, tc := range cases {
		resp, raw := env.do(t, call{method: http.MethodPost, path: "/todos", body: tc.body, headers: representation})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, tc.body)
		assert.Equal(t, tc.code, decodeError(t, raw).Code, tc.body)
	}

	rows, err := env.repo.List(context.Background(), storage.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, rows, "a rejected batch writes nothing")
}

func TestUpdateRefreshesModifyTime(t *testing.T) {
	env := newStub(t)
	env.seed(t, "draft")

	resp, raw := env.do(t, call{
		method:  http.MethodPatch,
		path:    "/todos?id=eq.1&select=*",
		body:    `{"is_completed":true,"description":"done early"}`,
		headers: single,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var row map[string]any
	require.NoError(t, json.Unmarshal(raw, &row))
	assert.Equal(t, true, row["is_completed"])
	assert.Equal(t, "done early", row["description"])
	assert.Equal(t, "draft", row["title"])
	assert.NotEqual(t, row["create_time"], row["modify_time"])
}

func TestUpdateClearsNullableColumns(t *testing.T) {
	env := newStub(t)
	due := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	desc := "note"
	_, err := env.repo.Create(context.Background(), storage.Todo{Title: "t", Priority: 1, DueDate: &due, Description: &desc})
	require.NoError(t, err)

	resp, raw := env.do(t, call{method: http.MethodPatch, path: "/todos?id=eq.1", body: `{"due_date":null,"description":null}`, headers: single})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var row map[string]any
	require.NoError(t, json.Unmarshal(raw, &row))
	assert.Nil(t, row["due_date"])
	assert.Nil(t, row["description"])
}

func TestSingularRequestOnMissingRowIs406(t *testing.T) {
	env := newStub(t)

	resp, raw := env.do(t, call{method: http.MethodPatch, path: "/todos?id=eq.999&select=*", body: `{"title":"x"}`, headers: single})
	assert.Equal(t, http.StatusNotAcceptable, resp.StatusCode)
	e := decodeError(t, raw)
	assert.Equal(t, CodeSingular, e.Code)
	require.NotNil(t, e.Details)
	assert.Contains(t, *e.Details, "0 rows")

	resp, _ = env.do(t, call{method: http.MethodGet, path: "/todos?id=eq.999", headers: map[string]string{"Accept": mediaObjectJSON}})
	assert.Equal(t, http.StatusNotAcceptable, resp.StatusCode)
}

func TestDeleteReturnsRepresentationOnce(t *testing.T) {
	env := newStub(t)
	env.seed(t, "doomed")

	resp, raw := env.do(t, call{method: http.MethodDelete, path: "/todos?id=eq.1&select=id", headers: representation})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"id":1}]`, string(raw))

	resp, raw = env.do(t, call{method: http.MethodDelete, path: "/todos?id=eq.1&select=id", headers: representation})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(raw))

	resp, _ = env.do(t, call{method: http.MethodDelete, path: "/todos?id=eq.1"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestMutationsRequireFilter(t *testing.T) {
	env := newStub(t)
	resp, raw := env.do(t, call{method: http.MethodDelete, path: "/todos"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, CodeNoWhere, decodeError(t, raw).Code)

	resp, raw = env.do(t, call{method: http.MethodPatch, path: "/todos", body: `{"title":"all"}`})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, CodeNoWhere, decodeError(t, raw).Code)
}

func TestQueryErrors(t *testing.T) {
	env := newStub(t)
	cases := []struct {
		path string
		code string
	}{
		{"/todos?order=color.desc", "42703"},
		{"/todos?order=title.sideways", CodeParse},
		{"/todos?id=gt.3", CodeParse},
		{"/todos?id=eq.abc", CodeInvalidText},
		{"/todos?title=eq.x", CodeParse},
		{"/todos?select=title;drop", CodeParse},
		{"/todos?order=bogus;x=1", CodeParse},
	}
	for _, tc := range cases {
		resp, raw := env.do(t, call{method: http.MethodGet, path: tc.path})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, tc.path)
		assert.Equal(t, tc.code, decodeError(t, raw).Code, tc.path)
	}
}

func TestProfileHeadersAreChecked(t *testing.T) {
	env := newStub(t)

	resp, _ := env.do(t, call{method: http.MethodGet, path: "/todos", headers: map[string]string{"Accept-Profile": "public"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw := env.do(t, call{method: http.MethodGet, path: "/todos", headers: map[string]string{"Accept-Profile": "private"}})
	assert.Equal(t, http.StatusNotAcceptable, resp.StatusCode)
	assert.Equal(t, CodeSchema, decodeError(t, raw).Code)

	resp, _ = env.do(t, call{method: http.MethodPost, path: "/todos", body: `{"title":"x"}`, headers: map[string]string{"Content-Profile": "private"}})
	assert.Equal(t, http.StatusNotAcceptable, resp.StatusCode)
}

func TestUnknownTableAndCORS(t *testing.T) {
	env := newStub(t)

	resp, raw := env.do(t, call{method: http.MethodGet, path: "/projects"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, CodeUnknownTable, decodeError(t, raw).Code)

	resp, _ = env.do(t, call{method: http.MethodOptions, path: "/todos"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Prefer")
}
