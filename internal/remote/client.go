package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sandeepkv93/restodo/internal/model"
)

const (
	resourceTodos   = "todos"
	mediaJSON       = "application/json"
	mediaObjectJSON = "application/vnd.pgrst.object+json"
	maxResponseSize = 8 << 20
)

type Config struct {
	BaseURL    string
	Schema     string
	HTTPClient *http.Client
	Logger     *zap.Logger
	UserAgent  string
}

type Client struct {
	base      *url.URL
	schema    string
	http      *http.Client
	logger    *zap.Logger
	userAgent string
}

func New(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("remote: base url is required")
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("remote: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("remote: unsupported base url scheme %q", base.Scheme)
	}
	c := &Client{
		base:      base,
		schema:    strings.TrimSpace(cfg.Schema),
		http:      cfg.HTTPClient,
		logger:    cfg.Logger,
		userAgent: cfg.UserAgent,
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.userAgent == "" {
		c.userAgent = "restodo"
	}
	return c, nil
}

func (c *Client) List(ctx context.Context) ([]model.Task, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "create_time.desc")

	var rows []wireTask
	if err := c.do(ctx, request{op: "list todos", method: http.MethodGet, query: q, out: &rows}); err != nil {
		return nil, err
	}
	tasks, err := toModels(rows)
	if err != nil {
		return nil, &RemoteError{Op: "list todos", Status: http.StatusOK, Message: "malformed payload: " + err.Error(), Err: err}
	}
	return tasks, nil
}

func (c *Client) Create(ctx context.Context, draft model.Draft) (model.Task, error) {
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		return model.Task{}, err
	}
	q := url.Values{}
	q.Set("select", "*")

	var row wireTask
	err := c.do(ctx, request{
		op:     "create todo",
		method: http.MethodPost,
		query:  q,
		body:   draft,
		single: true,
		out:    &row,
	})
	if err != nil {
		return model.Task{}, err
	}
	return c.decodeOne("create todo", row)
}

func (c *Client) Update(ctx context.Context, id int64, patch model.Patch) (model.Task, error) {
	if err := patch.Validate(); err != nil {
		return model.Task{}, err
	}
	q := url.Values{}
	q.Set("id", "eq."+strconv.FormatInt(id, 10))
	q.Set("select", "*")

	var row wireTask
	err := c.do(ctx, request{
		op:     "update todo",
		method: http.MethodPatch,
		query:  q,
		body:   patch.Fields(),
		single: true,
		out:    &row,
	})
	if err != nil {
		return model.Task{}, err
	}
	return c.decodeOne("update todo", row)
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	q := url.Values{}
	q.Set("id", "eq."+strconv.FormatInt(id, 10))
	q.Set("select", "id")

	var rows []struct {
		ID int64 `json:"id"`
	}
	err := c.do(ctx, request{
		op:     "delete todo",
		method: http.MethodDelete,
		query:  q,
		prefer: "return=representation",
		out:    &rows,
	})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return &RemoteError{
			Op:      "delete todo",
			Status:  http.StatusOK,
			Code:    CodeNoRows,
			Message: fmt.Sprintf("todo %d does not exist", id),
		}
	}
	return nil
}

func (c *Client) ToggleComplete(ctx context.Context, id int64, completed bool) (model.Task, error) {
	return c.Update(ctx, id, model.Patch{IsCompleted: &completed})
}

func (c *Client) decodeOne(op string, row wireTask) (model.Task, error) {
	task, err := row.toModel()
	if err != nil {
		return model.Task{}, &RemoteError{Op: op, Status: http.StatusOK, Message: "malformed payload: " + err.Error(), Err: err}
	}
	return task, nil
}

type request struct {
	op     string
	method string
	query  url.Values
	body   any
	prefer string
	single bool
	out    any
}

func (c *Client) endpoint(q url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + resourceTodos
	u.RawQuery = encodeQuery(normalizeQuery(q))
	return u.String()
}

func (c *Client) do(ctx context.Context, r request) error {
	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return &RemoteError{Op: r.op, Message: "encode request: " + err.Error(), Err: err}
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.endpoint(r.query), body)
	if err != nil {
		return &RemoteError{Op: r.op, Message: "build request: " + err.Error(), Err: err}
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)
	req.Header.Set("User-Agent", c.userAgent)
	if r.single {
		req.Header.Set("Accept", mediaObjectJSON)
	} else {
		req.Header.Set("Accept", mediaJSON)
	}
	if r.body != nil {
		req.Header.Set("Content-Type", mediaJSON)
	}
	switch {
	case r.prefer != "":
		req.Header.Set("Prefer", r.prefer)
	case r.method != http.MethodGet:
		req.Header.Set("Prefer", "return=representation")
	}
	if c.schema != "" {
		if r.method == http.MethodGet || r.method == http.MethodHead {
			req.Header.Set("Accept-Profile", c.schema)
		} else {
			req.Header.Set("Content-Profile", c.schema)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("remote request failed",
			zap.String("op", r.op),
			zap.String("method", r.method),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return &RemoteError{Op: r.op, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	fields := []zap.Field{
		zap.String("op", r.op),
		zap.String("method", r.method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
		zap.String("request_id", requestID),
	}
	if err != nil {
		c.logger.Warn("remote response unreadable", append(fields, zap.Error(err))...)
		return &RemoteError{Op: r.op, Status: resp.StatusCode, Message: "read response: " + err.Error(), Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rerr := newStatusError(r.op, resp.StatusCode, raw)
		c.logger.Warn("remote request rejected", append(fields, zap.String("code", rerr.Code), zap.String("message", rerr.Message))...)
		return rerr
	}
	c.logger.Debug("remote request", fields...)

	if r.out == nil {
		return nil
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return &RemoteError{Op: r.op, Status: resp.StatusCode, Message: "malformed payload: empty body"}
	}
	if err := json.Unmarshal(raw, r.out); err != nil {
		return &RemoteError{Op: r.op, Status: resp.StatusCode, Message: "malformed payload: " + err.Error(), Err: err}
	}
	return nil
}
