package collection

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sandeepkv93/restodo/internal/model"
)

var ErrStaleRefresh = errors.New("collection: refresh superseded by a newer one")

type Store interface {
	List(ctx context.Context) ([]model.Task, error)
	Create(ctx context.Context, draft model.Draft) (model.Task, error)
	Update(ctx context.Context, id int64, patch model.Patch) (model.Task, error)
	Delete(ctx context.Context, id int64) error
	ToggleComplete(ctx context.Context, id int64, completed bool) (model.Task, error)
}

type ErrorInfo struct {
	Op      string
	Message string
	At      time.Time
	Err     error
}

type Snapshot struct {
	Tasks     []model.Task
	Loading   bool
	LastError *ErrorInfo
	Version   uint64
}

type Option func(*Collection)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Collection) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Collection) {
		if now != nil {
			c.now = now
		}
	}
}

// Refreshes and mutations share one ticket counter; writes that land while a
// refresh is in flight are replayed on top of its result.
type Collection struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	tasks     []model.Task
	lastError *ErrorInfo
	version   uint64
	ticket    uint64
	applied   uint64
	inflight  int
	journal   []mutation
}

func New(store Store, opts ...Option) *Collection {
	c := &Collection{
		store:  store,
		logger: zap.NewNop(),
		now:    time.Now,
		tasks:  make([]model.Task, 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Collection) Tasks() []model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneTasks(c.tasks)
}

func (c *Collection) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight > 0
}

func (c *Collection) LastError() *ErrorInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastError == nil {
		return nil
	}
	info := *c.lastError
	return &info
}

func (c *Collection) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastError = nil
}

func (c *Collection) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		Tasks:   cloneTasks(c.tasks),
		Loading: c.inflight > 0,
		Version: c.version,
	}
	if c.lastError != nil {
		info := *c.lastError
		s.LastError = &info
	}
	return s
}

func (c *Collection) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.ticket++
	ticket := c.ticket
	c.inflight++
	c.mu.Unlock()

	fetched, err := c.store.List(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
	defer c.trimJournal()

	if ticket < c.applied {
		c.logger.Debug("dropping stale refresh", zap.Uint64("ticket", ticket), zap.Uint64("applied", c.applied))
		if err != nil {
			return err
		}
		return ErrStaleRefresh
	}
	if err != nil {
		c.recordError("refresh", err)
		return err
	}

	next := dedupe(cloneTasks(fetched))
	for _, m := range c.journal {
		if m.ticket > ticket {
			next = m.replay(next)
		}
	}
	c.tasks = next
	c.applied = ticket
	c.lastError = nil
	c.version++
	c.logger.Debug("refresh applied", zap.Uint64("ticket", ticket), zap.Int("tasks", len(next)))
	return nil
}

func (c *Collection) Add(ctx context.Context, draft model.Draft) (model.Task, error) {
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		c.fail("add", err)
		return model.Task{}, err
	}
	task, err := c.store.Create(ctx, draft)
	if err != nil {
		c.fail("add", err)
		return model.Task{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.apply(mutation{kind: mutationAdd, task: task})
	c.logger.Debug("task added", zap.Int64("id", task.ID))
	return task, nil
}

func (c *Collection) Edit(ctx context.Context, id int64, patch model.Patch) (model.Task, error) {
	if err := patch.Validate(); err != nil {
		c.fail("edit", err)
		return model.Task{}, err
	}
	task, err := c.store.Update(ctx, id, patch)
	if err != nil {
		c.fail("edit", err)
		return model.Task{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.apply(mutation{kind: mutationReplace, task: task})
	c.logger.Debug("task edited", zap.Int64("id", id))
	return task, nil
}

func (c *Collection) Remove(ctx context.Context, id int64) error {
	if err := c.store.Delete(ctx, id); err != nil {
		c.fail("remove", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.apply(mutation{kind: mutationRemove, id: id})
	c.logger.Debug("task removed", zap.Int64("id", id))
	return nil
}

func (c *Collection) Toggle(ctx context.Context, id int64, completed bool) (model.Task, error) {
	task, err := c.store.ToggleComplete(ctx, id, completed)
	if err != nil {
		c.fail("toggle", err)
		return model.Task{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.apply(mutation{kind: mutationReplace, task: task})
	c.logger.Debug("task toggled", zap.Int64("id", id), zap.Bool("completed", completed))
	return task, nil
}

// apply must be called with mu held.
func (c *Collection) apply(m mutation) {
	c.ticket++
	m.ticket = c.ticket
	c.tasks = m.replay(c.tasks)
	if c.inflight > 0 {
		c.journal = append(c.journal, m)
	}
	c.lastError = nil
	c.version++
}

func (c *Collection) fail(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recordError(op, err)
}

func (c *Collection) recordError(op string, err error) {
	c.lastError = &ErrorInfo{Op: op, Message: err.Error(), At: c.now(), Err: err}
	c.logger.Warn("collection operation failed", zap.String("op", op), zap.Error(err))
}

func (c *Collection) trimJournal() {
	if c.inflight == 0 {
		c.journal = nil
	}
}
