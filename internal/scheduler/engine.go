package scheduler

import (
	"container/heap"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sandeepkv93/restodo/internal/model"
)

var (
	ErrInvalidDueTime = errors.New("scheduler: invalid due time")
	ErrStopped        = errors.New("scheduler: engine stopped")
)

// DeadlineEvent fires once the due date of a pending task has passed.
type DeadlineEvent struct {
	TaskID int64
	Title  string
	DueAt  time.Time
}

type queueItem struct {
	event DeadlineEvent
}

type priorityQueue []queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	return pq[i].event.DueAt.Before(pq[j].event.DueAt)
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
}

func (pq *priorityQueue) Push(x any) {
	*pq = append(*pq, x.(queueItem))
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[0 : n-1]
	return item
}

// Engine holds at most one pending deadline per task. Rescheduling a task
// supersedes its earlier entry; superseded heap items are skipped when they
// surface.
type Engine struct {
	mu      sync.Mutex
	queue   priorityQueue
	armed   map[int64]time.Time
	out     chan DeadlineEvent
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	dropped uint64
}

func NewEngine(bufferSize int) *Engine {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Engine{
		queue:  make(priorityQueue, 0),
		armed:  make(map[int64]time.Time),
		out:    make(chan DeadlineEvent, bufferSize),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

func (e *Engine) C() <-chan DeadlineEvent {
	return e.out
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	heap.Init(&e.queue)
	go e.loop()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()
	<-e.doneCh
}

func (e *Engine) Schedule(ev DeadlineEvent) error {
	if ev.DueAt.IsZero() {
		return ErrInvalidDueTime
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrStopped
	}
	e.push(ev)
	e.signalWakeup()
	return nil
}

func (e *Engine) Cancel(taskID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.armed, taskID)
}

// Sync arms a deadline for every task that is pending with a due date after
// now and disarms everything else. It returns the number of armed tasks.
func (e *Engine) Sync(tasks []model.Task, now time.Time) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return 0, ErrStopped
	}

	keep := make(map[int64]struct{}, len(tasks))
	for _, t := range tasks {
		if t.IsCompleted || t.DueDate == nil || !t.DueDate.After(now) {
			continue
		}
		keep[t.ID] = struct{}{}
		if at, ok := e.armed[t.ID]; ok && at.Equal(*t.DueDate) {
			continue
		}
		e.push(DeadlineEvent{TaskID: t.ID, Title: t.Title, DueAt: *t.DueDate})
	}
	for id := range e.armed {
		if _, ok := keep[id]; !ok {
			delete(e.armed, id)
		}
	}
	e.compact()
	e.signalWakeup()
	return len(e.armed), nil
}

func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.armed)
}

func (e *Engine) Dropped() uint64 {
	return atomic.LoadUint64(&e.dropped)
}

// push must be called with mu held.
func (e *Engine) push(ev DeadlineEvent) {
	e.armed[ev.TaskID] = ev.DueAt
	heap.Push(&e.queue, queueItem{event: ev})
}

// compact drops superseded items once they make up most of the heap.
func (e *Engine) compact() {
	if len(e.queue) <= 2*len(e.armed)+16 {
		return
	}
	live := e.queue[:0]
	for _, item := range e.queue {
		if e.current(item.event) {
			live = append(live, item)
		}
	}
	e.queue = live
	heap.Init(&e.queue)
}

func (e *Engine) current(ev DeadlineEvent) bool {
	at, ok := e.armed[ev.TaskID]
	return ok && at.Equal(ev.DueAt)
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	var timer *time.Timer
	for {
		next, hasNext := e.peek()
		if !hasNext {
			select {
			case <-e.wakeup:
				continue
			case <-e.stopCh:
				return
			}
		}

		wait := time.Until(next.DueAt)
		if wait < 0 {
			wait = 0
		}
		timer = resetTimer(timer, wait)

		select {
		case <-timer.C:
			due := e.popDue(time.Now())
			for _, ev := range due {
				select {
				case e.out <- ev:
				default:
					atomic.AddUint64(&e.dropped, 1)
				}
			}
		case <-e.wakeup:
			continue
		case <-e.stopCh:
			if timer != nil {
				stopTimer(timer)
			}
			return
		}
	}
}

func (e *Engine) signalWakeup() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

func (e *Engine) peek() (DeadlineEvent, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for len(e.queue) > 0 {
		if e.current(e.queue[0].event) {
			return e.queue[0].event, true
		}
		heap.Pop(&e.queue)
	}
	return DeadlineEvent{}, false
}

func (e *Engine) popDue(now time.Time) []DeadlineEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]DeadlineEvent, 0)
	for len(e.queue) > 0 {
		next := e.queue[0].event
		if next.DueAt.After(now) {
			break
		}
		item := heap.Pop(&e.queue).(queueItem)
		if !e.current(item.event) {
			continue
		}
		delete(e.armed, item.event.TaskID)
		out = append(out, item.event)
	}
	return out
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
