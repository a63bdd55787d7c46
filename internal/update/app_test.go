package update

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/sandeepkv93/restodo/internal/collection"
	"github.com/sandeepkv93/restodo/internal/derive"
	"github.com/sandeepkv93/restodo/internal/model"
	"github.com/sandeepkv93/restodo/internal/scheduler"
	"github.com/sandeepkv93/restodo/internal/translator"
)

var testNow = time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)

type memStore struct {
	mu      sync.Mutex
	tasks   []model.Task
	nextID  int64
	listErr error
}

func (s *memStore) List(ctx context.Context) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]model.Task(nil), s.tasks...), nil
}

func (s *memStore) Create(ctx context.Context, draft model.Draft) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	task := model.Task{
		ID:          s.nextID,
		Title:       draft.Title,
		Description: draft.Description,
		Priority:    model.DefaultPriority,
		DueDate:     draft.DueDate,
		CreateTime:  testNow.Add(time.Duration(s.nextID) * time.Minute),
	}
	if draft.Priority != nil {
		task.Priority = *draft.Priority
	}
	task.ModifyTime = task.CreateTime
	s.tasks = append([]model.Task{task}, s.tasks...)
	return task, nil
}

func (s *memStore) Update(ctx context.Context, id int64, patch model.Patch) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, task := range s.tasks {
		if task.ID == id {
			s.tasks[i] = patch.Apply(task)
			return s.tasks[i], nil
		}
	}
	return model.Task{}, fmt.Errorf("todo %d not found", id)
}

func (s *memStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, task := range s.tasks {
		if task.ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("todo %d not found", id)
}

func (s *memStore) ToggleComplete(ctx context.Context, id int64, completed bool) (model.Task, error) {
	return s.Update(ctx, id, model.Patch{IsCompleted: &completed})
}

func (s *memStore) seed(tasks ...model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, tasks...)
	for _, t := range tasks {
		if t.ID > s.nextID {
			s.nextID = t.ID
		}
	}
}

type recordingNotifier struct {
	sent []Notification
}

func (r *recordingNotifier) Send(n Notification) error {
	r.sent = append(r.sent, n)
	return nil
}

func newTestModel(t *testing.T, store *memStore, mutate func(*Deps)) Model {
	t.Helper()
	tr, err := translator.New("en", zap.NewNop())
	if err != nil {
		t.Fatalf("translator: %v", err)
	}
	deps := Deps{
		Collection: collection.New(store, collection.WithClock(func() time.Time { return testNow })),
		Translator: tr,
		Now:        func() time.Time { return testNow },
	}
	if mutate != nil {
		mutate(&deps)
	}
	return NewModel(deps)
}

func loadedModel(t *testing.T, store *memStore) Model {
	t.Helper()
	m := newTestModel(t, store, nil)
	return step(t, m, m.refreshCmd()())
}

func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, _ := m.Update(msg)
	next, ok := updated.(Model)
	if !ok {
		t.Fatalf("unexpected model type %T", updated)
	}
	return next
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

// press sends keys in order and returns the command produced by the last.
func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var updated tea.Model
		updated, cmd = m.Update(keyMsg(k))
		m = updated.(Model)
	}
	return m, cmd
}

// settle runs a command produced by a key press and feeds its message back.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	return step(t, m, cmd())
}

func sampleTasks() []model.Task {
	past := testNow.Add(-48 * time.Hour)
	return []model.Task{
		{ID: 3, Title: "stretch", IsCompleted: true, Priority: 1, CreateTime: testNow.Add(-time.Hour)},
		{ID: 2, Title: "pay rent", Priority: 3, DueDate: &past, CreateTime: testNow.Add(-2 * time.Hour)},
		{ID: 1, Title: "call mom", Priority: 5, CreateTime: testNow.Add(-3 * time.Hour)},
	}
}

func TestNewModelDefaults(t *testing.T) {
	m := newTestModel(t, &memStore{}, nil)
	if m.Mode != ModeBrowse {
		t.Fatalf("expected browse mode, got %q", m.Mode)
	}
	if m.Filter != derive.FilterAll || m.Sort != derive.SortCreateTime {
		t.Fatalf("unexpected defaults: filter=%q sort=%q", m.Filter, m.Sort)
	}
	if m.Init() == nil {
		t.Fatal("expected init to issue the first refresh")
	}
}

func TestRefreshShowsSectionsAndCounters(t *testing.T) {
	store := &memStore{}
	store.seed(sampleTasks()...)
	m := loadedModel(t, store)

	if m.Status.Text != "Loaded 3 tasks" {
		t.Fatalf("unexpected status %q", m.Status.Text)
	}
	out := m.View()
	for _, want := range []string{"Pending 2  Completed 1  Overdue 1", "Overdue (1)", "Pending (1)", "Completed (1)", "pay rent", "Due 03-03"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in view:\n%s", want, out)
		}
	}
	if strings.Index(out, "pay rent") > strings.Index(out, "call mom") {
		t.Fatalf("overdue section should come first:\n%s", out)
	}
}

func TestRefreshFailureKeepsListAndReportsError(t *testing.T) {
	store := &memStore{}
	store.seed(sampleTasks()...)
	m := loadedModel(t, store)

	store.listErr = errors.New("connection refused")
	m = step(t, m, m.refreshCmd()())
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "connection refused") {
		t.Fatalf("unexpected status %+v", m.Status)
	}
	if len(m.coll.Tasks()) != 3 {
		t.Fatalf("prior list should survive a failed refresh")
	}
	if len(m.Notifications) != 1 || m.Notifications[0].Level != levelError {
		t.Fatalf("expected one error notification, got %+v", m.Notifications)
	}
}

func TestStaleRefreshIsSilent(t *testing.T) {
	m := loadedModel(t, &memStore{})
	m.refreshing = 2
	m.Status = StatusBar{Text: "keep"}
	m = step(t, m, refreshedMsg{Err: fmt.Errorf("wrapped: %w", collection.ErrStaleRefresh)})
	if m.Status.Text != "keep" || m.LastError != nil {
		t.Fatalf("stale refresh should not surface: %+v", m.Status)
	}
	if m.refreshing != 1 {
		t.Fatalf("expected one refresh outstanding, got %d", m.refreshing)
	}
}

func TestLastStaleRefreshClearsLoadingStatus(t *testing.T) {
	store := &memStore{}
	store.seed(sampleTasks()...)
	m := loadedModel(t, store)
	m.refreshing = 1
	m.setStatus(m.t("status.loading", nil), false)

	m = step(t, m, refreshedMsg{Err: collection.ErrStaleRefresh})
	if m.Status.Text != "Loaded 3 tasks" || m.Status.IsError {
		t.Fatalf("loading status should be replaced, got %+v", m.Status)
	}
	if m.LastError != nil {
		t.Fatalf("stale refresh is not an error: %v", m.LastError)
	}
}

func TestAddWithKeyboard(t *testing.T) {
	store := &memStore{}
	m := loadedModel(t, store)

	m, _ = press(t, m, "a")
	if m.Mode != ModeAdd {
		t.Fatalf("expected add mode, got %q", m.Mode)
	}
	m, cmd := press(t, m, "buy milk", "enter")
	if m.Mode != ModeBrowse {
		t.Fatalf("expected browse mode after submit, got %q", m.Mode)
	}
	m = settle(t, m, cmd)

	tasks := m.coll.Tasks()
	if len(tasks) != 1 || tasks[0].Title != "buy milk" {
		t.Fatalf("unexpected tasks %+v", tasks)
	}
	if m.SelectedID != tasks[0].ID {
		t.Fatalf("new task should be selected")
	}
	if m.Status.Text != `Added "buy milk"` {
		t.Fatalf("unexpected status %q", m.Status.Text)
	}
}

func TestAddBlankTitleIsReported(t *testing.T) {
	m := loadedModel(t, &memStore{})
	m, cmd := press(t, m, "a", "   ", "enter")
	m = settle(t, m, cmd)

	var verr *model.ValidationError
	if !errors.As(m.LastError, &verr) {
		t.Fatalf("expected validation error, got %v", m.LastError)
	}
	if !m.Status.IsError || !strings.HasPrefix(m.Status.Text, "Add failed") {
		t.Fatalf("unexpected status %+v", m.Status)
	}
	if len(m.coll.Tasks()) != 0 {
		t.Fatal("nothing should be added")
	}
}

func TestEscapeCancelsInput(t *testing.T) {
	m := loadedModel(t, &memStore{})
	m, _ = press(t, m, "a", "draft")
	m, cmd := press(t, m, "esc")
	if m.Mode != ModeBrowse || cmd != nil {
		t.Fatalf("escape should cancel without a command")
	}
	if m.input.Value() != "" {
		t.Fatalf("input should be cleared, got %q", m.input.Value())
	}
}

func TestCursorAndToggle(t *testing.T) {
	store := &memStore{}
	store.seed(sampleTasks()...)
	m := loadedModel(t, store)

	// Display order: overdue "pay rent", pending "call mom", completed "stretch".
	m, _ = press(t, m, "j")
	if m.SelectedID != 1 {
		t.Fatalf("expected call mom selected, got %d", m.SelectedID)
	}
	m, cmd := press(t, m, " ")
	m = settle(t, m, cmd)
	if m.Status.Text != `Marked "call mom" done` {
		t.Fatalf("unexpected status %q", m.Status.Text)
	}

	m, _ = press(t, m, "k", "k", "k")
	if m.SelectedID != 2 {
		t.Fatalf("cursor should stop at the first row, got %d", m.SelectedID)
	}
}

func TestRenameSelected(t *testing.T) {
	store := &memStore{}
	store.seed(sampleTasks()...)
	m := loadedModel(t, store)

	m, _ = press(t, m, "e")
	if m.Mode != ModeEdit || m.input.Value() != "pay rent" {
		t.Fatalf("edit should prefill the title, got %q", m.input.Value())
	}
	m, cmd := press(t, m, " today", "enter")
	m = settle(t, m, cmd)
	if m.Status.Text != `Saved "pay rent today"` {
		t.Fatalf("unexpected status %q", m.Status.Text)
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	store := &memStore{}
	store.seed(sampleTasks()...)
	m := loadedModel(t, store)

	m, _ = press(t, m, "d")
	if m.Mode != ModeConfirm {
		t.Fatalf("expected confirm mode, got %q", m.Mode)
	}
	if !strings.Contains(m.View(), `Delete "pay rent"?`) {
		t.Fatal("expected confirmation prompt in view")
	}
	m, cmd := press(t, m, "n")
	if cmd != nil || m.Mode != ModeBrowse {
		t.Fatal("any key other than y cancels")
	}

	m, cmd = press(t, m, "d", "y")
	m = settle(t, m, cmd)
	if len(m.coll.Tasks()) != 2 {
		t.Fatalf("expected one task removed, got %d", len(m.coll.Tasks()))
	}
	if m.Status.Text != "Deleted task #2" {
		t.Fatalf("unexpected status %q", m.Status.Text)
	}
}

func TestFilterAndSortPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	m := newTestModel(t, &memStore{}, func(d *Deps) { d.PrefsPath = path })

	m, _ = press(t, m, "f", "o", "o")
	if m.Filter != derive.FilterPending || m.Sort != derive.SortPriority {
		t.Fatalf("unexpected view state filter=%q sort=%q", m.Filter, m.Sort)
	}

	prefs, err := LoadPrefs(path)
	if err != nil {
		t.Fatalf("load prefs: %v", err)
	}
	if prefs.Filter != derive.FilterPending || prefs.Sort != derive.SortPriority {
		t.Fatalf("unexpected saved prefs %+v", prefs)
	}

	restored := newTestModel(t, &memStore{}, func(d *Deps) { d.PrefsPath = path })
	if restored.Filter != derive.FilterPending || restored.Sort != derive.SortPriority {
		t.Fatalf("prefs not restored: %q %q", restored.Filter, restored.Sort)
	}
}

func TestSearchNarrowsView(t *testing.T) {
	store := &memStore{}
	store.seed(sampleTasks()...)
	m := loadedModel(t, store)

	m, _ = press(t, m, "s", "RENT", "enter")
	if m.Search != "RENT" {
		t.Fatalf("unexpected search %q", m.Search)
	}
	out := m.View()
	if !strings.Contains(out, "pay rent") || strings.Contains(out, "call mom") {
		t.Fatalf("search should keep only matching rows:\n%s", out)
	}

	m, _ = press(t, m, "esc")
	if m.Search != "" || m.Status.Text != "Search cleared" {
		t.Fatalf("escape should clear search, got %q / %q", m.Search, m.Status.Text)
	}
}

func TestFilteredEmptyState(t *testing.T) {
	store := &memStore{}
	store.seed(sampleTasks()[2])
	m := loadedModel(t, store)
	m.Filter = derive.FilterCompleted
	if !strings.Contains(m.View(), "No tasks match the current view.") {
		t.Fatal("expected filtered empty text")
	}

	empty := loadedModel(t, &memStore{})
	if !strings.Contains(empty.View(), "No tasks yet.") {
		t.Fatal("expected empty text")
	}
}

func TestPaletteCommands(t *testing.T) {
	store := &memStore{}
	store.seed(sampleTasks()...)
	m := loadedModel(t, store)

	m, cmd := press(t, m, "/", "filter overdue", "enter")
	if cmd != nil {
		t.Fatal("filter is local and needs no command")
	}
	if m.Filter != derive.FilterOverdue || m.Status.Text != "Filter: Overdue" {
		t.Fatalf("unexpected palette result filter=%q status=%q", m.Filter, m.Status.Text)
	}

	m, cmd = press(t, m, "/", "add water plants p:4", "enter")
	m = settle(t, m, cmd)
	var added model.Task
	for _, task := range m.coll.Tasks() {
		if task.Title == "water plants" {
			added = task
		}
	}
	if added.Priority != model.PriorityHigher {
		t.Fatalf("palette add lost priority: %+v", added)
	}

	m, cmd = press(t, m, "/", "done 2", "enter")
	m = settle(t, m, cmd)
	if m.Status.Text != `Marked "pay rent" done` {
		t.Fatalf("unexpected status %q", m.Status.Text)
	}

	m, cmd = press(t, m, "/", "explode", "enter")
	if cmd != nil || !m.Status.IsError {
		t.Fatalf("unknown command should report an error, got %+v", m.Status)
	}
}

func TestDeadlineAnnouncesOverdueTask(t *testing.T) {
	store := &memStore{}
	due := testNow.Add(-time.Minute)
	store.seed(model.Task{ID: 9, Title: "submit form", Priority: 2, DueDate: &due, CreateTime: testNow.Add(-time.Hour)})
	notifier := &recordingNotifier{}
	m := newTestModel(t, store, func(d *Deps) {
		d.Notifier = notifier
		d.DesktopNotifications = true
	})
	m = step(t, m, m.refreshCmd()())

	m = step(t, m, deadlineMsg{Event: scheduler.DeadlineEvent{TaskID: 9, Title: "submit form", DueAt: due}})
	if m.Status.Text != `"submit form" is now overdue` {
		t.Fatalf("unexpected status %q", m.Status.Text)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected one desktop notification, got %d", len(notifier.sent))
	}

	stale := step(t, m, deadlineMsg{Event: scheduler.DeadlineEvent{TaskID: 9, DueAt: due.Add(time.Hour)}})
	if len(stale.Notifications) != len(m.Notifications) {
		t.Fatal("an event for a superseded due date should be ignored")
	}
}

func TestSchedulerArmedAfterRefresh(t *testing.T) {
	store := &memStore{}
	future := testNow.Add(time.Hour)
	store.seed(model.Task{ID: 4, Title: "later", Priority: 1, DueDate: &future, CreateTime: testNow})
	engine := scheduler.NewEngine(4)
	m := newTestModel(t, store, func(d *Deps) { d.Scheduler = engine })
	m = step(t, m, m.refreshCmd()())
	if engine.Pending() != 1 {
		t.Fatalf("expected one armed deadline, got %d", engine.Pending())
	}
	_ = m
}

func TestQuitKey(t *testing.T) {
	m := newTestModel(t, &memStore{}, nil)
	m, cmd := press(t, m, "q")
	if !m.Quitting || cmd == nil {
		t.Fatal("expected quit")
	}
	if m.View() != "" {
		t.Fatal("view should be empty after quitting")
	}
}

func TestStatusAndErrorMessages(t *testing.T) {
	m := newTestModel(t, &memStore{}, nil)
	m = step(t, m, SetStatusMsg{Text: "ready"})
	if m.Status.Text != "ready" || m.Status.IsError {
		t.Fatalf("unexpected status: %+v", m.Status)
	}
	m = step(t, m, AppErrorMsg{Err: errors.New("boom")})
	if m.LastError == nil || !m.Status.IsError || m.Status.Text != "boom" {
		t.Fatalf("unexpected error status: %+v", m.Status)
	}
	m = step(t, m, ClearStatusMsg{})
	if m.Status.Text != "" {
		t.Fatalf("expected cleared status, got: %+v", m.Status)
	}
}

func TestHelpToggle(t *testing.T) {
	m := newTestModel(t, &memStore{}, nil)
	m, _ = press(t, m, "?")
	if !m.HelpVisible || !strings.Contains(m.View(), "command palette") {
		t.Fatal("expected help panel")
	}
}

func TestLoadPrefsRejectsUnknownFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	if err := SavePrefs(path, Prefs{Filter: "someday"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := LoadPrefs(path); !errors.Is(err, derive.ErrUnknownFilter) {
		t.Fatalf("expected unknown filter error, got %v", err)
	}
	if p, err := LoadPrefs(filepath.Join(t.TempDir(), "missing.json")); err != nil || p != (Prefs{}) {
		t.Fatalf("missing prefs should be empty, got %+v %v", p, err)
	}
}
