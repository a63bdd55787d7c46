package update

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"go.uber.org/zap"
	"golang.org/x/text/collate"

	"github.com/sandeepkv93/restodo/internal/collection"
	"github.com/sandeepkv93/restodo/internal/derive"
	"github.com/sandeepkv93/restodo/internal/model"
	"github.com/sandeepkv93/restodo/internal/scheduler"
	"github.com/sandeepkv93/restodo/internal/translator"
)

type Mode string

const (
	ModeBrowse  Mode = "browse"
	ModeAdd     Mode = "add"
	ModeEdit    Mode = "edit"
	ModeSearch  Mode = "search"
	ModePalette Mode = "palette"
	ModeConfirm Mode = "confirm"
)

// Operation names double as the suffix of the "op.*" message ids.
const (
	opRefresh = "refresh"
	opAdd     = "add"
	opEdit    = "edit"
	opToggle  = "toggle"
	opRemove  = "remove"
)

const maxNotifications = 40

type StatusBar struct {
	Text    string
	IsError bool
}

// Deps are the collaborators the TUI drives. Collection and Translator are
// required.
type Deps struct {
	Collection           *collection.Collection
	Translator           *translator.Translator
	Scheduler            *scheduler.Engine
	Notifier             DesktopNotifier
	Logger               *zap.Logger
	PrefsPath            string
	DesktopNotifications bool
	Now                  func() time.Time
}

type Model struct {
	Mode          Mode
	Filter        derive.Filter
	Sort          derive.SortKey
	Search        string
	SelectedID    int64
	Status        StatusBar
	Notifications []Notification
	HelpVisible   bool
	Quitting      bool
	LastError     error

	coll           *collection.Collection
	tr             *translator.Translator
	sched          *scheduler.Engine
	notifier       DesktopNotifier
	desktopEnabled bool
	logger         *zap.Logger
	prefsPath      string
	now            func() time.Time
	collator       *collate.Collator

	cursor        int
	pendingDelete *model.Task
	refreshing    int
	width         int
	height        int

	input     textinput.Model
	spinner   spinner.Model
	helpModel help.Model
	detail    viewport.Model
}

type refreshedMsg struct {
	Err error
}

type mutatedMsg struct {
	Op   string
	Task model.Task
	ID   int64
	Err  error
}

type deadlineMsg struct {
	Event scheduler.DeadlineEvent
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

func NewModel(deps Deps) Model {
	m := Model{
		Mode:           ModeBrowse,
		Filter:         derive.FilterAll,
		Sort:           derive.SortCreateTime,
		coll:           deps.Collection,
		tr:             deps.Translator,
		sched:          deps.Scheduler,
		notifier:       deps.Notifier,
		desktopEnabled: deps.DesktopNotifications,
		logger:         deps.Logger,
		prefsPath:      strings.TrimSpace(deps.PrefsPath),
		now:            deps.Now,
	}
	if m.notifier == nil {
		m.notifier = NoopDesktopNotifier{}
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.now == nil {
		m.now = time.Now
	}
	m.collator = derive.NewCollator(m.tr.Tag())

	if m.prefsPath != "" {
		prefs, err := LoadPrefs(m.prefsPath)
		if err != nil {
			m.logger.Warn("ignoring unreadable preferences", zap.String("path", m.prefsPath), zap.Error(err))
		} else {
			if prefs.Filter != "" {
				m.Filter = prefs.Filter
			}
			if prefs.Sort != "" {
				m.Sort = prefs.Sort
			}
		}
	}

	m.initBubbleComponents()
	return m
}

func (m *Model) initBubbleComponents() {
	m.input = textinput.New()
	m.input.CharLimit = 256
	m.input.Width = 48

	m.spinner = spinner.New()
	m.spinner.Spinner = spinner.Dot

	m.helpModel = help.New()
	m.detail = viewport.New(54, 12)
}

func (m Model) t(id string, data map[string]any) string {
	return m.tr.T(id, data)
}

func (m Model) opLabel(op string) string {
	return m.t("op."+op, nil)
}

func (m Model) filterLabel(f derive.Filter) string {
	return m.t("filter."+string(f), nil)
}

func (m Model) sortLabel(s derive.SortKey) string {
	return m.t("sort."+string(s), nil)
}

func (m Model) options(now time.Time) derive.Options {
	return derive.Options{
		Filter:   m.Filter,
		Sort:     m.Sort,
		Search:   m.Search,
		Now:      now,
		Collator: m.collator,
		Locale:   m.tr.Tag(),
	}
}

// groups derives the visible sections from the collection's current tasks.
func (m Model) groups(tasks []model.Task, now time.Time) derive.Groups {
	return derive.Partition(derive.Derive(tasks, m.options(now)), now)
}

// rows flattens the sections in display order; cursor movement walks it.
func (m Model) rows() []model.Task {
	g := m.groups(m.coll.Tasks(), m.now())
	out := make([]model.Task, 0, g.Len())
	out = append(out, g.Overdue...)
	out = append(out, g.Pending...)
	out = append(out, g.Completed...)
	return out
}

func (m Model) selectedIndex(rows []model.Task) int {
	if len(rows) == 0 {
		return -1
	}
	if m.SelectedID != 0 {
		for i, t := range rows {
			if t.ID == m.SelectedID {
				return i
			}
		}
	}
	return clamp(m.cursor, 0, len(rows)-1)
}

func (m Model) selected() (model.Task, bool) {
	rows := m.rows()
	i := m.selectedIndex(rows)
	if i < 0 {
		return model.Task{}, false
	}
	return rows[i], true
}

func (m *Model) moveCursor(delta int) {
	rows := m.rows()
	i := m.selectedIndex(rows)
	if i < 0 {
		return
	}
	i = clamp(i+delta, 0, len(rows)-1)
	m.cursor = i
	m.SelectedID = rows[i].ID
}

func (m *Model) setStatus(text string, isErr bool) {
	m.Status = StatusBar{Text: text, IsError: isErr}
}
