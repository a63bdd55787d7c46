package update

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/sandeepkv93/restodo/internal/collection"
	"github.com/sandeepkv93/restodo/internal/model"
)

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.refreshCmd(), m.spinner.Tick}
	if m.sched != nil {
		cmds = append(cmds, waitForDeadlineCmd(m.sched.C()))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		m.helpModel.Width = typed.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(typed)
	case spinner.TickMsg:
		if m.refreshing > 0 || m.coll.Loading() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(typed)
			return m, cmd
		}
		return m, nil
	case refreshedMsg:
		if m.refreshing > 0 {
			m.refreshing--
		}
		if typed.Err != nil {
			if errors.Is(typed.Err, collection.ErrStaleRefresh) {
				if m.refreshing == 0 {
					m.setStatus(m.tr.N("status.refreshed", len(m.coll.Tasks()), nil), false)
				}
				return m, nil
			}
			m.fail(opRefresh, typed.Err)
			return m, nil
		}
		m.LastError = nil
		m.setStatus(m.tr.N("status.refreshed", len(m.coll.Tasks()), nil), false)
		m.syncDeadlines()
		return m, nil
	case mutatedMsg:
		return m.onMutated(typed), nil
	case deadlineMsg:
		m.onDeadline(typed.Event)
		if m.sched != nil {
			return m, waitForDeadlineCmd(m.sched.C())
		}
		return m, nil
	case SetStatusMsg:
		m.setStatus(typed.Text, typed.IsError)
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.setStatus(typed.Err.Error(), true)
			m.notify("Error", typed.Err.Error(), levelError)
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.Quitting = true
		return m, tea.Quit
	}
	switch m.Mode {
	case ModeAdd, ModeEdit, ModeSearch, ModePalette:
		return m.handleInputKey(msg)
	case ModeConfirm:
		return m.handleConfirmKey(msg)
	}

	switch msg.String() {
	case "q":
		m.Quitting = true
		return m, tea.Quit
	case "?":
		m.HelpVisible = !m.HelpVisible
	case "j", "down":
		m.moveCursor(1)
	case "k", "up":
		m.moveCursor(-1)
	case "g", "home":
		m.moveCursor(-len(m.coll.Tasks()))
	case "G", "end":
		m.moveCursor(len(m.coll.Tasks()))
	case "a":
		return m, m.openInput(ModeAdd, m.t("prompt.add", nil), "")
	case "e":
		if task, ok := m.selected(); ok {
			m.SelectedID = task.ID
			return m, m.openInput(ModeEdit, m.t("prompt.edit", nil), task.Title)
		}
	case " ", "x":
		if task, ok := m.selected(); ok {
			m.SelectedID = task.ID
			return m, m.toggleCmd(task.ID, !task.IsCompleted)
		}
	case "d", "delete":
		if task, ok := m.selected(); ok {
			m.pendingDelete = &task
			m.Mode = ModeConfirm
		}
	case "f":
		m.Filter = m.Filter.Next()
		m.persistPrefs()
		m.setStatus(m.t("status.filter", map[string]any{"Name": m.filterLabel(m.Filter)}), false)
	case "o":
		m.Sort = m.Sort.Next()
		m.persistPrefs()
		m.setStatus(m.t("status.sort", map[string]any{"Name": m.sortLabel(m.Sort)}), false)
	case "s":
		return m, m.openInput(ModeSearch, m.t("prompt.search", nil), m.Search)
	case "/", ":":
		return m, m.openInput(ModePalette, m.t("prompt.palette", nil), "")
	case "r":
		return m, m.startRefresh()
	case "esc":
		if m.Search != "" {
			m.Search = ""
			m.setStatus(m.t("status.search_cleared", nil), false)
		}
	}
	return m, nil
}

func (m *Model) openInput(mode Mode, placeholder, value string) tea.Cmd {
	m.Mode = mode
	m.input.Placeholder = placeholder
	m.input.Prompt = "> "
	if mode == ModePalette {
		m.input.Prompt = "/"
	}
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) closeInput() {
	m.Mode = ModeBrowse
	m.input.Blur()
	m.input.SetValue("")
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closeInput()
		return m, nil
	case tea.KeyEnter:
		mode := m.Mode
		value := m.input.Value()
		m.closeInput()
		switch mode {
		case ModeAdd:
			return m, m.addCmd(model.Draft{Title: value})
		case ModeEdit:
			if task, ok := m.selected(); ok {
				return m, m.editCmd(task.ID, model.Patch{Title: &value})
			}
		case ModeSearch:
			m.Search = strings.TrimSpace(value)
			if m.Search == "" {
				m.setStatus(m.t("status.search_cleared", nil), false)
			}
		case ModePalette:
			return m.executePaletteCommand(value)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	target := m.pendingDelete
	m.pendingDelete = nil
	m.Mode = ModeBrowse
	if target == nil {
		return m, nil
	}
	switch msg.String() {
	case "y", "Y":
		return m, m.removeCmd(target.ID)
	}
	return m, nil
}

func (m Model) onMutated(msg mutatedMsg) Model {
	if msg.Err != nil {
		m.fail(msg.Op, msg.Err)
		return m
	}
	m.LastError = nil
	switch msg.Op {
	case opAdd:
		m.SelectedID = msg.Task.ID
		m.setStatus(m.t("status.added", map[string]any{"Title": msg.Task.Title}), false)
	case opEdit:
		m.setStatus(m.t("status.updated", map[string]any{"Title": msg.Task.Title}), false)
	case opToggle:
		id := "status.reopened"
		if msg.Task.IsCompleted {
			id = "status.completed"
		}
		m.setStatus(m.t(id, map[string]any{"Title": msg.Task.Title}), false)
	case opRemove:
		if m.SelectedID == msg.ID {
			m.SelectedID = 0
		}
		m.setStatus(m.t("status.deleted", map[string]any{"ID": msg.ID}), false)
	}
	m.syncDeadlines()
	return m
}

// fail surfaces an error exactly as the collection returned it.
func (m *Model) fail(op string, err error) {
	text := m.t("status.failed", map[string]any{"Op": m.opLabel(op), "Message": err.Error()})
	m.LastError = err
	m.setStatus(text, true)
	m.notify(m.opLabel(op), text, levelError)
	m.logger.Warn("operation failed", zap.String("op", op), zap.Error(err))
}
