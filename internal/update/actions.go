package update

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/restodo/internal/model"
)

// Each command performs one collection call off the Update goroutine and
// reports the outcome as a message. Timeouts come from the HTTP client.

func (m Model) refreshCmd() tea.Cmd {
	coll := m.coll
	return func() tea.Msg {
		return refreshedMsg{Err: coll.Refresh(context.Background())}
	}
}

func (m Model) addCmd(draft model.Draft) tea.Cmd {
	coll := m.coll
	return func() tea.Msg {
		task, err := coll.Add(context.Background(), draft)
		return mutatedMsg{Op: opAdd, Task: task, ID: task.ID, Err: err}
	}
}

func (m Model) editCmd(id int64, patch model.Patch) tea.Cmd {
	coll := m.coll
	return func() tea.Msg {
		task, err := coll.Edit(context.Background(), id, patch)
		return mutatedMsg{Op: opEdit, Task: task, ID: id, Err: err}
	}
}

func (m Model) toggleCmd(id int64, completed bool) tea.Cmd {
	coll := m.coll
	return func() tea.Msg {
		task, err := coll.Toggle(context.Background(), id, completed)
		return mutatedMsg{Op: opToggle, Task: task, ID: id, Err: err}
	}
}

func (m Model) removeCmd(id int64) tea.Cmd {
	coll := m.coll
	return func() tea.Msg {
		return mutatedMsg{Op: opRemove, ID: id, Err: coll.Remove(context.Background(), id)}
	}
}

// startRefresh issues a refresh and keeps the spinner running until every
// outstanding refresh has reported back.
func (m *Model) startRefresh() tea.Cmd {
	m.refreshing++
	m.setStatus(m.t("status.loading", nil), false)
	if m.refreshing == 1 {
		return tea.Batch(m.refreshCmd(), m.spinner.Tick)
	}
	return m.refreshCmd()
}
