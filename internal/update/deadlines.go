package update

import (
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/sandeepkv93/restodo/internal/scheduler"
)

func waitForDeadlineCmd(ch <-chan scheduler.DeadlineEvent) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return deadlineMsg{Event: ev}
	}
}

// syncDeadlines re-arms the scheduler from the canonical list.
func (m *Model) syncDeadlines() {
	if m.sched == nil {
		return
	}
	armed, err := m.sched.Sync(m.coll.Tasks(), m.now())
	if err != nil {
		m.logger.Warn("deadline sync failed", zap.Error(err))
		return
	}
	m.logger.Debug("deadlines armed", zap.Int("count", armed))
}

// onDeadline announces a task that just became overdue. The next render
// moves it between sections since derivation uses the current time.
func (m *Model) onDeadline(ev scheduler.DeadlineEvent) {
	for _, task := range m.coll.Tasks() {
		if task.ID != ev.TaskID {
			continue
		}
		if task.IsCompleted || task.DueDate == nil || !task.DueDate.Equal(ev.DueAt) {
			return
		}
		text := m.t("status.overdue", map[string]any{"Title": task.Title})
		m.setStatus(text, false)
		m.notify(m.t("badge.overdue", nil), text, levelWarn)
		return
	}
}
