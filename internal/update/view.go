package update

import (
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/restodo/internal/derive"
	"github.com/sandeepkv93/restodo/internal/model"
	"github.com/sandeepkv93/restodo/internal/views"
)

func (m Model) View() string {
	if m.Quitting {
		return ""
	}
	now := m.now()
	tasks := m.coll.Tasks()
	groups := m.groups(tasks, now)
	counts := derive.Count(tasks, now)

	rows := make([]model.Task, 0, groups.Len())
	rows = append(rows, groups.Overdue...)
	rows = append(rows, groups.Pending...)
	rows = append(rows, groups.Completed...)
	selectedID := int64(0)
	if i := m.selectedIndex(rows); i >= 0 {
		selectedID = rows[i].ID
	}

	header := m.t("app.title", nil)
	if m.refreshing > 0 || m.coll.Loading() {
		header += " " + m.spinner.View()
	}

	empty := ""
	if groups.Len() == 0 {
		empty = m.t("empty.none", nil)
		if len(tasks) > 0 {
			empty = m.t("empty.filtered", nil)
		}
	}

	left := views.RenderListPanel(views.ListPanelData{
		Counters: m.t("counter.line", map[string]any{
			"Pending":   counts.Pending,
			"Completed": counts.Completed,
			"Overdue":   counts.Overdue,
		}),
		Toolbar: m.toolbar(),
		Sections: []views.SectionData{
			m.section("section.overdue", groups.Overdue, selectedID, now),
			m.section("section.pending", groups.Pending, selectedID, now),
			m.section("section.completed", groups.Completed, selectedID, now),
		},
		Empty: empty,
	})

	right := m.renderDetail(rows, selectedID, now)
	if prompt := m.renderPrompt(); prompt != "" {
		right = prompt + "\n\n" + right
	}
	if h := m.renderHelpIfVisible(); h != "" {
		right += "\n\n" + h
	}

	notification := ""
	if n, ok := m.lastNotification(); ok {
		notification = views.RenderNotification(n.Level, n.Title, n.Body, n.At.Local().Format("15:04:05"))
	}

	return views.RenderApp(views.AppData{
		Header:       header,
		LeftPane:     left,
		RightPane:    right,
		StatusLine:   m.Status.Text,
		StatusError:  m.Status.IsError,
		Notification: notification,
		Footer:       m.footer(),
		Width:        m.width,
	})
}

func (m Model) toolbar() string {
	parts := []string{
		fmt.Sprintf("%s: %s", m.t("label.filter", nil), m.filterLabel(m.Filter)),
		fmt.Sprintf("%s: %s", m.t("label.sort", nil), m.sortLabel(m.Sort)),
	}
	if m.Search != "" {
		parts = append(parts, fmt.Sprintf("%s: %q", m.t("label.search", nil), m.Search))
	}
	return strings.Join(parts, "  |  ")
}

func (m Model) section(titleID string, tasks []model.Task, selectedID int64, now time.Time) views.SectionData {
	out := views.SectionData{Title: m.t(titleID, nil), Rows: make([]views.TaskRowData, 0, len(tasks))}
	for _, task := range tasks {
		out.Rows = append(out.Rows, m.rowData(task, selectedID, now))
	}
	return out
}

func (m Model) rowData(task model.Task, selectedID int64, now time.Time) views.TaskRowData {
	row := views.TaskRowData{
		ID:            task.ID,
		Title:         task.Title,
		Priority:      int(task.Priority),
		PriorityLabel: m.t(task.Priority.Key(), nil),
		Completed:     task.IsCompleted,
		Selected:      task.ID == selectedID,
	}
	if task.DueDate != nil {
		row.DueBadge = m.t("badge.due", map[string]any{"Date": task.DueDate.Local().Format("01-02")})
	}
	if task.Overdue(now) {
		row.OverdueBadge = m.t("badge.overdue", nil)
	}
	return row
}

func (m Model) renderDetail(rows []model.Task, selectedID int64, now time.Time) string {
	var task model.Task
	found := false
	for _, t := range rows {
		if t.ID == selectedID {
			task, found = t, true
			break
		}
	}
	if !found {
		return views.RenderDetailPanel(views.DetailPanelData{})
	}

	meta := []string{
		fmt.Sprintf("#%d  %s", task.ID, m.t(task.Priority.Key(), nil)),
	}
	if task.DueDate != nil {
		due := task.DueDate.Local().Format("2006-01-02 15:04")
		if task.Overdue(now) {
			due += "  " + m.t("badge.overdue", nil)
		}
		meta = append(meta, due)
	}
	meta = append(meta, task.CreateTime.Local().Format("2006-01-02 15:04"))

	body := m.t("detail.none", nil)
	if desc := strings.TrimSpace(task.DescriptionText()); desc != "" {
		body = views.RenderMarkdown(desc)
	}
	vp := m.detail
	if m.width > 0 {
		vp.Width = max(m.width/2-6, 20)
	}
	if m.height > 0 {
		vp.Height = max(m.height-16, 4)
	}
	vp.SetContent(body)

	return views.RenderDetailPanel(views.DetailPanelData{
		Title:     task.Title,
		Completed: task.IsCompleted,
		Meta:      meta,
		Body:      vp.View(),
	})
}

func (m Model) renderPrompt() string {
	switch m.Mode {
	case ModeAdd, ModeEdit, ModeSearch, ModePalette:
		return views.RenderPrompt(m.input.View())
	case ModeConfirm:
		if m.pendingDelete != nil {
			return views.RenderPrompt(m.t("confirm.delete", map[string]any{"Title": m.pendingDelete.Title}))
		}
	}
	return ""
}
