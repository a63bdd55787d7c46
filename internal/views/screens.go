package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type TaskRowData struct {
	ID            int64
	Title         string
	Priority      int
	PriorityLabel string
	DueBadge      string
	OverdueBadge  string
	Completed     bool
	Selected      bool
}

type SectionData struct {
	Title string
	Rows  []TaskRowData
}

type ListPanelData struct {
	Counters string
	Toolbar  string
	Sections []SectionData
	// Empty replaces the sections when none has rows.
	Empty string
}

type DetailPanelData struct {
	Title     string
	Completed bool
	Meta      []string
	Body      string
}

type HelpPanelData struct {
	Mode     string
	Bindings []string
	HelpView string
}

var (
	sectionStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	countersStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	toolbarStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	selectedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	completedStyle = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("8"))
	dueStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	overdueStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("9"))
	promptStyle    = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
	detailTitle    = lipgloss.NewStyle().Bold(true)
)

// PriorityColor maps 1..5 from grey to red.
func PriorityColor(priority int) lipgloss.Color {
	switch priority {
	case 5:
		return lipgloss.Color("9")
	case 4:
		return lipgloss.Color("208")
	case 3:
		return lipgloss.Color("11")
	case 2:
		return lipgloss.Color("14")
	default:
		return lipgloss.Color("8")
	}
}

func RenderListPanel(data ListPanelData) string {
	var b strings.Builder
	b.WriteString(countersStyle.Render(data.Counters) + "\n")
	b.WriteString(toolbarStyle.Render(data.Toolbar) + "\n")

	rendered := 0
	for _, section := range data.Sections {
		if len(section.Rows) == 0 {
			continue
		}
		b.WriteString("\n" + sectionStyle.Render(fmt.Sprintf("%s (%d)", section.Title, len(section.Rows))) + "\n")
		for _, row := range section.Rows {
			b.WriteString(RenderTaskRow(row) + "\n")
		}
		rendered++
	}
	if rendered == 0 && data.Empty != "" {
		b.WriteString("\n" + data.Empty)
	}
	return strings.TrimRight(b.String(), "\n")
}

func RenderTaskRow(row TaskRowData) string {
	cursor := " "
	if row.Selected {
		cursor = ">"
	}
	check := "[ ]"
	if row.Completed {
		check = "[x]"
	}
	title := row.Title
	switch {
	case row.Completed:
		title = completedStyle.Render(title)
	case row.Selected:
		title = selectedStyle.Render(title)
	}
	priority := lipgloss.NewStyle().Foreground(PriorityColor(row.Priority)).Render(row.PriorityLabel)

	parts := []string{cursor, check, title, priority}
	if row.DueBadge != "" {
		parts = append(parts, dueStyle.Render(row.DueBadge))
	}
	if row.OverdueBadge != "" {
		parts = append(parts, overdueStyle.Render(row.OverdueBadge))
	}
	return strings.Join(parts, " ")
}

func RenderDetailPanel(data DetailPanelData) string {
	if strings.TrimSpace(data.Title) == "" {
		return ""
	}
	var b strings.Builder
	title := detailTitle.Render(data.Title)
	if data.Completed {
		title = completedStyle.Render(data.Title)
	}
	b.WriteString(title + "\n")
	for _, line := range data.Meta {
		b.WriteString(toolbarStyle.Render(line) + "\n")
	}
	b.WriteString("\n" + data.Body)
	return strings.TrimRight(b.String(), "\n")
}

func RenderPrompt(content string) string {
	return promptStyle.Render(content)
}

func RenderNotification(level, title, body, at string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	line := fmt.Sprintf("[%s] %s %s: %s", strings.ToUpper(level), at, title, body)
	if level == "error" {
		return errorStyle.Render(line)
	}
	return footerStyle.Render(line)
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help (%s):\n%s\n\n%s",
		data.Mode,
		strings.Join(data.Bindings, "\n"),
		data.HelpView,
	)
}
