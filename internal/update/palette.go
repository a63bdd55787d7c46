package update

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/restodo/internal/commands"
)

// executePaletteCommand runs one palette line. Commands that hit the
// service return a tea.Cmd; their status arrives with the result message.
func (m Model) executePaletteCommand(raw string) (Model, tea.Cmd) {
	cmd, err := commands.Parse(strings.TrimSpace(raw))
	if err != nil {
		m.setStatus(err.Error(), true)
		return m, nil
	}

	var next tea.Cmd
	res, err := commands.Execute(cmd, commands.Handlers{
		Add: func(a commands.AddArgs) (commands.Result, error) {
			next = m.addCmd(a.Draft)
			return commands.Result{}, nil
		},
		Edit: func(e commands.EditArgs) (commands.Result, error) {
			next = m.editCmd(e.ID, e.Patch)
			return commands.Result{}, nil
		},
		Done: func(a commands.IDArgs) (commands.Result, error) {
			next = m.toggleCmd(a.ID, true)
			return commands.Result{}, nil
		},
		Undone: func(a commands.IDArgs) (commands.Result, error) {
			next = m.toggleCmd(a.ID, false)
			return commands.Result{}, nil
		},
		Remove: func(a commands.IDArgs) (commands.Result, error) {
			next = m.removeCmd(a.ID)
			return commands.Result{}, nil
		},
		Filter: func(a commands.FilterArgs) (commands.Result, error) {
			m.Filter = a.Filter
			m.persistPrefs()
			return commands.Result{Message: m.t("status.filter", map[string]any{"Name": m.filterLabel(a.Filter)})}, nil
		},
		Sort: func(a commands.SortArgs) (commands.Result, error) {
			m.Sort = a.Sort
			m.persistPrefs()
			return commands.Result{Message: m.t("status.sort", map[string]any{"Name": m.sortLabel(a.Sort)})}, nil
		},
		Search: func(a commands.SearchArgs) (commands.Result, error) {
			m.Search = a.Query
			if a.Query == "" {
				return commands.Result{Message: m.t("status.search_cleared", nil)}, nil
			}
			return commands.Result{}, nil
		},
		Refresh: func() (commands.Result, error) {
			next = m.startRefresh()
			return commands.Result{}, nil
		},
	})
	if err != nil {
		m.setStatus(err.Error(), true)
		m.notify("Command Failed", err.Error(), levelError)
		return m, nil
	}
	if res.Message != "" {
		m.setStatus(res.Message, false)
	}
	return m, next
}
