package update

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"

	"github.com/sandeepkv93/restodo/internal/views"
)

type KeyBinding struct {
	Key    string
	Action string
}

type helpKeyMap struct {
	short []key.Binding
	full  [][]key.Binding
}

func (k helpKeyMap) ShortHelp() []key.Binding  { return k.short }
func (k helpKeyMap) FullHelp() [][]key.Binding { return k.full }

func (m Model) renderHelpIfVisible() string {
	if !m.HelpVisible {
		return ""
	}
	var plain []string
	for _, kb := range m.modeBindings() {
		plain = append(plain, fmt.Sprintf("- %s: %s", kb.Key, kb.Action))
	}
	return views.RenderHelpPanel(views.HelpPanelData{
		Mode:     string(m.Mode),
		Bindings: plain,
		HelpView: m.helpModel.FullHelpView([][]key.Binding{toKeyBindings(globalBindings())}),
	})
}

// footer is the one-line key summary under the panels.
func (m Model) footer() string {
	return m.helpModel.View(helpKeyMap{short: toKeyBindings(m.shortBindings())})
}

func globalBindings() []KeyBinding {
	return []KeyBinding{
		{Key: "j/k", Action: "move"},
		{Key: "a", Action: "add"},
		{Key: "e", Action: "rename"},
		{Key: "space", Action: "toggle done"},
		{Key: "d", Action: "delete"},
		{Key: "f", Action: "cycle filter"},
		{Key: "o", Action: "cycle sort"},
		{Key: "s", Action: "search"},
		{Key: "esc", Action: "clear search"},
		{Key: "/", Action: "command palette"},
		{Key: "r", Action: "refresh"},
		{Key: "?", Action: "toggle help"},
		{Key: "q", Action: "quit"},
	}
}

func (m Model) modeBindings() []KeyBinding {
	switch m.Mode {
	case ModeAdd, ModeEdit, ModeSearch, ModePalette:
		return []KeyBinding{
			{Key: "enter", Action: "submit"},
			{Key: "esc", Action: "cancel"},
		}
	case ModeConfirm:
		return []KeyBinding{
			{Key: "y", Action: "confirm delete"},
			{Key: "any", Action: "cancel"},
		}
	default:
		return globalBindings()
	}
}

func (m Model) shortBindings() []KeyBinding {
	if m.Mode != ModeBrowse {
		return m.modeBindings()
	}
	return []KeyBinding{
		{Key: "a", Action: "add"},
		{Key: "space", Action: "done"},
		{Key: "d", Action: "delete"},
		{Key: "f", Action: "filter"},
		{Key: "o", Action: "sort"},
		{Key: "/", Action: "palette"},
		{Key: "?", Action: "help"},
		{Key: "q", Action: "quit"},
	}
}

func toKeyBindings(in []KeyBinding) []key.Binding {
	out := make([]key.Binding, 0, len(in))
	for _, kb := range in {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	return out
}
