package update

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"

	"github.com/sandeepkv93/taskboard/internal/views"
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

func (m Model) renderHelpView() string {
	bindings := m.helpBindings()
	var plain []string
	for _, kb := range m.bindings() {
		plain = append(plain, fmt.Sprintf("- %s: %s", kb.Key, kb.Action))
	}
	return views.RenderHelpPanel(views.HelpPanelData{
		Bindings: plain,
		HelpView: m.helpModel.View(helpKeyMap{
			short: bindings[:4],
			full:  [][]key.Binding{bindings},
		}),
	})
}

func (m Model) bindings() []KeyBinding {
	return []KeyBinding{
		{Key: m.Keys.Down + "/" + m.Keys.Up, Action: "move selection"},
		{Key: m.Keys.New, Action: "new task"},
		{Key: m.Keys.Edit + "/enter", Action: "edit selected task"},
		{Key: "space", Action: "toggle completed"},
		{Key: m.Keys.Delete, Action: "delete selected task (asks first)"},
		{Key: m.Keys.All, Action: "show all tasks"},
		{Key: m.Keys.High, Action: "show high priority"},
		{Key: m.Keys.Completed, Action: "show completed"},
		{Key: m.Keys.Cycle, Action: "cycle filter"},
		{Key: m.Keys.Search, Action: "search title and description"},
		{Key: m.Keys.Palette, Action: "command palette (add, edit, toggle, delete, filter, search)"},
		{Key: m.Keys.Help, Action: "toggle help"},
		{Key: m.Keys.Quit, Action: "quit"},
	}
}

func (m Model) helpBindings() []key.Binding {
	list := m.bindings()
	out := make([]key.Binding, 0, len(list))
	for _, kb := range list {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	return out
}
