package update

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) handlePaletteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closePalette()
		return m, nil
	case "enter":
		m = m.executePaletteCommand()
		return m, nil
	}
	var cmd tea.Cmd
	m.commandInput, cmd = m.commandInput.Update(msg)
	return m, cmd
}

func (m Model) executePaletteCommand() Model {
	// Untrimmed so a search keeps its spacing.
	raw := m.commandInput.Value()
	m.closePalette()
	if strings.TrimSpace(raw) == "" || m.deps.Controller == nil {
		return m
	}
	res, err := m.deps.Controller.Run(context.Background(), raw)
	m.report(res, err)
	m.refresh()
	return m
}

func (m *Model) closePalette() {
	m.commandInput.SetValue("")
	m.commandInput.Blur()
	if m.Mode == ModePalette {
		m.Mode = ModeList
	}
}
