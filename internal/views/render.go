package views

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

type AppData struct {
	Header     string
	FilterBar  string
	LeftPane   string
	RightPane  string
	Progress   string
	StatusLine string
	IsError    bool
	Footer     string
	// Overlay replaces the two panes while a dialog is up.
	Overlay string
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	clockStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	dialogStyle  = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("11")).Padding(1, 3)
	alertStyle   = lipgloss.NewStyle().Border(lipgloss.ThickBorder()).BorderForeground(lipgloss.Color("9")).Padding(1, 3).Bold(true)
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	activeStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("12")).Padding(0, 1)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Padding(0, 1)
	overdueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	labelStyle   = lipgloss.NewStyle().Bold(true)
)

func RenderApp(data AppData) string {
	lines := []string{headerStyle.Render(data.Header)}
	if data.FilterBar != "" {
		lines = append(lines, data.FilterBar)
	}
	if data.Overlay != "" {
		lines = append(lines, data.Overlay)
	} else {
		left := panelStyle.Width(62).Render(data.LeftPane)
		right := panelStyle.Width(44).Render(data.RightPane)
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	}
	if data.Progress != "" {
		lines = append(lines, data.Progress)
	}
	if data.StatusLine != "" {
		if data.IsError {
			lines = append(lines, errorStyle.Render("error: "+data.StatusLine))
		} else {
			lines = append(lines, statusStyle.Render(data.StatusLine))
		}
	}
	if data.Footer != "" {
		lines = append(lines, footerStyle.Render(data.Footer))
	}
	return strings.Join(lines, "\n")
}

// RenderMarkdown falls back to the raw text when glamour cannot render it.
func RenderMarkdown(md string, width int) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	if width <= 0 {
		width = 40
	}
	r, err := glamour.NewTermRenderer(glamour.WithStandardStyle("dark"), glamour.WithWordWrap(width))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}
