package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/taskboard/internal/model"
	"github.com/sandeepkv93/taskboard/internal/projection"
)

func RenderHeader(now time.Time) string {
	return fmt.Sprintf("taskboard  %s  %s", clockStyle.Render(now.Format("15:04:05")), now.Format("Monday, Jan 2"))
}

// RenderFilterBar highlights the active mode and shows the search box.
func RenderFilterBar(active projection.Mode, searchView string) string {
	parts := make([]string, 0, len(projection.Modes)+1)
	for _, mode := range projection.Modes {
		label := string(mode)
		if mode == active {
			parts = append(parts, activeStyle.Render(label))
		} else {
			parts = append(parts, mutedStyle.Render(label))
		}
	}
	return strings.Join(parts, " ") + "   " + searchView
}

func StateLabel(r projection.Row) string {
	switch {
	case r.Task.Completed:
		return "done"
	case r.Overdue:
		return "OVERDUE"
	case r.DueToday:
		return "today"
	default:
		return "open"
	}
}

func PriorityLabel(r projection.Row) string {
	if r.Task.Priority == model.PriorityHigh {
		return "HIGH"
	}
	return "normal"
}

// FormatRow is the one-line plain rendering used outside the table.
func FormatRow(r projection.Row) string {
	check := "[ ]"
	if r.Task.Completed {
		check = "[x]"
	}
	line := fmt.Sprintf("%s %-15d %-6s %s  %s", check, r.Task.ID, PriorityLabel(r), r.Task.Date, r.Task.Title)
	if r.Overdue {
		line += "  (overdue)"
	}
	return line
}

func RenderTaskList(tableView string, rows int) string {
	if rows == 0 {
		return "no tasks match\n\n" + footerStyle.Render("press n to add one")
	}
	return tableView
}

type DetailData struct {
	Title    string
	ID       int64
	Date     string
	Priority string
	State    string
	Overdue  bool
	DescView string
}

func RenderTaskDetail(d *DetailData) string {
	if d == nil {
		return "details:\n(no selection)"
	}
	var b strings.Builder
	b.WriteString(labelStyle.Render(d.Title) + "\n")
	b.WriteString(fmt.Sprintf("id: %d\n", d.ID))
	due := d.Date
	if d.Overdue {
		due = overdueStyle.Render(d.Date + " overdue")
	}
	b.WriteString(fmt.Sprintf("due: %s\n", due))
	b.WriteString(fmt.Sprintf("priority: %s\n", d.Priority))
	b.WriteString(fmt.Sprintf("state: %s\n", d.State))
	if strings.TrimSpace(d.DescView) != "" {
		b.WriteString("\n" + d.DescView)
	}
	return strings.TrimSpace(b.String())
}

func RenderProgress(barView string, stats projection.Stats) string {
	return fmt.Sprintf("progress %s %d%%  (%d of %d done)", barView, stats.Percent, stats.Done, stats.Total)
}

type FormField struct {
	Label string
	View  string
}

type FormData struct {
	Title  string
	Fields []FormField
	Error  string
}

func RenderForm(d FormData) string {
	var b strings.Builder
	b.WriteString(labelStyle.Render(d.Title) + "\n\n")
	for _, f := range d.Fields {
		b.WriteString(labelStyle.Render(f.Label) + "\n" + f.View + "\n\n")
	}
	if d.Error != "" {
		b.WriteString(errorStyle.Render(d.Error) + "\n")
	}
	b.WriteString(footerStyle.Render("[tab] next field  [ctrl+s] save  [esc] cancel"))
	return dialogStyle.Render(b.String())
}

func RenderConfirm(question string) string {
	return dialogStyle.Render(question + "\n\n" + footerStyle.Render("[y] yes  [n] no"))
}

// RenderAlert is the blocking reminder dialog. pending counts alerts queued
// behind this one.
func RenderAlert(message string, pending int) string {
	body := "⏰ " + message
	if pending > 0 {
		body += fmt.Sprintf("\n\n(%d more)", pending)
	}
	return alertStyle.Render(body + "\n\n" + footerStyle.Render("[enter] ok"))
}

func RenderCommandPalette(active bool, inputView string) string {
	if !active {
		return ""
	}
	return "command: " + inputView
}

type HelpPanelData struct {
	Bindings []string
	HelpView string
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help:\n%s\n\n%s", strings.Join(data.Bindings, "\n"), data.HelpView)
}
