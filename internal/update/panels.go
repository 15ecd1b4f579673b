package update

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"

	"github.com/sandeepkv93/taskboard/internal/projection"
	"github.com/sandeepkv93/taskboard/internal/views"
)

func tableRow(r projection.Row) table.Row {
	title := r.Task.Title
	if r.Task.Completed {
		title = "✓ " + title
	}
	return table.Row{views.PriorityLabel(r), title, r.Task.Date, views.StateLabel(r)}
}

// syncDetail re-renders the detail pane when the selection or its content
// changed. Markdown rendering is too slow to repeat on every tick.
func (m *Model) syncDetail() {
	row, ok := m.selected()
	if !ok {
		m.detailKey = ""
		m.detail.SetContent(views.RenderTaskDetail(nil))
		return
	}
	key := fmt.Sprintf("%d|%s|%s|%s|%s|%t|%t", row.Task.ID, row.Task.Title, row.Task.Desc, row.Task.Date, row.Task.Priority, row.Task.Completed, row.Overdue)
	if key == m.detailKey {
		return
	}
	m.detailKey = key
	m.detail.SetContent(views.RenderTaskDetail(&views.DetailData{
		Title:    row.Task.Title,
		ID:       row.Task.ID,
		Date:     row.Task.Date,
		Priority: views.PriorityLabel(row),
		State:    views.StateLabel(row),
		Overdue:  row.Overdue,
		DescView: views.RenderMarkdown(row.Task.Desc, m.detail.Width-2),
	}))
	m.detail.GotoTop()
}

func (m Model) renderFooter() string {
	parts := []string{
		"[n] new", "[e] edit", "[space] toggle", "[x] delete",
		"[a/h/c] filter", "[/] search", "[:] command", "[?] help", "[q] quit",
	}
	return strings.Join(parts, "  ")
}
