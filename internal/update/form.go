package update

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/taskboard/internal/commands"
	"github.com/sandeepkv93/taskboard/internal/model"
	"github.com/sandeepkv93/taskboard/internal/views"
)

const (
	fieldTitle = iota
	fieldDate
	fieldPriority
	fieldDesc
	fieldCount
)

// openForm shows the create form, or the edit form when task is set.
func (m *Model) openForm(task *model.Task) {
	m.Mode = ModeForm
	m.form = formState{}
	if task == nil {
		m.titleInput.SetValue("")
		m.dateInput.SetValue(model.LocalDate(m.localNow()))
		m.prioInput.SetValue(string(model.PriorityNormal))
		m.descArea.SetValue("")
	} else {
		m.form.editingID = task.ID
		m.titleInput.SetValue(task.Title)
		m.dateInput.SetValue(task.Date)
		m.prioInput.SetValue(string(task.Priority))
		m.descArea.SetValue(task.Desc)
	}
	m.focusField(fieldTitle)
}

func (m *Model) focusField(i int) {
	m.form.focus = (i + fieldCount) % fieldCount
	m.titleInput.Blur()
	m.dateInput.Blur()
	m.prioInput.Blur()
	m.descArea.Blur()
	switch m.form.focus {
	case fieldTitle:
		m.titleInput.Focus()
	case fieldDate:
		m.dateInput.Focus()
	case fieldPriority:
		m.prioInput.Focus()
	case fieldDesc:
		m.descArea.Focus()
	}
}

func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.Mode = ModeList
		m.form = formState{}
		m.Status = StatusBar{Text: "edit cancelled"}
		return m, nil
	case "tab":
		m.focusField(m.form.focus + 1)
		return m, nil
	case "shift+tab":
		m.focusField(m.form.focus - 1)
		return m, nil
	case "ctrl+s":
		m.submitForm()
		return m, nil
	case "enter":
		if m.form.focus != fieldDesc {
			if m.form.focus == fieldPriority {
				m.submitForm()
			} else {
				m.focusField(m.form.focus + 1)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.form.focus {
	case fieldTitle:
		m.titleInput, cmd = m.titleInput.Update(msg)
	case fieldDate:
		m.dateInput, cmd = m.dateInput.Update(msg)
	case fieldPriority:
		m.prioInput, cmd = m.prioInput.Update(msg)
	case fieldDesc:
		m.descArea, cmd = m.descArea.Update(msg)
	}
	return m, cmd
}

// submitForm turns the form into an add or edit intent. The form stays open
// with the error when the controller rejects it.
func (m *Model) submitForm() {
	if m.deps.Controller == nil {
		return
	}
	title := strings.TrimSpace(m.titleInput.Value())
	due := strings.TrimSpace(m.dateInput.Value())
	prio := strings.TrimSpace(m.prioInput.Value())
	desc := m.descArea.Value()

	var cmd commands.Command
	if m.form.editingID == 0 {
		cmd = commands.Command{Type: commands.TypeAdd, Add: &commands.AddArgs{Title: title, Desc: desc, Due: due, Priority: prio}}
	} else {
		cmd = commands.Command{Type: commands.TypeEdit, Edit: &commands.EditArgs{
			ID: m.form.editingID, Title: &title, Desc: &desc, Due: &due, Priority: &prio,
		}}
	}

	res, err := m.deps.Controller.Dispatch(context.Background(), cmd)
	var ce *commands.CommandError
	if errors.As(err, &ce) {
		m.form.err = ce.Message
		return
	}
	m.Mode = ModeList
	m.form = formState{}
	m.report(res, err)
	m.refresh()
}

func (m Model) renderForm() string {
	heading := "New task"
	if m.form.editingID != 0 {
		heading = fmt.Sprintf("Edit task %d", m.form.editingID)
	}
	return views.RenderForm(views.FormData{
		Title: heading,
		Fields: []views.FormField{
			{Label: "Title", View: m.titleInput.View()},
			{Label: "Due date", View: m.dateInput.View()},
			{Label: "Priority", View: m.prioInput.View()},
			{Label: "Description", View: m.descArea.View()},
		},
		Error: m.form.err,
	})
}
