package update

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/taskboard/internal/commands"
	"github.com/sandeepkv93/taskboard/internal/controller"
	"github.com/sandeepkv93/taskboard/internal/projection"
	"github.com/sandeepkv93/taskboard/internal/views"
)

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.changes != nil {
		cmds = append(cmds, waitForChangeCmd(m.changes))
	}
	if m.deps.Engine != nil {
		cmds = append(cmds, waitForTickCmd(m.deps.Engine.C()))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if typed.String() == "ctrl+c" {
			m.Quitting = true
			return m, tea.Quit
		}
		// The reminder alert blocks every other interaction until dismissed.
		if len(m.Alerts) > 0 {
			return m.handleAlertKey(typed), nil
		}
		switch m.Mode {
		case ModeConfirm:
			return m.handleConfirmKey(typed), nil
		case ModeForm:
			return m.handleFormKey(typed)
		case ModePalette:
			return m.handlePaletteKey(typed)
		case ModeSearch:
			return m.handleSearchKey(typed)
		}
		return m.handleListKey(typed)
	case tea.WindowSizeMsg:
		m.resize(typed.Width, typed.Height)
		return m, nil
	case StoreChangedMsg:
		m.refresh()
		return m, waitForChangeCmd(m.changes)
	case TickMsg:
		return m.onTick(typed)
	case RemindersFiredMsg:
		m.onRemindersFired(typed.Notifications)
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	}
	return m, nil
}

func (m Model) onTick(msg TickMsg) (tea.Model, tea.Cmd) {
	var next tea.Cmd
	if m.deps.Engine != nil {
		next = waitForTickCmd(m.deps.Engine.C())
	}
	switch msg.Tick.Job {
	case JobClock:
		m.Now = msg.Tick.At.In(m.deps.Location)
		// Overdue flags move at midnight.
		m.refresh()
		return m, next
	case JobReminders:
		return m, tea.Batch(next, m.scanCmd())
	}
	return m, next
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case m.Keys.Quit:
		m.Quitting = true
		return m, tea.Quit
	case m.Keys.Help:
		m.HelpVisible = !m.HelpVisible
		return m, nil
	case m.Keys.New:
		m.openForm(nil)
		return m, nil
	case m.Keys.Edit, "enter":
		if row, ok := m.selected(); ok {
			task := row.Task
			m.openForm(&task)
		}
		return m, nil
	case m.Keys.Toggle:
		if row, ok := m.selected(); ok {
			m.dispatch(commands.Command{Type: commands.TypeToggle, Toggle: &commands.ToggleArgs{ID: row.Task.ID}})
		}
		return m, nil
	case m.Keys.Delete, "delete":
		if row, ok := m.selected(); ok {
			m.dispatch(commands.Command{Type: commands.TypeDelete, Delete: &commands.DeleteArgs{ID: row.Task.ID}})
		}
		return m, nil
	case m.Keys.All:
		m.setFilter(projection.ModeAll)
		return m, nil
	case m.Keys.High:
		m.setFilter(projection.ModeHigh)
		return m, nil
	case m.Keys.Completed:
		m.setFilter(projection.ModeCompleted)
		return m, nil
	case m.Keys.Cycle:
		m.setFilter(m.query().Mode.Next())
		return m, nil
	case m.Keys.Search:
		m.Mode = ModeSearch
		m.searchInput.Focus()
		return m, nil
	case m.Keys.Palette:
		m.Mode = ModePalette
		m.commandInput.SetValue("")
		m.commandInput.Focus()
		return m, nil
	case "esc":
		m.Status = StatusBar{}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	m.syncDetail()
	return m, cmd
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searchInput.SetValue("")
		m.searchInput.Blur()
		m.Mode = ModeList
		m.dispatchQuiet(commands.Command{Type: commands.TypeSearch, Search: &commands.SearchArgs{Query: ""}})
		return m, nil
	case "enter", "tab":
		m.searchInput.Blur()
		m.Mode = ModeList
		return m, nil
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	// Filtering follows every keystroke.
	m.dispatchQuiet(commands.Command{Type: commands.TypeSearch, Search: &commands.SearchArgs{Query: m.searchInput.Value()}})
	return m, cmd
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "y", "Y":
		if m.PendingDelete != nil {
			m.dispatch(commands.Command{Type: commands.TypeDelete, Delete: &commands.DeleteArgs{ID: m.PendingDelete.ID, Confirmed: true}})
		}
		m.PendingDelete = nil
		m.Mode = ModeList
	case "n", "N", "esc":
		m.PendingDelete = nil
		m.Mode = ModeList
		m.Status = StatusBar{Text: "delete cancelled"}
	}
	return m
}

func (m *Model) setFilter(mode projection.Mode) {
	m.dispatch(commands.Command{Type: commands.TypeFilter, Filter: &commands.FilterArgs{Mode: string(mode)}})
}

func (m Model) query() projection.Query {
	if m.deps.Controller == nil {
		return projection.Query{Mode: projection.ModeAll}
	}
	return m.deps.Controller.Query()
}

// dispatch sends one intent through the controller and reports the outcome on
// the status bar. A delete that needs confirmation opens the dialog instead.
func (m *Model) dispatch(cmd commands.Command) {
	if m.deps.Controller == nil {
		return
	}
	res, err := m.deps.Controller.Dispatch(context.Background(), cmd)
	m.report(res, err)
	m.refresh()
}

func (m *Model) dispatchQuiet(cmd commands.Command) {
	if m.deps.Controller == nil {
		return
	}
	if _, err := m.deps.Controller.Dispatch(context.Background(), cmd); err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
	}
	m.refresh()
}

func (m *Model) report(res commands.Result, err error) {
	if controller.IsConfirmationRequired(err) && m.deps.Store != nil {
		if task, ok := m.deps.Store.Get(res.TaskID); ok {
			m.PendingDelete = &task
			m.Mode = ModeConfirm
			return
		}
	}
	if err != nil {
		m.deps.Logger.Debug("intent rejected", "task_id", res.TaskID, "err", err)
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return
	}
	m.Status = StatusBar{Text: res.Message}
}

func (m *Model) resize(width, height int) {
	if height > 20 {
		m.table.SetHeight(height - 14)
		m.detail.Height = height - 14
	}
	if width > 60 {
		m.progressBar.Width = min(60, width-30)
	}
}

func (m Model) View() string {
	if m.Quitting {
		return ""
	}
	q := m.query()

	searchView := m.searchInput.View()
	if m.Mode != ModeSearch {
		if q.Search == "" {
			searchView = "[/] search"
		} else {
			searchView = fmt.Sprintf("search: %q", q.Search)
		}
	}

	overlay := ""
	switch {
	case len(m.Alerts) > 0:
		overlay = views.RenderAlert(m.Alerts[0].Message(), len(m.Alerts)-1)
	case m.Mode == ModeConfirm && m.PendingDelete != nil:
		overlay = views.RenderConfirm(fmt.Sprintf("Delete %q?", m.PendingDelete.Title))
	case m.Mode == ModeForm:
		overlay = m.renderForm()
	}

	footer := m.renderFooter()
	if m.Mode == ModePalette {
		footer = views.RenderCommandPalette(true, m.commandInput.View())
	}

	right := m.detail.View()
	if m.HelpVisible {
		right = m.renderHelpView()
	}

	return views.RenderApp(views.AppData{
		Header:     views.RenderHeader(m.Now),
		FilterBar:  views.RenderFilterBar(q.Mode, searchView),
		LeftPane:   views.RenderTaskList(m.table.View(), len(m.Rows)),
		RightPane:  right,
		Progress:   views.RenderProgress(m.progressBar.ViewAs(m.Stats.Ratio()), m.Stats),
		StatusLine: m.Status.Text,
		IsError:    m.Status.IsError,
		Footer:     footer,
		Overlay:    overlay,
	})
}
