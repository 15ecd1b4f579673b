package update

import (
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/taskboard/internal/controller"
	"github.com/sandeepkv93/taskboard/internal/logging"
	"github.com/sandeepkv93/taskboard/internal/model"
	"github.com/sandeepkv93/taskboard/internal/projection"
	"github.com/sandeepkv93/taskboard/internal/reminder"
	"github.com/sandeepkv93/taskboard/internal/scheduler"
	"github.com/sandeepkv93/taskboard/internal/store"
)

// Job names registered on the scheduler engine.
const (
	JobClock     = "clock"
	JobReminders = "reminders"
)

type Mode string

const (
	ModeList    Mode = "list"
	ModeSearch  Mode = "search"
	ModeForm    Mode = "form"
	ModePalette Mode = "palette"
	ModeConfirm Mode = "confirm"
)

type StatusBar struct {
	Text    string
	IsError bool
}

type KeyMap struct {
	Up        string
	Down      string
	New       string
	Edit      string
	Toggle    string
	Delete    string
	All       string
	High      string
	Completed string
	Cycle     string
	Search    string
	Palette   string
	Help      string
	Quit      string
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:        "k",
		Down:      "j",
		New:       "n",
		Edit:      "e",
		Toggle:    " ",
		Delete:    "x",
		All:       "a",
		High:      "h",
		Completed: "c",
		Cycle:     "tab",
		Search:    "/",
		Palette:   ":",
		Help:      "?",
		Quit:      "q",
	}
}

type Deps struct {
	Controller *controller.Controller
	Store      *store.Store
	Scanner    *reminder.Scanner
	Engine     *scheduler.Engine
	Clock      scheduler.Clock
	Location   *time.Location
	Logger     *slog.Logger
}

type formState struct {
	editingID int64
	focus     int
	err       string
}

type Model struct {
	deps Deps

	Mode        Mode
	Rows        []projection.Row
	Stats       projection.Stats
	Now         time.Time
	Status      StatusBar
	HelpVisible bool
	Keys        KeyMap
	Quitting    bool

	// Alerts queue due-today notifications; the first one is on screen.
	Alerts        []model.Notification
	PendingDelete *model.Task

	form formState

	changes <-chan struct{}

	table        table.Model
	searchInput  textinput.Model
	commandInput textinput.Model
	titleInput   textinput.Model
	dateInput    textinput.Model
	prioInput    textinput.Model
	descArea     textarea.Model
	progressBar  progress.Model
	helpModel    help.Model
	detail       viewport.Model
	detailKey    string
}

// Messages.

type StoreChangedMsg struct{}

type TickMsg struct {
	Tick scheduler.Tick
}

type RemindersFiredMsg struct {
	Notifications []model.Notification
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

func NewModel(deps Deps) Model {
	if deps.Clock == nil {
		deps.Clock = scheduler.SystemClock{}
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	m := Model{
		deps: deps,
		Mode: ModeList,
		Keys: DefaultKeyMap(),
	}
	m.Now = m.localNow()
	m.initBubbleComponents()
	if deps.Store != nil {
		m.changes = subscribe(deps.Store)
	}
	m.refresh()
	return m
}

// subscribe turns store notifications into a coalescing channel: one pending
// signal is enough because every refresh reads a full snapshot.
func subscribe(s *store.Store) <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.Subscribe(func(store.Change) {
		select {
		case ch <- struct{}{}:
		default:
		}
	})
	return ch
}

func (m *Model) initBubbleComponents() {
	cols := []table.Column{
		{Title: "Pri", Width: 6},
		{Title: "Title", Width: 28},
		{Title: "Due", Width: 10},
		{Title: "State", Width: 8},
	}
	m.table = table.New(table.WithColumns(cols), table.WithRows([]table.Row{}), table.WithFocused(true), table.WithHeight(12))

	m.searchInput = textinput.New()
	m.searchInput.Prompt = "search> "
	m.searchInput.Placeholder = "title or description"
	m.searchInput.CharLimit = 128
	m.searchInput.Width = 30

	m.commandInput = textinput.New()
	m.commandInput.Prompt = ":"
	m.commandInput.CharLimit = 256
	m.commandInput.Width = 60

	m.titleInput = textinput.New()
	m.titleInput.Placeholder = "What needs doing?"
	m.titleInput.CharLimit = 200
	m.titleInput.Width = 50

	m.dateInput = textinput.New()
	m.dateInput.Placeholder = "YYYY-MM-DD, today or tomorrow"
	m.dateInput.CharLimit = 16
	m.dateInput.Width = 30

	m.prioInput = textinput.New()
	m.prioInput.Placeholder = "normal or high"
	m.prioInput.CharLimit = 8
	m.prioInput.Width = 12

	m.descArea = textarea.New()
	m.descArea.SetWidth(50)
	m.descArea.SetHeight(5)
	m.descArea.ShowLineNumbers = false
	m.descArea.Placeholder = "Description (markdown)"

	m.progressBar = progress.New(progress.WithDefaultGradient(), progress.WithWidth(40))
	m.helpModel = help.New()
	m.detail = viewport.New(42, 14)
}

func (m Model) localNow() time.Time {
	return m.deps.Clock.Now().In(m.deps.Location)
}

// refresh re-derives the visible rows and progress from the store.
func (m *Model) refresh() {
	if m.deps.Controller == nil {
		return
	}
	m.Rows = m.deps.Controller.Rows()
	m.Stats = m.deps.Controller.Progress()

	rows := make([]table.Row, 0, len(m.Rows))
	for _, r := range m.Rows {
		rows = append(rows, tableRow(r))
	}
	cursor := m.table.Cursor()
	m.table.SetRows(rows)
	if cursor >= len(rows) {
		cursor = len(rows) - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	m.table.SetCursor(cursor)
	m.syncDetail()
}

func (m Model) selected() (projection.Row, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.Rows) {
		return projection.Row{}, false
	}
	return m.Rows[i], true
}

func waitForChangeCmd(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return StoreChangedMsg{}
	}
}

func waitForTickCmd(ch <-chan scheduler.Tick) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		tick, ok := <-ch
		if !ok {
			return nil
		}
		return TickMsg{Tick: tick}
	}
}
