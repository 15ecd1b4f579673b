package update

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/taskboard/internal/model"
)

// scanCmd runs the reminder scan off the UI goroutine. The store is reloaded
// first so flags set by another process (taskboard watch) are honoured.
func (m Model) scanCmd() tea.Cmd {
	scanner := m.deps.Scanner
	if scanner == nil {
		return nil
	}
	st, logger := m.deps.Store, m.deps.Logger
	return func() tea.Msg {
		ctx := context.Background()
		if st != nil {
			if err := st.Reload(ctx); err != nil {
				logger.Warn("reload before scan failed", "err", err)
			}
		}
		fired := scanner.Scan(ctx)
		if len(fired) == 0 {
			return nil
		}
		return RemindersFiredMsg{Notifications: fired}
	}
}

func (m *Model) onRemindersFired(fired []model.Notification) {
	if len(fired) == 0 {
		return
	}
	m.Alerts = append(m.Alerts, fired...)
	m.deps.Logger.Info("reminder alert queued", "count", len(fired), "pending", len(m.Alerts))
	m.Status = StatusBar{Text: fmt.Sprintf("%d task(s) due today", len(fired))}
	m.refresh()
}

// handleAlertKey only reacts to dismiss keys; everything else is swallowed.
func (m Model) handleAlertKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "enter", "esc", " ", "o":
		m.Alerts = m.Alerts[1:]
	}
	return m
}
