package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sandeepkv93/taskboard/internal/logging"
	"github.com/sandeepkv93/taskboard/internal/reminder"
	"github.com/sandeepkv93/taskboard/internal/scheduler"
	"github.com/sandeepkv93/taskboard/internal/update"
)

// runTUI opens the board: storage and store behind the controller, a clock
// job for the header and a reminder job for the due-today scan.
func runTUI(cmd *cobra.Command, flags *globalFlags) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	logger, logCloser, err := logging.OpenFile(cfg.Log.File, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	s, err := openSessionWith(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, s.Close(context.WithoutCancel(ctx)))
	}()

	engine := scheduler.NewEngine(cfg.UI.SchedulerBuffer, s.clock)
	if err := engine.Every(update.JobClock, cfg.UI.ClockInterval); err != nil {
		return err
	}
	if err := engine.Every(update.JobReminders, cfg.Reminder.ScanInterval); err != nil {
		return err
	}
	engine.Start()
	defer engine.Stop()

	model := update.NewModel(update.Deps{
		Controller: s.controller,
		Store:      s.store,
		Scanner:    newBoardScanner(s, cmd),
		Engine:     engine,
		Clock:      s.clock,
		Location:   s.location,
		Logger:     logger,
	})
	logger.Info("board started", "tasks", len(s.store.Snapshot()))

	program := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("taskboard failed: %w", err)
	}
	if dropped := engine.Dropped(); dropped > 0 {
		logger.Debug("scheduler ticks dropped", "count", dropped)
	}
	return nil
}

// newBoardScanner rings the bell on stderr: stdout belongs to the renderer and
// the scan runs on its own goroutine.
func newBoardScanner(s *session, cmd *cobra.Command) *reminder.Scanner {
	return newScanner(s, cmd.ErrOrStderr())
}
