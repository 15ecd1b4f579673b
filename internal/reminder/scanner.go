package reminder

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/sandeepkv93/taskboard/internal/model"
	"github.com/sandeepkv93/taskboard/internal/scheduler"
)

// TaskSource is the part of the store the scanner needs.
type TaskSource interface {
	Snapshot() []model.Task
	MarkReminded(ctx context.Context, id int64) (bool, error)
}

// Scanner raises one notification per open task due today.
type Scanner struct {
	Store    TaskSource
	Clock    scheduler.Clock
	Location *time.Location
	Notifier Notifier
	Chime    Chime
	Logger   *slog.Logger
}

// Today is the local calendar date the scanner compares due dates against.
func (s *Scanner) Today() string {
	return model.LocalDate(s.now())
}

// Scan marks every open, unreminded task due today as reminded and then
// notifies about it. A task whose flag could not be claimed is skipped, so a
// task is never announced twice.
func (s *Scanner) Scan(ctx context.Context) []model.Notification {
	if s.Store == nil {
		return nil
	}
	logger := s.logger()
	now := s.now()
	today := model.LocalDate(now)

	var fired []model.Notification
	for _, t := range s.Store.Snapshot() {
		if !t.DueOn(today) || t.Completed || t.Reminded {
			continue
		}
		claimed, err := s.Store.MarkReminded(ctx, t.ID)
		if err != nil {
			// The flag is set in memory even when the write failed.
			logger.Warn("reminded flag not persisted", "task_id", t.ID, "err", err)
		}
		if !claimed {
			continue
		}

		n := model.NewNotification(t, now)
		fired = append(fired, n)
		if s.Notifier != nil {
			if err := s.Notifier.Notify(ctx, n); err != nil {
				logger.Warn("notify failed", "task_id", t.ID, "err", err)
			}
		}
		if s.Chime != nil {
			if err := s.Chime.Play(ctx); err != nil {
				logger.Debug("chime unavailable", "err", err)
			}
		}
	}
	if len(fired) > 0 {
		logger.Info("reminders fired", "count", len(fired), "date", today)
	}
	return fired
}

func (s *Scanner) now() time.Time {
	var now time.Time
	if s.Clock != nil {
		now = s.Clock.Now()
	} else {
		now = time.Now()
	}
	loc := s.Location
	if loc == nil {
		loc = time.Local
	}
	return now.In(loc)
}

func (s *Scanner) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
