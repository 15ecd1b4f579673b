package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Notification is one fired due-today reminder.
type Notification struct {
	ID      string
	TaskID  int64
	Title   string
	Date    string
	FiredAt time.Time
}

func NewNotification(t Task, firedAt time.Time) Notification {
	return Notification{
		ID:      uuid.NewString(),
		TaskID:  t.ID,
		Title:   t.Title,
		Date:    t.Date,
		FiredAt: firedAt,
	}
}

// Message is the user-facing alert text.
func (n Notification) Message() string {
	return fmt.Sprintf("DEADLINE TODAY: %s", n.Title)
}

func (n Notification) Validate() error {
	if strings.TrimSpace(n.ID) == "" {
		return errors.New("model: notification id is required")
	}
	if n.TaskID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidID, n.TaskID)
	}
	if n.FiredAt.IsZero() {
		return errors.New("model: notification fired_at is required")
	}
	return nil
}
