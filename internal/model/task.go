package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date form used for due dates on disk and on input.
const DateLayout = "2006-01-02"

var (
	ErrTitleRequired   = errors.New("model: task title is required")
	ErrInvalidID       = errors.New("model: invalid task id")
	ErrInvalidDate     = errors.New("model: invalid task date")
	ErrInvalidPriority = errors.New("model: invalid task priority")
)

type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityNormal, PriorityHigh:
		return true
	default:
		return false
	}
}

// ParsePriority accepts the two priority names in any case. Blank means normal.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(raw)))
	if p == "" {
		return PriorityNormal, nil
	}
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, raw)
	}
	return p, nil
}

type Task struct {
	ID        int64
	Title     string
	Desc      string
	Date      string
	Priority  Priority
	Completed bool
	Reminded  bool
}

func (t Task) Validate() error {
	if t.ID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidID, t.ID)
	}
	if strings.TrimSpace(t.Title) == "" {
		return ErrTitleRequired
	}
	if _, err := ParseDate(t.Date); err != nil {
		return err
	}
	if !t.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}
	return nil
}

// DueOn reports whether the task is due on the given YYYY-MM-DD day.
func (t Task) DueOn(day string) bool {
	return t.Date == day
}

// IsOverdue reports whether the due date lies strictly before the calendar day
// containing now and the task is still open.
func (t Task) IsOverdue(now time.Time) bool {
	if t.Completed {
		return false
	}
	due, err := time.ParseInLocation(DateLayout, t.Date, now.Location())
	if err != nil {
		return false
	}
	return due.Before(StartOfDay(now))
}

func ParseDate(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, fmt.Errorf("%w: date is required", ErrInvalidDate)
	}
	d, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return d, nil
}

// ResolveDate turns user input into a YYYY-MM-DD string relative to now.
func ResolveDate(raw string, now time.Time) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "today":
		return LocalDate(now), nil
	case "tomorrow":
		return LocalDate(now.AddDate(0, 0, 1)), nil
	}
	d, err := ParseDate(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return d.Format(DateLayout), nil
}

// LocalDate is the calendar date of now in now's own location.
func LocalDate(now time.Time) string {
	return now.Format(DateLayout)
}

func StartOfDay(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}
