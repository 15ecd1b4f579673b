// Package projection derives the visible task list and the progress figures
// from a snapshot. Nothing here mutates its input.
package projection

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sandeepkv93/taskboard/internal/model"
)

type Mode string

const (
	ModeAll       Mode = "all"
	ModeHigh      Mode = "high"
	ModeCompleted Mode = "completed"
)

var Modes = []Mode{ModeAll, ModeHigh, ModeCompleted}

func ParseMode(raw string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(raw)))
	switch m {
	case "":
		return ModeAll, nil
	case ModeAll, ModeHigh, ModeCompleted:
		return m, nil
	default:
		return "", fmt.Errorf("unknown filter %q (want all, high or completed)", raw)
	}
}

// Next cycles all -> high -> completed -> all.
func (m Mode) Next() Mode {
	for i, candidate := range Modes {
		if candidate == m {
			return Modes[(i+1)%len(Modes)]
		}
	}
	return ModeAll
}

type Query struct {
	Mode   Mode
	Search string
}

type Row struct {
	Task     model.Task
	Overdue  bool
	DueToday bool
}

func (q Query) matches(t model.Task) bool {
	switch q.Mode {
	case ModeHigh:
		if t.Priority != model.PriorityHigh {
			return false
		}
	case ModeCompleted:
		if !t.Completed {
			return false
		}
	}
	if q.Search == "" {
		return true
	}
	needle := strings.ToLower(q.Search)
	return strings.Contains(strings.ToLower(t.Title), needle) ||
		strings.Contains(strings.ToLower(t.Desc), needle)
}

// Apply keeps the tasks matching q in their original order and flags the
// overdue and due-today ones relative to now.
func Apply(tasks []model.Task, q Query, now time.Time) []Row {
	today := model.LocalDate(now)
	rows := make([]Row, 0, len(tasks))
	for _, t := range tasks {
		if !q.matches(t) {
			continue
		}
		rows = append(rows, Row{
			Task:     t,
			Overdue:  t.IsOverdue(now),
			DueToday: t.DueOn(today),
		})
	}
	return rows
}

type Stats struct {
	Done    int
	Total   int
	Percent int
}

// Progress counts completed tasks over the whole list, not the filtered view.
func Progress(tasks []model.Task) Stats {
	s := Stats{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			s.Done++
		}
	}
	if s.Total > 0 {
		s.Percent = int(math.Round(float64(s.Done) / float64(s.Total) * 100))
	}
	return s
}

func (s Stats) Ratio() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Done) / float64(s.Total)
}

func (s Stats) String() string {
	return fmt.Sprintf("%d%% (%d/%d)", s.Percent, s.Done, s.Total)
}
