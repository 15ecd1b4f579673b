package storage

import (
	"strings"

	"github.com/sandeepkv93/taskboard/internal/model"
)

// taskRecord is the persisted shape of one task inside the JSON array.
type taskRecord struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Desc      string `json:"desc"`
	Date      string `json:"date"`
	Priority  string `json:"priority"`
	Completed bool   `json:"completed"`
	Reminded  bool   `json:"reminded"`
}

func recordFromTask(t model.Task) taskRecord {
	return taskRecord{
		ID:        t.ID,
		Title:     t.Title,
		Desc:      t.Desc,
		Date:      t.Date,
		Priority:  string(t.Priority),
		Completed: t.Completed,
		Reminded:  t.Reminded,
	}
}

func (r taskRecord) toTask() (model.Task, error) {
	priority, err := model.ParsePriority(r.Priority)
	if err != nil {
		return model.Task{}, err
	}
	t := model.Task{
		ID:        r.ID,
		Title:     r.Title,
		Desc:      r.Desc,
		Date:      strings.TrimSpace(r.Date),
		Priority:  priority,
		Completed: r.Completed,
		Reminded:  r.Reminded,
	}
	if err := t.Validate(); err != nil {
		return model.Task{}, err
	}
	return t, nil
}
