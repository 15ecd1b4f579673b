package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sandeepkv93/taskboard/internal/model"
)

const DefaultTasksKey = "taskboard_tasks"

// malformedSuffix names the entry a copy of an undecodable value is kept under.
const malformedSuffix = ".malformed"

var ErrMalformed = errors.New("storage: malformed task list")

// LoadResult is what TaskRepository.Load recovered from the backend.
type LoadResult struct {
	Tasks   []model.Task
	Skipped int
}

// TaskRepository stores the whole task list as one JSON array under Key.
type TaskRepository struct {
	kv  KV
	key string
}

func NewTaskRepository(kv KV, key string) (*TaskRepository, error) {
	if kv == nil {
		return nil, errors.New("storage: nil kv")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = DefaultTasksKey
	}
	return &TaskRepository{kv: kv, key: key}, nil
}

func (r *TaskRepository) Key() string { return r.key }

// Load reads the list. A missing entry is an empty list. An entry that does not
// decode is copied aside and reported as ErrMalformed together with an empty
// list. Records that fail validation or repeat an earlier id are skipped.
func (r *TaskRepository) Load(ctx context.Context) (LoadResult, error) {
	raw, err := r.kv.Get(ctx, r.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return LoadResult{Tasks: []model.Task{}}, nil
		}
		return LoadResult{Tasks: []model.Task{}}, fmt.Errorf("load %s: %w", r.key, err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return LoadResult{Tasks: []model.Task{}}, nil
	}

	var records []taskRecord
	if decodeErr := json.Unmarshal(raw, &records); decodeErr != nil {
		if backupErr := r.backup(ctx, raw); backupErr != nil {
			return LoadResult{Tasks: []model.Task{}}, errors.Join(
				fmt.Errorf("%w: %v", ErrMalformed, decodeErr),
				fmt.Errorf("backup %s: %w", r.key+malformedSuffix, backupErr),
			)
		}
		return LoadResult{Tasks: []model.Task{}}, fmt.Errorf("%w: %v", ErrMalformed, decodeErr)
	}

	out := LoadResult{Tasks: make([]model.Task, 0, len(records))}
	seen := make(map[int64]struct{}, len(records))
	for _, rec := range records {
		task, convErr := rec.toTask()
		if convErr != nil {
			out.Skipped++
			continue
		}
		if _, dup := seen[task.ID]; dup {
			out.Skipped++
			continue
		}
		seen[task.ID] = struct{}{}
		out.Tasks = append(out.Tasks, task)
	}
	return out, nil
}

func (r *TaskRepository) Save(ctx context.Context, tasks []model.Task) error {
	payload, err := Encode(tasks)
	if err != nil {
		return err
	}
	if err := r.kv.Set(ctx, r.key, payload); err != nil {
		return fmt.Errorf("save %s: %w", r.key, err)
	}
	return nil
}

func (r *TaskRepository) Close() error {
	return r.kv.Close()
}

// Encode renders tasks in their persisted form. An empty list is "[]".
func Encode(tasks []model.Task) ([]byte, error) {
	records := make([]taskRecord, 0, len(tasks))
	for _, t := range tasks {
		records = append(records, recordFromTask(t))
	}
	return json.Marshal(records)
}

func (r *TaskRepository) backup(ctx context.Context, raw []byte) error {
	// Stored as a JSON string so every backend, the file one included, accepts it.
	quoted, err := json.Marshal(string(raw))
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, r.key+malformedSuffix, quoted)
}
