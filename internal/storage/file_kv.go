package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var errCorruptFile = errors.New("storage: corrupt data file")

type fileState struct {
	Entries map[string]json.RawMessage `json:"entries"`
}

// FileKV keeps every entry in one JSON document. Values must themselves be
// JSON; the task list always is.
type FileKV struct {
	mu   sync.Mutex
	path string
}

func NewFileKV(path string) (*FileKV, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("storage: file path is required")
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &FileKV{path: path}, nil
}

func (f *FileKV) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, err := f.loadLocked()
	if err != nil {
		return nil, err
	}
	raw, ok := state.Entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return []byte(raw), nil
}

func (f *FileKV) Set(_ context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("storage: file backend requires a JSON value for %q", key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	state, err := f.loadLocked()
	if errors.Is(err, errCorruptFile) {
		// Keep the unreadable document aside instead of failing every write.
		if renameErr := os.Rename(f.path, f.path+".corrupt"); renameErr != nil {
			return renameErr
		}
		state, err = fileState{Entries: make(map[string]json.RawMessage)}, nil
	}
	if err != nil {
		return err
	}
	state.Entries[key] = json.RawMessage(append([]byte(nil), value...))
	return f.saveLocked(state)
}

func (f *FileKV) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, err := f.loadLocked()
	if err != nil {
		return err
	}
	if _, ok := state.Entries[key]; !ok {
		return ErrNotFound
	}
	delete(state.Entries, key)
	return f.saveLocked(state)
}

func (f *FileKV) Close() error { return nil }

func (f *FileKV) loadLocked() (fileState, error) {
	out := fileState{Entries: make(map[string]json.RawMessage)}
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return out, err
	}
	if strings.TrimSpace(string(raw)) == "" {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: %s: %v", errCorruptFile, f.path, err)
	}
	if out.Entries == nil {
		out.Entries = make(map[string]json.RawMessage)
	}
	return out, nil
}

func (f *FileKV) saveLocked(state fileState) error {
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, append(payload, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}
