package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/sandeepkv93/taskboard/internal/model"
	"github.com/sandeepkv93/taskboard/internal/scheduler"
	"github.com/sandeepkv93/taskboard/internal/storage"
)

var (
	ErrClosed  = errors.New("store: closed")
	ErrPersist = errors.New("store: persist failed")
)

// Repository is the persistence the store mirrors its list to.
type Repository interface {
	Load(ctx context.Context) (storage.LoadResult, error)
	Save(ctx context.Context, tasks []model.Task) error
}

// Observer receives mutation bookkeeping. The metrics package implements it.
type Observer interface {
	Mutation(kind ChangeKind)
	PersistError()
	Tasks(total, completed int)
}

type ChangeKind string

const (
	ChangeLoaded   ChangeKind = "loaded"
	ChangeCreated  ChangeKind = "created"
	ChangeUpdated  ChangeKind = "updated"
	ChangeDeleted  ChangeKind = "deleted"
	ChangeToggled  ChangeKind = "toggled"
	ChangeReminded ChangeKind = "reminded"
)

// Change is delivered to listeners after a mutation has been persisted.
// Tasks is a copy of the full list at that point.
type Change struct {
	Kind   ChangeKind
	TaskID int64
	Tasks  []model.Task
}

type Listener func(Change)

type Fields struct {
	Title    string
	Desc     string
	Date     string
	Priority model.Priority
}

// Patch carries the fields an edit changes; nil means keep.
type Patch struct {
	Title    *string
	Desc     *string
	Date     *string
	Priority *model.Priority
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Desc == nil && p.Date == nil && p.Priority == nil
}

type Option func(*Store)

func WithClock(c scheduler.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(s *Store) {
		s.observer = o
	}
}

// Store owns the in-memory task list. Every mutation is written through to the
// repository before listeners hear about it.
type Store struct {
	mu        sync.Mutex
	repo      Repository
	clock     scheduler.Clock
	logger    *slog.Logger
	observer  Observer
	tasks     []model.Task
	lastID    int64
	listeners map[int]Listener
	nextSub   int
	closed    bool
	// dirty is set while memory holds changes the repository has not accepted.
	dirty bool
}

// Open loads the persisted list. Load problems are logged and leave the store
// empty; they never fail startup.
func Open(ctx context.Context, repo Repository, opts ...Option) (*Store, error) {
	if repo == nil {
		return nil, errors.New("store: nil repository")
	}
	s := &Store{
		repo:      repo,
		clock:     scheduler.SystemClock{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		tasks:     []model.Task{},
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}

	res, err := repo.Load(ctx)
	if err != nil {
		s.logger.Warn("task list unreadable, starting empty", "err", err)
	} else {
		s.tasks = res.Tasks
		if res.Skipped > 0 {
			s.logger.Warn("skipped invalid task records", "count", res.Skipped)
		}
	}
	if s.tasks == nil {
		s.tasks = []model.Task{}
	}
	for _, t := range s.tasks {
		if t.ID > s.lastID {
			s.lastID = t.ID
		}
	}
	s.logger.Debug("store opened", "tasks", len(s.tasks))
	s.observeTasksLocked()
	return s, nil
}

func (s *Store) Subscribe(l Listener) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || l == nil {
		return func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) Snapshot() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTasks(s.tasks)
}

func (s *Store) Get(id int64) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return model.Task{}, false
	}
	return s.tasks[i], true
}

func (s *Store) Create(ctx context.Context, f Fields) (model.Task, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return model.Task{}, ErrClosed
	}
	priority := f.Priority
	if priority == "" {
		priority = model.PriorityNormal
	}
	t := model.Task{
		ID:       s.nextIDLocked(),
		Title:    f.Title,
		Desc:     f.Desc,
		Date:     f.Date,
		Priority: priority,
	}
	if err := t.Validate(); err != nil {
		s.mu.Unlock()
		return model.Task{}, err
	}
	s.lastID = t.ID
	s.tasks = append([]model.Task{t}, s.tasks...)
	change, err := s.commitLocked(ctx, ChangeCreated, t.ID)
	s.mu.Unlock()

	s.notify(change)
	return t, err
}

// Update merges p into the task. An unknown id is a no-op.
func (s *Store) Update(ctx context.Context, id int64, p Patch) (model.Task, bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return model.Task{}, false, ErrClosed
	}
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return model.Task{}, false, nil
	}
	next := s.tasks[i]
	if p.Title != nil {
		next.Title = *p.Title
	}
	if p.Desc != nil {
		next.Desc = *p.Desc
	}
	if p.Date != nil {
		next.Date = *p.Date
	}
	if p.Priority != nil {
		next.Priority = *p.Priority
	}
	if err := next.Validate(); err != nil {
		s.mu.Unlock()
		return model.Task{}, false, err
	}
	s.tasks[i] = next
	change, err := s.commitLocked(ctx, ChangeUpdated, id)
	s.mu.Unlock()

	s.notify(change)
	return next, true, err
}

func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrClosed
	}
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false, nil
	}
	s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)
	change, err := s.commitLocked(ctx, ChangeDeleted, id)
	s.mu.Unlock()

	s.notify(change)
	return true, err
}

func (s *Store) ToggleComplete(ctx context.Context, id int64) (model.Task, bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return model.Task{}, false, ErrClosed
	}
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return model.Task{}, false, nil
	}
	s.tasks[i].Completed = !s.tasks[i].Completed
	t := s.tasks[i]
	change, err := s.commitLocked(ctx, ChangeToggled, id)
	s.mu.Unlock()

	s.notify(change)
	return t, true, err
}

// MarkReminded sets the reminded flag once. It reports false when the task is
// unknown, completed or already reminded.
func (s *Store) MarkReminded(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrClosed
	}
	i := s.indexLocked(id)
	if i < 0 || s.tasks[i].Reminded || s.tasks[i].Completed {
		s.mu.Unlock()
		return false, nil
	}
	s.tasks[i].Reminded = true
	change, err := s.commitLocked(ctx, ChangeReminded, id)
	s.mu.Unlock()

	s.notify(change)
	return true, err
}

// Reload replaces the in-memory list with what the repository holds now, so
// a long running process picks up writes made by another one. A failed load
// keeps the current list. Reminded flags never go back to false: a task
// reminded here stays reminded even when another writer dropped the flag,
// and the merged list is written back in that case.
func (s *Store) Reload(ctx context.Context) error {
	res, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	reminded := make(map[int64]bool)
	for _, t := range s.tasks {
		if t.Reminded {
			reminded[t.ID] = true
		}
	}
	tasks := res.Tasks
	if tasks == nil {
		tasks = []model.Task{}
	}
	restored := 0
	for i := range tasks {
		if !tasks[i].Reminded && reminded[tasks[i].ID] {
			tasks[i].Reminded = true
			restored++
		}
	}
	s.tasks = tasks
	s.dirty = false
	for _, t := range s.tasks {
		if t.ID > s.lastID {
			s.lastID = t.ID
		}
	}

	var saveErr error
	if restored > 0 {
		if err := s.repo.Save(ctx, cloneTasks(s.tasks)); err != nil {
			s.logger.Error("persist failed", "kind", ChangeLoaded, "err", err)
			s.dirty = true
			if s.observer != nil {
				s.observer.PersistError()
			}
			saveErr = fmt.Errorf("%w (%s): %w", ErrPersist, ChangeLoaded, err)
		} else {
			s.logger.Debug("restored reminded flags", "count", restored)
		}
	}
	s.observeTasksLocked()
	change := Change{Kind: ChangeLoaded, Tasks: cloneTasks(s.tasks)}
	s.mu.Unlock()

	s.notify(change)
	return saveErr
}

// Close drops every listener. The list is written once more only when an
// earlier write failed; a clean store leaves storage untouched.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	s.listeners = make(map[int]Listener)
	if !s.dirty {
		return nil
	}
	s.absorbRemindedLocked(ctx)
	if err := s.repo.Save(ctx, cloneTasks(s.tasks)); err != nil {
		s.logger.Error("final flush failed", "err", err)
		return fmt.Errorf("flush on close: %w", err)
	}
	return nil
}

// commitLocked persists the list and builds the change to broadcast. A failed
// write keeps the in-memory mutation.
func (s *Store) commitLocked(ctx context.Context, kind ChangeKind, id int64) (Change, error) {
	s.absorbRemindedLocked(ctx)
	snapshot := cloneTasks(s.tasks)
	var err error
	if saveErr := s.repo.Save(ctx, snapshot); saveErr != nil {
		s.logger.Error("persist failed", "kind", kind, "task_id", id, "err", saveErr)
		if s.observer != nil {
			s.observer.PersistError()
		}
		err = fmt.Errorf("%w (%s): %w", ErrPersist, kind, saveErr)
		s.dirty = true
	} else {
		s.dirty = false
		s.logger.Debug("persisted", "kind", kind, "task_id", id, "tasks", len(snapshot))
	}
	if s.observer != nil {
		s.observer.Mutation(kind)
	}
	s.observeTasksLocked()
	return Change{Kind: kind, TaskID: id, Tasks: snapshot}, err
}

// absorbRemindedLocked copies reminded flags another writer has stored into
// the in-memory list, so a save never turns a stored true back into false.
func (s *Store) absorbRemindedLocked(ctx context.Context) {
	res, err := s.repo.Load(ctx)
	if err != nil {
		s.logger.Debug("stored flags unavailable before save", "err", err)
		return
	}
	stored := make(map[int64]bool, len(res.Tasks))
	for _, t := range res.Tasks {
		if t.Reminded {
			stored[t.ID] = true
		}
	}
	for i := range s.tasks {
		if stored[s.tasks[i].ID] {
			s.tasks[i].Reminded = true
		}
	}
}

func (s *Store) notify(c Change) {
	s.mu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()
	for _, l := range listeners {
		l(c)
	}
}

func (s *Store) observeTasksLocked() {
	if s.observer == nil {
		return
	}
	done := 0
	for _, t := range s.tasks {
		if t.Completed {
			done++
		}
	}
	s.observer.Tasks(len(s.tasks), done)
}

// nextIDLocked derives an id from the clock, bumped past the last one issued so
// ids stay unique within one millisecond.
func (s *Store) nextIDLocked() int64 {
	id := s.clock.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	return id
}

func (s *Store) indexLocked(id int64) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneTasks(in []model.Task) []model.Task {
	out := make([]model.Task, len(in))
	copy(out, in)
	return out
}
