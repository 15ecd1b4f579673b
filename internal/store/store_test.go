package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sandeepkv93/taskboard/internal/model"
	"github.com/sandeepkv93/taskboard/internal/scheduler"
	"github.com/sandeepkv93/taskboard/internal/storage"
)

var base = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, opts ...Option) (*Store, *storage.TaskRepository, *scheduler.ManualClock) {
	t.Helper()
	repo, err := storage.NewTaskRepository(storage.NewMemoryKV(), "")
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	clock := scheduler.NewManualClock(base)
	s, err := Open(t.Context(), repo, append([]Option{WithClock(clock)}, opts...)...)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s, repo, clock
}

func mustCreate(t *testing.T, s *Store, title, date string) model.Task {
	t.Helper()
	task, err := s.Create(t.Context(), Fields{Title: title, Date: date})
	if err != nil {
		t.Fatalf("create %q: %v", title, err)
	}
	return task
}

func TestCreatePrependsAndPersists(t *testing.T) {
	s, repo, _ := newTestStore(t)

	first := mustCreate(t, s, "first", "2026-03-10")
	second := mustCreate(t, s, "second", "2026-03-11")

	if first.Completed || first.Reminded || first.Priority != model.PriorityNormal {
		t.Fatalf("unexpected defaults: %#v", first)
	}
	if second.ID <= first.ID {
		t.Fatalf("ids must increase: %d then %d", first.ID, second.ID)
	}

	snap := s.Snapshot()
	if len(snap) != 2 || snap[0].ID != second.ID || snap[1].ID != first.ID {
		t.Fatalf("expected newest first, got %#v", snap)
	}

	loaded, err := repo.Load(t.Context())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Tasks) != 2 || loaded.Tasks[0].ID != second.ID {
		t.Fatalf("persisted list does not match memory: %#v", loaded.Tasks)
	}
}

func TestCreateIDsUniqueWithinOneMillisecond(t *testing.T) {
	s, _, _ := newTestStore(t)
	seen := map[int64]bool{}
	for i := 0; i < 20; i++ {
		task := mustCreate(t, s, "same tick", "2026-03-10")
		if seen[task.ID] {
			t.Fatalf("duplicate id %d", task.ID)
		}
		seen[task.ID] = true
	}
}

func TestCreateIDsStayAboveLoadedOnes(t *testing.T) {
	kv := storage.NewMemoryKV()
	repo, _ := storage.NewTaskRepository(kv, "")
	future := base.Add(time.Hour).UnixMilli()
	if err := repo.Save(t.Context(), []model.Task{{ID: future, Title: "later", Date: "2026-03-10", Priority: model.PriorityNormal}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s, err := Open(t.Context(), repo, WithClock(scheduler.NewManualClock(base)))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	task := mustCreate(t, s, "now", "2026-03-10")
	if task.ID <= future {
		t.Fatalf("expected id above %d, got %d", future, task.ID)
	}
}

func TestCreateRejectsMissingFields(t *testing.T) {
	s, _, _ := newTestStore(t)
	if _, err := s.Create(t.Context(), Fields{Title: "  ", Date: "2026-03-10"}); !errors.Is(err, model.ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
	if _, err := s.Create(t.Context(), Fields{Title: "x"}); !errors.Is(err, model.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if len(s.Snapshot()) != 0 {
		t.Fatalf("rejected create must not change the list")
	}
}

func TestUpdateMergesSetFields(t *testing.T) {
	s, _, _ := newTestStore(t)
	task, err := s.Create(t.Context(), Fields{Title: "draft", Desc: "keep me", Date: "2026-03-10", Priority: model.PriorityHigh})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := s.ToggleComplete(t.Context(), task.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	title := "final"
	got, ok, err := s.Update(t.Context(), task.ID, Patch{Title: &title})
	if err != nil || !ok {
		t.Fatalf("update: ok=%v err=%v", ok, err)
	}
	if got.Title != "final" || got.Desc != "keep me" || got.Priority != model.PriorityHigh || !got.Completed {
		t.Fatalf("unset fields must be kept: %#v", got)
	}
	if got.ID != task.ID {
		t.Fatalf("id changed on update")
	}
}

func TestUpdateUnknownIDIsNoop(t *testing.T) {
	s, _, _ := newTestStore(t)
	mustCreate(t, s, "one", "2026-03-10")
	before := s.Snapshot()

	title := "ghost"
	_, ok, err := s.Update(t.Context(), 42, Patch{Title: &title})
	if err != nil || ok {
		t.Fatalf("expected silent no-op, got ok=%v err=%v", ok, err)
	}
	after := s.Snapshot()
	if len(after) != len(before) || after[0] != before[0] {
		t.Fatalf("list changed on unknown id")
	}
}

func TestUpdateRejectsInvalidResult(t *testing.T) {
	s, _, _ := newTestStore(t)
	task := mustCreate(t, s, "one", "2026-03-10")
	bad := "someday"
	if _, _, err := s.Update(t.Context(), task.ID, Patch{Date: &bad}); !errors.Is(err, model.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	got, _ := s.Get(task.ID)
	if got.Date != "2026-03-10" {
		t.Fatalf("invalid patch must not apply, got %q", got.Date)
	}
}

func TestDeleteRemovesOnlyTarget(t *testing.T) {
	s, repo, _ := newTestStore(t)
	a := mustCreate(t, s, "a", "2026-03-10")
	b := mustCreate(t, s, "b", "2026-03-10")
	c := mustCreate(t, s, "c", "2026-03-10")

	ok, err := s.Delete(t.Context(), b.ID)
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	snap := s.Snapshot()
	if len(snap) != 2 || snap[0].ID != c.ID || snap[1].ID != a.ID {
		t.Fatalf("unexpected list after delete: %#v", snap)
	}
	loaded, _ := repo.Load(t.Context())
	if len(loaded.Tasks) != 2 {
		t.Fatalf("delete not persisted")
	}

	ok, err = s.Delete(t.Context(), b.ID)
	if err != nil || ok {
		t.Fatalf("second delete should be a no-op, ok=%v err=%v", ok, err)
	}
}

func TestToggleTwiceRestores(t *testing.T) {
	s, _, _ := newTestStore(t)
	task := mustCreate(t, s, "a", "2026-03-10")

	got, ok, err := s.ToggleComplete(t.Context(), task.ID)
	if err != nil || !ok || !got.Completed {
		t.Fatalf("first toggle: %#v ok=%v err=%v", got, ok, err)
	}
	got, _, _ = s.ToggleComplete(t.Context(), task.ID)
	if got != task {
		t.Fatalf("toggle twice must restore the task: %#v vs %#v", got, task)
	}
	if _, ok, _ := s.ToggleComplete(t.Context(), 99); ok {
		t.Fatalf("toggle of unknown id must report false")
	}
}

func TestMarkRemindedOnlyOnce(t *testing.T) {
	s, _, _ := newTestStore(t)
	task := mustCreate(t, s, "a", "2026-03-10")
	done := mustCreate(t, s, "b", "2026-03-10")
	if _, _, err := s.ToggleComplete(t.Context(), done.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	if ok, err := s.MarkReminded(t.Context(), task.ID); err != nil || !ok {
		t.Fatalf("first mark: ok=%v err=%v", ok, err)
	}
	if ok, _ := s.MarkReminded(t.Context(), task.ID); ok {
		t.Fatalf("second mark must report false")
	}
	if ok, _ := s.MarkReminded(t.Context(), done.ID); ok {
		t.Fatalf("completed task must not be marked")
	}
	got, _ := s.Get(task.ID)
	if !got.Reminded {
		t.Fatalf("reminded flag not stored")
	}
}

func TestListenersSeePersistedState(t *testing.T) {
	s, repo, _ := newTestStore(t)

	var mu sync.Mutex
	var changes []Change
	cancel := s.Subscribe(func(c Change) {
		loaded, err := repo.Load(context.Background())
		if err != nil {
			t.Errorf("load in listener: %v", err)
		}
		if len(loaded.Tasks) != len(c.Tasks) {
			t.Errorf("listener ran before persist: %d vs %d", len(loaded.Tasks), len(c.Tasks))
		}
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
	})

	task := mustCreate(t, s, "a", "2026-03-10")
	_, _, _ = s.ToggleComplete(t.Context(), task.ID)
	cancel()
	_, _ = s.Delete(t.Context(), task.ID)

	mu.Lock()
	defer mu.Unlock()
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes before cancel, got %d", len(changes))
	}
	if changes[0].Kind != ChangeCreated || changes[1].Kind != ChangeToggled || changes[1].TaskID != task.ID {
		t.Fatalf("unexpected changes %#v", changes)
	}
}

type failingRepo struct {
	loadErr error
	saveErr error
	saves   int
}

func (f *failingRepo) Load(context.Context) (storage.LoadResult, error) {
	return storage.LoadResult{}, f.loadErr
}

func (f *failingRepo) Save(context.Context, []model.Task) error {
	f.saves++
	return f.saveErr
}

func TestOpenToleratesUnreadableStorage(t *testing.T) {
	repo := &failingRepo{loadErr: storage.ErrMalformed}
	s, err := Open(t.Context(), repo)
	if err != nil {
		t.Fatalf("open must not fail on load errors: %v", err)
	}
	if snap := s.Snapshot(); snap == nil || len(snap) != 0 {
		t.Fatalf("expected empty list, got %#v", snap)
	}
}

type countingObserver struct {
	mutations     map[ChangeKind]int
	persistErrors int
	total, done   int
}

func (c *countingObserver) Mutation(kind ChangeKind) { c.mutations[kind]++ }
func (c *countingObserver) PersistError()            { c.persistErrors++ }
func (c *countingObserver) Tasks(total, done int)    { c.total, c.done = total, done }

func TestPersistFailureKeepsMemoryChange(t *testing.T) {
	repo := &failingRepo{saveErr: errors.New("disk full")}
	obs := &countingObserver{mutations: map[ChangeKind]int{}}
	s, err := Open(t.Context(), repo, WithClock(scheduler.NewManualClock(base)), WithObserver(obs))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	notified := 0
	s.Subscribe(func(Change) { notified++ })

	task, err := s.Create(t.Context(), Fields{Title: "a", Date: "2026-03-10"})
	if !errors.Is(err, ErrPersist) {
		t.Fatalf("expected ErrPersist, got %v", err)
	}
	if task.ID == 0 || len(s.Snapshot()) != 1 {
		t.Fatalf("in-memory create must stand")
	}
	if notified != 1 {
		t.Fatalf("listeners must still hear about the change, got %d", notified)
	}
	if obs.persistErrors != 1 || obs.mutations[ChangeCreated] != 1 || obs.total != 1 {
		t.Fatalf("unexpected observer state %#v", obs)
	}
}

func TestCloseFlushesAndRejectsLaterCalls(t *testing.T) {
	repo := &failingRepo{saveErr: errors.New("disk full")}
	s, _ := Open(t.Context(), repo, WithClock(scheduler.NewManualClock(base)))
	if _, err := s.Create(t.Context(), Fields{Title: "a", Date: "2026-03-10"}); !errors.Is(err, ErrPersist) {
		t.Fatalf("expected ErrPersist, got %v", err)
	}
	repo.saveErr = nil
	saves := repo.saves

	if err := s.Close(t.Context()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if repo.saves != saves+1 {
		t.Fatalf("close must retry the failed write once")
	}
	if err := s.Close(t.Context()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed on second close, got %v", err)
	}
	if _, err := s.Create(t.Context(), Fields{Title: "b", Date: "2026-03-10"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := s.Delete(t.Context(), 1); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestConcurrentCreatesKeepIDsUnique(t *testing.T) {
	s, _, _ := newTestStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				if _, err := s.Create(context.Background(), Fields{Title: "c", Date: "2026-03-10"}); err != nil {
					t.Errorf("create: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	if len(snap) != 200 {
		t.Fatalf("expected 200 tasks, got %d", len(snap))
	}
	seen := map[int64]bool{}
	for _, task := range snap {
		if seen[task.ID] {
			t.Fatalf("duplicate id %d", task.ID)
		}
		seen[task.ID] = true
	}
}

func TestReloadPicksUpOutsideWrites(t *testing.T) {
	s, repo, _ := newTestStore(t)
	mustCreate(t, s, "mine", "2026-03-10")

	other, err := Open(t.Context(), repo, WithClock(scheduler.NewManualClock(base.Add(time.Hour))))
	if err != nil {
		t.Fatalf("open second store: %v", err)
	}
	external := mustCreate(t, other, "theirs", "2026-03-11")

	var kinds []ChangeKind
	s.Subscribe(func(c Change) { kinds = append(kinds, c.Kind) })
	if err := s.Reload(t.Context()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, ok := s.Get(external.ID); !ok || len(s.Snapshot()) != 2 {
		t.Fatalf("reload should see the outside task, got %#v", s.Snapshot())
	}
	if len(kinds) != 1 || kinds[0] != ChangeLoaded {
		t.Fatalf("expected one loaded change, got %v", kinds)
	}
	next := mustCreate(t, s, "after", "2026-03-10")
	if next.ID <= external.ID {
		t.Fatalf("ids must stay above reloaded ones: %d <= %d", next.ID, external.ID)
	}
}

func TestReloadFailureKeepsList(t *testing.T) {
	repo := &failingRepo{}
	s, _ := Open(t.Context(), repo, WithClock(scheduler.NewManualClock(base)))
	mustCreate(t, s, "a", "2026-03-10")
	repo.loadErr = storage.ErrMalformed
	if err := s.Reload(t.Context()); !errors.Is(err, storage.ErrMalformed) {
		t.Fatalf("expected malformed error, got %v", err)
	}
	if len(s.Snapshot()) != 1 {
		t.Fatal("failed reload must keep the list")
	}
}

func TestCloseWithoutPendingChangesDoesNotWrite(t *testing.T) {
	repo := &failingRepo{}
	s, _ := Open(t.Context(), repo, WithClock(scheduler.NewManualClock(base)))
	if err := s.Close(t.Context()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if repo.saves != 0 {
		t.Fatalf("read-only session wrote %d times", repo.saves)
	}

	repo = &failingRepo{}
	s, _ = Open(t.Context(), repo, WithClock(scheduler.NewManualClock(base)))
	mustCreate(t, s, "a", "2026-03-10")
	saves := repo.saves
	if err := s.Close(t.Context()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if repo.saves != saves {
		t.Fatal("close must not rewrite an already persisted list")
	}
}

func TestReloadKeepsRemindedFlags(t *testing.T) {
	kv := storage.NewMemoryKV()
	repo, err := storage.NewTaskRepository(kv, "")
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	watcher, _ := Open(t.Context(), repo, WithClock(scheduler.NewManualClock(base)))
	due := mustCreate(t, watcher, "due", "2026-03-10")
	other := mustCreate(t, watcher, "other", "2026-03-12")

	board, _ := Open(t.Context(), repo, WithClock(scheduler.NewManualClock(base)))

	if ok, err := watcher.MarkReminded(t.Context(), due.ID); !ok || err != nil {
		t.Fatalf("mark reminded: %v %v", ok, err)
	}
	// The board still holds reminded=false and writes it back.
	if _, _, err := board.ToggleComplete(t.Context(), other.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	if err := watcher.Reload(t.Context()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, _ := watcher.Get(due.ID)
	if !got.Reminded {
		t.Fatal("reload must not clear a reminded flag")
	}
	if toggled, _ := watcher.Get(other.ID); !toggled.Completed {
		t.Fatal("reload must still pick up the other writer's change")
	}
	if ok, _ := watcher.MarkReminded(t.Context(), due.ID); ok {
		t.Fatal("task must not be claimable twice")
	}

	// The merged flag went back to storage, so the board sees it too.
	if err := board.Reload(t.Context()); err != nil {
		t.Fatalf("board reload: %v", err)
	}
	if got, _ := board.Get(due.ID); !got.Reminded {
		t.Fatal("board should see the reminded flag after reloading")
	}
}
