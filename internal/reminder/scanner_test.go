package reminder

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/taskboard/internal/model"
	"github.com/sandeepkv93/taskboard/internal/scheduler"
	"github.com/sandeepkv93/taskboard/internal/storage"
	"github.com/sandeepkv93/taskboard/internal/store"
)

type recordingNotifier struct {
	got []model.Notification
	err error
}

func (r *recordingNotifier) Notify(_ context.Context, n model.Notification) error {
	r.got = append(r.got, n)
	return r.err
}

type countingChime struct {
	plays int
	err   error
}

func (c *countingChime) Play(context.Context) error {
	c.plays++
	return c.err
}

func newStore(t *testing.T, clock scheduler.Clock) *store.Store {
	t.Helper()
	repo, err := storage.NewTaskRepository(storage.NewMemoryKV(), "")
	require.NoError(t, err)
	s, err := store.Open(t.Context(), repo, store.WithClock(clock))
	require.NoError(t, err)
	return s
}

func TestScanFiresOncePerTaskDueToday(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	// 21:00 UTC on the 9th is already the 10th at UTC+5.
	clock := scheduler.NewManualClock(time.Date(2026, 3, 9, 21, 0, 0, 0, time.UTC))
	s := newStore(t, clock)

	due, err := s.Create(t.Context(), store.Fields{Title: "pay rent", Date: "2026-03-10"})
	require.NoError(t, err)
	_, err = s.Create(t.Context(), store.Fields{Title: "yesterday", Date: "2026-03-09"})
	require.NoError(t, err)
	done, err := s.Create(t.Context(), store.Fields{Title: "done already", Date: "2026-03-10"})
	require.NoError(t, err)
	_, _, err = s.ToggleComplete(t.Context(), done.ID)
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	chime := &countingChime{}
	scanner := &Scanner{Store: s, Clock: clock, Location: loc, Notifier: notifier, Chime: chime}

	fired := scanner.Scan(t.Context())
	require.Len(t, fired, 1)
	assert.Equal(t, due.ID, fired[0].TaskID)
	assert.Equal(t, "DEADLINE TODAY: pay rent", fired[0].Message())
	assert.NoError(t, fired[0].Validate())
	assert.Len(t, notifier.got, 1)
	assert.Equal(t, 1, chime.plays)
	assert.Equal(t, "2026-03-10", scanner.Today())

	got, ok := s.Get(due.ID)
	require.True(t, ok)
	assert.True(t, got.Reminded)

	clock.Advance(10 * time.Second)
	assert.Empty(t, scanner.Scan(t.Context()), "second scan must not fire again")
	assert.Len(t, notifier.got, 1)
}

func TestScanIgnoresChimeAndNotifierFailures(t *testing.T) {
	clock := scheduler.NewManualClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	s := newStore(t, clock)
	_, err := s.Create(t.Context(), store.Fields{Title: "a", Date: "2026-03-10"})
	require.NoError(t, err)
	_, err = s.Create(t.Context(), store.Fields{Title: "b", Date: "2026-03-10"})
	require.NoError(t, err)

	notifier := &recordingNotifier{err: errors.New("no display")}
	chime := &countingChime{err: errors.New("no audio device")}
	scanner := &Scanner{Store: s, Clock: clock, Location: time.UTC, Notifier: notifier, Chime: chime}

	fired := scanner.Scan(t.Context())
	assert.Len(t, fired, 2)
	assert.Equal(t, 2, chime.plays)
	for _, task := range s.Snapshot() {
		assert.True(t, task.Reminded, "task %q should be reminded", task.Title)
	}
}

func TestScanPicksUpTasksWhenTheDayRollsOver(t *testing.T) {
	clock := scheduler.NewManualClock(time.Date(2026, 3, 10, 23, 59, 55, 0, time.UTC))
	s := newStore(t, clock)
	_, err := s.Create(t.Context(), store.Fields{Title: "tomorrow", Date: "2026-03-11"})
	require.NoError(t, err)

	scanner := &Scanner{Store: s, Clock: clock, Location: time.UTC}
	assert.Empty(t, scanner.Scan(t.Context()))

	clock.Advance(10 * time.Second)
	assert.Len(t, scanner.Scan(t.Context()), 1)
}

func TestScanWithoutStoreIsNoop(t *testing.T) {
	scanner := &Scanner{}
	assert.Nil(t, scanner.Scan(context.Background()))
}

func TestParseChime(t *testing.T) {
	var buf bytes.Buffer

	c, err := ParseChime("off", &buf)
	require.NoError(t, err)
	assert.IsType(t, NoopChime{}, c)

	c, err = ParseChime(" Bell ", &buf)
	require.NoError(t, err)
	require.NoError(t, c.Play(context.Background()))
	assert.Equal(t, "\a", buf.String())

	c, err = ParseChime("exec:paplay /usr/share/sounds/bell.oga", &buf)
	require.NoError(t, err)
	assert.Equal(t, ExecChime{Command: "paplay", Args: []string{"/usr/share/sounds/bell.oga"}}, c)

	_, err = ParseChime("exec:  ", &buf)
	assert.Error(t, err)
	_, err = ParseChime("trumpet", &buf)
	assert.Error(t, err)
}

func TestMultiNotifierJoinsErrors(t *testing.T) {
	ok := &recordingNotifier{}
	bad := &recordingNotifier{err: errors.New("boom")}
	multi := MultiNotifier{ok, nil, bad, NoopNotifier{}}

	n := model.NewNotification(model.Task{ID: 1, Title: "x", Date: "2026-03-10"}, time.Now())
	err := multi.Notify(context.Background(), n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Len(t, ok.got, 1)
	assert.Len(t, bad.got, 1)
}

func TestEscapeAppleScript(t *testing.T) {
	assert.Equal(t, `say \"hi\" \\ bye`, escapeAppleScript(`say "hi" \ bye`))
}
