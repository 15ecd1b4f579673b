package scheduler

import (
	"errors"
	"testing"
	"time"
)

func TestEngineFiresImmediatelyThenPeriodically(t *testing.T) {
	engine := NewEngine(8, SystemClock{})
	engine.Start()
	defer engine.Stop()

	if err := engine.Every("reminders", 30*time.Millisecond); err != nil {
		t.Fatalf("register job: %v", err)
	}

	first := waitTick(t, engine.C(), 20*time.Millisecond)
	if first.Job != "reminders" || first.Seq != 1 {
		t.Fatalf("unexpected first tick: %+v", first)
	}
	second := waitTick(t, engine.C(), time.Second)
	if second.Seq != 2 {
		t.Fatalf("expected second tick seq 2, got %+v", second)
	}
	if !second.At.After(first.At) {
		t.Fatalf("expected ticks in time order: %s then %s", first.At, second.At)
	}
}

func TestEngineInterleavesJobsByDueTime(t *testing.T) {
	engine := NewEngine(32, SystemClock{})
	engine.Start()
	defer engine.Stop()

	if err := engine.Every("slow", time.Hour); err != nil {
		t.Fatalf("register slow: %v", err)
	}
	if err := engine.Every("fast", 10*time.Millisecond); err != nil {
		t.Fatalf("register fast: %v", err)
	}

	counts := map[string]int{}
	deadline := time.After(time.Second)
	for counts["fast"] < 4 {
		select {
		case tick := <-engine.C():
			counts[tick.Job]++
		case <-deadline:
			t.Fatalf("timed out, counts=%v", counts)
		}
	}
	if counts["slow"] != 1 {
		t.Fatalf("expected exactly one slow tick, got %d", counts["slow"])
	}
}

func TestEngineCancelStopsJob(t *testing.T) {
	engine := NewEngine(8, SystemClock{})
	engine.Start()
	defer engine.Stop()

	if err := engine.Every("clock", 10*time.Millisecond); err != nil {
		t.Fatalf("register: %v", err)
	}
	waitTick(t, engine.C(), time.Second)
	if !engine.Cancel("clock") {
		t.Fatal("expected cancel to find job")
	}
	if engine.Cancel("clock") {
		t.Fatal("expected second cancel to be a no-op")
	}

	// Drain anything emitted before the cancel landed.
	time.Sleep(30 * time.Millisecond)
	for len(engine.C()) > 0 {
		<-engine.C()
	}
	select {
	case tick := <-engine.C():
		t.Fatalf("unexpected tick after cancel: %+v", tick)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestEngineStopClosesChannel(t *testing.T) {
	engine := NewEngine(1, nil)
	engine.Start()
	if err := engine.Every("clock", time.Hour); err != nil {
		t.Fatalf("register: %v", err)
	}
	engine.Stop()
	engine.Stop()

	for range engine.C() {
	}
	if err := engine.Every("late", time.Second); !errors.Is(err, ErrEngineStopped) {
		t.Fatalf("expected ErrEngineStopped, got %v", err)
	}
}

func TestEngineStopBeforeStart(t *testing.T) {
	engine := NewEngine(1, nil)
	engine.Stop()
	if _, ok := <-engine.C(); ok {
		t.Fatal("expected closed channel")
	}
	engine.Start()
}

func TestEveryValidatesArguments(t *testing.T) {
	engine := NewEngine(1, nil)
	if err := engine.Every("", time.Second); !errors.Is(err, ErrInvalidJobName) {
		t.Fatalf("expected ErrInvalidJobName, got %v", err)
	}
	if err := engine.Every("clock", 0); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
	if err := engine.Every("clock", time.Second); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := engine.Every("clock", time.Second); !errors.Is(err, ErrDuplicateJob) {
		t.Fatalf("expected ErrDuplicateJob, got %v", err)
	}
}

func TestPopDueSkipsMissedPeriods(t *testing.T) {
	start := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)
	clock := NewManualClock(start)
	engine := NewEngine(4, clock)
	if err := engine.Every("reminders", 10*time.Second); err != nil {
		t.Fatalf("register: %v", err)
	}

	ticks := engine.popDue(clock.Now())
	if len(ticks) != 1 || ticks[0].Seq != 1 {
		t.Fatalf("expected one immediate tick, got %+v", ticks)
	}
	if ticks := engine.popDue(clock.Advance(5 * time.Second)); len(ticks) != 0 {
		t.Fatalf("expected no tick before interval, got %+v", ticks)
	}

	// A long stall yields a single tick, not one per missed period.
	ticks = engine.popDue(clock.Advance(95 * time.Second))
	if len(ticks) != 1 || ticks[0].Seq != 2 {
		t.Fatalf("expected a single catch-up tick, got %+v", ticks)
	}
	next, ok := engine.peek()
	if !ok || !next.Equal(start.Add(110*time.Second)) {
		t.Fatalf("unexpected next due time: %s", next)
	}
}

func TestEngineNonBlockingDropsWhenConsumerIsSlow(t *testing.T) {
	engine := NewEngine(1, SystemClock{})
	engine.Start()
	defer engine.Stop()

	if err := engine.Every("clock", 2*time.Millisecond); err != nil {
		t.Fatalf("register: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	if engine.Dropped() == 0 {
		t.Fatalf("expected dropped ticks > 0, got %d", engine.Dropped())
	}
}

func waitTick(t *testing.T, ch <-chan Tick, timeout time.Duration) Tick {
	t.Helper()
	select {
	case tick := <-ch:
		return tick
	case <-time.After(timeout + 200*time.Millisecond):
		t.Fatalf("timed out waiting for tick")
		return Tick{}
	}
}
