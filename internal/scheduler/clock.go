package scheduler

import (
	"sync"
	"time"
)

// Clock is the single source of wall-clock time for the scheduler, the store
// and the reminder scanner.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock only moves when told to.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(now time.Time) *ManualClock {
	return &ManualClock{now: now}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Set(now time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

type zonedClock struct {
	base Clock
	loc  *time.Location
}

func (z zonedClock) Now() time.Time { return z.base.Now().In(z.loc) }

// InLocation reports base's time in loc. A nil loc returns base unchanged.
func InLocation(base Clock, loc *time.Location) Clock {
	if loc == nil {
		return base
	}
	if base == nil {
		base = SystemClock{}
	}
	return zonedClock{base: base, loc: loc}
}
