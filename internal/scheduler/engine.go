package scheduler

import (
	"container/heap"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrInvalidInterval = errors.New("scheduler: invalid interval")
	ErrInvalidJobName  = errors.New("scheduler: job name is required")
	ErrDuplicateJob    = errors.New("scheduler: job already registered")
	ErrEngineStopped   = errors.New("scheduler: engine stopped")
)

// Tick is emitted each time a periodic job comes due.
type Tick struct {
	Job string
	At  time.Time
	Seq uint64
}

type job struct {
	name     string
	interval time.Duration
	next     time.Time
	seq      uint64
	index    int
}

type jobQueue []*job

func (q jobQueue) Len() int { return len(q) }

func (q jobQueue) Less(i, j int) bool {
	return q[i].next.Before(q[j].next)
}

func (q jobQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *jobQueue) Push(x any) {
	item := x.(*job)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *jobQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[0 : n-1]
	return item
}

// Engine runs named periodic jobs until Stop. A job fires once as soon as it
// is registered and then every interval; ticks missed while the consumer was
// slow are skipped rather than replayed.
type Engine struct {
	mu      sync.Mutex
	clock   Clock
	queue   jobQueue
	jobs    map[string]*job
	out     chan Tick
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	dropped uint64
}

func NewEngine(bufferSize int, clock Clock) *Engine {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Engine{
		clock:  clock,
		queue:  make(jobQueue, 0),
		jobs:   make(map[string]*job),
		out:    make(chan Tick, bufferSize),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

func (e *Engine) C() <-chan Tick {
	return e.out
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started || e.stopped {
		return
	}
	e.started = true
	heap.Init(&e.queue)
	go e.loop()
}

// Stop halts the loop, closes C and waits for the goroutine to exit. It is
// safe to call more than once, and before Start.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	started := e.started
	close(e.stopCh)
	e.mu.Unlock()
	if started {
		<-e.doneCh
		return
	}
	close(e.out)
}

func (e *Engine) Every(name string, interval time.Duration) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidJobName
	}
	if interval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, interval)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrEngineStopped
	}
	if _, ok := e.jobs[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}
	j := &job{name: name, interval: interval, next: e.clock.Now()}
	e.jobs[name] = j
	heap.Push(&e.queue, j)
	e.signalWakeup()
	return nil
}

func (e *Engine) Cancel(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	j, ok := e.jobs[name]
	if !ok {
		return false
	}
	delete(e.jobs, name)
	if j.index >= 0 {
		heap.Remove(&e.queue, j.index)
	}
	e.signalWakeup()
	return true
}

func (e *Engine) Jobs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.jobs))
	for name := range e.jobs {
		out = append(out, name)
	}
	return out
}

func (e *Engine) Dropped() uint64 {
	return atomic.LoadUint64(&e.dropped)
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	var timer *time.Timer
	for {
		next, hasNext := e.peek()
		if !hasNext {
			select {
			case <-e.wakeup:
				continue
			case <-e.stopCh:
				stopTimer(timer)
				return
			}
		}

		wait := next.Sub(e.clock.Now())
		if wait < 0 {
			wait = 0
		}
		timer = resetTimer(timer, wait)

		select {
		case <-timer.C:
			for _, tick := range e.popDue(e.clock.Now()) {
				select {
				case e.out <- tick:
				default:
					atomic.AddUint64(&e.dropped, 1)
				}
			}
		case <-e.wakeup:
			continue
		case <-e.stopCh:
			stopTimer(timer)
			return
		}
	}
}

func (e *Engine) signalWakeup() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

func (e *Engine) peek() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return time.Time{}, false
	}
	return e.queue[0].next, true
}

// popDue emits one tick per due job and moves each job to its next period
// strictly after now.
func (e *Engine) popDue(now time.Time) []Tick {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Tick, 0)
	for len(e.queue) > 0 {
		j := e.queue[0]
		if j.next.After(now) {
			break
		}
		j.seq++
		out = append(out, Tick{Job: j.name, At: now, Seq: j.seq})
		for !j.next.After(now) {
			j.next = j.next.Add(j.interval)
		}
		heap.Fix(&e.queue, 0)
	}
	return out
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
