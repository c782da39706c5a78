// Package loop provides the single-threaded cooperative event loop that every
// clock lifecycle operation, provider notification and timer callback runs on.
//
// Work is submitted with Post from any goroutine and executed in FIFO order
// by the goroutine running Run. Timers created with AfterFunc fire on the same
// goroutine, so state touched only from loop tasks needs no locking.
//
// Time is read through a clockwork.Clock. Tests use a fake clock, advance it,
// and call RunPending to execute everything that became due:
//
//	fc := clockwork.NewFakeClock()
//	l := loop.New(fc, nil)
//	l.AfterFunc(2*time.Second, fire)
//	fc.Advance(2 * time.Second)
//	l.RunPending()
package loop

import (
	"container/heap"
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Iron-Ham/homeclock/internal/logging"
)

// idleWait bounds how long Run sleeps when nothing is scheduled.
const idleWait = time.Hour

// Loop is a single-threaded task queue with loop-affine timers.
type Loop struct {
	clock  clockwork.Clock
	logger *logging.Logger

	mu     sync.Mutex
	queue  []func()
	timers timerHeap
	seq    uint64
	wake   chan struct{}
}

// New creates a loop reading time from clock. A nil clock means the real clock.
func New(clock clockwork.Clock, logger *logging.Logger) *Loop {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Loop{
		clock:  clock,
		logger: logger,
		wake:   make(chan struct{}, 1),
	}
}

// Clock returns the clock the loop schedules against.
func (l *Loop) Clock() clockwork.Clock {
	return l.clock
}

// Post enqueues fn to run on the loop. It is safe to call from any goroutine,
// including from inside a running task.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.signal()
}

// AfterFunc schedules fn to run on the loop once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, fn func()) *Timer {
	l.mu.Lock()
	l.seq++
	t := &Timer{
		loop:     l,
		deadline: l.clock.Now().Add(d),
		seq:      l.seq,
		fn:       fn,
	}
	heap.Push(&l.timers, t)
	l.mu.Unlock()
	l.signal()
	return t
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// RunPending executes every queued task and every timer that is due at the
// current clock time, including work scheduled by those tasks while they
// run. It returns the number of callbacks executed.
func (l *Loop) RunPending() int {
	ran := 0
	for {
		fn := l.next()
		if fn == nil {
			return ran
		}
		l.invoke(fn)
		ran++
	}
}

// next pops the next runnable callback: queued tasks first, then due timers.
func (l *Loop) next() func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.queue) > 0 {
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		return fn
	}

	now := l.clock.Now()
	for l.timers.Len() > 0 {
		t := l.timers[0]
		if t.deadline.After(now) {
			return nil
		}
		heap.Pop(&l.timers)
		if t.stopped {
			continue
		}
		t.fired = true
		return t.fn
	}
	return nil
}

// nextDeadline returns how long until the earliest live timer is due.
func (l *Loop) nextDeadline() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.queue) > 0 {
		return 0
	}
	for l.timers.Len() > 0 {
		t := l.timers[0]
		if t.stopped {
			heap.Pop(&l.timers)
			continue
		}
		d := t.deadline.Sub(l.clock.Now())
		if d < 0 {
			d = 0
		}
		return d
	}
	return idleWait
}

func (l *Loop) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil && l.logger != nil {
			l.logger.Error("loop task panicked",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}

// Run processes tasks and timers until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.RunPending()

		wait := l.nextDeadline()
		if wait == 0 {
			continue
		}
		timer := l.clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-l.wake:
			timer.Stop()
		case <-timer.Chan():
		}
	}
}

// Pending reports the number of queued tasks and live timers.
func (l *Loop) Pending() (tasks, timers int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range l.timers {
		if !t.stopped {
			timers++
		}
	}
	return len(l.queue), timers
}

// Timer is a cancellable callback scheduled on a Loop.
type Timer struct {
	loop     *Loop
	deadline time.Time
	seq      uint64
	fn       func()
	index    int
	stopped  bool
	fired    bool
}

// Stop cancels the timer. It returns false if the timer already fired or was
// already stopped. Once Stop returns, the callback will not run.
func (t *Timer) Stop() bool {
	if t == nil {
		return false
	}
	t.loop.mu.Lock()
	defer t.loop.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// timerHeap orders timers by deadline, then by creation order.
type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
