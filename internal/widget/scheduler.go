package widget

import (
	"time"

	"github.com/Iron-Ham/homeclock/internal/loop"
)

// Trigger identifies what completed a Countdown.
type Trigger int

const (
	// TriggerRefresh means the provider sent enough content updates.
	TriggerRefresh Trigger = iota
	// TriggerForce means the force timer expired first.
	TriggerForce
)

// String returns a label for logs and metrics.
func (t Trigger) String() string {
	if t == TriggerForce {
		return "force"
	}
	return "refresh"
}

// Countdown completes once after either a number of update signals or a
// timeout, whichever comes first. The other trigger is cancelled.
type Countdown struct {
	remaining int
	timer     *loop.Timer
	done      bool
	onFire    func(Trigger)
}

// StartCountdown arms a countdown on l. onFire runs on the loop exactly once
// unless the countdown is cancelled first. A refresh count of zero or less
// completes on the first update.
func StartCountdown(l *loop.Loop, refresh int, force time.Duration, onFire func(Trigger)) *Countdown {
	c := &Countdown{remaining: refresh, onFire: onFire}
	if force > 0 {
		c.timer = l.AfterFunc(force, c.expire)
	}
	return c
}

// Update records one update signal. It returns false once the countdown no
// longer wants updates.
func (c *Countdown) Update() bool {
	if c.done {
		return false
	}
	c.remaining--
	if c.remaining <= 0 {
		c.finish(TriggerRefresh)
		return false
	}
	return true
}

func (c *Countdown) expire() {
	if c.done {
		return
	}
	c.timer = nil
	c.finish(TriggerForce)
}

func (c *Countdown) finish(tr Trigger) {
	c.done = true
	c.timer.Stop()
	c.timer = nil
	if c.onFire != nil {
		c.onFire(tr)
	}
}

// Cancel stops the countdown. It reports whether it was still armed.
func (c *Countdown) Cancel() bool {
	if c.done {
		return false
	}
	c.done = true
	c.timer.Stop()
	c.timer = nil
	return true
}

// Remaining returns the number of updates still needed.
func (c *Countdown) Remaining() int {
	return c.remaining
}

// Done reports whether the countdown fired or was cancelled.
func (c *Countdown) Done() bool {
	return c.done
}

// RetryBudget bounds how many times a faulted provider is reactivated.
type RetryBudget struct {
	remaining int
}

// NewRetryBudget creates a budget of n reactivations.
func NewRetryBudget(n int) RetryBudget {
	if n < 0 {
		n = 0
	}
	return RetryBudget{remaining: n}
}

// Consume spends one reactivation. It returns false once the budget is
// exhausted, which makes the next fault fatal.
func (b *RetryBudget) Consume() bool {
	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}

// Remaining returns the reactivations left.
func (b *RetryBudget) Remaining() int {
	return b.remaining
}
