package widget

import "github.com/Iron-Ham/homeclock/internal/clock"

// owner names the collection currently holding an Instance.
type owner int

const (
	ownerNone owner = iota
	ownerPending
	ownerCache
	ownerView
)

func (o owner) String() string {
	switch o {
	case ownerPending:
		return "pending"
	case ownerCache:
		return "cache"
	case ownerView:
		return "view"
	default:
		return "none"
	}
}

// Instance is one widget instance plus the coordinator's bookkeeping for it.
type Instance struct {
	handle    Handle
	id        clock.ProviderID
	retry     RetryBudget
	countdown *Countdown

	owner     owner
	offScreen bool
	confirmed bool
	fatal     bool
	destroyed bool
}

func newInstance(h Handle, id clock.ProviderID, retries int) *Instance {
	return &Instance{
		handle: h,
		id:     id,
		retry:  NewRetryBudget(retries),
	}
}

// ProviderID returns the provider the instance belongs to.
func (i *Instance) ProviderID() clock.ProviderID {
	return i.id
}

// Handle returns the underlying widget handle.
func (i *Instance) Handle() Handle {
	return i.handle
}

// RetryLeft returns the remaining reactivation budget.
func (i *Instance) RetryLeft() int {
	return i.retry.Remaining()
}

// OffScreen reports whether the instance was moved off-screen.
func (i *Instance) OffScreen() bool {
	return i.offScreen
}

// Confirmed reports whether the provider acknowledged creation.
func (i *Instance) Confirmed() bool {
	return i.confirmed
}

// Fatal reports whether the instance exhausted its retry budget.
func (i *Instance) Fatal() bool {
	return i.fatal
}

// owns reports whether a notification carrying h is about this instance.
// Notifications without a handle match by provider id alone.
func (i *Instance) owns(h Handle) bool {
	return h == nil || i.handle == h
}

// disarm stops the readiness countdown and detaches the update callback.
func (i *Instance) disarm() {
	if i.countdown != nil {
		i.countdown.Cancel()
		i.countdown = nil
	}
	i.handle.SetUpdateCallback(nil)
}

// destroy disarms and releases the instance. It is idempotent.
func (i *Instance) destroy() {
	if i.destroyed {
		return
	}
	i.disarm()
	i.handle.SetScrollCallback(nil)
	i.owner = ownerNone
	i.destroyed = true
	i.handle.Destroy()
}
