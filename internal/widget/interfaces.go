package widget

import (
	"time"

	"github.com/Iron-Ham/homeclock/internal/clock"
)

// Surface is the opaque scroll view an instance renders into.
type Surface any

// Handle is the control surface of one remotely-rendered widget instance.
type Handle interface {
	ProviderID() clock.ProviderID

	// SetUpdateCallback installs fn to run on every content update from the
	// provider. fn returns false to stop receiving updates. nil removes it.
	SetUpdateCallback(fn func() bool)
	// SetScrollCallback installs fn to receive scroll hold (true) and
	// release (false) requests. nil removes it.
	SetScrollCallback(fn func(hold bool))

	FreezeVisibility()
	ThawVisibility()
	VisibilityFrozen() bool

	// Resume tells the provider its instance is live.
	Resume()
	// Activate restarts a faulted provider in place.
	Activate() error
	// Faulted reports whether the provider behind the instance has faulted.
	Faulted() bool

	// Move places the instance off-screen or back on-screen.
	Move(offScreen bool)
	// Destroy releases the instance. The provider later reports deletion.
	Destroy()
}

// Page is the view an instance was embedded into.
type Page interface {
	clock.View
	// Item returns the embedded instance.
	Item() Handle
}

// Foreground is the shell's window state.
type Foreground int

const (
	// ForegroundActive means the home screen is visible.
	ForegroundActive Foreground = iota
	// ForegroundBackground means the home screen is hidden or paused.
	ForegroundBackground
)

// Presenter is the presentation layer the coordinator embeds into.
type Presenter interface {
	// CurrentScroller returns the scroll view to render into, or nil.
	CurrentScroller() Surface
	Embed(s Surface, h Handle) (Page, error)
	ForegroundState() Foreground
}

// Resolver maps application package names to provider ids.
type Resolver interface {
	Resolve(pkg string) (clock.ProviderID, bool)
}

// ProcessControl starts and stops provider processes.
type ProcessControl interface {
	Launch(id clock.ProviderID, content string) (pid int, err error)
	Terminate(pid int) error
}

// ContentUpdater asks a running provider to refresh with new content.
type ContentUpdater interface {
	TriggerUpdate(id clock.ProviderID, content string) error
}

// Factory creates widget instances.
type Factory interface {
	CreateInstance(s Surface, id clock.ProviderID, content string, period time.Duration) (Handle, error)
}

// Status is the status carried by a provider notification.
type Status int

const (
	// StatusNone means success or an ordinary teardown.
	StatusNone Status = iota
	// StatusFault means the provider faulted.
	StatusFault
	// StatusError means the operation failed for another reason.
	StatusError
)

// String returns a label for logs and metrics.
func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusFault:
		return "fault"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Notification is an asynchronous report from the provider runtime.
type Notification struct {
	ProviderID clock.ProviderID
	Status     Status
	Handle     Handle
}

// NotificationSource delivers provider notifications. Callbacks must be
// invoked on the coordinator's loop.
type NotificationSource interface {
	OnCreate(fn func(Notification))
	OnDelete(fn func(Notification))
}

// Slots exposes the clock service's candidate and attached clocks.
// *clock.Manager satisfies it.
type Slots interface {
	Candidate() *clock.Clock
	Attached() *clock.Clock
}

// Listener receives upcalls from the coordinator.
type Listener interface {
	// ViewReady reports that a waiting candidate can now be created.
	ViewReady(c *clock.Clock)
	// ProviderFatal reports that the attached clock's provider ran out of
	// retries. It fires at most once per instance.
	ProviderFatal(c *clock.Clock)
	// CreationFault reports that the provider failed to create the
	// candidate's instance.
	CreationFault(c *clock.Clock, err error)
	// ScrollHold forwards an instance's request to hold or release scrolling.
	ScrollHold(hold bool)
}
