package provider

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/homeclock/internal/clock"
	"github.com/Iron-Ham/homeclock/internal/logging"
	"github.com/Iron-Ham/homeclock/internal/loop"
	"github.com/Iron-Ham/homeclock/internal/widget"
)

const (
	// DefaultLatency is how long a simulated provider takes to report
	// creation or deletion.
	DefaultLatency = 200 * time.Millisecond
	// DefaultUpdateInterval spaces content updates when neither the
	// behavior nor the factory caller picks a period.
	DefaultUpdateInterval = 100 * time.Millisecond
	// DefaultUpdates is how many content updates a provider sends after
	// creation unless its behavior says otherwise.
	DefaultUpdates = 5
)

// ErrNoSurface is returned when an instance is requested without a surface.
var ErrNoSurface = errors.New("no surface to render into")

// Behavior scripts how a simulated provider responds.
type Behavior struct {
	// CreateStatus is reported in the create notification.
	CreateStatus widget.Status
	// Updates is the number of content updates sent after a successful
	// creation. Negative means none.
	Updates int
	// UpdateInterval spaces the updates. Zero uses the instance's period.
	UpdateInterval time.Duration
	// ActivateFails makes reactivation after a fault fail.
	ActivateFails bool
}

// DefaultBehavior creates successfully and streams DefaultUpdates updates.
func DefaultBehavior() Behavior {
	return Behavior{Updates: DefaultUpdates}
}

// Runtime simulates widget providers on an event loop. It satisfies
// widget.Factory, widget.NotificationSource, widget.ContentUpdater and
// widget.ProcessControl. All methods must run on the loop.
type Runtime struct {
	loop    *loop.Loop
	logger  *logging.Logger
	latency time.Duration

	behaviors map[clock.ProviderID]Behavior
	fallback  Behavior

	createHooks []func(widget.Notification)
	deleteHooks []func(widget.Notification)

	instances []*Instance
	procs     map[int]clock.ProviderID
	nextPID   int
}

// NewRuntime creates a simulated provider runtime.
func NewRuntime(l *loop.Loop, latency time.Duration, logger *logging.Logger) *Runtime {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if latency < 0 {
		latency = 0
	}
	return &Runtime{
		loop:      l,
		logger:    logger.WithComponent("sim_runtime"),
		latency:   latency,
		behaviors: make(map[clock.ProviderID]Behavior),
		fallback:  DefaultBehavior(),
		procs:     make(map[int]clock.ProviderID),
		nextPID:   1000,
	}
}

// SetBehavior scripts the provider id.
func (r *Runtime) SetBehavior(id clock.ProviderID, b Behavior) {
	r.behaviors[id] = b
}

// SetDefaultBehavior scripts every provider without its own behavior.
func (r *Runtime) SetDefaultBehavior(b Behavior) {
	r.fallback = b
}

func (r *Runtime) behavior(id clock.ProviderID) Behavior {
	if b, ok := r.behaviors[id]; ok {
		return b
	}
	return r.fallback
}

// OnCreate registers a create-notification callback.
func (r *Runtime) OnCreate(fn func(widget.Notification)) {
	r.createHooks = append(r.createHooks, fn)
}

// OnDelete registers a delete-notification callback.
func (r *Runtime) OnDelete(fn func(widget.Notification)) {
	r.deleteHooks = append(r.deleteHooks, fn)
}

func (r *Runtime) emit(hooks []func(widget.Notification), n widget.Notification) {
	for _, fn := range slices.Clone(hooks) {
		fn(n)
	}
}

// CreateInstance starts a simulated instance. The provider reports
// creation after the runtime's latency.
func (r *Runtime) CreateInstance(s widget.Surface, id clock.ProviderID, content string, period time.Duration) (widget.Handle, error) {
	if s == nil {
		return nil, ErrNoSurface
	}
	inst := &Instance{
		rt:      r,
		key:     uuid.NewString(),
		id:      id,
		content: content,
		period:  period,
		surface: s,
	}
	r.instances = append(r.instances, inst)
	r.logger.Debug("instance created", "provider_id", id.String(), "instance", inst.key)

	r.loop.AfterFunc(r.latency, func() { r.created(inst) })
	return inst, nil
}

func (r *Runtime) created(inst *Instance) {
	if inst.destroyed {
		return
	}
	b := r.behavior(inst.id)
	r.emit(r.createHooks, widget.Notification{ProviderID: inst.id, Status: b.CreateStatus, Handle: inst})
	if b.CreateStatus != widget.StatusNone {
		return
	}
	r.stream(inst, b.Updates, r.interval(inst, b))
}

func (r *Runtime) interval(inst *Instance, b Behavior) time.Duration {
	switch {
	case b.UpdateInterval > 0:
		return b.UpdateInterval
	case inst.period > 0:
		return inst.period
	default:
		return DefaultUpdateInterval
	}
}

// stream sends n content updates to inst, one per interval.
func (r *Runtime) stream(inst *Instance, n int, every time.Duration) {
	if n <= 0 {
		return
	}
	r.loop.AfterFunc(every, func() {
		if inst.destroyed || inst.faulted {
			return
		}
		inst.update()
		r.stream(inst, n-1, every)
	})
}

// TriggerUpdate stores new content on every live instance of id and sends
// each one an update after the runtime's latency.
func (r *Runtime) TriggerUpdate(id clock.ProviderID, content string) error {
	for _, inst := range r.Instances(id) {
		inst.content = content
		r.stream(inst, 1, r.latency)
	}
	return nil
}

// Launch records a simulated provider process. A provider keeps its pid
// across launches.
func (r *Runtime) Launch(id clock.ProviderID, _ string) (int, error) {
	for pid, pidID := range r.procs {
		if pidID == id {
			return pid, nil
		}
	}
	r.nextPID++
	r.procs[r.nextPID] = id
	return r.nextPID, nil
}

// Terminate forgets a simulated provider process.
func (r *Runtime) Terminate(pid int) error {
	if _, ok := r.procs[pid]; !ok {
		return fmt.Errorf("no provider process %d", pid)
	}
	delete(r.procs, pid)
	return nil
}

// Running reports whether a process is recorded for id.
func (r *Runtime) Running(id clock.ProviderID) bool {
	for _, pidID := range r.procs {
		if pidID == id {
			return true
		}
	}
	return false
}

// Fault crashes every live instance of id. Each reports a fault through
// the delete notification. It returns the number of instances faulted.
func (r *Runtime) Fault(id clock.ProviderID) int {
	live := r.Instances(id)
	for _, inst := range live {
		inst.faulted = true
		r.logger.Info("injecting provider fault", "provider_id", id.String(), "instance", inst.key)
		r.emit(r.deleteHooks, widget.Notification{ProviderID: id, Status: widget.StatusFault, Handle: inst})
	}
	return len(live)
}

// Instances returns the live instances of id in creation order. An empty
// id returns every live instance.
func (r *Runtime) Instances(id clock.ProviderID) []*Instance {
	var out []*Instance
	for _, inst := range r.instances {
		if id == "" || inst.id == id {
			out = append(out, inst)
		}
	}
	return out
}

func (r *Runtime) remove(inst *Instance) {
	r.instances = slices.DeleteFunc(r.instances, func(i *Instance) bool { return i == inst })
	if inst.faulted {
		return
	}
	r.loop.AfterFunc(r.latency, func() {
		r.emit(r.deleteHooks, widget.Notification{ProviderID: inst.id, Status: widget.StatusNone, Handle: inst})
	})
}

// Instance is a simulated widget instance. It satisfies widget.Handle.
type Instance struct {
	rt      *Runtime
	key     string
	id      clock.ProviderID
	content string
	period  time.Duration
	surface widget.Surface

	onUpdate func() bool
	onScroll func(hold bool)
	// gen changes whenever onUpdate is replaced.
	gen uint64

	frozen      bool
	faulted     bool
	offScreen   bool
	resumed     bool
	destroyed   bool
	updates     int
	activations int
}

// Key returns the instance's unique id.
func (i *Instance) Key() string { return i.key }

// ProviderID returns the provider the instance renders.
func (i *Instance) ProviderID() clock.ProviderID { return i.id }

// Content returns the most recent content pushed to the instance.
func (i *Instance) Content() string { return i.content }

// Updates returns how many content updates the instance received.
func (i *Instance) Updates() int { return i.updates }

// Activations returns how many times the instance was reactivated.
func (i *Instance) Activations() int { return i.activations }

// OffScreen reports whether the instance is parked off-screen.
func (i *Instance) OffScreen() bool { return i.offScreen }

// Resumed reports whether the instance was told it is live.
func (i *Instance) Resumed() bool { return i.resumed }

// Destroyed reports whether the instance was released.
func (i *Instance) Destroyed() bool { return i.destroyed }

// SetUpdateCallback installs fn to run on each content update.
func (i *Instance) SetUpdateCallback(fn func() bool) {
	i.onUpdate = fn
	i.gen++
}

// SetScrollCallback installs fn to receive scroll hold requests.
func (i *Instance) SetScrollCallback(fn func(hold bool)) {
	i.onScroll = fn
}

func (i *Instance) update() {
	i.updates++
	fn, gen := i.onUpdate, i.gen
	if fn == nil {
		return
	}
	if !fn() && i.gen == gen {
		i.onUpdate = nil
	}
}

// FreezeVisibility stops visibility changes from reaching the provider.
func (i *Instance) FreezeVisibility() { i.frozen = true }

// ThawVisibility resumes visibility changes.
func (i *Instance) ThawVisibility() { i.frozen = false }

// VisibilityFrozen reports whether visibility is frozen.
func (i *Instance) VisibilityFrozen() bool { return i.frozen }

// Resume marks the instance live.
func (i *Instance) Resume() { i.resumed = true }

// Activate restarts a faulted instance.
func (i *Instance) Activate() error {
	if i.destroyed {
		return fmt.Errorf("instance %s is destroyed", i.key)
	}
	i.activations++
	if i.rt.behavior(i.id).ActivateFails {
		return fmt.Errorf("provider %s refused reactivation", i.id)
	}
	i.faulted = false
	return nil
}

// Faulted reports whether the provider crashed.
func (i *Instance) Faulted() bool { return i.faulted }

// Move parks the instance off-screen or brings it back.
func (i *Instance) Move(offScreen bool) { i.offScreen = offScreen }

// Destroy releases the instance. A healthy provider reports the deletion
// after the runtime's latency; a faulted one never does.
func (i *Instance) Destroy() {
	if i.destroyed {
		return
	}
	i.destroyed = true
	i.onUpdate = nil
	i.onScroll = nil
	i.rt.remove(i)
}

// Scroll delivers a scroll hold or release request from the provider.
func (i *Instance) Scroll(hold bool) {
	if i.onScroll != nil {
		i.onScroll(hold)
	}
}
