package widget

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Iron-Ham/homeclock/internal/clock"
	"github.com/Iron-Ham/homeclock/internal/event"
	"github.com/Iron-Ham/homeclock/internal/loop"
)

// fakeHandle records every control call made on a widget instance.
type fakeHandle struct {
	id          clock.ProviderID
	content     string
	update      func() bool
	scroll      func(bool)
	frozen      bool
	thaws       int
	resumes     int
	activations int
	activateErr error
	faulted     bool
	offScreen   bool
	destroyed   int
}

func (h *fakeHandle) ProviderID() clock.ProviderID     { return h.id }
func (h *fakeHandle) SetUpdateCallback(fn func() bool) { h.update = fn }
func (h *fakeHandle) SetScrollCallback(fn func(bool))  { h.scroll = fn }
func (h *fakeHandle) FreezeVisibility()                { h.frozen = true }
func (h *fakeHandle) VisibilityFrozen() bool           { return h.frozen }
func (h *fakeHandle) Resume()                          { h.resumes++ }
func (h *fakeHandle) Faulted() bool                    { return h.faulted }
func (h *fakeHandle) Move(offScreen bool)              { h.offScreen = offScreen }
func (h *fakeHandle) Destroy()                         { h.destroyed++ }

func (h *fakeHandle) ThawVisibility() {
	h.frozen = false
	h.thaws++
}

func (h *fakeHandle) Activate() error {
	h.activations++
	h.faulted = false
	return h.activateErr
}

// sendUpdates delivers n content updates, stopping when the callback asks.
func (h *fakeHandle) sendUpdates(n int) {
	for i := 0; i < n; i++ {
		fn := h.update
		if fn == nil || !fn() {
			return
		}
	}
}

type fakeFactory struct {
	handles []*fakeHandle
	err     error
	periods []time.Duration
}

func (f *fakeFactory) CreateInstance(_ Surface, id clock.ProviderID, content string, period time.Duration) (Handle, error) {
	if f.err != nil {
		return nil, f.err
	}
	h := &fakeHandle{id: id, content: content}
	f.handles = append(f.handles, h)
	f.periods = append(f.periods, period)
	return h, nil
}

func (f *fakeFactory) last() *fakeHandle {
	if len(f.handles) == 0 {
		return nil
	}
	return f.handles[len(f.handles)-1]
}

type fakePage struct {
	item      Handle
	destroyed int
}

func (p *fakePage) Item() Handle { return p.item }

func (p *fakePage) Destroy() {
	p.destroyed++
	if p.item != nil {
		p.item.Destroy()
	}
}

type fakePresenter struct {
	surface    Surface
	embedErr   error
	background bool
	pages      []*fakePage
}

func (p *fakePresenter) CurrentScroller() Surface { return p.surface }

func (p *fakePresenter) Embed(_ Surface, h Handle) (Page, error) {
	if p.embedErr != nil {
		return nil, p.embedErr
	}
	page := &fakePage{item: h}
	p.pages = append(p.pages, page)
	return page, nil
}

func (p *fakePresenter) ForegroundState() Foreground {
	if p.background {
		return ForegroundBackground
	}
	return ForegroundActive
}

type fakeResolver map[string]clock.ProviderID

func (r fakeResolver) Resolve(pkg string) (clock.ProviderID, bool) {
	id, ok := r[pkg]
	return id, ok
}

type launchCall struct {
	id      clock.ProviderID
	content string
}

type fakeProcesses struct {
	launches   []launchCall
	terminated []int
	launchErr  error
	nextPID    int
}

func (p *fakeProcesses) Launch(id clock.ProviderID, content string) (int, error) {
	p.launches = append(p.launches, launchCall{id: id, content: content})
	if p.launchErr != nil {
		return 0, p.launchErr
	}
	p.nextPID++
	return 1000 + p.nextPID, nil
}

func (p *fakeProcesses) Terminate(pid int) error {
	p.terminated = append(p.terminated, pid)
	return nil
}

type fakeUpdater struct {
	updates []launchCall
	err     error
}

func (u *fakeUpdater) TriggerUpdate(id clock.ProviderID, content string) error {
	u.updates = append(u.updates, launchCall{id: id, content: content})
	return u.err
}

type fakeSource struct {
	create        func(Notification)
	delete        func(Notification)
	registrations int
}

func (s *fakeSource) OnCreate(fn func(Notification)) {
	s.registrations++
	s.create = fn
}

func (s *fakeSource) OnDelete(fn func(Notification)) {
	s.registrations++
	s.delete = fn
}

type creationFault struct {
	clock *clock.Clock
	err   error
}

type fakeListener struct {
	ready   []*clock.Clock
	fatal   []*clock.Clock
	faults  []creationFault
	holds   []bool
	onReady func(*clock.Clock)
}

func (l *fakeListener) ViewReady(c *clock.Clock) {
	l.ready = append(l.ready, c)
	if l.onReady != nil {
		l.onReady(c)
	}
}

func (l *fakeListener) ProviderFatal(c *clock.Clock) { l.fatal = append(l.fatal, c) }
func (l *fakeListener) ScrollHold(hold bool)         { l.holds = append(l.holds, hold) }

func (l *fakeListener) CreationFault(c *clock.Clock, err error) {
	l.faults = append(l.faults, creationFault{clock: c, err: err})
}

const (
	pkgA = "com.example.clock.a"
	pkgB = "com.example.clock.b"
	idA  = clock.ProviderID("clock-a")
	idB  = clock.ProviderID("clock-b")
)

// harness wires a Coordinator to fakes and a fake clock. It also plays the
// role of the clock service for candidate bookkeeping.
type harness struct {
	t         *testing.T
	fc        *clockwork.FakeClock
	loop      *loop.Loop
	co        *Coordinator
	mgr       *clock.Manager
	factory   *fakeFactory
	presenter *fakePresenter
	procs     *fakeProcesses
	updater   *fakeUpdater
	source    *fakeSource
	listener  *fakeListener
	events    []event.Event
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()

	h := &harness{
		t:         t,
		fc:        clockwork.NewFakeClock(),
		mgr:       clock.NewManager(),
		factory:   &fakeFactory{},
		presenter: &fakePresenter{surface: "scroller"},
		procs:     &fakeProcesses{},
		updater:   &fakeUpdater{},
		source:    &fakeSource{},
		listener:  &fakeListener{},
	}
	h.loop = loop.New(h.fc, nil)

	bus := event.NewBus(nil)
	bus.SubscribeAll(func(e event.Event) { h.events = append(h.events, e) })

	co, err := NewCoordinator(cfg, Deps{
		Resolver:      fakeResolver{pkgA: idA, pkgB: idB},
		Processes:     h.procs,
		Updater:       h.updater,
		Factory:       h.factory,
		Notifications: h.source,
		Presenter:     h.presenter,
		Slots:         h.mgr,
		Listener:      h.listener,
		Loop:          h.loop,
		Bus:           bus,
	})
	if err != nil {
		t.Fatalf("NewCoordinator() error = %v", err)
	}
	h.co = co
	return h
}

// request installs a new candidate the way the clock service does.
func (h *harness) request(pkg string) *clock.Clock {
	c := clock.New(pkg, FamilyName, "content")
	if prev := h.mgr.SetCandidate(c); prev != nil && prev != h.mgr.Attached() {
		prev.State = clock.StateUnprepared
	}
	return c
}

func (h *harness) prepare(c *clock.Clock) clock.Result {
	h.t.Helper()
	res, err := h.co.Prepare(c)
	if err != nil {
		h.t.Fatalf("Prepare(%s) error = %v", c.PackageName, err)
	}
	return res
}

func (h *harness) create(c *clock.Clock) {
	h.t.Helper()
	res, err := h.co.Create(c)
	if err != nil || !res.OK() {
		h.t.Fatalf("Create(%s) = %v, %v", c.PackageName, res, err)
	}
}

func (h *harness) notifyCreate(id clock.ProviderID, status Status) {
	h.t.Helper()
	if h.source.create == nil {
		h.t.Fatal("create hook not registered")
	}
	h.source.create(Notification{ProviderID: id, Status: status})
}

func (h *harness) notifyDelete(id clock.ProviderID, status Status) {
	h.t.Helper()
	if h.source.delete == nil {
		h.t.Fatal("delete hook not registered")
	}
	h.source.delete(Notification{ProviderID: id, Status: status})
}

// notifyDeleteFrom reports deletion for one specific instance.
func (h *harness) notifyDeleteFrom(fh *fakeHandle, status Status) {
	h.t.Helper()
	if h.source.delete == nil {
		h.t.Fatal("delete hook not registered")
	}
	h.source.delete(Notification{ProviderID: fh.id, Status: status, Handle: fh})
}

// attach runs a clock through prepare, confirmation and create and makes it
// the attached clock.
func (h *harness) attach(pkg string) *clock.Clock {
	h.t.Helper()
	c := h.request(pkg)
	h.prepare(c)
	h.notifyCreate(c.ProviderID, StatusNone)
	h.create(c)
	h.mgr.Attach(c)
	return c
}

// advance moves the fake clock and runs everything that became due.
func (h *harness) advance(d time.Duration) {
	h.fc.Advance(d)
	h.loop.RunPending()
}

// owners counts the tracking collections holding inst.
func (h *harness) owners(inst *Instance) int {
	n := 0
	for _, p := range h.co.tracker.creating {
		if p == inst {
			n++
		}
	}
	for _, l := range h.co.tracker.embedded {
		if l == inst {
			n++
		}
	}
	if h.co.cache.Peek() == inst {
		n++
	}
	return n
}

func (h *harness) countEvents(eventType string) int {
	n := 0
	for _, e := range h.events {
		if e.EventType() == eventType {
			n++
		}
	}
	return n
}

var errBoom = errors.New("boom")
