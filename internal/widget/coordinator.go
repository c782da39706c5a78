package widget

import (
	"fmt"
	"time"

	"github.com/Iron-Ham/homeclock/internal/clock"
	"github.com/Iron-Ham/homeclock/internal/errors"
	"github.com/Iron-Ham/homeclock/internal/event"
	"github.com/Iron-Ham/homeclock/internal/logging"
	"github.com/Iron-Ham/homeclock/internal/loop"
	"github.com/Iron-Ham/homeclock/internal/metrics"
)

// FamilyName is the clock family served by the Coordinator.
const FamilyName = "dbox"

// Config holds the coordinator's tunables.
type Config struct {
	// RefreshCount is the number of updates that complete a pending instance.
	RefreshCount int
	// ForceTimeout completes a pending instance regardless of updates.
	ForceTimeout time.Duration
	// RetryCount is the reactivation budget given to each new instance.
	RetryCount int
	// UpdatePeriod is passed to the factory for new instances.
	UpdatePeriod time.Duration
	// FirstInstanceDebounce delays first-instance rebuilds after a discard.
	FirstInstanceDebounce time.Duration
}

// DefaultConfig returns the stock tunables.
func DefaultConfig() Config {
	return Config{
		RefreshCount:          5,
		ForceTimeout:          2500 * time.Millisecond,
		RetryCount:            3,
		FirstInstanceDebounce: time.Second,
	}
}

// Deps are the collaborators a Coordinator drives. Processes, Updater, Bus,
// Metrics and Logger are optional.
type Deps struct {
	Resolver      Resolver
	Processes     ProcessControl
	Updater       ContentUpdater
	Factory       Factory
	Notifications NotificationSource
	Presenter     Presenter
	Slots         Slots
	Listener      Listener
	Loop          *loop.Loop
	Bus           *event.Bus
	Metrics       *metrics.Recorder
	Logger        *logging.Logger
}

func (d Deps) validate() error {
	var missing []string
	if d.Resolver == nil {
		missing = append(missing, "Resolver")
	}
	if d.Factory == nil {
		missing = append(missing, "Factory")
	}
	if d.Notifications == nil {
		missing = append(missing, "Notifications")
	}
	if d.Presenter == nil {
		missing = append(missing, "Presenter")
	}
	if d.Slots == nil {
		missing = append(missing, "Slots")
	}
	if d.Listener == nil {
		missing = append(missing, "Listener")
	}
	if d.Loop == nil {
		missing = append(missing, "Loop")
	}
	if len(missing) > 0 {
		return errors.NewValidationError("deps", missing, "required collaborators are nil")
	}
	return nil
}

// Coordinator is the dynamicbox clock family. It satisfies clock.Family.
type Coordinator struct {
	cfg  Config
	deps Deps

	logger  *logging.Logger
	tracker *Tracker
	cache   *FirstInstanceCache

	hooked bool
}

// NewCoordinator creates a coordinator. It does not touch the provider
// until the first Prepare.
func NewCoordinator(cfg Config, deps Deps) (*Coordinator, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Coordinator{
		cfg:     cfg,
		deps:    deps,
		logger:  logger.WithFamily(FamilyName),
		tracker: NewTracker(),
		cache:   NewFirstInstanceCache(deps.Loop.Clock(), cfg.FirstInstanceDebounce),
	}, nil
}

// Name returns the family name.
func (co *Coordinator) Name() string {
	return FamilyName
}

// Tracker exposes the correlation collections for inspection.
func (co *Coordinator) Tracker() *Tracker {
	return co.tracker
}

// Cache exposes the first-instance cache for inspection.
func (co *Coordinator) Cache() *FirstInstanceCache {
	return co.cache
}

// SetRetryCount changes the reactivation budget for instances created from
// now on. Existing instances keep their budget.
func (co *Coordinator) SetRetryCount(n int) {
	co.cfg.RetryCount = n
}

// Prepare readies an instance for c. It returns ResultAsync when the caller
// must wait for Listener.ViewReady and ResultOK when Create may follow
// immediately.
func (co *Coordinator) Prepare(c *clock.Clock) (clock.Result, error) {
	res, err := co.prepare(c)
	co.deps.Metrics.Operation("prepare", res.String())
	co.publishSizes()
	return res, err
}

func (co *Coordinator) prepare(c *clock.Clock) (clock.Result, error) {
	id, err := co.resolve(c)
	if err != nil {
		return clock.ResultFail, err
	}
	co.registerHooks()
	log := co.logger.WithProvider(id.String())

	for _, stale := range co.tracker.TakePendingExcept(id) {
		log.Debug("superseding pending instance", "stale_provider_id", stale.id.String())
		stale.destroy()
	}

	if co.tracker.Deleting(id) {
		res := clock.ResultAsync
		if att := co.deps.Slots.Attached(); att != nil && att.Family == FamilyName {
			res |= clock.ResultNeedDestroyPrevious
		}
		c.State = clock.StateWaiting
		log.Info("provider still tearing down, waiting for delete", "result", res.String())
		return res, nil
	}

	pid := co.launch(id, c.Content)

	surface := co.deps.Presenter.CurrentScroller()
	if surface == nil {
		co.terminate(pid)
		return clock.ResultFail, errors.NewWidgetError(errors.KindViewUnavailable,
			"no scroller to prepare into", errors.ErrViewUnavailable).
			WithProvider(id.String()).WithPackage(c.PackageName).WithFamily(FamilyName)
	}

	if co.tracker.Pending(id) != nil {
		c.State = clock.StateWaiting
		log.Debug("reusing pending instance")
		return clock.ResultAsync, nil
	}

	hit, discarded := co.cache.Take(id)
	if discarded != nil {
		log.Info("discarding first instance for a different provider",
			"cached_provider_id", discarded.id.String())
		co.deps.Metrics.Discard()
		discarded.destroy()
	}
	if hit != nil {
		co.tracker.AddPending(hit)
		c.State = clock.StateReady
		log.Info("using first instance")
		return clock.ResultOK, nil
	}

	inst, err := co.build(surface, id, c.Content, true)
	if err != nil {
		co.terminate(pid)
		return clock.ResultFail, errors.NewWidgetError(errors.KindCreationFault,
			"failed to create instance", err).
			WithProvider(id.String()).WithPackage(c.PackageName).WithFamily(FamilyName)
	}
	co.arm(inst)
	co.tracker.AddPending(inst)
	c.State = clock.StateWaiting
	log.Info("instance created off-screen, waiting for provider")
	return clock.ResultAsync, nil
}

// Configure pushes new content to the provider and relaunches it. It never
// changes the clock's state.
func (co *Coordinator) Configure(c *clock.Clock, content string) (clock.Result, error) {
	res, err := co.configure(c, content)
	co.deps.Metrics.Operation("configure", res.String())
	return res, err
}

func (co *Coordinator) configure(c *clock.Clock, content string) (clock.Result, error) {
	id, err := co.resolve(c)
	if err != nil {
		return clock.ResultFail, err
	}
	log := co.logger.WithProvider(id.String())
	c.Content = content

	if co.deps.Updater != nil {
		if err := co.deps.Updater.TriggerUpdate(id, content); err != nil {
			log.Warn("content update failed", "error", err)
		}
	}

	if co.deps.Processes == nil {
		return clock.ResultOK, nil
	}
	pid, err := co.deps.Processes.Launch(id, content)
	if err != nil {
		return clock.ResultFail, errors.NewWidgetError(errors.KindRuntimeFault,
			"failed to relaunch provider", err).
			WithProvider(id.String()).WithPackage(c.PackageName).WithFamily(FamilyName)
	}
	log.Debug("provider relaunched", "pid", pid)
	return clock.ResultOK, nil
}

// Create embeds an instance for c into the current scroller.
func (co *Coordinator) Create(c *clock.Clock) (clock.Result, error) {
	res, err := co.create(c)
	co.deps.Metrics.Operation("create", res.String())
	co.publishSizes()
	return res, err
}

func (co *Coordinator) create(c *clock.Clock) (clock.Result, error) {
	id, err := co.resolve(c)
	if err != nil {
		return clock.ResultFail, err
	}
	log := co.logger.WithProvider(id.String())

	surface := co.deps.Presenter.CurrentScroller()
	if surface == nil {
		return clock.ResultFail, errors.NewWidgetError(errors.KindViewUnavailable,
			"no scroller to embed into", errors.ErrViewUnavailable).
			WithProvider(id.String()).WithPackage(c.PackageName).WithFamily(FamilyName)
	}

	inst := co.tracker.TakePending(id)
	if inst != nil {
		inst.disarm()
	} else {
		hit, discarded := co.cache.Take(id)
		if discarded != nil {
			co.deps.Metrics.Discard()
			discarded.destroy()
		}
		inst = hit
	}
	if inst == nil {
		inst, err = co.build(surface, id, c.Content, false)
		if err != nil {
			return clock.ResultFail, errors.NewWidgetError(errors.KindCreationFault,
				"no instance available", errors.Join(errors.ErrInstanceUnavailable, err)).
				WithProvider(id.String()).WithPackage(c.PackageName).WithFamily(FamilyName)
		}
	}

	inst.handle.Move(false)
	inst.offScreen = false

	page, err := co.deps.Presenter.Embed(surface, inst.handle)
	if err == nil && page == nil {
		err = errors.ErrNoView
	}
	if err != nil {
		inst.destroy()
		return clock.ResultFail, errors.NewWidgetError(errors.KindViewUnavailable,
			"failed to embed instance", errors.Join(errors.ErrEmbedFailed, err)).
			WithProvider(id.String()).WithPackage(c.PackageName).WithFamily(FamilyName)
	}

	co.tracker.Embed(inst)
	co.tracker.TrackDeleting(inst)
	c.SetView(page)
	c.State = clock.StateEmbedded

	if inst.handle.VisibilityFrozen() {
		if co.deps.Presenter.ForegroundState() == ForegroundActive {
			inst.handle.ThawVisibility()
		} else {
			co.tracker.Freeze(inst)
		}
	}

	log.Info("instance embedded", "confirmed", inst.confirmed)
	return clock.ResultOK, nil
}

// Destroy tears down c's embedded instance.
func (co *Coordinator) Destroy(c *clock.Clock) (clock.Result, error) {
	res, err := co.destroy(c)
	co.deps.Metrics.Operation("destroy", res.String())
	co.publishSizes()
	return res, err
}

func (co *Coordinator) destroy(c *clock.Clock) (clock.Result, error) {
	page, ok := c.View().(Page)
	if !ok || page == nil {
		return clock.ResultFail, errors.NewWidgetError(errors.KindViewUnavailable,
			"clock has no view", errors.ErrNoView).
			WithProvider(c.ProviderID.String()).WithPackage(c.PackageName).WithFamily(FamilyName)
	}
	log := co.logger.WithProvider(c.ProviderID.String())

	item := page.Item()
	// A faulted provider never reports deletion.
	if item != nil && item.Faulted() {
		if co.tracker.ClearDeleting(c.ProviderID, item) {
			log.Debug("cleared deleting entry for faulted instance")
		}
	}

	if inst := co.tracker.Lookup(item); co.tracker.Release(inst) {
		inst.disarm()
		inst.handle.SetScrollCallback(nil)
		inst.destroyed = true
	}

	c.SetView(nil)
	c.State = clock.StateUnprepared
	page.Destroy()
	log.Info("instance destroyed")
	return clock.ResultOK, nil
}

// PrepareFirstInstance pre-creates an off-screen instance for pkg into the
// first-instance cache. It is a no-op when the cache is occupied, pkg is
// empty or unresolvable, the provider already has an embedded instance, or a
// recent discard is still being debounced.
func (co *Coordinator) PrepareFirstInstance(pkg string) error {
	if pkg == "" || co.cache.Peek() != nil {
		return nil
	}
	if !co.cache.AllowRebuild() {
		co.logger.Debug("first instance rebuild debounced", "package", pkg)
		return nil
	}
	id, ok := co.deps.Resolver.Resolve(pkg)
	if !ok {
		co.logger.Warn("first instance package does not resolve", "package", pkg)
		return nil
	}
	if co.tracker.Live(id) != nil || co.tracker.Deleting(id) {
		co.logger.WithProvider(id.String()).Debug("provider already embedded, no first instance needed")
		return nil
	}
	co.registerHooks()

	surface := co.deps.Presenter.CurrentScroller()
	if surface == nil {
		return errors.NewWidgetError(errors.KindViewUnavailable,
			"no scroller for first instance", errors.ErrViewUnavailable).
			WithProvider(id.String()).WithPackage(pkg).WithFamily(FamilyName)
	}

	inst, err := co.build(surface, id, "", true)
	if err != nil {
		return errors.NewWidgetError(errors.KindCreationFault,
			"failed to create first instance", err).
			WithProvider(id.String()).WithPackage(pkg).WithFamily(FamilyName)
	}
	co.cache.Store(inst)
	co.logger.WithProvider(id.String()).Info("first instance cached")
	return nil
}

// resolve fills in c.ProviderID on first use.
func (co *Coordinator) resolve(c *clock.Clock) (clock.ProviderID, error) {
	if c.ProviderID != "" {
		return c.ProviderID, nil
	}
	id, ok := co.deps.Resolver.Resolve(c.PackageName)
	if !ok {
		return "", errors.NewWidgetError(errors.KindResolution,
			"package does not map to a provider", errors.ErrResolution).
			WithPackage(c.PackageName).WithFamily(FamilyName)
	}
	c.ProviderID = id
	return id, nil
}

// build creates a new instance. Instances with content start frozen.
func (co *Coordinator) build(s Surface, id clock.ProviderID, content string, offScreen bool) (*Instance, error) {
	h, err := co.deps.Factory.CreateInstance(s, id, content, co.cfg.UpdatePeriod)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, fmt.Errorf("factory returned no instance for %s", id)
	}
	inst := newInstance(h, id, co.cfg.RetryCount)
	if content != "" {
		h.FreezeVisibility()
	}
	h.SetScrollCallback(co.scrolled)
	if offScreen {
		h.Move(true)
		inst.offScreen = true
	}
	return inst, nil
}

// arm starts the readiness countdown for a pending instance.
func (co *Coordinator) arm(inst *Instance) {
	inst.countdown = StartCountdown(co.deps.Loop, co.cfg.RefreshCount, co.cfg.ForceTimeout, func(tr Trigger) {
		co.promote(inst, tr)
	})
	inst.handle.SetUpdateCallback(inst.countdown.Update)
}

func (co *Coordinator) launch(id clock.ProviderID, content string) int {
	if co.deps.Processes == nil {
		return 0
	}
	pid, err := co.deps.Processes.Launch(id, content)
	if err != nil {
		co.logger.WithProvider(id.String()).Warn("provider launch failed", "error", err)
		return 0
	}
	return pid
}

func (co *Coordinator) terminate(pid int) {
	if co.deps.Processes == nil || pid <= 0 {
		return
	}
	if err := co.deps.Processes.Terminate(pid); err != nil {
		co.logger.Warn("failed to terminate provider", "pid", pid, "error", err)
	}
}

func (co *Coordinator) scrolled(hold bool) {
	co.deps.Bus.Publish(event.NewScrollHoldEvent(hold))
	co.deps.Listener.ScrollHold(hold)
}

// embeddedFor returns the instance shown in c's page.
func (co *Coordinator) embeddedFor(c *clock.Clock) *Instance {
	if page, ok := c.View().(Page); ok && page != nil {
		if inst := co.tracker.Lookup(page.Item()); inst != nil {
			return inst
		}
	}
	return co.tracker.Live(c.ProviderID)
}

// waitingFor returns the candidate still expecting an instance for id.
func (co *Coordinator) waitingFor(id clock.ProviderID) *clock.Clock {
	cand := co.deps.Slots.Candidate()
	if cand == nil || cand.Family != FamilyName || cand.ProviderID != id {
		return nil
	}
	if cand.State != clock.StateWaiting && cand.State != clock.StateReady {
		return nil
	}
	return cand
}

func (co *Coordinator) publishSizes() {
	co.deps.Metrics.SetSizes(co.tracker.PendingCount(), co.tracker.DeletingCount(), co.tracker.FrozenCount())
}
