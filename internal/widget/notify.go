package widget

import (
	"github.com/Iron-Ham/homeclock/internal/clock"
	"github.com/Iron-Ham/homeclock/internal/errors"
	"github.com/Iron-Ham/homeclock/internal/event"
)

// registerHooks subscribes to provider notifications once per coordinator.
func (co *Coordinator) registerHooks() {
	if co.hooked {
		return
	}
	co.hooked = true
	co.deps.Notifications.OnCreate(co.OnCreate)
	co.deps.Notifications.OnDelete(co.OnDelete)
}

// promote runs when a pending instance's countdown completes.
func (co *Coordinator) promote(inst *Instance, tr Trigger) {
	inst.handle.SetUpdateCallback(nil)
	co.deps.Metrics.Promotion(tr.String())
	log := co.logger.WithProvider(inst.id.String())

	cand := co.deps.Slots.Candidate()
	if cand != nil && cand.Family == FamilyName && cand.State == clock.StateWaiting && cand.ProviderID == inst.id {
		cand.State = clock.StateReady
		log.Info("pending instance ready", "trigger", tr.String())
		co.deps.Bus.Publish(event.NewInstancePromotedEvent(inst.id.String(), tr.String(), true))
		co.deps.Listener.ViewReady(cand)
		return
	}

	if co.tracker.Pending(inst.id) == inst {
		co.tracker.TakePending(inst.id)
	}
	log.Info("destroying unsolicited instance", "trigger", tr.String())
	co.deps.Bus.Publish(event.NewInstancePromotedEvent(inst.id.String(), tr.String(), false))
	inst.destroy()
	co.publishSizes()
}

// OnCreate handles the provider's creation report for an instance.
func (co *Coordinator) OnCreate(n Notification) {
	co.deps.Metrics.Notification("create", n.Status.String())
	defer co.publishSizes()
	log := co.logger.WithProvider(n.ProviderID.String())

	inst := co.tracker.Pending(n.ProviderID)
	if inst != nil && !inst.owns(n.Handle) {
		inst = nil
	}
	cached := false
	if inst == nil {
		if ci := co.cache.Peek(); ci != nil && ci.id == n.ProviderID && ci.owns(n.Handle) {
			inst = ci
			cached = true
		}
	}
	if inst == nil {
		log.Debug("create notification for untracked provider", "status", n.Status.String())
		return
	}

	if n.Status != StatusNone {
		if cached {
			co.cache.Clear()
		} else {
			co.tracker.TakePending(n.ProviderID)
		}
		inst.destroy()
		log.Warn("provider failed to create instance", "status", n.Status.String(), "cached", cached)
		co.deps.Bus.Publish(event.NewCreationFaultEvent(n.ProviderID.String(), cached))

		if cand := co.waitingFor(n.ProviderID); cand != nil {
			cand.State = clock.StateUnprepared
			co.deps.Listener.CreationFault(cand, errors.NewWidgetError(errors.KindCreationFault,
				"provider reported a creation error", errors.ErrCreationFault).
				WithProvider(n.ProviderID.String()).WithPackage(cand.PackageName).WithFamily(FamilyName))
		}
		return
	}

	inst.confirmed = true
	inst.handle.Resume()
	if cached {
		log.Debug("first instance confirmed")
		return
	}

	if co.waitingFor(n.ProviderID) == nil {
		co.tracker.TakePending(n.ProviderID)
		inst.destroy()
		log.Info("destroying unsolicited instance")
		return
	}
	log.Debug("pending instance confirmed")
}

// OnDelete handles the provider's deletion or fault report.
func (co *Coordinator) OnDelete(n Notification) {
	co.deps.Metrics.Notification("delete", n.Status.String())
	defer co.publishSizes()
	log := co.logger.WithProvider(n.ProviderID.String())

	cand := co.deps.Slots.Candidate()
	waiting := cand != nil && cand.State == clock.StateWaiting

	if n.Status == StatusFault && !waiting {
		att := co.deps.Slots.Attached()
		if att == nil {
			log.Error("provider fault with no attached clock")
			return
		}
		if att.ProviderID == n.ProviderID {
			co.recoverFault(att, n.Handle)
			return
		}
		if !co.tracker.ClearDeleting(n.ProviderID, n.Handle) {
			log.Warn("fault from unknown provider")
		}
		return
	}

	if !co.tracker.ClearDeleting(n.ProviderID, n.Handle) {
		log.Debug("delete notification for untracked instance", "status", n.Status.String())
		return
	}
	log.Debug("provider deletion confirmed")

	if waiting && cand.Family == FamilyName && cand.ProviderID == n.ProviderID {
		cand.State = clock.StateReady
		log.Info("provider torn down, candidate ready")
		co.deps.Listener.ViewReady(cand)
	}
}

// recoverFault reactivates the attached clock's instance while its retry
// budget lasts and reports a fatal error once it runs out. Faults from other
// instances of the same provider are ignored.
func (co *Coordinator) recoverFault(att *clock.Clock, h Handle) {
	log := co.logger.WithProvider(att.ProviderID.String())

	inst := co.embeddedFor(att)
	if inst == nil {
		log.Error("attached clock has no live instance")
		return
	}
	if !inst.owns(h) {
		log.Debug("ignoring fault from an instance that is not attached")
		return
	}
	if inst.fatal {
		log.Debug("ignoring fault after fatal")
		return
	}

	if inst.retry.Consume() {
		if err := inst.handle.Activate(); err != nil {
			log.Warn("reactivation failed", "error", err, "retry_left", inst.retry.Remaining())
		} else {
			log.Info("provider reactivated", "retry_left", inst.retry.Remaining())
		}
		co.deps.Metrics.Reactivation()
		co.deps.Bus.Publish(event.NewProviderFaultEvent(att.ProviderID.String(), inst.retry.Remaining()))
		return
	}

	inst.fatal = true
	log.Error("provider retries exhausted",
		"error", errors.NewWidgetError(errors.KindRetryExhausted, "giving up on provider", errors.ErrRetryExhausted).
			WithProvider(att.ProviderID.String()).WithPackage(att.PackageName).WithFamily(FamilyName))
	co.deps.Metrics.Fatal()
	co.deps.Bus.Publish(event.NewProviderFatalEvent(att.ProviderID.String(), att.PackageName))
	co.deps.Listener.ProviderFatal(att)
}

// OnResume thaws every frozen instance in the order it was frozen.
func (co *Coordinator) OnResume() {
	n := co.tracker.ThawAll(func(inst *Instance) {
		inst.handle.ThawVisibility()
	})
	if n > 0 {
		co.logger.Debug("thawed instances", "count", n)
	}
	co.publishSizes()
}
