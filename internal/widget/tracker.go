package widget

import "github.com/Iron-Ham/homeclock/internal/clock"

// Tracker holds the coordinator's correlation collections. Pending and
// deleting entries are keyed by provider id; embedded instances are also
// indexed by handle so two clocks of the same provider never share an entry.
type Tracker struct {
	creating map[clock.ProviderID]*Instance
	deleting map[clock.ProviderID]*Instance
	live     map[clock.ProviderID]*Instance
	embedded map[Handle]*Instance

	frozen      []*Instance
	frozenIndex map[*Instance]struct{}
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		creating:    make(map[clock.ProviderID]*Instance),
		deleting:    make(map[clock.ProviderID]*Instance),
		live:        make(map[clock.ProviderID]*Instance),
		embedded:    make(map[Handle]*Instance),
		frozenIndex: make(map[*Instance]struct{}),
	}
}

// AddPending records inst as waiting for readiness. It returns the instance
// it displaced for the same id, if any.
func (t *Tracker) AddPending(inst *Instance) *Instance {
	prev := t.creating[inst.id]
	t.creating[inst.id] = inst
	inst.owner = ownerPending
	if prev == inst {
		return nil
	}
	return prev
}

// Pending returns the pending instance for id without removing it.
func (t *Tracker) Pending(id clock.ProviderID) *Instance {
	return t.creating[id]
}

// TakePending removes and returns the pending instance for id.
func (t *Tracker) TakePending(id clock.ProviderID) *Instance {
	inst, ok := t.creating[id]
	if !ok {
		return nil
	}
	delete(t.creating, id)
	inst.owner = ownerNone
	return inst
}

// TakePendingExcept removes and returns every pending instance whose id
// differs from keep.
func (t *Tracker) TakePendingExcept(keep clock.ProviderID) []*Instance {
	var out []*Instance
	for id, inst := range t.creating {
		if id == keep {
			continue
		}
		delete(t.creating, id)
		inst.owner = ownerNone
		out = append(out, inst)
	}
	return out
}

// PendingCount returns the number of pending instances.
func (t *Tracker) PendingCount() int {
	return len(t.creating)
}

// TrackDeleting records that inst is embedded and its deletion has not been
// reported yet. A later instance of the same provider takes over the entry.
func (t *Tracker) TrackDeleting(inst *Instance) {
	t.deleting[inst.id] = inst
}

// Deleting reports whether id awaits a deletion notification.
func (t *Tracker) Deleting(id clock.ProviderID) bool {
	_, ok := t.deleting[id]
	return ok
}

// ClearDeleting removes id's entry and reports whether it did. With a non-nil
// handle the entry is only removed when it was recorded for that handle.
func (t *Tracker) ClearDeleting(id clock.ProviderID, h Handle) bool {
	inst, ok := t.deleting[id]
	if !ok {
		return false
	}
	if h != nil && inst.handle != h {
		return false
	}
	delete(t.deleting, id)
	return true
}

// DeletingCount returns the number of ids awaiting deletion.
func (t *Tracker) DeletingCount() int {
	return len(t.deleting)
}

// Embed hands inst to the live view. It becomes the live instance for its
// provider; an older embedded instance of the same provider stays tracked
// until it is released.
func (t *Tracker) Embed(inst *Instance) {
	t.embedded[inst.handle] = inst
	t.live[inst.id] = inst
	inst.owner = ownerView
}

// Live returns the most recently embedded instance for id.
func (t *Tracker) Live(id clock.ProviderID) *Instance {
	return t.live[id]
}

// Lookup returns the embedded instance wrapping h.
func (t *Tracker) Lookup(h Handle) *Instance {
	if h == nil {
		return nil
	}
	return t.embedded[h]
}

// Release removes inst from the live view and the freeze set. It reports
// false when inst was not embedded.
func (t *Tracker) Release(inst *Instance) bool {
	if inst == nil || t.embedded[inst.handle] != inst {
		return false
	}
	delete(t.embedded, inst.handle)
	if t.live[inst.id] == inst {
		delete(t.live, inst.id)
		for _, other := range t.embedded {
			if other.id == inst.id {
				t.live[inst.id] = other
				break
			}
		}
	}
	t.Unfreeze(inst)
	inst.owner = ownerNone
	return true
}

// Freeze queues inst to be thawed on the next resume.
func (t *Tracker) Freeze(inst *Instance) {
	if _, ok := t.frozenIndex[inst]; ok {
		return
	}
	t.frozenIndex[inst] = struct{}{}
	t.frozen = append(t.frozen, inst)
}

// Unfreeze drops inst from the freeze set.
func (t *Tracker) Unfreeze(inst *Instance) {
	if _, ok := t.frozenIndex[inst]; !ok {
		return
	}
	delete(t.frozenIndex, inst)
	for i, f := range t.frozen {
		if f == inst {
			t.frozen = append(t.frozen[:i], t.frozen[i+1:]...)
			break
		}
	}
}

// Frozen reports whether inst is in the freeze set.
func (t *Tracker) Frozen(inst *Instance) bool {
	_, ok := t.frozenIndex[inst]
	return ok
}

// FrozenCount returns the size of the freeze set.
func (t *Tracker) FrozenCount() int {
	return len(t.frozen)
}

// ThawAll empties the freeze set in insertion order, calling thaw for each
// entry after it has been removed.
func (t *Tracker) ThawAll(thaw func(*Instance)) int {
	n := 0
	for len(t.frozen) > 0 {
		inst := t.frozen[0]
		t.frozen = t.frozen[1:]
		delete(t.frozenIndex, inst)
		thaw(inst)
		n++
	}
	t.frozen = nil
	return n
}
