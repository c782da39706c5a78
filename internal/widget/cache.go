package widget

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Iron-Ham/homeclock/internal/clock"
)

// FirstInstanceCache holds at most one instance pre-created at boot so the
// first prepare can skip the provider round trip.
type FirstInstanceCache struct {
	inst     *Instance
	clock    clockwork.Clock
	debounce time.Duration

	lastDiscard time.Time
	discards    int
}

// NewFirstInstanceCache creates an empty cache. A rebuild is refused for
// debounce after a mismatch discarded the cached instance.
func NewFirstInstanceCache(clk clockwork.Clock, debounce time.Duration) *FirstInstanceCache {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &FirstInstanceCache{clock: clk, debounce: debounce}
}

// Peek returns the cached instance without removing it.
func (c *FirstInstanceCache) Peek() *Instance {
	return c.inst
}

// Store caches inst. It returns false if the cache is already occupied.
func (c *FirstInstanceCache) Store(inst *Instance) bool {
	if c.inst != nil {
		return false
	}
	c.inst = inst
	inst.owner = ownerCache
	return true
}

// Take removes the cached instance. On an id match it is returned as hit;
// on a mismatch it is returned as discarded so the caller can destroy it.
func (c *FirstInstanceCache) Take(id clock.ProviderID) (hit, discarded *Instance) {
	inst := c.inst
	if inst == nil {
		return nil, nil
	}
	c.inst = nil
	inst.owner = ownerNone
	if inst.id == id {
		return inst, nil
	}
	c.lastDiscard = c.clock.Now()
	c.discards++
	return nil, inst
}

// Clear removes and returns the cached instance without counting a discard.
func (c *FirstInstanceCache) Clear() *Instance {
	inst := c.inst
	c.inst = nil
	if inst != nil {
		inst.owner = ownerNone
	}
	return inst
}

// AllowRebuild reports whether the debounce window since the last discard
// has passed.
func (c *FirstInstanceCache) AllowRebuild() bool {
	if c.debounce <= 0 || c.lastDiscard.IsZero() {
		return true
	}
	return c.clock.Since(c.lastDiscard) >= c.debounce
}

// Discards returns how many cached instances were dropped on mismatch.
func (c *FirstInstanceCache) Discards() int {
	return c.discards
}
