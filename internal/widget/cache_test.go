package widget

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestFirstInstanceCache(t *testing.T) {
	fc := clockwork.NewFakeClock()
	c := NewFirstInstanceCache(fc, time.Second)

	a := newTestInstance(idA)
	if !c.Store(a) {
		t.Fatal("Store() into an empty cache should succeed")
	}
	if c.Store(newTestInstance(idB)) {
		t.Error("Store() into an occupied cache should fail")
	}
	if a.owner != ownerCache {
		t.Errorf("owner = %v, want cache", a.owner)
	}

	hit, discarded := c.Take(idA)
	if hit != a || discarded != nil {
		t.Fatalf("Take(match) = %v, %v", hit, discarded)
	}
	if c.Peek() != nil || c.Discards() != 0 {
		t.Error("a hit empties the cache without counting a discard")
	}

	c.Store(a)
	hit, discarded = c.Take(idB)
	if hit != nil || discarded != a {
		t.Fatalf("Take(mismatch) = %v, %v", hit, discarded)
	}
	if c.Discards() != 1 {
		t.Errorf("Discards() = %d, want 1", c.Discards())
	}

	if hit, discarded := c.Take(idA); hit != nil || discarded != nil {
		t.Error("Take() on an empty cache should return nothing")
	}
}

func TestFirstInstanceCache_Debounce(t *testing.T) {
	tests := []struct {
		name     string
		debounce time.Duration
		elapsed  time.Duration
		want     bool
	}{
		{"inside window", time.Second, 999 * time.Millisecond, false},
		{"window passed", time.Second, time.Second, true},
		{"disabled", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := clockwork.NewFakeClock()
			c := NewFirstInstanceCache(fc, tt.debounce)

			if !c.AllowRebuild() {
				t.Fatal("rebuild should be allowed before any discard")
			}

			c.Store(newTestInstance(idA))
			c.Take(idB)
			fc.Advance(tt.elapsed)

			if got := c.AllowRebuild(); got != tt.want {
				t.Errorf("AllowRebuild() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFirstInstanceCache_Clear(t *testing.T) {
	c := NewFirstInstanceCache(nil, 0)
	if c.Clear() != nil {
		t.Error("Clear() on an empty cache should return nil")
	}

	a := newTestInstance(idA)
	c.Store(a)
	if c.Clear() != a || c.Peek() != nil {
		t.Error("Clear() should remove and return the cached instance")
	}
	if c.Discards() != 0 {
		t.Error("Clear() must not count a discard")
	}
}
