package event

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/Iron-Ham/homeclock/internal/logging"
)

func TestBus_Subscribe(t *testing.T) {
	bus := NewBus(nil)

	called := false
	id := bus.Subscribe(TypeClockRequested, func(e Event) {
		called = true
	})

	if id == "" {
		t.Error("Subscribe should return a non-empty ID")
	}
	if bus.SubscriptionCount() != 1 {
		t.Errorf("SubscriptionCount() = %d, want 1", bus.SubscriptionCount())
	}
	if called {
		t.Error("handler should not be called until an event is published")
	}
}

func TestBus_Publish(t *testing.T) {
	bus := NewBus(nil)

	var received Event
	bus.Subscribe(TypeClockAttached, func(e Event) {
		received = e
	})

	bus.Publish(NewClockAttachedEvent("com.example.clock", "clock-1", "dbox"))

	if received == nil {
		t.Fatal("handler should have received the event")
	}
	attached, ok := received.(ClockAttachedEvent)
	if !ok {
		t.Fatalf("received %T, want ClockAttachedEvent", received)
	}
	if attached.ProviderID != "clock-1" || attached.Family != "dbox" {
		t.Errorf("unexpected payload: %+v", attached)
	}
	if attached.ID() == "" {
		t.Error("event ID should be set")
	}
	if attached.Timestamp().IsZero() {
		t.Error("event timestamp should be set")
	}
}

func TestBus_PublishOrdering(t *testing.T) {
	bus := NewBus(nil)

	var order []string
	bus.SubscribeAll(func(e Event) { order = append(order, "wild") })
	bus.Subscribe(TypeProviderFault, func(e Event) { order = append(order, "first") })
	bus.Subscribe(TypeProviderFault, func(e Event) { order = append(order, "second") })

	bus.Publish(NewProviderFaultEvent("clock-1", 2))

	want := []string{"first", "second", "wild"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestBus_PublishNoMatchingHandlers(t *testing.T) {
	bus := NewBus(nil)

	called := false
	bus.Subscribe(TypeClockDetached, func(e Event) { called = true })
	bus.Publish(NewScrollHoldEvent(true))

	if called {
		t.Error("handler for a different event type should not be called")
	}
}

func TestBus_NilSafety(t *testing.T) {
	var bus *Bus
	bus.Publish(NewScrollHoldEvent(false))

	NewBus(nil).Publish(nil)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(nil)

	count := 0
	keep := bus.Subscribe(TypeProviderFatal, func(e Event) { count++ })
	drop := bus.Subscribe(TypeProviderFatal, func(e Event) { count += 10 })

	if !bus.Unsubscribe(drop) {
		t.Fatal("Unsubscribe should report removal of a known ID")
	}
	if bus.Unsubscribe(drop) {
		t.Error("second Unsubscribe of the same ID should report false")
	}
	if bus.Unsubscribe("does-not-exist") {
		t.Error("Unsubscribe of an unknown ID should report false")
	}

	bus.Publish(NewProviderFatalEvent("clock-1", "com.example.clock"))
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	bus.Unsubscribe(keep)
	if bus.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", bus.SubscriptionCount())
	}
}

func TestBus_Clear(t *testing.T) {
	bus := NewBus(nil)
	bus.Subscribe(TypeClockWaiting, func(e Event) {})
	bus.SubscribeAll(func(e Event) {})

	bus.Clear()

	if bus.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d after Clear, want 0", bus.SubscriptionCount())
	}
}

func TestBus_HandlerPanicRecovery(t *testing.T) {
	var buf bytes.Buffer
	bus := NewBus(logging.NewWriterLogger(&buf, logging.LevelDebug))

	reached := false
	bus.Subscribe(TypeCreationFault, func(e Event) { panic("boom") })
	bus.Subscribe(TypeCreationFault, func(e Event) { reached = true })

	bus.Publish(NewCreationFaultEvent("clock-1", false))

	if !reached {
		t.Error("handler after a panicking one should still run")
	}
	if !strings.Contains(buf.String(), "event handler panicked") {
		t.Errorf("panic was not logged: %s", buf.String())
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus(nil)

	var mu sync.Mutex
	count := 0
	bus.SubscribeAll(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(NewScrollHoldEvent(true))
		}()
	}
	wg.Wait()

	if count != 50 {
		t.Errorf("count = %d, want 50", count)
	}
}

func TestBus_ConcurrentSubscribeUnsubscribe(t *testing.T) {
	bus := NewBus(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := bus.Subscribe(TypeClockRequested, func(e Event) {})
			bus.Publish(NewClockRequestedEvent("pkg", "dbox"))
			bus.Unsubscribe(id)
		}()
	}
	wg.Wait()

	if bus.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", bus.SubscriptionCount())
	}
}

func TestBus_UniqueIDs(t *testing.T) {
	bus := NewBus(nil)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := bus.Subscribe(TypeClockRequested, func(e Event) {})
		if seen[id] {
			t.Fatalf("duplicate subscription ID %q", id)
		}
		seen[id] = true
	}
}

func TestEventTypes(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{"requested", NewClockRequestedEvent("pkg", "dbox"), TypeClockRequested},
		{"waiting", NewClockWaitingEvent("pkg", "id", true), TypeClockWaiting},
		{"attached", NewClockAttachedEvent("pkg", "id", "dbox"), TypeClockAttached},
		{"detached", NewClockDetachedEvent("pkg", "id", "fatal"), TypeClockDetached},
		{"superseded", NewCandidateSupersededEvent("pkg", "id"), TypeCandidateSuperseded},
		{"failed", NewRequestFailedEvent("pkg", "prepare", nil), TypeRequestFailed},
		{"promoted", NewInstancePromotedEvent("id", "force", true), TypeInstancePromoted},
		{"fault", NewProviderFaultEvent("id", 1), TypeProviderFault},
		{"fatal", NewProviderFatalEvent("id", "pkg"), TypeProviderFatal},
		{"creation fault", NewCreationFaultEvent("id", true), TypeCreationFault},
		{"scroll", NewScrollHoldEvent(false), TypeScrollHold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.EventType(); got != tt.want {
				t.Errorf("EventType() = %q, want %q", got, tt.want)
			}
		})
	}
}
