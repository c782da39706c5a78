package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is the interface that all events implement.
type Event interface {
	// EventType returns the "category.action" identifier.
	EventType() string

	// ID uniquely identifies this occurrence.
	ID() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeClockRequested      = "clock.requested"
	TypeClockWaiting        = "clock.waiting"
	TypeClockAttached       = "clock.attached"
	TypeClockDetached       = "clock.detached"
	TypeCandidateSuperseded = "clock.superseded"
	TypeRequestFailed       = "clock.failed"
	TypeInstancePromoted    = "instance.promoted"
	TypeProviderFault       = "provider.fault"
	TypeProviderFatal       = "provider.fatal"
	TypeCreationFault       = "provider.creation_fault"
	TypeScrollHold          = "scroll.hold"
)

// baseEvent provides common fields for all events.
type baseEvent struct {
	eventType string
	id        string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) ID() string           { return e.id }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		id:        uuid.NewString(),
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Clock Service Events
// -----------------------------------------------------------------------------

// ClockRequestedEvent is emitted when the service receives a desired widget.
type ClockRequestedEvent struct {
	baseEvent
	PackageName string
	Family      string
}

// NewClockRequestedEvent creates a ClockRequestedEvent.
func NewClockRequestedEvent(pkg, family string) ClockRequestedEvent {
	return ClockRequestedEvent{
		baseEvent:   newBaseEvent(TypeClockRequested),
		PackageName: pkg,
		Family:      family,
	}
}

// ClockWaitingEvent is emitted when prepare returned async.
type ClockWaitingEvent struct {
	baseEvent
	PackageName     string
	ProviderID      string
	DestroyPrevious bool // the attached clock was torn down to make room
}

// NewClockWaitingEvent creates a ClockWaitingEvent.
func NewClockWaitingEvent(pkg, providerID string, destroyPrevious bool) ClockWaitingEvent {
	return ClockWaitingEvent{
		baseEvent:       newBaseEvent(TypeClockWaiting),
		PackageName:     pkg,
		ProviderID:      providerID,
		DestroyPrevious: destroyPrevious,
	}
}

// ClockAttachedEvent is emitted when a clock is embedded and attached.
type ClockAttachedEvent struct {
	baseEvent
	PackageName string
	ProviderID  string
	Family      string
}

// NewClockAttachedEvent creates a ClockAttachedEvent.
func NewClockAttachedEvent(pkg, providerID, family string) ClockAttachedEvent {
	return ClockAttachedEvent{
		baseEvent:   newBaseEvent(TypeClockAttached),
		PackageName: pkg,
		ProviderID:  providerID,
		Family:      family,
	}
}

// ClockDetachedEvent is emitted when the attached clock is torn down.
type ClockDetachedEvent struct {
	baseEvent
	PackageName string
	ProviderID  string
	Reason      string // "replaced", "released", "fatal"
}

// NewClockDetachedEvent creates a ClockDetachedEvent.
func NewClockDetachedEvent(pkg, providerID, reason string) ClockDetachedEvent {
	return ClockDetachedEvent{
		baseEvent:   newBaseEvent(TypeClockDetached),
		PackageName: pkg,
		ProviderID:  providerID,
		Reason:      reason,
	}
}

// CandidateSupersededEvent is emitted when a newer request replaces a
// candidate that never became attached.
type CandidateSupersededEvent struct {
	baseEvent
	PackageName string
	ProviderID  string
}

// NewCandidateSupersededEvent creates a CandidateSupersededEvent.
func NewCandidateSupersededEvent(pkg, providerID string) CandidateSupersededEvent {
	return CandidateSupersededEvent{
		baseEvent:   newBaseEvent(TypeCandidateSuperseded),
		PackageName: pkg,
		ProviderID:  providerID,
	}
}

// RequestFailedEvent is emitted when a candidate cannot be prepared or created.
type RequestFailedEvent struct {
	baseEvent
	PackageName string
	Stage       string // "prepare" or "create"
	Err         error
}

// NewRequestFailedEvent creates a RequestFailedEvent.
func NewRequestFailedEvent(pkg, stage string, err error) RequestFailedEvent {
	return RequestFailedEvent{
		baseEvent:   newBaseEvent(TypeRequestFailed),
		PackageName: pkg,
		Stage:       stage,
		Err:         err,
	}
}

// -----------------------------------------------------------------------------
// Widget Instance Events
// -----------------------------------------------------------------------------

// InstancePromotedEvent is emitted when a pending instance completes its
// readiness countdown.
type InstancePromotedEvent struct {
	baseEvent
	ProviderID string
	Trigger    string // "refresh" or "force"
	Solicited  bool   // false when no candidate wanted it and it was destroyed
}

// NewInstancePromotedEvent creates an InstancePromotedEvent.
func NewInstancePromotedEvent(providerID, trigger string, solicited bool) InstancePromotedEvent {
	return InstancePromotedEvent{
		baseEvent:  newBaseEvent(TypeInstancePromoted),
		ProviderID: providerID,
		Trigger:    trigger,
		Solicited:  solicited,
	}
}

// ProviderFaultEvent is emitted when the embedded provider faults and is
// reactivated in place.
type ProviderFaultEvent struct {
	baseEvent
	ProviderID string
	RetryLeft  int
}

// NewProviderFaultEvent creates a ProviderFaultEvent.
func NewProviderFaultEvent(providerID string, retryLeft int) ProviderFaultEvent {
	return ProviderFaultEvent{
		baseEvent:  newBaseEvent(TypeProviderFault),
		ProviderID: providerID,
		RetryLeft:  retryLeft,
	}
}

// ProviderFatalEvent is emitted once when an embedded provider exhausts its
// retry budget.
type ProviderFatalEvent struct {
	baseEvent
	ProviderID  string
	PackageName string
}

// NewProviderFatalEvent creates a ProviderFatalEvent.
func NewProviderFatalEvent(providerID, pkg string) ProviderFatalEvent {
	return ProviderFatalEvent{
		baseEvent:   newBaseEvent(TypeProviderFatal),
		ProviderID:  providerID,
		PackageName: pkg,
	}
}

// CreationFaultEvent is emitted when the provider reports an error for an
// instance it was asked to create.
type CreationFaultEvent struct {
	baseEvent
	ProviderID string
	Cached     bool // the instance was the pre-created first instance
}

// NewCreationFaultEvent creates a CreationFaultEvent.
func NewCreationFaultEvent(providerID string, cached bool) CreationFaultEvent {
	return CreationFaultEvent{
		baseEvent:  newBaseEvent(TypeCreationFault),
		ProviderID: providerID,
		Cached:     cached,
	}
}

// ScrollHoldEvent is emitted when an instance asks the scroller to hold
// (true) or release (false) scrolling.
type ScrollHoldEvent struct {
	baseEvent
	Hold bool
}

// NewScrollHoldEvent creates a ScrollHoldEvent.
func NewScrollHoldEvent(hold bool) ScrollHoldEvent {
	return ScrollHoldEvent{
		baseEvent: newBaseEvent(TypeScrollHold),
		Hold:      hold,
	}
}
