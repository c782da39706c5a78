package clock

import (
	"fmt"
)

// ProviderID identifies a widget provider. It is derived from a package name
// by a resolver and compared by value.
type ProviderID string

// String returns the id as a plain string.
func (id ProviderID) String() string {
	return string(id)
}

// State is the lifecycle state of a Clock.
type State int

const (
	// StateUnprepared means no widget work is in flight for the clock.
	StateUnprepared State = iota
	// StateWaiting means prepare returned async and the clock waits for the
	// provider to finish.
	StateWaiting
	// StateReady means an instance can be embedded now.
	StateReady
	// StateEmbedded means the clock's widget is embedded in the view.
	StateEmbedded
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUnprepared:
		return "unprepared"
	case StateWaiting:
		return "waiting"
	case StateReady:
		return "ready"
	case StateEmbedded:
		return "embedded"
	default:
		return "unknown"
	}
}

// View is the page a family embedded a clock into. The clock only refers to
// it; the presentation layer owns it.
type View interface {
	Destroy()
}

// Clock is the widget the home screen wants to show.
type Clock struct {
	// PackageName is the application package the widget comes from.
	PackageName string
	// ProviderID is resolved from PackageName during prepare.
	ProviderID ProviderID
	// Family names the widget backend that realizes this clock.
	Family string
	// Content is the configuration blob handed to the provider.
	Content string
	// State is the lifecycle state.
	State State

	view View
}

// New creates an unprepared clock.
func New(pkg, family, content string) *Clock {
	return &Clock{
		PackageName: pkg,
		Family:      family,
		Content:     content,
		State:       StateUnprepared,
	}
}

// View returns the page the clock is embedded in, or nil.
func (c *Clock) View() View {
	return c.view
}

// SetView records the page the clock is embedded in. Pass nil on teardown.
func (c *Clock) SetView(v View) {
	c.view = v
}

// String implements fmt.Stringer for logs.
func (c *Clock) String() string {
	if c == nil {
		return "<nil clock>"
	}
	return fmt.Sprintf("%s(%s/%s)", c.PackageName, c.Family, c.State)
}
