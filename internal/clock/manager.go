package clock

// Manager holds the attached clock and the candidate being prepared.
// At most one of each exists at a time.
type Manager struct {
	candidate *Clock
	attached  *Clock
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{}
}

// Candidate returns the clock being prepared, or nil.
func (m *Manager) Candidate() *Clock {
	return m.candidate
}

// Attached returns the embedded clock, or nil.
func (m *Manager) Attached() *Clock {
	return m.attached
}

// SetCandidate installs c as the candidate and returns the one it replaced.
func (m *Manager) SetCandidate(c *Clock) *Clock {
	prev := m.candidate
	m.candidate = c
	return prev
}

// ClearCandidate drops c if it is still the candidate. It reports whether
// anything was cleared.
func (m *Manager) ClearCandidate(c *Clock) bool {
	if c == nil || m.candidate != c {
		return false
	}
	m.candidate = nil
	return true
}

// Attach makes c the attached clock, clears it from the candidate slot and
// returns the previously attached clock.
func (m *Manager) Attach(c *Clock) *Clock {
	prev := m.attached
	m.attached = c
	if m.candidate == c {
		m.candidate = nil
	}
	return prev
}

// Detach clears the attached slot if it holds c.
func (m *Manager) Detach(c *Clock) bool {
	if c == nil || m.attached != c {
		return false
	}
	m.attached = nil
	return true
}
