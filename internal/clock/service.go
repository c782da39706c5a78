package clock

import (
	"fmt"
	"sync"

	"github.com/gobwas/glob"

	"github.com/Iron-Ham/homeclock/internal/errors"
	"github.com/Iron-Ham/homeclock/internal/event"
	"github.com/Iron-Ham/homeclock/internal/logging"
)

type route struct {
	pattern string
	matcher glob.Glob
	family  Family
}

// Service drives the desired clock through its family and keeps the
// candidate and attached slots consistent.
type Service struct {
	manager *Manager
	bus     *event.Bus
	logger  *logging.Logger

	mu     sync.RWMutex
	routes []route

	onFatal func(*Clock)
}

// NewService creates a service with an empty route table. bus and logger may
// be nil.
func NewService(bus *event.Bus, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Service{
		manager: NewManager(),
		bus:     bus,
		logger:  logger.WithComponent("clock_service"),
	}
}

// Manager returns the candidate/attached bookkeeping.
func (s *Service) Manager() *Manager {
	return s.manager
}

// Register routes packages matching pattern to f. Routes are tried in
// registration order.
func (s *Service) Register(pattern string, f Family) error {
	if f == nil {
		return errors.NewValidationError("family", nil, "cannot be nil")
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return errors.Wrapf(err, "invalid family pattern %q", pattern)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes = append(s.routes, route{pattern: pattern, matcher: g, family: f})
	return nil
}

// OnFatal installs fn to run after a fatal provider error has detached the
// clock. It replaces any previous callback.
func (s *Service) OnFatal(fn func(*Clock)) {
	s.onFatal = fn
}

// FamilyFor returns the family that serves pkg.
func (s *Service) FamilyFor(pkg string) (Family, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.routes {
		if r.matcher.Match(pkg) {
			return r.family, nil
		}
	}
	return nil, fmt.Errorf("%w: no family for package %q", errors.ErrUnknownFamily, pkg)
}

func (s *Service) familyNamed(name string) Family {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.routes {
		if r.family.Name() == name {
			return r.family
		}
	}
	return nil
}

// Request makes pkg with content the desired clock. It supersedes any
// candidate still being prepared. When prepare completes synchronously the
// clock is created and attached before Request returns.
func (s *Service) Request(pkg, content string) (*Clock, error) {
	f, err := s.FamilyFor(pkg)
	if err != nil {
		s.bus.Publish(event.NewRequestFailedEvent(pkg, "route", err))
		return nil, err
	}
	log := s.logger.WithFamily(f.Name()).With("package", pkg)

	c := New(pkg, f.Name(), content)
	s.bus.Publish(event.NewClockRequestedEvent(pkg, f.Name()))

	if prev := s.manager.SetCandidate(c); prev != nil && prev != s.manager.Attached() {
		prev.State = StateUnprepared
		log.Info("superseding candidate", "previous", prev.PackageName)
		s.bus.Publish(event.NewCandidateSupersededEvent(prev.PackageName, prev.ProviderID.String()))
	}

	res, err := f.Prepare(c)
	if res.Failed() || err != nil {
		if err == nil {
			err = fmt.Errorf("prepare %s failed", pkg)
		}
		s.manager.ClearCandidate(c)
		c.State = StateUnprepared
		logFailure(log, "prepare failed", err)
		s.bus.Publish(event.NewRequestFailedEvent(pkg, "prepare", err))
		return c, err
	}

	if res.NeedsDestroyPrevious() {
		s.detach("replaced")
	}

	if res.Async() {
		log.Info("waiting for provider", "result", res.String())
		s.bus.Publish(event.NewClockWaitingEvent(pkg, c.ProviderID.String(), res.NeedsDestroyPrevious()))
		return c, nil
	}

	return c, s.attach(c)
}

// Reconfigure pushes new content to the attached clock.
func (s *Service) Reconfigure(content string) error {
	att := s.manager.Attached()
	if att == nil {
		return errors.NewNotFoundError("clock", "attached")
	}
	f := s.familyNamed(att.Family)
	if f == nil {
		return fmt.Errorf("%w: %s", errors.ErrUnknownFamily, att.Family)
	}
	res, err := f.Configure(att, content)
	if err != nil {
		return err
	}
	if res.Failed() {
		return fmt.Errorf("configure %s failed", att.PackageName)
	}
	return nil
}

// Release tears down the attached clock, if any.
func (s *Service) Release() {
	s.detach("released")
}

// Boot pre-creates the first instance for pkg on families that support it.
func (s *Service) Boot(pkg string) error {
	f, err := s.FamilyFor(pkg)
	if err != nil {
		return err
	}
	p, ok := f.(FirstInstancePreparer)
	if !ok {
		return nil
	}
	return p.PrepareFirstInstance(pkg)
}

// Resume forwards a foreground-resume to every family that wants it.
func (s *Service) Resume() {
	s.mu.RLock()
	seen := make(map[Family]bool)
	var targets []Resumer
	for _, r := range s.routes {
		if seen[r.family] {
			continue
		}
		seen[r.family] = true
		if rs, ok := r.family.(Resumer); ok {
			targets = append(targets, rs)
		}
	}
	s.mu.RUnlock()

	for _, rs := range targets {
		rs.OnResume()
	}
}

// ViewReady creates and attaches c if it is still the candidate.
func (s *Service) ViewReady(c *Clock) {
	if c == nil || s.manager.Candidate() != c {
		s.logger.Debug("ignoring ready for a stale clock", "clock", c.String())
		return
	}
	if err := s.attach(c); err != nil {
		logFailure(s.logger.With("clock", c.String()), "failed to attach ready clock", err)
	}
}

// ProviderFatal detaches the attached clock after its provider gave up. The
// clock area is left empty.
func (s *Service) ProviderFatal(c *Clock) {
	if c == nil || s.manager.Attached() != c {
		s.logger.Debug("ignoring fatal for a clock that is not attached", "clock", c.String())
		return
	}
	s.logger.Error("provider failed permanently", "clock", c.String())
	s.detach("fatal")
	if s.onFatal != nil {
		s.onFatal(c)
	}
}

// CreationFault drops c as the candidate after its provider failed to
// create it.
func (s *Service) CreationFault(c *Clock, err error) {
	if !s.manager.ClearCandidate(c) {
		return
	}
	c.State = StateUnprepared
	logFailure(s.logger.With("clock", c.String()), "provider failed to create clock", err)
	s.bus.Publish(event.NewRequestFailedEvent(c.PackageName, "create", err))
}

// ScrollHold is reported by instances that want the scroller to stop.
func (s *Service) ScrollHold(hold bool) {
	s.logger.Debug("scroll hold", "hold", hold)
}

// attach creates c and makes it the attached clock, tearing down the
// previous one afterwards.
func (s *Service) attach(c *Clock) error {
	f := s.familyNamed(c.Family)
	if f == nil {
		return fmt.Errorf("%w: %s", errors.ErrUnknownFamily, c.Family)
	}
	res, err := f.Create(c)
	if res.Failed() || err != nil {
		if err == nil {
			err = fmt.Errorf("create %s failed", c.PackageName)
		}
		s.manager.ClearCandidate(c)
		c.State = StateUnprepared
		s.bus.Publish(event.NewRequestFailedEvent(c.PackageName, "create", err))
		return err
	}

	prev := s.manager.Attach(c)
	s.logger.Info("clock attached", "clock", c.String(), "provider_id", c.ProviderID.String())
	s.bus.Publish(event.NewClockAttachedEvent(c.PackageName, c.ProviderID.String(), c.Family))

	if prev != nil && prev != c {
		s.teardown(prev, "replaced")
	}
	return nil
}

func (s *Service) detach(reason string) {
	att := s.manager.Attached()
	if att == nil {
		return
	}
	s.manager.Detach(att)
	s.teardown(att, reason)
}

func (s *Service) teardown(c *Clock, reason string) {
	if f := s.familyNamed(c.Family); f != nil {
		if _, err := f.Destroy(c); err != nil {
			logFailure(s.logger.With("clock", c.String()), "failed to destroy clock", err)
		}
	}
	s.bus.Publish(event.NewClockDetachedEvent(c.PackageName, c.ProviderID.String(), reason))
}

// logFailure logs err at the level its severity calls for.
func logFailure(log *logging.Logger, msg string, err error) {
	args := []any{"error", err, "retryable", errors.IsRetryable(err)}
	if kind, ok := errors.KindOf(err); ok {
		args = append(args, "kind", kind.String())
	}
	switch errors.GetSeverity(err) {
	case errors.SeverityDebug:
		log.Debug(msg, args...)
	case errors.SeverityInfo:
		log.Info(msg, args...)
	case errors.SeverityWarning:
		log.Warn(msg, args...)
	default:
		log.Error(msg, args...)
	}
}
