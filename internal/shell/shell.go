package shell

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Iron-Ham/homeclock/internal/clock"
	"github.com/Iron-Ham/homeclock/internal/config"
	"github.com/Iron-Ham/homeclock/internal/event"
	"github.com/Iron-Ham/homeclock/internal/logging"
	"github.com/Iron-Ham/homeclock/internal/loop"
	"github.com/Iron-Ham/homeclock/internal/metrics"
	"github.com/Iron-Ham/homeclock/internal/provider"
	"github.com/Iron-Ham/homeclock/internal/widget"
)

// virtualStep is the granularity at which a fake clock is advanced.
const virtualStep = 10 * time.Millisecond

// Options customise a Shell. Zero values pick sensible defaults.
type Options struct {
	// Clock drives the event loop. Defaults to the wall clock.
	Clock clockwork.Clock
	// Registry resolves packages. Defaults to the configured registry file
	// or an empty registry.
	Registry *provider.Registry
	Metrics  *metrics.Recorder
	Logger   *logging.Logger
}

// Shell is a fully wired home-screen host.
type Shell struct {
	cfg      *config.Config
	logger   *logging.Logger
	loop     *loop.Loop
	bus      *event.Bus
	metrics  *metrics.Recorder
	registry *provider.Registry
	runtime  *provider.Runtime
	launcher *provider.Launcher
	screen   *provider.Screen
	service  *clock.Service
	coord    *widget.Coordinator
}

// New wires a Shell from cfg.
func New(cfg *config.Config, opts Options) (*Shell, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}

	registry := opts.Registry
	if registry == nil {
		if cfg.Provider.RegistryFile != "" {
			r, err := provider.LoadRegistry(cfg.Provider.RegistryFile)
			if err != nil {
				return nil, err
			}
			registry = r
		} else {
			registry = provider.NewRegistry()
		}
	}

	s := &Shell{
		cfg:      cfg,
		logger:   logger,
		loop:     loop.New(clk, logger),
		bus:      event.NewBus(logger),
		metrics:  opts.Metrics,
		registry: registry,
		screen:   provider.NewScreen(),
	}
	s.runtime = provider.NewRuntime(s.loop, cfg.Provider.CreateLatency(), logger)
	s.service = clock.NewService(s.bus, logger)

	var processes widget.ProcessControl = s.runtime
	if len(cfg.Provider.LaunchCommand) > 0 {
		l, err := provider.NewLauncher(cfg.Provider.LaunchCommand, logger)
		if err != nil {
			return nil, err
		}
		s.launcher = l
		processes = l
	}

	coord, err := widget.NewCoordinator(widget.Config{
		RefreshCount:          cfg.Clock.RefreshCount,
		ForceTimeout:          cfg.Clock.ForceTimeout(),
		RetryCount:            cfg.Clock.RetryCount,
		UpdatePeriod:          cfg.Clock.UpdatePeriod(),
		FirstInstanceDebounce: cfg.Clock.FirstInstanceDebounce(),
	}, widget.Deps{
		Resolver:      registry,
		Processes:     processes,
		Updater:       s.runtime,
		Factory:       s.runtime,
		Notifications: s.runtime,
		Presenter:     s.screen,
		Slots:         s.service.Manager(),
		Listener:      s.service,
		Loop:          s.loop,
		Bus:           s.bus,
		Metrics:       s.metrics,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}
	s.coord = coord

	for _, route := range cfg.Provider.Families {
		f, err := s.family(route.Family)
		if err != nil {
			return nil, err
		}
		if err := s.service.Register(route.Pattern, f); err != nil {
			return nil, err
		}
	}

	s.service.OnFatal(func(c *clock.Clock) {
		s.logger.Error("clock area left empty after provider failure", "package", c.PackageName)
	})
	return s, nil
}

func (s *Shell) family(name string) (clock.Family, error) {
	switch name {
	case config.FamilyDynamicBox:
		return s.coord, nil
	default:
		return nil, fmt.Errorf("unsupported clock family %q", name)
	}
}

// Loop returns the event loop every component runs on.
func (s *Shell) Loop() *loop.Loop { return s.loop }

// Bus returns the lifecycle event bus.
func (s *Shell) Bus() *event.Bus { return s.bus }

// Service returns the clock service.
func (s *Shell) Service() *clock.Service { return s.service }

// Coordinator returns the dynamicbox coordinator.
func (s *Shell) Coordinator() *widget.Coordinator { return s.coord }

// Runtime returns the simulated provider runtime.
func (s *Shell) Runtime() *provider.Runtime { return s.runtime }

// Screen returns the presentation layer.
func (s *Shell) Screen() *provider.Screen { return s.screen }

// Registry returns the package registry.
func (s *Shell) Registry() *provider.Registry { return s.registry }

// Request asks for pkg as the clock. Empty content falls back to the
// registry's default for the package. Must run on the loop.
func (s *Shell) Request(pkg, content string) (*clock.Clock, error) {
	if content == "" {
		if e, ok := s.registry.Lookup(pkg); ok {
			content = e.Content
		}
	}
	return s.service.Request(pkg, content)
}

// Boot pre-creates the first instance for the configured default package.
// Must run on the loop.
func (s *Shell) Boot() error {
	pkg := s.cfg.Clock.DefaultPackage
	if pkg == "" {
		return nil
	}
	return s.service.Boot(pkg)
}

// Foreground changes the screen's window state. Returning to the
// foreground resumes every family. Must run on the loop.
func (s *Shell) Foreground(active bool) {
	if !active {
		s.screen.SetForeground(widget.ForegroundBackground)
		return
	}
	s.screen.SetForeground(widget.ForegroundActive)
	s.service.Resume()
}

// Status is a point-in-time view of the shell.
type Status struct {
	Candidate string
	Attached  string
	Pending   int
	Deleting  int
	Frozen    int
	Cached    string
	Instances int
}

// Snapshot captures the current status. Must run on the loop.
func (s *Shell) Snapshot() Status {
	mgr := s.service.Manager()
	st := Status{
		Pending:   s.coord.Tracker().PendingCount(),
		Deleting:  s.coord.Tracker().DeletingCount(),
		Frozen:    s.coord.Tracker().FrozenCount(),
		Instances: len(s.runtime.Instances("")),
	}
	if c := mgr.Candidate(); c != nil {
		st.Candidate = c.String()
	}
	if c := mgr.Attached(); c != nil {
		st.Attached = c.String()
	}
	if inst := s.coord.Cache().Peek(); inst != nil {
		st.Cached = inst.ProviderID().String()
	}
	return st
}

// Drive runs the loop for d. A fake clock is advanced in small steps so
// the run completes instantly; any other clock runs in real time.
func (s *Shell) Drive(ctx context.Context, d time.Duration) error {
	if fc, ok := s.loop.Clock().(*clockwork.FakeClock); ok {
		s.loop.RunPending()
		for elapsed := time.Duration(0); elapsed < d; elapsed += virtualStep {
			if err := ctx.Err(); err != nil {
				return err
			}
			fc.Advance(virtualStep)
			s.loop.RunPending()
		}
		return nil
	}

	runCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	err := s.loop.Run(runCtx)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return nil
	}
	return err
}

// Close stops any provider processes the shell launched.
func (s *Shell) Close() {
	if s.launcher != nil {
		s.launcher.StopAll()
	}
}
