package shell

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/homeclock/internal/clock"
	"github.com/Iron-Ham/homeclock/internal/errors"
	"github.com/Iron-Ham/homeclock/internal/provider"
	"github.com/Iron-Ham/homeclock/internal/widget"
)

// Actions a scenario step can take.
const (
	ActionRequest      = "request"
	ActionConfigure    = "configure"
	ActionRelease      = "release"
	ActionFault        = "fault"
	ActionBackground   = "background"
	ActionForeground   = "foreground"
	ActionHideScroller = "hide_scroller"
	ActionShowScroller = "show_scroller"
	ActionScroll       = "scroll"
	ActionBoot         = "boot"
)

var validActions = map[string]bool{
	ActionRequest:      true,
	ActionConfigure:    true,
	ActionRelease:      true,
	ActionFault:        true,
	ActionBackground:   true,
	ActionForeground:   true,
	ActionHideScroller: true,
	ActionShowScroller: true,
	ActionScroll:       true,
	ActionBoot:         true,
}

// DefaultSettle is how long a scenario keeps running after its last step.
const DefaultSettle = 5 * time.Second

// Scenario is a scripted sequence of shell actions.
type Scenario struct {
	Name string `yaml:"name"`
	// SettleMs is how long to keep running after the last step.
	SettleMs int `yaml:"settle_ms,omitempty"`
	// Providers scripts simulated providers by provider id. The key "*"
	// sets the default behavior.
	Providers map[string]BehaviorSpec `yaml:"providers,omitempty"`
	Steps     []Step                  `yaml:"steps"`
}

// BehaviorSpec is the YAML form of provider.Behavior.
type BehaviorSpec struct {
	// CreateStatus is "none", "fault" or "error".
	CreateStatus     string `yaml:"create_status,omitempty"`
	Updates          *int   `yaml:"updates,omitempty"`
	UpdateIntervalMs int    `yaml:"update_interval_ms,omitempty"`
	ActivateFails    bool   `yaml:"activate_fails,omitempty"`
}

// Step is one timed action.
type Step struct {
	// AfterMs is the delay since the previous step.
	AfterMs int    `yaml:"after_ms,omitempty"`
	Action  string `yaml:"action"`
	Package string `yaml:"package,omitempty"`
	// Provider targets fault and scroll steps. Package is resolved when
	// Provider is empty.
	Provider string `yaml:"provider,omitempty"`
	Content  string `yaml:"content,omitempty"`
	Hold     bool   `yaml:"hold,omitempty"`
}

// LoadScenario reads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read scenario")
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, errors.Wrap(err, "failed to parse scenario")
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks every step and behavior.
func (sc *Scenario) Validate() error {
	if len(sc.Steps) == 0 {
		return fmt.Errorf("scenario %q has no steps", sc.Name)
	}
	if sc.SettleMs < 0 {
		return fmt.Errorf("settle_ms must be non-negative, got %d", sc.SettleMs)
	}
	for id, b := range sc.Providers {
		if _, err := b.behavior(); err != nil {
			return errors.Wrapf(err, "providers.%s", id)
		}
	}
	for i, st := range sc.Steps {
		if !validActions[st.Action] {
			return fmt.Errorf("steps[%d]: unknown action %q", i, st.Action)
		}
		if st.AfterMs < 0 {
			return fmt.Errorf("steps[%d]: after_ms must be non-negative", i)
		}
		switch st.Action {
		case ActionRequest:
			if st.Package == "" {
				return fmt.Errorf("steps[%d]: %s needs a package", i, st.Action)
			}
		case ActionFault, ActionScroll:
			if st.Package == "" && st.Provider == "" {
				return fmt.Errorf("steps[%d]: %s needs a package or provider", i, st.Action)
			}
		}
	}
	return nil
}

// Duration is the time from start to the last step plus the settle time.
func (sc *Scenario) Duration() time.Duration {
	var total time.Duration
	for _, st := range sc.Steps {
		total += time.Duration(st.AfterMs) * time.Millisecond
	}
	settle := DefaultSettle
	if sc.SettleMs > 0 {
		settle = time.Duration(sc.SettleMs) * time.Millisecond
	}
	return total + settle
}

func (b BehaviorSpec) behavior() (provider.Behavior, error) {
	out := provider.DefaultBehavior()
	switch strings.ToLower(b.CreateStatus) {
	case "", "none":
		out.CreateStatus = widget.StatusNone
	case "fault":
		out.CreateStatus = widget.StatusFault
	case "error":
		out.CreateStatus = widget.StatusError
	default:
		return out, fmt.Errorf("unknown create_status %q", b.CreateStatus)
	}
	if b.Updates != nil {
		out.Updates = *b.Updates
	}
	out.UpdateInterval = time.Duration(b.UpdateIntervalMs) * time.Millisecond
	out.ActivateFails = b.ActivateFails
	return out, nil
}

// Schedule applies the scenario's provider behaviors and queues its steps
// on the loop. Drive the shell for sc.Duration() to play it.
func (s *Shell) Schedule(sc *Scenario) error {
	for id, spec := range sc.Providers {
		b, err := spec.behavior()
		if err != nil {
			return errors.Wrapf(err, "providers.%s", id)
		}
		if id == "*" {
			s.runtime.SetDefaultBehavior(b)
		} else {
			s.runtime.SetBehavior(clock.ProviderID(id), b)
		}
	}

	var at time.Duration
	for i, st := range sc.Steps {
		at += time.Duration(st.AfterMs) * time.Millisecond
		s.loop.AfterFunc(at, func() {
			if err := s.apply(st); err != nil {
				s.logger.Warn("scenario step failed", "step", i, "action", st.Action, "error", err)
			}
		})
	}
	return nil
}

func (s *Shell) apply(st Step) error {
	s.logger.Debug("scenario step", "action", st.Action, "package", st.Package)
	switch st.Action {
	case ActionRequest:
		_, err := s.Request(st.Package, st.Content)
		return err
	case ActionConfigure:
		return s.service.Reconfigure(st.Content)
	case ActionRelease:
		s.service.Release()
	case ActionFault:
		id, err := s.target(st)
		if err != nil {
			return err
		}
		if s.runtime.Fault(id) == 0 {
			return fmt.Errorf("no live instance of %s to fault", id)
		}
	case ActionScroll:
		id, err := s.target(st)
		if err != nil {
			return err
		}
		for _, inst := range s.runtime.Instances(id) {
			inst.Scroll(st.Hold)
		}
	case ActionBackground:
		s.Foreground(false)
	case ActionForeground:
		s.Foreground(true)
	case ActionHideScroller:
		s.screen.SetScrollerVisible(false)
	case ActionShowScroller:
		s.screen.SetScrollerVisible(true)
	case ActionBoot:
		if st.Package != "" {
			return s.service.Boot(st.Package)
		}
		return s.Boot()
	}
	return nil
}

func (s *Shell) target(st Step) (clock.ProviderID, error) {
	if st.Provider != "" {
		return clock.ProviderID(st.Provider), nil
	}
	id, ok := s.registry.Resolve(st.Package)
	if !ok {
		return "", fmt.Errorf("package %s does not resolve", st.Package)
	}
	return id, nil
}
