package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides,
// e.g. HOMECLOCK_CLOCK_RETRY_COUNT.
const EnvPrefix = "HOMECLOCK"

// Config represents the complete homeclock configuration
type Config struct {
	Clock    ClockConfig    `mapstructure:"clock"`
	Provider ProviderConfig `mapstructure:"provider"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ClockConfig controls the widget lifecycle coordinator
type ClockConfig struct {
	// RefreshCount is the number of provider update signals that complete a
	// pending instance (default: 5)
	RefreshCount int `mapstructure:"refresh_count"`
	// ForceTimeoutMs completes a pending instance even if fewer updates
	// arrived (default: 2500)
	ForceTimeoutMs int `mapstructure:"force_timeout_ms"`
	// RetryCount is how many times a faulted provider is reactivated before
	// it is declared fatal (default: 3)
	RetryCount int `mapstructure:"retry_count"`
	// UpdatePeriodMs is the update period requested from providers; 0 lets the
	// provider decide
	UpdatePeriodMs int `mapstructure:"update_period_ms"`
	// FirstInstanceDebounceMs suppresses rebuilding the first-instance cache
	// this soon after a mismatch discarded it (default: 1000, 0 = disabled)
	FirstInstanceDebounceMs int `mapstructure:"first_instance_debounce_ms"`
	// DefaultPackage is pre-created at boot as the first instance
	DefaultPackage string `mapstructure:"default_package"`
}

// ProviderConfig controls how providers are found and started
type ProviderConfig struct {
	// RegistryFile is a YAML file mapping package names to provider ids
	RegistryFile string `mapstructure:"registry_file"`
	// WatchRegistry reloads the registry when the file changes (default: true)
	WatchRegistry bool `mapstructure:"watch_registry"`
	// LaunchCommand is the command used to start a provider process. The
	// provider id and content are appended as arguments. Empty disables
	// launching.
	LaunchCommand []string `mapstructure:"launch_command"`
	// Families routes package names to clock families by glob pattern.
	// The first matching route wins.
	Families []FamilyRoute `mapstructure:"families"`
	// CreateLatencyMs is the simulated delay before a provider acknowledges
	// an instance (simulation only, default: 200)
	CreateLatencyMs int `mapstructure:"create_latency_ms"`
}

// FamilyRoute maps a package glob to a family name
type FamilyRoute struct {
	Pattern string `mapstructure:"pattern" yaml:"pattern"`
	Family  string `mapstructure:"family" yaml:"family"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error"
	Level string `mapstructure:"level"`
	// Dir is where homeclock.log is written; empty logs to stderr
	Dir string `mapstructure:"dir"`
}

// MetricsConfig controls prometheus metrics
type MetricsConfig struct {
	// Enabled registers coordinator metrics (default: true)
	Enabled bool `mapstructure:"enabled"`
	// ListenAddr serves /metrics on this address when set, e.g. ":9464"
	ListenAddr string `mapstructure:"listen_addr"`
}

// Default family names
const (
	FamilyDynamicBox = "dbox"
)

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Clock: ClockConfig{
			RefreshCount:            5,
			ForceTimeoutMs:          2500,
			RetryCount:              3,
			UpdatePeriodMs:          0,
			FirstInstanceDebounceMs: 1000,
			DefaultPackage:          "",
		},
		Provider: ProviderConfig{
			RegistryFile:  "",
			WatchRegistry: true,
			LaunchCommand: []string{},
			Families: []FamilyRoute{
				{Pattern: "*", Family: FamilyDynamicBox},
			},
			CreateLatencyMs: 200,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "",
		},
		Metrics: MetricsConfig{
			Enabled:    true,
			ListenAddr: "",
		},
	}
}

// ForceTimeout returns the force-completion timeout as a time.Duration
func (c *ClockConfig) ForceTimeout() time.Duration {
	return time.Duration(c.ForceTimeoutMs) * time.Millisecond
}

// UpdatePeriod returns the provider update period (0 means provider default)
func (c *ClockConfig) UpdatePeriod() time.Duration {
	return time.Duration(c.UpdatePeriodMs) * time.Millisecond
}

// FirstInstanceDebounce returns the cache rebuild debounce (0 means disabled)
func (c *ClockConfig) FirstInstanceDebounce() time.Duration {
	return time.Duration(c.FirstInstanceDebounceMs) * time.Millisecond
}

// CreateLatency returns the simulated creation latency
func (c *ProviderConfig) CreateLatency() time.Duration {
	return time.Duration(c.CreateLatencyMs) * time.Millisecond
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Clock defaults
	viper.SetDefault("clock.refresh_count", defaults.Clock.RefreshCount)
	viper.SetDefault("clock.force_timeout_ms", defaults.Clock.ForceTimeoutMs)
	viper.SetDefault("clock.retry_count", defaults.Clock.RetryCount)
	viper.SetDefault("clock.update_period_ms", defaults.Clock.UpdatePeriodMs)
	viper.SetDefault("clock.first_instance_debounce_ms", defaults.Clock.FirstInstanceDebounceMs)
	viper.SetDefault("clock.default_package", defaults.Clock.DefaultPackage)

	// Provider defaults
	viper.SetDefault("provider.registry_file", defaults.Provider.RegistryFile)
	viper.SetDefault("provider.watch_registry", defaults.Provider.WatchRegistry)
	viper.SetDefault("provider.launch_command", defaults.Provider.LaunchCommand)
	viper.SetDefault("provider.families", defaults.Provider.Families)
	viper.SetDefault("provider.create_latency_ms", defaults.Provider.CreateLatencyMs)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", defaults.Metrics.Enabled)
	viper.SetDefault("metrics.listen_addr", defaults.Metrics.ListenAddr)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults when the
// loaded configuration is invalid
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Watch reloads the configuration whenever the config file changes and
// hands each valid result to onChange. Invalid edits are reported to
// onError and otherwise ignored.
func Watch(onChange func(*Config), onError func(error)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := Load()
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		if onChange != nil {
			onChange(cfg)
		}
	})
	viper.WatchConfig()
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "homeclock")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".homeclock"
	}
	return filepath.Join(home, ".config", "homeclock")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// KnownFamilies returns the clock family names this build can serve
func KnownFamilies() []string {
	return []string{FamilyDynamicBox}
}
