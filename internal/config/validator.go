package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "clock.retry_count")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Upper bounds that keep a misconfigured coordinator from stalling a clock
// area indefinitely.
const (
	maxRefreshCount   = 1000
	maxForceTimeoutMs = 60_000
	maxRetryCount     = 100
)

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateClock()...)
	errors = append(errors, c.validateProvider()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateClock validates the ClockConfig
func (c *Config) validateClock() []ValidationError {
	var errors []ValidationError

	if c.Clock.RefreshCount < 0 || c.Clock.RefreshCount > maxRefreshCount {
		errors = append(errors, ValidationError{
			Field:   "clock.refresh_count",
			Value:   c.Clock.RefreshCount,
			Message: fmt.Sprintf("must be between 0 and %d", maxRefreshCount),
		})
	}

	if c.Clock.ForceTimeoutMs <= 0 || c.Clock.ForceTimeoutMs > maxForceTimeoutMs {
		errors = append(errors, ValidationError{
			Field:   "clock.force_timeout_ms",
			Value:   c.Clock.ForceTimeoutMs,
			Message: fmt.Sprintf("must be between 1 and %d", maxForceTimeoutMs),
		})
	}

	if c.Clock.RetryCount < 0 || c.Clock.RetryCount > maxRetryCount {
		errors = append(errors, ValidationError{
			Field:   "clock.retry_count",
			Value:   c.Clock.RetryCount,
			Message: fmt.Sprintf("must be between 0 and %d", maxRetryCount),
		})
	}

	if c.Clock.UpdatePeriodMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "clock.update_period_ms",
			Value:   c.Clock.UpdatePeriodMs,
			Message: "must be non-negative",
		})
	}

	if c.Clock.FirstInstanceDebounceMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "clock.first_instance_debounce_ms",
			Value:   c.Clock.FirstInstanceDebounceMs,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateProvider validates the ProviderConfig
func (c *Config) validateProvider() []ValidationError {
	var errors []ValidationError

	if c.Provider.CreateLatencyMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "provider.create_latency_ms",
			Value:   c.Provider.CreateLatencyMs,
			Message: "must be non-negative",
		})
	}

	for i, route := range c.Provider.Families {
		field := fmt.Sprintf("provider.families[%d]", i)
		if strings.TrimSpace(route.Pattern) == "" {
			errors = append(errors, ValidationError{
				Field:   field + ".pattern",
				Value:   route.Pattern,
				Message: "cannot be empty",
			})
		} else if _, err := glob.Compile(route.Pattern); err != nil {
			errors = append(errors, ValidationError{
				Field:   field + ".pattern",
				Value:   route.Pattern,
				Message: fmt.Sprintf("invalid glob: %v", err),
			})
		}
		if !slices.Contains(KnownFamilies(), route.Family) {
			errors = append(errors, ValidationError{
				Field:   field + ".family",
				Value:   route.Family,
				Message: fmt.Sprintf("must be one of: %s", strings.Join(KnownFamilies(), ", ")),
			})
		}
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
