// Package errors provides centralized error definitions and error handling
// utilities for homeclock. It defines the widget fault taxonomy, a
// domain error type carrying provider context, and classification helpers.
//
// # Taxonomy
//
//   - Resolution: the package name does not map to a provider. Not retried.
//   - CreationFault: the provider failed while creating an instance. Retried
//     by building a fresh instance on the next prepare.
//   - RuntimeFault: the provider died after attachment. Retried by bounded
//     reactivation.
//   - RetryExhausted: reactivation budget spent. Fatal for that provider.
//   - ViewUnavailable: there is no presentation surface. The caller must
//     abort the whole request.
//
// # Usage
//
//	err := errors.NewWidgetError(errors.KindResolution, "cannot resolve package", errors.ErrResolution).
//		WithPackage("org.example.clock")
//
//	if errors.Is(err, errors.ErrResolution) { ... }
//
//	var werr *errors.WidgetError
//	if errors.As(err, &werr) && werr.Kind == errors.KindRuntimeFault { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Widget lifecycle sentinel errors
var (
	// ErrResolution indicates that a package name could not be resolved to a provider id.
	ErrResolution = New("provider resolution failed")
	// ErrCreationFault indicates that a provider failed while creating an instance.
	ErrCreationFault = New("provider creation fault")
	// ErrRuntimeFault indicates that a provider died after its widget was attached.
	ErrRuntimeFault = New("provider runtime fault")
	// ErrRetryExhausted indicates that the reactivation budget of a provider is spent.
	ErrRetryExhausted = New("provider retries exhausted")
	// ErrViewUnavailable indicates that there is no presentation surface to embed into.
	ErrViewUnavailable = New("view surface unavailable")
	// ErrNoView indicates that a clock has no view attached.
	ErrNoView = New("clock has no view")
	// ErrEmbedFailed indicates that the presenter refused to embed an instance.
	ErrEmbedFailed = New("failed to embed widget")
	// ErrInstanceUnavailable indicates that no widget instance could be obtained.
	ErrInstanceUnavailable = New("no widget instance available")
)

// Clock service sentinel errors
var (
	// ErrUnknownFamily indicates that no clock family is registered for a package.
	ErrUnknownFamily = New("unknown clock family")
	// ErrNoCandidate indicates an operation that requires a candidate clock.
	ErrNoCandidate = New("no candidate clock")
)

// General sentinel errors
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrNotFound indicates that a resource could not be found.
	ErrNotFound = New("not found")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// HomeError is the base interface for all homeclock errors.
type HomeError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the condition is transient and the
	// provider may recover on its own or through a fresh instance.
	IsRetryable() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// -----------------------------------------------------------------------------
// Widget Errors
// -----------------------------------------------------------------------------

// Kind classifies a widget lifecycle failure.
type Kind int

const (
	// KindResolution is a bad package name.
	KindResolution Kind = iota
	// KindCreationFault is a provider failure during instance creation.
	KindCreationFault
	// KindRuntimeFault is a provider failure after attachment.
	KindRuntimeFault
	// KindRetryExhausted is a spent reactivation budget.
	KindRetryExhausted
	// KindViewUnavailable is a missing presentation surface.
	KindViewUnavailable
)

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	switch k {
	case KindResolution:
		return "resolution_error"
	case KindCreationFault:
		return "creation_fault"
	case KindRuntimeFault:
		return "runtime_fault"
	case KindRetryExhausted:
		return "retry_exhausted"
	case KindViewUnavailable:
		return "view_unavailable"
	default:
		return "unknown"
	}
}

// defaults returns the severity and retryability a kind starts with.
func (k Kind) defaults() (Severity, bool) {
	switch k {
	case KindCreationFault, KindRuntimeFault:
		return SeverityWarning, true
	case KindRetryExhausted:
		return SeverityCritical, false
	default:
		return SeverityError, false
	}
}

// WidgetError represents a failure in the widget lifecycle.
//
// Example:
//
//	err := errors.NewWidgetError(errors.KindRuntimeFault, "provider died", errors.ErrRuntimeFault).
//		WithProvider("clock.a.dbox").WithFamily("dbox")
//	fmt.Println(err) // "runtime_fault [provider=clock.a.dbox, family=dbox]: provider died: provider runtime fault"
type WidgetError struct {
	baseError
	Kind        Kind
	ProviderID  string
	PackageName string
	Family      string
}

// NewWidgetError creates a new WidgetError of the given kind.
func NewWidgetError(kind Kind, message string, cause error) *WidgetError {
	severity, retryable := kind.defaults()
	return &WidgetError{
		baseError: baseError{
			message:   message,
			cause:     cause,
			severity:  severity,
			retryable: retryable,
		},
		Kind: kind,
	}
}

// WithProvider adds a provider id to the error context.
func (e *WidgetError) WithProvider(id string) *WidgetError {
	e.ProviderID = id
	return e
}

// WithPackage adds a package name to the error context.
func (e *WidgetError) WithPackage(pkg string) *WidgetError {
	e.PackageName = pkg
	return e
}

// WithFamily adds a clock family name to the error context.
func (e *WidgetError) WithFamily(family string) *WidgetError {
	e.Family = family
	return e
}

// WithSeverity sets the error severity.
func (e *WidgetError) WithSeverity(s Severity) *WidgetError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *WidgetError) Error() string {
	var parts []string
	if e.ProviderID != "" {
		parts = append(parts, fmt.Sprintf("provider=%s", e.ProviderID))
	}
	if e.PackageName != "" {
		parts = append(parts, fmt.Sprintf("package=%s", e.PackageName))
	}
	if e.Family != "" {
		parts = append(parts, fmt.Sprintf("family=%s", e.Family))
	}

	prefix := e.Kind.String()
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", prefix, strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is reports whether target is a *WidgetError or matches the cause chain.
func (e *WidgetError) Is(target error) bool {
	if t, ok := target.(*WidgetError); ok {
		return t.Kind == e.Kind
	}
	return false
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a missing resource.
type NotFoundError struct {
	ResourceType string
	ResourceID   string
	cause        error
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds an underlying cause.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.ResourceType, e.ResourceID)
}

// Unwrap returns the underlying error.
func (e *NotFoundError) Unwrap() error {
	return e.cause
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError represents invalid input.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed for %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// Is matches ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error is transient. Provider faults are
// retryable; resolution errors, exhaustion and missing views are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var homeErr HomeError
	if As(err, &homeErr) {
		return homeErr.IsRetryable()
	}

	return Is(err, ErrCreationFault) || Is(err, ErrRuntimeFault)
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement HomeError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var homeErr HomeError
	if As(err, &homeErr) {
		return homeErr.Severity()
	}
	return SeverityError
}

// KindOf returns the widget error kind carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var werr *WidgetError
	if As(err, &werr) {
		return werr.Kind, true
	}
	return 0, false
}

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
