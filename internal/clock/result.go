package clock

import "strings"

// Result is the outcome of a family operation. It is a small bit set: exactly
// one of ResultOK, ResultAsync or ResultFail, optionally combined with
// ResultNeedDestroyPrevious.
type Result uint8

const (
	// ResultOK means the operation completed; for prepare, create may follow
	// immediately.
	ResultOK Result = 0
	// ResultAsync means the caller must wait for a readiness upcall.
	ResultAsync Result = 1 << 0
	// ResultFail means the operation failed; the error says why.
	ResultFail Result = 1 << 1
	// ResultNeedDestroyPrevious asks the caller to tear down the attached
	// clock before the new one can become ready.
	ResultNeedDestroyPrevious Result = 1 << 2
)

// OK reports whether the result is a plain success.
func (r Result) OK() bool {
	return r&(ResultAsync|ResultFail) == 0
}

// Async reports whether the caller must wait.
func (r Result) Async() bool {
	return r&ResultAsync != 0
}

// Failed reports whether the operation failed.
func (r Result) Failed() bool {
	return r&ResultFail != 0
}

// NeedsDestroyPrevious reports whether the sticky teardown flag is set.
func (r Result) NeedsDestroyPrevious() bool {
	return r&ResultNeedDestroyPrevious != 0
}

// String renders the result for logs, e.g. "async|destroy_previous".
func (r Result) String() string {
	var parts []string
	switch {
	case r.Failed():
		parts = append(parts, "fail")
	case r.Async():
		parts = append(parts, "async")
	default:
		parts = append(parts, "ok")
	}
	if r.NeedsDestroyPrevious() {
		parts = append(parts, "destroy_previous")
	}
	return strings.Join(parts, "|")
}
