// Package controlerr provides a structured error type for failures raised at
// the core runtime boundary (scheduler, middleware chain, agentic loops).
//
// ControlError preserves a coarse-grained Kind alongside a causal chain so
// callers can branch on failure category (validation vs. transient transport
// vs. fatal) while still supporting errors.Is/As through Unwrap.
package controlerr

import (
	"errors"
	"fmt"
)

// Kind classifies a ControlError into one of the categories from the error
// handling design. Kinds drive retry and propagation decisions; they are not
// meant to be exhaustive wire-level error codes.
type Kind string

const (
	// KindValidation marks malformed caller input (e.g. a nil thread id).
	// Validation failures fail the offending call immediately and never
	// affect an in-flight run.
	KindValidation Kind = "validation"

	// KindTransientTransport marks a recoverable network failure talking to
	// the cost endpoint or a backend process. Callers may retry up to a
	// bound before degrading.
	KindTransientTransport Kind = "transient_transport"

	// KindBackendFatal marks an unrecoverable backend exit. The current run
	// terminates with is_error=true; history preserves partial output.
	KindBackendFatal Kind = "backend_fatal"

	// KindCancelled marks termination via ambient cancellation. The run ends
	// without is_error and without additional metadata commitments beyond
	// messages already persisted.
	KindCancelled Kind = "cancelled"

	// KindStoreFailure marks a ConversationStore error. Store failures are
	// logged and never fail a run.
	KindStoreFailure Kind = "store_failure"
)

// ControlError is a structured error carrying a Kind, a human-readable
// message, and an optional cause. It implements error and supports
// errors.Is/As via Unwrap.
type ControlError struct {
	Kind    Kind
	Message string
	Cause   error
}

// New constructs a ControlError with the given kind and message.
func New(kind Kind, message string) *ControlError {
	return &ControlError{Kind: kind, Message: message}
}

// Errorf constructs a ControlError with a formatted message.
func Errorf(kind Kind, format string, args ...any) *ControlError {
	return &ControlError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs a ControlError of the given kind that wraps cause. If
// message is empty, cause's message is used.
func Wrap(kind Kind, message string, cause error) *ControlError {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &ControlError{Kind: kind, Message: message, Cause: cause}
}

// Error implements error.
func (e *ControlError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause to support errors.Is/As.
func (e *ControlError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is a *ControlError with the same Kind, enabling
// errors.Is(err, controlerr.New(controlerr.KindCancelled, "")) style checks
// that ignore Message/Cause.
func (e *ControlError) Is(target error) bool {
	var ce *ControlError
	if !errors.As(target, &ce) {
		return false
	}
	return ce.Kind == e.Kind
}

// KindOf extracts the Kind from err when it is (or wraps) a ControlError,
// returning ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var ce *ControlError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}
