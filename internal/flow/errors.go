package flow

import (
	"errors"
	"fmt"
)

// MisuseError reports a precondition fault by the host: calling an operation
// before the flow is in a state that supports it. It signals a programming
// error, not a payment failure.
type MisuseError struct {
	Op     string
	Reason string
}

func (e *MisuseError) Error() string {
	return fmt.Sprintf("flow: %s: %s", e.Op, e.Reason)
}

func newMisuseError(op, reason string) *MisuseError {
	return &MisuseError{Op: op, Reason: reason}
}

// IsMisuse reports whether err is a precondition fault.
func IsMisuse(err error) bool {
	var misuse *MisuseError
	return errors.As(err, &misuse)
}

// FailureKind classifies where in the flow a failure occurred.
type FailureKind string

const (
	// FailureInit covers session loading: intent fetch, saved method
	// listing, wallet readiness and hint recovery.
	FailureInit FailureKind = "initialization"
	// FailureSelection covers the option picker round trip.
	FailureSelection FailureKind = "selection"
	// FailureConfirmation covers the confirmation attempt itself.
	FailureConfirmation FailureKind = "confirmation"
)

// Failure wraps an underlying error with the flow phase it belongs to.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Kind) + " failed"
	}
	return string(f.Kind) + " failed: " + f.Err.Error()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func newFailure(kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

// FailureKindOf returns the failure classification of err, or an empty kind
// when err is not a classified flow failure.
func FailureKindOf(err error) FailureKind {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Kind
	}
	return ""
}
