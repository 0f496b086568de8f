package executors

import (
	"context"
	"errors"
	"fmt"

	"github.com/fieldline/automation/pkg/services"
)

// ActionError partitions executor failures into transient (collaborator
// unavailable, timeout — retryable under policy) and permanent (invalid
// reference, unsupported config — never retried).
type ActionError struct {
	Err       error
	Transient bool
}

func (e *ActionError) Error() string {
	if e.Transient {
		return fmt.Sprintf("transient action error: %v", e.Err)
	}

	return fmt.Sprintf("permanent action error: %v", e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// NewTransient wraps err as a retryable action error.
func NewTransient(err error) *ActionError {
	return &ActionError{Err: err, Transient: true}
}

// NewPermanent wraps err as a non-retryable action error.
func NewPermanent(err error) *ActionError {
	return &ActionError{Err: err, Transient: false}
}

// IsTransient reports whether the error is retryable under policy.
func IsTransient(err error) bool {
	var actionErr *ActionError
	if errors.As(err, &actionErr) {
		return actionErr.Transient
	}

	return false
}

// Classify maps collaborator errors onto the taxonomy. Unreachable services
// and timeouts are transient; invalid references and everything else are
// permanent.
func Classify(err error) *ActionError {
	var actionErr *ActionError
	if errors.As(err, &actionErr) {
		return actionErr
	}

	if errors.Is(err, services.ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) {
		return NewTransient(err)
	}

	return NewPermanent(err)
}
