package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound    = errors.New("resource not found")
	ErrJobNotFound = fmt.Errorf("%w: job", ErrNotFound)

	// Input errors
	ErrInvalidTenant = errors.New("invalid tenant id")
	ErrInvalidSeries = errors.New("invalid series name")
	ErrUnknownSeries = errors.New("unknown series")
	ErrInvalidWidth  = errors.New("invalid identifier width")

	// Allocation errors
	ErrStore               = errors.New("store error")
	ErrAllocationTimeout   = errors.New("allocation timeout")
	ErrAllocationExhausted = errors.New("allocation exhausted")
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
)

// NewNotFoundError builds a not-found error with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// IsNotFoundError reports whether err is a not-found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInputError reports whether err was caused by caller input
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidTenant) ||
		errors.Is(err, ErrInvalidSeries) ||
		errors.Is(err, ErrUnknownSeries) ||
		errors.Is(err, ErrInvalidWidth)
}

// IsRetryable reports whether the whole record-creation request may be retried.
// Exhaustion is deliberately not retryable.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrAllocationTimeout) ||
		errors.Is(err, ErrDuplicateIdentifier)
}
