package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateID is returned when a feature id is already in the store.
	ErrDuplicateID = errors.New("duplicate feature id")
	// ErrNotFound is returned when a feature id is not in the store.
	ErrNotFound = errors.New("feature not found")
	// ErrPersistenceUnavailable means the configured backend could not be reached
	// at startup; submission stays disabled for the life of the process.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	// ErrMalformedState marks durable data that is not a feature collection.
	ErrMalformedState = errors.New("malformed persisted state")
	// ErrGeolocation is a denied or unsupported geolocation request.
	ErrGeolocation = errors.New("geolocation unavailable")
	// ErrSubmissionInFlight is returned to a submit that overlaps another one.
	ErrSubmissionInFlight = errors.New("submission already in flight")
)

// ValidationError reports a required field missing before submit.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// WriteFailure is a rejected or unreachable durable write.
type WriteFailure struct {
	Op    string
	Cause error
}

func (e *WriteFailure) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Cause)
}

func (e *WriteFailure) Unwrap() error { return e.Cause }
