package carrier

import (
	"errors"
	"fmt"
)

// AuthenticationError reports a failed login against a carrier's OAuth
// endpoint: wrong or missing credentials, or an auth endpoint failure.
type AuthenticationError struct {
	Carrier    string
	StatusCode int
	Status     string // carrier's HTTP status text
	Cause      error
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s authentication failed (%s): %v", e.Carrier, e.Status, e.Cause)
	}
	return fmt.Sprintf("%s authentication failed (%s): check client ID and secret", e.Carrier, e.Status)
}

// Unwrap returns the underlying cause.
func (e *AuthenticationError) Unwrap() error {
	return e.Cause
}

// Is matches the ErrAuthenticationFailed sentinel.
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAuthenticationFailed
}

// TrackingError reports a failed tracking call: a non-success HTTP status or
// an unparsable body from the tracking endpoint.
type TrackingError struct {
	Carrier    string
	StatusCode int
	Message    string
	Guidance   string
	Cause      error
}

// Error implements the error interface.
func (e *TrackingError) Error() string {
	msg := fmt.Sprintf("%s tracking request failed (HTTP %d): %s", e.Carrier, e.StatusCode, e.Message)
	if e.Guidance != "" {
		msg += ": " + e.Guidance
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *TrackingError) Unwrap() error {
	return e.Cause
}

// NewTrackingError creates a new TrackingError.
func NewTrackingError(carrier string, statusCode int, message string) *TrackingError {
	return &TrackingError{
		Carrier:    carrier,
		StatusCode: statusCode,
		Message:    message,
	}
}

// WithGuidance adds user-facing guidance to the error.
func (e *TrackingError) WithGuidance(guidance string) *TrackingError {
	e.Guidance = guidance
	return e
}

// WithCause adds a cause to the error.
func (e *TrackingError) WithCause(err error) *TrackingError {
	e.Cause = err
	return e
}

// Sentinel errors for common tracking scenarios.
var (
	// ErrCarrierNotFound indicates the requested carrier is not registered.
	ErrCarrierNotFound = errors.New("carrier not found")

	// ErrAuthenticationFailed indicates carrier authentication failed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrNotConfigured indicates a remote carrier has no credentials
	// configured. This is not a failure: callers fall back to the manual
	// package shape. It exists to keep "not configured" distinguishable
	// from "configured but broken".
	ErrNotConfigured = errors.New("carrier credentials not configured")
)
