// Package ledgererror defines the error taxonomy shared by the ledger toolkit:
// client-side validation, backend API responses and transport failures.
package ledgererror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is returned when the backend rejects the session (401/403).
	ErrUnauthorized = errors.New("session rejected by backend")

	// ErrNotFound is returned when a record or person does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStaleResponse marks a response superseded by a newer request for the same resource.
	ErrStaleResponse = errors.New("stale response discarded")

	// ErrOverpayment is returned when a payment would exceed the amount owed.
	ErrOverpayment = errors.New("paid amount exceeds total")
)

// ValidationError represents a client-side validation failure caught before
// any network call.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx backend response.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.Status, msg)
}

// Unwrap maps auth and missing-resource statuses onto the sentinels.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// TransportError wraps a failure to reach the backend at all.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is worth retrying for an idempotent read.
// Transport failures, 429 and 5xx are retryable; validation, auth and other
// 4xx responses are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= 500
	}
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// IsValidation reports whether err is a client-side validation failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
