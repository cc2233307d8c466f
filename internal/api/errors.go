package api

import (
	"errors"
	"fmt"
)

// Common API client errors
var (
	// ErrTransport is returned when the request never produced an HTTP
	// response (connection refused, DNS failure, timeout).
	ErrTransport = errors.New("could not reach the POS backend")

	// ErrBadStatus is returned for a non-2xx response. If the body carried a
	// JSON error message it is preserved on the wrapping StatusError.
	ErrBadStatus = errors.New("POS backend rejected the request")

	// ErrDecode is returned when a 2xx response body could not be decoded
	// into the expected shape.
	ErrDecode = errors.New("could not decode POS backend response")

	// ErrNoContent is returned by Do when the backend answered 204 and the
	// caller asked for a decoded body. Callers that can handle an empty
	// success treat this as "done, re-fetch if you need the new state".
	ErrNoContent = errors.New("POS backend returned no content")
)

// StatusError wraps a non-2xx response with whatever the backend said about
// it. Message is empty when the body had no parseable error field.
type StatusError struct {
	// Op is the operation that failed, e.g. "GET /sales/42".
	Op string

	// StatusCode is the HTTP status of the response.
	StatusCode int

	// Message is the backend's error text, if the body was JSON with an
	// "error" or "message" field.
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %s failed with status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api: %s failed with status %d", e.Op, e.StatusCode)
}

// Is implements error matching so callers can test errors.Is(err, ErrBadStatus).
func (e *StatusError) Is(target error) bool {
	return target == ErrBadStatus
}

// CallError wraps transport and decode failures with the operation that
// produced them.
type CallError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *CallError) Error() string {
	return fmt.Sprintf("api: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *CallError) Unwrap() error {
	return e.Err
}
