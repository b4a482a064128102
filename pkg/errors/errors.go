package errors

import (
	"errors"
	"fmt"
)

// Error represents a typed pipeline error.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Predefined errors for common pipeline conditions.
var (
	ErrMalformedEvent   = New("MALFORMED_EVENT", "event payload could not be decoded")
	ErrInvalidEnvelope  = New("INVALID_ENVELOPE", "event envelope failed validation")
	ErrUnknownEventType = New("UNKNOWN_EVENT_TYPE", "event type is not recognised")
	ErrLateEvent        = New("LATE_EVENT", "event arrived after its window's grace period")
	ErrStoreStopped     = New("STORE_STOPPED", "aggregate store is not accepting events")
	ErrCacheMiss        = New("CACHE_MISS", "cache entry not found")
	ErrNotFound         = New("NOT_FOUND", "resource not found")
	ErrInternal         = New("INTERNAL_ERROR", "internal error")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Message)
}
