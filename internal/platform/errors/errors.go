// Package errors provides error wrapping and the sentinel errors shared by
// reconbus collaborators (DNS, HTTP, WHOIS, storage).
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors returned by collaborators. Plugins classify upstream
// failures with the Is* helpers and decide whether to emit nothing or to
// give up for the rest of the scan.
var (
	// ErrTimeout indicates an operation exceeded its time limit
	ErrTimeout = errors.New("operation timed out")

	// ErrRateLimit indicates an upstream rate limit was hit
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrNotFound indicates the queried name, record or resource does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input was provided
	ErrInvalidInput = errors.New("invalid input")

	// ErrConnectionFailed indicates a connection could not be established
	ErrConnectionFailed = errors.New("connection failed")

	// ErrUnauthorized indicates an API key was missing or rejected
	ErrUnauthorized = errors.New("unauthorized")

	// ErrServiceUnavailable indicates a service is temporarily unavailable
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrInvalidResponse indicates a response could not be parsed
	ErrInvalidResponse = errors.New("invalid response")

	// ErrCircuitOpen indicates a circuit breaker rejected the call
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// wrappedError wraps an error with additional context
type wrappedError struct {
	msg   string
	cause error
}

func (e *wrappedError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *wrappedError) Unwrap() error {
	return e.cause
}

// Wrap wraps an error with additional context message.
// If err is nil, Wrap returns nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{msg: msg, cause: err}
}

// Wrapf wraps an error with a formatted context message.
// If err is nil, Wrapf returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &wrappedError{msg: fmt.Sprintf(format, args...), cause: err}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// New creates a new error with the given message.
func New(msg string) error {
	return errors.New(msg)
}

// Errorf formats according to a format specifier and returns the string as an error.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// Join returns an error that wraps the given errors. Nil values are discarded.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// IsTimeout reports whether err is a timeout, including context deadlines.
func IsTimeout(err error) bool {
	return Is(err, ErrTimeout) || Is(err, context.DeadlineExceeded)
}

// IsCanceled reports whether err comes from a canceled context.
func IsCanceled(err error) bool {
	return Is(err, context.Canceled)
}

func IsRateLimit(err error) bool          { return Is(err, ErrRateLimit) }
func IsNotFound(err error) bool           { return Is(err, ErrNotFound) }
func IsInvalidInput(err error) bool       { return Is(err, ErrInvalidInput) }
func IsConnectionFailed(err error) bool   { return Is(err, ErrConnectionFailed) }
func IsUnauthorized(err error) bool       { return Is(err, ErrUnauthorized) }
func IsServiceUnavailable(err error) bool { return Is(err, ErrServiceUnavailable) }
func IsInvalidResponse(err error) bool    { return Is(err, ErrInvalidResponse) }
func IsCircuitOpen(err error) bool        { return Is(err, ErrCircuitOpen) }

// IsTransient reports whether retrying the same call later may succeed.
func IsTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case IsTimeout(err), IsRateLimit(err), IsConnectionFailed(err), IsServiceUnavailable(err), IsCircuitOpen(err):
		return true
	default:
		return false
	}
}
