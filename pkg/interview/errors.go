package interview

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes session errors.
type ErrorKind string

const (
	// ErrKindConnect: the transport failed to establish after all retries.
	ErrKindConnect ErrorKind = "connect_error"
	// ErrKindTransport: a runtime problem on the live call (audio,
	// permission, quota, timeout). Does not end the session.
	ErrKindTransport ErrorKind = "transport_error"
	// ErrKindFeedback: the finalize or recovery call failed. The snapshot is
	// preserved for retry.
	ErrKindFeedback ErrorKind = "feedback_error"
	// ErrKindPersistence: a snapshot write failed. Advisory only; the
	// in-memory session continues.
	ErrKindPersistence ErrorKind = "persistence_error"
)

// Error is the session error type.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error wrapping.
func (e *Error) Unwrap() error { return e.Cause }

// NewConnectError reports connect exhaustion after the given attempt count.
func NewConnectError(attempts int, cause error) *Error {
	return &Error{
		Kind:    ErrKindConnect,
		Message: fmt.Sprintf("connection failed after %d attempts", attempts),
		Cause:   cause,
	}
}

// NewTransportError reports a classified runtime transport problem.
func NewTransportError(kind, message string) *Error {
	if kind == "" {
		kind = "connection"
	}
	return &Error{
		Kind:    ErrKindTransport,
		Message: fmt.Sprintf("%s: %s", kind, message),
	}
}

// NewFeedbackError wraps a failed feedback/recovery call.
func NewFeedbackError(op string, cause error) *Error {
	return &Error{
		Kind:    ErrKindFeedback,
		Message: op,
		Cause:   cause,
	}
}

// NewPersistenceError wraps a failed snapshot write.
func NewPersistenceError(op string, cause error) *Error {
	return &Error{
		Kind:    ErrKindPersistence,
		Message: op,
		Cause:   cause,
	}
}

// KindOf returns the ErrorKind of err, or "" when err is not a session Error.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
