package models

import (
	"errors"
	"fmt"
)

// ErrorKind identifies the category of a failure.
type ErrorKind string

const (
	// KindInvalidRequest covers bad subjects, models, prompt types or sample
	// counts. Rejected before any unit is created.
	KindInvalidRequest ErrorKind = "invalid_request"
	// KindNotFound covers unknown task ids.
	KindNotFound ErrorKind = "not_found"
	// KindModelUnavailable covers transient backend failures (transport,
	// rate limit, timeout). Retried before being recorded per-unit.
	KindModelUnavailable ErrorKind = "model_unavailable"
	// KindUngraded means the grader could not parse an answer out of the
	// response. Deterministic, never retried.
	KindUngraded ErrorKind = "ungraded"
	// KindInternal is the catch-all for unexpected defects.
	KindInternal ErrorKind = "internal"
)

// Error is a kind-carrying error used across the service boundary.
type Error struct {
	Kind ErrorKind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// NewError builds a kinded error with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// WrapError attaches a kind and message to an underlying error.
func WrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...), err: err}
}

// KindOf extracts the ErrorKind from err, defaulting to KindInternal for
// errors that carry no kind. Returns "" for nil.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
