package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an operation failure for callers and the transport layer.
type Kind string

const (
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindNotAuthorized   Kind = "NOT_AUTHORIZED"
	KindValidation      Kind = "VALIDATION"
	KindNotFound        Kind = "NOT_FOUND"
	KindWrongState      Kind = "WRONG_STATE"
	KindConflict        Kind = "CONFLICT"
	KindForbidden       Kind = "FORBIDDEN"
	KindInternal        Kind = "INTERNAL"
)

// Error is a typed operation error carrying a human-readable message and
// enough structured context for the caller to decide whether to retry,
// correct input, or escalate.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause, if any
func (e *Error) Unwrap() error {
	return e.err
}

// WithDetail attaches one structured context value and returns the error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a typed error
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a typed error with a formatted message
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Unauthenticated means no actor identity was available.
func Unauthenticated() *Error {
	return New(KindUnauthenticated, "unauthorized")
}

// NotAuthorized means the actor role lacks permission for this operation.
func NotAuthorized(message string) *Error {
	return New(KindNotAuthorized, message)
}

// Validation means the input was malformed.
func Validation(format string, args ...any) *Error {
	return Newf(KindValidation, format, args...)
}

// NotFound means the referenced entity does not exist.
func NotFound(what string) *Error {
	return Newf(KindNotFound, "%s not found", what)
}

// WrongState means the entity exists but is not in a state this operation
// accepts.
func WrongState(format string, args ...any) *Error {
	return Newf(KindWrongState, format, args...)
}

// Conflict means a precondition computed from related data failed, including
// concurrent mutation detected by a guarded update.
func Conflict(format string, args ...any) *Error {
	return Newf(KindConflict, format, args...)
}

// Forbidden means the actor lacks the specific ownership relationship this
// operation requires.
func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

// Internal wraps a store or infrastructure failure, distinct from the domain
// taxonomy.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", err: err}
}

// KindOf extracts the Kind from an error chain; unclassified errors are
// KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// DetailsOf extracts structured details from an error chain, or nil.
func DetailsOf(err error) map[string]any {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Details
	}
	return nil
}
