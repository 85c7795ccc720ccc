// Package taskerr defines structured error kinds shared by the store, the
// sync cache, and the HTTP layer. Errors carry a machine-readable kind and a
// human-readable message.
package taskerr

import (
	"errors"
	"fmt"
)

// Error kind constants. Uppercase and stable; the HTTP layer maps them to
// status codes.
const (
	Validation   = "VALIDATION"
	NotFound     = "NOT_FOUND"
	InvalidState = "INVALID_STATE"
	Unauthorized = "UNAUTHORIZED"
	Transient    = "TRANSIENT"
)

// Error represents a structured error with a machine-readable kind.
type Error struct {
	Kind    string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Message }

// New creates an Error with the given kind and message.
func New(kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or empty string if err is not a taskerr.Error.
func KindOf(err error) string {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}

// IsKind reports whether err is a taskerr.Error of the given kind.
func IsKind(err error, kind string) bool {
	return KindOf(err) == kind
}
