// Package dberr defines the error taxonomy every backend-native failure is
// normalized into before it crosses a package boundary. Tool handlers map
// these onto structured {error_kind, message} results; driver error types
// never escape the backend that produced them.
package dberr

import (
	"errors"
	"fmt"
)

// Kind identifies one class of failure in the taxonomy.
type Kind string

const (
	ConfigNotFound   Kind = "config_not_found"
	ConfigInvalid    Kind = "config_invalid"
	SecretResolution Kind = "secret_resolution"
	Connection       Kind = "connection_error"
	Authentication   Kind = "authentication_error"
	NotConnected     Kind = "not_connected"
	TableNotFound    Kind = "table_not_found"
	UnsafeQuery      Kind = "unsafe_query"
	QuerySyntax      Kind = "query_syntax_error"
	QueryExecution   Kind = "query_execution_error"
	QueryTimeout     Kind = "query_timeout"
)

// Error is a classified failure carrying the original message. It wraps the
// native cause for logging but the cause is never required to interpret it.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a classified error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error, preserving it as the cause.
// The native message is carried so callers can surface it verbatim.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &Error{Kind: kind, Message: msg, cause: err}
}

// KindOf extracts the taxonomy kind from err, or "" if err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err is a classified error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsConnectionFailure reports whether err is a connection-level failure.
// Authentication is a distinguished subtype of connection failure.
func IsConnectionFailure(err error) bool {
	k := KindOf(err)
	return k == Connection || k == Authentication
}
