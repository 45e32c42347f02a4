package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the failure classes of the fetch and session layers
type ErrorType string

const (
	ErrorTypeBlocked     ErrorType = "blocked"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeMalformed   ErrorType = "malformed"
	ErrorTypeClient      ErrorType = "client"
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeGraphQL     ErrorType = "graphql"
	ErrorTypeSession     ErrorType = "session"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a typed fetch failure. Code carries the last HTTP status
// observed, or 0 when no response was received.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (code %d): %s: %v", e.Type, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds a typed error without a cause
func New(t ErrorType, code int, msg string) *Error {
	return &Error{Type: t, Code: code, Message: msg}
}

// Wrap builds a typed error around an underlying cause
func Wrap(t ErrorType, code int, msg string, cause error) *Error {
	return &Error{Type: t, Code: code, Message: msg, Cause: cause}
}

// IsRetryable checks if an error type is worth another attempt at the
// level of a single unit of work (one page or one record)
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeBlocked, ErrorTypeServerError, ErrorTypeMalformed, ErrorTypeNetwork:
		return true
	case ErrorTypeClient, ErrorTypeGraphQL, ErrorTypeSession:
		return false
	default:
		return false
	}
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown if err is not a
// typed error
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err is a typed error of the given type
func Is(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

// StatusOf returns the HTTP status carried by a typed error, or 0
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}
