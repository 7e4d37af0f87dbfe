package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
// inside the instance and automation subsystem
type ErrorType string

const (
	ErrorTypeCapacityExceeded ErrorType = "capacity_exceeded"
	ErrorTypeAccountNotFound  ErrorType = "account_not_found"
	ErrorTypeInstanceClosed   ErrorType = "instance_closed"
	ErrorTypeInjectionFailed  ErrorType = "injection_failed"
	ErrorTypeLoadTimeout      ErrorType = "load_timeout"
	ErrorTypeStorage          ErrorType = "storage"
	ErrorTypeUnknown          ErrorType = "unknown"
)

// Error represents a subsystem error with type information
type Error struct {
	Type    ErrorType
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// New creates a typed error with a formatted message
func New(errorType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errorType,
		Message: fmt.Sprintf(format, args...),
	}
}

// GetType extracts the ErrorType from an error, unwrapping as needed.
// Non-subsystem errors report ErrorTypeUnknown.
func GetType(err error) ErrorType {
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed.Type
	}
	return ErrorTypeUnknown
}

// IsBestEffort reports whether an error type represents a cosmetic step
// that should be logged and swallowed rather than surfaced to the caller.
func IsBestEffort(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeInjectionFailed, ErrorTypeLoadTimeout, ErrorTypeInstanceClosed:
		return true
	default:
		return false
	}
}

// IsFatal reports whether an error should abort the host process.
// Nothing in this subsystem is; the function exists so call sites state
// the contract explicitly.
func IsFatal(errorType ErrorType) bool {
	return false
}
