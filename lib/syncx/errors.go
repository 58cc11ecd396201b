package syncx

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message. It is the only error type produced by acquisition
// itself; context cancellation errors are passed through unchanged.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	errorCode := ""
	switch e.Code {
	case RetCPoisoned:
		errorCode = "Poisoned"
	case RetCBackendUnavailable:
		errorCode = "BackendUnavailable"
	default:
		errorCode = "Unknown"
	}

	return fmt.Sprintf("SyncError (code %s): %s", errorCode, e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

// RetCode identifies one of the closed set of failure kinds surfaced by the
// abstraction.
type RetCode int32

const (
	// RetCPoisoned signals that the protected value may be in an
	// inconsistent state because a previous holder did not complete normally
	// while holding a write-capable guard. The condition persists until
	// ClearPoison is called on the container.
	RetCPoisoned RetCode = iota + 1
	// RetCBackendUnavailable signals that the selected backend's underlying
	// primitive was never initialized, i.e. the container was not built
	// through its constructor.
	RetCBackendUnavailable
)

// --------------------------------------------------------------------------
// Predicates
// --------------------------------------------------------------------------

// IsPoisoned reports whether err signals a poisoned container.
func IsPoisoned(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == RetCPoisoned
}

// IsBackendUnavailable reports whether err signals an uninitialized backend
// primitive.
func IsBackendUnavailable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == RetCBackendUnavailable
}
