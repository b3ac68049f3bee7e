// Package cudart structured error types shared by the runtime and its callers
package cudart

import (
	"fmt"
)

// ErrorKind represents categories of runtime errors
type ErrorKind int

const (
	// No compute device can be acquired
	KindDeviceUnavailable ErrorKind = iota
	// Device identification failed
	KindPropertyQueryFailed
	// Host or device allocation failed
	KindOutOfMemory
	// Host/device copy failed
	KindTransferFailed
	// The BLAS call reported failure
	KindGemmFailed
	// BLAS handle creation or destruction failed
	KindHandleFailed
	// Invalid argument to a runtime call
	KindInvalidArg
)

// Error represents a structured runtime error with context
type Error struct {
	Kind    ErrorKind
	Op      string // Operation that failed
	Message string // Human-readable message
	Err     error  // Underlying error if any
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error in %s: %s (caused by: %v)",
			e.Kind.String(), e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error in %s: %s",
		e.Kind.String(), e.Op, e.Message)
}

// Unwrap allows error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// String returns the error kind as a string
func (k ErrorKind) String() string {
	switch k {
	case KindDeviceUnavailable:
		return "DeviceUnavailable"
	case KindPropertyQueryFailed:
		return "PropertyQueryFailed"
	case KindOutOfMemory:
		return "OutOfMemory"
	case KindTransferFailed:
		return "TransferFailed"
	case KindGemmFailed:
		return "GemmFailed"
	case KindHandleFailed:
		return "HandleFailed"
	case KindInvalidArg:
		return "InvalidArgument"
	default:
		return "Unknown"
	}
}

// Common error constructors

// NewError creates an error of the given kind
func NewError(kind ErrorKind, op, message string, err error) error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewDeviceError creates a device acquisition error
func NewDeviceError(op, message string) error {
	return &Error{
		Kind:    KindDeviceUnavailable,
		Op:      op,
		Message: message,
	}
}

// NewMemoryError creates an allocation error
func NewMemoryError(op, message string, err error) error {
	return &Error{
		Kind:    KindOutOfMemory,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewTransferError creates a host/device copy error
func NewTransferError(op, message string, err error) error {
	return &Error{
		Kind:    KindTransferFailed,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewInvalidArgError creates an invalid argument error
func NewInvalidArgError(op, message string) error {
	return &Error{
		Kind:    KindInvalidArg,
		Op:      op,
		Message: message,
	}
}

// Common pre-defined errors

var (
	// ErrOutOfMemory indicates memory allocation failure
	ErrOutOfMemory = NewMemoryError("Malloc", "out of memory", nil)

	// ErrInvalidSize indicates invalid size parameter
	ErrInvalidSize = NewInvalidArgError("Malloc", "size must be positive")

	// ErrDoubleFree indicates double free attempt
	ErrDoubleFree = &Error{Kind: KindOutOfMemory, Op: "Free", Message: "double free detected"}

	// ErrInvalidDevice indicates invalid device ordinal
	ErrInvalidDevice = NewDeviceError("SetDevice", "invalid device ordinal")
)

// KindOf returns the kind of a runtime error, or KindInvalidArg|false for
// errors that did not originate here.
func KindOf(err error) (ErrorKind, bool) {
	if e, ok := err.(*Error); ok {
		return e.Kind, true
	}
	return KindInvalidArg, false
}

// IsKind checks whether err is a runtime error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	if e, ok := err.(*Error); ok {
		return e.Kind == kind
	}
	return false
}

// IsMemoryError checks if an error is an allocation error
func IsMemoryError(err error) bool {
	return IsKind(err, KindOutOfMemory)
}

// IsTransferError checks if an error is a copy error
func IsTransferError(err error) bool {
	return IsKind(err, KindTransferFailed)
}
