// Package errext contains the error kinds raised by the typed memory subsystem
// and a few extensions for normal Go errors (hints, exit codes) used by the CLI.
package errext

import (
	"errors"
	"fmt"
)

// Type is the language-level error constructor an error surfaces as.
type Type uint8

// The error types that typed memory operations can raise.
const (
	TypeError Type = iota + 1
	RangeError
	OutOfMemory
)

func (t Type) String() string {
	switch t {
	case TypeError:
		return "TypeError"
	case RangeError:
		return "RangeError"
	case OutOfMemory:
		return "OutOfMemory"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Code identifies the condition that failed, independently of the message.
type Code string

// Error codes. The first block is the externally specified set, the rest
// covers construction and resizing.
const (
	CodeArrayBufferViewExpected Code = "ArrayBufferViewExpected"
	CodeDetachedBuffer          Code = "DetachedBuffer"
	CodeIncompatibleReceiver    Code = "IncompatibleReceiver"
	CodeNotCallable             Code = "NotCallable"
	CodeNonSharedArray          Code = "NonSharedArray"
	CodeOutOfBounds             Code = "OutOfBounds"
	CodeInvalidIndex            Code = "InvalidIndex"
	CodeOutOfMemory             Code = "OutOfMemory"

	CodeArrayBufferExpected     Code = "ArrayBufferExpected"
	CodeInvalidTypedArrayLength Code = "InvalidTypedArrayLength"
	CodeInvalidOffset           Code = "InvalidOffset"
	CodeContentTypeMismatch     Code = "ContentTypeMismatch"
	CodeCannotSuspend           Code = "CannotSuspend"
	CodeNotDetachable           Code = "NotDetachable"
	CodeResizeFailed            Code = "ResizeFailed"
	CodeReduceOfEmpty           Code = "ReduceOfEmpty"
)

// Error is a failure of a typed memory operation. Two errors are considered
// the same by errors.Is when their codes match, so callers compare against the
// Err* sentinels while the message keeps the details.
type Error struct {
	Type    Type
	Code    Code
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return e.Type.String() + ": " + string(e.Code)
	}
	return e.Type.String() + ": " + e.Message
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrArrayBufferViewExpected = &Error{TypeError, CodeArrayBufferViewExpected, "typed array expected"}
	ErrDetachedBuffer          = &Error{TypeError, CodeDetachedBuffer, "detached buffer"}
	ErrIncompatibleReceiver    = &Error{TypeError, CodeIncompatibleReceiver, "incompatible receiver"}
	ErrNotCallable             = &Error{TypeError, CodeNotCallable, "not a function"}
	ErrNonSharedArray          = &Error{TypeError, CodeNonSharedArray, "shared integer typed array expected"}
	ErrOutOfBounds             = &Error{RangeError, CodeOutOfBounds, "out of bounds"}
	ErrInvalidIndex            = &Error{RangeError, CodeInvalidIndex, "invalid index"}
	ErrOutOfMemory             = &Error{OutOfMemory, CodeOutOfMemory, "array buffer allocation failed"}

	ErrArrayBufferExpected     = &Error{TypeError, CodeArrayBufferExpected, "array buffer expected"}
	ErrInvalidTypedArrayLength = &Error{RangeError, CodeInvalidTypedArrayLength, "invalid typed array length"}
	ErrInvalidOffset           = &Error{RangeError, CodeInvalidOffset, "invalid byte offset"}
	ErrContentTypeMismatch     = &Error{TypeError, CodeContentTypeMismatch, "cannot mix BigInt and other types"}
	ErrCannotSuspend           = &Error{TypeError, CodeCannotSuspend, "agent cannot suspend"}
	ErrNotDetachable           = &Error{TypeError, CodeNotDetachable, "shared buffers cannot be detached"}
	ErrResizeFailed            = &Error{RangeError, CodeResizeFailed, "invalid array buffer length"}
	ErrReduceOfEmpty           = &Error{TypeError, CodeReduceOfEmpty, "reduce of empty array with no initial value"}
)

// New returns an error of the same type and code as sentinel with a more
// specific message.
func New(sentinel *Error, format string, args ...interface{}) error {
	return &Error{Type: sentinel.Type, Code: sentinel.Code, Message: fmt.Sprintf(format, args...)}
}

// TypeOf returns the error type of err, if it is or wraps an *Error.
func TypeOf(err error) (Type, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Type, true
	}
	return 0, false
}
