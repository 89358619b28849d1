// Package serrors provides semantic error kinds for the prober. A kind tells
// the caller how an error should be treated (fatal input problem, absorbed
// network failure, lost output) independently of the concrete cause.
package serrors

import (
	"errors"
	"fmt"
)

// Kind is a sentinel naming an error category. Kinds are created with NewKind
// and matched with errors.Is through *Error.
type Kind interface {
	error
	isKind()
}

// kind is the unexported Kind implementation; its value is the kind name.
type kind struct{ s string }

func (k kind) Error() string { return k.s }
func (k kind) isKind()       {}

// NewKind creates a new error kind with the given name.
func NewKind(name string) Kind { return kind{s: name} }

var (
	// ErrInvalidInput marks startup problems: unreadable domain list, bad arguments
	// or configuration. It is the only kind that aborts a run.
	ErrInvalidInput = NewKind("INVALID_INPUT")
	// ErrUnreachable marks a network-level failure of a single probe request.
	// The prober absorbs it and moves on to the next fallback.
	ErrUnreachable = NewKind("UNREACHABLE")
	// ErrOutput marks a failure to open or write result files.
	ErrOutput = NewKind("OUTPUT")
	// ErrInterrupted marks a run that was cancelled before every domain was probed.
	ErrInterrupted = NewKind("INTERRUPTED")
)

// Error carries a kind, an optional cause and an optional message.
//
// errors.Is and errors.As match both the kind and the wrapped cause. The
// message is rendered as "<msg>: <cause>" when both are present, otherwise
// whichever is set, falling back to the kind name.
type Error struct {
	kind Kind
	err  error
	msg  string
}

// With builds an error of kind k with a formatted message and no cause.
func With(k Kind, msgFmt string, args ...any) *Error {
	return &Error{kind: k, msg: fmt.Sprintf(msgFmt, args...)}
}

// Wrap builds an error of kind k around err with a formatted message.
func Wrap(k Kind, err error, msgFmt string, args ...any) *Error {
	return &Error{kind: k, err: err, msg: fmt.Sprintf(msgFmt, args...)}
}

// KindOnly builds an error that carries nothing but its kind.
func KindOnly(k Kind) *Error { return &Error{kind: k} }

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.msg != "" && e.err != nil:
		return e.msg + ": " + e.err.Error()
	case e.msg != "":
		return e.msg
	case e.err != nil:
		return e.err.Error()
	case e.kind != nil:
		return e.kind.Error()
	default:
		return "unknown error"
	}
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error { return e.err }

// Is matches target against the kind first and then against the cause chain.
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return e == nil && target == nil
	}

	return (e.kind != nil && errors.Is(e.kind, target)) ||
		(e.err != nil && errors.Is(e.err, target))
}

// As extracts either the kind or a value from the cause chain into target.
func (e *Error) As(target any) bool {
	if e == nil || target == nil {
		return false
	}

	return (e.kind != nil && errors.As(e.kind, target)) ||
		(e.err != nil && errors.As(e.err, target))
}

// Kind returns the error kind, or nil.
func (e *Error) Kind() Kind { return e.kind }

// Message returns the message attached to the error.
func (e *Error) Message() string { return e.msg }

// Cause returns the wrapped cause, or nil.
func (e *Error) Cause() error { return e.err }

// KindOf returns the kind of the first *Error found in err's chain, or nil.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.kind
	}

	return nil
}
