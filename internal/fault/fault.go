// Package fault classifies pipeline failures as user errors or internal
// errors.
//
// A user error means the input was wrong and the person running shipc can
// likely fix it. An internal error means a trusted step or the environment
// broke its contract.
package fault

import (
	"errors"
	"fmt"
)

// Kind identifies who is responsible for a failure.
type Kind int

const (
	// KindUser is bad input: invalid paths, malformed volumes, or an external
	// tool rejecting what it was given.
	KindUser Kind = iota + 1

	// KindInternal is a contract violation by the environment or a trusted
	// step.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a classified failure with a short primary message and an optional
// secondary detail, usually the stderr of a failing tool.
type Error struct {
	Kind    Kind
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// User returns a user error. The detail is taken from err when it is non-nil.
func User(message string, err error) *Error {
	return newError(KindUser, message, err)
}

// UserDetail returns a user error with an explicit detail string.
func UserDetail(message, detail string) *Error {
	return &Error{Kind: KindUser, Message: message, Detail: detail}
}

// Internal returns an internal error. The detail is taken from err when it is
// non-nil.
func Internal(message string, err error) *Error {
	return newError(KindInternal, message, err)
}

func newError(kind Kind, message string, err error) *Error {
	e := &Error{Kind: kind, Message: message, Err: err}
	if err != nil {
		e.Detail = err.Error()
	}
	return e
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsUser reports whether err is classified as a user error.
func IsUser(err error) bool {
	e, ok := As(err)
	return ok && e.Kind == KindUser
}

// IsInternal reports whether err is classified as an internal error.
func IsInternal(err error) bool {
	e, ok := As(err)
	return ok && e.Kind == KindInternal
}
