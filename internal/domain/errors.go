package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrOperation  = errors.New("operation not allowed")
	ErrState      = errors.New("illegal state transition")
)

// Error carries one of the sentinel kinds above plus a human readable message.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Kind }

func notFoundf(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

func validationf(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func operationf(format string, args ...any) error {
	return &Error{Kind: ErrOperation, Msg: fmt.Sprintf(format, args...)}
}

func statef(format string, args ...any) error {
	return &Error{Kind: ErrState, Msg: fmt.Sprintf(format, args...)}
}

// TaskNotFound is returned by repositories when no task has the given id.
func TaskNotFound(id fmt.Stringer) error {
	return notFoundf("task not found with id: %s", id)
}
