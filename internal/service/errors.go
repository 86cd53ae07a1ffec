package service

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidState     = errors.New("invalid state")
	ErrInvalidOperation = errors.New("invalid operation")
)

// Error carries one of the kinds above together with a message meant for
// the caller.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Code is the stable machine-readable name of the kind.
func (e *Error) Code() string {
	return KindCode(e.Kind)
}

func KindCode(kind error) string {
	switch {
	case errors.Is(kind, ErrNotFound):
		return "not_found"
	case errors.Is(kind, ErrForbidden):
		return "forbidden"
	case errors.Is(kind, ErrInvalidState):
		return "invalid_state"
	case errors.Is(kind, ErrInvalidOperation):
		return "invalid_operation"
	}
	return "internal_error"
}

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) error {
	return newError(ErrNotFound, format, args...)
}

func forbidden(format string, args ...any) error {
	return newError(ErrForbidden, format, args...)
}

func invalidState(format string, args ...any) error {
	return newError(ErrInvalidState, format, args...)
}

func invalidOperation(format string, args ...any) error {
	return newError(ErrInvalidOperation, format, args...)
}
