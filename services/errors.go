package services

import (
	"github.com/pkg/errors"
)

// Error kinds. Match with errors.Is(err, services.ErrNotFound).
var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrStore      = errors.New("store error")
	ErrDispatch   = errors.New("dispatch error")
)

// Error carries a kind, a message fit for the admin UI and an optional cause.
type Error struct {
	kind    error
	message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

func (e *Error) Is(target error) bool { return target == e.kind }

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Kind() error { return e.kind }

// Message is safe to show to users; the cause is not included.
func (e *Error) Message() string { return e.message }

func ValidationError(message string) error {
	return &Error{kind: ErrValidation, message: message}
}

func ConflictError(message string) error {
	return &Error{kind: ErrConflict, message: message}
}

func NotFoundError(message string) error {
	return &Error{kind: ErrNotFound, message: message}
}

func StoreError(cause error, message string) error {
	return &Error{kind: ErrStore, message: message, cause: cause}
}

func DispatchError(cause error, message string) error {
	return &Error{kind: ErrDispatch, message: message, cause: cause}
}
