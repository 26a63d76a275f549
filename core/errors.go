package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// ConflictError indicates that a write clashes with existing state,
// e.g. a duplicate booking for the same tutor, student and start time.
type ConflictError struct {
	Err error
}

func NewConflictError(err error) error {
	return &ConflictError{Err: err}
}

func (err ConflictError) Error() string {
	if err.Err == nil {
		return "conflict"
	}
	return err.Err.Error()
}

func IsConflict(err error) bool {
	_, ok := errors.Cause(err).(*ConflictError)
	return ok
}

// TransientError indicates an infrastructure failure (network, backend
// unavailable); the caller may retry.
type TransientError struct {
	Err error
}

func NewTransientError(err error) error {
	return &TransientError{Err: err}
}

func (err TransientError) Error() string {
	if err.Err == nil {
		return "service unavailable"
	}
	return err.Err.Error()
}

func IsTransient(err error) bool {
	_, ok := errors.Cause(err).(*TransientError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
