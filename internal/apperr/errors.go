// Package apperr holds the error taxonomy shared by services and transports.
// Callers classify errors with errors.Is against the sentinels below.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation            = errors.New("validation failed")
	ErrNotFound              = errors.New("not found")
	ErrForbidden             = errors.New("forbidden")
	ErrConflict              = errors.New("conflict")
	ErrInsufficientQuestions = errors.New("insufficient question bank")
	ErrMalformedQuery        = errors.New("malformed query")
)

// FieldError is used to indicate an error with a specific field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type ValidationError struct {
	Msg    string
	Fields []FieldError
}

// Validation builds a *ValidationError; fields are optional.
func Validation(msg string, fields ...FieldError) error {
	return &ValidationError{Msg: msg, Fields: fields}
}

// Validationf is Validation with a formatted message.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Msg
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Error)
	}
	return e.Msg + " (" + strings.Join(parts, "; ") + ")"
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ShortfallError reports a difficulty bucket that could not be filled.
type ShortfallError struct {
	Difficulty string
	Found      int
	Needed     int
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf("not enough %s questions available: found %d, need %d", e.Difficulty, e.Found, e.Needed)
}

func (e *ShortfallError) Unwrap() error { return ErrInsufficientQuestions }

// NotFound wraps ErrNotFound with the missing entity name.
func NotFound(entity string) error {
	return fmt.Errorf("%s %w", entity, ErrNotFound)
}

// Forbidden wraps ErrForbidden with a reason.
func Forbidden(reason string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, reason)
}

// Conflict wraps ErrConflict with a reason.
func Conflict(reason string) error {
	return fmt.Errorf("%w: %s", ErrConflict, reason)
}
