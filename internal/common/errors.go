package common

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. The HTTP layer maps these to status codes; everything
// below it classifies failures by wrapping one of them.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("resource not found")
	ErrUpstream   = errors.New("upstream failure")
	ErrStore      = errors.New("store failure")
)

// AppError ties a message and an optional cause to one of the sentinel kinds.
type AppError struct {
	Kind    error
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is(err, ErrNotFound) etc. hold without breaking the cause chain.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// Error constructors
func Validation(message string) error {
	return &AppError{Kind: ErrValidation, Message: message}
}

func Validationf(format string, args ...any) error {
	return Validation(fmt.Sprintf(format, args...))
}

func NotFound(message string) error {
	return &AppError{Kind: ErrNotFound, Message: message}
}

func Upstream(message string, cause error) error {
	return &AppError{Kind: ErrUpstream, Message: message, Cause: cause}
}

func Store(message string, cause error) error {
	return &AppError{Kind: ErrStore, Message: message, Cause: cause}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
