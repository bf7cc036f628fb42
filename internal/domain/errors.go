package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrPersistence  = errors.New("persistence failure")
)

// ValidationError несет сообщение для клиента и ошибки по полям.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func NewValidationError(msg string, fields map[string]string) *ValidationError {
	return &ValidationError{Message: msg, Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Fields)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// AccessError — отказ Access Gate.
type AccessError struct {
	Role      Role
	Operation string
	Message   string
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("role %q is not allowed to %s", e.Role, e.Operation)
}

func (e *AccessError) Unwrap() error { return ErrForbidden }

// PublicError — ошибка из таксономии с готовым сообщением для клиента.
type PublicError struct {
	Kind    error
	Message string
}

func (e *PublicError) Error() string { return e.Message }

func (e *PublicError) Unwrap() error { return e.Kind }

func NewNotFound(msg string) error {
	return &PublicError{Kind: ErrNotFound, Message: msg}
}

func NewConflict(msg string) error {
	return &PublicError{Kind: ErrConflict, Message: msg}
}

func NewUnauthorized(msg string) error {
	return &PublicError{Kind: ErrUnauthorized, Message: msg}
}

func NewForbidden(msg string) error {
	return &PublicError{Kind: ErrForbidden, Message: msg}
}
