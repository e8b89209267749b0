package apperrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrForbidden indicates that the actor is not allowed to perform the operation,
// either because of its kind/status or because a business rule forbids it.
var ErrForbidden = errors.New("operation forbidden")

// ErrInsufficientFunds indicates that a balance check failed.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrIdempotencyConflict indicates that an idempotency key was reused with a
// different payload, or that another request holding the same key is still in flight.
var ErrIdempotencyConflict = errors.New("idempotency key conflict")

// ErrInternal indicates an unexpected internal failure.
var ErrInternal = errors.New("internal error")

// ValidationError carries field-level detail about rejected input.
// It wraps ErrValidation so callers can still match with errors.Is.
type ValidationError struct {
	Details map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %v", ErrValidation, e.Details)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a single-field validation error.
func NewValidationError(field, detail string) *ValidationError {
	return &ValidationError{Details: map[string]string{field: detail}}
}

// InsufficientFundsError carries the figures a client needs for display.
type InsufficientFundsError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("%v: required %s, available %s",
		ErrInsufficientFunds, e.Required.StringFixed(2), e.Available.StringFixed(2))
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }
