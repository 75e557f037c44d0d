package errors

import (
	"errors"
	"fmt"
)

var (
	// Order errors
	ErrOrderNotFound  = errors.New("order not found")
	ErrAmountMismatch = errors.New("amount does not match order total")

	// Payment errors
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrPaymentNotApproved = errors.New("payment not found or not approved")

	// Receipt errors
	ErrReceiptExpired       = errors.New("receipt expired")
	ErrReceiptTokenMismatch = errors.New("receipt token does not match")

	// Job errors
	ErrUnknownJobType = errors.New("unknown job type")

	// Access errors
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// StoreError reports a failed round-trip to the backing store. Message is the
// caller-facing summary; Err carries the driver error passed through as detail.
type StoreError struct {
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Details returns the underlying store error text, or "" when there is none.
func (e *StoreError) Details() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// NewStoreError creates a new store error
func NewStoreError(message string, err error) *StoreError {
	return &StoreError{Message: message, Err: err}
}
