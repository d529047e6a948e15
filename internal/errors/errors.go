// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrConflict        = errors.New("inbound channel conflict: another consumer owns getUpdates")
	ErrMissingField    = errors.New("missing required alert field")
	ErrUnknownOperator = errors.New("unknown operator token")
	ErrNoSession       = errors.New("no active session")
	ErrTimeout         = errors.New("operation timed out")
	ErrConfigInvalid   = errors.New("invalid configuration")
	ErrNotAuthorized   = errors.New("bot token rejected")
)

// PriceFormatError reports a price string that neither the locale-aware
// parser nor the fallback parser could understand.
type PriceFormatError struct {
	Input string
	Err   error
}

func (e *PriceFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid price format %q: %v", e.Input, e.Err)
	}
	return fmt.Sprintf("invalid price format %q", e.Input)
}

func (e *PriceFormatError) Unwrap() error {
	return e.Err
}

// NewPriceFormatError creates a new PriceFormatError.
func NewPriceFormatError(input string, err error) *PriceFormatError {
	return &PriceFormatError{Input: input, Err: err}
}

// GatewayError represents a failed call against the remote alert store.
// Status is zero for transport-level failures (connection refused, timeout,
// malformed body), non-zero when the service answered with a non-success code.
type GatewayError struct {
	Operation string
	Status    int
	Err       error
}

func (e *GatewayError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("gateway %s returned status %d", e.Operation, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("gateway %s failed: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("gateway %s failed", e.Operation)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewGatewayError creates a new GatewayError.
func NewGatewayError(operation string, status int, err error) *GatewayError {
	return &GatewayError{Operation: operation, Status: status, Err: err}
}

// IsTransport reports whether the failure happened below the HTTP layer.
func (e *GatewayError) IsTransport() bool {
	return e.Status == 0
}

// ValidationError represents a validation error on user-supplied input.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
