// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrSymbolNotFound    = errors.New("symbol not found")
	ErrPositionNotFound  = errors.New("position not found")
	ErrDuplicatePosition = errors.New("position id already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidReason     = errors.New("invalid close reason")
	ErrOracleUnavailable = errors.New("prediction oracle unavailable")
	ErrConfigInvalid     = errors.New("invalid configuration")
)

// ValidationError represents a request validation error. Requests that
// fail validation are rejected without mutating any state.
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

// TradeError represents an error for a specific trade operation.
type TradeError struct {
	TradeID string
	Symbol  string
	Action  string
	Reason  string
	Err     error
}

func (e *TradeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("trade error [%s] %s %s: %s: %v", e.TradeID, e.Action, e.Symbol, e.Reason, e.Err)
	}
	return fmt.Sprintf("trade error [%s] %s %s: %s", e.TradeID, e.Action, e.Symbol, e.Reason)
}

func (e *TradeError) Unwrap() error {
	return e.Err
}

// NewTradeError creates a new TradeError.
func NewTradeError(tradeID, symbol, action, reason string, err error) *TradeError {
	return &TradeError{
		TradeID: tradeID,
		Symbol:  symbol,
		Action:  action,
		Reason:  reason,
		Err:     err,
	}
}

// OracleError represents a failure of the prediction oracle. It is
// always recovered locally via the deterministic fallback and never
// surfaced to API callers.
type OracleError struct {
	Operation string
	Err       error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("oracle error [%s]: %v", e.Operation, e.Err)
}

func (e *OracleError) Unwrap() error {
	return e.Err
}

// NewOracleError creates a new OracleError.
func NewOracleError(operation string, err error) *OracleError {
	return &OracleError{
		Operation: operation,
		Err:       err,
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
