package domain

import "fmt"

// Error types for consistent error handling across the engine.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrNoAnchor indicates no qualifying income transaction exists inside the
// widest lookback, so no analysis window can be built.
type ErrNoAnchor struct {
	UserID       string
	LookbackDays int
}

func (e *ErrNoAnchor) Error() string {
	return fmt.Sprintf("no income anchor for user %s within %d days", e.UserID, e.LookbackDays)
}

// ErrReconciliation aggregates per-account failures from a reconciliation
// sweep. Accounts lists the IDs that could not be reconciled.
type ErrReconciliation struct {
	Accounts []string
	Err      error
}

func (e *ErrReconciliation) Error() string {
	return fmt.Sprintf("reconciliation failed for %d account(s): %v", len(e.Accounts), e.Err)
}

func (e *ErrReconciliation) Unwrap() error {
	return e.Err
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}
