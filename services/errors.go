package services

import "fmt"

// The error kinds the core reports across the interface boundary. Each
// carries a stable machine-readable code plus a human message; controllers
// map them onto HTTP statuses with errors.As.

// ValidationError reports a bad or missing field value. Always recoverable.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("invalid value for %s", e.Field)
}

// Code returns the stable error code for API responses
func (e *ValidationError) Code() string { return "VALIDATION_ERROR" }

// NotFoundError reports a missing order, invoice, or user
type NotFoundError struct {
	Resource string
	ID       uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// Code returns the stable error code for API responses
func (e *NotFoundError) Code() string { return "NOT_FOUND" }

// AllocationError reports a sequence allocation transaction failure.
// Retryable: no counter mutation survives the rollback.
type AllocationError struct {
	Scope string
	Year  int
	Err   error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("failed to allocate %s number for year %d: %v", e.Scope, e.Year, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

// Code returns the stable error code for API responses
func (e *AllocationError) Code() string { return "ALLOCATION_ERROR" }

// PolicyDeniedError reports that a role holds no permission for an operation
type PolicyDeniedError struct {
	Role      string
	Operation string
}

func (e *PolicyDeniedError) Error() string {
	return fmt.Sprintf("role %q is not permitted to %s", e.Role, e.Operation)
}

// Code returns the stable error code for API responses
func (e *PolicyDeniedError) Code() string { return "POLICY_DENIED" }
