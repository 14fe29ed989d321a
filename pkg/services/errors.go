// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/flowlink/pkg/persistence"
)

// Business Logic Errors - These indicate client errors.
var (
	// Validation Errors.
	ErrInvalidRequest = errors.New("invalid request")

	// Business Logic Conflicts.
	ErrFlowDisabled = errors.New("flow is disabled")

	// Upstream Errors.
	ErrSourceFetch = errors.New("failed to fetch from source adapter")

	// Not Found Errors, shared with the persistence layer.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound
	ErrFlowNotFound     = persistence.ErrFlowNotFound
)

// Error codes carried by ServiceError.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeFlowNotFound   = "FLOW_NOT_FOUND"
	CodeFlowDisabled   = "FLOW_DISABLED"
	CodeSourceFetch    = "SOURCE_FETCH_FAILED"
	CodeInternal       = "INTERNAL_ERROR"
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for callers
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is caused by a malformed request.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

// IsConflictError checks if an error is a business rule refusing an otherwise valid request.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrFlowDisabled)
}

// IsNotFoundError checks if an error names a workflow or flow that does not exist.
func IsNotFoundError(err error) bool {
	return persistence.IsWorkflowNotFound(err) || persistence.IsFlowNotFound(err)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, message string, err error) *ServiceError {
	wrapped := ErrInvalidRequest
	if err != nil {
		wrapped = fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	return &ServiceError{
		Op:      op,
		Code:    CodeInvalidRequest,
		Message: message,
		Err:     wrapped,
	}
}

func newServiceError(op, code string, err error) *ServiceError {
	return &ServiceError{
		Op:   op,
		Code: code,
		Err:  err,
	}
}
