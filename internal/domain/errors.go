package domain

import (
	"fmt"
	"strings"
)

// Error codes for different failure scenarios
const (
	ErrInvalidInput = "INVALID_INPUT"
	ErrDegeneracy   = "NUMERIC_DEGENERACY"
	ErrCollaborator = "COLLABORATOR_FAILURE"
	ErrModelLookup  = "UNKNOWN_MODEL"
)

// ValidationError represents malformed or out-of-range input. Validation
// failures are always surfaced to the caller, never silently corrected.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// MissingInputError reports the required estimator fields absent from a
// request.
type MissingInputError struct {
	ModelID string   `json:"model_id"`
	Missing []string `json:"missing"`
}

// Error implements the error interface
func (e *MissingInputError) Error() string {
	return fmt.Sprintf("model '%s' missing required inputs: %s", e.ModelID, strings.Join(e.Missing, ", "))
}

// CollaboratorError wraps a failure of the external report-count source with
// the product/event context attached. Retries are the collaborator's
// responsibility, never performed inside the statistical core.
type CollaboratorError struct {
	Source  string `json:"source"`
	Product string `json:"product"`
	Event   string `json:"event"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s lookup failed for product '%s', event '%s': %v", e.Source, e.Product, e.Event, e.Err)
}

// Unwrap exposes the underlying collaborator failure.
func (e *CollaboratorError) Unwrap() error {
	return e.Err
}
