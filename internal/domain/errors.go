package domain

import (
	"errors"
	"fmt"
	"time"
)

// InterviewError represents a standardized error response returned by the API and
// MCP surfaces. Core interview operations never produce one.
type InterviewError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *InterviewError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeSessionNotFound = "SESSION_NOT_FOUND"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeStorage         = "STORAGE_ERROR"
	ErrCodeRateLimit       = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternalServer  = "INTERNAL_SERVER_ERROR"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeUnavailable     = "SERVICE_UNAVAILABLE"
)

// Sentinel errors shared across packages.
var (
	ErrNotFound        = errors.New("not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidCatalog  = errors.New("invalid catalog")
	ErrEmptyCatalog    = errors.New("catalog is empty")
	ErrStoreDisabled   = errors.New("transcript store disabled")
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewInterviewError creates a new InterviewError with timestamp
func NewInterviewError(code, message, details, requestID string) *InterviewError {
	return &InterviewError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
