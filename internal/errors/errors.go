package errors

import (
	"fmt"
	"net/http"
)

// ErrorType classifies a failure for the structured result envelope.
type ErrorType string

const (
	ErrorTypeBackendNotFound     ErrorType = "backend_not_found"
	ErrorTypeBackendUnavailable  ErrorType = "backend_unavailable"
	ErrorTypeProcessingFailure   ErrorType = "processing_failure"
	ErrorTypeInvalidSettings     ErrorType = "invalid_settings"
	ErrorTypeHardwareUnavailable ErrorType = "hardware_unavailable"
	ErrorTypeUnsupportedMode     ErrorType = "unsupported_mode"
	ErrorTypeValidation          ErrorType = "validation"
	ErrorTypeNetwork             ErrorType = "network"
	ErrorTypeNotFound            ErrorType = "not_found"
	ErrorTypeInternal            ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewBackendNotFoundError reports a dispatch to a name absent from the registry
func NewBackendNotFoundError(name string) *AppError {
	return &AppError{
		Type:       ErrorTypeBackendNotFound,
		Message:    fmt.Sprintf("backend %q is not registered", name),
		StatusCode: http.StatusNotFound,
	}
}

// NewBackendUnavailableError reports a registered backend that failed its probe
func NewBackendUnavailableError(name string) *AppError {
	return &AppError{
		Type:       ErrorTypeBackendUnavailable,
		Message:    fmt.Sprintf("backend %q is unavailable", name),
		StatusCode: http.StatusServiceUnavailable,
	}
}

// NewProcessingError creates a new engine-level processing error
func NewProcessingError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeProcessingFailure,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewInvalidSettingsError reports scan parameters outside a device's capability envelope
func NewInvalidSettingsError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInvalidSettings,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewHardwareUnavailableError reports an absent or refused hardware layer
func NewHardwareUnavailableError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeHardwareUnavailable,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeNetwork,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
		Cause:      cause,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	if appErr, ok := err.(*AppError); ok {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
