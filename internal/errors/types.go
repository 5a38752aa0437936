package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType defines the category of the error
type ErrorType string

const (
	ErrorTypeValidation       ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound         ErrorType = "NOT_FOUND_ERROR"
	ErrorTypeRateLimit        ErrorType = "RATE_LIMIT_ERROR"
	ErrorTypeRecipeGeneration ErrorType = "RECIPE_GENERATION_ERROR"
	ErrorTypeImageGeneration  ErrorType = "IMAGE_GENERATION_ERROR"
	ErrorTypeStorage          ErrorType = "STORAGE_ERROR"
	ErrorTypePersistence      ErrorType = "PERSISTENCE_ERROR"
	ErrorTypeInternal         ErrorType = "INTERNAL_ERROR"
)

// AppError represents a structured error for the application
type AppError struct {
	Type          ErrorType `json:"type"`
	Message       string    `json:"message"`
	StatusCode    int       `json:"statusCode"`
	ErrorCode     string    `json:"errorCode"`
	IsOperational bool      `json:"isOperational"`
	Recovery      string    `json:"recoverySuggestion,omitempty"`
	Err           error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Code returns the application-specific error code
func (e *AppError) Code() string {
	return e.ErrorCode
}

// RecoverySuggestion returns the suggestion on how to recover from the error
func (e *AppError) RecoverySuggestion() string {
	return e.Recovery
}

// IsRetryable determines if the operation that caused the error should be retried
func (e *AppError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeRateLimit:
		return true
	case ErrorTypeRecipeGeneration, ErrorTypeImageGeneration, ErrorTypeStorage:
		// upstream 5xx are worth another attempt, 4xx are not
		return e.StatusCode >= 500
	default:
		return false
	}
}

// As returns the first AppError in err's chain, if any.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err carries an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	appErr, ok := As(err)
	return ok && appErr.Type == t
}

// NewValidationError creates a new validation error (400)
func NewValidationError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeValidation,
		Message:       message,
		StatusCode:    http.StatusBadRequest,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewNotFoundError creates a new not found error (404)
func NewNotFoundError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeNotFound,
		Message:       message,
		StatusCode:    http.StatusNotFound,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewRateLimitError creates a new rate limit error (429)
func NewRateLimitError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeRateLimit,
		Message:       message,
		StatusCode:    http.StatusTooManyRequests,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewRecipeGenerationError creates a new recipe generation error (500)
func NewRecipeGenerationError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeRecipeGeneration,
		Message:       message,
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "Try rephrasing the query or wait for the provider to be available.",
		Err:           err,
	}
}

// NewImageGenerationError wraps a failure from an image generation provider.
// statusCode is the upstream HTTP status when known, 500 otherwise.
func NewImageGenerationError(message string, errorCode string, statusCode int, err error) *AppError {
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}
	return &AppError{
		Type:          ErrorTypeImageGeneration,
		Message:       message,
		StatusCode:    statusCode,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "Regenerate the step image later.",
		Err:           err,
	}
}

// NewStorageError creates a new object storage error
func NewStorageError(message string, errorCode string, statusCode int, err error) *AppError {
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}
	return &AppError{
		Type:          ErrorTypeStorage,
		Message:       message,
		StatusCode:    statusCode,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "Check the storage bucket configuration and credentials.",
		Err:           err,
	}
}

// NewPersistenceError creates a new database write error (500)
func NewPersistenceError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypePersistence,
		Message:       message,
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     errorCode,
		IsOperational: true,
		Err:           err,
	}
}

// NewInternalError creates a new non-operational error (500)
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		ErrorCode:  "INTERNAL_ERROR",
		Err:        err,
	}
}
