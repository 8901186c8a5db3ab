// Package errors provides structured error handling with context propagation and HTTP status code mapping.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType represents the category of error for metrics and response formatting.
type ErrorType string

const (
	// TypeValidation indicates invalid input text (HTTP 400)
	TypeValidation ErrorType = "validation"
	// TypeRateLimited indicates a denied admission (HTTP 429)
	TypeRateLimited ErrorType = "rate_limited"
	// TypeInference indicates a model adapter failure or timeout (HTTP 502)
	TypeInference ErrorType = "inference"
	// TypeCache indicates an internal cache inconsistency; never reaches
	// callers, the orchestrator degrades it to a cache miss
	TypeCache ErrorType = "cache"
	// TypeInternal indicates server-side error (HTTP 500)
	TypeInternal ErrorType = "internal"
)

// Error represents a structured error with type, message, and context.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
	// RetryAfter carries the retry hint for rate-limited errors.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the appropriate HTTP status code for this error type.
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeRateLimited:
		return http.StatusTooManyRequests
	case TypeInference:
		return http.StatusBadGateway
	case TypeCache, TypeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ValidationError creates a new validation error (HTTP 400).
func ValidationError(message string) *Error {
	return &Error{
		Type:    TypeValidation,
		Message: message,
		Context: make(map[string]any),
	}
}

// RateLimitError creates a new rate-limited error (HTTP 429) carrying the
// retry hint.
func RateLimitError(message string, retryAfter time.Duration) *Error {
	return &Error{
		Type:       TypeRateLimited,
		Message:    message,
		RetryAfter: retryAfter,
		Context:    map[string]any{"retry_after_seconds": retryAfter.Seconds()},
	}
}

// InferenceError creates a new model inference error (HTTP 502).
func InferenceError(message string, cause error) *Error {
	return &Error{
		Type:    TypeInference,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// CacheError creates a new cache error. Non-fatal: the orchestrator logs it
// and treats the operation as a cache miss.
func CacheError(message string, cause error) *Error {
	return &Error{
		Type:    TypeCache,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// InternalError creates a new internal error (HTTP 500).
func InternalError(message string, cause error) *Error {
	return &Error{
		Type:    TypeInternal,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// WithContext adds context fields to the error (chainable).
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithField is an alias for WithContext (chainable).
func (e *Error) WithField(key string, value any) *Error {
	return e.WithContext(key, value)
}

// ErrorResponse represents the JSON structure sent to clients.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Type    ErrorType      `json:"type"`
	Context map[string]any `json:"context,omitempty"`
}

// ToResponse converts an Error to an ErrorResponse for JSON serialization.
func (e *Error) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error:   e.Message,
		Type:    e.Type,
		Context: e.Context,
	}
}

// AsInferenceError coerces a model adapter failure into the inference
// category. An already-structured error keeps its original type.
func AsInferenceError(err error) *Error {
	if err == nil {
		return nil
	}

	var structuredErr *Error
	if errors.As(err, &structuredErr) {
		return structuredErr
	}

	return InferenceError("model scoring failed", err)
}

// AsStructuredError converts any error into a structured Error.
// If err is already an *Error, returns it unchanged.
// Otherwise wraps it as an internal error.
func AsStructuredError(err error) *Error {
	if err == nil {
		return nil
	}

	var structuredErr *Error
	if errors.As(err, &structuredErr) {
		return structuredErr
	}

	return InternalError("internal server error", err)
}
