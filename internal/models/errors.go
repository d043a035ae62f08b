package models

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeValidation represents malformed caller input (400)
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents a missing credential or endpoint;
	// never retried, fails fast at the call site (500)
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeProvider represents a transient backend failure (502)
	ErrorTypeProvider ErrorType = "provider"
	// ErrorTypeTimeout represents a tier attempt exceeding its deadline (504)
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeCircuitOpen represents a rejection without a network call
	// because the dependency is known-bad (503)
	ErrorTypeCircuitOpen ErrorType = "circuit_open"
	// ErrorTypeExhausted represents the whole fallback hierarchy failing (502)
	ErrorTypeExhausted ErrorType = "exhausted"
	// ErrorTypeInternal represents internal errors (500)
	ErrorTypeInternal ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"-"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap allows error unwrapping
func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns whether the failed operation may be retried on another tier.
func (e *AppError) IsRetryable() bool {
	return e.Retryable
}

// GetStatusCode returns the HTTP status code for the error
func (e *AppError) GetStatusCode() int {
	if e.StatusCode > 0 {
		return e.StatusCode
	}

	switch e.Type {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeProvider, ErrorTypeExhausted:
		return http.StatusBadGateway
	case ErrorTypeCircuitOpen:
		return http.StatusServiceUnavailable
	case ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Retryable:  false,
		Cause:      cause,
	}
}

// NewConfigurationError creates a configuration error for a missing credential
// or endpoint. Configuration errors are terminal and bypass fallback.
func NewConfigurationError(component, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConfiguration,
		Message:    fmt.Sprintf("%s: %s", component, message),
		StatusCode: http.StatusInternalServerError,
		Retryable:  false,
	}
}

// NewProviderError creates a transient backend error
func NewProviderError(backend, message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeProvider,
		Message:    fmt.Sprintf("backend %s error: %s", backend, message),
		StatusCode: http.StatusBadGateway,
		Retryable:  true,
		Cause:      cause,
	}
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(operation string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeTimeout,
		Message:    fmt.Sprintf("operation %s timed out", operation),
		StatusCode: http.StatusGatewayTimeout,
		Retryable:  true,
		Cause:      cause,
	}
}

// NewCircuitOpenError creates a circuit-open rejection. No network call was
// made; for fallback purposes this is treated like a transient failure.
func NewCircuitOpenError(dependency string) *AppError {
	return &AppError{
		Type:       ErrorTypeCircuitOpen,
		Message:    fmt.Sprintf("dependency %s unavailable (circuit open)", dependency),
		StatusCode: http.StatusServiceUnavailable,
		Retryable:  true,
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Retryable:  false,
		Cause:      cause,
	}
}

// NewRoleExhaustedError creates the terminal error for a role generation whose
// primary and local fallback both failed. It names both failures.
func NewRoleExhaustedError(role string, primaryErr, fallbackErr error) *AppError {
	return &AppError{
		Type:       ErrorTypeExhausted,
		Message:    fmt.Sprintf("role %s: primary failed: %v; fallback failed: %v", role, primaryErr, fallbackErr),
		StatusCode: http.StatusBadGateway,
		Retryable:  false,
	}
}

// TierAttempt records one failed tier invocation inside a fallback chain.
type TierAttempt struct {
	Tier   Tier   `json:"tier"`
	Reason string `json:"reason"`
}

// ExhaustedError is the terminal routing error produced when every tier in the
// fallback hierarchy has failed. It names each attempted tier and its reason.
type ExhaustedError struct {
	Attempts []TierAttempt
}

// Error implements the error interface
func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %s", a.Tier, a.Reason))
	}
	return fmt.Sprintf("all tiers exhausted [%s]", strings.Join(parts, "; "))
}

// GetStatusCode returns the HTTP status code for the error
func (e *ExhaustedError) GetStatusCode() int {
	return http.StatusBadGateway
}

// NewExhaustedError creates an exhaustion error from the attempts made.
func NewExhaustedError(attempts []TierAttempt) *ExhaustedError {
	return &ExhaustedError{Attempts: attempts}
}

// IsExhausted reports whether err is (or wraps) an ExhaustedError.
func IsExhausted(err error) bool {
	var ee *ExhaustedError
	return errors.As(err, &ee)
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool {
	var ae *AppError
	return errors.As(err, &ae) && ae.Type == ErrorTypeConfiguration
}
