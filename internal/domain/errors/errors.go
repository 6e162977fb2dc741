// Package errors provides domain-specific error types.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes for domain errors. Each code maps to exactly one retryable
// policy: retryable errors are safe to retry with backoff, the rest must
// surface to the caller unchanged.
const (
	ErrCodeValidation             = "VALIDATION_ERROR"
	ErrCodeAuthentication         = "AUTHENTICATION_ERROR"
	ErrCodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	ErrCodeAuthorization          = "AUTHORIZATION_ERROR"
	ErrCodeNotFound               = "NOT_FOUND"
	ErrCodeRateLimit              = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal               = "INTERNAL_ERROR"
	ErrCodeDelivery               = "DELIVERY_ERROR"
	ErrCodeStorage                = "STORAGE_ERROR"
	ErrCodeExternalService        = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout                = "TIMEOUT"
	ErrCodeCircuitBreakerOpen     = "CIRCUIT_BREAKER_OPEN"
)

// DomainError represents a domain-specific error.
type DomainError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	Retryable  bool   `json:"retryable"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"`
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new validation error.
func NewValidationError(message string, details string) *DomainError {
	return &DomainError{
		Code:       ErrCodeValidation,
		Message:    message,
		Details:    details,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewAuthenticationError creates a new authentication error.
func NewAuthenticationError(message string) *DomainError {
	return &DomainError{
		Code:       ErrCodeAuthentication,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewAuthenticationRequiredError creates the error returned when an
// operation needs an authenticated connection and none exists.
func NewAuthenticationRequiredError() *DomainError {
	return &DomainError{
		Code:       ErrCodeAuthenticationRequired,
		Message:    "authentication required",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewAuthorizationError creates a new authorization error.
func NewAuthorizationError(message string) *DomainError {
	return &DomainError{
		Code:       ErrCodeAuthorization,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(resource, identifier string) *DomainError {
	return &DomainError{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		Details:    identifier,
		HTTPStatus: http.StatusNotFound,
	}
}

// NewRateLimitError creates a new rate limit error.
func NewRateLimitError(message string) *DomainError {
	return &DomainError{
		Code:       ErrCodeRateLimit,
		Message:    message,
		Retryable:  true,
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// NewInternalError creates a new internal error.
func NewInternalError(message string, err error) *DomainError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &DomainError{
		Code:       ErrCodeInternal,
		Message:    message,
		Details:    details,
		Retryable:  true,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewDeliveryError creates a new delivery error for failed outbound sends.
func NewDeliveryError(message string, err error) *DomainError {
	return &DomainError{
		Code:       ErrCodeDelivery,
		Message:    message,
		Retryable:  true,
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewStorageError creates a new storage error.
func NewStorageError(operation string, err error) *DomainError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &DomainError{
		Code:       ErrCodeStorage,
		Message:    fmt.Sprintf("storage operation %s failed", operation),
		Details:    details,
		Retryable:  true,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewStorageConflictError creates a storage error for a failed conditional
// write. Conflicts are deterministic, so they are never retryable.
func NewStorageConflictError(operation string, details string) *DomainError {
	return &DomainError{
		Code:       ErrCodeStorage,
		Message:    fmt.Sprintf("storage operation %s conflicted", operation),
		Details:    details,
		HTTPStatus: http.StatusConflict,
	}
}

// NewExternalServiceError creates a new external service error.
func NewExternalServiceError(service string, err error) *DomainError {
	return &DomainError{
		Code:       ErrCodeExternalService,
		Message:    fmt.Sprintf("%s is unavailable", service),
		Retryable:  true,
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewTimeoutError creates a new timeout error.
func NewTimeoutError(operation string) *DomainError {
	return &DomainError{
		Code:       ErrCodeTimeout,
		Message:    fmt.Sprintf("%s timed out", operation),
		Retryable:  true,
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

// NewCircuitBreakerOpenError creates the error returned when a call is
// short-circuited because the breaker for the given key is open.
func NewCircuitBreakerOpenError(service, operation string) *DomainError {
	return &DomainError{
		Code:       ErrCodeCircuitBreakerOpen,
		Message:    fmt.Sprintf("circuit breaker open for %s:%s", service, operation),
		Retryable:  true,
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// IsDomainError checks if the error is a domain error.
func IsDomainError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr)
}

// GetDomainError extracts the domain error from an error.
func GetDomainError(err error) (*DomainError, bool) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}

// IsRetryable reports whether the error can be retried with backoff.
// Errors outside the taxonomy are not retryable.
func IsRetryable(err error) bool {
	domainErr, ok := GetDomainError(err)
	return ok && domainErr.Retryable
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	domainErr, ok := GetDomainError(err)
	return ok && domainErr.Code == ErrCodeNotFound
}

// IsValidationError checks if the error is a validation error.
func IsValidationError(err error) bool {
	domainErr, ok := GetDomainError(err)
	return ok && domainErr.Code == ErrCodeValidation
}

// IsAuthenticationError checks if the error is an authentication error,
// including the authentication-required variant.
func IsAuthenticationError(err error) bool {
	domainErr, ok := GetDomainError(err)
	if !ok {
		return false
	}
	return domainErr.Code == ErrCodeAuthentication || domainErr.Code == ErrCodeAuthenticationRequired
}

// IsCircuitBreakerOpen checks if the error is a circuit breaker open error.
func IsCircuitBreakerOpen(err error) bool {
	domainErr, ok := GetDomainError(err)
	return ok && domainErr.Code == ErrCodeCircuitBreakerOpen
}
