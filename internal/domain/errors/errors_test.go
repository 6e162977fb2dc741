package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chatgate/chat-service/internal/domain/errors"
)

func TestDomainError_Error(t *testing.T) {
	// Arrange
	withDetails := errors.NewValidationError("message is invalid", "empty content")
	withoutDetails := errors.NewAuthenticationError("token rejected")

	// Assert
	assert.Equal(t, "VALIDATION_ERROR: message is invalid (empty content)", withDetails.Error())
	assert.Equal(t, "AUTHENTICATION_ERROR: token rejected", withoutDetails.Error())
}

func TestDomainError_Unwrap(t *testing.T) {
	// Arrange
	cause := stderrors.New("connection refused")
	err := errors.NewStorageError("put", cause)

	// Assert
	assert.True(t, stderrors.Is(err, cause))
}

func TestGetDomainError_Wrapped(t *testing.T) {
	// Arrange
	inner := errors.NewNotFoundError("connection", "conn-123")
	wrapped := fmt.Errorf("handling event: %w", inner)

	// Act
	domainErr, ok := errors.GetDomainError(wrapped)

	// Assert
	assert.True(t, ok)
	assert.Equal(t, errors.ErrCodeNotFound, domainErr.Code)
}

func TestGetDomainError_NotDomainError(t *testing.T) {
	// Act
	domainErr, ok := errors.GetDomainError(stderrors.New("plain"))

	// Assert
	assert.False(t, ok)
	assert.Nil(t, domainErr)
}

func TestRetryableFlags(t *testing.T) {
	// Retryable kinds.
	assert.True(t, errors.IsRetryable(errors.NewRateLimitError("slow down")))
	assert.True(t, errors.IsRetryable(errors.NewInternalError("boom", nil)))
	assert.True(t, errors.IsRetryable(errors.NewDeliveryError("send failed", nil)))
	assert.True(t, errors.IsRetryable(errors.NewStorageError("put", nil)))
	assert.True(t, errors.IsRetryable(errors.NewExternalServiceError("identity", nil)))
	assert.True(t, errors.IsRetryable(errors.NewTimeoutError("verify-token")))
	assert.True(t, errors.IsRetryable(errors.NewCircuitBreakerOpenError("identity", "verify-token")))

	// Non-retryable kinds.
	assert.False(t, errors.IsRetryable(errors.NewValidationError("bad", "")))
	assert.False(t, errors.IsRetryable(errors.NewAuthenticationError("bad token")))
	assert.False(t, errors.IsRetryable(errors.NewAuthenticationRequiredError()))
	assert.False(t, errors.IsRetryable(errors.NewAuthorizationError("forbidden")))
	assert.False(t, errors.IsRetryable(errors.NewNotFoundError("session", "sess-1")))
	assert.False(t, errors.IsRetryable(errors.NewStorageConflictError("create", "already exists")))
	assert.False(t, errors.IsRetryable(stderrors.New("unclassified")))
}

func TestHTTPStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, errors.NewValidationError("bad", "").HTTPStatus)
	assert.Equal(t, http.StatusUnauthorized, errors.NewAuthenticationRequiredError().HTTPStatus)
	assert.Equal(t, http.StatusForbidden, errors.NewAuthorizationError("no").HTTPStatus)
	assert.Equal(t, http.StatusNotFound, errors.NewNotFoundError("session", "s").HTTPStatus)
	assert.Equal(t, http.StatusConflict, errors.NewStorageConflictError("create", "").HTTPStatus)
	assert.Equal(t, http.StatusServiceUnavailable, errors.NewCircuitBreakerOpenError("a", "b").HTTPStatus)
	assert.Equal(t, http.StatusGatewayTimeout, errors.NewTimeoutError("op").HTTPStatus)
}

func TestIsAuthenticationError(t *testing.T) {
	assert.True(t, errors.IsAuthenticationError(errors.NewAuthenticationError("bad")))
	assert.True(t, errors.IsAuthenticationError(errors.NewAuthenticationRequiredError()))
	assert.False(t, errors.IsAuthenticationError(errors.NewAuthorizationError("no")))
}

func TestIsCircuitBreakerOpen(t *testing.T) {
	assert.True(t, errors.IsCircuitBreakerOpen(errors.NewCircuitBreakerOpenError("svc", "op")))
	assert.False(t, errors.IsCircuitBreakerOpen(errors.NewTimeoutError("op")))
}
