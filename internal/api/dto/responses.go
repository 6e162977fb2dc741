// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/chatgate/chat-service/internal/core/breaker"
	"github.com/chatgate/chat-service/internal/domain/models"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

// ListMessagesResponse represents the response for listing session messages.
type ListMessagesResponse struct {
	Messages []*models.Message `json:"messages"`
	Total    int64             `json:"total"`
	Limit    int64             `json:"limit"`
	Offset   int64             `json:"offset"`
}

// ListSessionsResponse represents the response for listing sessions.
type ListSessionsResponse struct {
	Sessions []*models.Session `json:"sessions"`
}

// SessionResponse represents a single session in API responses.
type SessionResponse struct {
	Session *models.Session `json:"session"`
}

// ConnectionResponse represents a connection record along with whether an
// authenticated-connection record currently exists for it.
type ConnectionResponse struct {
	Connection    *models.Connection `json:"connection"`
	Authenticated bool               `json:"authenticated"`
}

// BreakersResponse represents the snapshots of all circuit breakers.
type BreakersResponse struct {
	Breakers []breaker.Stats `json:"breakers"`
}

// SweepResponse represents the result of one reclamation sweep.
type SweepResponse struct {
	Removed int       `json:"removed"`
	SweptAt time.Time `json:"sweptAt"`
}
