// Package docdb defines the document store interfaces.
package docdb

import (
	"context"

	"github.com/chatgate/chat-service/internal/domain/models"
)

// SessionsStore defines the interface for session persistence.
type SessionsStore interface {
	// Put upserts a session document.
	Put(ctx context.Context, session *models.Session) error

	// Get retrieves a session by ID. Returns nil if not found.
	Get(ctx context.Context, id string) (*models.Session, error)

	// ListByUser returns the sessions belonging to a user, newest first.
	ListByUser(ctx context.Context, userID string, limit int64) ([]*models.Session, error)

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// EnsureIndexes creates necessary indexes for the collection.
	EnsureIndexes(ctx context.Context) error
}
