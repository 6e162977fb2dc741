// Package docdb defines the document store interfaces.
package docdb

import (
	"context"

	"github.com/chatgate/chat-service/internal/domain/models"
)

// SortOrder represents the sort direction.
type SortOrder string

const (
	// SortOrderAsc represents ascending order.
	SortOrderAsc SortOrder = "asc"
	// SortOrderDesc represents descending order.
	SortOrderDesc SortOrder = "desc"
)

// ListMessagesOptions contains options for listing messages.
type ListMessagesOptions struct {
	SessionID string
	UserID    string
	Limit     int64
	Skip      int64
	OrderBy   SortOrder // Order by createdAt
}

// MessagesStore defines the interface for message persistence.
type MessagesStore interface {
	// Add inserts a new message. The message ID must be set by the caller.
	Add(ctx context.Context, message *models.Message) error

	// Get retrieves a message by ID. Returns nil if not found.
	Get(ctx context.Context, id string) (*models.Message, error)

	// List returns messages matching the options, with pagination and sorting.
	List(ctx context.Context, opts *ListMessagesOptions) ([]*models.Message, error)

	// CountBySession returns the number of messages in a session.
	CountBySession(ctx context.Context, sessionID string) (int64, error)

	// DeleteBySession removes all messages in a session. Returns the number
	// of messages deleted.
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)

	// EnsureIndexes creates necessary indexes for the collection.
	EnsureIndexes(ctx context.Context) error
}
