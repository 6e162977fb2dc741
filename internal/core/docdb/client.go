// Package docdb defines the document database client interface.
package docdb

import (
	"context"
)

// Client defines the interface for a document database client.
type Client interface {
	// Messages returns the messages store.
	Messages() MessagesStore

	// Sessions returns the sessions store.
	Sessions() SessionsStore

	// EnsureIndexes creates indexes for all collections.
	EnsureIndexes(ctx context.Context) error

	// Ping verifies the database connection.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close(ctx context.Context) error
}
