// Package vault defines the vault interface for secrets management.
package vault

import (
	"context"
)

// Vault defines the interface for resolving secrets. Secrets are addressed
// by URI; the scheme selects the backing store (e.g. dotenv://KEY).
type Vault interface {
	// GetSecret retrieves a secret from the vault by URI.
	// Returns the secret value or an error if not found.
	GetSecret(ctx context.Context, uri string) (string, error)

	// Ping checks if the vault connection is alive.
	Ping(ctx context.Context) error

	// Close closes the vault connection.
	Close() error
}
