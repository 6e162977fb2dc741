// Package vault defines the vault client interface.
package vault

import (
	"context"
)

// Client is a higher-level vault client that wraps the Vault interface.
type Client interface {
	// GetVault returns the underlying Vault implementation.
	GetVault() Vault

	// GetSecret retrieves a secret from the vault.
	// If useCache is true and caching is available, it will use the cache.
	GetSecret(ctx context.Context, uri string, useCache bool) (string, error)

	// Ping checks if the vault connection is alive.
	Ping(ctx context.Context) error

	// Close closes the vault client connection.
	Close() error
}
