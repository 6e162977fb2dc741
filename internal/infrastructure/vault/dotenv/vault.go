// Package dotenv provides a dotenv-based vault implementation for development.
package dotenv

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Vault implements the vault.Vault interface using environment variables.
// This is primarily for local development and testing.
type Vault struct{}

// NewVault creates a new DotEnv vault instance.
func NewVault() *Vault {
	return &Vault{}
}

// GetSecret retrieves a secret from environment variables.
// URIs use the format "dotenv://{key}".
func (v *Vault) GetSecret(ctx context.Context, uri string) (string, error) {
	key := strings.TrimPrefix(uri, "dotenv://")

	if value := os.Getenv(key); value != "" {
		return value, nil
	}

	return "", fmt.Errorf("secret not found: %s", key)
}

// Ping checks if the vault is available (always returns nil for dotenv).
func (v *Vault) Ping(ctx context.Context) error {
	return nil
}

// Close closes the vault (no-op for dotenv).
func (v *Vault) Close() error {
	return nil
}
