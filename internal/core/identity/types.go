// Package identity provides the identity provider type constants.
package identity

// Type represents the type of identity provider.
type Type string

const (
	// TypeJWT represents a shared-secret JWT verifier.
	TypeJWT Type = "jwt"
)
