// Package models contains domain models for the ChatGate Chat Service.
package models

import (
	"slices"
	"time"
)

// Identity holds the verified claims of an authenticated user.
type Identity struct {
	UserID   string   `json:"userId"`
	Username string   `json:"username,omitempty"`
	Email    string   `json:"email,omitempty"`
	Groups   []string `json:"groups,omitempty"`
}

// HasGroup checks whether the identity carries the given group.
func (i *Identity) HasGroup(group string) bool {
	return slices.Contains(i.Groups, group)
}

// AuthenticatedConnectionRecord is the cache entry proving a connection has
// passed authentication. Its existence is the sole source of truth for
// whether a connection may act as a user; absence means unauthenticated.
type AuthenticatedConnectionRecord struct {
	ConnectionID    string    `json:"connectionId"`
	UserID          string    `json:"userId"`
	Username        string    `json:"username,omitempty"`
	Email           string    `json:"email,omitempty"`
	Groups          []string  `json:"groups,omitempty"`
	AuthenticatedAt time.Time `json:"authenticatedAt"`
	// TTL is the epoch second after which the record no longer proves anything.
	TTL int64 `json:"ttl"`
}

// NewAuthenticatedConnectionRecord binds an identity to a connection for the
// given TTL.
func NewAuthenticatedConnectionRecord(connectionID string, identity *Identity, ttl time.Duration) *AuthenticatedConnectionRecord {
	now := time.Now().UTC()
	return &AuthenticatedConnectionRecord{
		ConnectionID:    connectionID,
		UserID:          identity.UserID,
		Username:        identity.Username,
		Email:           identity.Email,
		Groups:          identity.Groups,
		AuthenticatedAt: now,
		TTL:             now.Add(ttl).Unix(),
	}
}

// Identity reconstructs the identity carried by the record.
func (r *AuthenticatedConnectionRecord) Identity() *Identity {
	return &Identity{
		UserID:   r.UserID,
		Username: r.Username,
		Email:    r.Email,
		Groups:   r.Groups,
	}
}

// IsExpired checks whether the record is past its expiry.
func (r *AuthenticatedConnectionRecord) IsExpired(now time.Time) bool {
	return r.TTL <= now.Unix()
}

// AuthRecordKey generates a cache key for an authenticated-connection record.
func AuthRecordKey(connectionID string) string {
	return "authconn:" + connectionID
}
