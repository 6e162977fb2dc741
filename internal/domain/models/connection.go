// Package models contains domain models for the ChatGate Chat Service.
package models

import "time"

// ConnectionStatus represents the lifecycle state of a connection.
type ConnectionStatus string

const (
	// ConnectionStatusConnected indicates the channel is open but not yet authenticated.
	ConnectionStatusConnected ConnectionStatus = "CONNECTED"
	// ConnectionStatusAuthenticated indicates the connection is bound to a user.
	ConnectionStatusAuthenticated ConnectionStatus = "AUTHENTICATED"
	// ConnectionStatusDisconnected indicates the channel has been closed.
	ConnectionStatusDisconnected ConnectionStatus = "DISCONNECTED"
)

// Connection represents one live duplex channel.
type Connection struct {
	ConnectionID   string           `json:"connectionId"`
	UserID         string           `json:"userId,omitempty"`
	SessionID      string           `json:"sessionId,omitempty"`
	Status         ConnectionStatus `json:"status"`
	ConnectedAt    time.Time        `json:"connectedAt"`
	LastActivityAt time.Time        `json:"lastActivityAt"`
	// TTL is the epoch second after which the record is eligible for reclamation.
	TTL int64 `json:"ttl"`
}

// NewConnection creates a connection record in the CONNECTED state.
func NewConnection(connectionID string, ttl time.Duration) *Connection {
	now := time.Now().UTC()
	return &Connection{
		ConnectionID:   connectionID,
		Status:         ConnectionStatusConnected,
		ConnectedAt:    now,
		LastActivityAt: now,
		TTL:            now.Add(ttl).Unix(),
	}
}

// Touch refreshes the activity timestamp and pushes the reclamation
// deadline out by the given TTL.
func (c *Connection) Touch(ttl time.Duration) {
	now := time.Now().UTC()
	c.LastActivityAt = now
	c.TTL = now.Add(ttl).Unix()
}

// IsExpired checks whether the record is past its reclamation deadline.
func (c *Connection) IsExpired(now time.Time) bool {
	return c.TTL <= now.Unix()
}

// ExpiresIn returns the remaining lifetime of the record at the given
// instant. It is never negative.
func (c *Connection) ExpiresIn(now time.Time) time.Duration {
	remaining := time.Unix(c.TTL, 0).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ConnectionKey generates a cache key for a connection record.
func ConnectionKey(connectionID string) string {
	return "connection:" + connectionID
}
