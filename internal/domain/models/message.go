// Package models contains domain models for the ChatGate Chat Service.
package models

import "time"

// MessageRole represents the sender of a chat message.
type MessageRole string

const (
	// MessageRoleUser marks a message sent by the user.
	MessageRoleUser MessageRole = "user"
	// MessageRoleBot marks a synthesized response.
	MessageRoleBot MessageRole = "bot"
)

// Message represents a persisted chat message.
type Message struct {
	ID           string      `json:"id" bson:"_id"`
	SessionID    string      `json:"sessionId" bson:"sessionId"`
	ConnectionID string      `json:"connectionId,omitempty" bson:"connectionId,omitempty"`
	UserID       string      `json:"userId" bson:"userId"`
	Role         MessageRole `json:"role" bson:"role"`
	Content      string      `json:"content" bson:"content"`
	IsEcho       bool        `json:"isEcho,omitempty" bson:"isEcho,omitempty"`
	CreatedAt    time.Time   `json:"createdAt" bson:"createdAt"`
	// ExpiresAt drives the store's TTL reclamation of the document.
	ExpiresAt time.Time `json:"expiresAt" bson:"expiresAt"`
}

// NewUserMessage creates a user message. The caller assigns the ID before
// persisting.
func NewUserMessage(sessionID, connectionID, userID, content string, ttl time.Duration) *Message {
	now := time.Now().UTC()
	return &Message{
		SessionID:    sessionID,
		ConnectionID: connectionID,
		UserID:       userID,
		Role:         MessageRoleUser,
		Content:      content,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
}

// NewBotMessage creates a synthesized response message. The caller assigns
// the ID before persisting.
func NewBotMessage(sessionID, connectionID, userID, content string, isEcho bool, ttl time.Duration) *Message {
	now := time.Now().UTC()
	return &Message{
		SessionID:    sessionID,
		ConnectionID: connectionID,
		UserID:       userID,
		Role:         MessageRoleBot,
		Content:      content,
		IsEcho:       isEcho,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
}

// IsUserMessage returns true if this message was sent by the user.
func (m *Message) IsUserMessage() bool {
	return m.Role == MessageRoleUser
}
