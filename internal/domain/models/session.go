// Package models contains domain models for the ChatGate Chat Service.
package models

import "time"

// SessionStatus represents the lifecycle state of a session.
type SessionStatus string

const (
	// SessionStatusActive indicates the session accepts messages.
	SessionStatusActive SessionStatus = "ACTIVE"
	// SessionStatusInactive indicates the session was deactivated and can be reactivated.
	SessionStatusInactive SessionStatus = "INACTIVE"
	// SessionStatusExpired indicates the session passed its expiry.
	SessionStatusExpired SessionStatus = "EXPIRED"
	// SessionStatusSuspended indicates an operator suspended the session.
	SessionStatusSuspended SessionStatus = "SUSPENDED"
)

// MaxSessionDurationMinutes is the upper bound on a session's total lifetime.
const MaxSessionDurationMinutes = 1440

// Session is a conversation context independent of any single connection,
// letting the same user resume across reconnects.
type Session struct {
	SessionID            string        `json:"sessionId" bson:"_id"`
	UserID               string        `json:"userId" bson:"userId"`
	Status               SessionStatus `json:"status" bson:"status"`
	CreatedAt            time.Time     `json:"createdAt" bson:"createdAt"`
	LastActivityAt       time.Time     `json:"lastActivityAt" bson:"lastActivityAt"`
	ExpiresAt            time.Time     `json:"expiresAt" bson:"expiresAt"`
	MaxDurationInMinutes int           `json:"maxDurationInMinutes" bson:"maxDurationInMinutes"`
}

// NewSession creates an active session for the user. The idle TTL sets the
// initial expiry; maxDurationMinutes is clamped to (0, MaxSessionDurationMinutes].
func NewSession(sessionID, userID string, idleTTL time.Duration, maxDurationMinutes int) *Session {
	if maxDurationMinutes <= 0 || maxDurationMinutes > MaxSessionDurationMinutes {
		maxDurationMinutes = MaxSessionDurationMinutes
	}
	now := time.Now().UTC()
	s := &Session{
		SessionID:            sessionID,
		UserID:               userID,
		Status:               SessionStatusActive,
		CreatedAt:            now,
		LastActivityAt:       now,
		ExpiresAt:            now.Add(idleTTL),
		MaxDurationInMinutes: maxDurationMinutes,
	}
	if deadline := s.HardDeadline(); s.ExpiresAt.After(deadline) {
		s.ExpiresAt = deadline
	}
	return s
}

// HardDeadline returns the instant past which the session may never be
// extended, regardless of activity.
func (s *Session) HardDeadline() time.Time {
	return s.CreatedAt.Add(time.Duration(s.MaxDurationInMinutes) * time.Minute)
}

// IsExpired checks whether the session is past its expiry at the given
// instant. A document not yet reaped by the store still counts as expired.
func (s *Session) IsExpired(now time.Time) bool {
	return s.Status == SessionStatusExpired || now.After(s.ExpiresAt)
}

// Touch records activity and extends the expiry by the idle TTL, capped at
// the hard deadline.
func (s *Session) Touch(now time.Time, idleTTL time.Duration) {
	s.LastActivityAt = now
	s.ExpiresAt = now.Add(idleTTL)
	if deadline := s.HardDeadline(); s.ExpiresAt.After(deadline) {
		s.ExpiresAt = deadline
	}
}
