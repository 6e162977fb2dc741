// Package sessions manages conversation sessions in the document store.
// A session outlives any single connection so a user can resume the same
// conversation across reconnects. Expiry is enforced twice: the store reaps
// documents past expiresAt, and reads treat a not-yet-reaped document past
// its expiry as expired anyway.
package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chatgate/chat-service/internal/core/docdb"
	domainerrors "github.com/chatgate/chat-service/internal/domain/errors"
	"github.com/chatgate/chat-service/internal/domain/models"
)

const (
	// DefaultIdleTTL is how long a session stays alive without traffic.
	DefaultIdleTTL = 30 * time.Minute

	// DefaultListLimit bounds session listings when no limit is given.
	DefaultListLimit = 20
)

// Service manages session lifecycle.
type Service interface {
	// EnsureSession returns an active session for the user. A missing or
	// expired sessionId yields a fresh session; an INACTIVE one is
	// reactivated; a SUSPENDED one or one owned by another user is refused.
	EnsureSession(ctx context.Context, userID, sessionID string) (*models.Session, error)

	// Get retrieves a session, or nil if not found. A document past its
	// expiry is reported with status EXPIRED even before the store reaps it.
	Get(ctx context.Context, sessionID string) (*models.Session, error)

	// Touch extends an active session's expiry by the idle TTL, capped at
	// its hard deadline. Returns nil if the session is absent.
	Touch(ctx context.Context, sessionID string) (*models.Session, error)

	// ListByUser returns the user's sessions, newest first.
	ListByUser(ctx context.Context, userID string, limit int64) ([]*models.Session, error)

	// Suspend stops a session until an operator reactivates it.
	Suspend(ctx context.Context, sessionID string) (*models.Session, error)

	// Deactivate parks a session; it reactivates on next use.
	Deactivate(ctx context.Context, sessionID string) (*models.Session, error)

	// Reactivate returns a suspended or inactive session to ACTIVE.
	Reactivate(ctx context.Context, sessionID string) (*models.Session, error)
}

// service implements the Service interface.
type service struct {
	store              docdb.SessionsStore
	idleTTL            time.Duration
	maxDurationMinutes int
}

// Config holds the configuration for the sessions service.
type Config struct {
	Store              docdb.SessionsStore
	IdleTTL            time.Duration
	MaxDurationMinutes int
}

// NewService creates a new sessions service.
func NewService(cfg *Config) (Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("sessions store is required")
	}

	idleTTL := cfg.IdleTTL
	if idleTTL == 0 {
		idleTTL = DefaultIdleTTL
	}

	maxDuration := cfg.MaxDurationMinutes
	if maxDuration <= 0 || maxDuration > models.MaxSessionDurationMinutes {
		maxDuration = models.MaxSessionDurationMinutes
	}

	return &service{
		store:              cfg.Store,
		idleTTL:            idleTTL,
		maxDurationMinutes: maxDuration,
	}, nil
}

// EnsureSession returns an active session for the user.
func (s *service) EnsureSession(ctx context.Context, userID, sessionID string) (*models.Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	now := time.Now().UTC()

	if sessionID != "" {
		session, err := s.Get(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if session != nil {
			if session.UserID != userID {
				return nil, domainerrors.NewAuthorizationError("session belongs to another user")
			}

			switch {
			case session.Status == models.SessionStatusSuspended:
				return nil, domainerrors.NewAuthorizationError("session is suspended")

			case session.IsExpired(now):
				// Fall through to a fresh session.

			default: // ACTIVE or INACTIVE
				session.Status = models.SessionStatusActive
				session.Touch(now, s.idleTTL)
				if err := s.store.Put(ctx, session); err != nil {
					return nil, domainerrors.NewStorageError("save-session", err)
				}
				return session, nil
			}
		}
	}

	fresh := models.NewSession(newSessionID(), userID, s.idleTTL, s.maxDurationMinutes)
	if err := s.store.Put(ctx, fresh); err != nil {
		return nil, domainerrors.NewStorageError("save-session", err)
	}
	return fresh, nil
}

// Get retrieves a session.
func (s *service) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, domainerrors.NewStorageError("get-session", err)
	}
	if session == nil {
		return nil, nil // Not found
	}

	// Present a stale document as expired, but never mask an operator's
	// suspension.
	if session.Status != models.SessionStatusSuspended && session.IsExpired(time.Now().UTC()) {
		session.Status = models.SessionStatusExpired
	}

	return session, nil
}

// Touch extends an active session's expiry.
func (s *service) Touch(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	if session.Status != models.SessionStatusActive {
		return session, nil
	}

	session.Touch(time.Now().UTC(), s.idleTTL)
	if err := s.store.Put(ctx, session); err != nil {
		return nil, domainerrors.NewStorageError("save-session", err)
	}
	return session, nil
}

// ListByUser returns the user's sessions, newest first.
func (s *service) ListByUser(ctx context.Context, userID string, limit int64) ([]*models.Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	sessions, err := s.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, domainerrors.NewStorageError("list-sessions", err)
	}

	now := time.Now().UTC()
	for _, session := range sessions {
		if session.Status != models.SessionStatusSuspended && session.IsExpired(now) {
			session.Status = models.SessionStatusExpired
		}
	}
	return sessions, nil
}

// Suspend stops a session until an operator reactivates it.
func (s *service) Suspend(ctx context.Context, sessionID string) (*models.Session, error) {
	return s.transition(ctx, sessionID, models.SessionStatusSuspended)
}

// Deactivate parks a session.
func (s *service) Deactivate(ctx context.Context, sessionID string) (*models.Session, error) {
	return s.transition(ctx, sessionID, models.SessionStatusInactive)
}

// Reactivate returns a suspended or inactive session to ACTIVE. A session
// past its hard deadline cannot come back.
func (s *service) Reactivate(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domainerrors.NewNotFoundError("session", sessionID)
	}

	now := time.Now().UTC()
	if !now.Before(session.HardDeadline()) {
		return nil, domainerrors.NewValidationError("session has passed its maximum duration", sessionID)
	}

	session.Status = models.SessionStatusActive
	session.Touch(now, s.idleTTL)
	if err := s.store.Put(ctx, session); err != nil {
		return nil, domainerrors.NewStorageError("save-session", err)
	}
	return session, nil
}

func (s *service) transition(ctx context.Context, sessionID string, status models.SessionStatus) (*models.Session, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domainerrors.NewNotFoundError("session", sessionID)
	}

	session.Status = status
	session.LastActivityAt = time.Now().UTC()
	if err := s.store.Put(ctx, session); err != nil {
		return nil, domainerrors.NewStorageError("save-session", err)
	}
	return session, nil
}

func newSessionID() string {
	return "sess_" + uuid.New().String()
}
