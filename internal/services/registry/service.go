// Package registry manages durable connection records in the shared store.
// Records carry an epoch-second ttl and are indexed in a sorted set so the
// reclamation sweep can find expired ids with a single range query.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chatgate/chat-service/internal/core/cache"
	domainerrors "github.com/chatgate/chat-service/internal/domain/errors"
	"github.com/chatgate/chat-service/internal/domain/models"
)

const (
	// DefaultConnectionTTL is how long a connection record lives without activity.
	DefaultConnectionTTL = 2 * time.Hour

	// TTLIndexKey is the sorted set holding connection ids scored by ttl epoch seconds.
	TTLIndexKey = "connections:by-ttl"
)

// Service manages connection records.
type Service interface {
	// Create registers a new connection in the CONNECTED state. If a record
	// already exists for the id it is refreshed instead, so a replayed
	// connect event never fails.
	Create(ctx context.Context, connectionID string) (*models.Connection, error)

	// Put stores a connection record, refreshing lastActivityAt and ttl.
	Put(ctx context.Context, conn *models.Connection) error

	// GetByConnectionID retrieves a connection, or nil if not found.
	GetByConnectionID(ctx context.Context, connectionID string) (*models.Connection, error)

	// Touch refreshes lastActivityAt and ttl of an existing record.
	// Returns nil (not an error) if the record is absent.
	Touch(ctx context.Context, connectionID string) (*models.Connection, error)

	// Delete removes a connection record. Deleting an absent record is not
	// an error.
	Delete(ctx context.Context, connectionID string) error

	// ListExpired returns the ids of connections whose ttl is at or before
	// now. Used by the reclamation sweep, never on the event path.
	ListExpired(ctx context.Context, now time.Time) ([]string, error)
}

// service implements the Service interface.
type service struct {
	cacheClient cache.Client
	ttl         time.Duration
}

// Config holds the configuration for the registry service.
type Config struct {
	CacheClient cache.Client
	TTL         time.Duration
}

// NewService creates a new registry service.
func NewService(cfg *Config) (Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.CacheClient == nil {
		return nil, fmt.Errorf("cache client is required")
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultConnectionTTL
	}

	return &service{
		cacheClient: cfg.CacheClient,
		ttl:         ttl,
	}, nil
}

// Create registers a new connection in the CONNECTED state.
func (s *service) Create(ctx context.Context, connectionID string) (*models.Connection, error) {
	if connectionID == "" {
		return nil, fmt.Errorf("connection id is required")
	}

	conn := models.NewConnection(connectionID, s.ttl)
	data, err := json.Marshal(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal connection: %w", err)
	}

	created, err := s.cacheClient.SetNX(ctx, models.ConnectionKey(connectionID), data, s.ttl)
	if err != nil {
		return nil, domainerrors.NewStorageError("create-connection", err)
	}

	if !created {
		touched, err := s.Touch(ctx, connectionID)
		if err != nil {
			return nil, err
		}
		if touched != nil {
			return touched, nil
		}
		// The record vanished between the conditional write and the
		// refresh. Store unconditionally.
		if err := s.store(ctx, conn); err != nil {
			return nil, err
		}
		return conn, nil
	}

	if err := s.index(ctx, conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// Put stores a connection record, refreshing lastActivityAt and ttl.
func (s *service) Put(ctx context.Context, conn *models.Connection) error {
	if conn == nil {
		return fmt.Errorf("connection is required")
	}
	if conn.ConnectionID == "" {
		return fmt.Errorf("connection id is required")
	}

	conn.Touch(s.ttl)
	return s.store(ctx, conn)
}

// GetByConnectionID retrieves a connection record.
func (s *service) GetByConnectionID(ctx context.Context, connectionID string) (*models.Connection, error) {
	data, err := s.cacheClient.Get(ctx, models.ConnectionKey(connectionID))
	if err != nil {
		return nil, domainerrors.NewStorageError("get-connection", err)
	}
	if data == nil {
		return nil, nil // Not found
	}

	var conn models.Connection
	if err := json.Unmarshal(data, &conn); err != nil {
		// Corrupted record: drop it and report absence.
		_ = s.Delete(ctx, connectionID)
		return nil, nil
	}

	return &conn, nil
}

// Touch refreshes lastActivityAt and ttl of an existing record.
func (s *service) Touch(ctx context.Context, connectionID string) (*models.Connection, error) {
	conn, err := s.GetByConnectionID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, nil
	}

	conn.Touch(s.ttl)
	if err := s.store(ctx, conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// Delete removes a connection record and its ttl index entry.
func (s *service) Delete(ctx context.Context, connectionID string) error {
	if _, err := s.cacheClient.Delete(ctx, models.ConnectionKey(connectionID)); err != nil {
		return domainerrors.NewStorageError("delete-connection", err)
	}
	if err := s.cacheClient.ZRem(ctx, TTLIndexKey, connectionID); err != nil {
		return domainerrors.NewStorageError("unindex-connection", err)
	}
	return nil
}

// ListExpired returns the ids of connections whose ttl is at or before now.
func (s *service) ListExpired(ctx context.Context, now time.Time) ([]string, error) {
	ids, err := s.cacheClient.ZRangeByScore(ctx, TTLIndexKey, 0, float64(now.Unix()))
	if err != nil {
		return nil, domainerrors.NewStorageError("list-expired-connections", err)
	}
	return ids, nil
}

// store writes the record and its ttl index entry.
func (s *service) store(ctx context.Context, conn *models.Connection) error {
	data, err := json.Marshal(conn)
	if err != nil {
		return fmt.Errorf("failed to marshal connection: %w", err)
	}

	if err := s.cacheClient.Set(ctx, models.ConnectionKey(conn.ConnectionID), data, conn.ExpiresIn(time.Now().UTC())); err != nil {
		return domainerrors.NewStorageError("save-connection", err)
	}

	return s.index(ctx, conn)
}

// index records the connection's ttl in the sorted set.
func (s *service) index(ctx context.Context, conn *models.Connection) error {
	if err := s.cacheClient.ZAdd(ctx, TTLIndexKey, conn.ConnectionID, float64(conn.TTL)); err != nil {
		return domainerrors.NewStorageError("index-connection", err)
	}
	return nil
}
