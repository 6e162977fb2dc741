// Package authgate verifies bearer tokens and binds the resulting identity
// to connections. The authenticated-connection record it keeps in the shared
// store is the sole source of truth for "may this connection act as this
// user": the hot-path check is a bare existence probe with no cryptographic
// work, and an absent or expired record simply means unauthenticated.
package authgate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chatgate/chat-service/internal/core/cache"
	"github.com/chatgate/chat-service/internal/core/identity"
	domainerrors "github.com/chatgate/chat-service/internal/domain/errors"
	"github.com/chatgate/chat-service/internal/domain/models"
	"github.com/chatgate/chat-service/internal/pkg/encryption"
)

// DefaultAuthTTL is how long an authenticated-connection record lives.
const DefaultAuthTTL = 2 * time.Hour

// Service authenticates connections and answers authorization questions.
type Service interface {
	// Authenticate verifies a bearer token and returns the identity it
	// carries. It persists nothing. All verification failures surface as
	// the same authentication error.
	Authenticate(ctx context.Context, token string) (*models.Identity, error)

	// Bind writes the authenticated-connection record for a connection,
	// overwriting any previous one. A ttl of 0 uses the service default.
	Bind(ctx context.Context, connectionID string, id *models.Identity, ttl time.Duration) (*models.AuthenticatedConnectionRecord, error)

	// IsAuthenticated reports whether a live record exists for the
	// connection. It never reads or decrypts the record.
	IsAuthenticated(ctx context.Context, connectionID string) (bool, error)

	// ResolveUser returns the identity bound to the connection, or nil if
	// the connection is not authenticated.
	ResolveUser(ctx context.Context, connectionID string) (*models.Identity, error)

	// Unbind removes the record. Unbinding an absent record is not an error.
	Unbind(ctx context.Context, connectionID string) error

	// HasGroup reports whether the bound identity carries the given group.
	// An unauthenticated connection has no groups.
	HasGroup(ctx context.Context, connectionID, group string) (bool, error)
}

// service implements the Service interface.
type service struct {
	verifier    identity.Verifier
	cacheClient cache.Client
	encryptor   encryption.Encryptor
	ttl         time.Duration
}

// Config holds the configuration for the authentication gate.
type Config struct {
	Verifier    identity.Verifier
	CacheClient cache.Client
	Encryptor   encryption.Encryptor
	TTL         time.Duration
}

// NewService creates a new authentication gate.
func NewService(cfg *Config) (Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Verifier == nil {
		return nil, fmt.Errorf("verifier is required")
	}
	if cfg.CacheClient == nil {
		return nil, fmt.Errorf("cache client is required")
	}
	if cfg.Encryptor == nil {
		return nil, fmt.Errorf("encryptor is required")
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultAuthTTL
	}

	return &service{
		verifier:    cfg.Verifier,
		cacheClient: cfg.CacheClient,
		encryptor:   cfg.Encryptor,
		ttl:         ttl,
	}, nil
}

// Authenticate verifies a bearer token.
func (s *service) Authenticate(ctx context.Context, token string) (*models.Identity, error) {
	return s.verifier.Verify(ctx, token)
}

// Bind writes the authenticated-connection record for a connection.
func (s *service) Bind(ctx context.Context, connectionID string, id *models.Identity, ttl time.Duration) (*models.AuthenticatedConnectionRecord, error) {
	if connectionID == "" {
		return nil, fmt.Errorf("connection id is required")
	}
	if id == nil || id.UserID == "" {
		return nil, fmt.Errorf("identity with user id is required")
	}

	if ttl == 0 {
		ttl = s.ttl
	}
	record := models.NewAuthenticatedConnectionRecord(connectionID, id, ttl)

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal auth record: %w", err)
	}

	encrypted, err := s.encryptor.Encrypt(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt auth record: %w", err)
	}

	if err := s.cacheClient.Set(ctx, models.AuthRecordKey(connectionID), []byte(encrypted), ttl); err != nil {
		return nil, domainerrors.NewStorageError("bind-identity", err)
	}

	return record, nil
}

// IsAuthenticated reports whether a live record exists for the connection.
func (s *service) IsAuthenticated(ctx context.Context, connectionID string) (bool, error) {
	exists, err := s.cacheClient.Exists(ctx, models.AuthRecordKey(connectionID))
	if err != nil {
		return false, domainerrors.NewStorageError("check-authentication", err)
	}
	return exists, nil
}

// ResolveUser returns the identity bound to the connection.
// A record that cannot be decrypted or parsed, or that has outlived its ttl,
// is dropped and treated as absent.
func (s *service) ResolveUser(ctx context.Context, connectionID string) (*models.Identity, error) {
	data, err := s.cacheClient.Get(ctx, models.AuthRecordKey(connectionID))
	if err != nil {
		return nil, domainerrors.NewStorageError("resolve-user", err)
	}
	if data == nil {
		return nil, nil // Not authenticated
	}

	decrypted, err := s.encryptor.Decrypt(string(data))
	if err != nil {
		// Key might have changed - the record is unusable.
		_ = s.Unbind(ctx, connectionID)
		return nil, nil
	}

	var record models.AuthenticatedConnectionRecord
	if err := json.Unmarshal(decrypted, &record); err != nil {
		_ = s.Unbind(ctx, connectionID)
		return nil, nil
	}

	if record.IsExpired(time.Now().UTC()) {
		_ = s.Unbind(ctx, connectionID)
		return nil, nil
	}

	return record.Identity(), nil
}

// Unbind removes the authenticated-connection record.
func (s *service) Unbind(ctx context.Context, connectionID string) error {
	if _, err := s.cacheClient.Delete(ctx, models.AuthRecordKey(connectionID)); err != nil {
		return domainerrors.NewStorageError("unbind-identity", err)
	}
	return nil
}

// HasGroup reports whether the bound identity carries the given group.
func (s *service) HasGroup(ctx context.Context, connectionID, group string) (bool, error) {
	id, err := s.ResolveUser(ctx, connectionID)
	if err != nil {
		return false, err
	}
	if id == nil {
		return false, nil
	}
	return id.HasGroup(group), nil
}
