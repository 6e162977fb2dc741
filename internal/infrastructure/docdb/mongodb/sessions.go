// Package mongodb provides the sessions store implementation.
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chatgate/chat-service/internal/domain/models"
)

const (
	// SessionsCollectionName is the name of the sessions collection.
	SessionsCollectionName = "sessions"
)

// SessionsStore implements the docdb.SessionsStore interface for MongoDB.
type SessionsStore struct {
	collection *mongo.Collection
}

// NewSessionsStore creates a new sessions store wrapper.
func NewSessionsStore(db *mongo.Database) *SessionsStore {
	return &SessionsStore{
		collection: db.Collection(SessionsCollectionName),
	}
}

// Put upserts a session document.
func (s *SessionsStore) Put(ctx context.Context, session *models.Session) error {
	if session.SessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	opts := options.Replace().SetUpsert(true)
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": session.SessionID}, session, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	return nil
}

// Get retrieves a session by ID.
func (s *SessionsStore) Get(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// ListByUser returns the sessions belonging to a user, newest first.
func (s *SessionsStore) ListByUser(ctx context.Context, userID string, limit int64) ([]*models.Session, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		findOpts.SetLimit(limit)
	}

	cursor, err := s.collection.Find(ctx, bson.M{"userId": userID}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []*models.Session
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}

	return sessions, nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *SessionsStore) Delete(ctx context.Context, id string) error {
	_, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// EnsureIndexes creates necessary indexes for the sessions collection. The
// TTL index on expiresAt reclaims expired sessions; reads still re-check
// expiry because TTL reaping is not immediate.
func (s *SessionsStore) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "userId", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("idx_user_created"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_status"),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetName("idx_expires_at_ttl").SetExpireAfterSeconds(0),
		},
	}

	_, err := s.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create sessions indexes: %w", err)
	}

	return nil
}
