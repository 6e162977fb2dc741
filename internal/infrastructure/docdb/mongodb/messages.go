// Package mongodb provides the messages store implementation.
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chatgate/chat-service/internal/core/docdb"
	"github.com/chatgate/chat-service/internal/domain/models"
)

const (
	// MessagesCollectionName is the name of the messages collection.
	MessagesCollectionName = "messages"
)

// MessagesStore implements the docdb.MessagesStore interface for MongoDB.
type MessagesStore struct {
	collection *mongo.Collection
}

// NewMessagesStore creates a new messages store wrapper.
func NewMessagesStore(db *mongo.Database) *MessagesStore {
	return &MessagesStore{
		collection: db.Collection(MessagesCollectionName),
	}
}

// Add inserts a new message.
func (s *MessagesStore) Add(ctx context.Context, message *models.Message) error {
	if message.ID == "" {
		return fmt.Errorf("message ID is required")
	}

	_, err := s.collection.InsertOne(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	return nil
}

// Get retrieves a message by ID.
func (s *MessagesStore) Get(ctx context.Context, id string) (*models.Message, error) {
	var message models.Message
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&message)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &message, nil
}

// List returns messages matching the options, with pagination and sorting.
func (s *MessagesStore) List(ctx context.Context, opts *docdb.ListMessagesOptions) ([]*models.Message, error) {
	filter := s.buildFilter(opts)
	findOpts := s.buildFindOptions(opts)

	cursor, err := s.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []*models.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}

	return messages, nil
}

// CountBySession returns the number of messages in a session.
func (s *MessagesStore) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	count, err := s.collection.CountDocuments(ctx, bson.M{"sessionId": sessionID})
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

// DeleteBySession removes all messages in a session.
func (s *MessagesStore) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	result, err := s.collection.DeleteMany(ctx, bson.M{"sessionId": sessionID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete messages: %w", err)
	}
	return result.DeletedCount, nil
}

// EnsureIndexes creates necessary indexes for the messages collection. The
// TTL index on expiresAt lets MongoDB reclaim messages past their retention.
func (s *MessagesStore) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "sessionId", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("idx_session_created"),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetName("idx_user_id"),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetName("idx_expires_at_ttl").SetExpireAfterSeconds(0),
		},
	}

	_, err := s.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create messages indexes: %w", err)
	}

	return nil
}

// buildFilter creates a MongoDB filter from list options.
func (s *MessagesStore) buildFilter(opts *docdb.ListMessagesOptions) bson.M {
	filter := bson.M{}

	if opts == nil {
		return filter
	}

	if opts.SessionID != "" {
		filter["sessionId"] = opts.SessionID
	}
	if opts.UserID != "" {
		filter["userId"] = opts.UserID
	}

	return filter
}

// buildFindOptions creates MongoDB find options from list options.
func (s *MessagesStore) buildFindOptions(opts *docdb.ListMessagesOptions) *options.FindOptions {
	findOpts := options.Find()

	if opts == nil {
		return findOpts
	}

	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}
	if opts.Skip > 0 {
		findOpts.SetSkip(opts.Skip)
	}

	// Default to descending order by createdAt
	sortOrder := -1
	if opts.OrderBy == docdb.SortOrderAsc {
		sortOrder = 1
	}
	findOpts.SetSort(bson.D{{Key: "createdAt", Value: sortOrder}})

	return findOpts
}
