package repository

import (
	"context"
	"fmt"

	"parcelmatch-service/internal/domain/entity"
	"parcelmatch-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAuthSessionRepository implements the AuthSessionRepository interface
type MongoAuthSessionRepository struct {
	collection *mongo.Collection
}

// NewMongoAuthSessionRepository creates a new MongoDB auth session repository
func NewMongoAuthSessionRepository(db *mongo.Database) repository.AuthSessionRepository {
	return &MongoAuthSessionRepository{
		collection: db.Collection("auth_sessions"),
	}
}

// Get returns the actor's auth session, or nil when not logged in
func (r *MongoAuthSessionRepository) Get(ctx context.Context, actorID string) (*entity.AuthSession, error) {
	var session entity.AuthSession
	err := r.collection.FindOne(ctx, bson.M{"_id": actorID}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// Save upserts the auth session under its actor id
func (r *MongoAuthSessionRepository) Save(ctx context.Context, session *entity.AuthSession) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": session.ActorID}, session, opts)
	if err != nil {
		return fmt.Errorf("failed to save auth session: %w", err)
	}
	return nil
}

// Delete removes the actor's auth session
func (r *MongoAuthSessionRepository) Delete(ctx context.Context, actorID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": actorID})
	if err != nil {
		return fmt.Errorf("failed to delete auth session: %w", err)
	}
	return nil
}
