package repository

import (
	"context"
	"fmt"
	"time"

	"parcelmatch-service/internal/domain/entity"
	"parcelmatch-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSessionRepository implements the SessionRepository interface
type MongoSessionRepository struct {
	collection *mongo.Collection
}

// NewMongoSessionRepository creates a new MongoDB session repository
func NewMongoSessionRepository(db *mongo.Database) repository.SessionRepository {
	return &MongoSessionRepository{
		collection: db.Collection("sessions"),
	}
}

// Get returns the actor's open session, or nil when there is none
func (r *MongoSessionRepository) Get(ctx context.Context, actorID string) (*entity.Session, error) {
	var session entity.Session
	err := r.collection.FindOne(ctx, bson.M{"_id": actorID}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// Save upserts the session under its actor id
func (r *MongoSessionRepository) Save(ctx context.Context, session *entity.Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	session.UpdatedAt = time.Now()

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": session.ActorID}, session, opts)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes the actor's session; absent sessions are not an error
func (r *MongoSessionRepository) Delete(ctx context.Context, actorID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": actorID})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
