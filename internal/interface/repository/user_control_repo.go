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

// MongoUserControlRepository implements the UserControlRepository interface
type MongoUserControlRepository struct {
	collection *mongo.Collection
}

// NewMongoUserControlRepository creates a new MongoDB user control repository
func NewMongoUserControlRepository(db *mongo.Database) repository.UserControlRepository {
	return &MongoUserControlRepository{
		collection: db.Collection("user_controls"),
	}
}

// Get returns the control record for an actor, or nil when none exists
func (r *MongoUserControlRepository) Get(ctx context.Context, actorID string) (*entity.UserControl, error) {
	var control entity.UserControl
	err := r.collection.FindOne(ctx, bson.M{"_id": actorID}).Decode(&control)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &control, nil
}

// SetSuspended flips the suspension flag, creating the record on demand
func (r *MongoUserControlRepository) SetSuspended(ctx context.Context, actorID string, suspended bool, reason string) error {
	update := bson.M{"$set": bson.M{
		"suspended": suspended,
		"updatedAt": time.Now(),
	}}
	if suspended {
		update["$set"].(bson.M)["suspendReason"] = reason
	} else {
		update["$unset"] = bson.M{"suspendReason": ""}
	}

	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": actorID}, update, opts)
	if err != nil {
		return fmt.Errorf("failed to set suspension: %w", err)
	}
	return nil
}

// SetTerminated records a chat termination against the actor
func (r *MongoUserControlRepository) SetTerminated(ctx context.Context, actorID string, reason string) error {
	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": actorID}, bson.M{"$set": bson.M{
		"terminated":      true,
		"terminateReason": reason,
		"updatedAt":       time.Now(),
	}}, opts)
	if err != nil {
		return fmt.Errorf("failed to set termination: %w", err)
	}
	return nil
}
