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

// MongoRequestRepository implements the RequestRepository interface
type MongoRequestRepository struct {
	collection *mongo.Collection
}

// NewMongoRequestRepository creates a new MongoDB request repository
func NewMongoRequestRepository(db *mongo.Database) repository.RequestRepository {
	collection := db.Collection("requests")

	ctx := context.Background()

	// Index on ownerId for per-user lookups
	ownerIndex := mongo.IndexModel{
		Keys: bson.M{"ownerId": 1},
	}

	// Compound index for candidate discovery
	candidateIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "role", Value: 1},
			{Key: "status", Value: 1},
			{Key: "matchLocked", Value: 1},
		},
	}

	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		ownerIndex,
		candidateIndex,
	})

	return &MongoRequestRepository{
		collection: collection,
	}
}

// Insert persists a new request record
func (r *MongoRequestRepository) Insert(ctx context.Context, req *entity.Request) error {
	now := time.Now()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to insert request: %w", err)
	}
	return nil
}

// FindByID finds a request by its request id. Returns nil when absent.
func (r *MongoRequestRepository) FindByID(ctx context.Context, id string) (*entity.Request, error) {
	var req entity.Request
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// FindCandidates returns all approved, unlocked requests of the given role
func (r *MongoRequestRepository) FindCandidates(ctx context.Context, role entity.Role) ([]*entity.Request, error) {
	filter := bson.M{
		"role":        role,
		"status":      entity.StatusApproved,
		"matchLocked": false,
	}

	cursor, err := r.collection.Find(ctx, filter, &options.FindOptions{
		Sort: bson.D{{Key: "createdAt", Value: 1}}, // oldest first
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var requests []*entity.Request
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, err
	}

	return requests, nil
}

// FindByOwner returns the owner's requests, optionally filtered by status
func (r *MongoRequestRepository) FindByOwner(ctx context.Context, ownerID string, statuses ...entity.RequestStatus) ([]*entity.Request, error) {
	filter := bson.M{"ownerId": ownerID}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}

	cursor, err := r.collection.Find(ctx, filter, &options.FindOptions{
		Sort: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var requests []*entity.Request
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, err
	}

	return requests, nil
}

// FindActiveMatch returns the owner's locked request, or nil
func (r *MongoRequestRepository) FindActiveMatch(ctx context.Context, ownerID string) (*entity.Request, error) {
	var req entity.Request
	err := r.collection.FindOne(ctx, bson.M{
		"ownerId":     ownerID,
		"matchLocked": true,
	}).Decode(&req)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// UpdateStatus moves a request to the given status with a moderator note
func (r *MongoRequestRepository) UpdateStatus(ctx context.Context, id string, status entity.RequestStatus, note string) error {
	set := bson.M{
		"status":    status,
		"updatedAt": time.Now(),
	}
	if note != "" {
		set["moderatorNote"] = note
	}

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("no request found with id: %s", id)
	}
	return nil
}

// SetVisaPhoto stores the uploaded visa document reference
func (r *MongoRequestRepository) SetVisaPhoto(ctx context.Context, id, photoRef string) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"traveler.visaPhoto": photoRef,
			"updatedAt":          time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to set visa photo: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("no request found with id: %s", id)
	}
	return nil
}

// SetPendingMatch records a first confirmation. The write applies only
// while the request is approved, unlocked, and has no different
// confirmation outstanding.
func (r *MongoRequestRepository) SetPendingMatch(ctx context.Context, id, counterpartID string) (bool, error) {
	filter := bson.M{
		"_id":         id,
		"status":      entity.StatusApproved,
		"matchLocked": false,
		"$or": []bson.M{
			{"pendingMatchWith": bson.M{"$exists": false}},
			{"pendingMatchWith": counterpartID},
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"pendingMatchWith": counterpartID,
		"updatedAt":        time.Now(),
	}})
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

// LockIfReciprocal locks the request iff its outstanding confirmation
// still points at counterpartID at write time. This is the conditional
// write that makes the double-confirmation race lose-safe: of two
// simultaneous lock attempts at most one matches the filter.
func (r *MongoRequestRepository) LockIfReciprocal(ctx context.Context, id, counterpartID string) (bool, error) {
	filter := bson.M{
		"_id":              id,
		"status":           entity.StatusApproved,
		"matchLocked":      false,
		"pendingMatchWith": counterpartID,
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{
			"matchLocked": true,
			"matchedWith": counterpartID,
			"updatedAt":   time.Now(),
		},
		"$unset": bson.M{"pendingMatchWith": ""},
	})
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

// CompleteLock finishes the pair on the second confirmer's own record
func (r *MongoRequestRepository) CompleteLock(ctx context.Context, id, counterpartID string) (bool, error) {
	filter := bson.M{
		"_id":         id,
		"status":      entity.StatusApproved,
		"matchLocked": false,
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{
			"matchLocked": true,
			"matchedWith": counterpartID,
			"updatedAt":   time.Now(),
		},
		"$unset": bson.M{"pendingMatchWith": ""},
	})
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

// ClearMatchState drops every match field and moves the request to the
// given status. Used by rejection and termination.
func (r *MongoRequestRepository) ClearMatchState(ctx context.Context, id string, status entity.RequestStatus, note string) error {
	set := bson.M{
		"matchLocked": false,
		"status":      status,
		"updatedAt":   time.Now(),
	}
	if note != "" {
		set["moderatorNote"] = note
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": set,
		"$unset": bson.M{
			"pendingMatchWith": "",
			"matchedWith":      "",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to clear match state: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("no request found with id: %s", id)
	}
	return nil
}
