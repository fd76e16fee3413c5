package repository

import (
	"context"

	"parcelmatch-service/internal/domain/entity"
)

// RequestRepository defines the interface for request record operations.
//
// The three match-state writes (SetPendingMatch, LockIfReciprocal,
// CompleteLock) are conditional updates: they apply only while their
// precondition still holds at write time and report whether they matched
// a document. The lock transition therefore behaves as a compare-and-swap,
// so two racing confirmation attempts cannot both succeed.
type RequestRepository interface {
	Insert(ctx context.Context, req *entity.Request) error
	FindByID(ctx context.Context, id string) (*entity.Request, error)

	// FindCandidates returns all approved, unlocked requests of the
	// given role.
	FindCandidates(ctx context.Context, role entity.Role) ([]*entity.Request, error)

	// FindByOwner returns the owner's requests, optionally filtered to
	// the given statuses.
	FindByOwner(ctx context.Context, ownerID string, statuses ...entity.RequestStatus) ([]*entity.Request, error)

	// FindActiveMatch returns the owner's locked request, or nil.
	FindActiveMatch(ctx context.Context, ownerID string) (*entity.Request, error)

	UpdateStatus(ctx context.Context, id string, status entity.RequestStatus, note string) error
	SetVisaPhoto(ctx context.Context, id, photoRef string) error

	// SetPendingMatch records a first confirmation. Applies only while
	// the request is approved, unlocked, and has no different
	// outstanding confirmation.
	SetPendingMatch(ctx context.Context, id, counterpartID string) (bool, error)

	// LockIfReciprocal locks the request iff its pendingMatchWith still
	// equals counterpartID and it is approved and unlocked.
	LockIfReciprocal(ctx context.Context, id, counterpartID string) (bool, error)

	// CompleteLock finishes the pair: locks the request onto
	// counterpartID provided it is not already locked.
	CompleteLock(ctx context.Context, id, counterpartID string) (bool, error)

	// ClearMatchState unsets pendingMatchWith/matchedWith, drops the
	// lock, and moves the request to the given status with a note.
	ClearMatchState(ctx context.Context, id string, status entity.RequestStatus, note string) error
}
