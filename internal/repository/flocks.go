package repository

import (
	"context"

	"github.com/flocknet/flockd/internal/model"
)

// FlockRepository provides CRUD access to flocks and the ownership lookups
// every other component gates on.
type FlockRepository interface {
	// Create inserts a flock bound to its owner.
	Create(ctx context.Context, id string, owner int64) error
	// List returns all flocks owned by the account. Order is insignificant.
	List(ctx context.Context, owner int64) ([]model.Flock, error)
	// CountForOwner returns the number of flocks the account currently owns.
	CountForOwner(ctx context.Context, owner int64) (int, error)
	// Delete removes a flock scoped to (id, owner) and reports whether a row
	// was removed. Devices and trust links referencing it cascade away.
	Delete(ctx context.Context, id string, owner int64) (bool, error)
	// GetOwned loads a flock only if the account owns it; errs.ErrNotFound
	// otherwise, absent and not-owned indistinguishable.
	GetOwned(ctx context.Context, id string, owner int64) (*model.Flock, error)
	// Get loads a flock regardless of ownership (pre-trust enrollment,
	// counterpart lookup).
	Get(ctx context.Context, id string) (*model.Flock, error)
	// StampAmbryUpdate records an ambry publication time against the flock.
	StampAmbryUpdate(ctx context.Context, id string, owner int64, now int64) error
}
