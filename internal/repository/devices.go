package repository

import (
	"context"

	"github.com/flocknet/flockd/internal/model"
)

// DeviceRepository provides access to enrolled devices and the key-slot
// allocation primitive.
type DeviceRepository interface {
	// Create inserts an unapproved device row (slot 0).
	Create(ctx context.Context, d *model.Device) error
	// List returns devices for a flock scoped to the owning account,
	// unapproved first, then by slot.
	List(ctx context.Context, flock string, account int64) ([]model.Device, error)
	// Delete removes a device scoped to (flock, device, account) and reports
	// whether a row was removed.
	Delete(ctx context.Context, flock, device string, account int64) (bool, error)
	// AssignSlot approves the device and assigns the smallest free key slot
	// in 1..255, serialized against concurrent approvals on the same flock.
	// Returns errs.ErrResourceExhausted when every slot is taken,
	// errs.ErrNotFound when the device is absent or already approved, and
	// errs.ErrAlreadyExists when a concurrent approval stole the chosen slot
	// (callers retry).
	AssignSlot(ctx context.Context, flock, device string) (int, error)
}
