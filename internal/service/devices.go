package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/flocknet/flockd/internal/errs"
	"github.com/flocknet/flockd/internal/ident"
	"github.com/flocknet/flockd/internal/model"
	"github.com/flocknet/flockd/internal/repository"
)

// coskSize is the required length of the cosigning key a device presents at
// enrollment.
const coskSize = 32

// createAttempts bounds retries when a freshly generated device id collides
// within the flock, and when a key-slot assignment loses a race.
const createAttempts = 3

// ApprovalResult reports a device approval. Slot is 0 when the approval
// failed softly (device missing or already approved); Message is always set
// and is the client-facing outcome either way.
type ApprovalResult struct {
	Slot    int
	Message string
}

// DeviceService manages device enrollment, listing, deletion and the key-slot
// allocator.
type DeviceService interface {
	// Enroll registers an unapproved device in a flock. Unknown flocks get a
	// decoy with the identical field set, so response shape never reveals
	// whether the flock exists. The cosigning key must be exactly 32 bytes.
	Enroll(ctx context.Context, flockID string, cosk []byte) (*model.Enrollment, error)
	// List returns an owned flock's devices.
	List(ctx context.Context, owner int64, flockID string) ([]model.Device, error)
	// Delete removes a device and reports the outcome as a client message.
	Delete(ctx context.Context, owner int64, flockID, deviceID string) (string, error)
	// Approve assigns the smallest free key slot (1..255) and flips the
	// approved flag. errs.ErrResourceExhausted when every slot is taken.
	Approve(ctx context.Context, owner int64, flockID, deviceID string) (ApprovalResult, error)
}

type DeviceServiceImpl struct {
	devices repository.DeviceRepository
	flocks  FlockService
}

// NewDeviceService constructs DeviceService.
func NewDeviceService(devices repository.DeviceRepository, flocks FlockService) *DeviceServiceImpl {
	return &DeviceServiceImpl{devices: devices, flocks: flocks}
}

// Enroll validates the cosigning key, then either inserts a real unapproved
// device or fabricates a decoy for an unknown flock.
func (s *DeviceServiceImpl) Enroll(ctx context.Context, flockID string, cosk []byte) (*model.Enrollment, error) {
	if len(cosk) != coskSize {
		return nil, errs.ErrSizeInvalid
	}

	fl, err := s.flocks.ResolveAny(ctx, flockID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return s.decoy(flockID)
		}
		return nil, err
	}

	secret, err := ident.DeviceSecret()
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		id, err := ident.DeviceID()
		if err != nil {
			return nil, err
		}
		d := &model.Device{
			ID:      id,
			Flock:   fl.ID,
			Account: fl.Owner,
			PubKey:  hex.EncodeToString(cosk),
			Key:     secret,
		}
		err = s.devices.Create(ctx, d)
		if errors.Is(err, errs.ErrAlreadyExists) {
			continue // device id collision within the flock
		}
		if err != nil {
			return nil, err
		}
		return &model.Enrollment{
			CathedralID:     id,
			CathedralSecret: secret,
			Flock:           fl.ID,
		}, nil
	}
	return nil, errs.ErrAlreadyExists
}

// decoy fabricates credentials for a nonexistent flock, structurally
// identical to a real enrollment.
func (s *DeviceServiceImpl) decoy(flockID string) (*model.Enrollment, error) {
	id, err := ident.DeviceID()
	if err != nil {
		return nil, err
	}
	secret, err := ident.DeviceSecret()
	if err != nil {
		return nil, err
	}
	return &model.Enrollment{
		CathedralID:     id,
		CathedralSecret: secret,
		Flock:           flockID,
	}, nil
}

// List returns devices after the ownership gate.
func (s *DeviceServiceImpl) List(ctx context.Context, owner int64, flockID string) ([]model.Device, error) {
	fl, err := s.flocks.ResolveOwned(ctx, owner, flockID)
	if err != nil {
		return nil, err
	}
	return s.devices.List(ctx, fl.ID, owner)
}

// Delete removes a device scoped to (flock, device, account) and reports the
// outcome as a message; an absent device is not an error.
func (s *DeviceServiceImpl) Delete(ctx context.Context, owner int64, flockID, deviceID string) (string, error) {
	fl, err := s.flocks.ResolveOwned(ctx, owner, flockID)
	if err != nil {
		return "", err
	}
	deleted, err := s.devices.Delete(ctx, fl.ID, deviceID, owner)
	if err != nil {
		return "", err
	}
	if !deleted {
		return fmt.Sprintf("%s does not exist", deviceID), nil
	}
	return fmt.Sprintf("%s deleted", deviceID), nil
}

// Approve runs the key-slot allocator. The repository serializes the
// scan-then-assign per flock; a lost race surfaces as ErrAlreadyExists and is
// retried with a fresh scan.
func (s *DeviceServiceImpl) Approve(ctx context.Context, owner int64, flockID, deviceID string) (ApprovalResult, error) {
	fl, err := s.flocks.ResolveOwned(ctx, owner, flockID)
	if err != nil {
		return ApprovalResult{}, err
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		slot, err := s.devices.AssignSlot(ctx, fl.ID, deviceID)
		switch {
		case err == nil:
			msg := fmt.Sprintf("%s approved, please supply it with %s/kek-data/kek-0x%02x",
				deviceID, fl.ID, slot)
			return ApprovalResult{Slot: slot, Message: msg}, nil
		case errors.Is(err, errs.ErrAlreadyExists):
			continue
		case errors.Is(err, errs.ErrNotFound):
			// soft failure, reported as a message rather than an error
			return ApprovalResult{
				Message: fmt.Sprintf("%s not found or already approved", deviceID),
			}, nil
		default:
			return ApprovalResult{}, err
		}
	}
	return ApprovalResult{}, errs.ErrAlreadyExists
}
