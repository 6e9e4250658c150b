package service

import (
	"context"
	"errors"

	"github.com/flocknet/flockd/internal/errs"
	"github.com/flocknet/flockd/internal/ident"
	"github.com/flocknet/flockd/internal/model"
	"github.com/flocknet/flockd/internal/repository"
)

// FlockService manages flock lifecycle and is the ownership gate every other
// component resolves through before touching flock-scoped state.
type FlockService interface {
	// Create makes a new flock for the account, enforcing its quota.
	Create(ctx context.Context, owner int64, flocksMax int) (string, error)
	// List returns the account's flocks.
	List(ctx context.Context, owner int64) ([]model.Flock, error)
	// Delete removes an owned flock; errs.ErrNotFoundOrForbidden otherwise.
	Delete(ctx context.Context, owner int64, flockID string) error
	// ResolveOwned loads a flock the account owns; absent and not-owned are
	// indistinguishable (errs.ErrNotFoundOrForbidden).
	ResolveOwned(ctx context.Context, owner int64, flockID string) (*model.Flock, error)
	// ResolveAny loads a flock regardless of ownership.
	ResolveAny(ctx context.Context, flockID string) (*model.Flock, error)
	// StampAmbryUpdate records an ambry publication time against an owned flock.
	StampAmbryUpdate(ctx context.Context, owner int64, flockID string, now int64) error
}

type FlockServiceImpl struct {
	flocks repository.FlockRepository
}

// NewFlockService constructs FlockService.
func NewFlockService(flocks repository.FlockRepository) *FlockServiceImpl {
	return &FlockServiceImpl{flocks: flocks}
}

// Create enforces the per-account quota, then inserts a flock under a fresh
// id (8 random bytes, low byte zero).
func (s *FlockServiceImpl) Create(ctx context.Context, owner int64, flocksMax int) (string, error) {
	n, err := s.flocks.CountForOwner(ctx, owner)
	if err != nil {
		return "", err
	}
	if n >= flocksMax {
		return "", errs.ErrQuotaExceeded
	}
	id, err := ident.FlockID()
	if err != nil {
		return "", err
	}
	if err := s.flocks.Create(ctx, id, owner); err != nil {
		return "", err
	}
	return id, nil
}

// List returns the account's flocks; order is insignificant.
func (s *FlockServiceImpl) List(ctx context.Context, owner int64) ([]model.Flock, error) {
	return s.flocks.List(ctx, owner)
}

// Delete removes an owned flock; devices and trust links cascade.
func (s *FlockServiceImpl) Delete(ctx context.Context, owner int64, flockID string) error {
	deleted, err := s.flocks.Delete(ctx, flockID, owner)
	if err != nil {
		return err
	}
	if !deleted {
		return errs.ErrNotFoundOrForbidden
	}
	return nil
}

// ResolveOwned is the ownership gate used before any flock-scoped mutation.
func (s *FlockServiceImpl) ResolveOwned(ctx context.Context, owner int64, flockID string) (*model.Flock, error) {
	f, err := s.flocks.GetOwned(ctx, flockID, owner)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrNotFoundOrForbidden
		}
		return nil, err
	}
	return f, nil
}

// ResolveAny loads a flock for unauthenticated enrollment or counterpart
// lookup.
func (s *FlockServiceImpl) ResolveAny(ctx context.Context, flockID string) (*model.Flock, error) {
	return s.flocks.Get(ctx, flockID)
}

// StampAmbryUpdate records an ambry publication time.
func (s *FlockServiceImpl) StampAmbryUpdate(ctx context.Context, owner int64, flockID string, now int64) error {
	return s.flocks.StampAmbryUpdate(ctx, flockID, owner, now)
}
