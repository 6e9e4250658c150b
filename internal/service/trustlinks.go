package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/flocknet/flockd/internal/errs"
	"github.com/flocknet/flockd/internal/model"
	"github.com/flocknet/flockd/internal/repository"
)

// LinkResult reports a trust-link creation: the resulting state and a client
// message. For a pending link the message names the exact reciprocal action
// the counterpart must perform.
type LinkResult struct {
	State   model.LinkState
	Message string
}

// TrustLinkService manages the bilateral xflock handshake. Either direction
// may exist on its own; the link is established only while both exist.
type TrustLinkService interface {
	// Create inserts the caller's src→dst direction (idempotently) and
	// reports whether the counterpart has already reciprocated.
	Create(ctx context.Context, owner int64, src, dst string) (LinkResult, error)
	// ExistsBidirectional reports whether both directions exist. This is the
	// access gate for bilateral ambry publication.
	ExistsBidirectional(ctx context.Context, a, b string) (bool, error)
	// Delete removes only the caller's direction; the counterpart's row is
	// untouched (unilateral revocation).
	Delete(ctx context.Context, owner int64, src, dst string) error
	// ListForOwner returns every link the account created.
	ListForOwner(ctx context.Context, owner int64) ([]model.TrustLink, error)
	// ListForFlock returns links out of one owned flock.
	ListForFlock(ctx context.Context, owner int64, flockID string) ([]model.TrustLink, error)
}

type TrustLinkServiceImpl struct {
	links  repository.TrustLinkRepository
	flocks FlockService
}

// NewTrustLinkService constructs TrustLinkService.
func NewTrustLinkService(links repository.TrustLinkRepository, flocks FlockService) *TrustLinkServiceImpl {
	return &TrustLinkServiceImpl{links: links, flocks: flocks}
}

// Create requires ownership of src only; dst merely has to exist. An unknown
// dst is reported the same way as a foreign src so probing for flock ids
// learns nothing.
func (s *TrustLinkServiceImpl) Create(ctx context.Context, owner int64, src, dst string) (LinkResult, error) {
	if _, err := s.flocks.ResolveOwned(ctx, owner, src); err != nil {
		return LinkResult{}, err
	}
	if _, err := s.flocks.ResolveAny(ctx, dst); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return LinkResult{}, errs.ErrNotFoundOrForbidden
		}
		return LinkResult{}, err
	}

	// Idempotent: a duplicate create collapses into the existing row.
	if _, err := s.links.Create(ctx, &model.TrustLink{Src: src, Dst: dst, Owner: owner}); err != nil {
		return LinkResult{}, err
	}

	reciprocated, err := s.links.Exists(ctx, dst, src)
	if err != nil {
		return LinkResult{}, err
	}
	if reciprocated {
		return LinkResult{
			State:   model.LinkEstablished,
			Message: fmt.Sprintf("trust link between %s and %s established", src, dst),
		}, nil
	}
	return LinkResult{
		State: model.LinkPending,
		Message: fmt.Sprintf("trust link pending, the owner of %s must create the link %s -> %s",
			dst, dst, src),
	}, nil
}

// ExistsBidirectional is true only while both directional rows exist.
func (s *TrustLinkServiceImpl) ExistsBidirectional(ctx context.Context, a, b string) (bool, error) {
	fwd, err := s.links.Exists(ctx, a, b)
	if err != nil || !fwd {
		return false, err
	}
	return s.links.Exists(ctx, b, a)
}

// Delete removes the caller's direction only.
func (s *TrustLinkServiceImpl) Delete(ctx context.Context, owner int64, src, dst string) error {
	deleted, err := s.links.Delete(ctx, src, dst, owner)
	if err != nil {
		return err
	}
	if !deleted {
		return errs.ErrNotFoundOrForbidden
	}
	return nil
}

// ListForOwner returns the account's links for display.
func (s *TrustLinkServiceImpl) ListForOwner(ctx context.Context, owner int64) ([]model.TrustLink, error) {
	return s.links.ListForOwner(ctx, owner)
}

// ListForFlock returns links out of one owned flock for display.
func (s *TrustLinkServiceImpl) ListForFlock(ctx context.Context, owner int64, flockID string) ([]model.TrustLink, error) {
	fl, err := s.flocks.ResolveOwned(ctx, owner, flockID)
	if err != nil {
		return nil, err
	}
	return s.links.ListForFlock(ctx, fl.ID, owner)
}
