package service

import (
	"context"
	"time"

	"github.com/flocknet/flockd/internal/ambry"
	"github.com/flocknet/flockd/internal/errs"
)

// AmbryService gates ambry publication on ownership and trust, then hands the
// blob to the atomic on-disk store. Size checks run before any file I/O, so a
// rejected upload never disturbs the previously published blob.
type AmbryService interface {
	// PublishSingle publishes a flock's own ambry. The blob must be exactly
	// the full or the share size.
	PublishSingle(ctx context.Context, owner int64, flockID string, blob []byte) error
	// PublishBilateral publishes the shared ambry of an established pair.
	// Only the full size is permitted. The artifact name is keyed by the
	// numerically sorted pair, so either side's upload lands in one place.
	PublishBilateral(ctx context.Context, owner int64, flockA, flockB string, blob []byte) error
}

type AmbryServiceImpl struct {
	store  *ambry.Store
	flocks FlockService
	links  TrustLinkService
}

// NewAmbryService constructs AmbryService.
func NewAmbryService(store *ambry.Store, flocks FlockService, links TrustLinkService) *AmbryServiceImpl {
	return &AmbryServiceImpl{store: store, flocks: flocks, links: links}
}

// PublishSingle requires ownership of the flock.
func (s *AmbryServiceImpl) PublishSingle(ctx context.Context, owner int64, flockID string, blob []byte) error {
	if len(blob) != ambry.FullSize && len(blob) != ambry.ShareSize {
		return errs.ErrSizeInvalid
	}
	fl, err := s.flocks.ResolveOwned(ctx, owner, flockID)
	if err != nil {
		return err
	}
	if err := s.store.Publish(ambry.SingleName(fl.ID), blob); err != nil {
		return err
	}
	return s.flocks.StampAmbryUpdate(ctx, owner, fl.ID, time.Now().Unix())
}

// PublishBilateral requires ownership of flockA and an established link with
// flockB.
func (s *AmbryServiceImpl) PublishBilateral(ctx context.Context, owner int64, flockA, flockB string, blob []byte) error {
	if len(blob) != ambry.FullSize {
		return errs.ErrSizeInvalid
	}
	fl, err := s.flocks.ResolveOwned(ctx, owner, flockA)
	if err != nil {
		return err
	}
	established, err := s.links.ExistsBidirectional(ctx, flockA, flockB)
	if err != nil {
		return err
	}
	if !established {
		return errs.ErrNotEstablished
	}
	if err := s.store.Publish(ambry.PairName(flockA, flockB), blob); err != nil {
		return err
	}
	return s.flocks.StampAmbryUpdate(ctx, owner, fl.ID, time.Now().Unix())
}
