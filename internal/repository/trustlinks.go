package repository

import (
	"context"

	"github.com/flocknet/flockd/internal/model"
)

// TrustLinkRepository provides access to directional trust links (xflocks).
type TrustLinkRepository interface {
	// Create inserts a directional link if absent and reports whether a new
	// row appeared. Duplicate creation is a safe no-op.
	Create(ctx context.Context, l *model.TrustLink) (bool, error)
	// Exists reports whether the src→dst direction exists.
	Exists(ctx context.Context, src, dst string) (bool, error)
	// Delete removes only the src→dst direction owned by the caller and
	// reports whether a row was removed. The reverse direction is untouched.
	Delete(ctx context.Context, src, dst string, owner int64) (bool, error)
	// ListForOwner returns every link the account created.
	ListForOwner(ctx context.Context, owner int64) ([]model.TrustLink, error)
	// ListForFlock returns links out of one flock owned by the account.
	ListForFlock(ctx context.Context, flock string, owner int64) ([]model.TrustLink, error)
}
