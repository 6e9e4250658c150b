// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/flocknet/flockd/internal/model"
)

// AccountRepository provides access to accounts and their session tokens.
type AccountRepository interface {
	// Create inserts a new account with the given capability key and returns
	// its id. Time balance and flock quota come from schema defaults.
	Create(ctx context.Context, key string) (int64, error)
	// GetByKey loads an account by its capability key.
	GetByKey(ctx context.Context, key string) (*model.Account, error)
	// Delete removes an account; flocks, devices, tokens and trust links
	// owned by it cascade away.
	Delete(ctx context.Context, id int64) error
	// SetTimeLeft sets the account's subscription balance to an absolute epoch.
	SetTimeLeft(ctx context.Context, id int64, until int64) error

	// CreateToken inserts a session token row. Existing tokens for the same
	// account/channel are superseded, not revoked.
	CreateToken(ctx context.Context, t *model.Token) error
	// TouchToken atomically extends a matching non-expired token's expiry and
	// returns the joined account snapshot. Returns errs.ErrNotFound when no
	// token matches value+channel or the match has expired.
	TouchToken(ctx context.Context, value string, web bool, expires int64) (*model.Account, error)
	// DeleteExpiredTokens removes all tokens past their expiry and reports
	// how many went away.
	DeleteExpiredTokens(ctx context.Context) (int64, error)
}
