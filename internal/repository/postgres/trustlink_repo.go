package postgres

import (
	"context"

	"github.com/flocknet/flockd/internal/model"
)

// TrustLinkRepo implements TrustLinkRepository using PostgreSQL.
type TrustLinkRepo struct{ db *DB }

// NewTrustLinkRepo constructs a trust-link repository.
func NewTrustLinkRepo(db *DB) *TrustLinkRepo { return &TrustLinkRepo{db: db} }

// Create inserts a directional link if absent. The unique constraint on
// (xflock_src, xflock_dst) makes concurrent identical creates collapse into
// one row.
func (r *TrustLinkRepo) Create(ctx context.Context, l *model.TrustLink) (bool, error) {
	const q = `
INSERT INTO xflocks (xflock_src, xflock_dst, xflock_owner)
VALUES ($1, $2, $3)
ON CONFLICT (xflock_src, xflock_dst) DO NOTHING`
	tag, err := r.db.Pool.Exec(ctx, q, l.Src, l.Dst, l.Owner)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Exists reports whether the src→dst direction exists.
func (r *TrustLinkRepo) Exists(ctx context.Context, src, dst string) (bool, error) {
	const q = `
SELECT EXISTS (SELECT 1 FROM xflocks WHERE xflock_src=$1 AND xflock_dst=$2)`
	var ok bool
	if err := r.db.Pool.QueryRow(ctx, q, src, dst).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// Delete removes only the caller's direction.
func (r *TrustLinkRepo) Delete(ctx context.Context, src, dst string, owner int64) (bool, error) {
	const q = `
DELETE FROM xflocks WHERE xflock_src=$1 AND xflock_dst=$2 AND xflock_owner=$3`
	tag, err := r.db.Pool.Exec(ctx, q, src, dst, owner)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListForOwner returns every link the account created.
func (r *TrustLinkRepo) ListForOwner(ctx context.Context, owner int64) ([]model.TrustLink, error) {
	const q = `
SELECT xflock_src, xflock_dst, xflock_owner FROM xflocks WHERE xflock_owner=$1`
	return r.list(ctx, q, owner)
}

// ListForFlock returns links out of one flock owned by the account.
func (r *TrustLinkRepo) ListForFlock(ctx context.Context, flock string, owner int64) ([]model.TrustLink, error) {
	const q = `
SELECT xflock_src, xflock_dst, xflock_owner
FROM xflocks WHERE xflock_src=$1 AND xflock_owner=$2`
	return r.list(ctx, q, flock, owner)
}

func (r *TrustLinkRepo) list(ctx context.Context, q string, args ...any) ([]model.TrustLink, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TrustLink
	for rows.Next() {
		var l model.TrustLink
		if err = rows.Scan(&l.Src, &l.Dst, &l.Owner); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
