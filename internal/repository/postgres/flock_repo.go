package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/flocknet/flockd/internal/errs"
	"github.com/flocknet/flockd/internal/model"
)

// FlockRepo implements FlockRepository using PostgreSQL.
type FlockRepo struct{ db *DB }

// NewFlockRepo constructs a flock repository.
func NewFlockRepo(db *DB) *FlockRepo { return &FlockRepo{db: db} }

// Create inserts a flock bound to its owner.
func (r *FlockRepo) Create(ctx context.Context, id string, owner int64) error {
	const q = `INSERT INTO flocks (flock_id, flock_owner) VALUES ($1, $2)`
	_, err := r.db.Pool.Exec(ctx, q, id, owner)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// List returns all flocks owned by the account.
func (r *FlockRepo) List(ctx context.Context, owner int64) ([]model.Flock, error) {
	const q = `
SELECT flock_id, flock_owner, flock_ambry_update, flock_created
FROM flocks WHERE flock_owner=$1`
	rows, err := r.db.Pool.Query(ctx, q, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Flock
	for rows.Next() {
		var f model.Flock
		if err = rows.Scan(&f.ID, &f.Owner, &f.AmbryUpdate, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// CountForOwner returns the number of flocks the account currently owns.
func (r *FlockRepo) CountForOwner(ctx context.Context, owner int64) (int, error) {
	const q = `SELECT COUNT(*) FROM flocks WHERE flock_owner=$1`
	var n int
	if err := r.db.Pool.QueryRow(ctx, q, owner).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Delete removes a flock scoped to (id, owner) and reports whether a row was
// removed.
func (r *FlockRepo) Delete(ctx context.Context, id string, owner int64) (bool, error) {
	const q = `DELETE FROM flocks WHERE flock_id=$1 AND flock_owner=$2`
	tag, err := r.db.Pool.Exec(ctx, q, id, owner)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// GetOwned loads a flock only if the account owns it.
func (r *FlockRepo) GetOwned(ctx context.Context, id string, owner int64) (*model.Flock, error) {
	const q = `
SELECT flock_id, flock_owner, flock_ambry_update, flock_created
FROM flocks WHERE flock_id=$1 AND flock_owner=$2`
	return r.scanOne(r.db.Pool.QueryRow(ctx, q, id, owner))
}

// Get loads a flock regardless of ownership.
func (r *FlockRepo) Get(ctx context.Context, id string) (*model.Flock, error) {
	const q = `
SELECT flock_id, flock_owner, flock_ambry_update, flock_created
FROM flocks WHERE flock_id=$1`
	return r.scanOne(r.db.Pool.QueryRow(ctx, q, id))
}

func (r *FlockRepo) scanOne(row pgx.Row) (*model.Flock, error) {
	var f model.Flock
	if err := row.Scan(&f.ID, &f.Owner, &f.AmbryUpdate, &f.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// StampAmbryUpdate records an ambry publication time against the flock.
func (r *FlockRepo) StampAmbryUpdate(ctx context.Context, id string, owner int64, now int64) error {
	const q = `
UPDATE flocks SET flock_ambry_update=$3 WHERE flock_id=$1 AND flock_owner=$2`
	_, err := r.db.Pool.Exec(ctx, q, id, owner, now)
	return err
}
