package postgres

import (
	"context"

	"github.com/flocknet/flockd/internal/model"
)

// CathedralRepo implements CathedralRepository using PostgreSQL.
type CathedralRepo struct{ db *DB }

// NewCathedralRepo constructs a cathedral repository.
func NewCathedralRepo(db *DB) *CathedralRepo { return &CathedralRepo{db: db} }

// List returns all known cathedrals ordered by address.
func (r *CathedralRepo) List(ctx context.Context) ([]model.Cathedral, error) {
	const q = `
SELECT cathedral_ip, cathedral_port, cathedral_descr
FROM cathedrals ORDER BY cathedral_ip`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Cathedral
	for rows.Next() {
		var c model.Cathedral
		if err = rows.Scan(&c.IP, &c.Port, &c.Descr); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
