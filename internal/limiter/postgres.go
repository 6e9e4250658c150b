package limiter

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PG is a PostgreSQL-backed limiter with a fixed window per (addr, path).
type PG struct {
	pool    pgxQuerier
	window  time.Duration
	maxHits int
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed limiter over any querier satisfying the
// pool's query surface (pgxpool.Pool or a mock).
func NewPG(q pgxQuerier, window time.Duration, maxHits int) *PG {
	return &PG{pool: q, window: window, maxHits: maxHits}
}

// Check records the hit and reports whether the caller is still within the
// window budget.
func (l *PG) Check(ctx context.Context, addr, path string) (bool, error) {
	const q = `
INSERT INTO rate_limiter (rl_addr, rl_path, rl_hits, rl_window_start)
VALUES ($1, $2, 1, now())
ON CONFLICT (rl_addr, rl_path) DO UPDATE
SET
  rl_hits = CASE WHEN now() - rate_limiter.rl_window_start > $3::interval THEN 1 ELSE rate_limiter.rl_hits + 1 END,
  rl_window_start = CASE WHEN now() - rate_limiter.rl_window_start > $3::interval THEN now() ELSE rate_limiter.rl_window_start END
RETURNING rl_hits`
	var hits int
	if err := l.pool.QueryRow(ctx, q, addr, path, l.window).Scan(&hits); err != nil {
		return false, err
	}
	return hits <= l.maxHits, nil
}
