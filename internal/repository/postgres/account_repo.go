package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/flocknet/flockd/internal/errs"
	"github.com/flocknet/flockd/internal/model"
)

// AccountRepo implements AccountRepository using PostgreSQL.
type AccountRepo struct{ db *DB }

// NewAccountRepo constructs an account repository.
func NewAccountRepo(db *DB) *AccountRepo { return &AccountRepo{db: db} }

// Create inserts a new account row; time balance and quota come from schema
// defaults.
func (r *AccountRepo) Create(ctx context.Context, key string) (int64, error) {
	const q = `
INSERT INTO accounts (account_key) VALUES ($1) RETURNING account_id`
	var id int64
	if err := r.db.Pool.QueryRow(ctx, q, key).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// GetByKey selects an account by its capability key.
func (r *AccountRepo) GetByKey(ctx context.Context, key string) (*model.Account, error) {
	const q = `
SELECT account_id, account_key, account_time_left, account_flocks_max, account_created
FROM accounts WHERE account_key=$1`
	row := r.db.Pool.QueryRow(ctx, q, key)
	var a model.Account
	if err := row.Scan(&a.ID, &a.Key, &a.TimeLeft, &a.FlocksMax, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Delete removes the account; owned flocks, devices, tokens and trust links
// cascade at the schema level.
func (r *AccountRepo) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM accounts WHERE account_id=$1`
	_, err := r.db.Pool.Exec(ctx, q, id)
	return err
}

// SetTimeLeft sets the subscription balance to an absolute epoch.
func (r *AccountRepo) SetTimeLeft(ctx context.Context, id int64, until int64) error {
	const q = `UPDATE accounts SET account_time_left=$2 WHERE account_id=$1`
	_, err := r.db.Pool.Exec(ctx, q, id, until)
	return err
}

// CreateToken inserts a session token row.
func (r *AccountRepo) CreateToken(ctx context.Context, t *model.Token) error {
	const q = `
INSERT INTO tokens (token_value, token_account, token_web, token_expires)
VALUES ($1, $2, $3, $4)`
	_, err := r.db.Pool.Exec(ctx, q, t.Value, t.Account, t.Channel.IsWeb(), t.Expires)
	return err
}

// TouchToken extends a matching non-expired token's expiry and returns the
// joined account snapshot in one round trip.
func (r *AccountRepo) TouchToken(ctx context.Context, value string, web bool, expires int64) (*model.Account, error) {
	const q = `
WITH account_info AS (
    SELECT account_id, account_key, account_time_left, account_flocks_max
    FROM tokens
    JOIN accounts ON accounts.account_id = tokens.token_account
    WHERE token_value = $1 AND token_web = $2 AND token_expires > $3
)
UPDATE tokens SET token_expires = $4
FROM account_info
WHERE token_value = $1
RETURNING account_info.account_id, account_info.account_key,
    account_info.account_time_left, account_info.account_flocks_max`
	row := r.db.Pool.QueryRow(ctx, q, value, web, time.Now().Unix(), expires)
	var a model.Account
	if err := row.Scan(&a.ID, &a.Key, &a.TimeLeft, &a.FlocksMax); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// DeleteExpiredTokens removes every token past its expiry.
func (r *AccountRepo) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	const q = `DELETE FROM tokens WHERE token_expires < $1`
	tag, err := r.db.Pool.Exec(ctx, q, time.Now().Unix())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
