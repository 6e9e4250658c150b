package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/flocknet/flockd/internal/errs"
	"github.com/flocknet/flockd/internal/model"
)

// slotMax is the highest assignable key slot; slot 0 stays reserved.
const slotMax = 255

// DeviceRepo implements DeviceRepository using PostgreSQL.
type DeviceRepo struct{ db *DB }

// NewDeviceRepo constructs a device repository.
func NewDeviceRepo(db *DB) *DeviceRepo { return &DeviceRepo{db: db} }

// Create inserts an unapproved device row (slot 0).
func (r *DeviceRepo) Create(ctx context.Context, d *model.Device) error {
	const q = `
INSERT INTO devices
    (device_id, device_flock, device_account, device_pubkey, device_key, device_kek)
VALUES
    ($1, $2, $3, $4, $5, 0)`
	_, err := r.db.Pool.Exec(ctx, q, d.ID, d.Flock, d.Account, d.PubKey, d.Key)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// List returns devices for a flock scoped to the owning account, unapproved
// first, then by slot.
func (r *DeviceRepo) List(ctx context.Context, flock string, account int64) ([]model.Device, error) {
	const q = `
SELECT device_id, device_flock, device_account, device_pubkey, device_key,
    device_kek, device_approved, device_created
FROM devices
WHERE device_flock=$1 AND device_account=$2
ORDER BY device_approved ASC, device_kek ASC`
	rows, err := r.db.Pool.Query(ctx, q, flock, account)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Device
	for rows.Next() {
		var d model.Device
		if err = rows.Scan(&d.ID, &d.Flock, &d.Account, &d.PubKey, &d.Key,
			&d.Slot, &d.Approved, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Delete removes a device scoped to (flock, device, account) and reports
// whether a row was removed.
func (r *DeviceRepo) Delete(ctx context.Context, flock, device string, account int64) (bool, error) {
	const q = `
DELETE FROM devices
WHERE device_flock=$1 AND device_id=$2 AND device_account=$3`
	tag, err := r.db.Pool.Exec(ctx, q, flock, device, account)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// AssignSlot approves the device and assigns the smallest free key slot.
// The flock's device rows are locked for the duration of the scan so
// concurrent approvals on the same flock serialize; the partial unique index
// on (device_flock, device_kek) backs the transaction, surfacing a lost race
// as errs.ErrAlreadyExists for the caller to retry.
func (r *DeviceRepo) AssignSlot(ctx context.Context, flock, device string) (slot int, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			if isUniqueViolation(e) {
				e = errs.ErrAlreadyExists
			}
			err = e
			slot = 0
		}
	}()

	const lock = `SELECT device_kek FROM devices WHERE device_flock=$1 FOR UPDATE`
	rows, err := tx.Query(ctx, lock, flock)
	if err != nil {
		return 0, err
	}

	var used [slotMax + 1]bool
	used[0] = true // reserved
	for rows.Next() {
		var k int
		if err = rows.Scan(&k); err != nil {
			rows.Close()
			return 0, err
		}
		if k >= 0 && k <= slotMax {
			used[k] = true
		}
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return 0, err
	}

	for s := 1; s <= slotMax; s++ {
		if !used[s] {
			slot = s
			break
		}
	}
	if slot == 0 {
		err = errs.ErrResourceExhausted
		return 0, err
	}

	const upd = `
UPDATE devices SET device_approved=TRUE, device_kek=$3
WHERE device_flock=$1 AND device_id=$2 AND NOT device_approved`
	tag, err := tx.Exec(ctx, upd, flock, device, slot)
	if err != nil {
		if isUniqueViolation(err) {
			err = errs.ErrAlreadyExists
		}
		return 0, err
	}
	if tag.RowsAffected() == 0 {
		err = errs.ErrNotFound
		return 0, err
	}
	return slot, nil
}
