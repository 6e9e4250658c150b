package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/flocknet/flockd/internal/errs"
)

func TestFlockRepo_Create_UniqueViolation(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewFlockRepo(db)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO flocks \(flock_id, flock_owner\) VALUES \(\$1, \$2\)`).
		WithArgs(testFlock, int64(1)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(ctx, testFlock, 1))

	mock.ExpectExec(`INSERT INTO flocks \(flock_id, flock_owner\) VALUES \(\$1, \$2\)`).
		WithArgs(testFlock, int64(1)).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, r.Create(ctx, testFlock, 1), errs.ErrAlreadyExists)
}

func TestFlockRepo_Delete_ScopedToOwner(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewFlockRepo(db)
	ctx := context.Background()

	mock.ExpectExec(`DELETE FROM flocks WHERE flock_id=\$1 AND flock_owner=\$2`).
		WithArgs(testFlock, int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	deleted, err := r.Delete(ctx, testFlock, 1)
	require.NoError(t, err)
	require.True(t, deleted)

	mock.ExpectExec(`DELETE FROM flocks WHERE flock_id=\$1 AND flock_owner=\$2`).
		WithArgs(testFlock, int64(2)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	deleted, err = r.Delete(ctx, testFlock, 2)
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestFlockRepo_GetOwned_Miss(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewFlockRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(`FROM flocks WHERE flock_id=\$1 AND flock_owner=\$2`).
		WithArgs(testFlock, int64(9)).
		WillReturnError(pgx.ErrNoRows)
	_, err := r.GetOwned(ctx, testFlock, 9)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestFlockRepo_CountForOwner(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewFlockRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM flocks WHERE flock_owner=\$1`).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	n, err := r.CountForOwner(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 3, n)
}
