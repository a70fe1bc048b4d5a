package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/goph-social/internal/errs"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

const (
	selRe = `SELECT value, ver FROM blobs WHERE key=\$1`
	insRe = `INSERT INTO blobs \(key, value, ver\) VALUES \(\$1,\$2,1\) ON CONFLICT \(key\) DO NOTHING`
	updRe = `UPDATE blobs SET value=\$2, ver=\$4, updated_at=now\(\) WHERE key=\$1 AND ver=\$3`
)

func TestBlobRepo_Get_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBlobRepo(db)

	mock.ExpectQuery(selRe).
		WithArgs("social/users").
		WillReturnRows(pgxmock.NewRows([]string{"value", "ver"}).AddRow([]byte(`[]`), int64(3)))

	b, err := r.Get(context.Background(), "social/users")
	require.NoError(t, err)
	require.Equal(t, `[]`, string(b.Value))
	require.Equal(t, int64(3), b.Ver)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBlobRepo_Get_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBlobRepo(db)

	mock.ExpectQuery(selRe).WithArgs("k").WillReturnError(pgx.ErrNoRows)

	_, err := r.Get(context.Background(), "k")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestBlobRepo_Get_DBError(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBlobRepo(db)

	boom := errors.New("boom")
	mock.ExpectQuery(selRe).WithArgs("k").WillReturnError(boom)

	_, err := r.Get(context.Background(), "k")
	require.ErrorIs(t, err, boom)
}

func TestBlobRepo_Put_Create(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBlobRepo(db)

	mock.ExpectExec(insRe).
		WithArgs("k", []byte("v")).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	v, err := r.Put(context.Background(), "k", []byte("v"), 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), v)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBlobRepo_Put_CreateConflict(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBlobRepo(db)

	mock.ExpectExec(insRe).
		WithArgs("k", []byte("v")).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	_, err := r.Put(context.Background(), "k", []byte("v"), 0)
	require.ErrorIs(t, err, errs.ErrVersionConflict)

	mock.ExpectExec(insRe).
		WithArgs("k", []byte("v")).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	_, err = r.Put(context.Background(), "k", []byte("v"), 0)
	require.ErrorIs(t, err, errs.ErrVersionConflict)
}

func TestBlobRepo_Put_Update(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBlobRepo(db)

	mock.ExpectExec(updRe).
		WithArgs("k", []byte("v2"), int64(4), int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	v, err := r.Put(context.Background(), "k", []byte("v2"), 4)
	require.NoError(t, err)
	require.Equal(t, int64(5), v)
}

func TestBlobRepo_Put_UpdateConflict(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBlobRepo(db)

	mock.ExpectExec(updRe).
		WithArgs("k", []byte("v2"), int64(4), int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	_, err := r.Put(context.Background(), "k", []byte("v2"), 4)
	require.ErrorIs(t, err, errs.ErrVersionConflict)
}

func TestBlobRepo_Delete(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewBlobRepo(db)

	mock.ExpectExec(`DELETE FROM blobs WHERE key=\$1`).
		WithArgs("k").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, r.Delete(context.Background(), "k"))
	require.NoError(t, mock.ExpectationsWereMet())
}
