package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/goph-social/internal/errs"
	"github.com/and161185/goph-social/internal/repository"
)

// BlobRepo implements repository.BlobStore on the blobs table.
type BlobRepo struct{ db *DB }

var _ repository.BlobStore = (*BlobRepo)(nil)

// NewBlobRepo constructs a blob repository.
func NewBlobRepo(db *DB) *BlobRepo { return &BlobRepo{db: db} }

// Get selects a blob by key.
func (r *BlobRepo) Get(ctx context.Context, key string) (repository.Blob, error) {
	const q = `SELECT value, ver FROM blobs WHERE key=$1`
	var b repository.Blob
	if err := r.db.Pool.QueryRow(ctx, q, key).Scan(&b.Value, &b.Ver); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.Blob{}, errs.ErrNotFound
		}
		return repository.Blob{}, err
	}
	return b, nil
}

// Put inserts (baseVer=0) or updates the row guarded by its current version.
func (r *BlobRepo) Put(ctx context.Context, key string, value []byte, baseVer int64) (int64, error) {
	const ins = `INSERT INTO blobs (key, value, ver) VALUES ($1,$2,1) ON CONFLICT (key) DO NOTHING`
	const upd = `UPDATE blobs SET value=$2, ver=$4, updated_at=now() WHERE key=$1 AND ver=$3`

	if baseVer == 0 {
		tag, err := r.db.Pool.Exec(ctx, ins, key, value)
		if isUniqueViolation(err) {
			return 0, errs.ErrVersionConflict
		}
		if err != nil {
			return 0, err
		}
		if tag.RowsAffected() == 0 {
			return 0, errs.ErrVersionConflict
		}
		return 1, nil
	}

	newVer := baseVer + 1
	tag, err := r.db.Pool.Exec(ctx, upd, key, value, baseVer, newVer)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 0 {
		return 0, errs.ErrVersionConflict
	}
	return newVer, nil
}

// Delete removes the row for key.
func (r *BlobRepo) Delete(ctx context.Context, key string) error {
	const q = `DELETE FROM blobs WHERE key=$1`
	_, err := r.db.Pool.Exec(ctx, q, key)
	return err
}

// Close closes the pool.
func (r *BlobRepo) Close() error {
	r.db.Close()
	return nil
}
