// Package memory contains an in-process BlobStore used by tests and ephemeral sessions.
package memory

import (
	"context"
	"sync"

	"github.com/and161185/goph-social/internal/errs"
	"github.com/and161185/goph-social/internal/repository"
)

// Store keeps blobs in a map guarded by a mutex.
type Store struct {
	mu    sync.Mutex
	blobs map[string]repository.Blob
}

// New returns an empty store.
func New() *Store { return &Store{blobs: map[string]repository.Blob{}} }

// Get returns a copy of the stored blob.
func (s *Store) Get(ctx context.Context, key string) (repository.Blob, error) {
	if err := ctx.Err(); err != nil {
		return repository.Blob{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[key]
	if !ok {
		return repository.Blob{}, errs.ErrNotFound
	}
	return repository.Blob{Value: append([]byte(nil), b.Value...), Ver: b.Ver}, nil
}

// Put applies a compare-and-swap write.
func (s *Store) Put(ctx context.Context, key string, value []byte, baseVer int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.blobs[key]
	switch {
	case !ok && baseVer != 0:
		return 0, errs.ErrVersionConflict
	case ok && cur.Ver != baseVer:
		return 0, errs.ErrVersionConflict
	}
	newVer := baseVer + 1
	s.blobs[key] = repository.Blob{Value: append([]byte(nil), value...), Ver: newVer}
	return newVer, nil
}

// Delete removes key if present.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.blobs, key)
	s.mu.Unlock()
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
