// Package file implements an on-device BlobStore keeping one JSON file per key.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/and161185/goph-social/internal/errs"
	"github.com/and161185/goph-social/internal/repository"
)

// envelope is the on-disk representation of a blob.
type envelope struct {
	Ver   int64  `json:"ver"`
	Value []byte `json:"value"`
}

// Store writes blobs below dir. CAS is serialised by an in-process mutex;
// a data directory must not be shared between processes.
type Store struct {
	mu  sync.Mutex
	dir string
}

// Open creates dir if needed and returns a store rooted there.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("file store: %w: empty dir", errs.ErrInvalidArgument)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("file store: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+".json")
}

func (s *Store) read(key string) (envelope, error) {
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return envelope{}, errs.ErrNotFound
	}
	if err != nil {
		return envelope{}, err
	}
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return envelope{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return env, nil
}

// Get reads the blob file for key.
func (s *Store) Get(ctx context.Context, key string) (repository.Blob, error) {
	if err := ctx.Err(); err != nil {
		return repository.Blob{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	env, err := s.read(key)
	if err != nil {
		return repository.Blob{}, err
	}
	return repository.Blob{Value: env.Value, Ver: env.Ver}, nil
}

// Put checks the stored version and atomically replaces the file.
func (s *Store) Put(ctx context.Context, key string, value []byte, baseVer int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.read(key)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		if baseVer != 0 {
			return 0, errs.ErrVersionConflict
		}
	case err != nil:
		return 0, err
	case cur.Ver != baseVer:
		return 0, errs.ErrVersionConflict
	}

	newVer := baseVer + 1
	b, err := json.Marshal(envelope{Ver: newVer, Value: value})
	if err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(s.dir, ".blob-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return 0, err
	}
	return newVer, nil
}

// Delete removes the blob file; a missing file is ignored.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
