// Package sealed wraps a BlobStore so that stored values are encrypted at rest.
package sealed

import (
	"context"
	"errors"
	"fmt"

	"github.com/and161185/goph-social/internal/crypto"
	"github.com/and161185/goph-social/internal/errs"
	"github.com/and161185/goph-social/internal/repository"
)

// Reserved keys in the inner store.
const (
	SaltKey  = "sealed/salt"
	CheckKey = "sealed/check"
)

var checkPlain = []byte("goph-social")

// ErrWrongPassphrase is returned by Open when the passphrase does not match the store.
var ErrWrongPassphrase = errors.New("sealed: wrong passphrase")

// Store seals values with a key derived from a passphrase; the blob key is the AAD.
type Store struct {
	inner repository.BlobStore
	key   []byte
}

var _ repository.BlobStore = (*Store)(nil)

// Open loads (or creates) the salt and check value in inner and derives the key.
func Open(ctx context.Context, inner repository.BlobStore, passphrase string) (*Store, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("sealed: %w: empty passphrase", errs.ErrInvalidArgument)
	}
	salt, err := ensure(ctx, inner, SaltKey, func() ([]byte, error) { return crypto.Rand(crypto.SaltLen) })
	if err != nil {
		return nil, fmt.Errorf("sealed salt: %w", err)
	}
	key := crypto.DeriveKey([]byte(passphrase), salt)

	check, err := ensure(ctx, inner, CheckKey, func() ([]byte, error) {
		return crypto.Seal(key, []byte(CheckKey), checkPlain)
	})
	if err != nil {
		return nil, fmt.Errorf("sealed check: %w", err)
	}
	if _, err := crypto.Open(key, []byte(CheckKey), check); err != nil {
		return nil, ErrWrongPassphrase
	}
	return &Store{inner: inner, key: key}, nil
}

// ensure returns the value under key, creating it with gen if absent.
func ensure(ctx context.Context, inner repository.BlobStore, key string, gen func() ([]byte, error)) ([]byte, error) {
	b, err := inner.Get(ctx, key)
	if err == nil {
		return b.Value, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}
	v, err := gen()
	if err != nil {
		return nil, err
	}
	if _, err := inner.Put(ctx, key, v, 0); err != nil {
		if !errors.Is(err, errs.ErrVersionConflict) {
			return nil, err
		}
		// lost the race: use the winner's value
		b, err = inner.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		return b.Value, nil
	}
	return v, nil
}

// Get reads and decrypts the blob.
func (s *Store) Get(ctx context.Context, key string) (repository.Blob, error) {
	b, err := s.inner.Get(ctx, key)
	if err != nil {
		return repository.Blob{}, err
	}
	pt, err := crypto.Open(s.key, []byte(key), b.Value)
	if err != nil {
		return repository.Blob{}, fmt.Errorf("sealed open %s: %w", key, err)
	}
	return repository.Blob{Value: pt, Ver: b.Ver}, nil
}

// Put encrypts value and delegates the versioned write.
func (s *Store) Put(ctx context.Context, key string, value []byte, baseVer int64) (int64, error) {
	ct, err := crypto.Seal(s.key, []byte(key), value)
	if err != nil {
		return 0, err
	}
	return s.inner.Put(ctx, key, ct, baseVer)
}

// Delete delegates to the inner store.
func (s *Store) Delete(ctx context.Context, key string) error { return s.inner.Delete(ctx, key) }

// Close closes the inner store.
func (s *Store) Close() error { return s.inner.Close() }
