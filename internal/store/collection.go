// Package store implements the friendship and messaging stores on top of a
// repository.BlobStore. Every collection is one JSON array document; each
// mutation re-reads the whole collection, transforms it and writes it back
// guarded by the document version.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/goph-social/internal/errs"
	"github.com/and161185/goph-social/internal/model"
	"github.com/and161185/goph-social/internal/repository"
)

// Collection names under the key prefix.
const (
	UsersKey           = "users"
	FriendsKey         = "friends"
	PendingRequestsKey = "pending_requests"
	ConversationsKey   = "conversations"
	MessagesKey        = "messages"
)

// AllKeys lists every collection name.
var AllKeys = []string{UsersKey, FriendsKey, PendingRequestsKey, ConversationsKey, MessagesKey}

// Defaults.
const (
	DefaultPrefix      = "social/"
	DefaultLocalUserID = "current-user"
	DefaultAttempts    = 5
	DefaultPageLimit   = 20
)

// Options configures both stores. Zero values fall back to defaults.
type Options struct {
	Prefix      string
	LocalUserID string
	Attempts    int // bound on read-transform-write retries and id regeneration
	Logger      *zap.Logger
	Now         func() time.Time
	NewID       func() (string, error)
}

func (o Options) withDefaults() Options {
	if o.Prefix == "" {
		o.Prefix = DefaultPrefix
	}
	if o.LocalUserID == "" {
		o.LocalUserID = DefaultLocalUserID
	}
	if o.Attempts <= 0 {
		o.Attempts = DefaultAttempts
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	if o.NewID == nil {
		o.NewID = NewUUID
	}
	return o
}

// NewUUID returns a random v4 UUID string.
func NewUUID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// errNoWrite aborts an update without writing; the loaded collection is returned.
var errNoWrite = errors.New("no write")

type collection[T any] struct {
	blobs    repository.BlobStore
	key      string
	attempts int
}

func newCollection[T any](blobs repository.BlobStore, o Options, name string) collection[T] {
	return collection[T]{blobs: blobs, key: o.Prefix + name, attempts: o.Attempts}
}

// load returns the collection and its version; an absent document is empty at version 0.
func (c collection[T]) load(ctx context.Context) ([]T, int64, error) {
	b, err := c.blobs.Get(ctx, c.key)
	if errors.Is(err, errs.ErrNotFound) {
		return []T{}, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load %s: %w", c.key, err)
	}
	var items []T
	if err := json.Unmarshal(b.Value, &items); err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", c.key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, b.Ver, nil
}

func (c collection[T]) save(ctx context.Context, items []T, baseVer int64) error {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.key, err)
	}
	_, err = c.blobs.Put(ctx, c.key, b, baseVer)
	return err
}

// update runs load → fn → save and repeats the whole sequence on version
// conflicts. fn may run several times and must not keep state between calls.
func (c collection[T]) update(ctx context.Context, fn func([]T) ([]T, error)) ([]T, error) {
	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		items, ver, err := c.load(ctx)
		if err != nil {
			return nil, err
		}
		next, err := fn(items)
		if errors.Is(err, errNoWrite) {
			return items, nil
		}
		if err != nil {
			return nil, err
		}
		err = c.save(ctx, next, ver)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, errs.ErrVersionConflict) {
			return nil, fmt.Errorf("save %s: %w", c.key, err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("save %s: %w after %d attempts: %w", c.key, errs.ErrResourceExhausted, c.attempts, lastErr)
}

// ensure creates the document with seed() when it does not exist yet.
// Losing the create race to another initialiser is not an error.
func (c collection[T]) ensure(ctx context.Context, seed func() ([]T, error)) (bool, error) {
	_, ver, err := c.load(ctx)
	if err != nil {
		return false, err
	}
	if ver != 0 {
		return false, nil
	}
	items, err := seed()
	if err != nil {
		return false, err
	}
	err = c.save(ctx, items, 0)
	if errors.Is(err, errs.ErrVersionConflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("init %s: %w", c.key, err)
	}
	return true, nil
}

func (c collection[T]) drop(ctx context.Context) error {
	return c.blobs.Delete(ctx, c.key)
}

// normalizePage clamps page to >= 1 and limit to DefaultPageLimit when unset.
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	return page, limit
}

// pageSlice returns items[(page-1)*limit : page*limit] clamped to len(items).
// Pages past the end, however large, yield an empty slice.
func pageSlice[T any](items []T, page, limit int) []T {
	if page < 1 || limit <= 0 || page > model.PageCount(len(items), limit) {
		return []T{}
	}
	lo := (page - 1) * limit
	hi := len(items)
	if limit < hi-lo {
		hi = lo + limit
	}
	return items[lo:hi]
}

func invalid(field string) error {
	return fmt.Errorf("%w: %s required", errs.ErrInvalidArgument, field)
}
