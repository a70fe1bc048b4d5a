package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/goph-social/internal/errs"
	"github.com/and161185/goph-social/internal/repository"
	"github.com/and161185/goph-social/internal/repository/memory"
)

/************ blob store fakes ************/

// failingBlobs fails every call.
type failingBlobs struct{ err error }

func (f failingBlobs) Get(context.Context, string) (repository.Blob, error) {
	return repository.Blob{}, f.err
}
func (f failingBlobs) Put(context.Context, string, []byte, int64) (int64, error) { return 0, f.err }
func (f failingBlobs) Delete(context.Context, string) error                      { return f.err }
func (f failingBlobs) Close() error                                              { return nil }

// racingBlobs runs beforePut once, right before the first Put to key, to
// simulate another writer sneaking in between read and write.
type racingBlobs struct {
	*memory.Store
	key       string
	once      sync.Once
	beforePut func(ctx context.Context, inner *memory.Store)
}

func (r *racingBlobs) Put(ctx context.Context, key string, value []byte, baseVer int64) (int64, error) {
	if key == r.key {
		r.once.Do(func() { r.beforePut(ctx, r.Store) })
	}
	return r.Store.Put(ctx, key, value, baseVer)
}

// keyFailingBlobs fails every Put to key and passes everything else through.
type keyFailingBlobs struct {
	*memory.Store
	key string
	err error
}

func (k keyFailingBlobs) Put(ctx context.Context, key string, value []byte, baseVer int64) (int64, error) {
	if key == k.key {
		return 0, k.err
	}
	return k.Store.Put(ctx, key, value, baseVer)
}

// conflictBlobs always reports a version conflict on Put.
type conflictBlobs struct{ *memory.Store }

func (conflictBlobs) Put(context.Context, string, []byte, int64) (int64, error) {
	return 0, errs.ErrVersionConflict
}

/************ deterministic options ************/

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) next() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("id-%d", s.n), nil
}

// tickingClock advances by one second on every call.
type tickingClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newClock() *tickingClock {
	return &tickingClock{cur: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *tickingClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

func testOptions() Options {
	ids := &seqIDs{}
	return Options{Now: newClock().now, NewID: ids.next}
}

var errBoom = errors.New("disk on fire")

func mustPutRaw(t *testing.T, blobs repository.BlobStore, name string, raw string) {
	t.Helper()
	_, err := blobs.Put(context.Background(), DefaultPrefix+name, []byte(raw), 0)
	require.NoError(t, err)
}
