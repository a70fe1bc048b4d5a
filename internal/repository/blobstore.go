// Package repository defines storage interfaces implemented by concrete backends.
package repository

import "context"

// Blob is a stored document together with its version.
type Blob struct {
	Value []byte
	Ver   int64 // >= 1 for stored documents
}

// BlobStore is a string-keyed document store with optimistic versioning.
type BlobStore interface {
	// Get returns the document stored under key or errs.ErrNotFound.
	Get(ctx context.Context, key string) (Blob, error)
	// Put stores value if the current version equals baseVer (0 = key must be absent)
	// and returns the new version. Mismatch yields errs.ErrVersionConflict.
	Put(ctx context.Context, key string, value []byte, baseVer int64) (int64, error)
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}
