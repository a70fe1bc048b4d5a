// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repository/store/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates a missing or malformed required input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrVersionConflict indicates optimistic concurrency failure (base version mismatch).
	ErrVersionConflict = errors.New("version conflict")

	// ErrResourceExhausted indicates a bounded retry loop gave up.
	ErrResourceExhausted = errors.New("resource exhausted")
)
