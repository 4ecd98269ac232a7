package types

import "errors"

// Error kinds surfaced by the retrieval engine. Callers match these with
// errors.Is; the concrete message carries the offending value.
var (
	// ErrValidation is returned for malformed chunk sets: duplicate or
	// non-contiguous chunk indices, negative indices, empty content.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidArgument is returned for bad query parameters: k <= 0,
	// text weight outside [0,1], empty query text.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDimensionMismatch is returned when an embedding's length does not
	// match the system-wide dimension, on writes and on queries alike.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStorageUnavailable wraps transient failures of the underlying
	// store. The engine never retries internally; callers own retry policy.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
