package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a document with the same content hash
	// is already stored.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid caller input,
	// e.g. empty text or an out-of-range threshold. Never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStoreWrite indicates the document store rejected or failed a write.
	ErrStoreWrite = errors.New("store write failed")

	// ErrStoreQuery indicates a similarity query failed at the transport
	// or backend level. This is distinct from an empty result set, which
	// is valid and not an error.
	ErrStoreQuery = errors.New("store query failed")

	// ErrBackendTimeout indicates a generation backend exceeded its
	// per-call timeout. The cascade moves to the next backend.
	ErrBackendTimeout = errors.New("generation backend timed out")

	// ErrBackendFailure indicates a generation backend returned an error,
	// a non-2xx status, or an empty completion.
	ErrBackendFailure = errors.New("generation backend failed")

	// ErrAllBackendsExhausted indicates every configured generation
	// backend failed. Surfaced to the caller; never replaced with a
	// fabricated answer.
	ErrAllBackendsExhausted = errors.New("all generation backends exhausted")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured or unreachable.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrStoreUnavailable indicates the document store is not configured
	// or unreachable.
	ErrStoreUnavailable = errors.New("document store unavailable")
)
