package reembed

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when a retry policy allows no attempts.
	ErrInvalidMaxAttempts = errors.New("reembed: max attempts must be greater than 0")

	// ErrIndexRequired is returned when no index store is supplied.
	ErrIndexRequired = errors.New("reembed: index store is required")

	// ErrEmbedderRequired is returned when no embedder is supplied.
	ErrEmbedderRequired = errors.New("reembed: embedder is required")

	// ErrVectorCount is returned when the embedder returns the wrong number
	// of vectors for a batch.
	ErrVectorCount = errors.New("reembed: embedding count mismatch")
)
