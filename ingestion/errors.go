package ingestion

import "errors"

var (
	// ErrIndexRequired is returned when an index store is not provided.
	ErrIndexRequired = errors.New("index store required")

	// ErrSourceRepositoryRequired is returned when a source repository is not provided.
	ErrSourceRepositoryRequired = errors.New("source repository required")
)
