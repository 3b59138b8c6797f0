package chain

import "errors"

var (
	// ErrIndexRequired is returned when a chain is built without an index.
	ErrIndexRequired = errors.New("index store required")

	// ErrGeneratorRequired is returned when a chain is built without a generator.
	ErrGeneratorRequired = errors.New("generator required")

	// ErrSessionsRequired is returned when a chain is built without a session store.
	ErrSessionsRequired = errors.New("session store required")

	// errAbandoned stops the model stream once the consumer stops reading.
	errAbandoned = errors.New("stream abandoned by consumer")
)
