package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// StreamFunc receives each text increment as the model produces it.
// Returning an error aborts generation.
type StreamFunc func(ctx context.Context, chunk string) error

// Generator produces answers from an ordered list of messages.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// GenerateStream runs the model and calls fn for every increment.
	// The concatenation of all increments equals the returned text.
	// On failure the text produced so far is returned with the error.
	GenerateStream(ctx context.Context, messages []Message, fn StreamFunc) (string, error)

	// Generate runs the model without streaming and returns the full text.
	Generate(ctx context.Context, messages []Message) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and Generator instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Generator returns the answer generation service.
	// The returned Generator is safe for concurrent use.
	Generator() Generator

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
