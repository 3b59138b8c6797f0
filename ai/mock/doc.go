// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.Generator,
// and ai.AIProvider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	vec, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Synthetic vectors for ranking tests
//	embedder := mock.NewVectorEmbedder(map[string][]float32{
//	    "cats": {1, 0},
//	    "dogs": {0, 1},
//	})
//
//	// Scripted streaming with a mid-stream failure
//	gen := mock.NewMockGenerator("partial ", "answer")
//	gen.Err, gen.FailAfter = errors.New("boom"), 1
//
// # Default Behavior
//
//   - MockEmbedder: Returns deterministic unit vectors based on text hash
//   - MockGenerator: Streams its configured chunks
//   - MockProvider: Aggregates mock embedder and generator
package mock
