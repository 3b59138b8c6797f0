package storage

import (
	"context"

	"github.com/poiesic/docchat/core"
)

// UpsertResult reports the outcome of a write that reached the working set.
// A non-nil Warning means the entries are queryable now but were not made
// durable; it always wraps core.ErrPersistence.
type UpsertResult struct {
	Count   int
	IDs     []core.ChunkID
	Warning error
}

// Durable reports whether the write also reached persistent storage.
func (r *UpsertResult) Durable() bool {
	return r.Warning == nil
}

// IndexStore is a persistent embedding index keyed by ChunkID.
// Implementations must be thread-safe: reads run concurrently, writes are
// serialized, and the last writer of an id wins.
type IndexStore interface {
	// Upsert embeds chunks and stores them under the matching ids.
	// Returns core.ErrArityMismatch if the lists differ in length and
	// core.ErrEmbedding if embedding fails; nothing is written in either case.
	Upsert(ctx context.Context, chunks []core.Chunk, ids []core.ChunkID) (*UpsertResult, error)

	// Search embeds the query and returns up to k entries ordered by
	// non-increasing cosine similarity. Returns core.ErrInvalidK if k < 1.
	Search(ctx context.Context, query string, k int) ([]*core.SearchResult, error)

	// SearchVector is Search with a precomputed query vector.
	SearchVector(ctx context.Context, vector []float32, k int) ([]*core.SearchResult, error)

	// Get returns the entries that exist for the given ids, in id order.
	// Missing ids are skipped.
	Get(ctx context.Context, ids ...core.ChunkID) ([]*core.IndexEntry, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// ForEach visits every entry in id order, batchSize at a time.
	// Iteration stops on the first error from fn.
	ForEach(ctx context.Context, batchSize int, fn func([]*core.IndexEntry) error) error

	// UpdateVectors replaces the vectors of existing entries without
	// re-embedding. Entries whose id is unknown are rejected with ErrNotFound.
	UpdateVectors(ctx context.Context, ids []core.ChunkID, vectors [][]float32) (*UpsertResult, error)

	// Close releases the store. The backend is closed separately.
	Close() error
}

// SourceRepository records which files have been ingested.
type SourceRepository interface {
	// SaveSource stores or replaces the record for a file fingerprint.
	SaveSource(ctx context.Context, source *core.SourceRecord) error

	// GetSource returns the record for a fingerprint.
	// Returns nil, nil if the file was never ingested.
	GetSource(ctx context.Context, fileID string) (*core.SourceRecord, error)

	// ListSources returns all records ordered by name.
	ListSources(ctx context.Context) ([]*core.SourceRecord, error)
}
