package badger

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

// durableWriter flushes entries to stable storage.
type durableWriter interface {
	writeEntries(entries []*core.IndexEntry) error
}

// Index implements storage.IndexStore on top of BadgerDB.
//
// All entries live in an in-memory working set that serves searches; every
// write is mirrored to Badger so the set can be rebuilt on open.
type Index struct {
	backend  *Backend
	embedder ai.Embedder
	writer   durableWriter
	logger   *slog.Logger

	mu      sync.RWMutex
	entries map[core.ChunkID]*core.IndexEntry
	closed  bool

	// writeMu serializes upserts end to end, embedding included.
	writeMu sync.Mutex
}

var _ storage.IndexStore = (*Index)(nil)

// IndexOption configures an Index.
type IndexOption func(*Index)

// WithIndexLogger sets the logger used by the index.
func WithIndexLogger(logger *slog.Logger) IndexOption {
	return func(i *Index) {
		i.logger = logger
	}
}

// withWriter replaces the durable writer. Used by tests to inject flush failures.
func withWriter(w durableWriter) IndexOption {
	return func(i *Index) {
		i.writer = w
	}
}

// NewIndex opens the index stored in backend and loads its entries.
func NewIndex(backend *Backend, embedder ai.Embedder, opts ...IndexOption) (storage.IndexStore, error) {
	return newIndex(backend, embedder, opts...)
}

func newIndex(backend *Backend, embedder ai.Embedder, opts ...IndexOption) (*Index, error) {
	if backend == nil {
		return nil, storage.ErrBackendRequired
	}
	if embedder == nil {
		return nil, storage.ErrEmbedderRequired
	}

	idx := &Index{
		backend:  backend,
		embedder: embedder,
		writer:   backend,
		logger:   slog.Default().With("component", "index"),
		entries:  make(map[core.ChunkID]*core.IndexEntry),
	}
	for _, opt := range opts {
		opt(idx)
	}

	err := backend.scanEntries(func(entry *core.IndexEntry) error {
		idx.entries[entry.ID] = entry
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading index: %w", err)
	}
	idx.logger.Debug("index loaded", "entries", len(idx.entries))
	return idx, nil
}

// Close releases the index. The backend stays open.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed = true
	return nil
}

// Upsert embeds chunks and stores them under ids. The entries are searchable
// as soon as they reach the working set; a failure to flush them afterwards
// is returned as UpsertResult.Warning.
func (i *Index) Upsert(ctx context.Context, chunks []core.Chunk, ids []core.ChunkID) (*storage.UpsertResult, error) {
	if len(chunks) != len(ids) {
		return nil, fmt.Errorf("%w: %d chunks, %d ids", core.ErrArityMismatch, len(chunks), len(ids))
	}
	if len(chunks) == 0 {
		return &storage.UpsertResult{}, nil
	}

	i.writeMu.Lock()
	defer i.writeMu.Unlock()

	if err := i.checkOpen(); err != nil {
		return nil, err
	}

	texts := make([]string, len(chunks))
	for n := range chunks {
		texts[n] = chunks[n].Text
	}
	vectors, err := i.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrEmbedding, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", core.ErrEmbedding, len(vectors), len(chunks))
	}

	now := time.Now().UTC()
	written := make([]*core.IndexEntry, 0, len(chunks))

	i.mu.Lock()
	for n, id := range ids {
		entry := &core.IndexEntry{
			ID:         id,
			Chunk:      cloneChunk(chunks[n]),
			Vector:     vectors[n],
			InsertedAt: now,
			UpdatedAt:  now,
		}
		if old, ok := i.entries[id]; ok {
			entry.InsertedAt = old.InsertedAt
		}
		i.entries[id] = entry
		written = append(written, entry)
	}
	i.mu.Unlock()

	return i.flush(ids, written), nil
}

// UpdateVectors swaps the vectors of existing entries and flushes them.
func (i *Index) UpdateVectors(ctx context.Context, ids []core.ChunkID, vectors [][]float32) (*storage.UpsertResult, error) {
	if len(ids) != len(vectors) {
		return nil, fmt.Errorf("%w: %d ids, %d vectors", core.ErrArityMismatch, len(ids), len(vectors))
	}

	i.writeMu.Lock()
	defer i.writeMu.Unlock()

	if err := i.checkOpen(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	written := make([]*core.IndexEntry, 0, len(ids))

	i.mu.Lock()
	for _, id := range ids {
		if _, ok := i.entries[id]; !ok {
			i.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
		}
	}
	for n, id := range ids {
		updated := *i.entries[id]
		updated.Vector = vectors[n]
		updated.UpdatedAt = now
		i.entries[id] = &updated
		written = append(written, &updated)
	}
	i.mu.Unlock()

	return i.flush(ids, written), nil
}

// flush is the second phase of a write. It never rolls back the working set.
func (i *Index) flush(ids []core.ChunkID, written []*core.IndexEntry) *storage.UpsertResult {
	result := &storage.UpsertResult{
		Count: len(written),
		IDs:   ids,
	}
	if err := i.writer.writeEntries(written); err != nil {
		i.logger.Warn("entries indexed but not persisted", "entries", len(written), "err", err)
		result.Warning = &storage.PersistenceError{Entries: len(written), Err: err}
	}
	return result
}

// Search embeds query and ranks entries by cosine similarity.
func (i *Index) Search(ctx context.Context, query string, k int) ([]*core.SearchResult, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: %d", core.ErrInvalidK, k)
	}
	vector, err := i.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrEmbedding, err)
	}
	return i.SearchVector(ctx, vector, k)
}

// SearchVector ranks entries against a precomputed vector. Equal scores are
// ordered by id so results are stable across calls.
func (i *Index) SearchVector(ctx context.Context, vector []float32, k int) ([]*core.SearchResult, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: %d", core.ErrInvalidK, k)
	}

	i.mu.RLock()
	if i.closed {
		i.mu.RUnlock()
		return nil, storage.ErrStorageClosed
	}
	results := make([]*core.SearchResult, 0, len(i.entries))
	for _, entry := range i.entries {
		if len(entry.Vector) == 0 {
			continue
		}
		results = append(results, &core.SearchResult{
			Entry: entry,
			Score: cosineSimilarity(vector, entry.Vector),
		})
	}
	i.mu.RUnlock()

	slices.SortFunc(results, func(a, b *core.SearchResult) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return cmp.Compare(a.Entry.ID, b.Entry.ID)
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Get returns the stored entries for ids, skipping unknown ones.
func (i *Index) Get(ctx context.Context, ids ...core.ChunkID) ([]*core.IndexEntry, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return nil, storage.ErrStorageClosed
	}

	found := make([]*core.IndexEntry, 0, len(ids))
	for _, id := range ids {
		if entry, ok := i.entries[id]; ok {
			found = append(found, entry)
		}
	}
	slices.SortFunc(found, func(a, b *core.IndexEntry) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return found, nil
}

// Count returns the number of entries in the working set.
func (i *Index) Count(ctx context.Context) (int, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return 0, storage.ErrStorageClosed
	}
	return len(i.entries), nil
}

// ForEach visits a snapshot of the entries in id order.
func (i *Index) ForEach(ctx context.Context, batchSize int, fn func([]*core.IndexEntry) error) error {
	if batchSize < 1 {
		batchSize = 1
	}

	i.mu.RLock()
	if i.closed {
		i.mu.RUnlock()
		return storage.ErrStorageClosed
	}
	ids := slices.Sorted(maps.Keys(i.entries))
	snapshot := make([]*core.IndexEntry, len(ids))
	for n, id := range ids {
		snapshot[n] = i.entries[id]
	}
	i.mu.RUnlock()

	for batch := range slices.Chunk(snapshot, batchSize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
	return nil
}

func (i *Index) checkOpen() error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed || i.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}

func cloneChunk(c core.Chunk) core.Chunk {
	c.Metadata = maps.Clone(c.Metadata)
	return c
}

// cosineSimilarity returns 0 when either vector has zero magnitude.
func cosineSimilarity(a, b []float32) float32 {
	n := min(len(a), len(b))
	var dot, normA, normB float64
	for j := 0; j < n; j++ {
		dot += float64(a[j]) * float64(b[j])
		normA += float64(a[j]) * float64(a[j])
		normB += float64(b[j]) * float64(b[j])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
