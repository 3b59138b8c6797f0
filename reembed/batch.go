package reembed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

// BatchProcessor re-embeds one batch of index entries and stores the new
// vectors.
type BatchProcessor struct {
	store    storage.IndexStore
	embedder ai.Embedder
	retry    RetryPolicy
	logger   *slog.Logger
}

// NewBatchProcessor creates a batch processor. Embedding calls are retried
// according to retry.
func NewBatchProcessor(store storage.IndexStore, embedder ai.Embedder, retry RetryPolicy) *BatchProcessor {
	return &BatchProcessor{
		store:    store,
		embedder: embedder,
		retry:    retry,
		logger:   slog.Default().With("component", "reembed"),
	}
}

// Process embeds the chunk text of entries, normalizes the vectors and
// replaces them in the store. Embedding failures return an error wrapping
// core.ErrEmbedding and leave the store untouched. A persistence failure is
// reported in the result's Warning.
func (bp *BatchProcessor) Process(ctx context.Context, entries []*core.IndexEntry) (*storage.UpsertResult, error) {
	if len(entries) == 0 {
		return &storage.UpsertResult{}, nil
	}

	texts := make([]string, len(entries))
	ids := make([]core.ChunkID, len(entries))
	for i, entry := range entries {
		texts[i] = entry.Chunk.Text
		ids[i] = entry.ID
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, bp.retry, func(ctx context.Context) error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		if err == nil && len(embeddings) != len(texts) {
			return fmt.Errorf("%w: expected %d, got %d", ErrVectorCount, len(texts), len(embeddings))
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: after %d attempts: %w", core.ErrEmbedding, bp.retry.MaxAttempts, err)
	}

	vectors := make([][]float32, len(embeddings))
	for i, v := range embeddings {
		vectors[i] = NormalizeVector(v)
	}

	result, err := bp.store.UpdateVectors(ctx, ids, vectors)
	if err != nil {
		return nil, fmt.Errorf("updating vectors: %w", err)
	}
	if result.Warning != nil {
		bp.logger.Warn("reembedded vectors are not durable", "chunks", result.Count, "err", result.Warning)
	}
	return result, nil
}
