package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
	"github.com/tmc/langchaingo/schema"
)

// Metadata keys added to langchaingo documents produced by a Retriever.
const (
	MetaChunkID = "chunk_id"
)

// Retriever fetches the k most relevant chunks for a query.
type Retriever struct {
	store   storage.IndexStore
	k       int
	monitor Monitor
	logger  *slog.Logger
}

var _ schema.Retriever = (*Retriever)(nil)

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithMonitor attaches a monitor that observes every retrieval.
func WithMonitor(monitor Monitor) Option {
	return func(r *Retriever) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		r.monitor = monitor
		return nil
	}
}

// New creates a retriever with a fixed depth k in [1, core.MaxK].
func New(store storage.IndexStore, k int, opts ...Option) (*Retriever, error) {
	if store == nil {
		return nil, ErrIndexRequired
	}
	if err := core.ValidateK(k); err != nil {
		return nil, err
	}

	r := &Retriever{
		store:   store,
		k:       k,
		monitor: &noopMonitor{},
		logger:  slog.Default().With("component", "retriever"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// K returns the retrieval depth.
func (r *Retriever) K() int {
	return r.k
}

// Retrieve returns up to k chunks ordered by decreasing similarity.
// Failures wrap core.ErrRetrieval.
func (r *Retriever) Retrieve(ctx context.Context, query string) (*core.RetrievalResult, error) {
	r.monitor.Start(query)

	hits, err := r.store.Search(ctx, query, r.k)
	if err != nil {
		r.logger.Error("error searching index", "query", query, "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrRetrieval, err)
	}

	for rank, hit := range hits {
		r.monitor.Hit(rank+1, hit)
	}
	result := &core.RetrievalResult{
		Query:   query,
		Results: hits,
	}
	r.monitor.Finish(result)
	r.logger.Debug("retrieved", "query", query, "hits", len(hits))
	return result, nil
}

// GetRelevantDocuments implements schema.Retriever.
func (r *Retriever) GetRelevantDocuments(ctx context.Context, query string) ([]schema.Document, error) {
	result, err := r.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}
	return toSchemaDocuments(result.Results), nil
}

func toSchemaDocuments(hits []*core.SearchResult) []schema.Document {
	docs := make([]schema.Document, 0, len(hits))
	for _, hit := range hits {
		meta := make(map[string]any, len(hit.Entry.Chunk.Metadata)+1)
		for k, v := range hit.Entry.Chunk.Metadata {
			meta[k] = v
		}
		meta[MetaChunkID] = hit.Entry.ID.String()
		docs = append(docs, schema.Document{
			PageContent: hit.Entry.Chunk.Text,
			Metadata:    meta,
			Score:       hit.Score,
		})
	}
	return docs
}
