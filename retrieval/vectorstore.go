package retrieval

import (
	"context"
	"fmt"
	"strconv"

	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

// VectorStore exposes an IndexStore through langchaingo's vectorstores API.
type VectorStore struct {
	store storage.IndexStore
}

var _ vectorstores.VectorStore = (*VectorStore)(nil)

// NewVectorStore wraps store.
func NewVectorStore(store storage.IndexStore) (*VectorStore, error) {
	if store == nil {
		return nil, ErrIndexRequired
	}
	return &VectorStore{store: store}, nil
}

// AddDocuments upserts docs and returns their chunk ids.
// Documents without a source fingerprint are fingerprinted by content.
// A persistence warning is logged by the store and not returned.
func (v *VectorStore) AddDocuments(ctx context.Context, docs []schema.Document, options ...vectorstores.Option) ([]string, error) {
	opts := vectorstores.Options{}
	for _, opt := range options {
		opt(&opts)
	}

	chunks := make([]core.Chunk, 0, len(docs))
	for n, doc := range docs {
		if opts.Deduplicater != nil && opts.Deduplicater(ctx, doc) {
			continue
		}
		chunks = append(chunks, fromSchemaDocument(doc, n))
	}

	ids, err := core.AssignIDs(chunks)
	if err != nil {
		return nil, err
	}
	res, err := v.store.Upsert(ctx, chunks, ids)
	if err != nil {
		return nil, err
	}

	out := make([]string, len(res.IDs))
	for n, id := range res.IDs {
		out[n] = id.String()
	}
	return out, nil
}

// SimilaritySearch returns up to numDocuments documents. ScoreThreshold drops
// weaker hits and a map[string]string filter keeps only documents whose
// metadata matches every pair.
func (v *VectorStore) SimilaritySearch(ctx context.Context, query string, numDocuments int, options ...vectorstores.Option) ([]schema.Document, error) {
	opts := vectorstores.Options{}
	for _, opt := range options {
		opt(&opts)
	}

	var filters map[string]string
	if opts.Filters != nil {
		f, ok := opts.Filters.(map[string]string)
		if !ok {
			return nil, fmt.Errorf("unsupported filter type %T", opts.Filters)
		}
		filters = f
	}

	hits, err := v.store.Search(ctx, query, numDocuments)
	if err != nil {
		return nil, err
	}

	kept := make([]*core.SearchResult, 0, len(hits))
	for _, hit := range hits {
		if opts.ScoreThreshold > 0 && hit.Score < opts.ScoreThreshold {
			continue
		}
		if !matches(hit.Entry.Chunk.Metadata, filters) {
			continue
		}
		kept = append(kept, hit)
	}
	return toSchemaDocuments(kept), nil
}

func matches(meta, filters map[string]string) bool {
	for k, want := range filters {
		if meta[k] != want {
			return false
		}
	}
	return true
}

func fromSchemaDocument(doc schema.Document, position int) core.Chunk {
	meta := make(map[string]string, len(doc.Metadata)+1)
	for k, v := range doc.Metadata {
		meta[k] = fmt.Sprint(v)
	}
	delete(meta, MetaChunkID)
	if meta[core.MetaSourceFileID] == "" {
		meta[core.MetaSourceFileID] = core.FingerprintBytes([]byte(doc.PageContent))
	}

	index := position
	if raw, ok := meta[core.MetaChunkIndex]; ok {
		if parsed, err := strconv.Atoi(raw); err == nil {
			index = parsed
		}
	}
	return core.Chunk{
		Text:     doc.PageContent,
		Metadata: meta,
		Index:    index,
		End:      len([]rune(doc.PageContent)),
	}
}
