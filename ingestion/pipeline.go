package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/loader"
	"github.com/poiesic/docchat/splitter"
	"github.com/poiesic/docchat/storage"
	"github.com/tmc/langchaingo/textsplitter"
)

// Pipeline orchestrates loading, splitting and indexing of files.
// Files are loaded concurrently on a worker pool.
type Pipeline struct {
	registry *loader.Registry
	store    storage.IndexStore
	sources  storage.SourceRepository
	loadPool *ants.Pool
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent file loading.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.loadPool != nil {
			p.loadPool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.loadPool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithRegistry replaces the default loader registry.
func WithRegistry(registry *loader.Registry) Option {
	return func(p *Pipeline) error {
		if registry != nil {
			p.registry = registry
		}
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(store storage.IndexStore, sources storage.SourceRepository, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrIndexRequired
	}
	if sources == nil {
		return nil, ErrSourceRepositoryRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	loadPool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		registry: loader.DefaultRegistry(),
		store:    store,
		sources:  sources,
		loadPool: loadPool,
		logger:   slog.Default().With("component", "ingestion"),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Registry returns the loader registry used by the pipeline.
func (p *Pipeline) Registry() *loader.Registry {
	return p.registry
}

// IngestOptions holds optional parameters for ingestion.
type IngestOptions struct {
	Metadata     map[string]string // Extra metadata attached to every chunk
	ChunkSize    int               // Maximum chunk length in runes (default 1000)
	ChunkOverlap int               // Minimum shared runes between chunks (default 150)
}

// Result reports a completed ingestion.
type Result struct {
	// Count is the number of chunks upserted.
	Count int
	// IDs are the chunk ids in upsert order.
	IDs []core.ChunkID
	// Files is the number of files ingested.
	Files int
	// Warning is non-nil when chunks are searchable but not durable. It
	// wraps core.ErrPersistence.
	Warning error
}

type loadedFile struct {
	docs []core.Document
	err  error
}

// Ingest loads, splits and indexes paths as a single batch.
// Any load, split or embedding failure aborts the batch before the index is
// touched. Persistence failures are returned in Result.Warning.
func (p *Pipeline) Ingest(ctx context.Context, paths []string, opts *IngestOptions) (*Result, error) {
	if opts == nil {
		opts = &IngestOptions{}
	}
	size, overlap := opts.ChunkSize, opts.ChunkOverlap
	if size == 0 {
		size = core.DefaultChunkSize
	}
	if overlap == 0 {
		overlap = core.DefaultChunkOverlap
	}
	split, err := splitter.New(textsplitter.WithChunkSize(size), textsplitter.WithChunkOverlap(overlap))
	if err != nil {
		return nil, err
	}

	for _, path := range paths {
		if !p.registry.Supports(path) {
			return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, filepath.Base(path))
		}
	}

	loaded, err := p.load(ctx, paths, opts.Metadata)
	if err != nil {
		return nil, err
	}

	var chunks []core.Chunk
	records := make([]*core.SourceRecord, 0, len(paths))
	for i, path := range paths {
		fileChunks, err := split.SplitDocuments(loaded[i])
		if err != nil {
			return nil, fmt.Errorf("splitting %s: %w", path, err)
		}
		chunks = append(chunks, fileChunks...)
		if record := sourceRecord(path, loaded[i], len(fileChunks), opts.Metadata); record != nil {
			records = append(records, record)
		}
	}

	ids, err := core.AssignIDs(chunks)
	if err != nil {
		return nil, err
	}

	upserted, err := p.store.Upsert(ctx, chunks, ids)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Count:   upserted.Count,
		IDs:     upserted.IDs,
		Files:   len(paths),
		Warning: upserted.Warning,
	}

	var recordErrs []error
	for _, record := range records {
		if err := p.sources.SaveSource(ctx, record); err != nil {
			recordErrs = append(recordErrs, fmt.Errorf("recording %s: %w", record.Name, err))
		}
	}
	if len(recordErrs) > 0 {
		p.logger.Warn("error recording ingested files", "err", errors.Join(recordErrs...))
		result.Warning = errors.Join(result.Warning,
			fmt.Errorf("%w: %w", core.ErrPersistence, errors.Join(recordErrs...)))
	}

	p.logger.Info("ingested files", "files", len(paths), "chunks", result.Count, "durable", result.Warning == nil)
	return result, nil
}

// load reads paths concurrently and returns their documents in input order.
// The first failure in input order wins.
func (p *Pipeline) load(ctx context.Context, paths []string, extra map[string]string) ([][]core.Document, error) {
	results := make([]loadedFile, len(paths))

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		err := p.loadPool.Submit(func() {
			defer wg.Done()
			docs, err := p.registry.LoadFile(ctx, path, extra)
			results[i] = loadedFile{docs: docs, err: err}
		})
		if err != nil {
			wg.Done()
			results[i] = loadedFile{err: err}
		}
	}
	wg.Wait()

	docs := make([][]core.Document, len(paths))
	for i, res := range results {
		if res.err != nil {
			return nil, res.err
		}
		docs[i] = res.docs
	}
	return docs, nil
}

func sourceRecord(path string, docs []core.Document, chunks int, extra map[string]string) *core.SourceRecord {
	if len(docs) == 0 {
		return nil
	}
	return &core.SourceRecord{
		FileID:     docs[0].Metadata[core.MetaSourceFileID],
		Path:       path,
		Name:       docs[0].Metadata[core.MetaSourceName],
		Chunks:     chunks,
		Metadata:   maps.Clone(extra),
		IngestedAt: time.Now().UTC(),
	}
}

// Release releases resources including worker pools.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.loadPool != nil {
		p.loadPool.Release()
	}
}
