// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package docchat

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/ai/openai"
	"github.com/poiesic/docchat/chain"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/ingestion"
	"github.com/poiesic/docchat/reembed"
	"github.com/poiesic/docchat/retrieval"
	"github.com/poiesic/docchat/session"
	"github.com/poiesic/docchat/storage"
	"github.com/poiesic/docchat/storage/badger"
)

// Engine ties the index, the AI provider, the session store and the chain
// cache together behind the ingest and chat entry points.
type Engine struct {
	backend  *badger.Backend
	index    storage.IndexStore
	sources  storage.SourceRepository
	provider ai.AIProvider
	pipeline *ingestion.Pipeline
	vectors  *retrieval.VectorStore
	sessions *session.Store
	chains   *chain.Cache
	monitor  retrieval.Monitor
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	aiConfig      *ai.Config
	provider      ai.AIProvider
	inMemory      bool
	ingestionOpts []ingestion.Option
	monitor       retrieval.Monitor
	logger        *slog.Logger
}

// WithAIConfig sets the configuration of the default OpenAI-compatible
// provider. Ignored when WithProvider is used.
func WithAIConfig(config *ai.Config) EngineOption {
	return func(o *engineOptions) {
		o.aiConfig = config
	}
}

// WithProvider supplies the AI provider. The engine takes ownership and
// closes it on Close.
func WithProvider(provider ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithInMemory keeps the index in memory; the path is ignored.
func WithInMemory() EngineOption {
	return func(o *engineOptions) {
		o.inMemory = true
	}
}

// WithIngestionOptions passes options to the ingestion pipeline.
func WithIngestionOptions(opts ...ingestion.Option) EngineOption {
	return func(o *engineOptions) {
		o.ingestionOpts = append(o.ingestionOpts, opts...)
	}
}

// WithMonitor observes retrieval for chat and search.
func WithMonitor(monitor retrieval.Monitor) EngineOption {
	return func(o *engineOptions) {
		o.monitor = monitor
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// NewEngine opens (or creates) the index stored under path.
func NewEngine(path string, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	provider := options.provider
	if provider == nil {
		p, err := openai.NewProvider(options.aiConfig)
		if err != nil {
			return nil, err
		}
		provider = p
	}

	backend, err := badger.OpenBackend(path, options.inMemory)
	if err != nil {
		provider.Close()
		return nil, err
	}

	index, err := badger.NewIndex(backend, provider.Embedder(), badger.WithIndexLogger(options.logger.With("component", "index")))
	if err != nil {
		backend.Close()
		provider.Close()
		return nil, err
	}

	sources, err := badger.NewSourceRepository(backend)
	if err != nil {
		index.Close()
		backend.Close()
		provider.Close()
		return nil, err
	}

	ingestionOpts := append([]ingestion.Option{ingestion.WithLogger(options.logger.With("component", "ingestion"))}, options.ingestionOpts...)
	pipeline, err := ingestion.NewPipeline(index, sources, ingestionOpts...)
	if err != nil {
		index.Close()
		backend.Close()
		provider.Close()
		return nil, err
	}

	vectors, err := retrieval.NewVectorStore(index)
	if err != nil {
		pipeline.Release()
		index.Close()
		backend.Close()
		provider.Close()
		return nil, err
	}

	e := &Engine{
		backend:  backend,
		index:    index,
		sources:  sources,
		provider: provider,
		pipeline: pipeline,
		vectors:  vectors,
		sessions: session.NewStore(),
		monitor:  options.monitor,
		logger:   options.logger.With("component", "engine"),
	}
	e.chains = chain.NewCache(e.buildChain)
	return e, nil
}

func (e *Engine) buildChain(config chain.Config) (*chain.Chain, error) {
	opts := []chain.Option{chain.WithLogger(e.logger.With("component", "chain"))}
	if e.monitor != nil {
		opts = append(opts, chain.WithMonitor(e.monitor))
	}
	return chain.New(e.index, e.provider.Generator(), e.sessions, config, opts...)
}

// Close releases the pipeline, the provider, the index and the backend.
func (e *Engine) Close() error {
	e.pipeline.Release()
	e.chains.Clear()

	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "err", err)
	}
	var errs []error
	if err := e.index.Close(); err != nil {
		e.logger.Error("error closing index", "err", err)
		errs = append(errs, err)
	}
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Ingest loads, splits and indexes paths as one batch. Cached chains are
// dropped afterwards so the next question is answered from the new index.
func (e *Engine) Ingest(ctx context.Context, paths []string, opts *ingestion.IngestOptions) (*ingestion.Result, error) {
	result, err := e.pipeline.Ingest(ctx, paths, opts)
	if err != nil {
		return nil, err
	}
	e.chains.Clear()
	if result.Warning != nil {
		e.logger.Warn("ingested chunks are not durable", "chunks", result.Count, "err", result.Warning)
	}
	return result, nil
}

// Chat answers question within a session using the chain cached for config.
// See chain.Chain.Stream for the sequence contract.
func (e *Engine) Chat(ctx context.Context, sessionID, question string, config chain.Config) (iter.Seq[string], error) {
	c, err := e.chains.Get(config)
	if err != nil {
		return nil, err
	}
	return c.Stream(ctx, sessionID, question)
}

// Ask is Chat collected into a single string.
func (e *Engine) Ask(ctx context.Context, sessionID, question string, config chain.Config) (string, error) {
	c, err := e.chains.Get(config)
	if err != nil {
		return "", err
	}
	return c.Ask(ctx, sessionID, question)
}

// NewSession returns a fresh session id.
func (e *Engine) NewSession() string {
	return e.sessions.New()
}

// ResetSession discards a session's history and returns a new id.
func (e *Engine) ResetSession(sessionID string) string {
	return e.sessions.Reset(sessionID)
}

// History returns the turns recorded for a session.
func (e *Engine) History(ctx context.Context, sessionID string) ([]core.Turn, error) {
	return e.sessions.History(ctx, sessionID)
}

// Search returns the k chunks most similar to query without generating an
// answer.
func (e *Engine) Search(ctx context.Context, query string, k int) (*core.RetrievalResult, error) {
	opts := []retrieval.Option{retrieval.WithLogger(e.logger.With("component", "retrieval"))}
	if e.monitor != nil {
		opts = append(opts, retrieval.WithMonitor(e.monitor))
	}
	r, err := retrieval.New(e.index, k, opts...)
	if err != nil {
		return nil, err
	}
	return r.Retrieve(ctx, query)
}

// Sources lists every ingested file.
func (e *Engine) Sources(ctx context.Context) ([]*core.SourceRecord, error) {
	return e.sources.ListSources(ctx)
}

// Count returns the number of indexed chunks.
func (e *Engine) Count(ctx context.Context) (int, error) {
	return e.index.Count(ctx)
}

// Reembed replaces every chunk vector using the provider's embedder.
func (e *Engine) Reembed(ctx context.Context, config *reembed.Config, progress io.Writer) (*reembed.Result, error) {
	r, err := reembed.NewReembedder(e.index, e.provider.Embedder(), config, progress)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx)
}

// VectorStore exposes the index as a langchaingo vector store.
func (e *Engine) VectorStore() *retrieval.VectorStore {
	return e.vectors
}

// Index returns the underlying index store.
func (e *Engine) Index() storage.IndexStore {
	return e.index
}
