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


package reembed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of chunks sent to the embedder at once
	BatchSize int

	// Workers is the number of batches embedded concurrently
	Workers int

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per batch
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		Workers:        4,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

func (c *Config) normalize() {
	defaults := DefaultConfig()
	if c.BatchSize < 1 {
		c.BatchSize = defaults.BatchSize
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.ReportInterval < 1 {
		c.ReportInterval = c.BatchSize
	}
	if c.MaxRetries < 1 {
		c.MaxRetries = 1
	}
}

// Result summarizes a reembedding run.
type Result struct {
	// Count is the number of chunks whose vectors were replaced.
	Count int
	// Warning collects persistence failures; it wraps core.ErrPersistence.
	Warning error
}

// Reembedder replaces the vector of every chunk in an index.
type Reembedder struct {
	store     storage.IndexStore
	config    Config
	progress  io.Writer
	processor *BatchProcessor
	logger    *slog.Logger
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr); nil discards it.
func NewReembedder(store storage.IndexStore, embedder ai.Embedder, config *Config, progress io.Writer) (*Reembedder, error) {
	if store == nil {
		return nil, ErrIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	cfg.normalize()
	if progress == nil {
		progress = io.Discard
	}

	retry := RetryPolicy{MaxAttempts: cfg.MaxRetries, BaseDelay: cfg.RetryDelay}
	return &Reembedder{
		store:     store,
		config:    cfg,
		progress:  progress,
		processor: NewBatchProcessor(store, embedder, retry),
		logger:    slog.Default().With("component", "reembed"),
	}, nil
}

// Run re-embeds every chunk in the index. Batches are embedded concurrently
// on a worker pool; the first batch failure cancels the rest and is
// returned. Vectors already replaced by then keep their new values.
func (r *Reembedder) Run(ctx context.Context) (*Result, error) {
	total, err := r.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}
	if total == 0 {
		fmt.Fprintf(r.progress, "No chunks found in index (0 chunks)\n")
		return &Result{}, nil
	}

	pool, err := ants.NewPool(r.config.Workers)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	fmt.Fprintf(r.progress, "Starting reembedding of %d chunks (batch size: %d, workers: %d)\n",
		total, r.config.BatchSize, r.config.Workers)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		warnings []error
		count    int
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		cancel()
	}

	iterErr := r.store.ForEach(ctx, r.config.BatchSize, func(batch []*core.IndexEntry) error {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			result, err := r.processor.Process(ctx, batch)
			if err != nil {
				fail(fmt.Errorf("failed to process batch: %w", err))
				return
			}
			mu.Lock()
			count += result.Count
			if result.Warning != nil {
				warnings = append(warnings, result.Warning)
			}
			mu.Unlock()
			tracker.Add(len(batch))
		})
		if submitErr != nil {
			wg.Done()
			return submitErr
		}
		return nil
	})
	wg.Wait()

	if firstErr == nil && iterErr != nil {
		firstErr = iterErr
	}
	tracker.Finish(firstErr == nil)
	if firstErr != nil {
		r.logger.Error("reembedding aborted", "processed", count, "total", total, "err", firstErr)
		return nil, firstErr
	}

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d chunks in %v (%.1f chunks/sec)\n",
		count, elapsed.Round(time.Millisecond), float64(count)/elapsed.Seconds())

	result := &Result{Count: count, Warning: errors.Join(warnings...)}
	r.logger.Info("reembedded index", "chunks", count, "durable", result.Warning == nil)
	return result, nil
}
