package reembed

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/docchat/ai/mock"
	"github.com/poiesic/docchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReembedder_Validation(t *testing.T) {
	store, _ := setupIndex(t, 0)

	_, err := NewReembedder(nil, unnormalized(), nil, nil)
	assert.ErrorIs(t, err, ErrIndexRequired)

	_, err = NewReembedder(store, nil, nil, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestNewReembedder_NormalizesConfig(t *testing.T) {
	store, _ := setupIndex(t, 0)
	r, err := NewReembedder(store, unnormalized(), &Config{}, nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig().BatchSize, r.config.BatchSize)
	assert.Equal(t, 1, r.config.Workers)
	assert.Equal(t, r.config.BatchSize, r.config.ReportInterval)
	assert.Equal(t, 1, r.config.MaxRetries)
}

func TestReembedder_Run(t *testing.T) {
	ctx := context.Background()
	store, ids := setupIndex(t, 10)

	var buf bytes.Buffer
	config := &Config{
		BatchSize:      3,
		Workers:        2,
		ReportInterval: 3,
		MaxRetries:     3,
		RetryDelay:     time.Millisecond,
	}
	r, err := NewReembedder(store, unnormalized(), config, &buf)
	require.NoError(t, err)

	result, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, result.Count)
	assert.NoError(t, result.Warning)

	entries, err := store.Get(ctx, ids...)
	require.NoError(t, err)
	require.Len(t, entries, 10)
	for _, entry := range entries {
		require.Len(t, entry.Vector, 3, "entry %s should carry the new vector", entry.ID)
		var magnitude float32
		for _, v := range entry.Vector {
			magnitude += v * v
		}
		assert.InDelta(t, 1.0, magnitude, 0.01)
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, count)

	output := buf.String()
	assert.Contains(t, output, "Starting reembedding of 10 chunks")
	assert.Contains(t, output, "10/10")
	assert.Contains(t, output, "Reembedding complete")
}

func TestReembedder_SearchUsesNewVectors(t *testing.T) {
	ctx := context.Background()
	store, ids := setupIndex(t, 2)

	embedder := mock.NewVectorEmbedder(map[string][]float32{
		"chunk 0": {0, 5},
		"chunk 1": {5, 0},
	})
	r, err := NewReembedder(store, embedder, &Config{BatchSize: 1, Workers: 2, MaxRetries: 1}, nil)
	require.NoError(t, err)
	_, err = r.Run(ctx)
	require.NoError(t, err)

	hits, err := store.SearchVector(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, ids[1], hits[0].Entry.ID)
}

func TestReembedder_EmptyIndex(t *testing.T) {
	store, _ := setupIndex(t, 0)

	var buf bytes.Buffer
	embedder := unnormalized()
	r, err := NewReembedder(store, embedder, DefaultConfig(), &buf)
	require.NoError(t, err)

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Count)
	assert.Contains(t, buf.String(), "0 chunks")
	assert.Zero(t, embedder.CallCount())
}

func TestReembedder_BatchFailureAborts(t *testing.T) {
	store, _ := setupIndex(t, 6)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("model unavailable")
	}

	var buf bytes.Buffer
	r, err := NewReembedder(store, embedder, &Config{BatchSize: 2, Workers: 1, MaxRetries: 2, RetryDelay: time.Millisecond}, &buf)
	require.NoError(t, err)

	result, err := r.Run(context.Background())
	assert.Nil(t, result)
	assert.ErrorIs(t, err, core.ErrEmbedding)
	assert.ErrorContains(t, err, "model unavailable")
	assert.NotContains(t, buf.String(), "Reembedding complete")
}

func TestReembedder_ContextCanceled(t *testing.T) {
	store, _ := setupIndex(t, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, err := NewReembedder(store, unnormalized(), DefaultConfig(), nil)
	require.NoError(t, err)

	_, err = r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
