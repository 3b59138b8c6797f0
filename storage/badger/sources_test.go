package badger

import (
	"context"
	"testing"

	"github.com/poiesic/docchat/ai/mock"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	index, sources, backend, err := NewMemoryRepositories(mock.NewMockEmbedder())
	require.NoError(t, err)
	defer backend.Close()
	defer index.Close()

	record := &core.SourceRecord{
		FileID:   "abc123",
		Path:     "/docs/guide.pdf",
		Name:     "guide.pdf",
		Chunks:   12,
		Metadata: map[string]string{core.MetaProjectName: "handbook"},
	}
	require.NoError(t, sources.SaveSource(ctx, record))
	assert.False(t, record.IngestedAt.IsZero())

	got, err := sources.GetSource(ctx, "abc123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "guide.pdf", got.Name)
	assert.Equal(t, 12, got.Chunks)
	assert.Equal(t, "handbook", got.Metadata[core.MetaProjectName])
}

func TestSourceRepository_GetMissing(t *testing.T) {
	_, sources, backend, err := NewMemoryRepositories(mock.NewMockEmbedder())
	require.NoError(t, err)
	defer backend.Close()

	got, err := sources.GetSource(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSourceRepository_ListSortedByName(t *testing.T) {
	ctx := context.Background()
	_, sources, backend, err := NewMemoryRepositories(mock.NewMockEmbedder())
	require.NoError(t, err)
	defer backend.Close()

	for _, rec := range []*core.SourceRecord{
		{FileID: "1", Name: "zeta.txt"},
		{FileID: "2", Name: "alpha.md"},
		{FileID: "3", Name: "mid.pdf"},
	} {
		require.NoError(t, sources.SaveSource(ctx, rec))
	}

	// Re-saving replaces rather than duplicates.
	require.NoError(t, sources.SaveSource(ctx, &core.SourceRecord{FileID: "3", Name: "mid.pdf", Chunks: 4}))

	list, err := sources.ListSources(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "alpha.md", list[0].Name)
	assert.Equal(t, "mid.pdf", list[1].Name)
	assert.Equal(t, 4, list[1].Chunks)
	assert.Equal(t, "zeta.txt", list[2].Name)
}

func TestSourceRepository_RequiresBackend(t *testing.T) {
	_, err := NewSourceRepository(nil)
	assert.ErrorIs(t, err, storage.ErrBackendRequired)
}

func TestSourceRepository_ClosedBackend(t *testing.T) {
	_, sources, backend, err := NewMemoryRepositories(mock.NewMockEmbedder())
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	_, err = sources.ListSources(context.Background())
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}
