package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/poiesic/docchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexEntryRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	entry := &core.IndexEntry{
		ID: core.NewChunkID("abc", 2, 5),
		Chunk: core.Chunk{
			Text:     "some chunk text",
			Metadata: map[string]string{core.MetaSourceName: "a.pdf", core.MetaPage: "2"},
			Index:    5,
			Start:    400,
			End:      500,
		},
		Vector:     []float32{0.1, -0.2, 0.3},
		InsertedAt: now,
		UpdatedAt:  now,
	}

	decoded, err := UnmarshalIndexEntry(MarshalIndexEntry(entry))
	require.NoError(t, err)
	assert.Equal(t, entry, decoded)
}

func TestIndexEntryRoundTrip_EmptyFields(t *testing.T) {
	entry := &core.IndexEntry{ID: core.NewChunkID("abc", 0, 0)}

	decoded, err := UnmarshalIndexEntry(MarshalIndexEntry(entry))
	require.NoError(t, err)
	assert.Equal(t, entry.ID, decoded.ID)
	assert.Nil(t, decoded.Chunk.Metadata)
	assert.Nil(t, decoded.Vector)
	assert.True(t, decoded.InsertedAt.IsZero())
}

func TestSourceRecordRoundTrip(t *testing.T) {
	source := &core.SourceRecord{
		FileID:     "f00d",
		Path:       "/docs/guide.pdf",
		Name:       "guide.pdf",
		Chunks:     12,
		Metadata:   map[string]string{core.MetaProjectName: "handbook"},
		IngestedAt: time.Date(2025, 3, 1, 12, 30, 0, 123000, time.UTC),
	}

	decoded, err := UnmarshalSourceRecord(MarshalSourceRecord(source))
	require.NoError(t, err)
	assert.Equal(t, source, decoded)
}

func TestUnmarshal_Invalid(t *testing.T) {
	_, err := UnmarshalIndexEntry([]byte{})
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = UnmarshalSourceRecord([]byte("garbage"))
	assert.ErrorIs(t, err, ErrSerializationFailed)

	data := MarshalIndexEntry(&core.IndexEntry{
		ID:     core.NewChunkID("abc", 0, 0),
		Vector: []float32{1, 2, 3},
	})
	_, err = UnmarshalIndexEntry(data[:len(data)-3])
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestPersistenceError(t *testing.T) {
	cause := errors.New("disk full")
	var err error = &PersistenceError{Entries: 3, Err: cause}

	assert.ErrorIs(t, err, core.ErrPersistence)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "3 entries")

	res := &UpsertResult{Count: 3, Warning: err}
	assert.False(t, res.Durable())
	assert.True(t, (&UpsertResult{}).Durable())
}
