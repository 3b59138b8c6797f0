package core

import (
	com "github.com/mus-format/common-go"
	mapops "github.com/mus-format/mus-go/options/map"
	slops "github.com/mus-format/mus-go/options/slice"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// maxEncodedLength bounds decoded map and slice lengths so corrupt values
// fail instead of allocating.
const maxEncodedLength = 1 << 20

var lengthValidator = com.ValidatorFn[int](func(length int) error {
	if length > maxEncodedLength {
		return com.ErrTooLargeLength
	}
	return nil
})

var (
	metadataMUS = ord.NewValidMapSer[string, string](ord.String, ord.String,
		mapops.WithLenValidator[string, string](lengthValidator))
	vectorMUS = ord.NewValidSliceSer[float32](raw.Float32,
		slops.WithLenValidator[float32](lengthValidator))
	// Times are stored with microsecond precision and decode in UTC.
	timeMUS = raw.TimeUnixMicroUTC
)

var (
	// ChunkIDMUS is the MUS serializer for ChunkID.
	ChunkIDMUS = chunkIDMUS{}
	// ChunkMUS is the MUS serializer for Chunk.
	ChunkMUS = chunkMUS{}
	// IndexEntryMUS is the MUS serializer for IndexEntry.
	IndexEntryMUS = indexEntryMUS{}
	// SourceRecordMUS is the MUS serializer for SourceRecord.
	SourceRecordMUS = sourceRecordMUS{}
)

// unmarshalMetadata decodes an empty map as nil.
func unmarshalMetadata(bs []byte) (v map[string]string, n int, err error) {
	v, n, err = metadataMUS.Unmarshal(bs)
	if err == nil && len(v) == 0 {
		v = nil
	}
	return
}

// unmarshalVector decodes an empty vector as nil.
func unmarshalVector(bs []byte) (v []float32, n int, err error) {
	v, n, err = vectorMUS.Unmarshal(bs)
	if err == nil && len(v) == 0 {
		v = nil
	}
	return
}

type chunkIDMUS struct{}

func (s chunkIDMUS) Marshal(v ChunkID, bs []byte) (n int) {
	return ord.String.Marshal(string(v), bs)
}

func (s chunkIDMUS) Unmarshal(bs []byte) (v ChunkID, n int, err error) {
	str, n, err := ord.String.Unmarshal(bs)
	return ChunkID(str), n, err
}

func (s chunkIDMUS) Size(v ChunkID) (size int) {
	return ord.String.Size(string(v))
}

func (s chunkIDMUS) Skip(bs []byte) (n int, err error) {
	return ord.String.Skip(bs)
}

type chunkMUS struct{}

func (s chunkMUS) Marshal(v Chunk, bs []byte) (n int) {
	n = ord.String.Marshal(v.Text, bs)
	n += metadataMUS.Marshal(v.Metadata, bs[n:])
	n += varint.Int.Marshal(v.Index, bs[n:])
	n += varint.Int.Marshal(v.Start, bs[n:])
	return n + varint.Int.Marshal(v.End, bs[n:])
}

func (s chunkMUS) Unmarshal(bs []byte) (v Chunk, n int, err error) {
	v.Text, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Metadata, n1, err = unmarshalMetadata(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Index, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Start, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.End, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	return
}

func (s chunkMUS) Size(v Chunk) (size int) {
	size = ord.String.Size(v.Text)
	size += metadataMUS.Size(v.Metadata)
	size += varint.Int.Size(v.Index)
	size += varint.Int.Size(v.Start)
	return size + varint.Int.Size(v.End)
}

func (s chunkMUS) Skip(bs []byte) (n int, err error) {
	n, err = ord.String.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = metadataMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	for range 3 {
		n1, err = varint.Int.Skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

type indexEntryMUS struct{}

func (s indexEntryMUS) Marshal(v IndexEntry, bs []byte) (n int) {
	n = ChunkIDMUS.Marshal(v.ID, bs)
	n += ChunkMUS.Marshal(v.Chunk, bs[n:])
	n += vectorMUS.Marshal(v.Vector, bs[n:])
	n += timeMUS.Marshal(v.InsertedAt, bs[n:])
	return n + timeMUS.Marshal(v.UpdatedAt, bs[n:])
}

func (s indexEntryMUS) Unmarshal(bs []byte) (v IndexEntry, n int, err error) {
	v.ID, n, err = ChunkIDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Chunk, n1, err = ChunkMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Vector, n1, err = unmarshalVector(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.InsertedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s indexEntryMUS) Size(v IndexEntry) (size int) {
	size = ChunkIDMUS.Size(v.ID)
	size += ChunkMUS.Size(v.Chunk)
	size += vectorMUS.Size(v.Vector)
	size += timeMUS.Size(v.InsertedAt)
	return size + timeMUS.Size(v.UpdatedAt)
}

func (s indexEntryMUS) Skip(bs []byte) (n int, err error) {
	n, err = ChunkIDMUS.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = ChunkMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = vectorMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = timeMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = timeMUS.Skip(bs[n:])
	n += n1
	return
}

type sourceRecordMUS struct{}

func (s sourceRecordMUS) Marshal(v SourceRecord, bs []byte) (n int) {
	n = ord.String.Marshal(v.FileID, bs)
	n += ord.String.Marshal(v.Path, bs[n:])
	n += ord.String.Marshal(v.Name, bs[n:])
	n += varint.Int.Marshal(v.Chunks, bs[n:])
	n += metadataMUS.Marshal(v.Metadata, bs[n:])
	return n + timeMUS.Marshal(v.IngestedAt, bs[n:])
}

func (s sourceRecordMUS) Unmarshal(bs []byte) (v SourceRecord, n int, err error) {
	v.FileID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Path, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Name, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Chunks, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Metadata, n1, err = unmarshalMetadata(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.IngestedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s sourceRecordMUS) Size(v SourceRecord) (size int) {
	size = ord.String.Size(v.FileID)
	size += ord.String.Size(v.Path)
	size += ord.String.Size(v.Name)
	size += varint.Int.Size(v.Chunks)
	size += metadataMUS.Size(v.Metadata)
	return size + timeMUS.Size(v.IngestedAt)
}

func (s sourceRecordMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	for range 3 {
		n1, err = ord.String.Skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = metadataMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = timeMUS.Skip(bs[n:])
	n += n1
	return
}
