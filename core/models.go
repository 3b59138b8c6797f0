package core

import (
	"strconv"
	"time"
)

// Metadata keys attached to documents and chunks.
const (
	MetaSourcePath   = "source_path"
	MetaSourceFileID = "source_file_id"
	MetaSourceName   = "source_name"
	MetaPage         = "page"
	MetaChunkIndex   = "chunk_index"
	MetaStartIndex   = "start_index"
	MetaProjectName  = "project_name"
)

// Document is the normalized text of one loaded unit (a whole file, or a
// single page for paged formats) plus its provenance metadata.
type Document struct {
	Text     string
	Metadata map[string]string
}

// Page returns the page number recorded on the document, or 0 when the
// loader supplied none.
func (d *Document) Page() int {
	return pageOf(d.Metadata)
}

// Chunk is a contiguous substring of a Document's text.
// It carries the document metadata plus its ordinal and rune offset.
type Chunk struct {
	Text     string
	Metadata map[string]string
	Index    int // ordinal within the originating document
	Start    int // rune offset of Text within the document
	End      int // rune offset one past the last rune of Text
}

// FileID returns the fingerprint of the source file.
func (c *Chunk) FileID() string {
	return c.Metadata[MetaSourceFileID]
}

// SourceName returns the display name of the source file.
func (c *Chunk) SourceName() string {
	return c.Metadata[MetaSourceName]
}

// Page returns the chunk's page number, or 0 when absent.
func (c *Chunk) Page() int {
	return pageOf(c.Metadata)
}

// IndexEntry is a chunk and its embedding, keyed by ChunkID.
type IndexEntry struct {
	ID         ChunkID
	Chunk      Chunk
	Vector     []float32
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// SearchResult is one ranked hit from a similarity search.
type SearchResult struct {
	Entry *IndexEntry
	Score float32
}

// RetrievalResult is the ordered top-k hits for one query.
type RetrievalResult struct {
	Query   string
	Results []*SearchResult
}

// Chunks returns the chunks of the result in rank order.
func (r *RetrievalResult) Chunks() []Chunk {
	chunks := make([]Chunk, 0, len(r.Results))
	for _, res := range r.Results {
		chunks = append(chunks, res.Entry.Chunk)
	}
	return chunks
}

// Role identifies the author of a conversational turn.
type Role int

const (
	// RoleUser is a message typed by the person chatting.
	RoleUser Role = iota + 1
	// RoleAssistant is a generated answer.
	RoleAssistant
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// Turn is a single message in a session.
type Turn struct {
	Role Role
	Text string
}

// SourceRecord describes one ingested file.
type SourceRecord struct {
	FileID     string
	Path       string
	Name       string
	Chunks     int
	Metadata   map[string]string
	IngestedAt time.Time
}

func pageOf(meta map[string]string) int {
	raw, ok := meta[MetaPage]
	if !ok {
		return 0
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return page
}
