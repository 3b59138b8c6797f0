package badger

import "github.com/poiesic/docchat/core"

// Key prefixes for different data types
const (
	entryPrefix  = "chunk:"
	sourcePrefix = "source:"
)

// makeEntryKey generates a key for an index entry by chunk id.
// Format: chunk:{fingerprint}::p{page}::c{index}
func makeEntryKey(id core.ChunkID) []byte {
	return []byte(entryPrefix + string(id))
}

// makeSourceKey generates a key for an ingested file by fingerprint.
func makeSourceKey(fileID string) []byte {
	return []byte(sourcePrefix + fileID)
}
