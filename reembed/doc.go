// Package reembed rebuilds the vectors of every indexed chunk, typically
// after the embedding model changed.
//
// Chunks are read from the index in id order, embedded in batches on a
// worker pool with exponential-backoff retries, normalized to unit length
// and written back with storage.IndexStore.UpdateVectors. Chunk text,
// metadata and ids are left untouched.
package reembed
