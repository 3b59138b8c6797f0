package core

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// ChunkID is the stable identity of a chunk: fingerprint, page and ordinal.
type ChunkID string

// fingerprintSize is the BLAKE2b digest length in bytes.
const fingerprintSize = 32

// Fingerprint returns the hex BLAKE2b-256 digest of everything read from r.
// Identical bytes always produce the same fingerprint.
func Fingerprint(r io.Reader) (string, error) {
	h, err := blake2b.New(fingerprintSize, nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FingerprintBytes is Fingerprint over an in-memory buffer.
func FingerprintBytes(data []byte) string {
	h, _ := blake2b.New(fingerprintSize, nil)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// NewChunkID formats the identity of the index-th chunk of a page.
// Page 0 stands for "no page".
func NewChunkID(fingerprint string, page, index int) ChunkID {
	return ChunkID(fmt.Sprintf("%s::p%d::c%d", fingerprint, page, index))
}

// ChunkIDFor derives the identity of a chunk from its metadata.
func ChunkIDFor(chunk *Chunk) (ChunkID, error) {
	fp := chunk.FileID()
	if fp == "" {
		return "", ErrEmptyFingerprint
	}
	return NewChunkID(fp, chunk.Page(), chunk.Index), nil
}

// AssignIDs derives identities for a batch of chunks, preserving order.
func AssignIDs(chunks []Chunk) ([]ChunkID, error) {
	ids := make([]ChunkID, len(chunks))
	for i := range chunks {
		id, err := ChunkIDFor(&chunks[i])
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		ids[i] = id
	}
	return ids, nil
}

// Parse splits a ChunkID back into its parts.
func (id ChunkID) Parse() (fingerprint string, page, index int, err error) {
	parts := strings.Split(string(id), "::")
	if len(parts) != 3 || !strings.HasPrefix(parts[1], "p") || !strings.HasPrefix(parts[2], "c") {
		return "", 0, 0, fmt.Errorf("malformed chunk id %q", id)
	}
	page, err = strconv.Atoi(parts[1][1:])
	if err != nil {
		return "", 0, 0, fmt.Errorf("malformed page in chunk id %q: %w", id, err)
	}
	index, err = strconv.Atoi(parts[2][1:])
	if err != nil {
		return "", 0, 0, fmt.Errorf("malformed index in chunk id %q: %w", id, err)
	}
	return parts[0], page, index, nil
}

func (id ChunkID) String() string {
	return string(id)
}
