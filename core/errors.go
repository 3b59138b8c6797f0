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


package core

import "errors"

// Pipeline errors shared by every stage.
var (
	// ErrUnsupportedFormat indicates no loader is registered for a file extension.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrArityMismatch indicates the chunk and id lists differ in length.
	ErrArityMismatch = errors.New("chunk and id counts differ")

	// ErrPersistence indicates entries were indexed but could not be made durable.
	ErrPersistence = errors.New("index persistence failed")

	// ErrEmbedding indicates the embedding capability failed.
	ErrEmbedding = errors.New("embedding failed")

	// ErrGeneration indicates the language model failed.
	ErrGeneration = errors.New("generation failed")

	// ErrRetrieval indicates the similarity search failed.
	ErrRetrieval = errors.New("retrieval failed")
)

// Validation errors
var (
	// ErrInvalidChunkParams indicates chunk size or overlap are out of range.
	ErrInvalidChunkParams = errors.New("invalid chunk parameters")

	// ErrInvalidK indicates a retrieval depth below 1 or above the maximum.
	ErrInvalidK = errors.New("invalid retrieval depth")

	// ErrEmptyQuestion indicates a chat question is blank.
	ErrEmptyQuestion = errors.New("question cannot be empty")

	// ErrEmptyFingerprint indicates a chunk has no source fingerprint.
	ErrEmptyFingerprint = errors.New("source fingerprint cannot be empty")

	// ErrInvalidRole indicates an unknown turn role.
	ErrInvalidRole = errors.New("invalid role")
)
