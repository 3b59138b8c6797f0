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


package storage

import (
	"errors"
	"fmt"

	"github.com/poiesic/docchat/core"
)

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrEmbedderRequired is returned when an index is built without an embedder.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrBackendRequired is returned when a repository is built without a backend.
	ErrBackendRequired = errors.New("backend required")
)

// PersistenceError is the warning attached to an UpsertResult whose entries
// were indexed in memory but could not be flushed to disk.
type PersistenceError struct {
	Entries int
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %d entries not flushed: %v", core.ErrPersistence, e.Entries, e.Err)
}

// Unwrap exposes both core.ErrPersistence and the underlying cause.
func (e *PersistenceError) Unwrap() []error {
	return []error{core.ErrPersistence, e.Err}
}
