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


// Package storage provides the storage abstraction layer for docchat.
//
// This package defines the interfaces that decouple the embedding index and
// the ingestion ledger from their implementation. The only backend today is
// storage/badger.
//
// # Constructor Return Type Pattern
//
// Public constructors return interfaces:
//
//	index, err := badger.NewIndex(backend, embedder)  // returns storage.IndexStore
//
// Internal constructors may return concrete types for use inside the
// implementation package and its tests.
//
// # Writes
//
// IndexStore.Upsert is two-phase. Entries are first placed in an in-memory
// working set, where they are immediately searchable, and then flushed to
// disk. A failed flush is reported as UpsertResult.Warning (a
// *PersistenceError) rather than as an error, and the working set is not
// rolled back.
//
// # Thread Safety
//
// All implementations must be thread-safe. Reads proceed concurrently;
// writes are serialized and the last writer of an id wins.
package storage
