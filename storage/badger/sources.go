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


package badger

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

// SourceRepository implements storage.SourceRepository for BadgerDB.
type SourceRepository struct {
	backend *Backend
}

var _ storage.SourceRepository = (*SourceRepository)(nil)

// NewSourceRepository creates a new SourceRepository.
func NewSourceRepository(backend *Backend) (storage.SourceRepository, error) {
	if backend == nil {
		return nil, storage.ErrBackendRequired
	}
	return &SourceRepository{
		backend: backend,
	}, nil
}

// SaveSource persists the record of an ingested file.
func (r *SourceRepository) SaveSource(ctx context.Context, source *core.SourceRecord) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if source.IngestedAt.IsZero() {
			source.IngestedAt = time.Now().UTC()
		}
		if err := tx.Set(makeSourceKey(source.FileID), storage.MarshalSourceRecord(source)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetSource retrieves the record for a file fingerprint.
// Returns nil, nil if the file was never ingested.
func (r *SourceRepository) GetSource(ctx context.Context, fileID string) (*core.SourceRecord, error) {
	var source *core.SourceRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeSourceKey(fileID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}

		return item.Value(func(val []byte) error {
			var unmarshalErr error
			source, unmarshalErr = storage.UnmarshalSourceRecord(val)
			return unmarshalErr
		})
	}, false)

	return source, err
}

// ListSources returns every ingested file ordered by name, then path.
func (r *SourceRepository) ListSources(ctx context.Context) ([]*core.SourceRecord, error) {
	var sources []*core.SourceRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(sourcePrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				source, err := storage.UnmarshalSourceRecord(val)
				if err != nil {
					return err
				}
				sources = append(sources, source)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(sources, func(a, b *core.SourceRecord) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.Path, b.Path))
	})
	return sources, nil
}
