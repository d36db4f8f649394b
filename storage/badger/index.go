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
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/deft/core"
	"github.com/poiesic/deft/storage"
)

// IndexRepository stores embedded labels and synonyms keyed by row number.
// Search is a brute-force inner product over all rows; the decoded rows are
// cached in memory until the next write. Every stored vector has the same
// length.
type IndexRepository struct {
	backend *Backend
	logger  *slog.Logger

	writeMu sync.Mutex

	mu    sync.RWMutex
	cache []*core.IndexEntry
}

var _ storage.IndexRepository = (*IndexRepository)(nil)

func NewIndexRepository(backend *Backend) (*IndexRepository, error) {
	return &IndexRepository{
		backend: backend,
		logger:  slog.Default().With("component", "index-repository"),
	}, nil
}

func (r *IndexRepository) Close() error {
	return nil
}

// PutEntries stores entries at their row numbers. A row that is already
// stored, or a vector whose length differs from the stored vectors, fails the
// whole call with core.ErrDataIntegrity.
func (r *IndexRepository) PutEntries(ctx context.Context, entries ...*core.IndexEntry) error {
	for _, entry := range entries {
		if err := core.ValidateIndexEntry(entry); err != nil {
			return err
		}
		if entry.Row < 0 {
			return fmt.Errorf("%w: %s: negative row %d", core.ErrInvalidIndexEntry, entry.Id, entry.Row)
		}
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		dim, err := storedDimension(tx)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if dim == 0 {
				dim = len(entry.Vector)
			}
			if len(entry.Vector) != dim {
				return fmt.Errorf("%w: row %d has %d dimensions, index has %d",
					core.ErrDataIntegrity, entry.Row, len(entry.Vector), dim)
			}

			key := makeIndexKey(entry.Row)
			_, err := tx.Get(key)
			if err == nil {
				return fmt.Errorf("%w: row %d is already stored", core.ErrDataIntegrity, entry.Row)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := tx.Set(key, storage.MarshalIndexEntry(entry)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return err
	}

	r.invalidate()
	return nil
}

func (r *IndexRepository) Search(ctx context.Context, vector []float32, k int) ([]core.Neighbor, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", storage.ErrInvalidQuery, k)
	}

	entries, err := r.loadEntries(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]core.Neighbor, 0, len(entries))
	for _, entry := range entries {
		if len(entry.Vector) != len(vector) {
			return nil, fmt.Errorf("%w: query has %d dimensions, row %d has %d",
				core.ErrDataIntegrity, len(vector), entry.Row, len(entry.Vector))
		}
		results = append(results, core.Neighbor{
			Row:   entry.Row,
			Score: dotProduct(vector, entry.Vector),
		})
	}

	// Sort by similarity descending, ties by row
	slices.SortFunc(results, func(a, b core.Neighbor) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return cmp.Compare(a.Row, b.Row)
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Entries returns copies of the stored entries ordered by row.
func (r *IndexRepository) Entries(ctx context.Context) ([]*core.IndexEntry, error) {
	entries, err := r.loadEntries(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*core.IndexEntry, len(entries))
	for i, entry := range entries {
		e := *entry
		e.Vector = slices.Clone(entry.Vector)
		out[i] = &e
	}
	return out, nil
}

func (r *IndexRepository) Count(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanKeys(tx, []byte(indexPrefix), func(key []byte) error {
			count++
			return nil
		})
	}, false)
	return count, err
}

func (r *IndexRepository) Clear(ctx context.Context) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete([]byte(indexFingerprint)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return err
	}
	if err := r.backend.DeletePrefix(indexPrefix); err != nil {
		return err
	}
	r.invalidate()
	r.logger.Info("cleared similarity index")
	return nil
}

func (r *IndexRepository) SetFingerprint(ctx context.Context, fingerprint core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set([]byte(indexFingerprint), storage.MarshalID(fingerprint)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

func (r *IndexRepository) Fingerprint(ctx context.Context) (core.ID, bool, error) {
	var fingerprint core.ID
	found := false
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(indexFingerprint))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			fingerprint, err = storage.UnmarshalID(val)
			found = err == nil
			return err
		})
	}, false)
	return fingerprint, found, err
}

func (r *IndexRepository) invalidate() {
	r.mu.Lock()
	r.cache = nil
	r.mu.Unlock()
}

func (r *IndexRepository) loadEntries(ctx context.Context) ([]*core.IndexEntry, error) {
	r.mu.RLock()
	cached := r.cache
	r.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cache != nil {
		return r.cache, nil
	}

	entries := []*core.IndexEntry{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanValues(tx, []byte(indexPrefix), func(key, val []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			row, ok := parseIndexKey(key)
			if !ok {
				return fmt.Errorf("%w: malformed index key %q", core.ErrDataIntegrity, key)
			}
			entry, err := storage.UnmarshalIndexEntry(val)
			if err != nil {
				return err
			}
			entry.Row = row
			entries = append(entries, entry)
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("loaded similarity index", "entries", len(entries))
	r.cache = entries
	return entries, nil
}

// storedDimension returns the vector length of the lowest stored row, or 0
// when the index is empty.
func storedDimension(tx *badger.Txn) (int, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(indexPrefix)
	opts.PrefetchSize = 1
	iter := tx.NewIterator(opts)
	defer iter.Close()

	iter.Rewind()
	if !iter.Valid() {
		return 0, nil
	}
	var dim int
	err := iter.Item().Value(func(val []byte) error {
		entry, err := storage.UnmarshalIndexEntry(val)
		if err != nil {
			return err
		}
		dim = len(entry.Vector)
		return nil
	})
	return dim, err
}

// dotProduct expects vectors of equal length.
func dotProduct(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
