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
	"context"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/deft/core"
	"github.com/poiesic/deft/storage"
)

type RunRepository struct {
	backend *Backend
}

var _ storage.RunRepository = (*RunRepository)(nil)

func NewRunRepository(backend *Backend) (*RunRepository, error) {
	return &RunRepository{
		backend: backend,
	}, nil
}

func (r *RunRepository) Close() error {
	return nil
}

func (r *RunRepository) SaveRun(ctx context.Context, run *core.Run) error {
	if run == nil || run.Id == "" {
		return fmt.Errorf("%w: run id is required", storage.ErrInvalidQuery)
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeRunKey(run.Id), storage.MarshalRun(run)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

func (r *RunRepository) LoadRun(ctx context.Context, id string) (*core.Run, error) {
	var run *core.Run
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeRunKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}

		return item.Value(func(val []byte) error {
			var unmarshalErr error
			run, unmarshalErr = storage.UnmarshalRun(val)
			return unmarshalErr
		})
	}, false)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("%w: run %s", storage.ErrNotFound, id)
	}
	return run, nil
}

func (r *RunRepository) ListRuns(ctx context.Context) ([]*core.Run, error) {
	runs := []*core.Run{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanValues(tx, []byte(runPrefix), func(key, val []byte) error {
			run, err := storage.UnmarshalRun(val)
			if err != nil {
				return err
			}
			runs = append(runs, run)
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(runs, func(a, b *core.Run) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	return runs, nil
}
