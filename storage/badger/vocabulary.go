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
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/deft/core"
	"github.com/poiesic/deft/storage"
)

type VocabularyRepository struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.VocabularyRepository = (*VocabularyRepository)(nil)

func NewVocabularyRepository(backend *Backend) (*VocabularyRepository, error) {
	return &VocabularyRepository{
		backend: backend,
		logger:  slog.Default().With("component", "vocabulary-repository"),
	}, nil
}

func (r *VocabularyRepository) Close() error {
	return nil
}

func (r *VocabularyRepository) AddTerms(ctx context.Context, terms ...*core.Term) error {
	for _, term := range terms {
		if err := core.ValidateTerm(term); err != nil {
			return err
		}
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, term := range terms {
			if err := ctx.Err(); err != nil {
				return err
			}

			key := makeTermKey(term.Id)
			old, err := readTerm(tx, key)
			if err != nil {
				return err
			}
			if old != nil {
				if err := deleteTermLookups(tx, old); err != nil {
					return err
				}
			}

			if err := tx.Set(key, storage.MarshalTerm(term)); err != nil {
				return err
			}
			if err := setTermLookups(tx, term); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

func setTermLookups(tx *badger.Txn, term *core.Term) error {
	if err := tx.Set(makeLabelKey(core.NormalizeLabel(term.Label), term.Id), []byte{}); err != nil {
		return err
	}
	for _, s := range term.Synonyms {
		key := makeSynonymKey(core.NormalizeLabel(s.Name), term.Id, s.Category, s.Type)
		if err := tx.Set(key, []byte{}); err != nil {
			return err
		}
	}
	if prefix := term.Id.Prefix(); prefix != "" {
		if err := tx.Set(makeVocabularyKey(prefix), []byte{}); err != nil {
			return err
		}
	}
	return nil
}

func deleteTermLookups(tx *badger.Txn, term *core.Term) error {
	if err := tx.Delete(makeLabelKey(core.NormalizeLabel(term.Label), term.Id)); err != nil {
		return err
	}
	for _, s := range term.Synonyms {
		if err := tx.Delete(makeSynonymKey(core.NormalizeLabel(s.Name), term.Id, s.Category, s.Type)); err != nil {
			return err
		}
	}
	return nil
}

func (r *VocabularyRepository) GetTerm(ctx context.Context, id core.Identifier) (*core.Term, error) {
	var term *core.Term
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		term, err = readTerm(tx, makeTermKey(id))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if term == nil {
		return nil, fmt.Errorf("%w: term %s", storage.ErrNotFound, id)
	}
	return term, nil
}

func (r *VocabularyRepository) LookupLabel(ctx context.Context, label string) ([]core.Identifier, error) {
	label = core.NormalizeLabel(label)
	ids := []core.Identifier{}
	if label == "" {
		return ids, nil
	}

	prefix := makeLabelScanPrefix(label)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanKeys(tx, prefix, func(key []byte) error {
			ids = append(ids, core.Identifier(key[len(prefix):]))
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("label lookup", "label", label, "hits", len(ids))
	return ids, nil
}

func (r *VocabularyRepository) LookupSynonym(ctx context.Context, label string, categories []core.SynonymCategory, types []core.SynonymType) ([]core.Identifier, error) {
	label = core.NormalizeLabel(label)
	ids := []core.Identifier{}
	if label == "" {
		return ids, nil
	}

	prefix := makeSynonymScanPrefix(label)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanKeys(tx, prefix, func(key []byte) error {
			id, category, synonymType, ok := parseSynonymKey(key[len(prefix):])
			if !ok {
				return fmt.Errorf("%w: malformed synonym key %q", core.ErrDataIntegrity, key)
			}
			if len(categories) > 0 && !slices.Contains(categories, category) {
				return nil
			}
			if len(types) > 0 && !slices.Contains(types, synonymType) {
				return nil
			}
			if !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("synonym lookup", "label", label, "hits", len(ids))
	return ids, nil
}

func (r *VocabularyRepository) ForEachTerm(ctx context.Context, fn func(*core.Term) error) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		return scanValues(tx, []byte(termPrefix), func(key, val []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			term, err := storage.UnmarshalTerm(val)
			if err != nil {
				return err
			}
			return fn(term)
		})
	}, false)
}

func (r *VocabularyRepository) Prefixes(ctx context.Context) ([]string, error) {
	prefixes := []string{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanKeys(tx, []byte(vocabularyPrefix), func(key []byte) error {
			prefixes = append(prefixes, string(bytes.TrimPrefix(key, []byte(vocabularyPrefix))))
			return nil
		})
	}, false)
	return prefixes, err
}

func (r *VocabularyRepository) Count(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanKeys(tx, []byte(termPrefix), func(key []byte) error {
			count++
			return nil
		})
	}, false)
	return count, err
}

func readTerm(tx *badger.Txn, key []byte) (*core.Term, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var term *core.Term
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		term, unmarshalErr = storage.UnmarshalTerm(val)
		return unmarshalErr
	})
	return term, err
}
