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
	"context"

	"github.com/poiesic/deft/core"
)

// Repository is the lifecycle shared by all repositories.
type Repository interface {
	// Close releases resources held by the repository.
	// It does not close the backend the repository was created from.
	Close() error
}

// VocabularyRepository stores ontology terms and answers exact and synonym lookups.
// Lookups compare case-insensitively: keys are normalized with core.NormalizeLabel.
type VocabularyRepository interface {
	Repository

	// AddTerms inserts or replaces terms. A replaced term's old label and
	// synonym entries are removed. Terms are validated with core.ValidateTerm.
	AddTerms(ctx context.Context, terms ...*core.Term) error

	// GetTerm retrieves a term by identifier.
	// Returns ErrNotFound if the term doesn't exist.
	GetTerm(ctx context.Context, id core.Identifier) (*core.Term, error)

	// LookupLabel returns the identifiers whose primary label equals label.
	// Returns an empty slice when nothing matches.
	LookupLabel(ctx context.Context, label string) ([]core.Identifier, error)

	// LookupSynonym returns the identifiers with a synonym equal to label whose
	// category and type pass the allow-lists. A nil or empty allow-list accepts any.
	LookupSynonym(ctx context.Context, label string, categories []core.SynonymCategory, types []core.SynonymType) ([]core.Identifier, error)

	// ForEachTerm calls fn for every term in identifier order.
	// Iteration stops at the first error returned by fn.
	ForEachTerm(ctx context.Context, fn func(*core.Term) error) error

	// Prefixes returns the identifier prefixes of the stored vocabularies, sorted.
	Prefixes(ctx context.Context) ([]string, error)

	// Count returns the number of stored terms.
	Count(ctx context.Context) (int, error)
}

// IndexRepository stores the similarity index: embedded labels and synonyms
// addressed by row number.
type IndexRepository interface {
	Repository

	// PutEntries stores entries at their row numbers. Rows must be new and
	// every vector must have the length of the vectors already stored.
	PutEntries(ctx context.Context, entries ...*core.IndexEntry) error

	// Search returns the k rows whose vectors have the highest inner product with
	// vector, highest first. A query whose length differs from the stored
	// vectors fails with core.ErrDataIntegrity.
	Search(ctx context.Context, vector []float32, k int) ([]core.Neighbor, error)

	// Entries returns every entry ordered by row.
	Entries(ctx context.Context) ([]*core.IndexEntry, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// Clear removes every entry and the fingerprint.
	Clear(ctx context.Context) error

	// SetFingerprint records the content fingerprint of a completed build.
	SetFingerprint(ctx context.Context, fingerprint core.ID) error

	// Fingerprint returns the recorded fingerprint. The boolean is false when
	// no build has completed since the last Clear.
	Fingerprint(ctx context.Context) (core.ID, bool, error)
}

// RunRepository persists pipeline run summaries.
type RunRepository interface {
	Repository

	// SaveRun inserts or replaces a run.
	SaveRun(ctx context.Context, run *core.Run) error

	// LoadRun retrieves a run by id.
	// Returns ErrNotFound if the run doesn't exist.
	LoadRun(ctx context.Context, id string) (*core.Run, error)

	// ListRuns returns all runs, most recently started first.
	ListRuns(ctx context.Context) ([]*core.Run, error)
}
