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


package retrieve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/deft/ai"
	"github.com/poiesic/deft/core"
)

// Index is the similarity oracle: nearest-neighbor search over unit vectors plus
// the metadata table mapping rows to identifiers and text.
type Index interface {
	// Search returns up to k (row, score) pairs. Scores are inner products.
	// The order of equal scores is not guaranteed.
	Search(ctx context.Context, vector []float32, k int) ([]core.Neighbor, error)

	// Entries returns the metadata table.
	Entries(ctx context.Context) ([]*core.IndexEntry, error)
}

type metadata struct {
	id   core.Identifier
	text string
}

type Retriever struct {
	embedder ai.Embedder
	index    Index
	params   Params
	rows     map[int]metadata
	logger   *slog.Logger
}

type Option func(*Retriever) error

func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// New validates params and loads the metadata table from index. The table is
// immutable for the lifetime of the Retriever.
func New(ctx context.Context, embedder ai.Embedder, index Index, params Params, opts ...Option) (*Retriever, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	r := &Retriever{
		embedder: embedder,
		index:    index,
		params:   params,
		logger:   slog.Default().With("component", "retriever"),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	entries, err := index.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: loading metadata: %w", ErrOracleUnavailable, err)
	}
	r.rows = make(map[int]metadata, len(entries))
	for _, entry := range entries {
		if _, dup := r.rows[entry.Row]; dup {
			return nil, fmt.Errorf("%w: duplicate metadata for row %d", core.ErrDataIntegrity, entry.Row)
		}
		r.rows[entry.Row] = metadata{id: entry.Id, text: entry.Text}
	}

	r.logger.Debug("loaded metadata table", "rows", len(r.rows))
	return r, nil
}

// Params returns the retrieval parameters.
func (r *Retriever) Params() Params {
	return r.params
}

// Candidates returns the ranked, deduplicated candidates for phrase.
func (r *Retriever) Candidates(ctx context.Context, phrase string) ([]core.Candidate, error) {
	return r.CandidatesWithMonitor(ctx, phrase, nil)
}

// CandidatesWithMonitor is Candidates reporting each decision to monitor.
func (r *Retriever) CandidatesWithMonitor(ctx context.Context, phrase string, monitor Monitor) ([]core.Candidate, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(phrase)

	vector, err := r.embedder.EmbedText(ctx, phrase)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding %q: %w", ErrOracleUnavailable, phrase, err)
	}

	neighbors, err := r.index.Search(ctx, core.NormalizeVector(vector), r.params.AmountToSearch)
	if errors.Is(err, core.ErrDataIntegrity) {
		return nil, fmt.Errorf("searching %q: %w", phrase, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: searching %q: %w", ErrOracleUnavailable, phrase, err)
	}

	// The index's order among equal scores is unspecified; sort explicitly.
	neighbors = slices.Clone(neighbors)
	slices.SortStableFunc(neighbors, func(a, b core.Neighbor) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})
	monitor.AfterSearch(neighbors)

	phraseTokens := core.TokenSet(phrase)
	accepted := make([]core.Candidate, 0, r.params.MaxCandidates)
	seen := make(map[core.Identifier]struct{}, r.params.MaxCandidates)

	for _, neighbor := range neighbors {
		if len(accepted) >= r.params.MaxCandidates {
			break
		}

		meta, ok := r.rows[neighbor.Row]
		if !ok {
			return nil, fmt.Errorf("%w: neighbor row %d has no metadata", core.ErrDataIntegrity, neighbor.Row)
		}
		if meta.id == "" || strings.TrimSpace(meta.text) == "" {
			return nil, fmt.Errorf("%w: row %d has an empty identifier or text", core.ErrDataIntegrity, neighbor.Row)
		}

		candidate := core.Candidate{Id: meta.id, Description: meta.text, Score: neighbor.Score}
		if _, dup := seen[meta.id]; dup {
			monitor.Decided(candidate, SkippedDuplicate)
			continue
		}

		decision := r.decide(candidate, len(accepted), phraseTokens)
		monitor.Decided(candidate, decision)
		if !decision.Accepted() {
			continue
		}

		seen[meta.id] = struct{}{}
		accepted = append(accepted, candidate)
	}

	r.logger.Debug("retrieved candidates",
		"phrase", phrase,
		"neighbors", len(neighbors),
		"accepted", len(accepted))
	monitor.Finish(accepted)
	return accepted, nil
}

// decide applies the acceptance rule: threshold, then the min_candidates
// floor, then lexical overlap when hybrid search is on.
func (r *Retriever) decide(candidate core.Candidate, acceptedSoFar int, phraseTokens map[string]struct{}) Decision {
	if candidate.Score >= r.params.SimilarityThreshold {
		return AcceptedByThreshold
	}
	if acceptedSoFar < r.params.MinCandidates {
		return AcceptedByMinimum
	}
	if r.params.HybridSearch && core.SharesToken(phraseTokens, candidate.Description) {
		return AcceptedByTokenOverlap
	}
	return SkippedBelowThreshold
}
