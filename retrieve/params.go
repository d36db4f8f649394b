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

import "fmt"

// Params controls how many neighbors are fetched and which are accepted.
type Params struct {
	// AmountToSearch is the number of nearest neighbors fetched before filtering.
	// Must exceed MaxCandidates.
	AmountToSearch int

	// MinCandidates is the number of candidates accepted regardless of score.
	MinCandidates int

	// MaxCandidates caps the result size; scanning stops once it is reached.
	MaxCandidates int

	// SimilarityThreshold is the cosine similarity, in [-1, 1], at which a
	// neighbor is accepted on score alone.
	SimilarityThreshold float32

	// HybridSearch accepts neighbors below the threshold when their text shares
	// a word with the phrase.
	HybridSearch bool
}

// DefaultParams returns the parameters used for HPO retrieval.
func DefaultParams() Params {
	return Params{
		AmountToSearch:      500,
		MinCandidates:       15,
		MaxCandidates:       20,
		SimilarityThreshold: 0.35,
		HybridSearch:        true,
	}
}

// Validate reports inconsistent parameter combinations.
func (p Params) Validate() error {
	if p.MaxCandidates < 1 {
		return fmt.Errorf("%w: max_candidates must be at least 1, got %d", ErrInvalidParams, p.MaxCandidates)
	}
	if p.AmountToSearch <= p.MaxCandidates {
		return fmt.Errorf("%w: amount_to_search (%d) must exceed max_candidates (%d)",
			ErrInvalidParams, p.AmountToSearch, p.MaxCandidates)
	}
	if p.MinCandidates < 0 || p.MinCandidates > p.MaxCandidates {
		return fmt.Errorf("%w: min_candidates must be between 0 and max_candidates (%d), got %d",
			ErrInvalidParams, p.MaxCandidates, p.MinCandidates)
	}
	if p.SimilarityThreshold < -1 || p.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: similarity_threshold must be in [-1, 1], got %g", ErrInvalidParams, p.SimilarityThreshold)
	}
	return nil
}
