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


package matcher

import (
	"context"
	"fmt"

	"github.com/poiesic/deft/core"
)

// Matcher proposes candidate identifiers for a single free-text string.
// Implementations must be safe for concurrent use; the pipeline may call Match
// from several workers at once.
type Matcher interface {
	// Name identifies the matcher in reports, e.g. "ExactMatcher(HP)".
	Name() string

	// Match returns the candidate identifiers for text. The returned slice is
	// never nil on success and is not retained by the matcher.
	Match(ctx context.Context, text string) ([]core.Identifier, error)
}

// LabelLookup answers primary label lookups.
type LabelLookup interface {
	LookupLabel(ctx context.Context, label string) ([]core.Identifier, error)
}

// SynonymLookup answers synonym lookups with optional allow-lists.
type SynonymLookup interface {
	LookupSynonym(ctx context.Context, label string, categories []core.SynonymCategory, types []core.SynonymType) ([]core.Identifier, error)
}

// TermSource iterates the vocabulary.
type TermSource interface {
	ForEachTerm(ctx context.Context, fn func(*core.Term) error) error
}

// CandidateSource produces ranked candidates for a phrase.
// It is implemented by retrieve.Retriever.
type CandidateSource interface {
	Candidates(ctx context.Context, phrase string) ([]core.Candidate, error)
}

func matcherName(kind, qualifier string) string {
	if qualifier == "" {
		return kind
	}
	return fmt.Sprintf("%s(%s)", kind, qualifier)
}

// filterPrefix keeps the identifiers in the prefix's namespace.
// An empty prefix keeps everything.
func filterPrefix(ids []core.Identifier, prefix string) []core.Identifier {
	out := make([]core.Identifier, 0, len(ids))
	for _, id := range ids {
		if prefix == "" || id.Prefix() == prefix {
			out = append(out, id)
		}
	}
	return out
}
