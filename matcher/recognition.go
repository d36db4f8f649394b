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
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/deft/core"
)

// RecognitionMatcher finds vocabulary concepts mentioned anywhere in the text.
// Labels and synonyms are indexed as accent-folded token multisets, so word
// order inside a phrase does not matter ("loss hearing" finds "Hearing loss").
//
// The index is built once at construction and is read-only afterwards.
type RecognitionMatcher struct {
	prefix  string
	roots   []core.Identifier
	phrases map[string][]core.Identifier
	longest int
	logger  *slog.Logger
}

var _ Matcher = (*RecognitionMatcher)(nil)

// RecognitionOption configures a RecognitionMatcher.
type RecognitionOption func(*RecognitionMatcher) error

// WithRootConcepts restricts recognition to the given concepts and their
// descendants through Term.Parents.
func WithRootConcepts(roots ...core.Identifier) RecognitionOption {
	return func(m *RecognitionMatcher) error {
		for _, root := range roots {
			if root == "" {
				return fmt.Errorf("%w: empty root concept", ErrInvalidOption)
			}
		}
		m.roots = slices.Clone(roots)
		return nil
	}
}

// WithRecognitionLogger sets a custom logger.
// Default is slog.Default().
func WithRecognitionLogger(logger *slog.Logger) RecognitionOption {
	return func(m *RecognitionMatcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

// NewRecognitionMatcher indexes the labels and synonyms of every term in
// prefix's namespace. An empty prefix indexes every vocabulary.
func NewRecognitionMatcher(ctx context.Context, terms TermSource, prefix string, opts ...RecognitionOption) (*RecognitionMatcher, error) {
	if terms == nil {
		return nil, ErrVocabularyRequired
	}

	m := &RecognitionMatcher{
		prefix:  prefix,
		phrases: make(map[string][]core.Identifier),
		logger:  slog.Default().With("component", "recognition-matcher"),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	var selected []*core.Term
	err := terms.ForEachTerm(ctx, func(term *core.Term) error {
		if prefix == "" || term.Id.Prefix() == prefix {
			selected = append(selected, term)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: loading terms: %w", ErrLookupFailed, err)
	}

	if len(m.roots) > 0 {
		selected = descendants(selected, m.roots)
	}

	for _, term := range selected {
		m.add(term.Label, term.Id)
		for _, s := range term.Synonyms {
			m.add(s.Name, term.Id)
		}
	}

	m.logger.Debug("built recognition index",
		"prefix", prefix,
		"terms", len(selected),
		"phrases", len(m.phrases),
		"longest", m.longest)
	return m, nil
}

func (m *RecognitionMatcher) add(phrase string, id core.Identifier) {
	tokens := core.FoldedTokens(phrase)
	if len(tokens) == 0 {
		return
	}
	key := phraseKey(tokens)
	if !slices.Contains(m.phrases[key], id) {
		m.phrases[key] = append(m.phrases[key], id)
	}
	m.longest = max(m.longest, len(tokens))
}

func (m *RecognitionMatcher) Name() string {
	return matcherName("RecognitionMatcher", m.prefix)
}

// Match scans text left to right. At each position the longest token window
// that equals an indexed phrase wins and scanning resumes after it. Identifiers
// are returned in order of first mention.
func (m *RecognitionMatcher) Match(ctx context.Context, text string) ([]core.Identifier, error) {
	tokens := core.FoldedTokens(text)
	found := []core.Identifier{}

	for i := 0; i < len(tokens); {
		width := 0
		for w := min(m.longest, len(tokens)-i); w > 0; w-- {
			ids, ok := m.phrases[phraseKey(tokens[i:i+w])]
			if !ok {
				continue
			}
			for _, id := range ids {
				if !slices.Contains(found, id) {
					found = append(found, id)
				}
			}
			width = w
			break
		}
		if width == 0 {
			width = 1
		}
		i += width
	}
	return found, nil
}

// phraseKey is the canonical form of a token multiset.
func phraseKey(tokens []string) string {
	sorted := slices.Clone(tokens)
	slices.Sort(sorted)
	return strings.Join(sorted, " ")
}

// descendants keeps the roots and every term reachable from them via child links.
func descendants(terms []*core.Term, roots []core.Identifier) []*core.Term {
	children := make(map[core.Identifier][]core.Identifier)
	for _, term := range terms {
		for _, parent := range term.Parents {
			children[parent] = append(children[parent], term.Id)
		}
	}

	keep := make(map[core.Identifier]bool)
	queue := slices.Clone(roots)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if keep[id] {
			continue
		}
		keep[id] = true
		queue = append(queue, children[id]...)
	}

	out := make([]*core.Term, 0, len(keep))
	for _, term := range terms {
		if keep[term.Id] {
			out = append(out, term)
		}
	}
	return out
}
