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
	"slices"

	"github.com/poiesic/deft/core"
)

// SynonymMatcher matches text against term synonyms, ignoring case.
// A synonym may belong to several terms; all of them are returned.
type SynonymMatcher struct {
	vocab      SynonymLookup
	prefix     string
	categories []core.SynonymCategory
	types      []core.SynonymType
}

var _ Matcher = (*SynonymMatcher)(nil)

// SynonymOption configures a SynonymMatcher.
type SynonymOption func(*SynonymMatcher) error

// WithCategories restricts matches to synonyms of the given categories.
// No categories means any category.
func WithCategories(categories ...core.SynonymCategory) SynonymOption {
	return func(m *SynonymMatcher) error {
		m.categories = slices.Clone(categories)
		return nil
	}
}

// WithTypes restricts matches to synonyms of the given types.
// No types means any type.
func WithTypes(types ...core.SynonymType) SynonymOption {
	return func(m *SynonymMatcher) error {
		m.types = slices.Clone(types)
		return nil
	}
}

func NewSynonymMatcher(vocab SynonymLookup, prefix string, opts ...SynonymOption) (*SynonymMatcher, error) {
	if vocab == nil {
		return nil, ErrVocabularyRequired
	}

	m := &SynonymMatcher{vocab: vocab, prefix: prefix}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *SynonymMatcher) Name() string {
	return matcherName("SynonymMatcher", m.prefix)
}

func (m *SynonymMatcher) Match(ctx context.Context, text string) ([]core.Identifier, error) {
	ids, err := m.vocab.LookupSynonym(ctx, text, m.categories, m.types)
	if err != nil {
		return nil, fmt.Errorf("%w: synonym %q: %w", ErrLookupFailed, text, err)
	}
	return filterPrefix(ids, m.prefix), nil
}
