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

// ExactMatcher matches text against primary labels, ignoring case.
type ExactMatcher struct {
	vocab  LabelLookup
	prefix string
}

var _ Matcher = (*ExactMatcher)(nil)

// NewExactMatcher creates a matcher over the terms in prefix's namespace.
// An empty prefix matches terms of every vocabulary.
func NewExactMatcher(vocab LabelLookup, prefix string) (*ExactMatcher, error) {
	if vocab == nil {
		return nil, ErrVocabularyRequired
	}
	return &ExactMatcher{vocab: vocab, prefix: prefix}, nil
}

func (m *ExactMatcher) Name() string {
	return matcherName("ExactMatcher", m.prefix)
}

func (m *ExactMatcher) Match(ctx context.Context, text string) ([]core.Identifier, error) {
	ids, err := m.vocab.LookupLabel(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: label %q: %w", ErrLookupFailed, text, err)
	}
	return filterPrefix(ids, m.prefix), nil
}
