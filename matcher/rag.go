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
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/deft/ai"
	"github.com/poiesic/deft/core"
)

// RAGMatcher narrows the vocabulary to a ranked candidate set by similarity
// search, then asks a language model to pick one. The model's answer is only
// accepted when it names one of the candidates.
type RAGMatcher struct {
	retriever     CandidateSource
	disambiguator ai.Disambiguator
	attempts      int
	baseDelay     time.Duration
	logger        *slog.Logger
}

var _ Matcher = (*RAGMatcher)(nil)

// RAGOption configures a RAGMatcher.
type RAGOption func(*RAGMatcher) error

// WithRetry sets how often oracle calls are attempted and the initial backoff.
// Default is 3 attempts starting at 500ms.
func WithRetry(attempts int, baseDelay time.Duration) RAGOption {
	return func(m *RAGMatcher) error {
		if attempts < 1 {
			return fmt.Errorf("%w: retry attempts must be at least 1, got %d", ErrInvalidOption, attempts)
		}
		if baseDelay < 0 {
			return fmt.Errorf("%w: negative retry delay %s", ErrInvalidOption, baseDelay)
		}
		m.attempts = attempts
		m.baseDelay = baseDelay
		return nil
	}
}

// WithRAGLogger sets a custom logger.
// Default is slog.Default().
func WithRAGLogger(logger *slog.Logger) RAGOption {
	return func(m *RAGMatcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

func NewRAGMatcher(retriever CandidateSource, disambiguator ai.Disambiguator, opts ...RAGOption) (*RAGMatcher, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if disambiguator == nil {
		return nil, ErrDisambiguatorRequired
	}

	m := &RAGMatcher{
		retriever:     retriever,
		disambiguator: disambiguator,
		attempts:      3,
		baseDelay:     500 * time.Millisecond,
		logger:        slog.Default().With("component", "rag-matcher"),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *RAGMatcher) Name() string {
	return matcherName("RAGMatcher", m.disambiguator.Model())
}

// Match returns the single identifier the model chose, or nothing when there
// are no candidates or the answer names none of them.
func (m *RAGMatcher) Match(ctx context.Context, text string) ([]core.Identifier, error) {
	var candidates []core.Candidate
	err := ai.RetryWithBackoff(ctx, func() error {
		var err error
		candidates, err = m.retriever.Candidates(ctx, text)
		if errors.Is(err, core.ErrDataIntegrity) {
			return ai.Permanent(err)
		}
		return err
	}, m.attempts, m.baseDelay)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []core.Identifier{}, nil
	}

	var answer string
	err = ai.RetryWithBackoff(ctx, func() error {
		var err error
		answer, err = m.disambiguator.Disambiguate(ctx, text, candidates)
		if errors.Is(err, ai.ErrMalformedAnswer) {
			return ai.Permanent(err)
		}
		return err
	}, m.attempts, m.baseDelay)
	if errors.Is(err, ai.ErrMalformedAnswer) {
		m.logger.Warn("model gave no usable answer", "phrase", text, "err", err)
		return []core.Identifier{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrDisambiguation, text, err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return []core.Identifier{}, nil
	}
	for _, candidate := range candidates {
		if strings.EqualFold(string(candidate.Id), answer) {
			return []core.Identifier{candidate.Id}, nil
		}
	}

	m.logger.Warn("model answered outside the candidate set",
		"phrase", text,
		"answer", answer,
		"candidates", len(candidates))
	return []core.Identifier{}, nil
}
