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


package indexing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/deft/ai"
	"github.com/poiesic/deft/core"
	"golang.org/x/sync/errgroup"
)

// TermSource iterates the vocabulary.
type TermSource interface {
	ForEachTerm(ctx context.Context, fn func(*core.Term) error) error
}

// EntryWriter stores embedded rows at their row numbers.
type EntryWriter interface {
	PutEntries(ctx context.Context, entries ...*core.IndexEntry) error
}

// Index is the part of the index repository a build needs.
type Index interface {
	EntryWriter
	Clear(ctx context.Context) error
	SetFingerprint(ctx context.Context, fingerprint core.ID) error
	Fingerprint(ctx context.Context) (core.ID, bool, error)
}

// Indexer rebuilds the similarity index from the vocabulary.
type Indexer struct {
	terms    TermSource
	index    Index
	embedder ai.Embedder
	config   Config
	prefix   string
	progress io.Writer
	logger   *slog.Logger
}

// Option configures an Indexer.
type Option func(*Indexer) error

// WithConfig replaces the batching and retry settings.
func WithConfig(config Config) Option {
	return func(ix *Indexer) error {
		if err := config.Validate(); err != nil {
			return err
		}
		ix.config = config
		return nil
	}
}

// WithPrefix indexes only terms in the prefix's namespace.
func WithPrefix(prefix string) Option {
	return func(ix *Indexer) error {
		ix.prefix = prefix
		return nil
	}
}

// WithProgress writes a progress line to w while indexing.
func WithProgress(w io.Writer) Option {
	return func(ix *Indexer) error {
		ix.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) error {
		if logger == nil {
			logger = slog.Default()
		}
		ix.logger = logger
		return nil
	}
}

func NewIndexer(terms TermSource, index Index, embedder ai.Embedder, opts ...Option) (*Indexer, error) {
	if terms == nil {
		return nil, ErrVocabularyRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	ix := &Indexer{
		terms:    terms,
		index:    index,
		embedder: embedder,
		config:   DefaultConfig(),
		progress: io.Discard,
		logger:   slog.Default().With("component", "indexer"),
	}
	for _, opt := range opts {
		if err := opt(ix); err != nil {
			return nil, err
		}
	}
	return ix, nil
}

// Run clears the index and rebuilds it. It returns the number of rows stored.
// On error the index may be partially built and is reported as stale; run
// again to rebuild it.
func (ix *Indexer) Run(ctx context.Context) (int, error) {
	pending, err := ix.collect(ctx)
	if err != nil {
		return 0, err
	}

	if err := ix.index.Clear(ctx); err != nil {
		return 0, fmt.Errorf("failed to clear index: %w", err)
	}

	total := len(pending)
	if total == 0 {
		ix.logger.Warn("nothing to index", "prefix", ix.prefix)
		return 0, ix.index.SetFingerprint(ctx, Fingerprint(pending, ix.embedder.Model(), 0))
	}

	fmt.Fprintf(ix.progress, "Indexing %d labels and synonyms (batch size: %d)\n", total, ix.config.BatchSize)
	tracker := NewProgressTracker(ix.progress, total, ix.config.ReportInterval)
	tracker.Start()

	processor := NewBatchProcessor(ix.index, ix.embedder, ix.config.MaxRetries, ix.config.RetryDelay)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.config.Concurrency)

	for start := 0; start < total; start += ix.config.BatchSize {
		batch := pending[start:min(start+ix.config.BatchSize, total)]
		g.Go(func() error {
			if err := processor.Process(gctx, batch); err != nil {
				return err
			}
			tracker.Increment(len(batch))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		ix.logger.Error("index build failed", "err", err)
		return 0, err
	}

	fingerprint := Fingerprint(pending, ix.embedder.Model(), len(pending[0].Vector))
	if err := ix.index.SetFingerprint(ctx, fingerprint); err != nil {
		return 0, fmt.Errorf("failed to record index fingerprint: %w", err)
	}

	tracker.Finish()
	elapsed := tracker.Elapsed()
	ix.logger.Info("index built",
		"prefix", ix.prefix,
		"rows", total,
		"elapsed", elapsed.Round(time.Millisecond))
	return total, nil
}

// Stale reports whether Run would build a different index than the stored
// one: the vocabulary, the prefix, the embedding model or its vector length
// changed since the last build, or the last build did not finish. One row is
// embedded to learn the current vector length.
func (ix *Indexer) Stale(ctx context.Context) (bool, error) {
	stored, ok, err := ix.index.Fingerprint(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read index fingerprint: %w", err)
	}
	if !ok {
		return true, nil
	}

	pending, err := ix.collect(ctx)
	if err != nil {
		return false, err
	}
	dimensions := 0
	if len(pending) > 0 {
		vector, err := ix.embedder.EmbedText(ctx, pending[0].Text)
		if err != nil {
			return false, fmt.Errorf("failed to embed %q: %w", pending[0].Text, err)
		}
		dimensions = len(vector)
	}
	return stored != Fingerprint(pending, ix.embedder.Model(), dimensions), nil
}

// collect returns the rows to index numbered in vocabulary order.
func (ix *Indexer) collect(ctx context.Context) ([]*core.IndexEntry, error) {
	var pending []*core.IndexEntry
	err := ix.terms.ForEachTerm(ctx, func(term *core.Term) error {
		if ix.prefix == "" || term.Id.Prefix() == ix.prefix {
			pending = append(pending, TermTexts(term)...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary: %w", err)
	}
	for i, entry := range pending {
		entry.Row = i
	}
	return pending, nil
}
