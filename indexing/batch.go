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
	"time"

	"github.com/poiesic/deft/ai"
	"github.com/poiesic/deft/core"
)

// BatchProcessor embeds one batch of index rows and stores them.
type BatchProcessor struct {
	index          EntryWriter
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

func NewBatchProcessor(index EntryWriter, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		index:          index,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process embeds the texts of entries, normalizes the vectors and stores the
// entries at their row numbers.
func (bp *BatchProcessor) Process(ctx context.Context, entries []*core.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	texts := make([]string, len(entries))
	for i, entry := range entries {
		texts[i] = entry.Text
	}

	var embeddings [][]float32
	err := ai.RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(embeddings) != len(entries) {
		return fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingCount, len(entries), len(embeddings))
	}

	for i := range entries {
		entries[i].Vector = core.NormalizeVector(embeddings[i])
	}

	if err := bp.index.PutEntries(ctx, entries...); err != nil {
		return fmt.Errorf("failed to store index rows: %w", err)
	}
	return nil
}
