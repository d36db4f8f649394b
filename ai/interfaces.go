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


package ai

import (
	"context"

	"github.com/poiesic/deft/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector is not necessarily normalized.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the embedding model identifier. Vectors from different
	// models are not comparable.
	Model() string
}

// Disambiguator asks a language model to pick the candidate that best matches
// a phrase. Implementations must be thread-safe for concurrent use.
type Disambiguator interface {
	// Disambiguate returns the model's raw answer for the phrase and candidate list.
	// The answer is not validated against the candidates; callers decide how much
	// to trust it. An empty answer means the model declined to choose.
	// Returns an error if the model could not be queried.
	Disambiguate(ctx context.Context, phrase string, candidates []core.Candidate) (string, error)

	// Model returns the model identifier, used to name matchers in reports.
	Model() string
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and Disambiguator instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Disambiguator returns the candidate disambiguation service.
	// The returned Disambiguator is safe for concurrent use.
	Disambiguator() Disambiguator

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
