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

import "errors"

var (
	// ErrVocabularyRequired is returned when a vocabulary is not provided.
	ErrVocabularyRequired = errors.New("vocabulary required")

	// ErrIndexRequired is returned when an index repository is not provided.
	ErrIndexRequired = errors.New("index repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrInvalidConfig is returned when indexing settings are out of range.
	ErrInvalidConfig = errors.New("invalid indexing configuration")

	// ErrEmbeddingCount is returned when the embedder returns a different number
	// of vectors than texts.
	ErrEmbeddingCount = errors.New("embedding count mismatch")
)
