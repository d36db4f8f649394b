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


// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.Disambiguator,
// and ai.AIProvider for use in unit tests. The mocks run without external AI
// services and behave deterministically.
//
// # Usage in Tests
//
//	mockProvider := mock.NewMockProvider()
//	vector, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	disambiguator := mock.NewMockDisambiguator()
//	disambiguator.DisambiguateFunc = func(ctx context.Context, phrase string, c []core.Candidate) (string, error) {
//	    return "HP:0002099", nil
//	}
//
//	count := disambiguator.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: Returns unit vectors derived from a hash of the text
//   - MockDisambiguator: Picks the first candidate
//   - MockProvider: Aggregates mock embedder and disambiguator
//
// Call counters are safe for concurrent use.
package mock
