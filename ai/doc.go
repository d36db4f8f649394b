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


// Package ai provides abstractions for the AI services deft consults.
//
// The oracles sit behind narrow interfaces so the matching pipeline can be
// tested with deterministic fakes:
//
//   - Embedder: maps text into the vector space of the similarity index
//   - Disambiguator: picks one identifier for a phrase from a candidate list
//   - AIProvider: aggregates both for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder, ...) return
// interface types. Test constructors (mock.NewMockEmbedder,
// mock.NewMockDisambiguator) return concrete types so tests can inject
// behavior and inspect call counts.
//
//	mockEmbed := mock.NewMockEmbedder()  // returns *mock.MockEmbedder
//	mockEmbed.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) { ... }
//	count := mockEmbed.CallCount()
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithChatModel("qwen2.5:7b"))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "shortness of breath")
//	id, err := provider.Disambiguator().Disambiguate(ctx, "wheezing", candidates)
package ai
