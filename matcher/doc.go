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


// Package matcher provides the matching strategies of a normalization pipeline.
//
// A Matcher proposes zero or more vocabulary identifiers for one free-text
// string. An empty result means the matcher has no opinion; it is never an
// error. Errors are reserved for lookups that could not be served (the string
// stays unresolved) and for data-integrity failures, which wrap
// core.ErrDataIntegrity and abort the pipeline stage.
//
// Four strategies are provided:
//
//   - ExactMatcher: case-insensitive primary label lookup.
//   - SynonymMatcher: case-insensitive synonym lookup filtered by category and type.
//   - RecognitionMatcher: concept recognition over an in-memory token index.
//   - RAGMatcher: candidate retrieval followed by language model disambiguation.
package matcher
