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


// Package indexing builds the similarity index from a vocabulary.
//
// Every label and synonym of every term becomes one index row: its text is
// embedded, L2-normalized and stored with the term's identifier. Rows are
// numbered in vocabulary order before embedding starts. Texts are embedded in
// batches, several batches at a time, with retry and exponential backoff
// around each embedding call.
//
// Basic usage:
//
//	indexer, err := indexing.NewIndexer(repos.Vocabulary, repos.Index, provider.Embedder(),
//		indexing.WithPrefix("HP"), indexing.WithProgress(os.Stderr))
//	if err != nil {
//		return err
//	}
//	rows, err := indexer.Run(ctx)
//
// A completed build records a fingerprint of the rows it embedded, the
// embedding model and the vector length. Stale compares it with the current
// vocabulary and embedder, so callers can tell when the index needs
// rebuilding.
package indexing
