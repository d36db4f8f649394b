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


// Package storage provides the storage abstraction layer for deft.
//
// This package defines repository interfaces that decouple the matching pipeline
// from the storage implementation:
//
//   - VocabularyRepository: ontology terms with label and synonym lookups
//   - IndexRepository: the embedded similarity index, addressed by row
//   - RunRepository: persisted pipeline run summaries
//
// Values are encoded with mus-go primitives (serialization.go). The BadgerDB
// implementation lives in storage/badger.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/var/lib/deft", false)
//	if err != nil {
//	    return err
//	}
//	defer backend.Close()
//
//	vocab, err := badger.NewVocabularyRepository(backend)
//	ids, err := vocab.LookupLabel(ctx, "asthma")
//
// Use in tests with in-memory storage:
//
//	repos, err := badger.NewMemoryRepositories()
//	defer repos.Close()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
