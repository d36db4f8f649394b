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


package badger

import "errors"

// Repositories bundles every repository over one backend.
type Repositories struct {
	Backend    *Backend
	Vocabulary *VocabularyRepository
	Index      *IndexRepository
	Runs       *RunRepository
}

// OpenRepositories opens a backend and creates all repositories on it.
func OpenRepositories(path string, inMemory bool) (*Repositories, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}

	vocab, err := NewVocabularyRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	index, err := NewIndexRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	runs, err := NewRunRepository(backend)
	if err != nil {
		index.Close()
		backend.Close()
		return nil, err
	}

	return &Repositories{
		Backend:    backend,
		Vocabulary: vocab,
		Index:      index,
		Runs:       runs,
	}, nil
}

// NewMemoryRepositories creates all repositories over an in-memory backend.
func NewMemoryRepositories() (*Repositories, error) {
	return OpenRepositories("", true)
}

// Close closes the repositories, then the backend.
func (r *Repositories) Close() error {
	return errors.Join(
		r.Vocabulary.Close(),
		r.Index.Close(),
		r.Runs.Close(),
		r.Backend.Close(),
	)
}
