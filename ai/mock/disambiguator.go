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


package mock

import (
	"context"
	"sync/atomic"

	"github.com/poiesic/deft/core"
)

// MockDisambiguator is a test double for ai.Disambiguator.
// It allows custom behavior injection via function fields.
type MockDisambiguator struct {
	// DisambiguateFunc is called by Disambiguate if set.
	// If nil, the first candidate's identifier is returned.
	DisambiguateFunc func(ctx context.Context, phrase string, candidates []core.Candidate) (string, error)

	// ModelName is returned by Model. Empty means "mock".
	ModelName string

	callCount atomic.Int64
}

// NewMockDisambiguator creates a mock disambiguator with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockDisambiguator().
func NewMockDisambiguator() *MockDisambiguator {
	return &MockDisambiguator{}
}

// Disambiguate returns the first candidate unless a custom func is set.
func (m *MockDisambiguator) Disambiguate(ctx context.Context, phrase string, candidates []core.Candidate) (string, error) {
	m.callCount.Add(1)

	if m.DisambiguateFunc != nil {
		return m.DisambiguateFunc(ctx, phrase, candidates)
	}
	if len(candidates) == 0 {
		return "", nil
	}
	return string(candidates[0].Id), nil
}

// Model returns the configured model name.
func (m *MockDisambiguator) Model() string {
	if m.ModelName == "" {
		return "mock"
	}
	return m.ModelName
}

// CallCount returns the number of times Disambiguate was called.
func (m *MockDisambiguator) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom functions.
func (m *MockDisambiguator) Reset() {
	m.callCount.Store(0)
	m.DisambiguateFunc = nil
}
