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


// Package resolver collapses a matcher's candidate list into a single decision.
package resolver

import "github.com/poiesic/deft/core"

// Resolver selects at most one identifier from a candidate list.
// Implementations are deterministic for a given input order.
type Resolver interface {
	// Name identifies the resolver in reports.
	Name() string

	// Resolve returns the chosen identifier, or false when the candidates do
	// not support a decision.
	Resolve(candidates []core.Identifier) (core.Identifier, bool)
}

// ChooseFirst picks the first candidate. It is only as good as the ordering
// the matcher provides.
type ChooseFirst struct{}

var _ Resolver = ChooseFirst{}

func (ChooseFirst) Name() string {
	return "ChooseFirst"
}

func (ChooseFirst) Resolve(candidates []core.Identifier) (core.Identifier, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[0], true
}

// Unique resolves only when every candidate is the same identifier.
type Unique struct{}

var _ Resolver = Unique{}

func (Unique) Name() string {
	return "Unique"
}

func (Unique) Resolve(candidates []core.Identifier) (core.Identifier, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	for _, c := range candidates[1:] {
		if c != candidates[0] {
			return "", false
		}
	}
	return candidates[0], true
}

// ByName returns the resolver registered under name ("choose_first", "unique").
func ByName(name string) (Resolver, bool) {
	switch name {
	case "choose_first", "ChooseFirst":
		return ChooseFirst{}, true
	case "unique", "Unique":
		return Unique{}, true
	}
	return nil, false
}
