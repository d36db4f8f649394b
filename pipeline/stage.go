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


package pipeline

import (
	"github.com/poiesic/deft/core"
	"github.com/poiesic/deft/matcher"
	"github.com/poiesic/deft/resolver"
)

// Stage pairs a matcher with the resolver that decides among its candidates.
type Stage struct {
	Matcher  matcher.Matcher
	Resolver resolver.Resolver
}

// Resolution is a string committed to an identifier.
type Resolution struct {
	Text string
	Id   core.Identifier
}

// outcome is the result of matching one string within a stage.
type outcome struct {
	id       core.Identifier
	resolved bool
	failed   bool
	fatal    error
}
