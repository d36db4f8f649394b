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


package matcher

import "errors"

var (
	// ErrVocabularyRequired is returned when a vocabulary repository is not provided.
	ErrVocabularyRequired = errors.New("vocabulary required")

	// ErrRetrieverRequired is returned when a candidate retriever is not provided.
	ErrRetrieverRequired = errors.New("candidate retriever required")

	// ErrDisambiguatorRequired is returned when a disambiguator is not provided.
	ErrDisambiguatorRequired = errors.New("disambiguator required")

	// ErrInvalidOption is returned when a matcher option has an invalid value.
	ErrInvalidOption = errors.New("invalid matcher option")

	// ErrLookupFailed is returned when the vocabulary could not answer a lookup.
	ErrLookupFailed = errors.New("vocabulary lookup failed")

	// ErrDisambiguation is returned when the disambiguator could not be queried.
	ErrDisambiguation = errors.New("disambiguation failed")
)
