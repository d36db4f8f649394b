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


package core

import (
	"fmt"
	"strings"
)

// ValidateTerm validates a Term according to domain rules.
//
// Validation rules:
//   - Term must not be nil
//   - Id must not be empty
//   - Label must not be blank
//   - Every synonym must have a non-blank Name
//
// Parents are not validated; dangling parents are tolerated.
func ValidateTerm(term *Term) error {
	if term == nil {
		return fmt.Errorf("%w: term is nil", ErrInvalidTerm)
	}

	if term.Id == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTerm, ErrEmptyIdentifier)
	}

	if strings.TrimSpace(term.Label) == "" {
		return fmt.Errorf("%w: %s: %w", ErrInvalidTerm, term.Id, ErrEmptyLabel)
	}

	for i, syn := range term.Synonyms {
		if strings.TrimSpace(syn.Name) == "" {
			return fmt.Errorf("%w: %s synonym %d: %w", ErrInvalidTerm, term.Id, i, ErrEmptySynonym)
		}
	}

	return nil
}

// ValidateIndexEntry validates an IndexEntry before it is written to the index.
func ValidateIndexEntry(entry *IndexEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidIndexEntry)
	}

	if entry.Id == "" {
		return fmt.Errorf("%w: %w", ErrInvalidIndexEntry, ErrEmptyIdentifier)
	}

	if strings.TrimSpace(entry.Text) == "" {
		return fmt.Errorf("%w: %s: %w", ErrInvalidIndexEntry, entry.Id, ErrEmptyText)
	}

	if len(entry.Vector) == 0 {
		return fmt.Errorf("%w: %s: %w", ErrInvalidIndexEntry, entry.Id, ErrEmptyVector)
	}

	return nil
}
