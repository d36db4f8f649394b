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

import "errors"

// Domain validation errors
var (
	// ErrInvalidTerm indicates a Term failed validation.
	ErrInvalidTerm = errors.New("invalid term")

	// ErrInvalidIndexEntry indicates an IndexEntry failed validation.
	ErrInvalidIndexEntry = errors.New("invalid index entry")

	// ErrEmptyIdentifier indicates the Id field is empty.
	ErrEmptyIdentifier = errors.New("identifier cannot be empty")

	// ErrEmptyLabel indicates the term Label field is empty.
	ErrEmptyLabel = errors.New("label cannot be empty")

	// ErrEmptySynonym indicates a synonym with an empty Name.
	ErrEmptySynonym = errors.New("synonym name cannot be empty")

	// ErrEmptyText indicates the index entry Text field is empty.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrEmptyVector indicates the index entry has no embedding.
	ErrEmptyVector = errors.New("vector cannot be empty")

	// ErrUnknownValue indicates an unrecognized enumeration name.
	ErrUnknownValue = errors.New("unknown value")

	// ErrDataIntegrity indicates that data a contract guarantees to exist is missing
	// or malformed, e.g. an index row without metadata. It is never recoverable
	// by skipping the affected item.
	ErrDataIntegrity = errors.New("data integrity violation")
)
