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
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content fingerprint, e.g. of the rows of a similarity index build.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Identifier names a vocabulary concept, e.g. "HP:0002099".
// Nothing beyond string equality is assumed about its structure.
type Identifier string

// Prefix returns the namespace part of a prefixed identifier ("HP" for "HP:0002099").
// Identifiers without a colon have an empty prefix.
func (i Identifier) Prefix() string {
	prefix, _, found := strings.Cut(string(i), ":")
	if !found {
		return ""
	}
	return prefix
}

func (i Identifier) String() string {
	return string(i)
}

// SynonymCategory is the scope of a synonym relative to its term.
type SynonymCategory int

const (
	SynonymCategoryUnspecified SynonymCategory = iota
	SynonymCategoryExact
	SynonymCategoryBroad
	SynonymCategoryNarrow
	SynonymCategoryRelated
)

var synonymCategoryNames = map[SynonymCategory]string{
	SynonymCategoryUnspecified: "unspecified",
	SynonymCategoryExact:       "exact",
	SynonymCategoryBroad:       "broad",
	SynonymCategoryNarrow:      "narrow",
	SynonymCategoryRelated:     "related",
}

func (c SynonymCategory) String() string {
	if name, ok := synonymCategoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// ParseSynonymCategory maps a category name to its value. The empty string is unspecified.
func ParseSynonymCategory(name string) (SynonymCategory, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return SynonymCategoryUnspecified, nil
	}
	for c, n := range synonymCategoryNames {
		if n == name {
			return c, nil
		}
	}
	return SynonymCategoryUnspecified, fmt.Errorf("%w: synonym category %q", ErrUnknownValue, name)
}

// SynonymType qualifies how a synonym is used (abbreviation, layperson term, ...).
type SynonymType int

const (
	SynonymTypeUnspecified SynonymType = iota
	SynonymTypeObsolete
	SynonymTypeLayperson
	SynonymTypeAbbreviation
	SynonymTypeAllelicRequirement
	SynonymTypePluralForm
	SynonymTypeUKSpelling
)

var synonymTypeNames = map[SynonymType]string{
	SynonymTypeUnspecified:        "unspecified",
	SynonymTypeObsolete:           "obsolete",
	SynonymTypeLayperson:          "layperson",
	SynonymTypeAbbreviation:       "abbreviation",
	SynonymTypeAllelicRequirement: "allelic_requirement",
	SynonymTypePluralForm:         "plural_form",
	SynonymTypeUKSpelling:         "uk_spelling",
}

func (t SynonymType) String() string {
	if name, ok := synonymTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseSynonymType maps a type name to its value. The empty string is unspecified.
func ParseSynonymType(name string) (SynonymType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" {
		return SynonymTypeUnspecified, nil
	}
	for t, n := range synonymTypeNames {
		if n == name {
			return t, nil
		}
	}
	return SynonymTypeUnspecified, fmt.Errorf("%w: synonym type %q", ErrUnknownValue, name)
}

// Synonym is an alternative name for a term.
type Synonym struct {
	Name     string
	Category SynonymCategory
	Type     SynonymType
}

// Term is a vocabulary concept with its primary label and synonyms.
type Term struct {
	Id       Identifier
	Label    string
	Synonyms []Synonym
	Parents  []Identifier // Direct is_a parents, used to scope concept recognition
}

// IndexEntry is one row of the similarity index: a label or synonym of a term
// and its embedding.
type IndexEntry struct {
	Row    int
	Id     Identifier
	Text   string
	Vector []float32
}

// Neighbor is a single hit from a vector search.
// Score is the inner product of unit vectors, i.e. cosine similarity.
type Neighbor struct {
	Row   int
	Score float32
}

// Candidate is a provisional identifier proposed for a phrase, with the text that
// matched and its similarity to the phrase.
type Candidate struct {
	Id          Identifier `json:"id"`
	Description string     `json:"description"`
	Score       float32    `json:"similarity_score"`
}

// StageSummary records the outcome of one pipeline stage.
type StageSummary struct {
	Matcher   string
	Resolver  string
	Resolved  int
	Failed    int
	Remaining int
}

// Run is the persisted outcome of a pipeline run.
type Run struct {
	Id         string
	Name       string
	StartedAt  time.Time
	FinishedAt time.Time
	Stages     []StageSummary
	Matched    map[string]Identifier
	Unmatched  []string
}
