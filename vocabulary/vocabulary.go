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


// Package vocabulary reads the JSON vocabulary interchange format and imports
// it into a vocabulary repository.
//
// A document holds the terms of one ontology:
//
//	{
//	  "prefix": "HP",
//	  "terms": [
//	    {
//	      "id": "HP:0000729",
//	      "label": "Autistic behavior",
//	      "synonyms": [{"name": "ASD", "category": "related", "type": "abbreviation"}],
//	      "parents": ["HP:0000708"]
//	    }
//	  ]
//	}
package vocabulary

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/deft/core"
)

// Document is a decoded vocabulary file.
type Document struct {
	Prefix string     `json:"prefix"`
	Terms  []TermSpec `json:"terms"`
}

type TermSpec struct {
	Id       string        `json:"id"`
	Label    string        `json:"label"`
	Synonyms []SynonymSpec `json:"synonyms,omitempty"`
	Parents  []string      `json:"parents,omitempty"`
}

type SynonymSpec struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Type     string `json:"type,omitempty"`
}

// Decode reads a document from r. Unknown fields are rejected so that typos
// in hand-written files surface early.
func Decode(r io.Reader) (*Document, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return &doc, nil
}

// DomainTerms converts the document to domain terms, validating each one.
// Identifiers outside the document's prefix are rejected.
func (d *Document) DomainTerms() ([]*core.Term, error) {
	terms := make([]*core.Term, 0, len(d.Terms))
	for i, ts := range d.Terms {
		term, err := ts.term()
		if err != nil {
			return nil, fmt.Errorf("%w: term %d: %w", ErrInvalidDocument, i, err)
		}
		if d.Prefix != "" && term.Id.Prefix() != d.Prefix {
			return nil, fmt.Errorf("%w: term %s is outside prefix %s", ErrInvalidDocument, term.Id, d.Prefix)
		}
		terms = append(terms, term)
	}
	return terms, nil
}

func (s TermSpec) term() (*core.Term, error) {
	term := &core.Term{
		Id:    core.Identifier(s.Id),
		Label: s.Label,
	}
	for _, syn := range s.Synonyms {
		category, err := core.ParseSynonymCategory(syn.Category)
		if err != nil {
			return nil, err
		}
		synonymType, err := core.ParseSynonymType(syn.Type)
		if err != nil {
			return nil, err
		}
		term.Synonyms = append(term.Synonyms, core.Synonym{Name: syn.Name, Category: category, Type: synonymType})
	}
	for _, parent := range s.Parents {
		term.Parents = append(term.Parents, core.Identifier(parent))
	}

	if err := core.ValidateTerm(term); err != nil {
		return nil, err
	}
	return term, nil
}

// TermWriter stores terms.
type TermWriter interface {
	AddTerms(ctx context.Context, terms ...*core.Term) error
}

// DefaultBatchSize is the number of terms written per transaction.
const DefaultBatchSize = 500

// Import validates every term of doc, then writes them in batches of
// batchSize. Nothing is written if any term is invalid. It returns the number
// of terms written.
func Import(ctx context.Context, repo TermWriter, doc *Document, batchSize int) (int, error) {
	if repo == nil {
		return 0, ErrRepositoryRequired
	}
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}

	terms, err := doc.DomainTerms()
	if err != nil {
		return 0, err
	}

	written := 0
	for start := 0; start < len(terms); start += batchSize {
		batch := terms[start:min(start+batchSize, len(terms))]
		if err := repo.AddTerms(ctx, batch...); err != nil {
			return written, fmt.Errorf("failed to store terms %d-%d: %w", start, start+len(batch)-1, err)
		}
		written += len(batch)
	}

	slog.Default().With("component", "vocabulary").Info("imported vocabulary",
		"prefix", doc.Prefix,
		"terms", written)
	return written, nil
}
