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


// Package config loads pipeline definitions from YAML.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/poiesic/deft/core"
	"github.com/poiesic/deft/resolver"
	"github.com/poiesic/deft/retrieve"
	"gopkg.in/yaml.v3"
)

//go:embed default_pipeline.yaml
var defaultPipelineYAML []byte

// ErrInvalidConfig is returned when a pipeline definition cannot be used.
var ErrInvalidConfig = errors.New("invalid pipeline configuration")

// Matcher kinds.
const (
	MatcherExact       = "exact"
	MatcherSynonym     = "synonym"
	MatcherRecognition = "recognition"
	MatcherRAG         = "rag"
)

// Pipeline defines a named list of stages.
type Pipeline struct {
	Name string `yaml:"name"`

	// Prefix is the vocabulary namespace used by stages without their own prefix.
	Prefix string `yaml:"prefix"`

	// Workers is the number of strings matched concurrently within a stage.
	Workers int `yaml:"workers"`

	// SampleSize is the number of example strings shown per stage report.
	SampleSize int `yaml:"sample_size"`

	Stages []Stage `yaml:"stages"`
}

// Stage defines one matcher and its resolver. Fields that do not apply to the
// matcher kind must be left empty.
type Stage struct {
	Matcher  string `yaml:"matcher"`
	Resolver string `yaml:"resolver"`
	Prefix   string `yaml:"prefix,omitempty"`

	// Synonym matcher allow-lists.
	Categories []string `yaml:"categories,omitempty"`
	Types      []string `yaml:"types,omitempty"`

	// Recognition matcher scope.
	RootConcepts []string `yaml:"root_concepts,omitempty"`

	// RAG matcher retrieval parameters.
	Retriever *Retriever `yaml:"retriever,omitempty"`
}

// Retriever overrides retrieval parameters; unset fields keep their defaults.
type Retriever struct {
	AmountToSearch      *int     `yaml:"amount_to_search"`
	MinCandidates       *int     `yaml:"min_candidates"`
	MaxCandidates       *int     `yaml:"max_candidates"`
	SimilarityThreshold *float32 `yaml:"similarity_threshold"`
	HybridSearch        *bool    `yaml:"hybrid_search"`
}

// Params applies the overrides to retrieve.DefaultParams.
func (r *Retriever) Params() retrieve.Params {
	params := retrieve.DefaultParams()
	if r == nil {
		return params
	}
	if r.AmountToSearch != nil {
		params.AmountToSearch = *r.AmountToSearch
	}
	if r.MinCandidates != nil {
		params.MinCandidates = *r.MinCandidates
	}
	if r.MaxCandidates != nil {
		params.MaxCandidates = *r.MaxCandidates
	}
	if r.SimilarityThreshold != nil {
		params.SimilarityThreshold = *r.SimilarityThreshold
	}
	if r.HybridSearch != nil {
		params.HybridSearch = *r.HybridSearch
	}
	return params
}

// Default returns the built-in HPO pipeline.
func Default() *Pipeline {
	p, err := Parse(bytes.NewReader(defaultPipelineYAML))
	if err != nil {
		panic(fmt.Sprintf("embedded default pipeline is invalid: %v", err))
	}
	return p
}

// Load reads and validates a pipeline definition file.
func Load(path string) (*Pipeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates a pipeline definition. Unknown keys are errors.
func Parse(r io.Reader) (*Pipeline, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var p Pipeline
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the definition and applies defaults for workers and sample size.
func (p *Pipeline) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if p.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidConfig)
	}
	if p.Workers == 0 {
		p.Workers = 1
	}
	if p.SampleSize < 0 {
		return fmt.Errorf("%w: sample_size must not be negative", ErrInvalidConfig)
	}
	if p.SampleSize == 0 {
		p.SampleSize = 3
	}
	if len(p.Stages) == 0 {
		return fmt.Errorf("%w: at least one stage is required", ErrInvalidConfig)
	}

	for i := range p.Stages {
		if err := p.Stages[i].validate(); err != nil {
			return fmt.Errorf("%w: stage %d: %w", ErrInvalidConfig, i, err)
		}
	}
	return nil
}

func (s *Stage) validate() error {
	if _, ok := resolver.ByName(s.Resolver); !ok {
		return fmt.Errorf("unknown resolver %q", s.Resolver)
	}

	if s.Matcher != MatcherSynonym && (len(s.Categories) > 0 || len(s.Types) > 0) {
		return fmt.Errorf("categories and types only apply to the synonym matcher")
	}
	if s.Matcher != MatcherRecognition && len(s.RootConcepts) > 0 {
		return fmt.Errorf("root_concepts only apply to the recognition matcher")
	}
	if s.Matcher != MatcherRAG && s.Retriever != nil {
		return fmt.Errorf("retriever only applies to the rag matcher")
	}

	switch s.Matcher {
	case MatcherExact, MatcherRecognition:
	case MatcherSynonym:
		if _, err := s.SynonymCategories(); err != nil {
			return err
		}
		if _, err := s.SynonymTypes(); err != nil {
			return err
		}
	case MatcherRAG:
		if err := s.Retriever.Params().Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown matcher %q", s.Matcher)
	}
	return nil
}

// SynonymCategories parses the category allow-list.
func (s *Stage) SynonymCategories() ([]core.SynonymCategory, error) {
	out := make([]core.SynonymCategory, 0, len(s.Categories))
	for _, name := range s.Categories {
		c, err := core.ParseSynonymCategory(name)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// SynonymTypes parses the type allow-list.
func (s *Stage) SynonymTypes() ([]core.SynonymType, error) {
	out := make([]core.SynonymType, 0, len(s.Types))
	for _, name := range s.Types {
		t, err := core.ParseSynonymType(name)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// RootConceptIDs returns the recognition roots as identifiers.
func (s *Stage) RootConceptIDs() []core.Identifier {
	out := make([]core.Identifier, len(s.RootConcepts))
	for i, root := range s.RootConcepts {
		out[i] = core.Identifier(root)
	}
	return out
}

// StagePrefix returns the stage's prefix, falling back to the pipeline's.
func (p *Pipeline) StagePrefix(s Stage) string {
	if s.Prefix != "" {
		return s.Prefix
	}
	return p.Prefix
}
