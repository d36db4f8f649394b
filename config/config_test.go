package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/deft/core"
	"github.com/poiesic/deft/retrieve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	p := Default()
	assert.Equal(t, "hpo", p.Name)
	assert.Equal(t, 4, p.Workers)
	require.Len(t, p.Stages, 5)
	assert.Equal(t, MatcherExact, p.Stages[0].Matcher)
	assert.Equal(t, []core.Identifier{"HP:0000118"}, p.Stages[3].RootConceptIDs())
	assert.Equal(t, retrieve.DefaultParams(), p.Stages[4].Retriever.Params())
	assert.Equal(t, "HP", p.StagePrefix(p.Stages[0]))
}

func TestParse(t *testing.T) {
	doc := `
name: conditions
prefix: HP
stages:
  - matcher: exact
    resolver: choose_first
  - matcher: synonym
    prefix: MONDO
    categories: [exact, related]
    types: [abbreviation, uk spelling]
    resolver: unique
  - matcher: rag
    retriever:
      min_candidates: 2
      max_candidates: 5
      similarity_threshold: 0.5
    resolver: choose_first
`
	p, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, 1, p.Workers, "workers default")
	assert.Equal(t, 3, p.SampleSize, "sample size default")
	assert.Equal(t, "MONDO", p.StagePrefix(p.Stages[1]))

	categories, err := p.Stages[1].SynonymCategories()
	require.NoError(t, err)
	assert.Equal(t, []core.SynonymCategory{core.SynonymCategoryExact, core.SynonymCategoryRelated}, categories)

	types, err := p.Stages[1].SynonymTypes()
	require.NoError(t, err)
	assert.Equal(t, []core.SynonymType{core.SynonymTypeAbbreviation, core.SynonymTypeUKSpelling}, types)

	params := p.Stages[2].Retriever.Params()
	assert.Equal(t, 500, params.AmountToSearch)
	assert.Equal(t, 2, params.MinCandidates)
	assert.Equal(t, 5, params.MaxCandidates)
	assert.Equal(t, float32(0.5), params.SimilarityThreshold)
	assert.True(t, params.HybridSearch)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed yaml", "name: [x"},
		{"unknown key", "name: x\nstagez: []"},
		{"missing name", "stages: [{matcher: exact, resolver: choose_first}]"},
		{"no stages", "name: x"},
		{"unknown matcher", "name: x\nstages: [{matcher: fuzzy, resolver: choose_first}]"},
		{"unknown resolver", "name: x\nstages: [{matcher: exact, resolver: random}]"},
		{"unknown category", "name: x\nstages: [{matcher: synonym, categories: [wide], resolver: unique}]"},
		{"categories on exact", "name: x\nstages: [{matcher: exact, categories: [exact], resolver: unique}]"},
		{"roots on synonym", "name: x\nstages: [{matcher: synonym, root_concepts: ['HP:1'], resolver: unique}]"},
		{"retriever on exact", "name: x\nstages: [{matcher: exact, retriever: {max_candidates: 3}, resolver: unique}]"},
		{"inconsistent retriever", "name: x\nstages: [{matcher: rag, retriever: {amount_to_search: 10, max_candidates: 20}, resolver: unique}]"},
		{"negative workers", "name: x\nworkers: -1\nstages: [{matcher: exact, resolver: unique}]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: x\nstages: [{matcher: exact, resolver: choose_first}]\n"), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "x", p.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
