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


// Package deft maps free-text strings to ontology identifiers.
//
// A Workspace bundles the stores and model services a mapping run needs:
// vocabularies imported from JSON, a similarity index built from their labels
// and synonyms, and the history of pipeline runs. Pipelines are described in
// YAML (see package config) and executed stage by stage (see package pipeline).
package deft

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/deft/ai"
	"github.com/poiesic/deft/ai/openai"
	"github.com/poiesic/deft/config"
	"github.com/poiesic/deft/core"
	"github.com/poiesic/deft/indexing"
	"github.com/poiesic/deft/matcher"
	"github.com/poiesic/deft/pipeline"
	"github.com/poiesic/deft/resolver"
	"github.com/poiesic/deft/retrieve"
	"github.com/poiesic/deft/storage"
	"github.com/poiesic/deft/storage/badger"
	"github.com/poiesic/deft/vocabulary"
)

type Workspace struct {
	repos    *badger.Repositories
	provider ai.AIProvider
	logger   *slog.Logger
}

// WorkspaceOption configures a Workspace.
type WorkspaceOption func(*workspaceOptions)

type workspaceOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
	inMemory bool
}

// WithAIConfig sets the configuration of the OpenAI-compatible provider.
func WithAIConfig(cfg *ai.Config) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.aiConfig = cfg
	}
}

// WithProvider uses provider instead of creating an OpenAI-compatible one.
// The workspace closes it on Close.
func WithProvider(provider ai.AIProvider) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.provider = provider
	}
}

// WithInMemory keeps all data in memory. The path is ignored.
func WithInMemory() WorkspaceOption {
	return func(o *workspaceOptions) {
		o.inMemory = true
	}
}

func NewWorkspace(path string, opts ...WorkspaceOption) (*Workspace, error) {
	options := &workspaceOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	repos, err := badger.OpenRepositories(path, options.inMemory)
	if err != nil {
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			repos.Close()
			return nil, err
		}
	}

	return &Workspace{
		repos:    repos,
		provider: provider,
		logger:   slog.Default().With("component", "workspace"),
	}, nil
}

func (w *Workspace) Close() error {
	if err := w.provider.Close(); err != nil {
		w.logger.Error("error closing AI provider", "err", err)
	}
	if err := w.repos.Close(); err != nil {
		w.logger.Error("error closing storage", "err", err)
		return err
	}
	return nil
}

func (w *Workspace) Vocabulary() storage.VocabularyRepository {
	return w.repos.Vocabulary
}

func (w *Workspace) Index() storage.IndexRepository {
	return w.repos.Index
}

func (w *Workspace) Runs() storage.RunRepository {
	return w.repos.Runs
}

// ImportVocabulary reads a vocabulary document from r and stores its terms.
// It returns the number of terms imported.
func (w *Workspace) ImportVocabulary(ctx context.Context, r io.Reader) (int, error) {
	doc, err := vocabulary.Decode(r)
	if err != nil {
		return 0, err
	}
	n, err := vocabulary.Import(ctx, w.repos.Vocabulary, doc, vocabulary.DefaultBatchSize)
	if err != nil {
		return n, err
	}
	w.logger.Info("imported vocabulary", "prefix", doc.Prefix, "terms", n)
	return n, nil
}

// NewIndexer returns an indexer that rebuilds the similarity index with the
// workspace's embedder.
func (w *Workspace) NewIndexer(opts ...indexing.Option) (*indexing.Indexer, error) {
	return indexing.NewIndexer(w.repos.Vocabulary, w.repos.Index, w.provider.Embedder(), opts...)
}

func (w *Workspace) NewRetriever(ctx context.Context, params retrieve.Params, opts ...retrieve.Option) (*retrieve.Retriever, error) {
	return retrieve.New(ctx, w.provider.Embedder(), w.repos.Index, params, opts...)
}

// BuildStages creates the matcher and resolver of every stage in cfg.
func (w *Workspace) BuildStages(ctx context.Context, cfg *config.Pipeline) ([]pipeline.Stage, error) {
	stages := make([]pipeline.Stage, 0, len(cfg.Stages))
	for i, sc := range cfg.Stages {
		m, err := w.buildMatcher(ctx, cfg, sc)
		if err != nil {
			return nil, fmt.Errorf("stage %d (%s): %w", i, sc.Matcher, err)
		}
		r, ok := resolver.ByName(sc.Resolver)
		if !ok {
			return nil, fmt.Errorf("%w: stage %d: unknown resolver %q", config.ErrInvalidConfig, i, sc.Resolver)
		}
		stages = append(stages, pipeline.Stage{Matcher: m, Resolver: r})
	}
	return stages, nil
}

func (w *Workspace) buildMatcher(ctx context.Context, cfg *config.Pipeline, sc config.Stage) (matcher.Matcher, error) {
	prefix := cfg.StagePrefix(sc)

	switch sc.Matcher {
	case config.MatcherExact:
		return matcher.NewExactMatcher(w.repos.Vocabulary, prefix)

	case config.MatcherSynonym:
		categories, err := sc.SynonymCategories()
		if err != nil {
			return nil, err
		}
		types, err := sc.SynonymTypes()
		if err != nil {
			return nil, err
		}
		return matcher.NewSynonymMatcher(w.repos.Vocabulary, prefix,
			matcher.WithCategories(categories...),
			matcher.WithTypes(types...))

	case config.MatcherRecognition:
		var opts []matcher.RecognitionOption
		if roots := sc.RootConceptIDs(); len(roots) > 0 {
			opts = append(opts, matcher.WithRootConcepts(roots...))
		}
		return matcher.NewRecognitionMatcher(ctx, w.repos.Vocabulary, prefix, opts...)

	case config.MatcherRAG:
		retriever, err := w.NewRetriever(ctx, sc.Retriever.Params())
		if err != nil {
			return nil, err
		}
		return matcher.NewRAGMatcher(retriever, w.provider.Disambiguator())
	}
	return nil, fmt.Errorf("%w: unknown matcher %q", config.ErrInvalidConfig, sc.Matcher)
}

// NewPipeline builds the stages of cfg and creates a pipeline over texts.
// cfg.Workers sets the pool size unless opts override it.
func (w *Workspace) NewPipeline(ctx context.Context, cfg *config.Pipeline, texts []string, opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	stages, err := w.BuildStages(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts = append([]pipeline.Option{pipeline.WithPoolSize(max(cfg.Workers, 1))}, opts...)
	return pipeline.New(cfg.Name, stages, texts, opts...)
}

// RunPipeline runs every stage of cfg over texts and saves the run summary,
// including the summary of a run that stopped early.
func (w *Workspace) RunPipeline(ctx context.Context, cfg *config.Pipeline, texts []string, opts ...pipeline.Option) (*core.Run, []*pipeline.StageReport, error) {
	p, err := w.NewPipeline(ctx, cfg, texts, opts...)
	if err != nil {
		return nil, nil, err
	}
	defer p.Release()

	reports, runErr := p.Run(ctx)
	run := p.Summary()

	// The caller's context may be the reason the run stopped.
	if err := w.repos.Runs.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		return run, reports, errors.Join(runErr, fmt.Errorf("saving run %s: %w", run.Id, err))
	}
	w.logger.Info("run finished",
		"pipeline", run.Name,
		"run", run.Id,
		"matched", len(run.Matched),
		"unmatched", len(run.Unmatched))
	return run, reports, runErr
}
