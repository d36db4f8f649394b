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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/deft/core"
)

// Pipeline is the stage state machine. It is either pending the stage at
// NextStage or exhausted. Next and Run must not be called concurrently; the
// accessors may be called at any time.
type Pipeline struct {
	id       string
	name     string
	stages   []Stage
	pool     *ants.Pool
	reporter Reporter
	logger   *slog.Logger

	mu        sync.RWMutex
	next      int
	matched   map[string]core.Identifier
	unmatched map[string]struct{}
	summaries []core.StageSummary
	started   time.Time
	finished  time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize matches up to size strings of a stage concurrently.
// Default is 1: strings are matched one after another.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("%w: pool size must be at least 1, got %d", ErrInvalidOption, size)
		}

		if p.pool != nil {
			p.pool.Release()
			p.pool = nil
		}
		if size == 1 {
			return nil
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithReporter sets the progress reporter. Default reports nothing.
func WithReporter(reporter Reporter) Option {
	return func(p *Pipeline) error {
		if reporter == nil {
			reporter = &noopReporter{}
		}
		p.reporter = reporter
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// New creates a pipeline over texts. Duplicate texts collapse into one.
func New(name string, stages []Stage, texts []string, opts ...Option) (*Pipeline, error) {
	for i, stage := range stages {
		if stage.Matcher == nil || stage.Resolver == nil {
			return nil, fmt.Errorf("%w: stage %d", ErrInvalidStage, i)
		}
	}

	p := &Pipeline{
		id:        uuid.NewString(),
		name:      name,
		stages:    slices.Clone(stages),
		reporter:  &noopReporter{},
		logger:    slog.Default().With("component", "pipeline"),
		matched:   make(map[string]core.Identifier),
		unmatched: make(map[string]struct{}, len(texts)),
	}
	for _, text := range texts {
		p.unmatched[text] = struct{}{}
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			p.Release()
			return nil, err
		}
	}
	return p, nil
}

// Release releases the worker pool. The pipeline must not be advanced after
// calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// Next applies the next stage to the unresolved strings and commits its
// resolutions. Once every stage has been applied, Next reports exhaustion and
// returns (nil, nil) without changing any state.
//
// If the stage hits a data-integrity failure, or ctx is done before it
// finishes, nothing from the stage is committed and the stage stays pending.
func (p *Pipeline) Next(ctx context.Context) (*StageReport, error) {
	if p.Exhausted() {
		p.reporter.Exhausted(p.name)
		return nil, nil
	}

	index := p.NextStage()
	stage := p.stages[index]
	snapshot := p.Unmatched()

	p.mu.Lock()
	if p.started.IsZero() {
		p.started = time.Now().UTC()
		p.mu.Unlock()
		p.reporter.Start(p.name, p.stages, len(snapshot))
	} else {
		p.mu.Unlock()
	}

	p.reporter.StageStarted(p.name, index, stage, len(snapshot))
	start := time.Now()

	outcomes, err := p.matchAll(ctx, stage, snapshot)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, o := range outcomes {
		if o.fatal != nil {
			p.logger.Error("aborting stage", "stage", index, "matcher", stage.Matcher.Name(), "text", snapshot[i], "err", o.fatal)
			return nil, fmt.Errorf("%w: stage %d (%s) on %q: %w", ErrStageAborted, index, stage.Matcher.Name(), snapshot[i], o.fatal)
		}
	}

	report := &StageReport{
		Pipeline: p.name,
		Index:    index,
		Matcher:  stage.Matcher.Name(),
		Resolver: stage.Resolver.Name(),
		Input:    len(snapshot),
		Resolved: []Resolution{},
	}

	p.mu.Lock()
	for i, text := range snapshot {
		o := outcomes[i]
		if o.failed {
			report.Failed++
		}
		if !o.resolved {
			continue
		}
		p.matched[text] = o.id
		delete(p.unmatched, text)
		report.Resolved = append(report.Resolved, Resolution{Text: text, Id: o.id})
	}
	p.next++
	report.Unresolved = sortedKeys(p.unmatched)
	if p.next < len(p.stages) {
		report.NextMatcher = p.stages[p.next].Matcher.Name()
		report.NextResolver = p.stages[p.next].Resolver.Name()
	} else {
		p.finished = time.Now().UTC()
	}
	report.Duration = time.Since(start)
	p.summaries = append(p.summaries, report.Summary())
	p.mu.Unlock()

	p.reporter.StageFinished(report)
	return report, nil
}

// Run applies every remaining stage in order and returns their reports.
// It stops at the first error, returning the reports of the stages that
// completed.
func (p *Pipeline) Run(ctx context.Context) ([]*StageReport, error) {
	reports := []*StageReport{}
	for !p.Exhausted() {
		report, err := p.Next(ctx)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// matchAll matches every string of the snapshot. outcomes[i] belongs to
// snapshot[i]; workers never share a slot.
func (p *Pipeline) matchAll(ctx context.Context, stage Stage, snapshot []string) ([]outcome, error) {
	outcomes := make([]outcome, len(snapshot))

	stageCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if p.pool == nil {
		for i, text := range snapshot {
			outcomes[i] = p.matchOne(stageCtx, stage, text)
			if outcomes[i].fatal != nil {
				break
			}
		}
		return outcomes, nil
	}

	var wg sync.WaitGroup
	for i, text := range snapshot {
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			if stageCtx.Err() != nil {
				return
			}
			outcomes[i] = p.matchOne(stageCtx, stage, text)
			if outcomes[i].fatal != nil {
				cancel()
			}
		})
		if err != nil {
			wg.Done()
			cancel()
			wg.Wait()
			return nil, fmt.Errorf("submitting %q: %w", text, err)
		}
	}
	wg.Wait()
	return outcomes, nil
}

func (p *Pipeline) matchOne(ctx context.Context, stage Stage, text string) outcome {
	candidates, err := stage.Matcher.Match(ctx, text)
	if err != nil {
		if errors.Is(err, core.ErrDataIntegrity) {
			return outcome{fatal: err}
		}
		p.logger.Warn("matcher failed, leaving string unresolved",
			"matcher", stage.Matcher.Name(),
			"text", text,
			"err", err)
		return outcome{failed: true}
	}

	id, ok := stage.Resolver.Resolve(candidates)
	if !ok || id == "" {
		p.logger.Debug("no resolution", "matcher", stage.Matcher.Name(), "text", text, "candidates", len(candidates))
		return outcome{}
	}
	p.logger.Debug("matched", "matcher", stage.Matcher.Name(), "text", text, "id", id)
	return outcome{id: id, resolved: true}
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string {
	return p.name
}

// Exhausted reports whether every stage has been applied.
func (p *Pipeline) Exhausted() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.next >= len(p.stages)
}

// NextStage returns the index of the stage Next will apply.
// It equals the number of stages once the pipeline is exhausted.
func (p *Pipeline) NextStage() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.next
}

// Matched returns a copy of the match record.
func (p *Pipeline) Matched() map[string]core.Identifier {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return maps.Clone(p.matched)
}

// Unmatched returns the unresolved strings, sorted.
func (p *Pipeline) Unmatched() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return sortedKeys(p.unmatched)
}

// Summary returns the run in its persisted form.
func (p *Pipeline) Summary() *core.Run {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &core.Run{
		Id:         p.id,
		Name:       p.name,
		StartedAt:  p.started,
		FinishedAt: p.finished,
		Stages:     slices.Clone(p.summaries),
		Matched:    maps.Clone(p.matched),
		Unmatched:  sortedKeys(p.unmatched),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	return slices.Sorted(maps.Keys(set))
}
