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
	"fmt"
	"log/slog"
	"strings"
)

// Reporter observes pipeline progress. Calls are made from the goroutine
// driving the pipeline, never concurrently.
type Reporter interface {
	// Start is called once, before the first stage runs.
	Start(pipeline string, stages []Stage, inputs int)

	// StageStarted is called before a stage processes its snapshot.
	StageStarted(pipeline string, index int, stage Stage, inputs int)

	// StageFinished is called after a stage's resolutions are committed.
	StageFinished(report *StageReport)

	// Exhausted is called when Next is invoked with no stages left.
	Exhausted(pipeline string)
}

type noopReporter struct{}

var _ Reporter = (*noopReporter)(nil)

func (n *noopReporter) Start(_ string, _ []Stage, _ int) {}
func (n *noopReporter) StageStarted(_ string, _ int, _ Stage, _ int) {}
func (n *noopReporter) StageFinished(_ *StageReport) {}
func (n *noopReporter) Exhausted(_ string) {}

// LogReporter writes progress to a slog logger in the same text blocks a
// person would read in a run log.
type LogReporter struct {
	logger     *slog.Logger
	sampleSize int
}

var _ Reporter = (*LogReporter)(nil)

// NewLogReporter creates a reporter that shows up to sampleSize examples of
// matched and unmatched strings per stage. A nil logger uses slog.Default().
func NewLogReporter(logger *slog.Logger, sampleSize int) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{
		logger:     logger.With("component", "pipeline"),
		sampleSize: max(sampleSize, 0),
	}
}

func (r *LogReporter) Start(pipeline string, stages []Stage, inputs int) {
	var b strings.Builder
	fmt.Fprintf(&b, "Applying the deft pipeline to %s with matchers and resolvers:", pipeline)
	for _, stage := range stages {
		fmt.Fprintf(&b, "\n  - %s and %s", stage.Matcher.Name(), stage.Resolver.Name())
	}
	r.logger.Info(b.String(), "pipeline", pipeline, "inputs", inputs)
}

func (r *LogReporter) StageStarted(pipeline string, index int, stage Stage, inputs int) {
	r.logger.Info(
		fmt.Sprintf("Applying matcher %s and resolver %s to %d unmatched strings.",
			stage.Matcher.Name(), stage.Resolver.Name(), inputs),
		"pipeline", pipeline,
		"stage", index)
}

func (r *LogReporter) StageFinished(report *StageReport) {
	r.logger.Info(report.Format(r.sampleSize, nil),
		"pipeline", report.Pipeline,
		"stage", report.Index,
		"resolved", len(report.Resolved),
		"failed", report.Failed,
		"remaining", report.Remaining(),
		"duration", report.Duration)
}

func (r *LogReporter) Exhausted(pipeline string) {
	r.logger.Info(noMoreStages, "pipeline", pipeline)
}

// MultiReporter forwards every call to each of its reporters in order.
type MultiReporter []Reporter

var _ Reporter = MultiReporter(nil)

func (m MultiReporter) Start(pipeline string, stages []Stage, inputs int) {
	for _, r := range m {
		r.Start(pipeline, stages, inputs)
	}
}

func (m MultiReporter) StageStarted(pipeline string, index int, stage Stage, inputs int) {
	for _, r := range m {
		r.StageStarted(pipeline, index, stage, inputs)
	}
}

func (m MultiReporter) StageFinished(report *StageReport) {
	for _, r := range m {
		r.StageFinished(report)
	}
}

func (m MultiReporter) Exhausted(pipeline string) {
	for _, r := range m {
		r.Exhausted(pipeline)
	}
}
