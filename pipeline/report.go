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
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/deft/core"
)

const noMoreStages = "There are no more matchers or resolvers!"

// StageReport describes one applied stage. Counts are exact; sampling only
// happens when the report is formatted.
type StageReport struct {
	Pipeline string
	Index    int
	Matcher  string
	Resolver string

	// Input is the number of unresolved strings the stage started with.
	Input int

	// Resolved holds the strings committed by this stage, sorted by text.
	Resolved []Resolution

	// Unresolved holds the strings still unresolved after the stage, sorted.
	Unresolved []string

	// Failed counts strings whose matcher returned an error.
	Failed int

	// NextMatcher and NextResolver name the following stage; both are empty
	// when the pipeline is exhausted.
	NextMatcher  string
	NextResolver string

	Duration time.Duration
}

// Remaining returns the number of strings still unresolved after the stage.
func (r *StageReport) Remaining() int {
	return len(r.Unresolved)
}

// Summary returns the persisted form of the report.
func (r *StageReport) Summary() core.StageSummary {
	return core.StageSummary{
		Matcher:   r.Matcher,
		Resolver:  r.Resolver,
		Resolved:  len(r.Resolved),
		Failed:    r.Failed,
		Remaining: r.Remaining(),
	}
}

// Format renders the report as a human-readable block with up to sampleSize
// examples of matched and unmatched strings. Unmatched examples are drawn at
// random from rng; a nil rng uses the global source.
func (r *StageReport) Format(sampleSize int, rng *rand.Rand) string {
	parts := []string{
		fmt.Sprintf("Matcher %s and resolver %s were successfully applied.", r.Matcher, r.Resolver),
		r.formatResolved(sampleSize),
		r.formatUnresolved(sampleSize, rng),
		r.formatFooter(),
	}
	return strings.Join(parts, "\n")
}

func (r *StageReport) formatResolved(sampleSize int) string {
	n := len(r.Resolved)
	switch n {
	case 0:
		return "No strings were matched."
	case 1:
		return fmt.Sprintf("Only 1 string was matched: %s.", formatResolution(r.Resolved[0]))
	}

	shown := min(sampleSize, n)
	var b strings.Builder
	fmt.Fprintf(&b, "%d strings were matched, %s", n, exampleLead(shown, n))
	for _, res := range r.Resolved[:shown] {
		fmt.Fprintf(&b, "\n  - %s", formatResolution(res))
	}
	return b.String()
}

func (r *StageReport) formatUnresolved(sampleSize int, rng *rand.Rand) string {
	n := len(r.Unresolved)
	switch n {
	case 0:
		return "All strings have been matched!"
	case 1:
		return fmt.Sprintf("There remains just 1 unmatched string: '%s'.", r.Unresolved[0])
	}

	sample := slices.Clone(r.Unresolved)
	swap := func(i, j int) { sample[i], sample[j] = sample[j], sample[i] }
	if rng != nil {
		rng.Shuffle(len(sample), swap)
	} else {
		rand.Shuffle(len(sample), swap)
	}

	shown := min(sampleSize, n)
	var b strings.Builder
	fmt.Fprintf(&b, "There remain %d unmatched strings, %s", n, exampleLead(shown, n))
	for _, text := range sample[:shown] {
		fmt.Fprintf(&b, "\n  - '%s'", text)
	}
	return b.String()
}

func (r *StageReport) formatFooter() string {
	if r.NextMatcher == "" {
		return noMoreStages
	}
	return fmt.Sprintf("The next matcher is %s and the next resolver is %s.", r.NextMatcher, r.NextResolver)
}

func exampleLead(shown, total int) string {
	if shown == total {
		return "namely:"
	}
	return "for example:"
}

func formatResolution(res Resolution) string {
	return fmt.Sprintf("'%s' → '%s'", res.Text, res.Id)
}
