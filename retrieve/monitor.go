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


package retrieve

import "github.com/poiesic/deft/core"

// Decision explains why a neighbor was accepted or skipped.
type Decision int

const (
	AcceptedByThreshold Decision = iota
	AcceptedByMinimum
	AcceptedByTokenOverlap
	SkippedDuplicate
	SkippedBelowThreshold
)

func (d Decision) String() string {
	switch d {
	case AcceptedByThreshold:
		return "threshold"
	case AcceptedByMinimum:
		return "min_candidates"
	case AcceptedByTokenOverlap:
		return "token_overlap"
	case SkippedDuplicate:
		return "duplicate"
	case SkippedBelowThreshold:
		return "below_threshold"
	}
	return "unknown"
}

// Accepted reports whether the decision admitted the candidate.
func (d Decision) Accepted() bool {
	return d <= AcceptedByTokenOverlap
}

// Monitor observes a single retrieval, e.g. to explain results from the CLI.
type Monitor interface {
	Start(phrase string)
	AfterSearch(neighbors []core.Neighbor)
	Decided(candidate core.Candidate, decision Decision)
	Finish(candidates []core.Candidate)
}

type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string) {}
func (n *noopMonitor) AfterSearch(_ []core.Neighbor) {}
func (n *noopMonitor) Decided(_ core.Candidate, _ Decision) {}
func (n *noopMonitor) Finish(_ []core.Candidate) {}
