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


// Package pipeline applies an ordered list of (matcher, resolver) stages to a
// set of free-text strings.
//
// The pipeline owns two collections: the strings still unresolved and the
// record of strings matched so far. Each stage runs against a snapshot of the
// unresolved strings; the resolutions it produces are merged only after the
// whole snapshot has been processed, so no string is seen by two stages in one
// pass and the match record is append-only.
//
// Basic usage:
//
//	p, err := pipeline.New("conditions", []pipeline.Stage{
//		{Matcher: exact, Resolver: resolver.ChooseFirst{}},
//		{Matcher: synonyms, Resolver: resolver.ChooseFirst{}},
//	}, texts, pipeline.WithPoolSize(4))
//	if err != nil {
//		return err
//	}
//	defer p.Release()
//
//	reports, err := p.Run(ctx)
//
// Matcher failures other than data-integrity errors leave the string
// unresolved and are counted in StageReport.Failed. A data-integrity error
// aborts the stage without committing any of its resolutions.
package pipeline
