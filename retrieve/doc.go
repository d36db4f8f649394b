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


// Package retrieve builds bounded candidate lists for a phrase from the
// similarity index.
//
// A Retriever embeds the phrase, fetches Params.AmountToSearch nearest rows,
// re-sorts them by score (stable, highest first) and scans them, resolving each
// row through the metadata table loaded once at construction. A neighbor is
// accepted when its score meets the threshold, when fewer than MinCandidates
// have been accepted, or, with hybrid search, when its text shares a lowercase
// word with the phrase. Identifiers are accepted at most once and scanning
// stops at MaxCandidates.
//
// The resulting order is what gives a downstream choose-first resolver a
// meaningful answer; resolvers do not re-rank.
//
// A neighbor row without an identifier or text is a data-integrity failure
// (core.ErrDataIntegrity), as is a query embedding whose length differs from
// the indexed vectors. Other embedding and search failures wrap
// ErrOracleUnavailable.
package retrieve
