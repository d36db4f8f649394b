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


package indexing

import (
	"strconv"
	"strings"

	"github.com/poiesic/deft/core"
)

// TermTexts returns the index rows of a term before embedding: its label and
// each synonym, dropping spellings that differ only in case.
func TermTexts(term *core.Term) []*core.IndexEntry {
	seen := make(map[string]struct{}, len(term.Synonyms)+1)
	entries := make([]*core.IndexEntry, 0, len(term.Synonyms)+1)

	add := func(text string) {
		text = strings.TrimSpace(text)
		key := core.NormalizeLabel(text)
		if key == "" {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		entries = append(entries, &core.IndexEntry{Id: term.Id, Text: text})
	}

	add(term.Label)
	for _, s := range term.Synonyms {
		add(s.Name)
	}
	return entries
}

// Fingerprint identifies an index build by the embedding model, the vector
// length and the identifier and text of every row, in order. Vector values
// are not part of it.
func Fingerprint(entries []*core.IndexEntry, model string, dimensions int) core.ID {
	var b strings.Builder
	b.WriteString(model)
	b.WriteByte(0)
	b.WriteString(strconv.Itoa(dimensions))
	b.WriteByte(0)
	for _, e := range entries {
		b.WriteString(string(e.Id))
		b.WriteByte(0)
		b.WriteString(e.Text)
		b.WriteByte(0)
	}
	return core.IDFromContent(b.String())
}
