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


package badger

import (
	"bytes"
	"encoding/binary"

	"github.com/poiesic/deft/core"
)

const (
	termPrefix       = "term:"
	labelPrefix      = "lbl:"
	synonymPrefix    = "syn:"
	vocabularyPrefix = "pfx:"
	indexPrefix      = "idx:"
	indexFingerprint = "idxfp"
	runPrefix        = "run:"
)

// keySep separates variable-length parts of index keys. Normalized labels
// never contain it.
const keySep = 0

func makeTermKey(id core.Identifier) []byte {
	return []byte(termPrefix + string(id))
}

// makeLabelKey builds "lbl:<label>\x00<id>" so that all identifiers sharing a
// label sit under one scan prefix.
func makeLabelKey(label string, id core.Identifier) []byte {
	return append(makeLabelScanPrefix(label), id...)
}

func makeLabelScanPrefix(label string) []byte {
	buf := make([]byte, 0, len(labelPrefix)+len(label)+1)
	buf = append(buf, labelPrefix...)
	buf = append(buf, label...)
	return append(buf, keySep)
}

// makeSynonymKey builds "syn:<name>\x00<id>\x00<category><type>". Category and
// type are single bytes at the end of the key.
func makeSynonymKey(name string, id core.Identifier, category core.SynonymCategory, synonymType core.SynonymType) []byte {
	buf := makeSynonymScanPrefix(name)
	buf = append(buf, id...)
	return append(buf, keySep, byte(category), byte(synonymType))
}

func makeSynonymScanPrefix(name string) []byte {
	buf := make([]byte, 0, len(synonymPrefix)+len(name)+1)
	buf = append(buf, synonymPrefix...)
	buf = append(buf, name...)
	return append(buf, keySep)
}

// parseSynonymKey splits the part of a synonym key after its scan prefix.
func parseSynonymKey(suffix []byte) (core.Identifier, core.SynonymCategory, core.SynonymType, bool) {
	if len(suffix) < 3 || suffix[len(suffix)-3] != keySep {
		return "", 0, 0, false
	}
	id := core.Identifier(suffix[:len(suffix)-3])
	return id, core.SynonymCategory(suffix[len(suffix)-2]), core.SynonymType(suffix[len(suffix)-1]), true
}

func makeVocabularyKey(prefix string) []byte {
	return []byte(vocabularyPrefix + prefix)
}

// makeIndexKey writes the row BigEndian so keys sort in row order.
func makeIndexKey(row int) []byte {
	buf := make([]byte, len(indexPrefix)+8)
	offset := copy(buf, indexPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(row))
	return buf
}

func parseIndexKey(key []byte) (int, bool) {
	rest, ok := bytes.CutPrefix(key, []byte(indexPrefix))
	if !ok || len(rest) != 8 {
		return 0, false
	}
	return int(binary.BigEndian.Uint64(rest)), true
}

func makeRunKey(id string) []byte {
	return []byte(runPrefix + id)
}
