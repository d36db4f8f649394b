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


package core

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// wordPattern matches word tokens: letters, digits, combining marks and underscores.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}\p{M}_]+`)

// newAccentStripper returns a fresh transformer; transformers keep state and
// must not be shared between goroutines.
func newAccentStripper() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// NormalizeLabel returns the lookup form of a label or free text: lowercased with
// surrounding whitespace removed. Stored labels keep their original spelling.
func NormalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Tokens splits text into lowercase word tokens, in order, duplicates kept.
func Tokens(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// TokenSet returns the set of lowercase word tokens of text.
func TokenSet(text string) map[string]struct{} {
	tokens := Tokens(text)
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}

// SharesToken reports whether any word token of text is in tokens.
func SharesToken(tokens map[string]struct{}, text string) bool {
	if len(tokens) == 0 {
		return false
	}
	for _, token := range Tokens(text) {
		if _, ok := tokens[token]; ok {
			return true
		}
	}
	return false
}

// FoldedTokens is Tokens with accents removed, so "Sjögren" and "Sjogren" agree.
func FoldedTokens(text string) []string {
	folded, _, err := transform.String(newAccentStripper(), text)
	if err != nil {
		folded = text
	}
	return Tokens(folded)
}
