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


package openai

import (
	"encoding/json"

	"github.com/poiesic/deft/core"
)

const disambiguationSystemPrompt = `You map a free-text clinical phrase to exactly one ontology concept.

You are given a JSON object with the phrase and a list of candidate concepts. Each candidate has an
"id", a "description" (a label or synonym of the concept) and a "similarity_score" between the
phrase and the description. Candidates are ordered by similarity, highest first.

Output ONLY valid JSON of the form {"id": "<identifier>"} with no preamble, explanation or
code fences. Rules:
- The identifier must be copied exactly from one of the candidates.
- Prefer the most specific candidate whose meaning matches the phrase.
- A high similarity score alone is not enough; the meaning must match.
- If no candidate matches the phrase, output {"id": ""}.

Example:
Input: {"phrase":"wheezy chest","candidates":[{"id":"HP:0030828","description":"Wheezing","similarity_score":0.71},{"id":"HP:0002099","description":"Asthma","similarity_score":0.64}]}
Output: {"id":"HP:0030828"}`

// disambiguationInput is the user message sent with every request.
type disambiguationInput struct {
	Phrase     string           `json:"phrase"`
	Candidates []core.Candidate `json:"candidates"`
}

// answer is the JSON shape the model is asked to produce.
type answer struct {
	Id string `json:"id"`
}

// buildUserPrompt renders the phrase and candidates as the JSON user message.
func buildUserPrompt(phrase string, candidates []core.Candidate) (string, error) {
	data, err := json.Marshal(disambiguationInput{Phrase: phrase, Candidates: candidates})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
