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
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/deft/ai"
	"github.com/poiesic/deft/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// Disambiguator implements ai.Disambiguator using OpenAI-compatible chat APIs.
type Disambiguator struct {
	client      llms.Model
	model       string
	maxAttempts int
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// newDisambiguator is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newDisambiguator(config *ai.Config) (*Disambiguator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken("none"),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return newDisambiguatorWithClient(client, config), nil
}

func newDisambiguatorWithClient(client llms.Model, config *ai.Config) *Disambiguator {
	d := &Disambiguator{
		client:      client,
		model:       config.ChatModel,
		maxAttempts: max(config.MaxAttempts, 1),
		logger:      slog.Default().With("component", "openai-disambiguator"),
	}
	if config.RequestsPerSecond > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}
	return d
}

// NewDisambiguator creates a new disambiguator using the provided configuration.
//
// Returns ai.Disambiguator interface to enforce abstraction.
func NewDisambiguator(config *ai.Config) (ai.Disambiguator, error) {
	return newDisambiguator(config)
}

// Model returns the chat model identifier.
func (d *Disambiguator) Model() string {
	return d.model
}

// Disambiguate asks the model to choose one candidate for the phrase.
// The answer is the identifier the model produced, which callers must still check
// against the candidates. An empty answer means the model declined.
func (d *Disambiguator) Disambiguate(ctx context.Context, phrase string, candidates []core.Candidate) (string, error) {
	if len(candidates) == 0 {
		return "", nil
	}

	userPrompt, err := buildUserPrompt(phrase, candidates)
	if err != nil {
		return "", err
	}
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(disambiguationSystemPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(userPrompt)},
		},
	}

	// Retry in case of malformed JSON
	var lastErr error
	for attempt := 0; attempt < d.maxAttempts; attempt++ {
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		response, err := d.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			d.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return "", err
		}
		if len(response.Choices) < 1 {
			return "", ErrNoChoices
		}

		id, err := parseAnswer(response.Choices[0].Content)
		if err != nil {
			lastErr = err
			d.logger.Warn("error parsing disambiguation answer",
				"attempt", attempt+1,
				"phrase", phrase,
				"response", response.Choices[0].Content,
				"err", err)
			continue
		}

		d.logger.Debug("disambiguated phrase", "phrase", phrase, "id", id, "candidates", len(candidates))
		return id, nil
	}

	d.logger.Error("failed to parse disambiguation answer after retries", "phrase", phrase, "err", lastErr)
	return "", lastErr
}

// parseAnswer extracts the chosen identifier from a raw model answer.
// JSON of the form {"id": ...} is preferred; otherwise the first identifier-shaped
// token in the text is used.
func parseAnswer(raw string) (string, error) {
	text := repairJSON(stripCodeFence(raw))

	var result answer
	if err := json.Unmarshal([]byte(text), &result); err == nil {
		return strings.TrimSpace(result.Id), nil
	}

	if id := firstIdentifier(text); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("%w: %q", ai.ErrMalformedAnswer, raw)
}
