// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scoring

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// OpenAIScorer scores job contexts against OpenAI or any server speaking
// the OpenAI chat-completions protocol (vLLM, llama.cpp, LiteLLM proxies).
type OpenAIScorer struct {
	client *openai.Client
	model  string
}

// NewOpenAIScorer creates a scorer backed by an OpenAI-compatible API.
//
// # Inputs
//
//   - apiKey: Bearer token. Required for the hosted API; compatible local
//     servers usually accept any non-empty value.
//   - baseURL: Override for compatible servers. Empty uses the hosted API.
//   - model: Model name, e.g. "gpt-4o-mini". Required.
//
// # Outputs
//
//   - *OpenAIScorer: Ready client.
//   - error: Non-nil when apiKey or model is missing.
func NewOpenAIScorer(apiKey, baseURL, model string) (*OpenAIScorer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai scorer requires an API key")
	}
	if model == "" {
		return nil, fmt.Errorf("openai scorer requires a model name")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	slog.Info("Initializing OpenAI scorer", "model", model, "base_url_override", baseURL != "")
	return &OpenAIScorer{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

// Backend identifies this scorer in logs and the service info endpoint.
func (o *OpenAIScorer) Backend() string { return "openai" }

// Score asks the model to rate the job context and parses the reply.
func (o *OpenAIScorer) Score(ctx context.Context, scoringContext string) (int, error) {
	ctx, span := tracer.Start(ctx, "OpenAIScorer.Score")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", o.model))

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: scoringSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: scoringContext},
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("OpenAI API call failed", "error", err)
		return 0, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, fmt.Errorf("OpenAI returned no choices")
	}

	score, err := ParseScore(resp.Choices[0].Message.Content)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	span.SetAttributes(attribute.Int("scoring.raw_score", score))
	slog.Debug("Received score from OpenAI", "raw_score", score)
	return score, nil
}
