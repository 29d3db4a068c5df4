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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("arbiter.scoring")

const (
	// DefaultOllamaModel is small enough to run inside constrained
	// deployments while still following the "single integer" instruction.
	DefaultOllamaModel = "qwen2:0.5b"

	ollamaRequestTimeout = 2 * time.Minute
)

// OllamaScorer scores job contexts against a local Ollama server.
type OllamaScorer struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
	Done    bool              `json:"done"`
}

// NewOllamaScorer creates a scorer backed by an Ollama server.
//
// # Inputs
//
//   - baseURL: Ollama server URL, e.g. "http://ollama:11434". Required.
//   - model: Model tag to chat with. Empty selects DefaultOllamaModel.
//
// # Outputs
//
//   - *OllamaScorer: Ready client. No connectivity check is performed here;
//     the first Score call surfaces a dead server.
//   - error: Non-nil when baseURL is empty.
func NewOllamaScorer(baseURL, model string) (*OllamaScorer, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("ollama scorer requires a base URL")
	}
	if model == "" {
		slog.Warn("Ollama model not set, using default", "default_model", DefaultOllamaModel)
		model = DefaultOllamaModel
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	slog.Info("Initializing Ollama scorer", "base_url", baseURL, "model", model)
	return &OllamaScorer{
		httpClient: &http.Client{Timeout: ollamaRequestTimeout},
		baseURL:    baseURL,
		model:      model,
	}, nil
}

// Backend identifies this scorer in logs and the service info endpoint.
func (o *OllamaScorer) Backend() string { return "ollama" }

// Score asks the model to rate the job context and parses the reply.
//
// # Description
//
// Sends a non-streaming chat request with the system prompt demanding a
// bare integer, then extracts the first integer from the reply. The result
// may fall outside [0, 100]; callers enforce the range.
//
// # Inputs
//
//   - ctx: Cancels the HTTP request when done.
//   - scoringContext: The rendered job context to rate.
//
// # Outputs
//
//   - int: Parsed model score.
//   - error: Non-nil on transport, HTTP, or parse failure.
func (o *OllamaScorer) Score(ctx context.Context, scoringContext string) (int, error) {
	ctx, span := tracer.Start(ctx, "OllamaScorer.Score")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", o.model))

	payload := ollamaChatRequest{
		Model: o.model,
		Messages: []ollamaChatMessage{
			{Role: "system", Content: scoringSystemPrompt},
			{Role: "user", Content: scoringContext},
		},
		Stream: false,
	}
	reqBody, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to marshal request to Ollama: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/api/chat", bytes.NewBuffer(reqBody))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to create request to Ollama: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("Ollama API call failed", "error", err)
		return 0, fmt.Errorf("Ollama API call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to read response body from Ollama: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusNotFound {
			var errResp struct {
				Error string `json:"error"`
			}
			if err := json.Unmarshal(respBody, &errResp); err == nil &&
				strings.Contains(errResp.Error, "model") && strings.Contains(errResp.Error, "not found") {
				slog.Warn("Ollama model not found", "model", o.model)
				return 0, fmt.Errorf("model '%s' not found. Please run: 'ollama pull %s'", o.model, o.model)
			}
		}
		slog.Error("Ollama returned an error", "status_code", resp.StatusCode, "response", string(respBody))
		return 0, fmt.Errorf("Ollama failed with status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var chatResp ollamaChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("Failed to parse JSON response from Ollama", "error", err)
		return 0, fmt.Errorf("failed to parse Ollama response: %w", err)
	}

	score, err := ParseScore(chatResp.Message.Content)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	span.SetAttributes(attribute.Int("scoring.raw_score", score))
	slog.Debug("Received score from Ollama", "raw_score", score)
	return score, nil
}
