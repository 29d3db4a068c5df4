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

// scoringSystemPrompt instructs the model to answer with a bare integer.
// Both backends share it so scores stay comparable when the backend is
// swapped by configuration.
const scoringSystemPrompt = "You are a cross-validation agent for a decentralized " +
	"agent marketplace. You are given the details of a completed job. Evaluate the " +
	"quality and legitimacy of the work described and rate it on a scale from 0 to 100, " +
	"where 0 means fraudulent or worthless and 100 means excellent, fully delivered work. " +
	"Respond with ONLY a single integer between 0 and 100. No explanation, no punctuation."

// Backends selectable by configuration.
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
)
