// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"fmt"

	"github.com/AleutianAI/ChainArbiter/services/verifier/datatypes"
)

// BuildScoringContext renders the prompt handed to the AI scorer.
//
// Pure function of the job snapshot: same job in, same text out, so scoring
// runs are reproducible and the function needs no locking.
func BuildScoringContext(job *datatypes.JobDetails) string {
	return fmt.Sprintf(`Job Validation Context:

Job ID: %s
Creator: %s
Agent ID: %d
Budget: %s (in smallest unit)
Description: %s
State: %d
Created At: %d (timestamp)
Accept Deadline: %d (timestamp)
Complete Deadline: %d (timestamp)
Step: %d

Your task is to evaluate the quality and completion of this job based on the description and context provided.
Provide a reputation score from 0 to 100, where:
- 0-20: Poor quality or incomplete
- 21-40: Below average
- 41-60: Average
- 61-80: Good quality
- 81-100: Excellent quality

Consider factors such as:
1. Job description clarity
2. Completion status (based on state)
3. Budget appropriateness
4. Timeline adherence

Respond with ONLY a number between 0 and 100.
`,
		job.MultihopID,
		job.Creator,
		job.AgentID,
		job.Budget,
		job.Description,
		job.State,
		job.CreatedAt,
		job.AcceptDeadline,
		job.CompleteDeadline,
		job.Step,
	)
}

// ClampScore forces a raw scorer output into the valid score range.
//
// Out-of-range values are a contract violation by the scorer. Policy
// decision: clamp rather than reject, so a usable (if saturated) score is
// still recorded; the clamped flag lets the caller log the violation.
func ClampScore(raw int) (score int, clamped bool) {
	if raw < datatypes.MinReputationScore {
		return datatypes.MinReputationScore, true
	}
	if raw > datatypes.MaxReputationScore {
		return datatypes.MaxReputationScore, true
	}
	return raw, false
}
