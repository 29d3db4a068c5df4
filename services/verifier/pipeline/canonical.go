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
	"encoding/json"
	"fmt"

	"github.com/AleutianAI/ChainArbiter/services/verifier/datatypes"
)

// canonicalPayload is the signing input. Field order is fixed by the struct
// definition and encoding/json emits struct fields in declaration order, so
// the byte encoding is deterministic: anyone holding the result fields can
// rebuild the exact bytes and verify the signature.
//
// Signature and PublicKey are deliberately absent — the signature covers the
// result, not itself.
type canonicalPayload struct {
	ValidationID   string                `json:"validation_id"`
	Status         datatypes.Status      `json:"status"`
	AIScore        int                   `json:"ai_score"`
	ReputationTxID string                `json:"reputation_tx_id"`
	EventFound     *bool                 `json:"event_found"`
	JobDetails     *datatypes.JobDetails `json:"job_details"`
}

// CanonicalPayload renders the deterministic byte encoding of a completed
// result, used as the signing input.
func CanonicalPayload(validationID string, res *datatypes.ValidationResult) ([]byte, error) {
	if res == nil {
		return nil, fmt.Errorf("cannot build canonical payload from nil result")
	}
	return json.Marshal(canonicalPayload{
		ValidationID:   validationID,
		Status:         datatypes.StatusCompleted,
		AIScore:        res.AIScore,
		ReputationTxID: res.ReputationTxID,
		EventFound:     res.EventFound,
		JobDetails:     res.JobDetails,
	})
}
