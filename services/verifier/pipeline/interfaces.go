// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline implements the validation orchestration state machine.
//
// The Runner drives one accepted request through a fixed sequence of
// collaborator calls (event check, job fetch, AI scoring, on-chain write,
// signing) and guarantees exactly one terminal write to the store per
// record, even on panics. Collaborators are consumed through the narrow
// interfaces below so unit tests inject fakes for every step.
package pipeline

import (
	"context"

	"github.com/AleutianAI/ChainArbiter/services/verifier/datatypes"
)

// =============================================================================
// Collaborator Ports
// =============================================================================

// EventChecker verifies that the dispute-requesting event was emitted.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; multiple pipeline runs
// share one checker.
type EventChecker interface {
	// CheckDisputeEvent reports whether the given transaction emitted a
	// CrossValidationRequested event matching the job and verifier agent.
	// A transport or receipt-lookup problem is an error; a clean "the event
	// is not there" is (false, nil).
	CheckDisputeEvent(ctx context.Context, txHash, jobID string, verifierAgentID int64) (bool, error)
}

// ChainReader fetches job state from the JobsModule contract.
type ChainReader interface {
	// GetJob returns the job snapshot for a bytes32 job id.
	GetJob(ctx context.Context, jobID string) (*datatypes.JobDetails, error)
}

// Scorer produces a reputation score from a textual scoring context.
//
// The raw score is not trusted: the pipeline clamps it into
// [MinReputationScore, MaxReputationScore] before any further step.
type Scorer interface {
	Score(ctx context.Context, scoringContext string) (int, error)

	// Backend names the scorer implementation for the service-info endpoint.
	Backend() string
}

// ChainWriter commits a reputation score to the RegistryModule contract.
type ChainWriter interface {
	// RecordScore writes the score and returns the transaction hash.
	RecordScore(ctx context.Context, agentID, verifierAgentID int64, score int) (string, error)
}

// SignedEnvelope is a detached signature plus the signer's public key,
// both hex encoded.
type SignedEnvelope struct {
	Signature string
	PublicKey string
}

// Signer signs the canonical result payload.
type Signer interface {
	// Sign returns the envelope for the given canonical bytes. Returns an
	// error while the signing key is not yet provisioned.
	Sign(ctx context.Context, payload []byte) (SignedEnvelope, error)
}

// =============================================================================
// States and Error Categories
// =============================================================================

// State is a position in the pipeline state machine. States only move
// forward; Failed is reachable from every non-terminal state.
type State string

const (
	StateCreated       State = "created"
	StateEventChecking State = "event_checking"
	StateFetchingJob   State = "fetching_job"
	StateScoring       State = "scoring"
	StateRecording     State = "recording"
	StateSigning       State = "signing"
	StateCompleted     State = "completed"
	StateFailed        State = "failed"
)

// Category is a stable failure classification. It prefixes the stored error
// string so clients can distinguish "resubmit with a corrected tx id" from
// "retry later" from "escalate" without parsing prose.
type Category string

const (
	// CategoryLookupFailure covers dispute-event verification failures,
	// including a missing event: proceeding without confirming the dispute
	// is a correctness violation, not a degraded mode.
	CategoryLookupFailure Category = "lookup_failure"

	// CategoryReadFailure covers JobsModule read errors.
	CategoryReadFailure Category = "read_failure"

	// CategoryScoringFailure covers AI scorer errors.
	CategoryScoringFailure Category = "scoring_failure"

	// CategoryWriteFailure covers RegistryModule write errors. The score was
	// computed but not durably recorded; surfaced, never dropped.
	CategoryWriteFailure Category = "write_failure"

	// CategorySigningUnavailable covers signer errors, e.g. the attestation
	// key is not yet provisioned.
	CategorySigningUnavailable Category = "signing_unavailable"

	// CategoryInternal covers recovered panics and other defects. The stored
	// reason is redacted; details go to the log only.
	CategoryInternal Category = "internal"
)

// Reason builds the categorized error string stored on a failed record.
func Reason(cat Category, msg string) string {
	return string(cat) + ": " + msg
}
