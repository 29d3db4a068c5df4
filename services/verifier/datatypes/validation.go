// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the request, record, and result types for the
// dispute-resolution validation pipeline, plus their validation rules.
package datatypes

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/ChainArbiter/pkg/validation"
)

// =============================================================================
// Score Bounds
// =============================================================================

const (
	// MinReputationScore is the lowest score the registry contract accepts.
	MinReputationScore = 0

	// MaxReputationScore is the highest score the registry contract accepts.
	MaxReputationScore = 100
)

// =============================================================================
// Validation Status
// =============================================================================

// Status is the lifecycle state of a validation record.
//
// Transitions are monotonic: processing moves to exactly one of completed or
// failed and never changes again.
type Status string

const (
	// StatusProcessing means the pipeline run for this record is in flight.
	StatusProcessing Status = "processing"

	// StatusCompleted means the pipeline finished and Result is populated.
	StatusCompleted Status = "completed"

	// StatusFailed means the pipeline stopped and Error is populated.
	StatusFailed Status = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// =============================================================================
// Shared Validator Instance
// =============================================================================

// recordValidate is the validator instance for validation datatypes.
// Initialized in init() with custom validators.
var recordValidate *validator.Validate

func init() {
	recordValidate = validator.New()

	_ = recordValidate.RegisterValidation("bytes32hex", validateBytes32Hex)
	_ = recordValidate.RegisterValidation("txhash", validateTxHash)
}

// validateBytes32Hex validates that a field holds a bytes32-compatible hex id.
func validateBytes32Hex(fl validator.FieldLevel) bool {
	return validation.ValidateJobID(fl.Field().String()) == nil
}

// validateTxHash validates that a field holds a 32-byte transaction hash.
func validateTxHash(fl validator.FieldLevel) bool {
	return validation.ValidateTxHash(fl.Field().String()) == nil
}

// =============================================================================
// Request Types
// =============================================================================

// ValidationRequest is the body for POST /v1/validations.
//
// # Description
//
// Identifies the disputed job, the transaction that asserted the dispute,
// and the verifier agent recording the outcome. TransactionID is optional:
// when absent, the pipeline skips dispute-event verification and the result's
// event_found stays null ("unchecked").
//
// # Validation
//
// Uses go-playground/validator:
//   - JobID: required, bytes32-compatible hex (optional 0x prefix)
//   - TransactionID: optional, but a 32-byte tx hash when present
//   - VerifierAgentID: non-negative
type ValidationRequest struct {
	JobID           string `json:"job_id" validate:"required,bytes32hex"`
	TransactionID   string `json:"transaction_id,omitempty" validate:"omitempty,txhash"`
	VerifierAgentID int64  `json:"verifier_agent_id" validate:"gte=0"`
}

// Validate validates the ValidationRequest fields.
//
// Call after binding the JSON body; a non-nil error means the request must
// be rejected before any record is created.
func (r *ValidationRequest) Validate() error {
	return recordValidate.Struct(r)
}

// HasTransaction reports whether dispute-event verification was requested.
func (r *ValidationRequest) HasTransaction() bool {
	return r.TransactionID != ""
}

// =============================================================================
// Job Details
// =============================================================================

// JobDetails is the job snapshot read from the JobsModule contract.
//
// # Fields
//
// Field order and naming mirror the getJob tuple:
// (creator, agentId, budget, description, state, createdAt, acceptDeadline,
// completeDeadline, multihopId, step). Budget is a decimal string because
// uint256 budgets do not fit int64.
type JobDetails struct {
	Creator          string `json:"creator"`
	AgentID          int64  `json:"agent_id"`
	Budget           string `json:"budget"`
	Description      string `json:"description"`
	State            uint8  `json:"state"`
	CreatedAt        uint64 `json:"created_at"`
	AcceptDeadline   uint64 `json:"accept_deadline"`
	CompleteDeadline uint64 `json:"complete_deadline"`
	MultihopID       string `json:"multihop_id"`
	Step             uint64 `json:"step"`
}

// =============================================================================
// Result and Record Types
// =============================================================================

// ValidationResult is the payload of a completed validation.
//
// # Fields
//
//   - AIScore: reputation score in [0, 100], already clamped
//   - ReputationTxID: hash of the on-chain score-recording transaction
//   - EventFound: dispute-event check outcome; nil means the check was
//     skipped because no transaction_id was supplied
//   - JobDetails: the job snapshot the score was derived from
//   - Signature / PublicKey: detached hex signature over the canonical
//     result payload, and the signer's public key
type ValidationResult struct {
	AIScore        int         `json:"ai_score"`
	ReputationTxID string      `json:"reputation_tx_id"`
	EventFound     *bool       `json:"event_found"`
	JobDetails     *JobDetails `json:"job_details,omitempty"`
	Signature      string      `json:"signature,omitempty"`
	PublicKey      string      `json:"public_key,omitempty"`
}

// ValidationRecord tracks one accepted request through the pipeline.
//
// # Invariants
//
//   - exactly one of Result/Error is set once Status leaves processing;
//     both are absent while processing
//   - Status only ever moves forward (processing -> completed|failed)
//   - the record is mutated only through the store's Finalize
type ValidationRecord struct {
	ID        string            `json:"validation_id"`
	Request   ValidationRequest `json:"request"`
	Status    Status            `json:"status"`
	Result    *ValidationResult `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	CreatedAt int64             `json:"created_at"`
	UpdatedAt int64             `json:"updated_at"`
}

// Clone returns a deep copy of the record so store readers never share
// mutable state with the pipeline run that owns the record.
func (r *ValidationRecord) Clone() ValidationRecord {
	out := *r
	if r.Result != nil {
		res := *r.Result
		if r.Result.EventFound != nil {
			found := *r.Result.EventFound
			res.EventFound = &found
		}
		if r.Result.JobDetails != nil {
			jd := *r.Result.JobDetails
			res.JobDetails = &jd
		}
		out.Result = &res
	}
	return out
}

// =============================================================================
// HTTP Response Types
// =============================================================================

// SubmitResponse is returned by POST /v1/validations.
type SubmitResponse struct {
	ValidationID string `json:"validation_id"`
	Status       Status `json:"status"`
	StatusURL    string `json:"status_url"`
	Timestamp    int64  `json:"timestamp"`
}

// ServiceInfo is returned by GET /.
type ServiceInfo struct {
	Service       string `json:"service"`
	ScorerBackend string `json:"scorer_backend"`
	PublicKey     string `json:"public_key,omitempty"`
	SubmitURL     string `json:"submit_url"`
}

// NowMillis returns the current time in unix milliseconds, the timestamp
// convention used across record fields.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
