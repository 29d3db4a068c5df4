// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline drives a validation from accepted request to terminal
// record.
//
// This package contains the Runner, the state machine that sequences the
// collaborator ports: dispute-event lookup, job read, AI scoring, reputation
// write, and result signing. The Runner holds no network or provider logic
// of its own - retries, timeouts, and circuit breakers belong to the port
// implementations. Its single job is ordering, classification of failures,
// and exactly-once finalization of the backing record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/ChainArbiter/services/verifier/datatypes"
	"github.com/AleutianAI/ChainArbiter/services/verifier/observability"
	"github.com/AleutianAI/ChainArbiter/services/verifier/store"
)

var tracer = otel.Tracer("arbiter.pipeline")

// =============================================================================
// Runner
// =============================================================================

// Runner executes the validation pipeline against a set of collaborator
// ports and finalizes the outcome in the store.
//
// # Description
//
// A single Runner is shared by all in-flight validations. Each call to Run
// processes one validation identified by its store ID. The Runner guarantees
// that the record reaches exactly one terminal state, even when a
// collaborator panics.
//
// # Thread Safety
//
// Safe for concurrent use. Run carries no per-validation state on the
// Runner itself; everything lives on the goroutine stack.
//
// # Assumptions
//
//   - The record for id was created via Store.Create before Run is called
//   - Port implementations honor ctx cancellation on their own schedule
type Runner struct {
	store   store.Store
	events  EventChecker
	reader  ChainReader
	scorer  Scorer
	writer  ChainWriter
	signer  Signer
	metrics *observability.PipelineMetrics
}

// NewRunner builds a Runner from its collaborator ports.
//
// # Inputs
//
//   - st: Backing store holding the validation records. Must be non-nil.
//   - events: Dispute-event lookup port. Must be non-nil.
//   - reader: On-chain job read port. Must be non-nil.
//   - scorer: AI scoring port. Must be non-nil.
//   - writer: On-chain reputation write port. Must be non-nil.
//   - signer: Result signing port. May be nil when no signing backend is
//     configured; validations then fail at the signing step with a
//     signing_unavailable reason.
//   - metrics: Pipeline metrics sink. May be nil (metrics become no-ops).
//
// # Outputs
//
//   - *Runner: Ready-to-use runner.
//   - error: Non-nil when a required port is missing.
func NewRunner(
	st store.Store,
	events EventChecker,
	reader ChainReader,
	scorer Scorer,
	writer ChainWriter,
	signer Signer,
	metrics *observability.PipelineMetrics,
) (*Runner, error) {
	if st == nil {
		return nil, fmt.Errorf("runner requires a store")
	}
	if events == nil {
		return nil, fmt.Errorf("runner requires an event checker")
	}
	if reader == nil {
		return nil, fmt.Errorf("runner requires a chain reader")
	}
	if scorer == nil {
		return nil, fmt.Errorf("runner requires a scorer")
	}
	if writer == nil {
		return nil, fmt.Errorf("runner requires a chain writer")
	}
	return &Runner{
		store:   st,
		events:  events,
		reader:  reader,
		scorer:  scorer,
		writer:  writer,
		signer:  signer,
		metrics: metrics,
	}, nil
}

// Run processes one validation to a terminal state.
//
// # Description
//
// Executes the step sequence for the given request and finalizes the record
// exactly once:
//
//  1. Dispute-event check (skipped when no transaction was supplied)
//  2. On-chain job read
//  3. AI scoring of the job context
//  4. On-chain reputation write
//  5. Result signing (best-effort identity attestation)
//
// The first failing step terminates the run; later steps are not attempted.
// Failure reasons are prefixed with a stable category token so callers can
// classify outcomes without string matching on provider messages. A panic in
// any collaborator is recovered, logged with its stack, and surfaced to the
// caller only as a redacted internal failure.
//
// # Inputs
//
//   - ctx: Governs the whole run. Callers typically pass a background
//     context; cancellation mid-run yields a failed record.
//   - id: Store ID of the record created for this request.
//   - req: The validated request being processed.
//
// # Outputs
//
// None. The outcome is observable through the store.
//
// # Limitations
//
//   - No step-level retry - port implementations own their retry policy
func (r *Runner) Run(ctx context.Context, id string, req datatypes.ValidationRequest) {
	ctx, span := tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("validation.id", id),
		attribute.String("job.id", req.JobID),
	))
	defer span.End()

	log := slog.With("validation_id", id, "job_id", req.JobID)
	r.metrics.RunStarted()

	var (
		result    datatypes.ValidationResult
		finalized bool
	)
	fail := func(cat Category, msg string) {
		finalized = true
		r.finalize(log, id, store.Failed(Reason(cat, msg)))
		r.metrics.RunFinished(string(datatypes.StatusFailed))
	}
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("validation pipeline panicked",
				"panic", fmt.Sprint(rec))
			// The panic value may carry provider internals; the record
			// gets a redacted reason only.
			r.finalize(log, id, store.Failed(Reason(CategoryInternal, "unexpected internal error")))
			r.metrics.RecordStepFailure("run", string(CategoryInternal))
			r.metrics.RunFinished(string(datatypes.StatusFailed))
			return
		}
		if !finalized {
			// Fell off the end of the step sequence without a terminal
			// outcome. Should be unreachable; treat as internal.
			r.finalize(log, id, store.Failed(Reason(CategoryInternal, "pipeline ended without outcome")))
			r.metrics.RunFinished(string(datatypes.StatusFailed))
		}
	}()

	// --- Step 1: dispute-event check -------------------------------------
	if req.HasTransaction() {
		found, err := step(ctx, r, StateEventChecking, func(ctx context.Context) (bool, error) {
			return r.events.CheckDisputeEvent(ctx, req.TransactionID, req.JobID, req.VerifierAgentID)
		})
		if err != nil {
			log.Warn("dispute event lookup failed", "error", err)
			r.metrics.RecordStepFailure(string(StateEventChecking), string(CategoryLookupFailure))
			fail(CategoryLookupFailure, err.Error())
			return
		}
		result.EventFound = &found
		if !found {
			log.Info("dispute event not found in transaction",
				"transaction_id", req.TransactionID)
			r.metrics.RecordStepFailure(string(StateEventChecking), string(CategoryLookupFailure))
			fail(CategoryLookupFailure, "dispute event not found in transaction")
			return
		}
	} else {
		// No transaction supplied: the event check is skipped, not passed.
		// EventFound stays nil so readers can tell "unchecked" from "found".
		log.Debug("no transaction supplied, skipping dispute event check")
	}

	// --- Step 2: on-chain job read ---------------------------------------
	job, err := step(ctx, r, StateFetchingJob, func(ctx context.Context) (*datatypes.JobDetails, error) {
		return r.reader.GetJob(ctx, req.JobID)
	})
	if err != nil {
		log.Warn("job read failed", "error", err)
		r.metrics.RecordStepFailure(string(StateFetchingJob), string(CategoryReadFailure))
		fail(CategoryReadFailure, err.Error())
		return
	}
	result.JobDetails = job

	// --- Step 3: AI scoring ----------------------------------------------
	rawScore, err := step(ctx, r, StateScoring, func(ctx context.Context) (int, error) {
		return r.scorer.Score(ctx, BuildScoringContext(job))
	})
	if err != nil {
		log.Warn("scoring failed", "backend", r.scorer.Backend(), "error", err)
		r.metrics.RecordStepFailure(string(StateScoring), string(CategoryScoringFailure))
		fail(CategoryScoringFailure, err.Error())
		return
	}
	score, clamped := ClampScore(rawScore)
	if clamped {
		log.Warn("model score outside valid range, clamped",
			"raw_score", rawScore, "score", score)
	}
	result.AIScore = score
	r.metrics.RecordScore(score)

	// --- Step 4: on-chain reputation write -------------------------------
	txID, err := step(ctx, r, StateRecording, func(ctx context.Context) (string, error) {
		return r.writer.RecordScore(ctx, job.AgentID, req.VerifierAgentID, score)
	})
	if err != nil {
		log.Warn("reputation write failed", "error", err)
		r.metrics.RecordStepFailure(string(StateRecording), string(CategoryWriteFailure))
		fail(CategoryWriteFailure, err.Error())
		return
	}
	result.ReputationTxID = txID

	// --- Step 5: result signing ------------------------------------------
	envelope, err := r.sign(ctx, id, &result)
	if err != nil {
		log.Warn("result signing unavailable", "error", err)
		r.metrics.RecordStepFailure(string(StateSigning), string(CategorySigningUnavailable))
		fail(CategorySigningUnavailable, err.Error())
		return
	}
	result.Signature = envelope.Signature
	result.PublicKey = envelope.PublicKey

	finalized = true
	r.finalize(log, id, store.Completed(&result))
	r.metrics.RunFinished(string(datatypes.StatusCompleted))
	log.Info("validation completed",
		"score", score,
		"reputation_tx_id", txID)
}

// step runs one pipeline step under its own span and duration metric. A
// free function because Go methods cannot carry type parameters.
func step[T any](ctx context.Context, r *Runner, state State, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := tracer.Start(ctx, "pipeline."+string(state))
	defer span.End()

	start := time.Now()
	out, err := fn(ctx)
	r.metrics.RecordStepDuration(string(state), time.Since(start))
	if err != nil {
		span.RecordError(err)
	}
	return out, err
}

// sign builds the canonical payload and invokes the signer.
func (r *Runner) sign(ctx context.Context, id string, result *datatypes.ValidationResult) (SignedEnvelope, error) {
	ctx, span := tracer.Start(ctx, "pipeline."+string(StateSigning))
	defer span.End()

	start := time.Now()
	defer func() { r.metrics.RecordStepDuration(string(StateSigning), time.Since(start)) }()

	if r.signer == nil {
		return SignedEnvelope{}, errors.New("no signing backend configured")
	}
	payload, err := CanonicalPayload(id, result)
	if err != nil {
		return SignedEnvelope{}, err
	}
	env, err := r.signer.Sign(ctx, payload)
	if err != nil {
		span.RecordError(err)
		return SignedEnvelope{}, err
	}
	return env, nil
}

// finalize records the terminal outcome, logging rather than propagating
// store errors: by this point the caller has nothing useful to do with one,
// and a double-finalize only ever means the deferred recovery raced a
// normal completion.
func (r *Runner) finalize(log *slog.Logger, id string, outcome store.Outcome) {
	if err := r.store.Finalize(id, outcome); err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			log.Debug("record already finalized", "error", err)
			return
		}
		log.Error("failed to finalize validation record", "error", err)
	}
}
