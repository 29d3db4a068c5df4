// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store implements the concurrency-safe registry of validation
// records. It is the single synchronization point of the pipeline: Create,
// Get, and Finalize are linearizable with respect to each other, so a reader
// never observes a record mid-transition.
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/ChainArbiter/services/verifier/datatypes"
)

// =============================================================================
// Errors
// =============================================================================

// ErrNotFound is returned when a validation id was never created.
var ErrNotFound = errors.New("validation not found")

// ErrInvalidTransition is returned when Finalize is called on a record that
// is already terminal. This is an internal invariant violation, not a
// user-triggerable condition; callers should log it as a defect.
var ErrInvalidTransition = errors.New("validation already finalized")

// =============================================================================
// Outcome
// =============================================================================

// Outcome is the terminal state handed to Finalize. Exactly one of Result or
// Err must be set.
type Outcome struct {
	// Result completes the record when non-nil.
	Result *datatypes.ValidationResult

	// Err fails the record when non-empty and Result is nil.
	Err string
}

// Completed builds a successful outcome.
func Completed(result *datatypes.ValidationResult) Outcome {
	return Outcome{Result: result}
}

// Failed builds a failed outcome with a stable, categorized reason.
func Failed(reason string) Outcome {
	return Outcome{Err: reason}
}

// =============================================================================
// Store
// =============================================================================

// Store is the keyed registry of validation records.
//
// # Description
//
// The interface the intake handler, status handler, and pipeline runner
// share. Records are owned by exactly one pipeline run: the store never
// exposes mutable references, only snapshots, and the only write operations
// are Create and the finalize-once Finalize.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Create allocates a fresh unique id and inserts a processing record.
	Create(req datatypes.ValidationRequest) (string, error)

	// Get returns a deep-copied snapshot, or ErrNotFound.
	Get(id string) (datatypes.ValidationRecord, error)

	// Finalize transitions a processing record to its terminal state.
	// Returns ErrNotFound for unknown ids and ErrInvalidTransition when the
	// record is already terminal.
	Finalize(id string, outcome Outcome) error
}

// memoryStore is the in-process Store implementation.
//
// Retention is deliberately unbounded: eviction policy belongs to the
// deployment (reverse proxy TTLs, process restarts), not the pipeline core.
type memoryStore struct {
	mu      sync.RWMutex
	records map[string]*datatypes.ValidationRecord

	// now is injectable for deterministic timestamp tests.
	now func() time.Time
}

// NewMemoryStore creates an empty in-memory Store.
func NewMemoryStore() Store {
	return &memoryStore{
		records: make(map[string]*datatypes.ValidationRecord),
		now:     time.Now,
	}
}

// NewMemoryStoreWithClock creates a Store with an injected clock. Test use.
func NewMemoryStoreWithClock(now func() time.Time) Store {
	return &memoryStore{
		records: make(map[string]*datatypes.ValidationRecord),
		now:     now,
	}
}

// Create implements Store.
func (s *memoryStore) Create(req datatypes.ValidationRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// UUID v4 collisions are not a practical concern, but the invariant is
	// "never reuse an id", so the loop stays.
	id := uuid.NewString()
	for {
		if _, exists := s.records[id]; !exists {
			break
		}
		id = uuid.NewString()
	}

	nowMs := s.now().UnixMilli()
	s.records[id] = &datatypes.ValidationRecord{
		ID:        id,
		Request:   req,
		Status:    datatypes.StatusProcessing,
		CreatedAt: nowMs,
		UpdatedAt: nowMs,
	}
	return id, nil
}

// Get implements Store.
func (s *memoryStore) Get(id string) (datatypes.ValidationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return datatypes.ValidationRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec.Clone(), nil
}

// Finalize implements Store.
func (s *memoryStore) Finalize(id string, outcome Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if rec.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, id, rec.Status)
	}

	rec.UpdatedAt = s.now().UnixMilli()
	if outcome.Result != nil {
		rec.Status = datatypes.StatusCompleted
		rec.Result = outcome.Result
		rec.Error = ""
		return nil
	}

	rec.Status = datatypes.StatusFailed
	rec.Error = outcome.Err
	if rec.Error == "" {
		// A failed outcome with no reason is itself a defect; keep the
		// record well-formed for clients regardless.
		rec.Error = "internal: pipeline failed without a reason"
	}
	return nil
}
