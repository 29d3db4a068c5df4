// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided identifiers that end up
// in JSON-RPC calls and ABI-encoded contract arguments. Using these validators
// prevents malformed identifiers from reaching the chain adapters, where they
// would surface as opaque RPC errors instead of clean intake rejections.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// hexPattern matches a hex string without the 0x prefix.
var hexPattern = regexp.MustCompile(`^[0-9a-fA-F]+$`)

// ValidateJobID validates a job identifier as a bytes32 hex string.
//
// Valid job IDs:
//   - optional 0x prefix
//   - 1-64 hex characters (shorter values are left-padded to bytes32
//     by the chain adapter, matching contract-side semantics)
//
// Returns an error if the identifier is not usable as a bytes32 argument.
//
// Example:
//
//	if err := validation.ValidateJobID(req.JobID); err != nil {
//	    return fmt.Errorf("invalid job_id: %w", err)
//	}
func ValidateJobID(id string) error {
	body := strings.TrimPrefix(id, "0x")
	if body == "" {
		return fmt.Errorf("job id cannot be empty")
	}
	if len(body) > 64 {
		return fmt.Errorf("job id too long: %d hex chars (bytes32 holds 64)", len(body))
	}
	if !hexPattern.MatchString(body) {
		return fmt.Errorf("invalid job id format: %q (must be hex, optional 0x prefix)", id)
	}
	return nil
}

// ValidateTxHash validates a transaction hash.
//
// Transaction hashes are stricter than job IDs: exactly 32 bytes,
// so exactly 64 hex characters after the optional 0x prefix.
func ValidateTxHash(hash string) error {
	body := strings.TrimPrefix(hash, "0x")
	if body == "" {
		return fmt.Errorf("transaction hash cannot be empty")
	}
	if len(body) != 64 {
		return fmt.Errorf("invalid transaction hash length: %d hex chars (want 64)", len(body))
	}
	if !hexPattern.MatchString(body) {
		return fmt.Errorf("invalid transaction hash format: %q", hash)
	}
	return nil
}

// NormalizeHexID returns the identifier with a 0x prefix and lowercase hex.
// Returns an error if the identifier fails ValidateJobID.
func NormalizeHexID(id string) (string, error) {
	if err := ValidateJobID(id); err != nil {
		return "", err
	}
	body := strings.TrimPrefix(id, "0x")
	return "0x" + strings.ToLower(body), nil
}
