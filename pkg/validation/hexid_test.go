// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"strings"
	"testing"
)

func TestValidateJobID(t *testing.T) {
	valid := []string{
		"0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef",
		"ddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef",
		"0x01",
		"ab",
		"0xABCDEF",
	}
	for _, id := range valid {
		if err := ValidateJobID(id); err != nil {
			t.Errorf("ValidateJobID(%q) = %v, want nil", id, err)
		}
	}

	invalid := []string{
		"",
		"0x",
		"0xzz",
		"not-hex",
		"0x" + strings.Repeat("a", 65),
	}
	for _, id := range invalid {
		if err := ValidateJobID(id); err == nil {
			t.Errorf("ValidateJobID(%q) = nil, want error", id)
		}
	}
}

func TestValidateTxHash(t *testing.T) {
	good := "0x94dc1274cbd021f76ea853ed40038baeaecd34325c11c133a0201123aa8d9638"
	if err := ValidateTxHash(good); err != nil {
		t.Errorf("ValidateTxHash(%q) = %v, want nil", good, err)
	}
	if err := ValidateTxHash(strings.TrimPrefix(good, "0x")); err != nil {
		t.Errorf("ValidateTxHash without prefix = %v, want nil", err)
	}

	t.Run("rejects short hashes", func(t *testing.T) {
		if err := ValidateTxHash("0xabcd"); err == nil {
			t.Error("short hash should be rejected")
		}
	})

	t.Run("rejects empty", func(t *testing.T) {
		if err := ValidateTxHash(""); err == nil {
			t.Error("empty hash should be rejected")
		}
	})
}

func TestNormalizeHexID(t *testing.T) {
	got, err := NormalizeHexID("ABCDef")
	if err != nil {
		t.Fatalf("NormalizeHexID failed: %v", err)
	}
	if got != "0xabcdef" {
		t.Errorf("NormalizeHexID = %q, want %q", got, "0xabcdef")
	}

	if _, err := NormalizeHexID("!!"); err == nil {
		t.Error("NormalizeHexID should reject non-hex input")
	}
}
