// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scoring adapts language-model backends into reputation scorers.
//
// The backends are asked for a single integer between 0 and 100. Small local
// models in particular rarely answer with a bare number, so ParseScore digs
// the first integer out of whatever prose comes back. Range enforcement is
// not this package's job; callers clamp.
package scoring

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParseScore extracts the first integer from a model completion.
//
// # Description
//
// Scans the completion left to right and returns the first run of digits as
// an integer, honoring an immediately preceding minus sign. Handles answers
// like "85", "Score: 85", "I would rate this job 85/100." and "  85\n".
//
// # Inputs
//
//   - completion: Raw model output. May contain arbitrary prose.
//
// # Outputs
//
//   - int: The first integer found.
//   - error: Non-nil when the completion contains no digits at all.
func ParseScore(completion string) (int, error) {
	s := strings.TrimSpace(completion)
	start := -1
	for i, r := range s {
		if unicode.IsDigit(r) {
			start = i
			break
		}
	}
	if start < 0 {
		return 0, fmt.Errorf("no integer found in model output %q", truncate(s, 120))
	}

	end := start
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	numeric := s[start:end]
	if start > 0 && s[start-1] == '-' {
		numeric = "-" + numeric
	}

	score, err := strconv.Atoi(numeric)
	if err != nil {
		return 0, fmt.Errorf("parsing model score %q: %w", numeric, err)
	}
	return score, nil
}

// truncate keeps error messages readable when a model rambles.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
