// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package chain

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

// TestGetJobOutputDecoding round-trips getJob return data through the
// declared ABI. The contract returns a struct, so the wire format is an
// offset word followed by the tuple body; a flat-output declaration would
// misread that offset word as the creator address.
func TestGetJobOutputDecoding(t *testing.T) {
	parsed, err := parseJobsABI()
	if err != nil {
		t.Fatalf("parseJobsABI() error = %v", err)
	}

	want := jobTuple{
		Creator:          common.HexToAddress("0x1111111111111111111111111111111111111111"),
		AgentId:          big.NewInt(42),
		Budget:           big.NewInt(5_000_000),
		Description:      "Summarize the Q3 market report",
		State:            2,
		CreatedAt:        1735689600,
		AcceptDeadline:   1735776000,
		CompleteDeadline: 1735862400,
		MultihopId:       common.HexToHash("0x" + strings.Repeat("cd", 32)),
		Step:             3,
	}
	output, err := parsed.Methods["getJob"].Outputs.Pack(want)
	if err != nil {
		t.Fatalf("packing getJob return data: %v", err)
	}

	// The tuple contains a string, making it dynamic: the first return
	// word must be the offset to the tuple body, not the creator.
	if len(output) < 32 {
		t.Fatalf("packed return data too short: %d bytes", len(output))
	}
	if offset := new(big.Int).SetBytes(output[:32]); offset.Cmp(big.NewInt(32)) != 0 {
		t.Errorf("first return word = %s, want offset 32", offset)
	}

	var got jobTuple
	if err := parsed.UnpackIntoInterface(&got, "getJob", output); err != nil {
		t.Fatalf("decoding getJob return data: %v", err)
	}

	if got.Creator != want.Creator {
		t.Errorf("Creator = %s, want %s", got.Creator.Hex(), want.Creator.Hex())
	}
	if got.AgentId.Cmp(want.AgentId) != 0 {
		t.Errorf("AgentId = %s, want %s", got.AgentId, want.AgentId)
	}
	if got.Budget.Cmp(want.Budget) != 0 {
		t.Errorf("Budget = %s, want %s", got.Budget, want.Budget)
	}
	if got.Description != want.Description {
		t.Errorf("Description = %q, want %q", got.Description, want.Description)
	}
	if got.State != want.State {
		t.Errorf("State = %d, want %d", got.State, want.State)
	}
	if got.CreatedAt != want.CreatedAt || got.AcceptDeadline != want.AcceptDeadline || got.CompleteDeadline != want.CompleteDeadline {
		t.Errorf("timestamps = (%d, %d, %d), want (%d, %d, %d)",
			got.CreatedAt, got.AcceptDeadline, got.CompleteDeadline,
			want.CreatedAt, want.AcceptDeadline, want.CompleteDeadline)
	}
	if got.MultihopId != want.MultihopId {
		t.Errorf("MultihopId = %x, want %x", got.MultihopId, want.MultihopId)
	}
	if got.Step != want.Step {
		t.Errorf("Step = %d, want %d", got.Step, want.Step)
	}
}
