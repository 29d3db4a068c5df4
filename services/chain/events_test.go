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
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	testJobsAddr  = common.HexToAddress("0x1234567890123456789012345678901234567890")
	testOtherAddr = common.HexToAddress("0x0987654321098765432109876543210987654321")
)

func disputeLog(addr common.Address, sig common.Hash, verifierID int64, jobID common.Hash) *types.Log {
	return &types.Log{
		Address: addr,
		Topics:  []common.Hash{sig, common.BigToHash(big.NewInt(verifierID))},
		Data:    jobID.Bytes(),
	}
}

func TestLogMatchesDisputeEvent(t *testing.T) {
	jobID := common.HexToHash("0x" + strings.Repeat("ab", 32))

	t.Run("matching log", func(t *testing.T) {
		entry := disputeLog(testJobsAddr, crossValidationRequestedSig, 7, jobID)
		if !logMatchesDisputeEvent(entry, jobID, 7) {
			t.Error("expected match for a fully matching log")
		}
	})

	t.Run("registry-emitted log matches", func(t *testing.T) {
		// The event is raised by the RegistryModule, so the emitting
		// address must not factor into the match.
		entry := disputeLog(common.HexToAddress(DefaultRegistryAddress), crossValidationRequestedSig, 7, jobID)
		if !logMatchesDisputeEvent(entry, jobID, 7) {
			t.Error("rejected a CrossValidationRequested log from the registry contract")
		}
	})

	t.Run("any emitter matches on signature", func(t *testing.T) {
		entry := disputeLog(testOtherAddr, crossValidationRequestedSig, 7, jobID)
		if !logMatchesDisputeEvent(entry, jobID, 7) {
			t.Error("rejected a matching log based on its emitting address")
		}
	})

	t.Run("wrong event signature", func(t *testing.T) {
		otherSig := common.HexToHash("0x" + strings.Repeat("00", 31) + "01")
		entry := disputeLog(testJobsAddr, otherSig, 7, jobID)
		if logMatchesDisputeEvent(entry, jobID, 7) {
			t.Error("matched a log with a different event signature")
		}
	})

	t.Run("wrong verifier agent", func(t *testing.T) {
		entry := disputeLog(testJobsAddr, crossValidationRequestedSig, 8, jobID)
		if logMatchesDisputeEvent(entry, jobID, 7) {
			t.Error("matched a log indexed for a different verifier")
		}
	})

	t.Run("wrong job id", func(t *testing.T) {
		otherJob := common.HexToHash("0x" + strings.Repeat("cd", 32))
		entry := disputeLog(testJobsAddr, crossValidationRequestedSig, 7, otherJob)
		if logMatchesDisputeEvent(entry, jobID, 7) {
			t.Error("matched a log carrying a different job id")
		}
	})

	t.Run("missing topics", func(t *testing.T) {
		entry := &types.Log{
			Address: testJobsAddr,
			Topics:  []common.Hash{crossValidationRequestedSig},
			Data:    jobID.Bytes(),
		}
		if logMatchesDisputeEvent(entry, jobID, 7) {
			t.Error("matched a log without the verifier topic")
		}
	})

	t.Run("short data", func(t *testing.T) {
		entry := disputeLog(testJobsAddr, crossValidationRequestedSig, 7, jobID)
		entry.Data = entry.Data[:16]
		if logMatchesDisputeEvent(entry, jobID, 7) {
			t.Error("matched a log with truncated data")
		}
	})

	t.Run("nil log", func(t *testing.T) {
		if logMatchesDisputeEvent(nil, jobID, 7) {
			t.Error("matched a nil log")
		}
	})

	t.Run("extra data after job id still matches", func(t *testing.T) {
		entry := disputeLog(testJobsAddr, crossValidationRequestedSig, 7, jobID)
		entry.Data = append(entry.Data, make([]byte, 32)...)
		if !logMatchesDisputeEvent(entry, jobID, 7) {
			t.Error("rejected a log with additional non-indexed fields")
		}
	})
}

func TestJobIDToBytes32(t *testing.T) {
	t.Run("short id left-padded", func(t *testing.T) {
		got, err := jobIDToBytes32("0xab")
		if err != nil {
			t.Fatalf("jobIDToBytes32() error = %v", err)
		}
		want := common.HexToHash("0xab")
		if got != want {
			t.Errorf("jobIDToBytes32(0xab) = %s, want %s", got.Hex(), want.Hex())
		}
		if got.Bytes()[31] != 0xab {
			t.Errorf("short id not right-aligned: %x", got.Bytes())
		}
	})

	t.Run("full width id", func(t *testing.T) {
		raw := "0x" + strings.Repeat("ab", 32)
		got, err := jobIDToBytes32(raw)
		if err != nil {
			t.Fatalf("jobIDToBytes32() error = %v", err)
		}
		if got != common.HexToHash(raw) {
			t.Errorf("jobIDToBytes32(%s) = %s", raw, got.Hex())
		}
	})

	t.Run("no prefix accepted", func(t *testing.T) {
		if _, err := jobIDToBytes32("deadbeef"); err != nil {
			t.Errorf("jobIDToBytes32(deadbeef) error = %v", err)
		}
	})

	t.Run("malformed rejected", func(t *testing.T) {
		if _, err := jobIDToBytes32("0xzz"); err == nil {
			t.Error("expected error for non-hex id")
		}
	})
}

func TestConfigRPCURL(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		want    string
		wantErr bool
	}{
		{"explicit override", Config{RPCURL: "http://localhost:8545", Network: NetworkHederaMainnet}, "http://localhost:8545", false},
		{"testnet default", Config{Network: NetworkHederaTestnet}, hederaTestnetRPC, false},
		{"empty network defaults to testnet", Config{}, hederaTestnetRPC, false},
		{"mainnet", Config{Network: NetworkHederaMainnet}, hederaMainnetRPC, false},
		{"unknown network", Config{Network: "sepolia"}, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.cfg.rpcURL()
			if tc.wantErr {
				if err == nil {
					t.Fatalf("rpcURL() = %q, expected error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("rpcURL() error = %v", err)
			}
			if got != tc.want {
				t.Errorf("rpcURL() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNew_Validation(t *testing.T) {
	valid := Config{
		JobsAddress: testJobsAddr.Hex(),
		ChainID:     296,
		RPCURL:      "http://localhost:8545",
	}

	t.Run("missing jobs address", func(t *testing.T) {
		cfg := valid
		cfg.JobsAddress = ""
		if _, err := New(cfg); err == nil {
			t.Error("New() without jobs address expected error")
		}
	})

	t.Run("malformed jobs address", func(t *testing.T) {
		cfg := valid
		cfg.JobsAddress = "not-an-address"
		if _, err := New(cfg); err == nil {
			t.Error("New() with malformed jobs address expected error")
		}
	})

	t.Run("missing chain id", func(t *testing.T) {
		cfg := valid
		cfg.ChainID = 0
		if _, err := New(cfg); err == nil {
			t.Error("New() without chain id expected error")
		}
	})

	t.Run("malformed private key", func(t *testing.T) {
		cfg := valid
		cfg.PrivateKeyHex = "zzzz"
		if _, err := New(cfg); err == nil {
			t.Error("New() with malformed key expected error")
		}
	})

	t.Run("read-only client", func(t *testing.T) {
		c, err := New(valid)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer c.Close()
		if c.CanWrite() {
			t.Error("CanWrite() = true without an operator key")
		}
		if c.registryAddr != common.HexToAddress(DefaultRegistryAddress) {
			t.Errorf("registry address = %s, want default", c.registryAddr.Hex())
		}
	})
}
