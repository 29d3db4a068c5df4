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
	"bytes"
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel/attribute"
)

// CheckDisputeEvent verifies that the given transaction emitted a
// CrossValidationRequested event for this job and verifier.
//
// # Description
//
// Fetches the transaction receipt and scans its logs for an event whose
// signature, verifier agent topic, and job ID payload all match. A receipt
// with no matching log yields (false, nil) - the transaction exists but did
// not request this validation, which the caller treats as a policy failure
// rather than an infrastructure one.
//
// # Inputs
//
//   - ctx: Bounds the receipt lookup.
//   - txHash: Hash of the transaction that supposedly raised the dispute.
//   - jobID: Job the dispute is about, in bytes32 hex form.
//   - verifierAgentID: Agent expected in the event's indexed topic.
//
// # Outputs
//
//   - bool: True when a matching event is present.
//   - error: Non-nil when the receipt cannot be fetched (unknown hash,
//     RPC failure) or the job ID is malformed.
func (c *Client) CheckDisputeEvent(ctx context.Context, txHash, jobID string, verifierAgentID int64) (bool, error) {
	ctx, span := tracer.Start(ctx, "Client.CheckDisputeEvent")
	defer span.End()
	span.SetAttributes(attribute.String("chain.tx_hash", txHash))

	wantJob, err := jobIDToBytes32(jobID)
	if err != nil {
		return false, err
	}

	var receipt *types.Receipt
	err = c.call(ctx, func(ctx context.Context) error {
		var callErr error
		receipt, callErr = c.eth.TransactionReceipt(ctx, common.HexToHash(txHash))
		return callErr
	})
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("fetching receipt for %s: %w", txHash, err)
	}

	for _, entry := range receipt.Logs {
		if logMatchesDisputeEvent(entry, wantJob, verifierAgentID) {
			return true, nil
		}
	}
	return false, nil
}

// logMatchesDisputeEvent reports whether one receipt log is the
// CrossValidationRequested event for the given job and verifier. Pure so
// the matching rules are testable without an RPC endpoint.
//
// Matching is by event signature, not emitting address: the event comes
// from the RegistryModule, whose deployed address can differ per network,
// and the signature plus the indexed verifier topic already pin the event.
func logMatchesDisputeEvent(entry *types.Log, jobID common.Hash, verifierAgentID int64) bool {
	if entry == nil {
		return false
	}
	if len(entry.Topics) < 2 || entry.Topics[0] != crossValidationRequestedSig {
		return false
	}
	// topics[1] is the indexed verifierAgentId as a left-padded uint256.
	if entry.Topics[1] != common.BigToHash(big.NewInt(verifierAgentID)) {
		return false
	}
	// The non-indexed jobId occupies the first 32 bytes of the data.
	if len(entry.Data) < common.HashLength {
		return false
	}
	return bytes.Equal(entry.Data[:common.HashLength], jobID.Bytes())
}
