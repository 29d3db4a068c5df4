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
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel/attribute"
)

// recordScoreGasLimit covers recordCrossValidationReputationScore with
// headroom. Hedera's EVM meters gas like Ethereum but refunds unused gas,
// so overestimating costs nothing.
const recordScoreGasLimit = 400_000

// RecordScore writes a reputation score to the RegistryModule contract.
//
// # Description
//
// Builds, signs, and submits a recordCrossValidationReputationScore
// transaction and returns its hash. The method returns as soon as the
// transaction is accepted into the mempool; it does not wait for a
// receipt. Downstream consumers can confirm inclusion from the returned
// hash.
//
// # Inputs
//
//   - ctx: Bounds nonce, gas price, and submission calls.
//   - agentID: Agent being scored.
//   - verifierAgentID: Agent performing the validation.
//   - score: Reputation score, already within the valid range.
//
// # Outputs
//
//   - string: Transaction hash in hex.
//   - error: Non-nil when no operator key is configured or any RPC step
//     fails.
//
// # Limitations
//
//   - Legacy (type-0) transactions only; the target networks accept them
//     and gas auctions are not a concern there
func (c *Client) RecordScore(ctx context.Context, agentID, verifierAgentID int64, score int) (string, error) {
	ctx, span := tracer.Start(ctx, "Client.RecordScore")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("chain.agent_id", agentID),
		attribute.Int("chain.score", score),
	)

	if c.priv == nil {
		return "", fmt.Errorf("no operator key configured, cannot write reputation scores")
	}

	input, err := c.registryABI.Pack("recordCrossValidationReputationScore",
		big.NewInt(agentID), big.NewInt(verifierAgentID), big.NewInt(int64(score)))
	if err != nil {
		return "", fmt.Errorf("encoding recordCrossValidationReputationScore call: %w", err)
	}

	var gasPrice *big.Int
	err = c.call(ctx, func(ctx context.Context) error {
		var callErr error
		gasPrice, callErr = c.eth.SuggestGasPrice(ctx)
		return callErr
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("fetching gas price: %w", err)
	}

	// Nonce assignment and submission run under the mutex: two writers
	// reading PendingNonceAt unserialized would both see the same nonce and
	// the second submission would fail "nonce too low".
	c.nonceMu.Lock()
	defer c.nonceMu.Unlock()

	var nonce uint64
	err = c.call(ctx, func(ctx context.Context) error {
		var callErr error
		nonce, callErr = c.eth.PendingNonceAt(ctx, c.from)
		return callErr
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("fetching nonce for %s: %w", c.from.Hex(), err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.registryAddr,
		Value:    big.NewInt(0),
		Gas:      recordScoreGasLimit,
		GasPrice: gasPrice,
		Data:     input,
	})
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.priv)
	if err != nil {
		return "", fmt.Errorf("signing reputation transaction: %w", err)
	}

	// Submission is not retried: a nonce-bearing transaction resent after
	// an ambiguous failure could double-spend the nonce.
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rpc rate limit: %w", err)
	}
	if err := c.eth.SendTransaction(ctx, signedTx); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("submitting reputation transaction: %w", err)
	}

	txHash := signedTx.Hash().Hex()
	slog.Info("Submitted reputation score transaction",
		"tx_hash", txHash,
		"agent_id", agentID,
		"verifier_agent_id", verifierAgentID,
		"score", score)
	return txHash, nil
}
