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
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/AleutianAI/ChainArbiter/pkg/validation"
)

// Minimal ABI fragments for the two marketplace contracts. Only the members
// this service touches are declared; the contracts expose far more.
const (
	jobsModuleABI = `[
		{
			"name": "getJob",
			"type": "function",
			"stateMutability": "view",
			"inputs": [
				{"name": "jobId", "type": "bytes32"}
			],
			"outputs": [
				{
					"name": "",
					"type": "tuple",
					"components": [
						{"name": "creator", "type": "address"},
						{"name": "agentId", "type": "uint256"},
						{"name": "budget", "type": "uint256"},
						{"name": "description", "type": "string"},
						{"name": "state", "type": "uint8"},
						{"name": "createdAt", "type": "uint64"},
						{"name": "acceptDeadline", "type": "uint64"},
						{"name": "completeDeadline", "type": "uint64"},
						{"name": "multihopId", "type": "bytes32"},
						{"name": "step", "type": "uint64"}
					]
				}
			]
		}
	]`

	registryModuleABI = `[
		{
			"name": "recordCrossValidationReputationScore",
			"type": "function",
			"stateMutability": "nonpayable",
			"inputs": [
				{"name": "agentId", "type": "uint256"},
				{"name": "verifierAgentId", "type": "uint256"},
				{"name": "score", "type": "uint256"}
			]
		}
	]`
)

// crossValidationRequestedSig is topic[0] of the dispute event:
//
//	event CrossValidationRequested(bytes32 jobId, uint256 indexed verifierAgentId)
//
// jobId rides in the log data, verifierAgentId in topics[1].
var crossValidationRequestedSig = crypto.Keccak256Hash([]byte("CrossValidationRequested(bytes32,uint256)"))

func parseJobsABI() (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(jobsModuleABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parsing JobsModule ABI: %w", err)
	}
	return parsed, nil
}

func parseRegistryABI() (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(registryModuleABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parsing RegistryModule ABI: %w", err)
	}
	return parsed, nil
}

// jobIDToBytes32 converts a validated job ID to its on-chain bytes32 form,
// left-padding short IDs the way the contracts store them.
func jobIDToBytes32(jobID string) (common.Hash, error) {
	normalized, err := validation.NormalizeHexID(jobID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid job id: %w", err)
	}
	return common.HexToHash(normalized), nil
}
