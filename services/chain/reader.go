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
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/ChainArbiter/services/verifier/datatypes"
)

// jobTuple mirrors the getJob return tuple for ABI decoding.
type jobTuple struct {
	Creator          common.Address
	AgentId          *big.Int
	Budget           *big.Int
	Description      string
	State            uint8
	CreatedAt        uint64
	AcceptDeadline   uint64
	CompleteDeadline uint64
	MultihopId       [32]byte
	Step             uint64
}

// GetJob reads a job record from the JobsModule contract.
//
// # Description
//
// Performs an eth_call against getJob(bytes32) and maps the tuple into the
// service's JobDetails. A zero creator address means the contract has no
// record under that ID, which is reported as an error because a validation
// cannot proceed without the job.
//
// # Inputs
//
//   - ctx: Bounds the contract call.
//   - jobID: Job identifier in bytes32 hex form.
//
// # Outputs
//
//   - *datatypes.JobDetails: The decoded job.
//   - error: Non-nil on RPC failure, decode failure, or missing job.
func (c *Client) GetJob(ctx context.Context, jobID string) (*datatypes.JobDetails, error) {
	ctx, span := tracer.Start(ctx, "Client.GetJob")
	defer span.End()
	span.SetAttributes(attribute.String("chain.job_id", jobID))

	jobHash, err := jobIDToBytes32(jobID)
	if err != nil {
		return nil, err
	}
	input, err := c.jobsABI.Pack("getJob", jobHash)
	if err != nil {
		return nil, fmt.Errorf("encoding getJob call: %w", err)
	}

	var output []byte
	err = c.call(ctx, func(ctx context.Context) error {
		var callErr error
		output, callErr = c.eth.CallContract(ctx, ethereum.CallMsg{
			To:   &c.jobsAddr,
			Data: input,
		}, nil)
		return callErr
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("calling getJob for %s: %w", jobID, err)
	}

	var tuple jobTuple
	if err := c.jobsABI.UnpackIntoInterface(&tuple, "getJob", output); err != nil {
		return nil, fmt.Errorf("decoding getJob result for %s: %w", jobID, err)
	}

	if tuple.Creator == (common.Address{}) {
		return nil, fmt.Errorf("job %s not found on chain", jobID)
	}

	return &datatypes.JobDetails{
		Creator:          tuple.Creator.Hex(),
		AgentID:          tuple.AgentId.Int64(),
		Budget:           tuple.Budget.String(),
		Description:      tuple.Description,
		State:            tuple.State,
		CreatedAt:        tuple.CreatedAt,
		AcceptDeadline:   tuple.AcceptDeadline,
		CompleteDeadline: tuple.CompleteDeadline,
		MultihopID:       common.Hash(tuple.MultihopId).Hex(),
		Step:             tuple.Step,
	}, nil
}
