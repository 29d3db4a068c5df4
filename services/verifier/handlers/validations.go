// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers contains the gin handlers for the verifier HTTP API.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/ChainArbiter/pkg/async"
	"github.com/AleutianAI/ChainArbiter/services/verifier/datatypes"
	"github.com/AleutianAI/ChainArbiter/services/verifier/pipeline"
	"github.com/AleutianAI/ChainArbiter/services/verifier/store"
)

// SubmitValidation accepts a validation request and schedules it.
//
// # Description
//
// Binds and validates the request body, creates a processing record, and
// hands the work to the pipeline on a fresh goroutine. The handler returns
// 202 immediately with the record ID and a status URL; it never waits on
// chain or model calls. Invalid requests are rejected with 400 before any
// record exists, so nothing is left behind to poll.
//
// # Inputs
//
//   - st: Record store shared with the status endpoint.
//   - runner: Pipeline that will process the request.
//
// # Outputs
//
//   - gin.HandlerFunc: POST /v1/validations handler.
func SubmitValidation(st store.Store, runner *pipeline.Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.ValidationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			slog.Warn("Rejected malformed validation request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": err.Error()})
			return
		}
		if err := req.Validate(); err != nil {
			slog.Warn("Rejected invalid validation request",
				"job_id", req.JobID, "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": err.Error()})
			return
		}

		id, err := st.Create(req)
		if err != nil {
			slog.Error("Failed to create validation record", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create validation"})
			return
		}

		// Detached from the request context on purpose: the validation
		// outlives this HTTP exchange.
		async.SafeGo(func() {
			runner.Run(context.Background(), id, req)
		}, func(report async.PanicReport) {
			slog.Error("Validation goroutine panicked outside the pipeline",
				"validation_id", id,
				"panic", report.Value,
				"stack", report.Stack)
		})

		slog.Info("Accepted validation request",
			"validation_id", id,
			"job_id", req.JobID,
			"has_transaction", req.HasTransaction())
		c.JSON(http.StatusAccepted, datatypes.SubmitResponse{
			ValidationID: id,
			Status:       datatypes.StatusProcessing,
			StatusURL:    "/v1/validations/" + id,
			Timestamp:    datatypes.NowMillis(),
		})
	}
}

// GetValidationStatus reports the current state of one validation.
//
// # Description
//
// Looks the record up by ID and returns its snapshot: processing records
// carry no result yet, completed ones carry the full result, failed ones a
// categorized error string. Unknown IDs get 404.
//
// # Inputs
//
//   - st: Record store shared with the submit endpoint.
//
// # Outputs
//
//   - gin.HandlerFunc: GET /v1/validations/:validationId handler.
func GetValidationStatus(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("validationId")
		rec, err := st.Get(id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "validation not found", "validation_id": id})
				return
			}
			slog.Error("Failed to read validation record", "validation_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read validation"})
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}
