// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/ChainArbiter/services/verifier/datatypes"
	"github.com/AleutianAI/ChainArbiter/services/verifier/pipeline"
	"github.com/AleutianAI/ChainArbiter/services/verifier/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubEvents struct{}

func (stubEvents) CheckDisputeEvent(context.Context, string, string, int64) (bool, error) {
	return true, nil
}

type stubReader struct{}

func (stubReader) GetJob(context.Context, string) (*datatypes.JobDetails, error) {
	return &datatypes.JobDetails{AgentID: 1}, nil
}

type stubScorer struct{}

func (stubScorer) Score(context.Context, string) (int, error) { return 50, nil }
func (stubScorer) Backend() string                            { return "stub" }

type stubWriter struct{}

func (stubWriter) RecordScore(context.Context, int64, int64, int) (string, error) {
	return "0x1", nil
}

func TestSetupRoutes(t *testing.T) {
	st := store.NewMemoryStore()
	runner, err := pipeline.NewRunner(st, stubEvents{}, stubReader{}, stubScorer{}, stubWriter{}, nil, nil)
	require.NoError(t, err)

	router := gin.New()
	SetupRoutes(router, st, runner, "stub", "pub")

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/v1/validations/unknown", http.StatusNotFound},
		{http.MethodPost, "/v1/validations", http.StatusBadRequest}, // empty body
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tc.method, tc.path, nil)
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}
