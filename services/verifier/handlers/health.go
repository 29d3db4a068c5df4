// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/ChainArbiter/services/verifier/datatypes"
)

// HealthCheck reports process liveness. It deliberately touches no
// collaborator: a verifier with a flaky RPC endpoint is degraded, not dead,
// and restart loops would only make that worse.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ServiceInfo describes the running service: which scoring backend is
// active and, when signing is configured, the public key results are
// attested with.
func ServiceInfo(scorerBackend, publicKey string) gin.HandlerFunc {
	info := datatypes.ServiceInfo{
		Service:       "chainarbiter-verifier",
		ScorerBackend: scorerBackend,
		PublicKey:     publicKey,
		SubmitURL:     "/v1/validations",
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, info)
	}
}
