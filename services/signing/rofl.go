// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package signing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	// DefaultROFLSocketPath is where the ROFL app daemon listens inside a
	// TEE container.
	DefaultROFLSocketPath = "/run/rofl-appd.sock"

	// DefaultROFLKeyID namespaces the signing key within the app's keystore,
	// so redeployments derive the same key.
	DefaultROFLKeyID = "chainarbiter-result-signing"

	roflRequestTimeout = 30 * time.Second
)

// ROFLKeySource fetches signing keys from a ROFL app daemon over its unix
// socket. The daemon derives keys deterministically inside the enclave, so
// the same key_id always yields the same key for a given app.
type ROFLKeySource struct {
	httpClient *http.Client
	keyID      string
}

type roflKeyRequest struct {
	KeyID string `json:"key_id"`
	Kind  string `json:"kind"`
}

type roflKeyResponse struct {
	Key string `json:"key"`
}

// NewROFLKeySource creates a key source talking to the appd socket.
//
// # Inputs
//
//   - socketPath: Unix socket path. Empty selects DefaultROFLSocketPath.
//   - keyID: Keystore identifier. Empty selects DefaultROFLKeyID.
//
// # Outputs
//
//   - *ROFLKeySource: Ready source. Socket reachability is not checked
//     here; FetchSigner surfaces a missing daemon.
func NewROFLKeySource(socketPath, keyID string) *ROFLKeySource {
	if socketPath == "" {
		socketPath = DefaultROFLSocketPath
	}
	if keyID == "" {
		keyID = DefaultROFLKeyID
	}
	// The host part of request URLs is ignored; the dialer pins every
	// connection to the unix socket.
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		},
	}
	return &ROFLKeySource{
		httpClient: &http.Client{Transport: transport, Timeout: roflRequestTimeout},
		keyID:      keyID,
	}
}

// FetchSigner requests the ed25519 key from appd and wraps it in a signer.
//
// # Inputs
//
//   - ctx: Cancels the socket request.
//
// # Outputs
//
//   - *Ed25519Signer: Signer bound to the enclave-derived key.
//   - error: Non-nil when the daemon is unreachable or returns a malformed
//     key. Callers typically log this and run unsigned or fall back to an
//     ephemeral key depending on policy.
func (r *ROFLKeySource) FetchSigner(ctx context.Context) (*Ed25519Signer, error) {
	body, err := json.Marshal(roflKeyRequest{KeyID: r.keyID, Kind: "ed25519"})
	if err != nil {
		return nil, fmt.Errorf("marshaling key request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", "http://localhost/rofl/v1/keys/generate", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("creating key request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ROFL appd not reachable: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading appd response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ROFL appd key request failed with status %d: %s", resp.StatusCode, respBody)
	}

	var keyResp roflKeyResponse
	if err := json.Unmarshal(respBody, &keyResp); err != nil {
		return nil, fmt.Errorf("parsing appd response: %w", err)
	}
	priv, err := ParsePrivateKeyHex(keyResp.Key)
	if err != nil {
		return nil, fmt.Errorf("appd returned malformed key: %w", err)
	}

	slog.Info("Obtained signing key from ROFL appd", "key_id", r.keyID)
	return NewEd25519Signer(priv, "rofl")
}
