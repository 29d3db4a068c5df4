// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package signing attests completed validation results with an ed25519
// identity key.
//
// Two key sources exist: a ROFL appd socket inside a trusted execution
// environment, where the key never leaves the enclave runtime, and a local
// ephemeral key for development. Which one backs the signer is a deployment
// decision; the signer itself only ever sees an ed25519 private key.
package signing

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/AleutianAI/ChainArbiter/services/verifier/pipeline"
)

// Ed25519Signer signs payloads with a fixed identity key.
//
// # Thread Safety
//
// Safe for concurrent use. The key is set at construction and never
// mutated; ed25519.Sign is itself safe for concurrent callers.
type Ed25519Signer struct {
	priv   ed25519.PrivateKey
	pub    string // base64 raw public key
	source string
}

// NewEd25519Signer wraps an existing private key.
//
// # Inputs
//
//   - priv: The ed25519 private key. Must be the full 64-byte form.
//   - source: Human-readable origin of the key ("rofl", "ephemeral"),
//     reported by Source for the service info endpoint.
//
// # Outputs
//
//   - *Ed25519Signer: Ready signer.
//   - error: Non-nil when the key has the wrong length.
func NewEd25519Signer(priv ed25519.PrivateKey, source string) (*Ed25519Signer, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("ed25519 private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(priv))
	}
	pub := priv.Public().(ed25519.PublicKey)
	return &Ed25519Signer{
		priv:   priv,
		pub:    base64.StdEncoding.EncodeToString(pub),
		source: source,
	}, nil
}

// NewEphemeralSigner generates a fresh throwaway key. The key is lost on
// restart, so signatures from different process lifetimes do not chain to
// one identity. Development and test use only.
func NewEphemeralSigner() (*Ed25519Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating ephemeral signing key: %w", err)
	}
	return NewEd25519Signer(priv, "ephemeral")
}

// Sign signs the payload and returns the encoded envelope.
//
// # Inputs
//
//   - ctx: Unused today; kept so TEE-backed implementations that sign
//     remotely can honor cancellation without an interface change.
//   - payload: The canonical bytes to sign.
//
// # Outputs
//
//   - pipeline.SignedEnvelope: Base64 signature and public key.
//   - error: Always nil for the in-process key; part of the contract for
//     remote signers.
func (s *Ed25519Signer) Sign(_ context.Context, payload []byte) (pipeline.SignedEnvelope, error) {
	sig := ed25519.Sign(s.priv, payload)
	return pipeline.SignedEnvelope{
		Signature: base64.StdEncoding.EncodeToString(sig),
		PublicKey: s.pub,
	}, nil
}

// PublicKey returns the base64-encoded public key.
func (s *Ed25519Signer) PublicKey() string { return s.pub }

// Source reports where the key came from.
func (s *Ed25519Signer) Source() string { return s.source }

// Verify checks a signature produced by Sign against a payload. Used by
// tests and by downstream consumers that re-derive the canonical payload.
func Verify(publicKeyB64, signatureB64 string, payload []byte) (bool, error) {
	pub, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return false, fmt.Errorf("decoding public key: %w", err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return false, fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pub))
	}
	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return false, fmt.Errorf("decoding signature: %w", err)
	}
	return ed25519.Verify(ed25519.PublicKey(pub), payload, sig), nil
}

// ParsePrivateKeyHex decodes a hex-encoded key as handed out by ROFL appd.
// Accepts either the 32-byte seed or the full 64-byte private key.
func ParsePrivateKeyHex(s string) (ed25519.PrivateKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding private key hex: %w", err)
	}
	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	default:
		return nil, fmt.Errorf("private key must be %d or %d bytes, got %d",
			ed25519.SeedSize, ed25519.PrivateKeySize, len(raw))
	}
}
