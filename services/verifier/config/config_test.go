// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

// clearEnv blanks every variable Load consults so host state cannot leak
// into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"VERIFIER_PORT", "SCORING_BACKEND", "OLLAMA_BASE_URL", "SCORING_MODEL",
		"OPENAI_BASE_URL", "OPENAI_API_KEY", "CHAIN_NETWORK", "CHAIN_RPC_URL",
		"CHAIN_ID", "JOBS_ADDRESS", "REGISTRY_ADDRESS", "OPERATOR_PRIVATE_KEY",
		"SIGNING_MODE", "ROFL_SOCKET_PATH", "ROFL_KEY_ID",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "verifier.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

const validYAML = `
port: 9000
scoring:
  backend: ollama
  ollama_base_url: http://ollama:11434
  model: qwen2:0.5b
chain:
  network: hedera-testnet
  chain_id: 296
  jobs_address: "0x1234567890123456789012345678901234567890"
signing:
  mode: ephemeral
`

func TestLoad_FromFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
	if cfg.Scoring.Model != "qwen2:0.5b" {
		t.Errorf("Scoring.Model = %q", cfg.Scoring.Model)
	}
	if cfg.Chain.ChainID != 296 {
		t.Errorf("Chain.ChainID = %d", cfg.Chain.ChainID)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JOBS_ADDRESS", "0x1234567890123456789012345678901234567890")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := Default()
	if cfg.Port != def.Port || cfg.Scoring.Backend != def.Scoring.Backend {
		t.Errorf("missing file did not fall back to defaults: %+v", cfg)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("VERIFIER_PORT", "7777")
	t.Setenv("SCORING_MODEL", "llama3:8b")
	t.Setenv("OPERATOR_PRIVATE_KEY", "abc123")
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 7777 {
		t.Errorf("Port = %d, env override lost", cfg.Port)
	}
	if cfg.Scoring.Model != "llama3:8b" {
		t.Errorf("Scoring.Model = %q, env override lost", cfg.Scoring.Model)
	}
	if cfg.Chain.PrivateKeyHex != "abc123" {
		t.Error("OPERATOR_PRIVATE_KEY not picked up")
	}
}

func TestLoad_MalformedValues(t *testing.T) {
	clearEnv(t)
	t.Run("bad yaml", func(t *testing.T) {
		if _, err := Load(writeConfig(t, "port: [not an int")); err == nil {
			t.Error("Load() expected error for malformed yaml")
		}
	})
	t.Run("bad port env", func(t *testing.T) {
		t.Setenv("VERIFIER_PORT", "eighty")
		if _, err := Load(writeConfig(t, validYAML)); err == nil {
			t.Error("Load() expected error for non-integer VERIFIER_PORT")
		}
	})
	t.Run("bad chain id env", func(t *testing.T) {
		t.Setenv("CHAIN_ID", "mainnet")
		if _, err := Load(writeConfig(t, validYAML)); err == nil {
			t.Error("Load() expected error for non-integer CHAIN_ID")
		}
	})
}

func TestValidate(t *testing.T) {
	base := func() Config {
		c := Default()
		c.Chain.JobsAddress = "0x1234567890123456789012345678901234567890"
		return c
	}

	t.Run("valid", func(t *testing.T) {
		if err := base().Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})
	t.Run("missing jobs address", func(t *testing.T) {
		c := base()
		c.Chain.JobsAddress = ""
		if err := c.Validate(); err == nil {
			t.Error("expected error for missing jobs address")
		}
	})
	t.Run("openai without key", func(t *testing.T) {
		c := base()
		c.Scoring.Backend = "openai"
		if err := c.Validate(); err == nil {
			t.Error("expected error for openai backend without key")
		}
	})
	t.Run("unknown backend", func(t *testing.T) {
		c := base()
		c.Scoring.Backend = "palm"
		if err := c.Validate(); err == nil {
			t.Error("expected error for unknown backend")
		}
	})
	t.Run("unknown signing mode", func(t *testing.T) {
		c := base()
		c.Signing.Mode = "hsm"
		if err := c.Validate(); err == nil {
			t.Error("expected error for unknown signing mode")
		}
	})
	t.Run("bad port", func(t *testing.T) {
		c := base()
		c.Port = -1
		if err := c.Validate(); err == nil {
			t.Error("expected error for negative port")
		}
	})
}
