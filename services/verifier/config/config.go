// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the verifier service configuration.
//
// Configuration comes from a YAML file with environment variable overrides
// on top, so containerized deployments can ship one baked-in file and vary
// per-environment values without rebuilding. Secrets (the operator key, the
// OpenAI key) are env-only and never appear in the file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the root service configuration.
type Config struct {
	// Port the HTTP API listens on.
	Port int `yaml:"port"`

	Scoring ScoringConfig `yaml:"scoring"`
	Chain   ChainConfig   `yaml:"chain"`
	Signing SigningConfig `yaml:"signing"`
}

// ScoringConfig selects and parameterizes the AI scoring backend.
type ScoringConfig struct {
	// Backend is "ollama" or "openai".
	Backend string `yaml:"backend"`

	// OllamaBaseURL, e.g. "http://ollama:11434". Used when Backend is ollama.
	OllamaBaseURL string `yaml:"ollama_base_url"`

	// Model tag or name for the selected backend. Empty uses the backend's
	// default.
	Model string `yaml:"model"`

	// OpenAIBaseURL overrides the hosted endpoint for compatible servers.
	OpenAIBaseURL string `yaml:"openai_base_url"`

	// OpenAIAPIKey is populated from OPENAI_API_KEY, never from the file.
	OpenAIAPIKey string `yaml:"-"`
}

// ChainConfig describes the marketplace chain connection.
type ChainConfig struct {
	// Network is "hedera-testnet" or "hedera-mainnet".
	Network string `yaml:"network"`

	// RPCURL overrides the network's default endpoint.
	RPCURL string `yaml:"rpc_url"`

	// ChainID for transaction signing.
	ChainID int64 `yaml:"chain_id"`

	// JobsAddress is the deployed JobsModule contract. Required.
	JobsAddress string `yaml:"jobs_address"`

	// RegistryAddress is the deployed RegistryModule contract. Empty uses
	// the chain package default.
	RegistryAddress string `yaml:"registry_address"`

	// RequestsPerSecond caps outbound RPC calls.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// PrivateKeyHex is populated from OPERATOR_PRIVATE_KEY, never from the
	// file.
	PrivateKeyHex string `yaml:"-"`
}

// SigningConfig selects the result signing key source.
type SigningConfig struct {
	// Mode is "rofl", "ephemeral", or "disabled".
	Mode string `yaml:"mode"`

	// SocketPath of the ROFL app daemon. Empty uses the package default.
	SocketPath string `yaml:"socket_path"`

	// KeyID namespaces the key in the ROFL keystore.
	KeyID string `yaml:"key_id"`
}

// Signing modes.
const (
	SigningModeROFL      = "rofl"
	SigningModeEphemeral = "ephemeral"
	SigningModeDisabled  = "disabled"
)

// Default returns the configuration used when no file is present: Ollama
// scoring against a local server, Hedera testnet, ephemeral signing.
func Default() Config {
	return Config{
		Port: 12310,
		Scoring: ScoringConfig{
			Backend:       "ollama",
			OllamaBaseURL: "http://localhost:11434",
		},
		Chain: ChainConfig{
			Network: "hedera-testnet",
			ChainID: 296,
		},
		Signing: SigningConfig{
			Mode: SigningModeEphemeral,
		},
	}
}

// Load reads the configuration file and applies environment overrides.
//
// # Description
//
// Starts from Default(), merges the YAML file at path when it exists, then
// applies environment variables. A missing file is not an error; a present
// but malformed file is. Validation runs last so overrides are covered too.
//
// # Inputs
//
//   - path: YAML file location. Empty skips file loading entirely.
//
// # Outputs
//
//   - Config: The effective configuration.
//   - error: Non-nil on unreadable file, malformed YAML, malformed
//     override, or failed validation.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Defaults plus env is a supported deployment.
		case err != nil:
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv layers environment variables over the file values.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("VERIFIER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("VERIFIER_PORT %q is not an integer: %w", v, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("SCORING_BACKEND"); v != "" {
		cfg.Scoring.Backend = v
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		cfg.Scoring.OllamaBaseURL = v
	}
	if v := os.Getenv("SCORING_MODEL"); v != "" {
		cfg.Scoring.Model = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.Scoring.OpenAIBaseURL = v
	}
	cfg.Scoring.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")

	if v := os.Getenv("CHAIN_NETWORK"); v != "" {
		cfg.Chain.Network = v
	}
	if v := os.Getenv("CHAIN_RPC_URL"); v != "" {
		cfg.Chain.RPCURL = v
	}
	if v := os.Getenv("CHAIN_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("CHAIN_ID %q is not an integer: %w", v, err)
		}
		cfg.Chain.ChainID = id
	}
	if v := os.Getenv("JOBS_ADDRESS"); v != "" {
		cfg.Chain.JobsAddress = v
	}
	if v := os.Getenv("REGISTRY_ADDRESS"); v != "" {
		cfg.Chain.RegistryAddress = v
	}
	cfg.Chain.PrivateKeyHex = os.Getenv("OPERATOR_PRIVATE_KEY")

	if v := os.Getenv("SIGNING_MODE"); v != "" {
		cfg.Signing.Mode = v
	}
	if v := os.Getenv("ROFL_SOCKET_PATH"); v != "" {
		cfg.Signing.SocketPath = v
	}
	if v := os.Getenv("ROFL_KEY_ID"); v != "" {
		cfg.Signing.KeyID = v
	}
	return nil
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	switch c.Scoring.Backend {
	case "ollama":
		if c.Scoring.OllamaBaseURL == "" {
			return fmt.Errorf("scoring backend ollama requires ollama_base_url")
		}
	case "openai":
		if c.Scoring.OpenAIAPIKey == "" {
			return fmt.Errorf("scoring backend openai requires OPENAI_API_KEY")
		}
	default:
		return fmt.Errorf("unknown scoring backend %q", c.Scoring.Backend)
	}
	if c.Chain.JobsAddress == "" {
		return fmt.Errorf("chain.jobs_address is required")
	}
	if c.Chain.ChainID == 0 {
		return fmt.Errorf("chain.chain_id is required")
	}
	switch c.Signing.Mode {
	case SigningModeROFL, SigningModeEphemeral, SigningModeDisabled:
	default:
		return fmt.Errorf("unknown signing mode %q", c.Signing.Mode)
	}
	return nil
}
