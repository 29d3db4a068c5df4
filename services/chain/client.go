// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package chain reads and writes the marketplace contracts over JSON-RPC.
//
// The Client wraps go-ethereum's ethclient with the reliability stack every
// remote call goes through: a rate limiter to stay inside public RPC
// provider quotas, a circuit breaker so a dead endpoint fails fast instead
// of stacking timeouts, and bounded retries with exponential backoff for
// transient faults. The validation pipeline upstream stays policy-free and
// sees only the final error.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("arbiter.chain")

// Known networks with their public JSON-RPC endpoints.
const (
	NetworkHederaTestnet = "hedera-testnet"
	NetworkHederaMainnet = "hedera-mainnet"

	hederaTestnetRPC = "https://testnet.hashio.io/api"
	hederaMainnetRPC = "https://mainnet.hashio.io/api"

	// DefaultRegistryAddress is the deployed RegistryModule on Hedera testnet.
	DefaultRegistryAddress = "0xa041ec83d30ef5f7ffc4bc7a62bf1aaeee5544b6"

	rpcCallTimeout = 30 * time.Second
)

// Config describes a chain connection.
type Config struct {
	// Network selects RPC defaults; see NetworkHedera*. Ignored when RPCURL
	// is set explicitly.
	Network string

	// RPCURL overrides the network default endpoint.
	RPCURL string

	// ChainID for transaction signing. Hedera testnet is 296, mainnet 295.
	ChainID int64

	// JobsAddress is the deployed JobsModule contract.
	JobsAddress string

	// RegistryAddress is the deployed RegistryModule contract. Empty uses
	// DefaultRegistryAddress.
	RegistryAddress string

	// PrivateKeyHex funds and signs reputation writes. Optional: a client
	// without it can read but RecordScore fails.
	PrivateKeyHex string

	// RequestsPerSecond caps outbound RPC calls. Zero uses a default tuned
	// for public hashio endpoints.
	RequestsPerSecond float64
}

// rpcURL resolves the endpoint from the explicit override or the network.
func (c Config) rpcURL() (string, error) {
	if c.RPCURL != "" {
		return c.RPCURL, nil
	}
	switch c.Network {
	case NetworkHederaTestnet, "":
		return hederaTestnetRPC, nil
	case NetworkHederaMainnet:
		return hederaMainnetRPC, nil
	default:
		return "", fmt.Errorf("unknown network %q and no rpc_url configured", c.Network)
	}
}

// Client talks to the marketplace contracts. One Client serves all
// concurrent validations.
//
// # Thread Safety
//
// Safe for concurrent use. ethclient, the limiter, and the breaker are all
// concurrency-safe, nonceMu serializes writers, and the remaining fields
// are immutable after New.
type Client struct {
	eth          *ethclient.Client
	jobsABI      abi.ABI
	registryABI  abi.ABI
	jobsAddr     common.Address
	registryAddr common.Address
	chainID      *big.Int

	priv *ecdsa.PrivateKey
	from common.Address

	// nonceMu serializes nonce assignment: concurrent writers reading
	// PendingNonceAt without it can both see the same nonce and the later
	// submission fails "nonce too low".
	nonceMu sync.Mutex

	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// New connects a Client.
//
// # Description
//
// Dials the JSON-RPC endpoint and prepares the contract ABIs and the
// reliability stack. Dialing over HTTP does not touch the network, so a
// wrong endpoint surfaces on the first call, not here.
//
// # Inputs
//
//   - cfg: Connection description. JobsAddress and ChainID are required.
//
// # Outputs
//
//   - *Client: Ready client.
//   - error: Non-nil on malformed configuration.
func New(cfg Config) (*Client, error) {
	if cfg.JobsAddress == "" {
		return nil, fmt.Errorf("chain client requires the JobsModule address")
	}
	if !common.IsHexAddress(cfg.JobsAddress) {
		return nil, fmt.Errorf("malformed JobsModule address %q", cfg.JobsAddress)
	}
	if cfg.ChainID == 0 {
		return nil, fmt.Errorf("chain client requires a chain id")
	}
	registryAddr := cfg.RegistryAddress
	if registryAddr == "" {
		registryAddr = DefaultRegistryAddress
	}
	if !common.IsHexAddress(registryAddr) {
		return nil, fmt.Errorf("malformed RegistryModule address %q", registryAddr)
	}

	url, err := cfg.rpcURL()
	if err != nil {
		return nil, err
	}
	eth, err := ethclient.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dialing rpc endpoint %s: %w", url, err)
	}

	jobsABI, err := parseJobsABI()
	if err != nil {
		return nil, err
	}
	registryABI, err := parseRegistryABI()
	if err != nil {
		return nil, err
	}

	c := &Client{
		eth:          eth,
		jobsABI:      jobsABI,
		registryABI:  registryABI,
		jobsAddr:     common.HexToAddress(cfg.JobsAddress),
		registryAddr: common.HexToAddress(registryAddr),
		chainID:      big.NewInt(cfg.ChainID),
	}

	if cfg.PrivateKeyHex != "" {
		priv, err := crypto.HexToECDSA(cfg.PrivateKeyHex)
		if err != nil {
			return nil, fmt.Errorf("parsing operator private key: %w", err)
		}
		c.priv = priv
		c.from = crypto.PubkeyToAddress(priv.PublicKey)
		slog.Info("Chain client has a write identity", "address", c.from.Hex())
	} else {
		slog.Warn("No operator key configured, chain client is read-only")
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), 5)
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "chain-rpc",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Chain RPC circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})

	slog.Info("Chain client connected",
		"rpc_url", url,
		"chain_id", cfg.ChainID,
		"jobs_address", c.jobsAddr.Hex(),
		"registry_address", c.registryAddr.Hex())
	return c, nil
}

// CanWrite reports whether an operator key is configured.
func (c *Client) CanWrite() bool { return c.priv != nil }

// Close releases the underlying RPC connection.
func (c *Client) Close() { c.eth.Close() }

// call funnels every RPC through the limiter, the breaker, and a bounded
// retry. fn gets a per-attempt timeout derived from ctx.
func (c *Client) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rpc rate limit: %w", err)
	}
	_, err := c.breaker.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(3),
			retry.DelayType(retry.BackOffDelay),
		)
		retryErr := r.Do(func() error {
			attemptCtx, cancel := context.WithTimeout(ctx, rpcCallTimeout)
			defer cancel()
			return fn(attemptCtx)
		})
		return nil, retryErr
	})
	return err
}
