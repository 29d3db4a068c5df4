// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/credentials/insecure"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"

	"github.com/AleutianAI/ChainArbiter/services/chain"
	"github.com/AleutianAI/ChainArbiter/services/scoring"
	"github.com/AleutianAI/ChainArbiter/services/signing"
	"github.com/AleutianAI/ChainArbiter/services/verifier/config"
	"github.com/AleutianAI/ChainArbiter/services/verifier/observability"
	"github.com/AleutianAI/ChainArbiter/services/verifier/pipeline"
	"github.com/AleutianAI/ChainArbiter/services/verifier/routes"
	"github.com/AleutianAI/ChainArbiter/services/verifier/store"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("verifier-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func buildScorer(cfg config.ScoringConfig) (pipeline.Scorer, error) {
	switch cfg.Backend {
	case scoring.BackendOpenAI:
		slog.Info("Using OpenAI scoring backend")
		return scoring.NewOpenAIScorer(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Model)
	case scoring.BackendOllama:
		slog.Info("Using Ollama scoring backend")
		return scoring.NewOllamaScorer(cfg.OllamaBaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown scoring backend %q", cfg.Backend)
	}
}

// buildSigner resolves the signing mode. Disabled returns (nil, ""), which
// the pipeline reports as signing_unavailable on every completed run.
func buildSigner(cfg config.SigningConfig) (pipeline.Signer, string, error) {
	switch cfg.Mode {
	case config.SigningModeROFL:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		signer, err := signing.NewROFLKeySource(cfg.SocketPath, cfg.KeyID).FetchSigner(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("fetching ROFL signing key: %w", err)
		}
		slog.Info("Using ROFL-backed result signing", "public_key", signer.PublicKey())
		return signer, signer.PublicKey(), nil
	case config.SigningModeEphemeral:
		signer, err := signing.NewEphemeralSigner()
		if err != nil {
			return nil, "", err
		}
		slog.Warn("Using ephemeral result signing, key is lost on restart",
			"public_key", signer.PublicKey())
		return signer, signer.PublicKey(), nil
	default:
		slog.Warn("Result signing disabled, validations will fail at the signing step")
		return nil, "", nil
	}
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfgPath := os.Getenv("VERIFIER_CONFIG")
	if cfgPath == "" {
		cfgPath = "verifier.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("FATAL: could not load configuration: %v", err)
	}

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	chainClient, err := chain.New(chain.Config{
		Network:           cfg.Chain.Network,
		RPCURL:            cfg.Chain.RPCURL,
		ChainID:           cfg.Chain.ChainID,
		JobsAddress:       cfg.Chain.JobsAddress,
		RegistryAddress:   cfg.Chain.RegistryAddress,
		PrivateKeyHex:     cfg.Chain.PrivateKeyHex,
		RequestsPerSecond: cfg.Chain.RequestsPerSecond,
	})
	if err != nil {
		log.Fatalf("FATAL: could not connect the chain client: %v", err)
	}
	defer chainClient.Close()

	scorer, err := buildScorer(cfg.Scoring)
	if err != nil {
		log.Fatalf("FATAL: could not initialize the scoring backend: %v", err)
	}

	signer, publicKey, err := buildSigner(cfg.Signing)
	if err != nil {
		log.Fatalf("FATAL: could not initialize result signing: %v", err)
	}

	metrics := observability.InitMetrics()
	st := store.NewMemoryStore()
	runner, err := pipeline.NewRunner(st, chainClient, chainClient, scorer, chainClient, signer, metrics)
	if err != nil {
		log.Fatalf("FATAL: could not assemble the pipeline: %v", err)
	}

	router := gin.Default()
	router.Use(otelgin.Middleware("verifier-service"))
	routes.SetupRoutes(router, st, runner, scorer.Backend(), publicKey)

	slog.Info("Starting the verifier server", "port", cfg.Port)
	if err := router.Run(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
