// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the validation
// pipeline: run outcomes, per-step latency and failures, in-flight gauge,
// and the distribution of scores written on-chain. Exposed via /metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "arbiter"

// Subsystem for pipeline metrics
const pipelineSubsystem = "pipeline"

// PipelineMetrics holds all Prometheus metrics for validation runs.
//
// # Description
//
// Initialize once at startup via InitMetrics(). All operations are
// thread-safe via Prometheus's internal locking.
//
// # Fields
//
//   - ValidationsTotal: counter of finished runs by terminal status
//   - StepDurationSeconds: histogram of per-step latency
//   - StepFailuresTotal: counter of step failures by step and category
//   - ActiveValidations: gauge of in-flight pipeline runs
//   - ScoresRecorded: histogram of clamped scores written on-chain
type PipelineMetrics struct {
	// ValidationsTotal counts finished runs.
	// Labels: status (completed, failed)
	ValidationsTotal *prometheus.CounterVec

	// StepDurationSeconds measures collaborator-call latency.
	// Labels: step (event_check, fetch_job, scoring, recording, signing)
	StepDurationSeconds *prometheus.HistogramVec

	// StepFailuresTotal counts step failures.
	// Labels: step, category (lookup_failure, read_failure, ...)
	StepFailuresTotal *prometheus.CounterVec

	// ActiveValidations tracks runs between intake and finalize.
	ActiveValidations prometheus.Gauge

	// ScoresRecorded observes every score committed on-chain.
	ScoresRecorded prometheus.Histogram
}

// DefaultMetrics is the singleton instance of PipelineMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *PipelineMetrics

// InitMetrics initializes the default metrics instance.
//
// Call once at application startup; panics on duplicate registration.
func InitMetrics() *PipelineMetrics {
	DefaultMetrics = &PipelineMetrics{
		ValidationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "validations_total",
				Help:      "Total finished validation runs by terminal status",
			},
			[]string{"status"},
		),

		StepDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "step_duration_seconds",
				Help:      "Latency of each pipeline step in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"step"},
		),

		StepFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "step_failures_total",
				Help:      "Pipeline step failures by step and error category",
			},
			[]string{"step", "category"},
		),

		ActiveValidations: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "active_validations",
				Help:      "Validation runs currently in flight",
			},
		),

		ScoresRecorded: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "scores_recorded",
				Help:      "Distribution of reputation scores written on-chain",
				Buckets:   []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Helper Methods
// =============================================================================

// All helpers are nil-safe so the pipeline can run without metrics in tests.

// RunStarted increments the in-flight gauge.
func (m *PipelineMetrics) RunStarted() {
	if m == nil {
		return
	}
	m.ActiveValidations.Inc()
}

// RunFinished records a terminal run and decrements the in-flight gauge.
func (m *PipelineMetrics) RunFinished(status string) {
	if m == nil {
		return
	}
	m.ActiveValidations.Dec()
	m.ValidationsTotal.WithLabelValues(status).Inc()
}

// RecordStepDuration observes one step's latency.
func (m *PipelineMetrics) RecordStepDuration(step string, d time.Duration) {
	if m == nil {
		return
	}
	m.StepDurationSeconds.WithLabelValues(step).Observe(d.Seconds())
}

// RecordStepFailure counts a categorized step failure.
func (m *PipelineMetrics) RecordStepFailure(step, category string) {
	if m == nil {
		return
	}
	m.StepFailuresTotal.WithLabelValues(step, category).Inc()
}

// RecordScore observes a score committed on-chain.
func (m *PipelineMetrics) RecordScore(score int) {
	if m == nil {
		return
	}
	m.ScoresRecorded.Observe(float64(score))
}
