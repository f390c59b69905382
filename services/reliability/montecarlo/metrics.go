// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package montecarlo

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for simulation runs.
var (
	tracer = otel.Tracer("corelife.montecarlo")
	meter  = otel.Meter("corelife.montecarlo")
)

// ==============================================================================
// Prometheus Metrics
// ==============================================================================

var (
	trialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "corelife_trials_total",
		Help: "Completed Monte Carlo trials by variant",
	}, []string{"variant"})

	batchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "corelife_batches_total",
		Help: "Completed trial batches by variant",
	}, []string{"variant"})

	batchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "corelife_batch_duration_seconds",
		Help:    "Wall time of one trial batch",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms to ~33s
	}, []string{"variant"})

	trialSteps = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "corelife_trial_steps",
		Help:    "Death steps per trial",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024},
	})

	halfWidthGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "corelife_confidence_half_width",
		Help: "Latest confidence half-width of the running TTF mean",
	}, []string{"variant"})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "corelife_runs_total",
		Help: "Finished runs by variant and stop reason",
	}, []string{"variant", "stop_reason"})
)

// ==============================================================================
// OpenTelemetry Metrics
// ==============================================================================

var (
	runLatency metric.Float64Histogram
	ttfValues  metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics creates the OTel instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		runLatency, err = meter.Float64Histogram(
			"corelife_run_duration_seconds",
			metric.WithDescription("Wall time of a simulation run"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		ttfValues, err = meter.Float64Histogram(
			"corelife_trial_ttf",
			metric.WithDescription("Simulated time to failure per trial"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordBatch(ctx context.Context, variant string, outcomes []Outcome, elapsed time.Duration) {
	trialsTotal.WithLabelValues(variant).Add(float64(len(outcomes)))
	batchesTotal.WithLabelValues(variant).Inc()
	batchDuration.WithLabelValues(variant).Observe(elapsed.Seconds())
	for _, o := range outcomes {
		trialSteps.Observe(float64(o.Steps))
	}

	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("variant", variant))
	for _, o := range outcomes {
		ttfValues.Record(ctx, o.TTF, attrs)
	}
}

func recordRun(ctx context.Context, res *Result) {
	runsTotal.WithLabelValues(res.Variant, string(res.StopReason)).Inc()

	if err := initMetrics(); err != nil {
		return
	}
	runLatency.Record(ctx, res.Duration.Seconds(), metric.WithAttributes(
		attribute.String("variant", res.Variant),
		attribute.String("stop_reason", string(res.StopReason)),
	))
}

// startRunSpan creates the span covering a whole run.
func startRunSpan(ctx context.Context, cfg *Config) (context.Context, trace.Span) {
	return tracer.Start(ctx, "montecarlo.Driver.Run",
		trace.WithAttributes(
			attribute.String("montecarlo.variant", cfg.Variant),
			attribute.Int("montecarlo.rows", cfg.Rows),
			attribute.Int("montecarlo.cols", cfg.Cols),
			attribute.Int("montecarlo.min_cores", cfg.MinCores),
			attribute.Bool("montecarlo.fixed", cfg.UseNumOfTests),
			attribute.Int64("montecarlo.seed", int64(cfg.Seed)),
		),
	)
}

// setRunSpanResult sets the result attributes on a run span.
func setRunSpanResult(span trace.Span, res *Result) {
	span.SetAttributes(
		attribute.Int("montecarlo.trials", res.Trials),
		attribute.Int("montecarlo.batches", res.Batches),
		attribute.Float64("montecarlo.mean_ttf", res.Mean),
		attribute.Float64("montecarlo.half_width", res.HalfWidth),
		attribute.String("montecarlo.stop_reason", string(res.StopReason)),
	)
}
