// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry sets up OpenTelemetry providers for corelife runs.
//
// Tracing and OTel metrics are off by default. Selecting an exporter in the
// telemetry config installs a global TracerProvider or MeterProvider, so
// spans and instruments created with otel.Tracer and otel.Meter in the
// simulation packages start exporting without code changes.
//
// # Exporters
//
//   - Traces: "none", "stdout", "otlp" (gRPC)
//   - Metrics: "none", "stdout", "prometheus"
//
// The Prometheus registry also carries the promauto counters of the
// montecarlo package. MetricsServer exposes it on /metrics while a run is
// in progress.
//
// # Usage
//
//	shutdown, err := telemetry.Init(ctx, cfg)
//	if err != nil {
//	    return fmt.Errorf("init telemetry: %w", err)
//	}
//	defer shutdown(context.Background())
//
// # Thread Safety
//
// Init is called once at startup. Everything else is safe for concurrent use.
package telemetry
