// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/AleutianAI/corelife/pkg/logging"
)

func clearOTelEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"CORELIFE_ENV", "OTEL_TRACES_EXPORTER", "OTEL_METRICS_EXPORTER", "OTEL_EXPORTER_OTLP_ENDPOINT"} {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	clearOTelEnv(t)
	cfg := DefaultConfig()

	if cfg.ServiceName != "corelife" {
		t.Errorf("ServiceName = %q, want %q", cfg.ServiceName, "corelife")
	}
	if cfg.TraceExporter != ExporterNone {
		t.Errorf("TraceExporter = %q, want %q", cfg.TraceExporter, ExporterNone)
	}
	if cfg.MetricExporter != ExporterNone {
		t.Errorf("MetricExporter = %q, want %q", cfg.MetricExporter, ExporterNone)
	}
	if cfg.OTLPEndpoint != "localhost:4317" {
		t.Errorf("OTLPEndpoint = %q, want %q", cfg.OTLPEndpoint, "localhost:4317")
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("SampleRate = %v, want 1.0", cfg.SampleRate)
	}
}

func TestDefaultConfig_EnvOverride(t *testing.T) {
	clearOTelEnv(t)
	t.Setenv("OTEL_TRACES_EXPORTER", "stdout")
	t.Setenv("CORELIFE_ENV", "ci")

	cfg := DefaultConfig()
	if cfg.TraceExporter != "stdout" {
		t.Errorf("TraceExporter = %q, want stdout", cfg.TraceExporter)
	}
	if cfg.Environment != "ci" {
		t.Errorf("Environment = %q, want ci", cfg.Environment)
	}
}

func TestInit_NilContext(t *testing.T) {
	var ctx context.Context
	_, err := Init(ctx, DefaultConfig())
	if !errors.Is(err, ErrNilContext) {
		t.Errorf("Init(nil, cfg) error = %v, want %v", err, ErrNilContext)
	}
}

func TestInit_NoopExporter(t *testing.T) {
	clearOTelEnv(t)
	shutdown, err := Init(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if shutdown == nil {
		t.Fatal("shutdown function is nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}

func TestInit_StdoutExporters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TraceExporter = ExporterStdout
	cfg.MetricExporter = ExporterStdout

	shutdown, err := Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer shutdown(context.Background())

	_, span := otel.Tracer("test").Start(context.Background(), "probe")
	if !span.SpanContext().IsValid() {
		t.Error("span from the installed provider has no valid span context")
	}
	span.End()
}

func TestInit_UnknownExporter(t *testing.T) {
	tests := []struct {
		name   string
		trace  string
		metric string
	}{
		{"trace", "zipkin", ExporterNone},
		{"metric", ExporterNone, "otlp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.TraceExporter = tt.trace
			cfg.MetricExporter = tt.metric

			_, err := Init(context.Background(), cfg)
			if !errors.Is(err, ErrUnknownExporter) {
				t.Errorf("Init() error = %v, want %v", err, ErrUnknownExporter)
			}
		})
	}
}

func TestInit_PrometheusExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TraceExporter = ExporterNone
	cfg.MetricExporter = ExporterPrometheus

	shutdown, err := Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer shutdown(context.Background())

	counter, err := otel.Meter("test").Int64Counter("corelife_probe_total")
	if err != nil {
		t.Fatalf("Int64Counter() error = %v", err)
	}
	counter.Add(context.Background(), 1)

	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "corelife_probe") {
		t.Error("OTel counter missing from /metrics output")
	}
}

func TestGetSampler(t *testing.T) {
	tests := []struct {
		name     string
		rate     float64
		expected string
	}{
		{"full sampling", 1.0, "AlwaysOnSampler"},
		{"above 100%", 1.5, "AlwaysOnSampler"},
		{"no sampling", 0.0, "AlwaysOffSampler"},
		{"below 0%", -0.5, "AlwaysOffSampler"},
		{"partial sampling", 0.25, "TraceIDRatioBased"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			description := getSampler(tt.rate).Description()
			if !strings.Contains(description, tt.expected) {
				t.Errorf("getSampler(%v) = %q, want %q", tt.rate, description, tt.expected)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// Metrics server
// -----------------------------------------------------------------------------

func TestRouter(t *testing.T) {
	router := Router()

	tests := []struct {
		path string
		want string
	}{
		{"/metrics", "# HELP"},
		{"/healthz", `"status":"ok"`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("GET %s status = %d, want 200", tt.path, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("GET %s body missing %q", tt.path, tt.want)
			}
		})
	}
}

func TestMetricsServer_StartShutdown(t *testing.T) {
	srv := NewMetricsServer(0, nil)
	if srv.Addr() != "" {
		t.Errorf("Addr() before Start = %q, want empty", srv.Addr())
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	_, port, err := net.SplitHostPort(srv.Addr())
	if err != nil {
		t.Fatalf("SplitHostPort(%q) error = %v", srv.Addr(), err)
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://127.0.0.1:" + port + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, body = %s", resp.StatusCode, body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestMetricsServer_ShutdownBeforeStart(t *testing.T) {
	if err := NewMetricsServer(0, nil).Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestMetricsServer_PortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	if err := NewMetricsServer(port, nil).Start(); err == nil {
		t.Error("Start() on a bound port should fail")
	}
}

// -----------------------------------------------------------------------------
// Trace correlation
// -----------------------------------------------------------------------------

func TestLoggerWithTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Format: logging.FormatJSON, Output: &buf})

	t.Run("no span", func(t *testing.T) {
		buf.Reset()
		LoggerWithTrace(context.Background(), logger).Info("plain")
		if strings.Contains(buf.String(), "trace_id") {
			t.Errorf("unexpected trace_id without a span: %s", buf.String())
		}
		if TraceID(context.Background()) != "" || SpanID(context.Background()) != "" {
			t.Error("TraceID/SpanID should be empty without a span")
		}
	})

	t.Run("with span", func(t *testing.T) {
		buf.Reset()
		tp := sdktrace.NewTracerProvider()
		defer tp.Shutdown(context.Background())

		ctx, span := tp.Tracer("test").Start(context.Background(), "run")
		defer span.End()

		LoggerWithTrace(ctx, logger).Info("traced")
		out := buf.String()
		if !strings.Contains(out, `"trace_id":"`+TraceID(ctx)+`"`) {
			t.Errorf("output missing trace_id: %s", out)
		}
		if !strings.Contains(out, `"span_id":"`+SpanID(ctx)+`"`) {
			t.Errorf("output missing span_id: %s", out)
		}
	})
}
