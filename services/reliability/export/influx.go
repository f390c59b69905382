// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package export ships run summaries to external time-series stores.
package export

import (
	"context"
	"errors"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/AleutianAI/corelife/services/reliability/history"
)

// Measurement is the InfluxDB measurement run summaries are written to.
const Measurement = "corelife_runs"

// ErrDisabled is returned by NewInfluxSink when no URL is configured.
var ErrDisabled = errors.New("influx export disabled: no url configured")

// InfluxConfig locates the InfluxDB bucket for run summaries. An empty URL
// disables export.
type InfluxConfig struct {
	URL    string `yaml:"url" validate:"omitempty,url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org" validate:"required_with=URL"`
	Bucket string `yaml:"bucket" validate:"required_with=URL"`
}

// DefaultInfluxConfig returns a disabled config with the default org and
// bucket names filled in.
func DefaultInfluxConfig() InfluxConfig {
	return InfluxConfig{Org: "corelife", Bucket: "reliability"}
}

// Enabled reports whether a URL is configured.
func (c InfluxConfig) Enabled() bool { return c.URL != "" }

// InfluxSink writes one point per run with the blocking write API.
//
// Thread Safety: Safe for concurrent use.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	bucket   string
}

// NewInfluxSink creates a sink for cfg.
//
// Outputs:
//
//	*InfluxSink - The sink. Caller must Close it.
//	error - ErrDisabled when cfg has no URL.
func NewInfluxSink(cfg InfluxConfig) (*InfluxSink, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		bucket:   cfg.Bucket,
	}, nil
}

// Write stores s as one point.
func (k *InfluxSink) Write(ctx context.Context, s *history.RunSummary) error {
	if err := k.writeAPI.WritePoint(ctx, Point(s)); err != nil {
		return fmt.Errorf("write run %s to bucket %s: %w", s.ID, k.bucket, err)
	}
	return nil
}

// Close releases the client's connections.
func (k *InfluxSink) Close() {
	k.client.Close()
}

// Point converts a run summary to an InfluxDB point stamped with its
// finish time.
func Point(s *history.RunSummary) *write.Point {
	mode := "confidence"
	if s.Config.UseNumOfTests {
		mode = "fixed"
	}

	p := influxdb2.NewPointWithMeasurement(Measurement).
		AddTag("run_id", s.ID).
		AddTag("variant", s.Variant).
		AddTag("stop_reason", string(s.StopReason)).
		AddTag("grid", fmt.Sprintf("%dx%d", s.Config.Rows, s.Config.Cols)).
		AddTag("mode", mode).
		AddField("min_cores", s.Config.MinCores).
		AddField("trials", s.Trials).
		AddField("batches", s.Batches).
		AddField("sum_ttf", s.SumTTF).
		AddField("sum_ttf_x2", s.SumTTFx2).
		AddField("mean_ttf", s.Mean).
		AddField("std_dev", s.StdDev).
		AddField("duration_seconds", s.Duration.Seconds()).
		SetTime(s.FinishedAt)
	if s.HalfWidth != nil {
		p.AddField("half_width", *s.HalfWidth)
	}
	return p
}
