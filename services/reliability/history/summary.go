// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history persists run summaries in BadgerDB so past results can
// be listed and inspected after the process exits.
package history

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/corelife/services/reliability/montecarlo"
)

var (
	// ErrNotFound indicates no stored run matches the requested ID.
	ErrNotFound = errors.New("run not found")

	// ErrAmbiguousID indicates an ID prefix that matches several runs.
	ErrAmbiguousID = errors.New("run ID prefix is ambiguous")
)

// RunSummary is the stored record of one simulation run.
type RunSummary struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Config is the validated simulation config the run used.
	Config montecarlo.Config `json:"config"`

	Variant    string                `json:"variant"`
	Trials     int                   `json:"trials"`
	Batches    int                   `json:"batches"`
	SumTTF     float64               `json:"sum_ttf"`
	SumTTFx2   float64               `json:"sum_ttf_x2"`
	Mean       float64               `json:"mean"`
	StdDev     float64               `json:"std_dev"`
	StopReason montecarlo.StopReason `json:"stop_reason"`
	Duration   time.Duration         `json:"duration"`

	// HalfWidth is nil when too few trials ran to estimate it.
	HalfWidth *float64 `json:"half_width,omitempty"`

	// Error is the run error, if it ended early.
	Error string `json:"error,omitempty"`
}

// NewSummary builds the record for a finished run with a fresh ID.
//
// Inputs:
//   - cfg: The config the driver ran with.
//   - res: The driver result. Must not be nil.
//   - started: When the run started.
//   - runErr: The error Run returned, or nil.
//
// Outputs:
//   - *RunSummary: Ready to Save.
func NewSummary(cfg montecarlo.Config, res *montecarlo.Result, started time.Time, runErr error) *RunSummary {
	s := &RunSummary{
		ID:         uuid.NewString(),
		StartedAt:  started.UTC(),
		FinishedAt: started.Add(res.Duration).UTC(),
		Config:     cfg,
		Variant:    res.Variant,
		Trials:     res.Trials,
		Batches:    res.Batches,
		SumTTF:     res.SumTTF,
		SumTTFx2:   res.SumTTFx2,
		Mean:       res.Mean,
		StdDev:     res.StdDev,
		StopReason: res.StopReason,
		Duration:   res.Duration,
	}
	if hw := res.HalfWidth; !math.IsInf(hw, 0) && !math.IsNaN(hw) {
		s.HalfWidth = &hw
	}
	if runErr != nil {
		s.Error = runErr.Error()
	}
	return s
}

// ShortID returns the first eight characters of the ID.
func (s *RunSummary) ShortID() string {
	if len(s.ID) <= 8 {
		return s.ID
	}
	return s.ID[:8]
}
