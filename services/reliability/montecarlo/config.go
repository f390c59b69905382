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
	"errors"
	"fmt"

	"github.com/AleutianAI/corelife/services/reliability/grid"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidConfig indicates a configuration that cannot be simulated.
	// Reported before any trial runs.
	ErrInvalidConfig = errors.New("invalid simulation config")

	// ErrUnknownVariant indicates a variant name that is not registered.
	ErrUnknownVariant = errors.New("unknown variant")

	// ErrModelOutput indicates the aging model returned a NaN, infinite or
	// negative lifetime.
	ErrModelOutput = errors.New("aging model returned an invalid lifetime")
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds the parameters of one simulation run.
type Config struct {
	// Rows and Cols give the grid shape.
	Rows int `json:"rows"`
	Cols int `json:"cols"`

	// MinCores ends a trial once fewer cores than this are alive.
	// Must be in [1, Rows*Cols].
	MinCores int `json:"min_cores"`

	// MaxCores, when positive, also ends a trial once this many cores
	// have died.
	MaxCores int `json:"max_cores"`

	// UseNumOfTests selects fixed mode (true) or confidence mode (false).
	UseNumOfTests bool `json:"use_num_of_tests"`

	// NumOfTests is the trial count in fixed mode.
	NumOfTests int `json:"num_of_tests"`

	// Threshold is the target half-width in confidence mode.
	Threshold float64 `json:"threshold"`

	// ConfInt is the confidence level of the default evaluator.
	// Default: 0.95
	ConfInt float64 `json:"conf_int"`

	// RelativeThreshold compares half-width/mean against Threshold.
	RelativeThreshold bool `json:"relative_threshold"`

	// MaxTrials caps confidence mode. Zero means no cap.
	MaxTrials int `json:"max_trials"`

	// BatchSize is the number of trials between stopping checks.
	// Default: 1000
	BatchSize int `json:"batch_size"`

	// InitialWorkLoad is the per-core load with every core alive.
	InitialWorkLoad float64 `json:"initial_work_load"`

	// Voltage is the supply voltage of every core.
	Voltage float64 `json:"voltage"`

	// Variant names the layout and scheduling strategy. See Variants.
	// Default: "redux"
	Variant string `json:"variant"`

	// Workers bounds concurrent trial tasks. Zero means GOMAXPROCS.
	Workers int `json:"workers"`

	// Shards is the number of parallel evaluation shards per trial for
	// variants that evaluate in parallel. Zero means GOMAXPROCS.
	Shards int `json:"shards"`

	// Seed is the run seed. Trial i uses a seed derived from (Seed, i).
	Seed uint64 `json:"seed"`
}

// DefaultConfig returns a Config with sensible defaults.
//
// Outputs:
//
//	Config - An 8x8 grid, fixed mode with 10000 trials
func DefaultConfig() Config {
	return Config{
		Rows:              8,
		Cols:              8,
		MinCores:          32,
		UseNumOfTests:     true,
		NumOfTests:        10000,
		Threshold:         0.01,
		ConfInt:           0.95,
		RelativeThreshold: true,
		MaxTrials:         1_000_000,
		BatchSize:         1000,
		InitialWorkLoad:   1.0,
		Voltage:           1.0,
		Variant:           "redux",
		Seed:              1,
	}
}

// Validate rejects degenerate configurations.
//
// Outputs:
//
//	error - Wraps ErrInvalidConfig naming the first problem found
func (c Config) Validate() error {
	geom, err := grid.NewGeometry(c.Rows, c.Cols)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	size := geom.Size()

	switch {
	case c.MinCores < 1:
		return invalid("min_cores must be at least 1, got %d", c.MinCores)
	case c.MinCores > size:
		return invalid("min_cores %d exceeds the %d cores of a %dx%d grid", c.MinCores, size, c.Rows, c.Cols)
	case c.MaxCores < 0:
		return invalid("max_cores must not be negative, got %d", c.MaxCores)
	case c.MaxCores > size:
		return invalid("max_cores %d exceeds the %d cores of a %dx%d grid", c.MaxCores, size, c.Rows, c.Cols)
	case c.BatchSize < 1:
		return invalid("batch_size must be at least 1, got %d", c.BatchSize)
	case !(c.InitialWorkLoad > 0):
		return invalid("initial_work_load must be positive, got %g", c.InitialWorkLoad)
	case !(c.Voltage > 0):
		return invalid("voltage must be positive, got %g", c.Voltage)
	case c.Workers < 0:
		return invalid("workers must not be negative, got %d", c.Workers)
	case c.Shards < 0:
		return invalid("shards must not be negative, got %d", c.Shards)
	}

	if c.UseNumOfTests {
		if c.NumOfTests < 1 {
			return invalid("num_of_tests must be at least 1, got %d", c.NumOfTests)
		}
	} else {
		switch {
		case !(c.Threshold > 0):
			return invalid("threshold must be positive in confidence mode, got %g", c.Threshold)
		case !(c.ConfInt > 0 && c.ConfInt < 1):
			return invalid("conf_int must be in (0,1), got %g", c.ConfInt)
		case c.MaxTrials < 0:
			return invalid("max_trials must not be negative, got %d", c.MaxTrials)
		}
	}

	if _, err := LookupVariant(c.Variant); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
