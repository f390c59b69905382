// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/corelife/pkg/logging"
	"github.com/AleutianAI/corelife/services/reliability/aging"
	"github.com/AleutianAI/corelife/services/reliability/export"
	"github.com/AleutianAI/corelife/services/reliability/montecarlo"
	"github.com/AleutianAI/corelife/services/reliability/storage/badger"
	"github.com/AleutianAI/corelife/services/reliability/telemetry"
)

// ErrInvalidConfig wraps every validation failure of a config file.
var ErrInvalidConfig = errors.New("invalid corelife config")

var validate = validator.New()

// CorelifeConfig is the on-disk configuration of the corelife CLI.
type CorelifeConfig struct {
	Grid       GridConfig          `yaml:"grid"`
	Simulation SimulationConfig    `yaml:"simulation"`
	Model      ModelConfig         `yaml:"model"`
	Logging    LoggingConfig       `yaml:"logging"`
	Telemetry  telemetry.Config    `yaml:"telemetry"`
	Storage    badger.Config       `yaml:"storage"`
	Influx     export.InfluxConfig `yaml:"influx"`
}

// GridConfig is the chip geometry and the trial end condition.
type GridConfig struct {
	Rows     int `yaml:"rows" validate:"gte=1"`
	Cols     int `yaml:"cols" validate:"gte=1"`
	MinCores int `yaml:"min_cores" validate:"gte=1"`
	MaxCores int `yaml:"max_cores" validate:"gte=0"`
}

// SimulationConfig selects the stopping rule and the execution strategy.
type SimulationConfig struct {
	NumOfTests        int     `yaml:"num_of_tests" validate:"gte=0"`
	UseNumOfTests     bool    `yaml:"use_num_of_tests"`
	Threshold         float64 `yaml:"threshold" validate:"gte=0"`
	ConfInt           float64 `yaml:"conf_int" validate:"gte=0,lt=1"`
	RelativeThreshold bool    `yaml:"relative_threshold"`
	BatchSize         int     `yaml:"batch_size" validate:"gte=1"`
	MaxTrials         int     `yaml:"max_trials" validate:"gte=0"`
	InitialWorkLoad   float64 `yaml:"initial_work_load" validate:"gt=0"`
	Variant           string  `yaml:"variant" validate:"required"`
	Workers           int     `yaml:"workers" validate:"gte=0"`
	Shards            int     `yaml:"shards" validate:"gte=0"`
	Seed              uint64  `yaml:"seed"`
}

// ModelConfig holds the aging and thermal parameters plus the supply
// voltage. The model and thermal fields sit flat in the YAML section.
type ModelConfig struct {
	Weibull aging.WeibullModel   `yaml:",inline"`
	Thermal aging.CoupledThermal `yaml:",inline"`
	Voltage float64              `yaml:"voltage" validate:"gt=0"`
}

// LoggingConfig configures pkg/logging for the CLI.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() CorelifeConfig {
	sim := montecarlo.DefaultConfig()
	storage := badger.DefaultConfig()

	return CorelifeConfig{
		Grid: GridConfig{
			Rows:     sim.Rows,
			Cols:     sim.Cols,
			MinCores: sim.MinCores,
			MaxCores: sim.MaxCores,
		},
		Simulation: SimulationConfig{
			NumOfTests:        sim.NumOfTests,
			UseNumOfTests:     sim.UseNumOfTests,
			Threshold:         sim.Threshold,
			ConfInt:           sim.ConfInt,
			RelativeThreshold: sim.RelativeThreshold,
			BatchSize:         sim.BatchSize,
			MaxTrials:         sim.MaxTrials,
			InitialWorkLoad:   sim.InitialWorkLoad,
			Variant:           sim.Variant,
			Workers:           sim.Workers,
			Shards:            sim.Shards,
			Seed:              sim.Seed,
		},
		Model: ModelConfig{
			Weibull: aging.DefaultWeibullModel(),
			Thermal: aging.DefaultCoupledThermal(),
			Voltage: sim.Voltage,
		},
		Logging: LoggingConfig{Level: "info"},
		Telemetry: telemetry.Config{
			ServiceName:    "corelife",
			ServiceVersion: "1.0.0",
			Environment:    "development",
			TraceExporter:  telemetry.ExporterNone,
			MetricExporter: telemetry.ExporterNone,
			OTLPEndpoint:   "localhost:4317",
			OTLPInsecure:   true,
			PrometheusPort: 0,
			SampleRate:     1.0,
		},
		Storage: storage,
		Influx:  export.DefaultInfluxConfig(),
	}
}

// Validate checks struct tags and then the cross-field rules of the
// simulation, model and thermal sections.
//
// Outputs:
//
//	error - Wraps ErrInvalidConfig and the first failure found.
func (c *CorelifeConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.ToSimulation().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Model.Weibull.Validate(); err != nil {
		return fmt.Errorf("%w: model: %w", ErrInvalidConfig, err)
	}
	if err := c.Model.Thermal.Validate(); err != nil {
		return fmt.Errorf("%w: thermal: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ToSimulation flattens the grid, simulation and voltage settings into a
// montecarlo.Config.
func (c *CorelifeConfig) ToSimulation() montecarlo.Config {
	return montecarlo.Config{
		Rows:              c.Grid.Rows,
		Cols:              c.Grid.Cols,
		MinCores:          c.Grid.MinCores,
		MaxCores:          c.Grid.MaxCores,
		UseNumOfTests:     c.Simulation.UseNumOfTests,
		NumOfTests:        c.Simulation.NumOfTests,
		Threshold:         c.Simulation.Threshold,
		ConfInt:           c.Simulation.ConfInt,
		RelativeThreshold: c.Simulation.RelativeThreshold,
		MaxTrials:         c.Simulation.MaxTrials,
		BatchSize:         c.Simulation.BatchSize,
		InitialWorkLoad:   c.Simulation.InitialWorkLoad,
		Voltage:           c.Model.Voltage,
		Variant:           c.Simulation.Variant,
		Workers:           c.Simulation.Workers,
		Shards:            c.Simulation.Shards,
		Seed:              c.Simulation.Seed,
	}
}

// LoggerConfig maps the logging section onto logging.Config.
func (c *CorelifeConfig) LoggerConfig() logging.Config {
	level, _ := logging.ParseLevel(c.Logging.Level)
	format := logging.FormatAuto
	if c.Logging.JSON {
		format = logging.FormatJSON
	}
	return logging.Config{
		Level:   level,
		Format:  format,
		Dir:     c.Logging.Dir,
		Service: "corelife",
	}
}
