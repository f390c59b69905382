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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/corelife/pkg/logging"
	"github.com/AleutianAI/corelife/services/reliability/montecarlo"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, montecarlo.DefaultConfig(), cfg.ToSimulation())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CorelifeConfig)
	}{
		{"zero rows", func(c *CorelifeConfig) { c.Grid.Rows = 0 }},
		{"min cores above grid", func(c *CorelifeConfig) { c.Grid.MinCores = 65 }},
		{"max cores above grid", func(c *CorelifeConfig) { c.Grid.MaxCores = 100 }},
		{"fixed mode without trials", func(c *CorelifeConfig) { c.Simulation.NumOfTests = 0 }},
		{"confidence without threshold", func(c *CorelifeConfig) {
			c.Simulation.UseNumOfTests = false
			c.Simulation.Threshold = 0
		}},
		{"conf_int of one", func(c *CorelifeConfig) { c.Simulation.ConfInt = 1 }},
		{"zero batch", func(c *CorelifeConfig) { c.Simulation.BatchSize = 0 }},
		{"unknown variant", func(c *CorelifeConfig) { c.Simulation.Variant = "gpu" }},
		{"zero voltage", func(c *CorelifeConfig) { c.Model.Voltage = 0 }},
		{"zero weibull scale", func(c *CorelifeConfig) { c.Model.Weibull.Alpha0 = 0 }},
		{"zero ambient", func(c *CorelifeConfig) { c.Model.Thermal.Ambient = 0 }},
		{"bad log level", func(c *CorelifeConfig) { c.Logging.Level = "loud" }},
		{"bad trace exporter", func(c *CorelifeConfig) { c.Telemetry.TraceExporter = "zipkin" }},
		{"bad port", func(c *CorelifeConfig) { c.Telemetry.PrometheusPort = 70000 }},
		{"influx url without bucket", func(c *CorelifeConfig) {
			c.Influx.URL = "http://localhost:8086"
			c.Influx.Bucket = ""
		}},
		{"influx url malformed", func(c *CorelifeConfig) { c.Influx.URL = "not a url" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestToSimulation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Grid = GridConfig{Rows: 3, Cols: 5, MinCores: 4, MaxCores: 6}
	cfg.Simulation.Variant = "dynamic"
	cfg.Simulation.Seed = 42
	cfg.Model.Voltage = 1.2

	sim := cfg.ToSimulation()
	assert.Equal(t, 3, sim.Rows)
	assert.Equal(t, 5, sim.Cols)
	assert.Equal(t, 4, sim.MinCores)
	assert.Equal(t, 6, sim.MaxCores)
	assert.Equal(t, "dynamic", sim.Variant)
	assert.Equal(t, uint64(42), sim.Seed)
	assert.Equal(t, 1.2, sim.Voltage)
}

func TestLoggerConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging = LoggingConfig{Level: "debug", JSON: true, Dir: "/tmp/logs"}

	lc := cfg.LoggerConfig()
	assert.Equal(t, logging.LevelDebug, lc.Level)
	assert.Equal(t, logging.FormatJSON, lc.Format)
	assert.Equal(t, "/tmp/logs", lc.Dir)
	assert.Equal(t, "corelife", lc.Service)
}

// -----------------------------------------------------------------------------
// Loader
// -----------------------------------------------------------------------------

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "corelife.yaml")
	cfg := DefaultConfig()
	cfg.Grid.Rows = 6
	cfg.Simulation.Variant = "struct"
	cfg.Influx.URL = "http://localhost:8086"

	require.NoError(t, Save(path, cfg))
	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestParse_PartialFileKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
grid:
  rows: 4
  cols: 4
  min_cores: 8
model:
  beta: 3
  ambient_temperature: 300
`))
	require.NoError(t, err)

	want := DefaultConfig()
	assert.Equal(t, 4, cfg.Grid.Rows)
	assert.Equal(t, 8, cfg.Grid.MinCores)
	assert.Equal(t, 3.0, cfg.Model.Weibull.Beta)
	assert.Equal(t, want.Model.Weibull.Alpha0, cfg.Model.Weibull.Alpha0)
	assert.Equal(t, 300.0, cfg.Model.Thermal.Ambient)
	assert.Equal(t, want.Simulation, cfg.Simulation)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestParse_Errors(t *testing.T) {
	t.Run("unknown key", func(t *testing.T) {
		_, err := Parse([]byte("grid:\n  rowz: 4\n"))
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := Parse([]byte("grid:\n  min_cores: 1000\n"))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Parse([]byte("grid: [1, 2"))
		assert.Error(t, err)
	})
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadOrCreate_FirstRun(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := LoadOrCreate("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	path := filepath.Join(home, ".corelife", "corelife.yaml")
	_, err = os.Stat(path)
	assert.NoError(t, err, "default config written on first run")

	again, err := LoadOrCreate("")
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadOrCreate_ExplicitPathMustExist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	_, err := LoadOrCreate(path)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist, "explicit paths are never created")
}
