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
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/corelife/cmd/corelife/config"
	"github.com/AleutianAI/corelife/pkg/ux"
	"github.com/AleutianAI/corelife/pkg/validation"
	"github.com/AleutianAI/corelife/services/reliability/history"
	"github.com/AleutianAI/corelife/services/reliability/montecarlo"
)

// -----------------------------------------------------------------------------
// Test harness
// -----------------------------------------------------------------------------

// resetFlags restores every flag of the command tree to its default so
// package-level flag variables do not leak between tests.
func resetFlags(t *testing.T) {
	t.Helper()
	var walk func(*cobra.Command)
	walk = func(cmd *cobra.Command) {
		reset := func(f *pflag.Flag) {
			require.NoError(t, f.Value.Set(f.DefValue))
			f.Changed = false
		}
		cmd.Flags().VisitAll(reset)
		cmd.PersistentFlags().VisitAll(reset)
		for _, sub := range cmd.Commands() {
			walk(sub)
		}
	}
	walk(rootCmd)
}

// execute runs the CLI with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(t)
	t.Setenv(ux.PersonalityEnv, "")

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

// writeTestConfig writes a small, quiet config with history in a temp dir
// and returns its path.
func writeTestConfig(t *testing.T, mutate func(*config.CorelifeConfig)) string {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Grid = config.GridConfig{Rows: 4, Cols: 4, MinCores: 8}
	cfg.Simulation.NumOfTests = 40
	cfg.Simulation.BatchSize = 10
	cfg.Simulation.Workers = 2
	cfg.Logging.Level = "error"
	cfg.Storage.Path = filepath.Join(dir, "history")
	cfg.Storage.GCInterval = 0
	if mutate != nil {
		mutate(&cfg)
	}

	path := filepath.Join(dir, "corelife.yaml")
	require.NoError(t, config.Save(path, cfg))
	return path
}

func decodeSummary(t *testing.T, out string) *history.RunSummary {
	t.Helper()
	var s history.RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &s), out)
	return &s
}

// -----------------------------------------------------------------------------
// run
// -----------------------------------------------------------------------------

func TestRun_FlagsOverrideConfig(t *testing.T) {
	path := writeTestConfig(t, nil)

	out, _, err := execute(t, "run", "--config", path, "--json",
		"--rows", "3", "--cols", "5", "--min-cores", "4", "--tests", "25", "--seed", "7", "--variant", "struct")
	require.NoError(t, err)

	s := decodeSummary(t, out)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 25, s.Trials)
	assert.Equal(t, 3, s.Config.Rows)
	assert.Equal(t, 5, s.Config.Cols)
	assert.Equal(t, 4, s.Config.MinCores)
	assert.Equal(t, uint64(7), s.Config.Seed)
	assert.Equal(t, "struct", s.Variant)
	assert.Equal(t, montecarlo.StopCompleted, s.StopReason)
	assert.Greater(t, s.Mean, 0.0)
	require.NotNil(t, s.HalfWidth)
}

func TestRun_SavesHistory(t *testing.T) {
	path := writeTestConfig(t, nil)

	out, _, err := execute(t, "run", "--config", path, "--json")
	require.NoError(t, err)
	saved := decodeSummary(t, out)

	out, _, err = execute(t, "history", "list", "--config", path, "--json")
	require.NoError(t, err)
	var runs []*history.RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, saved.ID, runs[0].ID)
	assert.Equal(t, saved.SumTTF, runs[0].SumTTF)

	out, _, err = execute(t, "history", "show", saved.ShortID(), "--config", path, "--json")
	require.NoError(t, err)
	shown := decodeSummary(t, out)
	assert.Equal(t, saved.ID, shown.ID)
	assert.Equal(t, saved.Trials, shown.Trials)
}

func TestRun_NoHistory(t *testing.T) {
	path := writeTestConfig(t, nil)

	out, _, err := execute(t, "run", "--config", path, "--no-history")
	require.NoError(t, err)
	assert.Contains(t, out, "trials=40")
	assert.Contains(t, out, "stop_reason=completed")
	assert.NotContains(t, out, "OK: Saved run")

	out, _, err = execute(t, "history", "list", "--config", path, "--json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestRun_MachineOutputReportsSave(t *testing.T) {
	path := writeTestConfig(t, nil)

	out, _, err := execute(t, "run", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "sum_ttf=")
	assert.Contains(t, out, "sum_ttf_x2=")
	assert.Contains(t, out, "OK: Saved run")
}

func TestRun_ConfidenceMode(t *testing.T) {
	path := writeTestConfig(t, nil)

	out, _, err := execute(t, "run", "--config", path, "--json",
		"--confidence", "--threshold", "0.2", "--batch-size", "50", "--max-trials", "100000")
	require.NoError(t, err)

	s := decodeSummary(t, out)
	assert.False(t, s.Config.UseNumOfTests)
	assert.Equal(t, montecarlo.StopConverged, s.StopReason)
	require.NotNil(t, s.HalfWidth)
	assert.LessOrEqual(t, *s.HalfWidth/s.Mean, 0.2)
}

func TestRun_InvalidOverride(t *testing.T) {
	path := writeTestConfig(t, nil)

	_, _, err := execute(t, "run", "--config", path, "--min-cores", "1000")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRun_MissingConfig(t *testing.T) {
	_, _, err := execute(t, "run", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_BadLogLevel(t *testing.T) {
	path := writeTestConfig(t, nil)

	_, _, err := execute(t, "run", "--config", path, "--log-level", "chatty")
	assert.Error(t, err)
}

func TestRun_ExportsToInflux(t *testing.T) {
	var (
		mu   sync.Mutex
		body string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		body = string(data)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	path := writeTestConfig(t, func(c *config.CorelifeConfig) { c.Influx.URL = srv.URL })
	out, _, err := execute(t, "run", "--config", path, "--json", "--no-history")
	require.NoError(t, err)
	s := decodeSummary(t, out)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, strings.HasPrefix(body, "corelife_runs,"), body)
	assert.Contains(t, body, "run_id="+s.ID)
}

func TestRun_ExportFailureStillPrintsResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"unauthorized","message":"bad token"}`))
	}))
	defer srv.Close()

	path := writeTestConfig(t, func(c *config.CorelifeConfig) { c.Influx.URL = srv.URL })
	out, _, err := execute(t, "run", "--config", path, "--json")
	require.Error(t, err)

	s := decodeSummary(t, out)
	assert.Equal(t, 40, s.Trials)

	out, _, err = execute(t, "history", "list", "--config", path, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, s.ID, "the run is stored even though export failed")
}

func TestApplyRunFlags_OnlyChangedFlags(t *testing.T) {
	resetFlags(t)
	require.NoError(t, runCmd.Flags().Set("rows", "3"))
	require.NoError(t, runCmd.Flags().Set("confidence", "true"))

	cfg := config.DefaultConfig()
	applyRunFlags(runCmd, &cfg)

	want := config.DefaultConfig()
	want.Grid.Rows = 3
	want.Simulation.UseNumOfTests = false
	assert.Equal(t, want, cfg)
}

func TestApplyRunFlags_TestsSelectFixedMode(t *testing.T) {
	resetFlags(t)
	require.NoError(t, runCmd.Flags().Set("tests", "12"))

	cfg := config.DefaultConfig()
	cfg.Simulation.UseNumOfTests = false
	applyRunFlags(runCmd, &cfg)
	assert.True(t, cfg.Simulation.UseNumOfTests)
	assert.Equal(t, 12, cfg.Simulation.NumOfTests)
}

// -----------------------------------------------------------------------------
// history
// -----------------------------------------------------------------------------

func TestHistoryShow_NotFound(t *testing.T) {
	path := writeTestConfig(t, nil)

	_, _, err := execute(t, "history", "show", "deadbeef", "--config", path)
	assert.ErrorIs(t, err, history.ErrNotFound)
}

func TestHistoryList_Empty(t *testing.T) {
	path := writeTestConfig(t, nil)

	out, _, err := execute(t, "history", "list", "--config", path, "--personality", "minimal")
	require.NoError(t, err)
	assert.Equal(t, "No runs stored yet.\n", out)
}

func TestHistoryList_Limit(t *testing.T) {
	path := writeTestConfig(t, nil)
	for i := 0; i < 3; i++ {
		_, _, err := execute(t, "run", "--config", path, "--tests", "5")
		require.NoError(t, err)
	}

	out, _, err := execute(t, "history", "list", "--config", path, "--limit", "2")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 2)
	for _, line := range lines {
		assert.Len(t, strings.Split(line, "\t"), 6, line)
	}
}

func TestHistoryShow_InvalidID(t *testing.T) {
	path := writeTestConfig(t, nil)

	_, _, err := execute(t, "history", "show", "run/../x", "--config", path)
	assert.ErrorIs(t, err, validation.ErrInvalidRunID)
}

// -----------------------------------------------------------------------------
// config and variants
// -----------------------------------------------------------------------------

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "corelife.yaml")

	out, _, err := execute(t, "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "OK: Wrote "+path)

	loaded, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), loaded)

	_, _, err = execute(t, "config", "init", "--config", path)
	assert.ErrorContains(t, err, "already exists")

	_, _, err = execute(t, "config", "init", "--config", path, "--force")
	assert.NoError(t, err)
}

func TestConfigShow(t *testing.T) {
	path := writeTestConfig(t, nil)

	out, _, err := execute(t, "config", "show", "--config", path)
	require.NoError(t, err)

	cfg, err := config.Parse([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Grid.Rows)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestVariants(t *testing.T) {
	out, _, err := execute(t, "variants")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, len(montecarlo.Variants()))
	assert.True(t, strings.HasPrefix(lines[0], "dynamic\taos\tper-trial\ttrue"), lines[0])

	out, _, err = execute(t, "variants", "--json")
	require.NoError(t, err)
	var infos []variantInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	names := make([]string, 0, len(infos))
	for _, v := range infos {
		names = append(names, v.Name)
	}
	assert.Equal(t, []string{"dynamic", "grid-linearized", "redux", "struct"}, names)
}

// -----------------------------------------------------------------------------
// rendering
// -----------------------------------------------------------------------------

func TestRenderSummary_NoHalfWidth(t *testing.T) {
	var out bytes.Buffer
	p := ux.NewPrinter(&out, nil, ux.PersonalityMinimal)
	renderSummary(p, &history.RunSummary{
		ID:         "abc",
		Variant:    "redux",
		Trials:     1,
		StopReason: montecarlo.StopCancelled,
		Error:      "run cancelled after 1 trials: context canceled",
	})

	got := out.String()
	assert.Contains(t, got, "Half width   n/a")
	assert.Contains(t, got, "⚠ run cancelled")
}

func TestFormatHalfWidth(t *testing.T) {
	hw := 0.5
	s := &history.RunSummary{Mean: 10, HalfWidth: &hw}
	assert.Equal(t, "0.5 (5.00% of mean)", formatHalfWidth(s, false))
	assert.Equal(t, "0.5", formatHalfWidth(s, true))

	s.Mean = 0
	assert.Equal(t, "0.5", formatHalfWidth(s, false))
}
