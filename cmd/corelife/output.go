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
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/corelife/cmd/corelife/config"
	"github.com/AleutianAI/corelife/pkg/logging"
	"github.com/AleutianAI/corelife/pkg/ux"
	"github.com/AleutianAI/corelife/services/reliability/history"
)

// Exit codes for CLI commands.
const (
	CLIExitSuccess = 0 // Operation completed successfully
	CLIExitError   = 2 // Operation failed
)

// outputJSON writes data as indented JSON.
func outputJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// loadConfig loads the config named by --config, or the default one.
func loadConfig() (config.CorelifeConfig, error) {
	return config.LoadOrCreate(configPath)
}

// newLogger builds the command logger on the command's stderr, honouring
// --log-level.
func newLogger(cmd *cobra.Command, cfg *config.CorelifeConfig) (*logging.Logger, error) {
	logCfg := cfg.LoggerConfig()
	logCfg.Output = cmd.ErrOrStderr()
	if logLevel != "" {
		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return nil, err
		}
		logCfg.Level = level
	}
	return logging.New(logCfg), nil
}

// newPrinter returns a printer for the command's stdout. --personality wins
// over terminal detection.
func newPrinter(cmd *cobra.Command) *ux.Printer {
	level := ux.DetectPersonality(cmd.OutOrStdout())
	if personalityLevel != "" {
		level = ux.ParsePersonalityLevel(personalityLevel)
	}
	return ux.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), level)
}

// =============================================================================
// RUN SUMMARY RENDERING
// =============================================================================

// renderSummary prints one run summary.
func renderSummary(p *ux.Printer, s *history.RunSummary) {
	fields := []ux.Field{
		{Key: "Run", Value: s.ID},
		{Key: "Variant", Value: s.Variant},
		{Key: "Grid", Value: fmt.Sprintf("%dx%d", s.Config.Rows, s.Config.Cols)},
		{Key: "Min cores", Value: fmt.Sprintf("%d", s.Config.MinCores)},
		{Key: "Stop reason", Value: string(s.StopReason)},
		{Key: "Trials", Value: fmt.Sprintf("%d", s.Trials)},
		{Key: "Batches", Value: fmt.Sprintf("%d", s.Batches)},
		{Key: "Sum TTF", Value: formatFloat(s.SumTTF)},
		{Key: "Sum TTF x2", Value: formatFloat(s.SumTTFx2)},
		{Key: "Mean TTF", Value: formatFloat(s.Mean)},
		{Key: "Std dev", Value: formatFloat(s.StdDev)},
		{Key: "Half width", Value: formatHalfWidth(s, p.Level() == ux.PersonalityMachine)},
		{Key: "Duration", Value: s.Duration.Round(time.Millisecond).String()},
	}
	p.Fields("Simulation result", fields)
	if s.Error != "" {
		p.Warning(s.Error)
	}
}

// renderSummaryList prints one line per run.
func renderSummaryList(w io.Writer, p *ux.Printer, runs []*history.RunSummary) {
	if len(runs) == 0 {
		if p.Level() != ux.PersonalityMachine {
			fmt.Fprintln(w, "No runs stored yet.")
		}
		return
	}

	if p.Level() != ux.PersonalityMachine {
		header := fmt.Sprintf("%-8s  %-20s  %-15s  %-11s  %10s  %14s", "ID", "STARTED", "VARIANT", "STOP", "TRIALS", "MEAN TTF")
		if p.Level() == ux.PersonalityFull {
			header = p.Styles().Bold.Render(header)
		}
		fmt.Fprintln(w, header)
	}
	for _, s := range runs {
		if p.Level() == ux.PersonalityMachine {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
				s.ID, s.StartedAt.Format(time.RFC3339), s.Variant, s.StopReason, s.Trials, formatFloat(s.Mean))
			continue
		}
		fmt.Fprintf(w, "%-8s  %-20s  %-15s  %-11s  %10d  %14s\n",
			s.ShortID(), s.StartedAt.Local().Format("2006-01-02 15:04:05"), s.Variant, s.StopReason, s.Trials, formatFloat(s.Mean))
	}
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.6g", v)
}

// formatHalfWidth adds the half-width relative to the mean unless plain is
// set.
func formatHalfWidth(s *history.RunSummary, plain bool) string {
	if s.HalfWidth == nil {
		return "n/a"
	}
	hw := *s.HalfWidth
	if plain || s.Mean == 0 {
		return formatFloat(hw)
	}
	return fmt.Sprintf("%s (%.2f%% of mean)", formatFloat(hw), 100*hw/math.Abs(s.Mean))
}
