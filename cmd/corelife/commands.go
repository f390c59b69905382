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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath       string
	logLevel         string
	jsonOutput       bool
	personalityLevel string // Output style (full/minimal/machine)

	// run overrides; applied only when the flag was set
	runRows       int
	runCols       int
	runMinCores   int
	runMaxCores   int
	runTests      int
	runConfidence bool
	runThreshold  float64
	runConfInt    float64
	runMaxTrials  int
	runBatchSize  int
	runVariant    string
	runWorkers    int
	runSeed       uint64
	runNoHistory  bool

	historyLimit int
	configForce  bool

	rootCmd = &cobra.Command{
		Use:   "corelife",
		Short: "Monte Carlo lifetime estimation for many-core chips",
		Long: `corelife simulates the wear-out of a grid of cores until too few
survive, and estimates the mean time to failure over many trials.`,
		SilenceUsage: true,
	}

	// --- Simulation ---
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run a Monte Carlo lifetime simulation",
		Long: `Runs trials until the configured stopping rule fires: a fixed number
of trials, or until the confidence interval of the mean TTF is narrow
enough. Flags override the config file for this run only.`,
		Args: cobra.NoArgs,
		RunE: runSimulation, // Defined in cmd_run.go
	}

	variantsCmd = &cobra.Command{
		Use:   "variants",
		Short: "List the execution variants",
		Args:  cobra.NoArgs,
		RunE:  listVariants, // Defined in cmd_variants.go
	}

	// --- History ---
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Inspect stored run summaries",
	}
	historyListCmd = &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE:  listHistory, // Defined in cmd_history.go
	}
	historyShowCmd = &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run by ID or unique ID prefix",
		Args:  cobra.ExactArgs(1),
		RunE:  showHistory,
	}

	// --- Config ---
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage the corelife config file",
	}
	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		Args:  cobra.NoArgs,
		RunE:  initConfig, // Defined in cmd_config.go
	}
	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the effective config",
		Args:  cobra.NoArgs,
		RunE:  showConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file (default ~/.corelife/corelife.yaml, created on first run)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override logging.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().StringVar(&personalityLevel, "personality", "",
		"Output style: full, minimal, or machine (default: full on a terminal, machine otherwise)")

	rootCmd.AddCommand(runCmd)
	runCmd.Flags().IntVar(&runRows, "rows", 0, "Grid rows")
	runCmd.Flags().IntVar(&runCols, "cols", 0, "Grid columns")
	runCmd.Flags().IntVar(&runMinCores, "min-cores", 0, "A trial ends when fewer cores than this survive")
	runCmd.Flags().IntVar(&runMaxCores, "max-cores", 0, "A trial also ends after this many deaths (0 disables)")
	runCmd.Flags().IntVar(&runTests, "tests", 0, "Run exactly this many trials")
	runCmd.Flags().BoolVar(&runConfidence, "confidence", false, "Stop on the confidence interval instead of a trial count")
	runCmd.Flags().Float64Var(&runThreshold, "threshold", 0, "Confidence mode stops once the half-width is at most this")
	runCmd.Flags().Float64Var(&runConfInt, "conf-int", 0, "Confidence level in (0,1)")
	runCmd.Flags().IntVar(&runMaxTrials, "max-trials", 0, "Confidence mode gives up after this many trials (0 disables)")
	runCmd.Flags().IntVar(&runBatchSize, "batch-size", 0, "Trials per batch")
	runCmd.Flags().StringVar(&runVariant, "variant", "", "Execution variant (see 'corelife variants')")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "Concurrent trials (0 means GOMAXPROCS)")
	runCmd.Flags().Uint64Var(&runSeed, "seed", 0, "Base random seed")
	runCmd.Flags().BoolVar(&runNoHistory, "no-history", false, "Do not store the run summary")

	rootCmd.AddCommand(variantsCmd)

	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs (0 lists all)")

	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
}
