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
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/corelife/cmd/corelife/config"
	"github.com/AleutianAI/corelife/pkg/logging"
	"github.com/AleutianAI/corelife/pkg/ux"
	"github.com/AleutianAI/corelife/services/reliability/export"
	"github.com/AleutianAI/corelife/services/reliability/history"
	"github.com/AleutianAI/corelife/services/reliability/montecarlo"
	"github.com/AleutianAI/corelife/services/reliability/storage/badger"
	"github.com/AleutianAI/corelife/services/reliability/telemetry"
)

// shutdownTimeout bounds telemetry flushes and the metrics server drain.
const shutdownTimeout = 5 * time.Second

var cliTracer = otel.Tracer("corelife.cli")

// =============================================================================
// RUN COMMAND
// =============================================================================

// runSimulation is the handler for "corelife run".
//
// Description:
//
//	Loads the config, applies flag overrides, runs the driver and prints
//	the result. The summary is then stored in the history database and,
//	when influx.url is set, exported to InfluxDB. Both happen even after
//	Ctrl-C so a cancelled run still leaves a record.
//
// Outputs:
//
//	error - The run, storage and export errors joined. The result is
//	printed in every case where the driver ran.
func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cmd, &cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	if port := cfg.Telemetry.PrometheusPort; port > 0 {
		srv := telemetry.NewMetricsServer(port, logger)
		if err := srv.Start(); err != nil {
			logger.Warn("metrics server disabled", "error", err)
		} else {
			defer func() {
				sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
				defer cancel()
				_ = srv.Shutdown(sctx)
			}()
		}
	}

	sim := cfg.ToSimulation()
	ctx, span := cliTracer.Start(ctx, "corelife.run")
	defer span.End()
	logger = telemetry.LoggerWithTrace(ctx, logger)

	printer := newPrinter(cmd)
	driver, err := montecarlo.NewDriver(sim,
		montecarlo.WithModel(cfg.Model.Weibull),
		montecarlo.WithThermal(cfg.Model.Thermal),
		montecarlo.WithLogger(logger),
		montecarlo.WithProgress(progressReporter(cmd, printer, &sim)),
	)
	if err != nil {
		return err
	}

	started := time.Now()
	res, runErr := driver.Run(ctx)
	clearProgress(cmd, printer)
	summary := history.NewSummary(sim, res, started, runErr)
	span.SetAttributes(
		attribute.String("corelife.run_id", summary.ID),
		attribute.String("corelife.stop_reason", string(summary.StopReason)),
	)

	if jsonOutput {
		if err := outputJSON(cmd.OutOrStdout(), summary); err != nil {
			return err
		}
	} else {
		renderSummary(printer, summary)
	}

	// Persistence outlives a cancelled run context.
	persistCtx := context.WithoutCancel(ctx)
	var storeErr, exportErr error
	if !runNoHistory {
		storeErr = saveSummary(persistCtx, cfg.Storage, logger, summary)
		if storeErr == nil && !jsonOutput {
			printer.Success(fmt.Sprintf("Saved run %s", summary.ShortID()))
		}
	}
	if cfg.Influx.Enabled() {
		exportErr = exportSummary(persistCtx, cfg.Influx, summary)
		if exportErr != nil {
			logger.Warn("influx export failed", "run_id", summary.ID, "error", exportErr)
		}
	}

	err = errors.Join(runErr, storeErr, exportErr)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// applyRunFlags copies explicitly set run flags over cfg.
func applyRunFlags(cmd *cobra.Command, cfg *config.CorelifeConfig) {
	flags := cmd.Flags()
	if flags.Changed("rows") {
		cfg.Grid.Rows = runRows
	}
	if flags.Changed("cols") {
		cfg.Grid.Cols = runCols
	}
	if flags.Changed("min-cores") {
		cfg.Grid.MinCores = runMinCores
	}
	if flags.Changed("max-cores") {
		cfg.Grid.MaxCores = runMaxCores
	}
	if flags.Changed("tests") {
		cfg.Simulation.NumOfTests = runTests
		cfg.Simulation.UseNumOfTests = true
	}
	if flags.Changed("confidence") {
		cfg.Simulation.UseNumOfTests = !runConfidence
	}
	if flags.Changed("threshold") {
		cfg.Simulation.Threshold = runThreshold
	}
	if flags.Changed("conf-int") {
		cfg.Simulation.ConfInt = runConfInt
	}
	if flags.Changed("max-trials") {
		cfg.Simulation.MaxTrials = runMaxTrials
	}
	if flags.Changed("batch-size") {
		cfg.Simulation.BatchSize = runBatchSize
	}
	if flags.Changed("variant") {
		cfg.Simulation.Variant = runVariant
	}
	if flags.Changed("workers") {
		cfg.Simulation.Workers = runWorkers
	}
	if flags.Changed("seed") {
		cfg.Simulation.Seed = runSeed
	}
}

// progressReporter redraws a progress line on stderr after every batch.
// Nothing is drawn unless stderr is a terminal.
func progressReporter(cmd *cobra.Command, p *ux.Printer, sim *montecarlo.Config) func(montecarlo.Progress) {
	w := cmd.ErrOrStderr()
	if !ux.IsTerminal(w) || p.Level() == ux.PersonalityMachine {
		return nil
	}
	return func(pr montecarlo.Progress) {
		if sim.UseNumOfTests {
			fmt.Fprintf(w, "\r%s  %d trials", p.ProgressBar(pr.Trials, sim.NumOfTests, 30), pr.Trials)
			return
		}
		fmt.Fprintf(w, "\rbatch %d  %d trials  precision %.4g (target %.4g)",
			pr.Batch, pr.Trials, pr.Precision, sim.Threshold)
	}
}

// clearProgress erases the progress line drawn by progressReporter.
func clearProgress(cmd *cobra.Command, p *ux.Printer) {
	w := cmd.ErrOrStderr()
	if ux.IsTerminal(w) && p.Level() != ux.PersonalityMachine {
		fmt.Fprint(w, "\r\033[K")
	}
}

// saveSummary opens the history database just long enough to store s.
func saveSummary(ctx context.Context, storage badger.Config, logger *logging.Logger, s *history.RunSummary) error {
	storage.Logger = logger
	db, err := badger.Open(storage)
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close run history", "error", err)
		}
	}()
	return history.NewStore(db, logger).Save(ctx, s)
}

func exportSummary(ctx context.Context, cfg export.InfluxConfig, s *history.RunSummary) error {
	sink, err := export.NewInfluxSink(cfg)
	if err != nil {
		return err
	}
	defer sink.Close()
	return sink.Write(ctx, s)
}
