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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/corelife/pkg/validation"
	"github.com/AleutianAI/corelife/services/reliability/history"
	"github.com/AleutianAI/corelife/services/reliability/storage/badger"
)

// =============================================================================
// HISTORY COMMANDS
// =============================================================================

// openHistory loads the config and opens the history store. The caller
// must call the returned close func.
func openHistory(cmd *cobra.Command) (*history.Store, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cmd, &cfg)
	if err != nil {
		return nil, nil, err
	}

	storage := cfg.Storage
	storage.Logger = logger
	db, err := badger.Open(storage)
	if err != nil {
		logger.Close()
		return nil, nil, fmt.Errorf("failed to open run history: %w", err)
	}
	closeFn := func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close run history", "error", err)
		}
		logger.Close()
	}
	return history.NewStore(db, logger), closeFn, nil
}

// listHistory is the handler for "corelife history list".
func listHistory(cmd *cobra.Command, args []string) error {
	store, closeFn, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	runs, err := store.List(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if jsonOutput {
		if runs == nil {
			runs = []*history.RunSummary{}
		}
		return outputJSON(cmd.OutOrStdout(), runs)
	}
	renderSummaryList(cmd.OutOrStdout(), newPrinter(cmd), runs)
	return nil
}

// showHistory is the handler for "corelife history show <run-id>". The ID
// may be any unique prefix, such as the eight characters list prints.
func showHistory(cmd *cobra.Command, args []string) error {
	id, err := validation.SanitizeRunID(args[0])
	if err != nil {
		return err
	}
	store, closeFn, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	s, err := store.Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	if jsonOutput {
		return outputJSON(cmd.OutOrStdout(), s)
	}
	renderSummary(newPrinter(cmd), s)
	return nil
}
