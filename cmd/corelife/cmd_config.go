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
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/corelife/cmd/corelife/config"
	"github.com/AleutianAI/corelife/pkg/logging"
)

// =============================================================================
// CONFIG COMMANDS
// =============================================================================

// initConfig is the handler for "corelife config init". It refuses to
// overwrite an existing file unless --force is given.
func initConfig(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		defaultPath, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = defaultPath
	}
	path = logging.ExpandPath(path)

	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check the config file: %w", err)
	}

	if err := config.Save(path, config.DefaultConfig()); err != nil {
		return err
	}
	newPrinter(cmd).Success(fmt.Sprintf("Wrote %s", path))
	return nil
}

// showConfig is the handler for "corelife config show". It prints the
// config as loaded, with defaults filled in.
func showConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if jsonOutput {
		return outputJSON(cmd.OutOrStdout(), cfg)
	}
	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
