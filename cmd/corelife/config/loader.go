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
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/corelife/pkg/logging"
)

// DefaultPath returns ~/.corelife/corelife.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".corelife", "corelife.yaml"), nil
}

// LoadOrCreate loads the CLI config.
//
// Description:
//
//	An empty path means DefaultPath. When the default file does not exist
//	it is created from DefaultConfig first. An explicit path must exist.
//
// Outputs:
//
//	CorelifeConfig - The validated config.
//	error - Read, parse or validation failure.
func LoadOrCreate(path string) (CorelifeConfig, error) {
	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return CorelifeConfig{}, err
		}
		path = defaultPath
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "First run detected, creating the config at %s\n", path)
			if err := Save(path, DefaultConfig()); err != nil {
				return CorelifeConfig{}, err
			}
		}
	}
	return LoadFile(path)
}

// LoadFile reads and validates a config file.
// Keys missing from the file keep their DefaultConfig values; unknown keys
// are rejected.
func LoadFile(path string) (CorelifeConfig, error) {
	data, err := os.ReadFile(logging.ExpandPath(path))
	if err != nil {
		return CorelifeConfig{}, fmt.Errorf("failed to read the config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over DefaultConfig and validates the result.
func Parse(data []byte) (CorelifeConfig, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return CorelifeConfig{}, fmt.Errorf("failed to parse the config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return CorelifeConfig{}, err
	}
	return cfg, nil
}

// Save writes cfg as YAML, creating the parent directory.
func Save(path string, cfg CorelifeConfig) error {
	path = logging.ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Marshal renders cfg as YAML.
func Marshal(cfg CorelifeConfig) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to marshal the config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
