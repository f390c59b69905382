// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// PersonalityLevel defines the verbosity and richness of CLI output
type PersonalityLevel string

const (
	// PersonalityFull enables colors, icons and boxes
	PersonalityFull PersonalityLevel = "full"

	// PersonalityMinimal uses icons and plain text only
	PersonalityMinimal PersonalityLevel = "minimal"

	// PersonalityMachine outputs plain key=value text suitable for scripting
	PersonalityMachine PersonalityLevel = "machine"
)

// PersonalityEnv overrides terminal detection when set.
const PersonalityEnv = "CORELIFE_PERSONALITY"

// ParsePersonalityLevel converts a string to PersonalityLevel
func ParsePersonalityLevel(s string) PersonalityLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full", "f", "standard", "std", "s":
		return PersonalityFull
	case "minimal", "min", "m":
		return PersonalityMinimal
	case "machine", "quiet", "q":
		return PersonalityMachine
	default:
		return PersonalityFull
	}
}

// DetectPersonality picks the level for output written to w.
//
// Description:
//
//	CORELIFE_PERSONALITY wins when set. Otherwise a terminal gets the full
//	personality and anything else (pipes, files, buffers) gets machine
//	output.
func DetectPersonality(w io.Writer) PersonalityLevel {
	if env := os.Getenv(PersonalityEnv); env != "" {
		return ParsePersonalityLevel(env)
	}
	if !IsTerminal(w) {
		return PersonalityMachine
	}
	return PersonalityFull
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
