// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for user-provided
// identifiers.
//
// Run IDs typed on the command line become BadgerDB key prefixes. Validating
// them first keeps stray separators out of key lookups and turns typos into
// a clear error instead of a silent "not found".
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidRunID is returned for a string that cannot be a run ID prefix.
var ErrInvalidRunID = errors.New("invalid run ID")

// runIDPattern matches a UUID or any prefix of one.
// Allows: lowercase hex digits and hyphens, starting with a hex digit
// Max length: 36 characters (a full UUID)
var runIDPattern = regexp.MustCompile(`^[0-9a-f][0-9a-f-]{0,35}$`)

// ValidateRunID validates a run ID or run ID prefix.
//
// Valid IDs:
//   - 1-36 characters
//   - Lowercase hex digits 0-9, a-f
//   - Hyphens (-), but not as the first character
//
// Example:
//
//	if err := validation.ValidateRunID(id); err != nil {
//	    return nil, err
//	}
//	// Safe to use as a key prefix
func ValidateRunID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: cannot be empty", ErrInvalidRunID)
	}
	if !runIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q (must be 1-36 hex digits or hyphens)", ErrInvalidRunID, id)
	}
	return nil
}

// SanitizeRunID normalizes and validates a run ID.
// Returns the lowercase ID if valid, or an error if invalid.
func SanitizeRunID(id string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(id))
	if err := ValidateRunID(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
