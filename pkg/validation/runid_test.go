// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"errors"
	"testing"
)

func TestValidateRunID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		// Valid IDs
		{"full uuid", "3f2b8c1e-9d4a-4e6f-8b7c-0a1d2e3f4a5b", false},
		{"short prefix", "3f2b8c1e", false},
		{"single char", "a", false},
		{"prefix ending in hyphen", "3f2b8c1e-", false},

		// Invalid IDs
		{"empty", "", true},
		{"leading hyphen", "-3f2b", true},
		{"uppercase", "3F2B", true},
		{"not hex", "xyz", true},
		{"key separator", "run/3f2b", true},
		{"too long", "3f2b8c1e-9d4a-4e6f-8b7c-0a1d2e3f4a5b0", true},
		{"whitespace", " 3f2b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRunID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRunID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRunID) {
				t.Errorf("expected ErrInvalidRunID, got %v", err)
			}
		})
	}
}

func TestSanitizeRunID(t *testing.T) {
	got, err := SanitizeRunID("  3F2B8C1E \n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "3f2b8c1e" {
		t.Errorf("SanitizeRunID = %q, want %q", got, "3f2b8c1e")
	}

	if _, err := SanitizeRunID("run/1"); !errors.Is(err, ErrInvalidRunID) {
		t.Errorf("expected ErrInvalidRunID, got %v", err)
	}
}
