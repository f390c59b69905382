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
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/corelife/pkg/ux"
	"github.com/AleutianAI/corelife/services/reliability/montecarlo"
)

// variantInfo is the JSON view of a montecarlo.Variant.
type variantInfo struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Layout       string `json:"layout"`
	Granularity  string `json:"granularity"`
	ParallelEval bool   `json:"parallel_eval"`
}

// listVariants is the handler for "corelife variants".
func listVariants(cmd *cobra.Command, args []string) error {
	variants := montecarlo.Variants()
	infos := make([]variantInfo, 0, len(variants))
	for _, v := range variants {
		infos = append(infos, variantInfo{
			Name:         v.Name,
			Description:  v.Description,
			Layout:       v.Layout.String(),
			Granularity:  v.Granularity.String(),
			ParallelEval: v.ParallelEval,
		})
	}
	if jsonOutput {
		return outputJSON(cmd.OutOrStdout(), infos)
	}

	p := newPrinter(cmd)
	w := cmd.OutOrStdout()
	p.Title("Variants")
	for _, v := range infos {
		if p.Level() == ux.PersonalityMachine {
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", v.Name, v.Layout, v.Granularity, v.ParallelEval)
			continue
		}
		traits := []string{v.Layout, v.Granularity}
		if v.ParallelEval {
			traits = append(traits, "parallel eval")
		}
		name := fmt.Sprintf("%-16s", v.Name)
		if p.Level() == ux.PersonalityFull {
			name = p.Styles().Highlight.Render(name)
		}
		fmt.Fprintf(w, "%s %s %s (%s)\n", p.Render(ux.IconBullet), name, v.Description, strings.Join(traits, ", "))
	}
	return nil
}
