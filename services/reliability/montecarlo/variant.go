// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package montecarlo

import (
	"fmt"
	"sort"

	"github.com/AleutianAI/corelife/services/reliability/trial"
)

// Granularity is how a batch is split into worker tasks.
type Granularity int

const (
	// PerTrial submits one task per trial.
	PerTrial Granularity = iota

	// Chunked gives each worker one contiguous run of trial indices.
	Chunked
)

// String returns a short name for the granularity.
func (g Granularity) String() string {
	if g == Chunked {
		return "chunked"
	}
	return "per-trial"
}

// Variant is a named execution strategy.
//
// Variants change memory layout and scheduling only. Every variant yields
// the same sums for the same config and seed.
type Variant struct {
	Name        string
	Description string
	Layout      trial.LayoutKind
	Granularity Granularity

	// ParallelEval evaluates live slots of one trial in parallel shards.
	ParallelEval bool
}

var variants = map[string]Variant{}

func init() {
	mustRegisterVariant(Variant{
		Name:        "redux",
		Description: "struct-of-arrays cores, one task per trial",
		Layout:      trial.StructOfArrays,
		Granularity: PerTrial,
	})
	mustRegisterVariant(Variant{
		Name:        "struct",
		Description: "array-of-structs cores, one task per trial",
		Layout:      trial.ArrayOfStructs,
		Granularity: PerTrial,
	})
	mustRegisterVariant(Variant{
		Name:        "grid-linearized",
		Description: "struct-of-arrays cores, one contiguous chunk of trials per worker",
		Layout:      trial.StructOfArrays,
		Granularity: Chunked,
	})
	mustRegisterVariant(Variant{
		Name:         "dynamic",
		Description:  "array-of-structs cores, live slots evaluated in parallel shards",
		Layout:       trial.ArrayOfStructs,
		Granularity:  PerTrial,
		ParallelEval: true,
	})
}

func mustRegisterVariant(v Variant) {
	if _, exists := variants[v.Name]; exists {
		panic(fmt.Sprintf("montecarlo: variant %q registered twice", v.Name))
	}
	variants[v.Name] = v
}

// LookupVariant returns the variant registered under name.
//
// Outputs:
//   - Variant: The variant.
//   - error: Wraps ErrUnknownVariant if name is not registered.
func LookupVariant(name string) (Variant, error) {
	v, ok := variants[name]
	if !ok {
		return Variant{}, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
	return v, nil
}

// Variants returns every registered variant sorted by name.
func Variants() []Variant {
	out := make([]Variant, 0, len(variants))
	for _, v := range variants {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
