// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package stats provides the running sums of a Monte Carlo run and the
// confidence evaluator that decides when enough trials have run.
package stats

import (
	"math"
	"sync"
)

// -----------------------------------------------------------------------------
// Sums
// -----------------------------------------------------------------------------

// Sums is a snapshot of the running sums of time-to-failure samples.
type Sums struct {
	// N is the number of samples.
	N int `json:"n"`

	// Sum is sumTTF.
	Sum float64 `json:"sum_ttf"`

	// SumSq is sumTTFx2, the sum of squared samples.
	SumSq float64 `json:"sum_ttf_x2"`
}

// Mean returns the sample mean, or 0 with no samples.
func (s Sums) Mean() float64 {
	if s.N == 0 {
		return 0
	}
	return s.Sum / float64(s.N)
}

// Variance returns the unbiased sample variance, clamped at 0 against
// rounding. Zero with fewer than two samples.
func (s Sums) Variance() float64 {
	return sampleVariance(s.Sum, s.SumSq, s.N)
}

// StdDev returns the sample standard deviation.
func (s Sums) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// Add returns s with one more sample.
func (s Sums) Add(x float64) Sums {
	s.N++
	s.Sum += x
	s.SumSq += x * x
	return s
}

func sampleVariance(sum, sumSq float64, n int) float64 {
	if n < 2 {
		return 0
	}
	nf := float64(n)
	v := (sumSq - sum*sum/nf) / (nf - 1)
	if v < 0 {
		return 0
	}
	return v
}

// -----------------------------------------------------------------------------
// Accumulator
// -----------------------------------------------------------------------------

// Accumulator owns the running sums of one run.
//
// Description:
//
//	The driver folds each batch in trial order so its floating point sums
//	are reproducible. The mutex makes the accumulator safe for callers
//	that add from several goroutines, at the cost of order-dependent
//	rounding in that case.
//
// Thread Safety: Safe for concurrent use.
type Accumulator struct {
	mu   sync.Mutex
	sums Sums
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Add records one time-to-failure sample.
func (a *Accumulator) Add(ttf float64) {
	a.mu.Lock()
	a.sums = a.sums.Add(ttf)
	a.mu.Unlock()
}

// Merge folds another set of sums into the accumulator.
func (a *Accumulator) Merge(s Sums) {
	a.mu.Lock()
	a.sums.N += s.N
	a.sums.Sum += s.Sum
	a.sums.SumSq += s.SumSq
	a.mu.Unlock()
}

// Snapshot returns the current sums.
func (a *Accumulator) Snapshot() Sums {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sums
}
