// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package stats

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidLevel indicates a confidence level outside (0,1).
var ErrInvalidLevel = errors.New("confidence level must be in (0,1)")

// Evaluator decides how wide the confidence interval around the mean is.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Evaluator interface {
	// HalfWidth returns the half-width of the interval around sum/n.
	// Returns +Inf when the width cannot be estimated yet.
	HalfWidth(sum, sumSq float64, n int) float64
}

// StudentT is the default Evaluator: a two-sided Student t interval.
type StudentT struct {
	// Level is the confidence level, e.g. 0.95.
	Level float64
}

// NewStudentT validates the level and returns the evaluator.
func NewStudentT(level float64) (StudentT, error) {
	if !(level > 0 && level < 1) {
		return StudentT{}, fmt.Errorf("%w: got %g", ErrInvalidLevel, level)
	}
	return StudentT{Level: level}, nil
}

// HalfWidth returns t_{(1+level)/2, n-1} * sqrt(var/n).
//
// Inputs:
//   - sum: Sum of samples.
//   - sumSq: Sum of squared samples.
//   - n: Sample count.
//
// Outputs:
//   - float64: The half-width. +Inf when n < 2, 0 for zero variance.
func (e StudentT) HalfWidth(sum, sumSq float64, n int) float64 {
	if n < 2 {
		return math.Inf(1)
	}
	v := sampleVariance(sum, sumSq, n)
	if v == 0 {
		return 0
	}
	return TQuantile((1+e.Level)/2, n-1) * math.Sqrt(v/float64(n))
}

// TQuantile returns the p quantile of Student's t with df degrees of freedom.
//
// Description:
//
//	df 1 and 2 have closed forms. Larger df use the Cornish-Fisher
//	expansion around the normal quantile, which is within 1% of the
//	tabulated two-sided 95% and 99% values from df=3 upward.
func TQuantile(p float64, df int) float64 {
	if p <= 0 {
		return math.Inf(-1)
	}
	if p >= 1 {
		return math.Inf(1)
	}
	if df < 1 {
		df = 1
	}

	switch df {
	case 1:
		return math.Tan(math.Pi * (p - 0.5))
	case 2:
		return (2*p - 1) / math.Sqrt(2*p*(1-p))
	}

	z := NormalQuantile(p)
	n := float64(df)
	z2 := z * z
	z3 := z2 * z
	z5 := z3 * z2
	z7 := z5 * z2
	z9 := z7 * z2

	g1 := (z3 + z) / 4
	g2 := (5*z5 + 16*z3 + 3*z) / 96
	g3 := (3*z7 + 19*z5 + 17*z3 - 15*z) / 384
	g4 := (79*z9 + 776*z7 + 1482*z5 - 1920*z3 - 945*z) / 92160

	return z + g1/n + g2/(n*n) + g3/(n*n*n) + g4/(n*n*n*n)
}

// NormalQuantile returns the p quantile of the standard normal.
func NormalQuantile(p float64) float64 {
	if p <= 0 {
		return math.Inf(-1)
	}
	if p >= 1 {
		return math.Inf(1)
	}
	return math.Sqrt2 * math.Erfinv(2*p-1)
}

var _ Evaluator = StudentT{}
