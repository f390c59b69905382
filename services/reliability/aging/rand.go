// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package aging

// Source produces uniform draws in [0,1).
type Source interface {
	Float64() float64
}

// SeededSource is a Source that can be restarted from a seed, so one
// generator serves every trial a worker runs.
type SeededSource interface {
	Source
	Seed(seed uint64)
}

const golden = 0x9e3779b97f4a7c15

// SplitMix is a splitmix64 generator. One per trial, never shared.
//
// Thread Safety: Not safe for concurrent use.
type SplitMix struct {
	state uint64
}

// NewSplitMix seeds a generator.
func NewSplitMix(seed uint64) *SplitMix {
	return &SplitMix{state: seed}
}

// Seed restarts the sequence.
func (r *SplitMix) Seed(seed uint64) {
	r.state = seed
}

// Uint64 returns the next 64 random bits.
func (r *SplitMix) Uint64() uint64 {
	r.state += golden
	return mix64(r.state)
}

// Float64 returns a uniform draw in [0,1) built from the top 53 bits.
func (r *SplitMix) Float64() float64 {
	return float64(r.Uint64()>>11) * (1.0 / (1 << 53))
}

// TrialSeed derives the seed of one trial from the run seed, so a trial's
// draws depend only on (seed, trialIndex) and not on which worker runs it.
func TrialSeed(seed uint64, trialIndex int) uint64 {
	return mix64(seed ^ mix64(uint64(trialIndex)*golden+golden))
}

func mix64(z uint64) uint64 {
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

var _ SeededSource = (*SplitMix)(nil)
