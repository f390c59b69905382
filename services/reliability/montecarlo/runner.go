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
	"math"
	"sync"

	"github.com/AleutianAI/corelife/services/reliability/aging"
	"github.com/AleutianAI/corelife/services/reliability/grid"
	"github.com/AleutianAI/corelife/services/reliability/trial"
)

// minShardSize is the smallest slot range worth its own goroutine.
const minShardSize = 16

// Outcome is the result of one trial.
type Outcome struct {
	// TTF is the simulated time until the trial terminated.
	TTF float64

	// Steps is the number of death steps taken.
	Steps int

	// Dead is the number of cores that died.
	Dead int
}

// runner owns everything one trial mutates. A runner is reused for many
// trials but only ever runs one at a time.
type runner struct {
	cfg     *Config
	model   aging.Model
	thermal aging.Thermal

	trial *trial.Trial
	graph *grid.NeighborGraph
	rng   aging.SeededSource

	draws     []float64
	lifetimes []float64
	dying     []int

	shards int
}

func newRunner(cfg *Config, geom grid.Geometry, v Variant, model aging.Model, thermal aging.Thermal, shards int) *runner {
	n := geom.Size()
	r := &runner{
		cfg:       cfg,
		model:     model,
		thermal:   thermal,
		trial:     trial.New(geom, v.Layout, cfg.InitialWorkLoad, cfg.Voltage),
		graph:     grid.NewNeighborGraph(geom),
		rng:       aging.NewSplitMix(0),
		draws:     make([]float64, n),
		lifetimes: make([]float64, n),
		dying:     make([]int, 0, n),
		shards:    1,
	}
	if v.ParallelEval && shards > 1 {
		r.shards = shards
	}
	return r
}

// run simulates trial number index to termination.
//
// Outputs:
//   - Outcome: TTF, steps and deaths of the trial.
//   - error: Wraps ErrModelOutput if the aging model produced a NaN,
//     infinite or negative lifetime.
func (r *runner) run(index int) (Outcome, error) {
	r.reset(index)

	dead := 0
	for {
		killed, err := r.step()
		if err != nil {
			return Outcome{}, fmt.Errorf("trial %d step %d: %w", index, r.trial.Steps(), err)
		}
		dead += killed
		if r.done(dead) {
			break
		}
	}
	return Outcome{TTF: r.trial.Elapsed(), Steps: r.trial.Steps(), Dead: dead}, nil
}

// reset prepares the runner for trial number index.
func (r *runner) reset(index int) {
	r.rng.Seed(aging.TrialSeed(r.cfg.Seed, index))
	r.trial.Reset(r.cfg.InitialWorkLoad, r.cfg.Voltage)
	r.graph.Reset()
}

func (r *runner) done(dead int) bool {
	if r.trial.Left() < r.cfg.MinCores {
		return true
	}
	return r.cfg.MaxCores > 0 && dead >= r.cfg.MaxCores
}

// step runs one death step and returns the number of cores that died.
func (r *runner) step() (int, error) {
	left := r.trial.Left()

	for slot := 0; slot < left; slot++ {
		r.draws[slot] = r.rng.Float64()
	}
	r.forShards(left, r.evaluate)

	shortest := math.Inf(1)
	for slot := 0; slot < left; slot++ {
		life := r.lifetimes[slot]
		if math.IsNaN(life) || math.IsInf(life, 0) || life < 0 {
			return 0, fmt.Errorf("%w: slot %d got %g", ErrModelOutput, slot, life)
		}
		if life < shortest {
			shortest = life
		}
	}

	// Grid indices are cached before any removal moves slots around.
	r.dying = r.dying[:0]
	for slot := 0; slot < left; slot++ {
		if r.lifetimes[slot] == shortest {
			r.dying = append(r.dying, r.trial.GridIndex(slot))
		}
	}

	r.forShards(left, func(lo, hi int) { r.age(lo, hi, shortest) })
	r.trial.Advance(shortest)

	for _, g := range r.dying {
		r.graph.NotifyDeath(g)
		r.trial.Remove(r.trial.SlotOf(g))
	}

	if n := r.trial.Left(); n > 0 {
		size := r.trial.Geometry().Size()
		r.trial.SetWorkload(r.cfg.InitialWorkLoad * float64(size) / float64(n))
	}
	return len(r.dying), nil
}

// evaluate fills temperatures and lifetimes for slots [lo, hi).
func (r *runner) evaluate(lo, hi int) {
	for slot := lo; slot < hi; slot++ {
		c := r.trial.Core(slot)
		temp := r.thermal.Temperature(c.Load, c.Voltage, r.graph.AliveNeighbors(c.GridIndex))
		r.trial.SetTemperature(slot, temp)
		stress := aging.Stress{Temperature: temp, Load: c.Load, Voltage: c.Voltage}
		r.lifetimes[slot] = r.model.Lifetime(stress, c.Reliability, r.draws[slot])
	}
}

// age advances the survivors among slots [lo, hi) by dt.
func (r *runner) age(lo, hi int, dt float64) {
	for slot := lo; slot < hi; slot++ {
		if r.lifetimes[slot] == dt {
			continue
		}
		c := r.trial.Core(slot)
		stress := aging.Stress{Temperature: c.Temperature, Load: c.Load, Voltage: c.Voltage}
		r.trial.SetReliability(slot, r.model.Age(stress, c.Reliability, dt))
	}
}

// forShards calls fn over [0, n), split into parallel shards when the
// variant evaluates in parallel and n is large enough. Each shard writes
// only its own slots.
func (r *runner) forShards(n int, fn func(lo, hi int)) {
	if r.shards <= 1 || n < 2*minShardSize {
		fn(0, n)
		return
	}
	size := max((n+r.shards-1)/r.shards, minShardSize)

	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += size {
		hi := min(lo+size, n)
		wg.Go(func() { fn(lo, hi) })
	}
	wg.Wait()
}
