// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package trial holds the per-trial core state and the compaction engine
// that keeps live cores packed at the front of it.
//
// # Working Set
//
// A trial stores one Core record per grid position in a Layout. The first
// Left() slots are the live cores; everything after them is dead and is
// never read again:
//
//	slot:   0    1    2    3  │  4    5
//	grid:  [7]  [2]  [5]  [0] │ [3]  [1]
//	        ─── live prefix ──┘  dead
//
// Removing a core swaps it with the last live slot and shrinks the
// prefix, so removal is O(1) and iteration only touches live cores. The
// reverse map (grid index -> slot) is kept in sync so neighbor lookups,
// which work on grid indices, can find a core's current slot.
//
// # Contract Violations
//
// Removing an out-of-range slot, removing from an empty trial, or reading
// a dead slot panics with an error wrapping ErrContractViolation. These are
// programming errors in the caller, not runtime conditions.
package trial

import (
	"errors"
	"fmt"

	"github.com/AleutianAI/corelife/services/reliability/grid"
)

// ErrContractViolation marks a precondition breach by the caller.
var ErrContractViolation = errors.New("trial contract violation")

func violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrContractViolation, fmt.Sprintf(format, args...))
}

// Trial is the state of one Monte Carlo run over the grid.
//
// Thread Safety: Not safe for concurrent mutation. A trial belongs to one
// worker. Concurrent reads of distinct live slots are safe.
type Trial struct {
	geom   grid.Geometry
	cores  Layout
	slotOf []int

	left     int
	workload float64
	elapsed  float64
	steps    int
}

// New allocates a trial for the geometry and resets it.
//
// Inputs:
//   - geom: Grid shape.
//   - kind: Storage layout for the core records.
//   - workload: Initial per-core workload.
//   - voltage: Supply voltage of every core.
//
// Outputs:
//   - *Trial: A trial with every core alive. Never nil.
func New(geom grid.Geometry, kind LayoutKind, workload, voltage float64) *Trial {
	t := &Trial{
		geom:   geom,
		cores:  NewLayout(kind, geom.Size()),
		slotOf: make([]int, geom.Size()),
	}
	t.Reset(workload, voltage)
	return t
}

// Reset brings every core back to life so the allocation can be reused
// for the next trial. Slot i holds grid index i afterwards.
func (t *Trial) Reset(workload, voltage float64) {
	n := t.geom.Size()
	for i := 0; i < n; i++ {
		t.cores.SetCore(i, Core{
			Reliability: 1,
			Load:        workload,
			Voltage:     voltage,
			GridIndex:   i,
			Alive:       true,
		})
		t.slotOf[i] = i
	}
	t.left = n
	t.workload = workload
	t.elapsed = 0
	t.steps = 0
}

// Geometry returns the grid shape.
func (t *Trial) Geometry() grid.Geometry { return t.geom }

// Left returns the number of live cores.
func (t *Trial) Left() int { return t.left }

// Workload returns the current per-core workload.
func (t *Trial) Workload() float64 { return t.workload }

// Elapsed returns the simulated time so far.
func (t *Trial) Elapsed() float64 { return t.elapsed }

// Steps returns how many death steps have run.
func (t *Trial) Steps() int { return t.steps }

// Core returns the record at a live slot.
func (t *Trial) Core(slot int) Core {
	t.checkLive(slot)
	return t.cores.Core(slot)
}

// GridIndex returns the grid position held by a live slot.
func (t *Trial) GridIndex(slot int) int {
	t.checkLive(slot)
	return t.cores.GridIndex(slot)
}

// SlotOf returns the current slot of a live grid position.
//
// Panics with ErrContractViolation if the position is out of range or dead.
func (t *Trial) SlotOf(gridIndex int) int {
	if gridIndex < 0 || gridIndex >= len(t.slotOf) {
		panic(violation("grid index %d outside grid of %d cores", gridIndex, len(t.slotOf)))
	}
	slot := t.slotOf[gridIndex]
	if slot >= t.left {
		panic(violation("grid index %d is dead", gridIndex))
	}
	return slot
}

// SetReliability writes the reliability of a live slot.
func (t *Trial) SetReliability(slot int, r float64) {
	t.checkLive(slot)
	t.cores.SetReliability(slot, r)
}

// SetTemperature writes the temperature of a live slot.
func (t *Trial) SetTemperature(slot int, temp float64) {
	t.checkLive(slot)
	t.cores.SetTemperature(slot, temp)
}

// Advance adds one step of dt simulated time.
func (t *Trial) Advance(dt float64) {
	t.elapsed += dt
	t.steps++
}

// SetWorkload propagates a new per-core workload to every live core.
//
// The workload only rises as cores die; a decrease panics with
// ErrContractViolation.
func (t *Trial) SetWorkload(w float64) {
	if w < t.workload {
		panic(violation("workload decreased from %g to %g", t.workload, w))
	}
	t.workload = w
	for slot := 0; slot < t.left; slot++ {
		t.cores.SetLoad(slot, w)
	}
}

// Remove compacts a dead core out of the live prefix.
//
// Description:
//
//	Swaps the record at deadSlot with the last live record, fixes the
//	reverse map for both grid positions that moved, and shrinks the live
//	prefix by one. The survivor formerly at the last slot is now at
//	deadSlot. The dead record ends up just past the prefix and is never
//	read again.
//
// Inputs:
//   - deadSlot: Slot of the dying core. Must be in [0, Left()).
//
// Panics with ErrContractViolation if the trial is empty or deadSlot is
// out of range.
func (t *Trial) Remove(deadSlot int) {
	if t.left == 0 {
		panic(violation("remove on a trial with no live cores"))
	}
	if deadSlot < 0 || deadSlot >= t.left {
		panic(violation("remove slot %d outside live prefix [0,%d)", deadSlot, t.left))
	}

	last := t.left - 1
	t.cores.Swap(deadSlot, last)
	t.slotOf[t.cores.GridIndex(deadSlot)] = deadSlot
	t.slotOf[t.cores.GridIndex(last)] = last
	t.cores.SetAlive(last, false)
	t.left--
}

// Active returns the grid indices of the live prefix in slot order.
func (t *Trial) Active() []int {
	out := make([]int, t.left)
	for slot := 0; slot < t.left; slot++ {
		out[slot] = t.cores.GridIndex(slot)
	}
	return out
}

func (t *Trial) checkLive(slot int) {
	if slot < 0 || slot >= t.left {
		panic(violation("slot %d outside live prefix [0,%d)", slot, t.left))
	}
}
