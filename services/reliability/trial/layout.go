// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package trial

// Core is the simulation state of one core.
type Core struct {
	// Reliability is the current survival probability, 1 for a fresh core.
	Reliability float64

	// Temperature in kelvin, recomputed every step.
	Temperature float64

	// Load is the core's share of the workload.
	Load float64

	// Voltage is the supply voltage.
	Voltage float64

	// GridIndex is the grid position this record represents.
	GridIndex int

	// Alive is false once the core has been compacted out.
	Alive bool
}

// Layout stores the Core records of one trial.
//
// Description:
//
//	Layout is the storage strategy behind the compaction engine. The
//	engine only ever swaps whole records and reads or writes single
//	fields, so struct-of-arrays and array-of-structs storage produce the
//	same results. Slots are dense indices in [0, Len()).
//
// Thread Safety: Implementations are not safe for concurrent mutation.
// Concurrent reads of distinct slots are safe.
type Layout interface {
	// Len returns the number of slots.
	Len() int

	// Core returns a copy of the record at slot.
	Core(slot int) Core

	// SetCore overwrites the record at slot.
	SetCore(slot int, c Core)

	// Swap exchanges the records at slots a and b.
	Swap(a, b int)

	// GridIndex returns the grid position held by slot.
	GridIndex(slot int) int

	// Reliability returns the reliability at slot.
	Reliability(slot int) float64

	// SetReliability writes the reliability at slot.
	SetReliability(slot int, r float64)

	// SetTemperature writes the temperature at slot.
	SetTemperature(slot int, t float64)

	// SetLoad writes the load at slot.
	SetLoad(slot int, load float64)

	// SetAlive writes the alive flag at slot.
	SetAlive(slot int, alive bool)
}

// LayoutKind selects a Layout implementation.
type LayoutKind int

const (
	// StructOfArrays keeps each field in its own slice.
	StructOfArrays LayoutKind = iota

	// ArrayOfStructs keeps whole Core records in one slice.
	ArrayOfStructs
)

// String returns the config name of the layout.
func (k LayoutKind) String() string {
	switch k {
	case StructOfArrays:
		return "soa"
	case ArrayOfStructs:
		return "aos"
	default:
		return "unknown"
	}
}

// NewLayout allocates a layout with n slots.
func NewLayout(kind LayoutKind, n int) Layout {
	if kind == ArrayOfStructs {
		return &aosLayout{cores: make([]Core, n)}
	}
	return &soaLayout{
		reliability: make([]float64, n),
		temperature: make([]float64, n),
		load:        make([]float64, n),
		voltage:     make([]float64, n),
		gridIndex:   make([]int, n),
		alive:       make([]bool, n),
	}
}

// -----------------------------------------------------------------------------
// Struct of arrays
// -----------------------------------------------------------------------------

type soaLayout struct {
	reliability []float64
	temperature []float64
	load        []float64
	voltage     []float64
	gridIndex   []int
	alive       []bool
}

func (l *soaLayout) Len() int { return len(l.reliability) }

func (l *soaLayout) Core(slot int) Core {
	return Core{
		Reliability: l.reliability[slot],
		Temperature: l.temperature[slot],
		Load:        l.load[slot],
		Voltage:     l.voltage[slot],
		GridIndex:   l.gridIndex[slot],
		Alive:       l.alive[slot],
	}
}

func (l *soaLayout) SetCore(slot int, c Core) {
	l.reliability[slot] = c.Reliability
	l.temperature[slot] = c.Temperature
	l.load[slot] = c.Load
	l.voltage[slot] = c.Voltage
	l.gridIndex[slot] = c.GridIndex
	l.alive[slot] = c.Alive
}

func (l *soaLayout) Swap(a, b int) {
	l.reliability[a], l.reliability[b] = l.reliability[b], l.reliability[a]
	l.temperature[a], l.temperature[b] = l.temperature[b], l.temperature[a]
	l.load[a], l.load[b] = l.load[b], l.load[a]
	l.voltage[a], l.voltage[b] = l.voltage[b], l.voltage[a]
	l.gridIndex[a], l.gridIndex[b] = l.gridIndex[b], l.gridIndex[a]
	l.alive[a], l.alive[b] = l.alive[b], l.alive[a]
}

func (l *soaLayout) GridIndex(slot int) int             { return l.gridIndex[slot] }
func (l *soaLayout) Reliability(slot int) float64       { return l.reliability[slot] }
func (l *soaLayout) SetReliability(slot int, r float64) { l.reliability[slot] = r }
func (l *soaLayout) SetTemperature(slot int, t float64) { l.temperature[slot] = t }
func (l *soaLayout) SetLoad(slot int, load float64)     { l.load[slot] = load }
func (l *soaLayout) SetAlive(slot int, alive bool)      { l.alive[slot] = alive }

// -----------------------------------------------------------------------------
// Array of structs
// -----------------------------------------------------------------------------

type aosLayout struct {
	cores []Core
}

func (l *aosLayout) Len() int                 { return len(l.cores) }
func (l *aosLayout) Core(slot int) Core       { return l.cores[slot] }
func (l *aosLayout) SetCore(slot int, c Core) { l.cores[slot] = c }

func (l *aosLayout) Swap(a, b int) {
	l.cores[a], l.cores[b] = l.cores[b], l.cores[a]
}

func (l *aosLayout) GridIndex(slot int) int             { return l.cores[slot].GridIndex }
func (l *aosLayout) Reliability(slot int) float64       { return l.cores[slot].Reliability }
func (l *aosLayout) SetReliability(slot int, r float64) { l.cores[slot].Reliability = r }
func (l *aosLayout) SetTemperature(slot int, t float64) { l.cores[slot].Temperature = t }
func (l *aosLayout) SetLoad(slot int, load float64)     { l.cores[slot].Load = load }
func (l *aosLayout) SetAlive(slot int, alive bool)      { l.cores[slot].Alive = alive }

var (
	_ Layout = (*soaLayout)(nil)
	_ Layout = (*aosLayout)(nil)
)
