// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package grid

import "fmt"

// Neighbors is the liveness record of one grid position.
//
// Each flag is true when the neighbor in that direction exists and is
// alive. A missing neighbor (grid boundary) and a dead neighbor both read
// false.
type Neighbors struct {
	Top    bool
	Bottom bool
	Left   bool
	Right  bool
}

// Alive returns how many of the four neighbors are alive.
func (n Neighbors) Alive() int {
	count := 0
	for _, alive := range [4]bool{n.Top, n.Bottom, n.Left, n.Right} {
		if alive {
			count++
		}
	}
	return count
}

// NeighborGraph tracks neighbor liveness for every position of one trial.
//
// Description:
//
//	Entries are addressed by linear grid index, never by trial slot, so
//	they stay valid while the trial compacts its live cores. The graph
//	only ever decays: a cleared flag is never set again until Reset.
//
// Thread Safety: Not safe for concurrent use. Owned by a single trial.
type NeighborGraph struct {
	geom    Geometry
	entries []Neighbors
}

// NewNeighborGraph builds a fully alive graph for the given geometry.
//
// Outputs:
//   - *NeighborGraph: The graph. Never nil.
func NewNeighborGraph(geom Geometry) *NeighborGraph {
	g := &NeighborGraph{
		geom:    geom,
		entries: make([]Neighbors, geom.Size()),
	}
	g.Reset()
	return g
}

// Reset re-initializes every entry from the grid geometry.
//
// Used to recycle the allocation between trials run by the same worker.
func (g *NeighborGraph) Reset() {
	for i := range g.entries {
		g.initialize(i)
	}
}

// initialize sets each direction alive unless it falls off the grid.
func (g *NeighborGraph) initialize(index int) {
	p := g.geom.PositionOf(index)
	g.entries[index] = Neighbors{
		Top:    p.Row-1 >= 0,
		Bottom: p.Row+1 < g.geom.Rows,
		Left:   p.Col-1 >= 0,
		Right:  p.Col+1 < g.geom.Cols,
	}
}

// Geometry returns the grid shape this graph was built for.
func (g *NeighborGraph) Geometry() Geometry {
	return g.geom
}

// Entry returns the liveness record of a position.
func (g *NeighborGraph) Entry(index int) Neighbors {
	return g.entries[index]
}

// AliveNeighbors returns the number of alive neighbors of a position.
func (g *NeighborGraph) AliveNeighbors(index int) int {
	return g.entries[index].Alive()
}

// NotifyDeath tells the neighbors of a dead position to forget it.
//
// Description:
//
//	For every direction of the dead position that still reads alive, the
//	reciprocal flag on that neighbor is cleared (the top neighbor loses
//	its Bottom flag, and so on). A false flag covers both the boundary and
//	an already dead neighbor, so no reciprocal lookup happens for either.
//	The dead position's own flags are left untouched.
//
// Inputs:
//   - dead: Linear index of the position that just died.
//
// Panics with ErrIndexOutOfRange if dead is not a grid index.
func (g *NeighborGraph) NotifyDeath(dead int) {
	if dead < 0 || dead >= len(g.entries) {
		panic(fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, dead, len(g.entries)))
	}
	cols := g.geom.Cols
	e := g.entries[dead]
	if e.Top {
		g.entries[dead-cols].Bottom = false
	}
	if e.Bottom {
		g.entries[dead+cols].Top = false
	}
	if e.Left {
		g.entries[dead-1].Right = false
	}
	if e.Right {
		g.entries[dead+1].Left = false
	}
}
