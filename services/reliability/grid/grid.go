// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package grid describes the rectangular core grid and tracks which
// grid neighbors of every position are still alive.
//
// # Geometry
//
// Positions are addressed by (row, col) and by the canonical linear
// index row*cols+col. "Top" is row-1, "Bottom" is row+1, "Left" is
// col-1 and "Right" is col+1:
//
//	        Top
//	         │
//	Left ── (r,c) ── Right
//	         │
//	       Bottom
//
// # Thread Safety
//
// Geometry values are immutable. A NeighborGraph is owned by exactly one
// trial and is not safe for concurrent mutation.
package grid

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGeometry indicates a grid with non-positive dimensions.
	ErrInvalidGeometry = errors.New("invalid grid geometry")

	// ErrIndexOutOfRange marks a linear index outside the grid. It is a
	// caller bug and is raised as a panic.
	ErrIndexOutOfRange = errors.New("grid index out of range")
)

// Position is a (row, col) coordinate in the grid.
type Position struct {
	Row int
	Col int
}

// String returns "(row,col)".
func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// Geometry is the fixed shape of a core grid.
//
// Thread Safety: Immutable; safe for concurrent use.
type Geometry struct {
	Rows int
	Cols int
}

// NewGeometry validates and returns a grid shape.
//
// Inputs:
//   - rows: Number of rows. Must be positive.
//   - cols: Number of columns. Must be positive.
//
// Outputs:
//   - Geometry: The grid shape.
//   - error: ErrInvalidGeometry if either dimension is not positive.
func NewGeometry(rows, cols int) (Geometry, error) {
	if rows <= 0 || cols <= 0 {
		return Geometry{}, fmt.Errorf("%w: %dx%d", ErrInvalidGeometry, rows, cols)
	}
	return Geometry{Rows: rows, Cols: cols}, nil
}

// Size returns the number of cores in the grid.
func (g Geometry) Size() int {
	return g.Rows * g.Cols
}

// Contains reports whether p lies inside the grid.
func (g Geometry) Contains(p Position) bool {
	return p.Row >= 0 && p.Row < g.Rows && p.Col >= 0 && p.Col < g.Cols
}

// Index returns the linear index of p. p must be inside the grid.
func (g Geometry) Index(p Position) int {
	return p.Row*g.Cols + p.Col
}

// PositionOf returns the position of a linear index.
func (g Geometry) PositionOf(index int) Position {
	return Position{Row: index / g.Cols, Col: index % g.Cols}
}
