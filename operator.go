/*
Copyright © 2026 the flexproj authors.
This file is part of flexproj.

flexproj is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

flexproj is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with flexproj.  If not, see <http://www.gnu.org/licenses/>.
*/

package flexproj

import "github.com/ctessum/geom"

// An Operator is a sparse linear map that can be applied to a vector of
// 2-D node positions. Operators never store dense matrices; a full
// resolution mesh can exceed 10⁵ nodes.
type Operator interface {
	// Apply multiplies the operator by v, broadcasting over the X and Y
	// coordinates of each point.
	Apply(v []geom.Point) []geom.Point
}

// Selection is the identity operator on n elements restricted to a subset
// of its rows. It is used to reduce a full position vector to the
// positions of the key nodes of a mesh skeleton.
type Selection struct {
	n    int
	rows []int
}

// NewIdentity returns the identity operator on n elements.
func NewIdentity(n int) *Selection {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return &Selection{n: n, rows: rows}
}

// NewSelection returns the identity operator on len(keep) elements
// restricted to the rows where keep is true.
func NewSelection(keep []bool) *Selection {
	s := &Selection{n: len(keep)}
	for i, k := range keep {
		if k {
			s.rows = append(s.rows, i)
		}
	}
	return s
}

// Rows returns the indices of the rows the operator selects.
func (s *Selection) Rows() []int { return s.rows }

// Apply selects the subset of v given by the operator's rows.
func (s *Selection) Apply(v []geom.Point) []geom.Point {
	if len(v) != s.n {
		panic("flexproj: selection operator applied to vector of wrong length")
	}
	out := make([]geom.Point, len(s.rows))
	for k, r := range s.rows {
		out[k] = v[r]
	}
	return out
}

// Gather is an operator whose output row k is a weighted sum of a small
// fixed number of input rows. It is used to restore a full position vector
// from the positions of the key nodes: key nodes map to themselves with
// weight 1, and every other node is a convex combination of up to 4
// bracketing key nodes.
type Gather struct {
	cols    int
	refs    [][4]int
	weights [][4]float64
}

// NewGather returns an operator mapping a vector of cols elements to a
// vector of len(refs) elements, where output row k is the sum of the input
// rows refs[k] weighted by weights[k]. Entries with zero weight are
// ignored, so their reference indices may be invalid.
func NewGather(cols int, refs [][4]int, weights [][4]float64) *Gather {
	if len(refs) != len(weights) {
		panic("flexproj: gather operator reference and weight lengths differ")
	}
	return &Gather{cols: cols, refs: refs, weights: weights}
}

// Apply computes the weighted sums defined by the operator.
func (g *Gather) Apply(v []geom.Point) []geom.Point {
	if len(v) != g.cols {
		panic("flexproj: gather operator applied to vector of wrong length")
	}
	out := make([]geom.Point, len(g.refs))
	for k := range g.refs {
		var p geom.Point
		for c := 0; c < 4; c++ {
			w := g.weights[k][c]
			if w == 0 {
				continue
			}
			r := g.refs[k][c]
			p.X += w * v[r].X
			p.Y += w * v[r].Y
		}
		out[k] = p
	}
	return out
}

// Unit is the degenerate scalar operator equal to 1. It is used as the
// no-op (reduce, restore) pair at the final, unreduced level of the
// skeleton hierarchy.
type Unit struct{}

// Apply returns v unchanged.
func (Unit) Apply(v []geom.Point) []geom.Point { return v }
