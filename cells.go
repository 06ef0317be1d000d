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

import (
	"math"

	"github.com/ctessum/sparse"
)

// A Cell is a quadrilateral grid patch over which distortion is measured.
// Near a pole two of its corner nodes may coincide, degenerating the
// quadrilateral to a triangle.
type Cell struct {
	// Section, Row, and Col locate the cell in the mesh grid. Row is the
	// row of the cell's east-west node pair, which sets the physical
	// row and column spacing used when measuring the cell's strain.
	Section, Row, Col int

	// West, East, South, and North are the node indices of the cell's
	// corners. None of them is ever -1, and West never equals East.
	West, East, South, North int

	// Weight is the cell's share of the total strain energy: its
	// physical area as a fraction of the sphere's surface, times the
	// relative importance given by the value raster.
	Weight float64

	// Scale is the target linear scale factor for the cell, the square
	// root of the target areal scale given by the scale raster.
	Scale float64
}

// downsample decreases the resolution of a raster to rows×cols by setting
// each output pixel to the mean of the input pixels for which it is the
// nearest neighbor. A nil raster stands for a uniform value of 1.
func downsample(full *sparse.DenseArray, rows, cols int) *sparse.DenseArray {
	out := sparse.ZerosDense(rows, cols)
	if full == nil {
		for i := range out.Elements {
			out.Elements[i] = 1
		}
		return out
	}
	if full.Shape[0] == rows && full.Shape[1] == cols {
		return full.Copy()
	}
	iReduc := make([]int, full.Shape[0])
	for i := range iReduc {
		iReduc[i] = i * rows / full.Shape[0]
	}
	jReduc := make([]int, full.Shape[1])
	for j := range jReduc {
		jReduc[j] = j * cols / full.Shape[1]
	}
	count := sparse.ZerosDense(rows, cols)
	for i := 0; i < full.Shape[0]; i++ {
		for j := 0; j < full.Shape[1]; j++ {
			out.AddVal(full.Get(i, j), iReduc[i], jReduc[j])
			count.AddVal(1, iReduc[i], jReduc[j])
		}
	}
	for i, n := range count.Elements {
		if n > 0 {
			out.Elements[i] /= n
		}
	}
	return out
}

// enumerateCells builds the list of cells over which the strain energy is
// summed. For each grid square it considers the four combinations of
// diagonal corner offsets, which resolves the corner ambiguity of the
// degenerate squares adjacent to the poles, then deduplicates the
// candidates by their corner node 4-tuple. Candidates that touch an absent
// node or whose east-west corners coincide are silently dropped.
//
// values and scales are per-section rasters of relative cell importance
// and target areal scale; either may hold nils for uniform rasters. They
// are resampled to the grid resolution before use. dPhi and dLam give the
// physical row and column spacing [km] at each grid row, and radius is the
// sphere radius [km] used to normalize cell areas.
func enumerateCells(lookup *sparse.DenseArrayInt, values, scales []*sparse.DenseArray,
	dPhi, dLam []float64, radius float64) []Cell {
	sections := lookup.Shape[0]
	rows := lookup.Shape[1]
	cols := lookup.Shape[2]

	value := make([]*sparse.DenseArray, sections)
	scale := make([]*sparse.DenseArray, sections)
	for h := 0; h < sections; h++ {
		value[h] = downsample(values[h], rows, cols)
		scale[h] = downsample(scales[h], rows, cols)
	}

	sphereArea := 4 * math.Pi * radius * radius

	type corners struct{ west, east, south, north int }
	seen := make(map[corners]bool)
	var cells []Cell
	for di := 0; di < 2; di++ {
		for dj := 0; dj < 2; dj++ {
			for h := 0; h < sections; h++ {
				for i := 0; i < rows-1; i++ {
					for j := 0; j < cols-1; j++ {
						c := corners{
							west:  lookup.Get(h, i+di, j),
							east:  lookup.Get(h, i+di, j+1),
							south: lookup.Get(h, i, j+dj),
							north: lookup.Get(h, i+1, j+dj),
						}
						if seen[c] {
							continue
						}
						seen[c] = true
						if c.west == -1 || c.east == -1 || c.south == -1 || c.north == -1 {
							continue
						}
						if c.west == c.east {
							continue
						}
						// Blend the areas implied by the two candidate row
						// offsets, so that the triangular cells adjacent to a
						// pole blend with the ordinary trapezoids.
						a1 := dPhi[i+di] * dLam[i+di]
						a2 := dPhi[i+1-di] * dLam[i+1-di]
						area := (3*a1 + a2) / 16 / sphereArea
						cells = append(cells, Cell{
							Section: h,
							Row:     i + di,
							Col:     j + dj,
							West:    c.west,
							East:    c.east,
							South:   c.south,
							North:   c.north,
							Weight:  area * value[h].Get(i+di, j+dj),
							Scale:   math.Sqrt(scale[h].Get(i+di, j+dj)),
						})
					}
				}
			}
		}
	}
	return cells
}
