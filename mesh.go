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
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
)

// Mesh holds an initial projection mesh as constructed by an upstream
// mesh-building tool. The mesh is a set of sections, each an independently
// projected patch of the sphere, sampled on a shared latitude-longitude
// grid. Grid entries that fall outside a section hold NaN.
type Mesh struct {
	// Name identifies the projection and Description describes it.
	Name, Description string

	// Lat and Lon give the latitudes and longitudes [radians] of the
	// grid rows and columns. They are shared by all sections.
	Lat, Lon []float64

	// Projection holds the planar position [km] of each grid vertex, with
	// shape (sections, len(Lat), len(Lon), 2). The trailing dimension
	// holds the x and y coordinates. NaN marks an absent vertex.
	Projection *sparse.DenseArray

	// Borders holds the boundary of each section as latitude-longitude
	// vertices [radians].
	Borders [][]geom.Point

	// SectionNames names each section.
	SectionNames []string
}

// Sections returns the number of sections in the mesh.
func (m *Mesh) Sections() int { return m.Projection.Shape[0] }

// DefinedNodes returns the number of grid vertices that are not NaN.
func (m *Mesh) DefinedNodes() int {
	n := 0
	for i := 0; i < len(m.Projection.Elements); i += 2 {
		if !math.IsNaN(m.Projection.Elements[i]) {
			n++
		}
	}
	return n
}

// enumerateNodes deduplicates the vertices of a (section, row, col, 2)
// projection array into a list of unique node positions. It returns a
// lookup table mapping each grid entry to its node index, and the node
// positions ordered by ascending (x, y). Duplicate positions anywhere in
// the grid, such as vertices on a boundary shared by two sections,
// collapse to a single node. NaN entries represent the absence of a node:
// they sort after every real position, are excluded from the returned
// list, and map to index -1 in the lookup table.
func enumerateNodes(projection *sparse.DenseArray) (*sparse.DenseArrayInt, []geom.Point) {
	shape := projection.Shape
	nEntries := shape[0] * shape[1] * shape[2]

	entry := func(e int) geom.Point {
		return geom.Point{
			X: projection.Elements[2*e],
			Y: projection.Elements[2*e+1],
		}
	}

	order := make([]int, nEntries)
	for e := range order {
		order[e] = e
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := entry(order[i]), entry(order[j])
		aNaN, bNaN := math.IsNaN(a.X), math.IsNaN(b.X)
		if aNaN || bNaN {
			return !aNaN && bNaN
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Y < b.Y
	})

	lookup := sparse.ZerosDenseInt(shape[0], shape[1], shape[2])
	var positions []geom.Point
	index := -1
	var prev geom.Point
	for rank, e := range order {
		p := entry(e)
		if math.IsNaN(p.X) {
			lookup.Elements[e] = -1
			continue
		}
		if rank == 0 || p != prev {
			index++
			positions = append(positions, p)
			prev = p
		}
		lookup.Elements[e] = index
	}
	return lookup, positions
}

// scatterPositions writes a node position vector back into an array with
// the original (section, row, col, 2) grid shape, filling entries with no
// node with NaN.
func scatterPositions(lookup *sparse.DenseArrayInt, positions []geom.Point) *sparse.DenseArray {
	shape := lookup.Shape
	out := sparse.ZerosDense(shape[0], shape[1], shape[2], 2)
	for e, index := range lookup.Elements {
		if index == -1 {
			out.Elements[2*e] = math.NaN()
			out.Elements[2*e+1] = math.NaN()
			continue
		}
		out.Elements[2*e] = positions[index].X
		out.Elements[2*e+1] = positions[index].Y
	}
	return out
}
