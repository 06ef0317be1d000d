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
	"fmt"
	"math"

	"github.com/ctessum/sparse"
)

// MalformedMeshError reports that a skeleton-construction neighbor walk
// cycled or ran off the grid without reaching a terminal node. It means
// the input mesh topology is defective (disconnected or cyclic) and is not
// recoverable.
type MalformedMeshError struct {
	// Node is the node index at which the walk started.
	Node int
}

func (e *MalformedMeshError) Error() string {
	return fmt.Sprintf("flexproj: malformed mesh: neighbor walk from node %d "+
		"did not terminate", e.Node)
}

// neighborGraph maps each node index to its adjacent node index in each
// of the four grid directions, or -1 where there is no neighbor. The
// arrays are derived purely from grid adjacency; a node shared by two
// sections gets neighbors from whichever section is scanned last.
type neighborGraph struct {
	north, south, east, west []int
}

// buildNeighbors scans a lookup table and assembles the four directional
// neighbor arrays over its nodes.
func buildNeighbors(lookup *sparse.DenseArrayInt, n int) *neighborGraph {
	g := &neighborGraph{
		north: make([]int, n),
		south: make([]int, n),
		east:  make([]int, n),
		west:  make([]int, n),
	}
	for i := 0; i < n; i++ {
		g.north[i] = -1
		g.south[i] = -1
		g.east[i] = -1
		g.west[i] = -1
	}
	sections, rows, cols := lookup.Shape[0], lookup.Shape[1], lookup.Shape[2]
	for h := 0; h < sections; h++ {
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				v := lookup.Get(h, i, j)
				if v == -1 {
					continue
				}
				if j-1 >= 0 && lookup.Get(h, i, j-1) != -1 {
					g.west[v] = lookup.Get(h, i, j-1)
				}
				if j+1 < cols && lookup.Get(h, i, j+1) != -1 {
					g.east[v] = lookup.Get(h, i, j+1)
				}
				if i-1 >= 0 && lookup.Get(h, i-1, j) != -1 {
					g.south[v] = lookup.Get(h, i-1, j)
				}
				if i+1 < rows && lookup.Get(h, i+1, j) != -1 {
					g.north[v] = lookup.Get(h, i+1, j)
				}
			}
		}
	}
	return g
}

// follow walks the chain of indices in prog from start until it reaches a
// node where until is true, returning that node and the number of hops
// taken. A walk that runs off the grid or returns to a previously visited
// state means the mesh is malformed.
func follow(prog []int, start int, until []bool) (int, float64, error) {
	state := start
	dist := 0
	for !until[state] {
		next := prog[state]
		if next == -1 || next == state || next == start || dist > len(prog) {
			return 0, 0, &MalformedMeshError{Node: start}
		}
		state = next
		dist++
	}
	return state, float64(dist), nil
}

// interpWeights converts the distances of a point to two bracketing
// references into linear interpolation weights. A reference at zero
// distance gets all of the weight.
func interpWeights(distA, distB float64) (weightA, weightB float64) {
	if distA+distB != 0 {
		weightA = distB / (distA + distB)
	} else {
		weightA = 1
	}
	return weightA, 1 - weightA
}

// meshSkeleton creates a pair of mutually inverse operators that transform
// node positions between the full mesh and a reduced "skeleton" with fewer
// degrees of freedom. Each row of the grid keeps a set of regularly spaced
// key nodes, with the spacing chosen so that keys stay roughly evenly
// spaced in physical distance even near the poles, and the endpoints of
// every contiguous run of defined nodes are forced to be keys so that
// restoration never extrapolates beyond known data. Reducing selects just
// the key node positions; restoring reconstructs every other node as a
// convex combination of up to 4 bracketing keys.
//
// factor is the approximate resolution decrease, and lat gives the
// latitude [radians] of each grid row.
func meshSkeleton(lookup *sparse.DenseArrayInt, factor int, lat []float64) (reduce, restore Operator, err error) {
	n := 0
	for _, v := range lookup.Elements {
		if v+1 > n {
			n = v + 1
		}
	}
	g := buildNeighbors(lookup, n)

	// anchored marks nodes from which interpolation references may be
	// taken: nodes on an anchor row, plus nodes at the north or south end
	// of their column run.
	anchored := make([]bool, n)
	isKey := make([]bool, n)
	sections, rows, cols := lookup.Shape[0], lookup.Shape[1], lookup.Shape[2]
	for h := 0; h < sections; h++ {
		for i := 0; i < rows; i++ {
			// Widen the column stride toward the poles to keep the key
			// spacing roughly isotropic in physical distance.
			ewFactor := cols // longer strides than the grid mark only column 0
			if ew := math.Round(float64(factor) / math.Cos(lat[i])); ew < float64(cols) {
				ewFactor = int(ew)
			}
			anchorRow := min(i, rows-1-i)%factor == 0
			for j := 0; j < cols; j++ {
				v := lookup.Get(h, i, j)
				if v == -1 {
					continue
				}
				if anchorRow {
					anchored[v] = true
				}
				if j%ewFactor == 0 {
					isKey[v] = true
				}
			}
		}
	}
	for v := 0; v < n; v++ {
		if g.north[v] == -1 || g.south[v] == -1 {
			anchored[v] = true
		}
	}
	anchoredAt := func(v int) bool { return v != -1 && anchored[v] }
	for v := 0; v < n; v++ {
		// One-hop propagation: a node bracketing a non-anchored neighbor
		// must itself become a key so every run stays fully bracketed.
		if !anchoredAt(g.east[v]) || !anchoredAt(g.west[v]) {
			isKey[v] = true
		}
		isKey[v] = isKey[v] && anchored[v]
	}

	reindex := make([]int, n)
	m := 0
	for v := 0; v < n; v++ {
		if isKey[v] {
			reindex[v] = m
			m++
		} else {
			reindex[v] = -1
		}
	}

	// For every node, find the nearest anchored node along the north and
	// south chains, and from each of those the nearest key east and west,
	// giving up to 4 bracketing references with hop distances.
	refs := make([][4]int, n)
	weights := make([][4]float64, n)
	for v := 0; v < n; v++ {
		nRef, nDist, err := follow(g.north, v, anchored)
		if err != nil {
			return nil, nil, err
		}
		sRef, sDist, err := follow(g.south, v, anchored)
		if err != nil {
			return nil, nil, err
		}
		neRef, neDist, err := follow(g.east, nRef, isKey)
		if err != nil {
			return nil, nil, err
		}
		nwRef, nwDist, err := follow(g.west, nRef, isKey)
		if err != nil {
			return nil, nil, err
		}
		seRef, seDist, err := follow(g.east, sRef, isKey)
		if err != nil {
			return nil, nil, err
		}
		swRef, swDist, err := follow(g.west, sRef, isKey)
		if err != nil {
			return nil, nil, err
		}

		// Blend north against south first, then east against west within
		// each side; the products give 4 non-negative weights summing to 1.
		nWeight, sWeight := interpWeights(nDist, sDist)
		neWeight, nwWeight := interpWeights(neDist, nwDist)
		seWeight, swWeight := interpWeights(seDist, swDist)
		refs[v] = [4]int{
			reindex[neRef], reindex[nwRef],
			reindex[seRef], reindex[swRef],
		}
		weights[v] = [4]float64{
			nWeight * neWeight, nWeight * nwWeight,
			sWeight * seWeight, sWeight * swWeight,
		}
	}

	return NewSelection(isKey), NewGather(m, refs, weights), nil
}
