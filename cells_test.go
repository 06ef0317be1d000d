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
	"testing"

	"github.com/ctessum/sparse"
)

func TestDownsampleUniform(t *testing.T) {
	out := downsample(nil, 3, 4)
	if want := []int{3, 4}; out.Shape[0] != want[0] || out.Shape[1] != want[1] {
		t.Fatalf("shape: want %v but have %v", want, out.Shape)
	}
	for i, v := range out.Elements {
		if v != 1 {
			t.Errorf("element %d: want 1 but have %v", i, v)
		}
	}
}

func TestDownsampleMean(t *testing.T) {
	full := sparse.ZerosDense(4, 4)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			full.Set(float64(i*4+j), i, j)
		}
	}
	out := downsample(full, 2, 2)
	// Each output pixel is the mean of a 2×2 block of the input.
	want := [][]float64{{2.5, 4.5}, {10.5, 12.5}}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if have := out.Get(i, j); have != want[i][j] {
				t.Errorf("pixel (%d,%d): want %v but have %v", i, j, want[i][j], have)
			}
		}
	}
}

func TestDownsampleSameShape(t *testing.T) {
	full := sparse.ZerosDense(2, 2)
	full.Elements = []float64{1, 2, 3, 4}
	out := downsample(full, 2, 2)
	for i := range full.Elements {
		if out.Elements[i] != full.Elements[i] {
			t.Errorf("element %d: want %v but have %v", i, full.Elements[i], out.Elements[i])
		}
	}
	out.Elements[0] = 99
	if full.Elements[0] != 1 {
		t.Error("downsample should copy rather than alias the input")
	}
}

func TestEnumerateCells(t *testing.T) {
	proj := gridProjection(2, 2)
	lookup, _ := enumerateNodes(proj)

	dPhi := []float64{1, 1}
	dLam := []float64{1, 1}
	radius := 1.0
	cells := enumerateCells(lookup, make([]*sparse.DenseArray, 1),
		make([]*sparse.DenseArray, 1), dPhi, dLam, radius)

	// One grid square with four distinct corners yields one candidate per
	// diagonal offset combination.
	if want, have := 4, len(cells); want != have {
		t.Fatalf("number of cells: want %d but have %d", want, have)
	}

	// With uniform spacing, each candidate covers a quarter of the grid
	// square's area.
	wantWeight := 1. / 4 / (4 * math.Pi * radius * radius)
	total := 0.
	for k, c := range cells {
		if math.Abs(c.Weight-wantWeight) > 1e-15 {
			t.Errorf("cell %d weight: want %v but have %v", k, wantWeight, c.Weight)
		}
		if c.Scale != 1 {
			t.Errorf("cell %d scale: want 1 but have %v", k, c.Scale)
		}
		if c.West == c.East {
			t.Errorf("cell %d: west corner equals east corner", k)
		}
		if c.West == -1 || c.East == -1 || c.South == -1 || c.North == -1 {
			t.Errorf("cell %d references an absent node: %+v", k, c)
		}
		total += c.Weight
	}
	if want := 1. / (4 * math.Pi); math.Abs(total-want) > 1e-15 {
		t.Errorf("total weight: want %v but have %v", want, total)
	}
}

// Cell importance and target scale come from the raster pixel at the
// cell's own row and column, not from the base corner of its grid square.
func TestEnumerateCellsRasterSampling(t *testing.T) {
	proj := gridProjection(3, 3)
	lookup, _ := enumerateNodes(proj)

	raster := sparse.ZerosDense(3, 3)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			raster.Set(float64(10*i+j+1), i, j)
		}
	}
	radius := 1.0
	cells := enumerateCells(lookup, []*sparse.DenseArray{raster},
		[]*sparse.DenseArray{raster}, []float64{1, 1, 1}, []float64{1, 1, 1}, radius)

	area := 1. / 4 / (4 * math.Pi * radius * radius)
	for k, c := range cells {
		v := raster.Get(c.Row, c.Col)
		if want := area * v; math.Abs(c.Weight-want) > 1e-15 {
			t.Errorf("cell %d at (%d,%d) weight: want %v but have %v",
				k, c.Row, c.Col, want, c.Weight)
		}
		if want := math.Sqrt(v); math.Abs(c.Scale-want) > 1e-15 {
			t.Errorf("cell %d at (%d,%d) scale: want %v but have %v",
				k, c.Row, c.Col, want, c.Scale)
		}
	}
}

// A pole row whose vertices collapse to one node must produce triangular
// cells rather than cells with coincident east-west corners.
func TestEnumerateCellsDegenerate(t *testing.T) {
	proj := gridProjection(2, 2)
	// Collapse the south row to a single position.
	proj.Set(0, 0, 0, 1, 0)
	proj.Set(0, 0, 0, 1, 1)
	lookup, _ := enumerateNodes(proj)

	cells := enumerateCells(lookup, make([]*sparse.DenseArray, 1),
		make([]*sparse.DenseArray, 1), []float64{1, 1}, []float64{0, 1}, 1)

	if len(cells) == 0 {
		t.Fatal("want at least one cell next to the degenerate row")
	}
	for k, c := range cells {
		if c.West == c.East {
			t.Errorf("cell %d: west corner equals east corner", k)
		}
	}
}

func TestEnumerateCellsSkipsAbsent(t *testing.T) {
	proj := gridProjection(2, 2)
	proj.Set(math.NaN(), 0, 1, 1, 0)
	proj.Set(math.NaN(), 0, 1, 1, 1)
	lookup, _ := enumerateNodes(proj)

	cells := enumerateCells(lookup, make([]*sparse.DenseArray, 1),
		make([]*sparse.DenseArray, 1), []float64{1, 1}, []float64{1, 1}, 1)
	for k, c := range cells {
		if c.West == -1 || c.East == -1 || c.South == -1 || c.North == -1 {
			t.Errorf("cell %d references an absent node: %+v", k, c)
		}
	}
}
