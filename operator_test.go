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

	"github.com/ctessum/geom"
	"gonum.org/v1/gonum/mat"
)

func TestSelection(t *testing.T) {
	v := []geom.Point{{X: 0, Y: 10}, {X: 1, Y: 11}, {X: 2, Y: 12}, {X: 3, Y: 13}}

	s := NewSelection([]bool{true, false, false, true})
	out := s.Apply(v)
	want := []geom.Point{{X: 0, Y: 10}, {X: 3, Y: 13}}
	if len(out) != len(want) {
		t.Fatalf("selected length: want %d but have %d", len(want), len(out))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("selection row %d: want %v but have %v", i, want[i], out[i])
		}
	}

	id := NewIdentity(len(v))
	out = id.Apply(v)
	for i := range v {
		if out[i] != v[i] {
			t.Errorf("identity row %d: want %v but have %v", i, v[i], out[i])
		}
	}
}

func TestUnit(t *testing.T) {
	v := []geom.Point{{X: 1, Y: 2}, {X: 3, Y: 4}}
	out := Unit{}.Apply(v)
	for i := range v {
		if out[i] != v[i] {
			t.Errorf("row %d: want %v but have %v", i, v[i], out[i])
		}
	}
}

// TestGather cross-checks the sparse weighted-sum operator against an
// explicit dense matrix multiplication.
func TestGather(t *testing.T) {
	refs := [][4]int{
		{0, 0, 0, 0},
		{0, 1, 2, 0},
		{2, 0, 0, 0},
	}
	weights := [][4]float64{
		{1, 0, 0, 0},
		{0.25, 0.5, 0.25, 0},
		{1, 0, 0, 0},
	}
	g := NewGather(3, refs, weights)

	dense := mat.NewDense(3, 3, nil)
	for k := range refs {
		for c := 0; c < 4; c++ {
			if weights[k][c] != 0 {
				dense.Set(k, refs[k][c], dense.At(k, refs[k][c])+weights[k][c])
			}
		}
	}

	v := []geom.Point{{X: 1, Y: -1}, {X: 2, Y: -2}, {X: 4, Y: -4}}
	out := g.Apply(v)

	x := mat.NewVecDense(3, []float64{1, 2, 4})
	y := mat.NewVecDense(3, []float64{-1, -2, -4})
	var wantX, wantY mat.VecDense
	wantX.MulVec(dense, x)
	wantY.MulVec(dense, y)

	for k := range out {
		if math.Abs(out[k].X-wantX.AtVec(k)) > 1e-14 {
			t.Errorf("row %d x: want %v but have %v", k, wantX.AtVec(k), out[k].X)
		}
		if math.Abs(out[k].Y-wantY.AtVec(k)) > 1e-14 {
			t.Errorf("row %d y: want %v but have %v", k, wantY.AtVec(k), out[k].Y)
		}
	}
}

// A zero weight must mask out its reference index, even an invalid one.
func TestGatherIgnoresZeroWeightRefs(t *testing.T) {
	g := NewGather(1, [][4]int{{0, -1, 99, -5}}, [][4]float64{{1, 0, 0, 0}})
	out := g.Apply([]geom.Point{{X: 7, Y: 8}})
	if want := (geom.Point{X: 7, Y: 8}); out[0] != want {
		t.Errorf("want %v but have %v", want, out[0])
	}
}
