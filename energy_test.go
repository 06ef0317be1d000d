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
)

// testEnergyProjector builds a projector around a single unit cell whose
// four corner nodes come straight from a position vector.
func testEnergyProjector() *Projector {
	return &Projector{
		cells: strainCell(1),
		dPhi:  []float64{1},
		dLam:  []float64{1},
	}
}

// unitCellVec returns the position vector of an undistorted unit cell,
// stretched by the given factor in x.
func unitCellVec(stretch float64) []float64 {
	return pointsToVec([]geom.Point{
		{X: 0, Y: 0}, {X: stretch, Y: 0},
		{X: 0, Y: 0}, {X: 0, Y: 1},
	})
}

func TestStrictEnergy(t *testing.T) {
	p := testEnergyProjector()
	f := p.strictEnergy(Unit{})

	// An undistorted cell contributes no energy.
	if have := f(unitCellVec(1)); math.Abs(have) > 1e-12 {
		t.Errorf("undistorted energy: want 0 but have %v", have)
	}

	// Any distortion costs energy.
	if have := f(unitCellVec(1.5)); have <= 0 {
		t.Errorf("distorted energy: want positive but have %v", have)
	}

	// A folded cell is out of the objective's domain.
	if have := f(unitCellVec(-1)); !math.IsInf(have, 1) {
		t.Errorf("folded energy: want +Inf but have %v", have)
	}
}

func TestStrictEnergyBarrier(t *testing.T) {
	p := testEnergyProjector()
	f := p.strictEnergy(Unit{})
	// The logarithmic barrier must grow as the cell collapses.
	prev := f(unitCellVec(0.5))
	for _, stretch := range []float64{0.1, 0.01, 0.001} {
		have := f(unitCellVec(stretch))
		if have <= prev {
			t.Errorf("energy at stretch %v (%v) should exceed energy at larger stretch (%v)",
				stretch, have, prev)
		}
		prev = have
	}
}

func TestLenientEnergy(t *testing.T) {
	p := testEnergyProjector()
	f := p.lenientEnergy(Unit{})

	if have := f(unitCellVec(1)); math.Abs(have) > 1e-12 {
		t.Errorf("undistorted energy: want 0 but have %v", have)
	}

	// The relaxation stays finite even on folded cells.
	for _, stretch := range []float64{-1, -10, 0} {
		if have := f(unitCellVec(stretch)); math.IsInf(have, 0) || math.IsNaN(have) {
			t.Errorf("energy at stretch %v: want finite but have %v", stretch, have)
		}
	}

	if have := f(unitCellVec(-1)); have <= 0 {
		t.Errorf("folded energy: want positive but have %v", have)
	}
}

func TestAggressiveEnergy(t *testing.T) {
	p := testEnergyProjector()
	f := p.aggressiveEnergy(Unit{})

	// Once every cell is valid the objective signals that the goal is met.
	if have := f(unitCellVec(1)); !math.IsInf(have, -1) {
		t.Errorf("valid energy: want -Inf but have %v", have)
	}

	// A folded cell costs a finite positive penalty.
	if have := f(unitCellVec(-1)); math.IsInf(have, 0) || have <= 0 {
		t.Errorf("folded energy: want finite positive but have %v", have)
	}

	// Deep folds are rejected before the exponentials overflow.
	deep := pointsToVec([]geom.Point{
		{X: 0, Y: 0}, {X: -200, Y: 0},
		{X: 0, Y: 0}, {X: 0, Y: 200},
	})
	if have := f(deep); !math.IsInf(have, 1) {
		t.Errorf("deeply folded energy: want +Inf but have %v", have)
	}
}

func TestVecPointsRoundTrip(t *testing.T) {
	pts := []geom.Point{{X: 1, Y: 2}, {X: -3, Y: 4.5}}
	back := vecToPoints(pointsToVec(pts))
	for i := range pts {
		if back[i] != pts[i] {
			t.Errorf("point %d: want %v but have %v", i, pts[i], back[i])
		}
	}
}
