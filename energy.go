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

	"github.com/ctessum/geom"
	"github.com/spatialmodel/flexproj/minimize"
)

// pointsToVec flattens a vector of points into the interleaved
// [x0, y0, x1, y1, ...] form the minimizer works on.
func pointsToVec(p []geom.Point) []float64 {
	v := make([]float64, 2*len(p))
	for i, pt := range p {
		v[2*i] = pt.X
		v[2*i+1] = pt.Y
	}
	return v
}

// vecToPoints is the inverse of pointsToVec.
func vecToPoints(v []float64) []geom.Point {
	p := make([]geom.Point, len(v)/2)
	for i := range p {
		p[i] = geom.Point{X: v[2*i], Y: v[2*i+1]}
	}
	return p
}

// strictEnergy returns the primary distortion objective. It penalizes
// areal-scale deviation, with a logarithmic barrier that blows up as a
// cell's area shrinks to zero, plus an anisotropy penalty; it is only
// finite while every cell has positive principal strains.
func (p *Projector) strictEnergy(restore Operator) minimize.Objective {
	return func(x []float64) float64 {
		a, b := principalStrains(restore.Apply(vecToPoints(x)), p.cells, p.dPhi, p.dLam)
		sum := 0.
		for i, c := range p.cells {
			if a[i] <= 0 || b[i] <= 0 {
				return math.Inf(1)
			}
			ab := a[i] * b[i]
			scaleTerm := (ab*ab-1)/2 - math.Log(ab)
			shapeTerm := (a[i] - b[i]) * (a[i] - b[i])
			sum += (scaleTerm + 2*shapeTerm) * c.Weight
		}
		return sum
	}
}

// lenientEnergy returns a quadratic relaxation of the strict objective
// that stays finite even when cells are folded over. It is used to
// bootstrap the optimization from an infeasible starting mesh.
func (p *Projector) lenientEnergy(restore Operator) minimize.Objective {
	return func(x []float64) float64 {
		a, b := principalStrains(restore.Apply(vecToPoints(x)), p.cells, p.dPhi, p.dLam)
		sum := 0.
		for i, c := range p.cells {
			scaleTerm := (a[i] + b[i] - 2) * (a[i] + b[i] - 2)
			shapeTerm := (a[i] - b[i]) * (a[i] - b[i])
			sum += (scaleTerm + 2*shapeTerm) * c.Weight
		}
		return sum
	}
}

// aggressiveEnergy returns an exponential penalty that pushes every cell
// toward positive strains. It is only used to rescue a mesh that is still
// folded over after the main hierarchy schedule. Once every cell is valid
// it returns -Inf to signal that the goal is met; strains below -100
// return +Inf instead of risking overflow in the exponentials.
func (p *Projector) aggressiveEnergy(restore Operator) minimize.Objective {
	return func(x []float64) float64 {
		a, b := principalStrains(restore.Apply(vecToPoints(x)), p.cells, p.dPhi, p.dLam)
		valid := true
		for i := range p.cells {
			if a[i] <= 0 || b[i] <= 0 {
				valid = false
			}
			if a[i] < -100 || b[i] < -100 {
				return math.Inf(1)
			}
		}
		if valid {
			return math.Inf(-1)
		}
		sum := 0.
		for i := range p.cells {
			sum += math.Exp(-6*a[i]) + math.Exp(-6*b[i])
		}
		return sum
	}
}
