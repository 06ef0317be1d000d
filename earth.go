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

	"github.com/ctessum/unit"
)

// Ellipsoid holds the defining constants of a reference ellipsoid.
type Ellipsoid struct {
	// A is the equatorial radius.
	A *unit.Unit
	// F is the flattening.
	F float64
}

// Earth is the figure of the earth as given by WGS 84.
var Earth = Ellipsoid{
	A: unit.New(6378137, unit.Meter),
	F: 1 / 298.257223563,
}

// E2 returns the square of the ellipsoid's eccentricity.
func (e Ellipsoid) E2() float64 {
	b := 1 - e.F
	return 1 - b*b
}

// RadiusKm returns the equatorial radius in kilometers. All physical
// distances within this package are expressed in kilometers.
func (e Ellipsoid) RadiusKm() float64 {
	km := unit.Div(e.A, unit.New(1000, unit.Meter))
	return km.Value()
}

// MeridionalSpacing returns the physical north-south distance [km] spanned
// by one grid row at each of the given latitudes [radians], where dLat is
// the angular spacing between adjacent rows. The rows are assumed to be
// evenly spaced in latitude.
func (e Ellipsoid) MeridionalSpacing(lat []float64, dLat float64) []float64 {
	a := e.RadiusKm()
	e2 := e.E2()
	out := make([]float64, len(lat))
	for i, phi := range lat {
		s := math.Sin(phi)
		out[i] = a * (1 - e2) * math.Pow(1-e2*s*s, 3./2.) * dLat
	}
	return out
}

// ParallelSpacing returns the physical east-west distance [km] between
// adjacent grid columns at each of the given latitudes [radians], where
// dLon is the angular spacing between adjacent columns.
func (e Ellipsoid) ParallelSpacing(lat []float64, dLon float64) []float64 {
	a := e.RadiusKm()
	e2 := e.E2()
	out := make([]float64, len(lat))
	for i, phi := range lat {
		t := math.Tan(phi)
		out[i] = a * math.Pow(1+(1-e2)*t*t, -1./2.) * dLon
	}
	return out
}
