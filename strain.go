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
	"runtime"
	"sync"

	"github.com/ctessum/geom"
)

// principalStrains returns the Tissot-ellipse semiaxes of each cell: the
// local linear scale factors along the two principal distortion axes of
// the mapping, relative to each cell's target scale. A strain of 1 means
// no local distortion; a non-positive strain means the cell is folded
// over. dPhi and dLam give the physical row and column spacing [km] at
// each grid row.
//
// The two finite differences across each cell form the columns of the
// local Jacobian; the semiaxes come from the closed-form combination of
// its entries that is equivalent to its singular values.
func principalStrains(positions []geom.Point, cells []Cell, dPhi, dLam []float64) (major, minor []float64) {
	major = make([]float64, len(cells))
	minor = make([]float64, len(cells))

	// Cells are independent, so divide them among the processors.
	nprocs := runtime.GOMAXPROCS(0)
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for pp := 0; pp < nprocs; pp++ {
		go func(pp int) {
			for ii := pp; ii < len(cells); ii += nprocs {
				c := cells[ii]

				west := positions[c.West]
				east := positions[c.East]
				dxdLam := (east.X - west.X) / (dLam[c.Row] / c.Scale)
				dydLam := (east.Y - west.Y) / (dLam[c.Row] / c.Scale)

				south := positions[c.South]
				north := positions[c.North]
				dxdPhi := (north.X - south.X) / (dPhi[c.Row] / c.Scale)
				dydPhi := (north.Y - south.Y) / (dPhi[c.Row] / c.Scale)

				trace := math.Sqrt((dxdLam+dydPhi)*(dxdLam+dydPhi)+
					(dxdPhi-dydLam)*(dxdPhi-dydLam)) / 2
				antitrace := math.Sqrt((dxdLam-dydPhi)*(dxdLam-dydPhi)+
					(dxdPhi+dydLam)*(dxdPhi+dydLam)) / 2
				major[ii] = trace + antitrace
				minor[ii] = trace - antitrace
			}
			wg.Done()
		}(pp)
	}
	wg.Wait()
	return major, minor
}
