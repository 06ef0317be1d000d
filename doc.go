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

// Package flexproj creates low-distortion planar map projections by
// numerically minimizing the elastic strain energy of a mesh of node
// positions draped over the sphere.
//
// The input is a structured (section, row, column) grid of initial node
// positions produced by an upstream mesh-construction tool, together with
// optional rasters giving the relative importance and the target areal
// scale of each part of the globe. The optimizer deduplicates the grid
// into a node vector, measures distortion over quadrilateral cells, and
// progressively relaxes the node positions from a coarse "skeleton" of
// key nodes up to the full mesh resolution.
package flexproj

// Version gives the version number of this version of flexproj.
const Version = "1.1.0"
