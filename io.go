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
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
)

// Mesh files are NetCDF. The latitude, longitude, and projection
// variables give the shared grid and the planar position of every grid
// vertex in every section; sectionN_border holds each section's boundary
// as (latitude, longitude) rows. Angles are stored in degrees and planar
// positions in kilometers.

// LoadMesh reads a projection mesh from a NetCDF file.
func LoadMesh(filename string) (*Mesh, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("flexproj: opening mesh file: %v", err)
	}
	defer f.Close()
	ff, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("flexproj: reading mesh file %s: %v", filename, err)
	}

	m := new(Mesh)
	m.Name, _ = attrString(ff, "", "name")
	m.Description, _ = attrString(ff, "", "description")

	lat, err := readVar(ff, "latitude")
	if err != nil {
		return nil, err
	}
	lon, err := readVar(ff, "longitude")
	if err != nil {
		return nil, err
	}
	m.Lat = toRadians(lat.Elements)
	m.Lon = toRadians(lon.Elements)

	m.Projection, err = readVar(ff, "projection")
	if err != nil {
		return nil, err
	}
	if len(m.Projection.Shape) != 4 || m.Projection.Shape[3] != 2 {
		return nil, fmt.Errorf("flexproj: mesh file %s: projection variable has shape %v",
			filename, m.Projection.Shape)
	}

	for h := 0; h < m.Projection.Shape[0]; h++ {
		name, err := attrString(ff, "", fmt.Sprintf("section%d_name", h))
		if err != nil {
			name = fmt.Sprintf("section%d", h)
		}
		m.SectionNames = append(m.SectionNames, name)
		border, err := readVar(ff, fmt.Sprintf("section%d_border", h))
		if err != nil {
			return nil, err
		}
		vertices := make([]geom.Point, border.Shape[0])
		for i := range vertices {
			vertices[i] = geom.Point{
				X: border.Get(i, 1) * math.Pi / 180,
				Y: border.Get(i, 0) * math.Pi / 180,
			}
		}
		m.Borders = append(m.Borders, vertices)
	}
	return m, nil
}

// SaveMesh writes an optimized projection mesh to a NetCDF file. Each
// section is trimmed to the rows and columns that hold defined vertices
// (plus one surrounding row and column of NaNs), and is written with its
// own latitude and longitude subsets and bounding box, so that readers
// can treat every section independently.
func SaveMesh(filename string, m *Mesh) error {
	sections := m.Sections()
	rows, cols := len(m.Lat), len(m.Lon)

	type trimmed struct {
		iKeep, jKeep []int
	}
	trims := make([]trimmed, sections)
	for h := 0; h < sections; h++ {
		iMask := make([]bool, rows)
		jMask := make([]bool, cols)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				if !math.IsNaN(m.Projection.Get(h, i, j, 0)) {
					iMask[i] = true
					// The pole rows span every column, so ignore them when
					// deciding which columns are relevant.
					if i > 0 && i < rows-1 {
						jMask[j] = true
					}
				}
			}
		}
		trims[h] = trimmed{
			iKeep: maskIndices(dilate(iMask, 1)),
			jKeep: maskIndices(dilate(jMask, 1)),
		}
	}

	dims := []string{"latitude", "longitude", "section", "xy", "corner"}
	lengths := []int{rows, cols, sections, 2, 2}
	for h := 0; h < sections; h++ {
		dims = append(dims,
			fmt.Sprintf("section%d_latitude", h),
			fmt.Sprintf("section%d_longitude", h),
			fmt.Sprintf("section%d_vertex", h))
		lengths = append(lengths,
			len(trims[h].iKeep), len(trims[h].jKeep), len(m.Borders[h]))
	}

	h := cdf.NewHeader(dims, lengths)
	h.AddAttribute("", "comment", "flexproj optimized map projection mesh")
	h.AddAttribute("", "name", m.Name)
	h.AddAttribute("", "description", m.Description)

	addVar := func(name string, varDims []string, units string) {
		h.AddVariable(name, varDims, []float64{0})
		h.AddAttribute(name, "units", units)
	}
	addVar("latitude", []string{"latitude"}, "deg")
	addVar("longitude", []string{"longitude"}, "deg")
	addVar("projection", []string{"section", "latitude", "longitude", "xy"}, "km")
	addVar("bounding_box", []string{"corner", "xy"}, "km")
	for s := 0; s < sections; s++ {
		h.AddAttribute("", fmt.Sprintf("section%d_name", s), m.SectionNames[s])
		addVar(fmt.Sprintf("section%d_latitude", s),
			[]string{fmt.Sprintf("section%d_latitude", s)}, "deg")
		addVar(fmt.Sprintf("section%d_longitude", s),
			[]string{fmt.Sprintf("section%d_longitude", s)}, "deg")
		addVar(fmt.Sprintf("section%d_projection", s),
			[]string{fmt.Sprintf("section%d_latitude", s),
				fmt.Sprintf("section%d_longitude", s), "xy"}, "km")
		addVar(fmt.Sprintf("section%d_border", s),
			[]string{fmt.Sprintf("section%d_vertex", s), "xy"}, "deg")
		addVar(fmt.Sprintf("section%d_bounding_box", s),
			[]string{"corner", "xy"}, "km")
	}
	h.Define()

	w, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("flexproj: creating mesh file: %v", err)
	}
	defer w.Close()
	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("flexproj: writing mesh file %s: %v", filename, err)
	}

	write := func(name string, data *sparse.DenseArray) {
		if err == nil {
			err = writeNCF(f, name, data)
		}
	}
	write("latitude", degrees1d(m.Lat))
	write("longitude", degrees1d(m.Lon))
	write("projection", m.Projection)
	write("bounding_box", boundingBox(m.Projection.Elements))
	for s := 0; s < sections; s++ {
		lat := sparse.ZerosDense(len(trims[s].iKeep))
		for k, i := range trims[s].iKeep {
			lat.Elements[k] = m.Lat[i] * 180 / math.Pi
		}
		lon := sparse.ZerosDense(len(trims[s].jKeep))
		for k, j := range trims[s].jKeep {
			lon.Elements[k] = m.Lon[j] * 180 / math.Pi
		}
		proj := sparse.ZerosDense(len(trims[s].iKeep), len(trims[s].jKeep), 2)
		for ki, i := range trims[s].iKeep {
			for kj, j := range trims[s].jKeep {
				proj.Set(m.Projection.Get(s, i, j, 0), ki, kj, 0)
				proj.Set(m.Projection.Get(s, i, j, 1), ki, kj, 1)
			}
		}
		border := sparse.ZerosDense(len(m.Borders[s]), 2)
		for i, v := range m.Borders[s] {
			border.Set(v.Y*180/math.Pi, i, 0)
			border.Set(v.X*180/math.Pi, i, 1)
		}
		write(fmt.Sprintf("section%d_latitude", s), lat)
		write(fmt.Sprintf("section%d_longitude", s), lon)
		write(fmt.Sprintf("section%d_projection", s), proj)
		write(fmt.Sprintf("section%d_border", s), border)
		write(fmt.Sprintf("section%d_bounding_box", s), boundingBox(proj.Elements))
	}
	if err != nil {
		return fmt.Errorf("flexproj: writing mesh file %s: %v", filename, err)
	}
	if err := cdf.UpdateNumRecs(w); err != nil {
		return fmt.Errorf("flexproj: writing mesh file %s: %v", filename, err)
	}
	return nil
}

// LoadRasters reads one 2-D raster per section from a NetCDF file holding
// variables section0, section1, .... Values below minimum are clamped up
// to it. An empty filename stands for uniform rasters and returns nils.
func LoadRasters(filename string, minimum float64, sections int) ([]*sparse.DenseArray, error) {
	out := make([]*sparse.DenseArray, sections)
	if filename == "" {
		return out, nil
	}
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("flexproj: opening raster file: %v", err)
	}
	defer f.Close()
	ff, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("flexproj: reading raster file %s: %v", filename, err)
	}
	for h := 0; h < sections; h++ {
		data, err := readVar(ff, fmt.Sprintf("section%d", h))
		if err != nil {
			return nil, err
		}
		for i, v := range data.Elements {
			if v < minimum {
				data.Elements[i] = minimum
			}
		}
		out[h] = data
	}
	return out, nil
}

// readVar reads an entire variable from a NetCDF file into a dense array.
func readVar(ff *cdf.File, name string) (*sparse.DenseArray, error) {
	dims := ff.Header.Lengths(name)
	if len(dims) == 0 {
		return nil, fmt.Errorf("flexproj: read netcdf: variable %s not in file", name)
	}
	r := ff.Reader(name, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("flexproj: read netcdf variable %s: %v", name, err)
	}
	data := sparse.ZerosDense(dims...)
	switch v := buf.(type) {
	case []float64:
		copy(data.Elements, v)
	case []float32:
		for i, val := range v {
			data.Elements[i] = float64(val)
		}
	default:
		return nil, fmt.Errorf("flexproj: read netcdf variable %s: unsupported type %T", name, buf)
	}
	return data, nil
}

// writeNCF writes a dense array to a NetCDF variable.
func writeNCF(f *cdf.File, name string, data *sparse.DenseArray) error {
	n := 1
	for _, v := range data.Shape {
		n *= v
	}
	if len(data.Elements) != n {
		return fmt.Errorf("flexproj: write netcdf variable %s: dims are %d but "+
			"array length is %d", name, n, len(data.Elements))
	}
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	w := f.Writer(name, start, end)
	if _, err := w.Write(data.Elements); err != nil {
		return fmt.Errorf("flexproj: write netcdf variable %s: %v", name, err)
	}
	return nil
}

func attrString(ff *cdf.File, v, a string) (string, error) {
	val := ff.Header.GetAttribute(v, a)
	if val == nil {
		return "", fmt.Errorf("flexproj: read netcdf: attribute %s not in file", a)
	}
	if s, ok := val.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("flexproj: read netcdf: attribute %s is not a string", a)
}

// boundingBox computes the NaN-ignoring extent of a flattened array of
// (x, y) pairs, packaged as [[left, bottom], [right, top]].
func boundingBox(elements []float64) *sparse.DenseArray {
	out := sparse.ZerosDense(2, 2)
	left, bottom := math.Inf(1), math.Inf(1)
	right, top := math.Inf(-1), math.Inf(-1)
	for i := 0; i+1 < len(elements); i += 2 {
		x, y := elements[i], elements[i+1]
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		left = math.Min(left, x)
		right = math.Max(right, x)
		bottom = math.Min(bottom, y)
		top = math.Max(top, y)
	}
	out.Elements = []float64{left, bottom, right, top}
	return out
}

// dilate widens the true runs of a mask by distance entries in each
// direction.
func dilate(mask []bool, distance int) []bool {
	out := append([]bool(nil), mask...)
	for d := 0; d < distance; d++ {
		prev := append([]bool(nil), out...)
		for i := range out {
			if i > 0 && prev[i-1] {
				out[i] = true
			}
			if i < len(out)-1 && prev[i+1] {
				out[i] = true
			}
		}
	}
	return out
}

func maskIndices(mask []bool) []int {
	var out []int
	for i, m := range mask {
		if m {
			out = append(out, i)
		}
	}
	return out
}

func toRadians(deg []float64) []float64 {
	out := make([]float64, len(deg))
	for i, v := range deg {
		out[i] = v * math.Pi / 180
	}
	return out
}

func degrees1d(rad []float64) *sparse.DenseArray {
	out := sparse.ZerosDense(len(rad))
	for i, v := range rad {
		out.Elements[i] = v * 180 / math.Pi
	}
	return out
}
