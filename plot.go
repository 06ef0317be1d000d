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
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/carto"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/sparse"
	"gonum.org/v1/plot/vg"
	vgdraw "gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/spatialmodel/flexproj/minimize"
)

// A Plotter renders diagnostic maps of the mesh as the optimization
// progresses, one PNG frame per reported iteration. The frames show the
// mesh graticule, any loaded coastlines warped through the current
// projection, and cells that are currently folded over themselves.
type Plotter struct {
	// Dir is the directory where frames are written.
	Dir string

	// Coastlines are geographic lines, in radians, to warp through the
	// projection and draw on each frame. See LoadCoastlines.
	Coastlines []geom.LineString

	// Every controls how often frames are written: one frame per Every
	// reported iterations. If zero, it defaults to 10. The final
	// iteration of each hierarchy level is always drawn.
	Every int

	// Width is the frame width in pixels. If zero, it defaults to 800.
	Width int

	frame int
}

var (
	graticuleColor = color.NRGBA{R: 0, G: 62, B: 123, A: 255}
	coastColor     = color.NRGBA{R: 40, G: 40, B: 40, A: 255}
	foldColor      = color.NRGBA{R: 255, G: 95, B: 0, A: 255}
	noFill         = color.NRGBA{A: 0}
)

// LoadCoastlines reads line geometry from a shapefile for use as plot
// decoration, converting coordinates from degrees to radians. Every
// stride-th vertex is kept, and shapes too short to survive the
// decimation are dropped.
func LoadCoastlines(filename string, stride int) ([]geom.LineString, error) {
	if stride < 1 {
		stride = 1
	}
	d, err := shp.NewDecoder(filename)
	if err != nil {
		return nil, fmt.Errorf("flexproj: opening coastline file: %v", err)
	}
	defer d.Close()
	var out []geom.LineString
	for {
		g, _, more := d.DecodeRowFields()
		if !more {
			break
		}
		for _, line := range geomLines(g) {
			if len(line) <= 3*stride {
				continue
			}
			decimated := make(geom.LineString, 0, len(line)/stride+1)
			for i := 0; i < len(line); i += stride {
				decimated = append(decimated, geom.Point{
					X: line[i].X * math.Pi / 180,
					Y: line[i].Y * math.Pi / 180,
				})
			}
			out = append(out, decimated)
		}
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("flexproj: reading coastline file %s: %v", filename, err)
	}
	return out, nil
}

// geomLines extracts the line paths from a geometry, treating polygon
// rings as closed lines.
func geomLines(g geom.Geom) []geom.LineString {
	switch t := g.(type) {
	case geom.LineString:
		return []geom.LineString{t}
	case geom.MultiLineString:
		return t
	case geom.Polygon:
		var out []geom.LineString
		for _, ring := range t {
			out = append(out, geom.LineString(ring))
		}
		return out
	case geom.MultiPolygon:
		var out []geom.LineString
		for _, p := range t {
			out = append(out, geomLines(p)...)
		}
		return out
	default:
		return nil
	}
}

// reportFunc builds a progress callback that renders one frame per Every
// reported iterations of one hierarchy level.
func (pl *Plotter) reportFunc(p *Projector, restore Operator, level int) minimize.ReportFunc {
	every := pl.Every
	if every <= 0 {
		every = 10
	}
	iteration := 0
	return func(x []float64, value float64, grad, step []float64, final bool) {
		iteration++
		if !final && iteration%every != 0 {
			return
		}
		positions := restore.Apply(vecToPoints(x))
		name := filepath.Join(pl.Dir, fmt.Sprintf("level%d_%05d.png", level, pl.frame))
		pl.frame++
		if err := pl.render(p, positions, name); err != nil {
			// Plotting is diagnostic only, so a failed frame doesn't
			// interrupt the optimization.
			fmt.Fprintf(os.Stderr, "flexproj: rendering %s: %v\n", name, err)
		}
	}
}

// render draws the mesh at the given node positions to a PNG file.
func (pl *Plotter) render(p *Projector, positions []geom.Point, filename string) error {
	var flat []float64
	for _, pos := range positions {
		flat = append(flat, pos.X, pos.Y)
	}
	bbox := boundingBox(flat)
	left, bottom, right, top := bbox.Elements[0], bbox.Elements[1], bbox.Elements[2], bbox.Elements[3]
	marginX := (right - left) * 0.05
	marginY := (top - bottom) * 0.05
	W, E := left-marginX, right+marginX
	S, N := bottom-marginY, top+marginY

	width := pl.Width
	if width <= 0 {
		width = 800
	}
	height := int(float64(width) * (N - S) / (E - W))
	if height <= 0 {
		height = width
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	c := vgimg.NewWith(vgimg.UseImage(img))
	dc := vgdraw.New(c)
	m := carto.NewCanvas(N, S, E, W, dc)

	grid := scatterPositions(p.lookup, positions)

	major, minor := principalStrains(positions, p.cells, p.dPhi, p.dLam)
	foldStyle := vgdraw.LineStyle{Width: 0.3 * vg.Millimeter, Color: foldColor}
	for k, cell := range p.cells {
		if major[k] > 0 && minor[k] > 0 {
			continue
		}
		quad := geom.Polygon{{
			positions[cell.West], positions[cell.South],
			positions[cell.East], positions[cell.North],
		}}
		if err := m.DrawVector(quad, foldColor, foldStyle, vgdraw.GlyphStyle{}); err != nil {
			return err
		}
	}

	gratStyle := vgdraw.LineStyle{Width: 0.1 * vg.Millimeter, Color: graticuleColor}
	for _, line := range graticule(grid) {
		if err := m.DrawVector(line, noFill, gratStyle, vgdraw.GlyphStyle{}); err != nil {
			return err
		}
	}

	coastStyle := vgdraw.LineStyle{Width: 0.2 * vg.Millimeter, Color: coastColor}
	for h := 0; h < grid.Shape[0]; h++ {
		for _, coast := range pl.Coastlines {
			for _, line := range warpLine(p.mesh, grid, h, coast) {
				if err := m.DrawVector(line, noFill, coastStyle, vgdraw.GlyphStyle{}); err != nil {
					return err
				}
			}
		}
	}

	w, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer w.Close()
	png := vgimg.PngCanvas{Canvas: c}
	_, err = png.WriteTo(w)
	return err
}

// graticule converts a (section, row, col, 2) position grid into the
// line strings tracing its rows and columns, breaking each line wherever
// the grid is undefined.
func graticule(grid *sparse.DenseArray) []geom.LineString {
	var out []geom.LineString
	sections, rows, cols := grid.Shape[0], grid.Shape[1], grid.Shape[2]
	emit := func(line geom.LineString) geom.LineString {
		if len(line) > 1 {
			out = append(out, line)
		}
		return nil
	}
	for h := 0; h < sections; h++ {
		for i := 0; i < rows; i++ {
			var line geom.LineString
			for j := 0; j < cols; j++ {
				x, y := grid.Get(h, i, j, 0), grid.Get(h, i, j, 1)
				if math.IsNaN(x) {
					line = emit(line)
					continue
				}
				line = append(line, geom.Point{X: x, Y: y})
			}
			emit(line)
		}
		for j := 0; j < cols; j++ {
			var line geom.LineString
			for i := 0; i < rows; i++ {
				x, y := grid.Get(h, i, j, 0), grid.Get(h, i, j, 1)
				if math.IsNaN(x) {
					line = emit(line)
					continue
				}
				line = append(line, geom.Point{X: x, Y: y})
			}
			emit(line)
		}
	}
	return out
}

// warpLine maps a geographic line through one section of the projection
// by bilinear interpolation on the position grid, splitting the line
// wherever it leaves the section's defined region.
func warpLine(m *Mesh, grid *sparse.DenseArray, h int, line geom.LineString) []geom.LineString {
	var out []geom.LineString
	var current geom.LineString
	for _, v := range line {
		pt, ok := interpolatePosition(m, grid, h, v.Y, v.X)
		if !ok {
			if len(current) > 1 {
				out = append(out, current)
			}
			current = nil
			continue
		}
		current = append(current, pt)
	}
	if len(current) > 1 {
		out = append(out, current)
	}
	return out
}

// interpolatePosition bilinearly interpolates the planar position of a
// geographic point within section h of the position grid. It reports
// false when any of the four surrounding grid vertices is undefined.
func interpolatePosition(m *Mesh, grid *sparse.DenseArray, h int, lat, lon float64) (geom.Point, bool) {
	i, fi, ok := gridFraction(m.Lat, lat)
	if !ok {
		return geom.Point{}, false
	}
	j, fj, ok := gridFraction(m.Lon, lon)
	if !ok {
		return geom.Point{}, false
	}
	var pt geom.Point
	for _, c := range [4]struct {
		di, dj int
		w      float64
	}{
		{0, 0, (1 - fi) * (1 - fj)},
		{0, 1, (1 - fi) * fj},
		{1, 0, fi * (1 - fj)},
		{1, 1, fi * fj},
	} {
		x := grid.Get(h, i+c.di, j+c.dj, 0)
		y := grid.Get(h, i+c.di, j+c.dj, 1)
		if math.IsNaN(x) {
			return geom.Point{}, false
		}
		pt.X += c.w * x
		pt.Y += c.w * y
	}
	return pt, true
}

// gridFraction locates v within the sorted coordinate axis, returning
// the lower bracketing index and the fractional position within the
// bracket.
func gridFraction(axis []float64, v float64) (int, float64, bool) {
	if len(axis) < 2 || v < axis[0] || v > axis[len(axis)-1] {
		return 0, 0, false
	}
	i := sort.SearchFloat64s(axis, v) - 1
	if i < 0 {
		i = 0
	}
	if i > len(axis)-2 {
		i = len(axis) - 2
	}
	return i, (v - axis[i]) / (axis[i+1] - axis[i]), true
}
