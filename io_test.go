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
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/cdf"
	"github.com/ctessum/geom"
)

func TestMeshRoundTrip(t *testing.T) {
	mesh := testMesh(5, 5, false)
	mesh.Description = "a mesh for testing"
	mesh.Borders[0] = []geom.Point{
		{X: -0.02, Y: -0.02}, {X: 0.02, Y: -0.02},
		{X: 0.02, Y: 0.02}, {X: -0.02, Y: 0.02},
	}
	mesh.Projection.Set(math.NaN(), 0, 0, 0, 0)
	mesh.Projection.Set(math.NaN(), 0, 0, 0, 1)

	file := filepath.Join(t.TempDir(), "mesh.nc")
	if err := SaveMesh(file, mesh); err != nil {
		t.Fatal(err)
	}
	back, err := LoadMesh(file)
	if err != nil {
		t.Fatal(err)
	}

	if back.Name != mesh.Name {
		t.Errorf("name: want %q but have %q", mesh.Name, back.Name)
	}
	if back.Description != mesh.Description {
		t.Errorf("description: want %q but have %q", mesh.Description, back.Description)
	}
	if want, have := mesh.SectionNames[0], back.SectionNames[0]; want != have {
		t.Errorf("section name: want %q but have %q", want, have)
	}

	const tol = 1e-12
	for i := range mesh.Lat {
		if math.Abs(back.Lat[i]-mesh.Lat[i]) > tol {
			t.Errorf("latitude %d: want %v but have %v", i, mesh.Lat[i], back.Lat[i])
		}
		if math.Abs(back.Lon[i]-mesh.Lon[i]) > tol {
			t.Errorf("longitude %d: want %v but have %v", i, mesh.Lon[i], back.Lon[i])
		}
	}

	for i := range mesh.Projection.Elements {
		want, have := mesh.Projection.Elements[i], back.Projection.Elements[i]
		if math.IsNaN(want) != math.IsNaN(have) || (!math.IsNaN(want) && want != have) {
			t.Errorf("projection element %d: want %v but have %v", i, want, have)
		}
	}

	if want, have := len(mesh.Borders[0]), len(back.Borders[0]); want != have {
		t.Fatalf("border length: want %d but have %d", want, have)
	}
	for i, want := range mesh.Borders[0] {
		have := back.Borders[0][i]
		if math.Abs(have.X-want.X) > tol || math.Abs(have.Y-want.Y) > tol {
			t.Errorf("border vertex %d: want %v but have %v", i, want, have)
		}
	}
}

func TestLoadRastersUniform(t *testing.T) {
	rasters, err := LoadRasters("", 0.03, 3)
	if err != nil {
		t.Fatal(err)
	}
	if want, have := 3, len(rasters); want != have {
		t.Fatalf("number of rasters: want %d but have %d", want, have)
	}
	for i, r := range rasters {
		if r != nil {
			t.Errorf("raster %d: want nil but have %v", i, r)
		}
	}
}

func TestLoadRastersClamp(t *testing.T) {
	file := filepath.Join(t.TempDir(), "raster.nc")

	h := cdf.NewHeader([]string{"y", "x"}, []int{2, 2})
	h.AddVariable("section0", []string{"y", "x"}, []float64{0})
	h.Define()
	w, err := os.Create(file)
	if err != nil {
		t.Fatal(err)
	}
	f, err := cdf.Create(w, h)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Writer("section0", []int{0, 0}, []int{2, 2}).Write(
		[]float64{0, 0.01, 0.5, 1}); err != nil {
		t.Fatal(err)
	}
	if err := cdf.UpdateNumRecs(w); err != nil {
		t.Fatal(err)
	}
	w.Close()

	rasters, err := LoadRasters(file, 0.03, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0.03, 0.03, 0.5, 1}
	for i, v := range rasters[0].Elements {
		if v != want[i] {
			t.Errorf("element %d: want %v but have %v", i, want[i], v)
		}
	}
}

func TestBoundingBox(t *testing.T) {
	nan := math.NaN()
	box := boundingBox([]float64{1, 2, -3, 7, nan, nan, 5, -1})
	want := []float64{-3, -1, 5, 7}
	for i, v := range box.Elements {
		if v != want[i] {
			t.Errorf("element %d: want %v but have %v", i, want[i], v)
		}
	}
}

func TestDilate(t *testing.T) {
	have := dilate([]bool{false, false, true, false, false}, 1)
	want := []bool{false, true, true, true, false}
	for i := range want {
		if have[i] != want[i] {
			t.Errorf("element %d: want %v but have %v", i, want[i], have[i])
		}
	}
}
