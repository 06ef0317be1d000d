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
	"log"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
	"github.com/spatialmodel/flexproj/minimize"
)

// A Projector holds the state of a mesh optimization. It owns the node
// position vector exclusively: positions are only mutated between
// hierarchy levels, by the driver.
type Projector struct {
	// Tolerance is the convergence tolerance passed to the minimizer.
	// The default corresponds to 1 meter of mesh movement.
	Tolerance float64

	// Report, if non-nil, receives progress information from the
	// minimizer. Correctness must never depend on its side effects.
	Report minimize.ReportFunc

	// Plotter, if non-nil, renders diagnostic maps as the optimization
	// progresses.
	Plotter *Plotter

	// minimizer runs one minimization; it is a field so tests can
	// substitute a stub.
	minimizer func(minimize.Problem) ([]float64, error)

	mesh       *Mesh
	lookup     *sparse.DenseArrayInt
	positions  []geom.Point
	cells      []Cell
	dPhi, dLam []float64
}

// NewProjector prepares a mesh for optimization. weights and scales are
// per-section rasters of relative cell importance and target areal scale;
// nil entries (or nil slices) stand for uniform rasters.
func NewProjector(mesh *Mesh, weights, scales []*sparse.DenseArray) (*Projector, error) {
	if len(mesh.Lat) < 2 || len(mesh.Lon) < 2 {
		return nil, fmt.Errorf("flexproj: mesh grid is too small (%d×%d)",
			len(mesh.Lat), len(mesh.Lon))
	}
	if weights == nil {
		weights = make([]*sparse.DenseArray, mesh.Sections())
	}
	if scales == nil {
		scales = make([]*sparse.DenseArray, mesh.Sections())
	}

	// The grid rows and columns are assumed to be evenly spaced in angle.
	dPhi := Earth.MeridionalSpacing(mesh.Lat, mesh.Lat[1]-mesh.Lat[0])
	dLam := Earth.ParallelSpacing(mesh.Lat, mesh.Lon[1]-mesh.Lon[0])

	lookup, positions := enumerateNodes(mesh.Projection)
	cells := enumerateCells(lookup, weights, scales, dPhi, dLam, Earth.RadiusKm())

	return &Projector{
		Tolerance: 1e-3 / Earth.RadiusKm(),
		minimizer: minimize.Minimize,
		mesh:      mesh,
		lookup:    lookup,
		positions: positions,
		cells:     cells,
		dPhi:      dPhi,
		dLam:      dLam,
	}, nil
}

// Cells returns the cells over which distortion is measured.
func (p *Projector) Cells() []Cell { return p.cells }

// Positions returns the current node position vector.
func (p *Projector) Positions() []geom.Point { return p.positions }

// Strains returns the current major and minor principal strain of each
// cell.
func (p *Projector) Strains() (major, minor []float64) {
	return principalStrains(p.positions, p.cells, p.dPhi, p.dLam)
}

// schedule builds the hierarchy of (reduce, restore) operator pairs,
// ordered coarsest first and terminated by the no-op identity pair. The
// coarsening factors follow a geometric progression from a tenth of the
// number of grid rows down to 1.
func (p *Projector) schedule() ([][2]Operator, error) {
	start := float64(len(p.mesh.Lat)) / 10
	levels := 0
	if start > 1 {
		levels = int(math.Log2(start)) + 1
	}
	var out [][2]Operator
	for k := 0; k < levels; k++ {
		f := start
		if levels > 1 {
			f = start * math.Pow(1/start, float64(k)/float64(levels-1))
		}
		reduce, restore, err := meshSkeleton(p.lookup, int(math.Ceil(f)), p.mesh.Lat)
		if err != nil {
			return nil, err
		}
		out = append(out, [2]Operator{reduce, restore})
	}
	return append(out, [2]Operator{Unit{}, Unit{}}), nil
}

// Run optimizes the mesh, progressing from the coarsest skeleton to the
// full resolution and then, if any cell is still folded over, making a
// final rescue pass with the aggressive objective. Levels run strictly in
// order; each level's restored output seeds the next reduction.
func (p *Projector) Run() error {
	schedule, err := p.schedule()
	if err != nil {
		return err
	}
	log.Printf("flexproj: begin fitting a %d-node mesh with %d cells over %d levels",
		len(p.positions), len(p.cells), len(schedule))

	for li, level := range schedule {
		reduce, restore := level[0], level[1]
		reduced := reduce.Apply(p.positions)
		log.Printf("flexproj: level %d of %d: %d degrees of freedom",
			li+1, len(schedule), 2*len(reduced))
		x, err := p.minimizer(minimize.Problem{
			Primary:   p.strictEnergy(restore),
			Fallback:  p.lenientEnergy(restore),
			Guess:     pointsToVec(reduced),
			Report:    p.report(restore, li),
			Tolerance: p.Tolerance,
		})
		if err != nil {
			return fmt.Errorf("flexproj: level %d of %d: %w", li+1, len(schedule), err)
		}
		p.positions = restore.Apply(vecToPoints(x))
	}

	// The mesh should by now be well-behaved. If it is not, whip it into
	// shape with the aggressive objective.
	if p.foldedOver() {
		log.Print("flexproj: mesh still contains folded cells; making a rescue pass")
		x, err := p.minimizer(minimize.Problem{
			Primary:   p.strictEnergy(Unit{}),
			Fallback:  p.aggressiveEnergy(Unit{}),
			Guess:     pointsToVec(p.positions),
			Report:    p.report(Unit{}, len(schedule)),
			Tolerance: p.Tolerance,
		})
		if err != nil {
			return fmt.Errorf("flexproj: rescue pass: %w", err)
		}
		p.positions = vecToPoints(x)
	}
	return nil
}

// foldedOver reports whether any cell currently has a non-positive
// principal strain.
func (p *Projector) foldedOver() bool {
	major, minor := p.Strains()
	for i := range major {
		if major[i] <= 0 || minor[i] <= 0 {
			return true
		}
	}
	return false
}

// report builds the progress callback for one hierarchy level, combining
// the user's callback with the diagnostic plotter.
func (p *Projector) report(restore Operator, level int) minimize.ReportFunc {
	if p.Plotter == nil {
		return p.Report
	}
	plot := p.Plotter.reportFunc(p, restore, level)
	if p.Report == nil {
		return plot
	}
	user := p.Report
	return func(x []float64, value float64, grad, step []float64, final bool) {
		user(x, value, grad, step, final)
		plot(x, value, grad, step, final)
	}
}

// Result scatters the optimized node positions back into an array with
// the mesh's original (section, row, col, 2) shape and returns a copy of
// the mesh holding it.
func (p *Projector) Result() *Mesh {
	out := *p.mesh
	out.Projection = scatterPositions(p.lookup, p.positions)
	return &out
}
