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

// Package minimize adapts a generic iterative minimizer to the objective
// escalation scheme used by the mesh optimizer.
//
// A Problem carries a primary objective and an optional fallback. The
// fallback takes over whenever the primary is not finite at the current
// point, and runs only until the primary becomes finite again (or until
// the fallback itself returns -Inf, which means the goal is already met).
// The underlying iterative method is quasi-Newton L-BFGS with gradients
// estimated by finite differences.
package minimize

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// An Objective is a scalar function to be minimized. It may return +Inf
// to reject a point, and a fallback objective may return -Inf to signal
// that the caller's goal is met and iteration should stop.
type Objective func(x []float64) float64

// A ReportFunc receives progress information after each major iteration
// of the minimizer: the current point, its objective value, the gradient,
// the step from the previous point (nil on the first iteration), and
// whether this is the final iteration. Implementations must not retain x,
// grad, or step.
type ReportFunc func(x []float64, value float64, grad, step []float64, final bool)

// Bounds restricts the search to a box: the objective is treated as +Inf
// outside of it.
type Bounds struct {
	Min, Max []float64
}

// A Problem describes a minimization.
type Problem struct {
	// Primary is the objective to minimize.
	Primary Objective

	// Fallback, if non-nil, is minimized instead whenever Primary is not
	// finite at the current point.
	Fallback Objective

	// Guess is the initial point.
	Guess []float64

	// Bounds, if non-nil, restricts the search to a box.
	Bounds *Bounds

	// Report, if non-nil, is called after each major iteration.
	Report ReportFunc

	// Tolerance is the convergence tolerance for both the objective value
	// and the gradient norm.
	Tolerance float64
}

// A NonConvergenceError reports that the minimizer failed to reach its
// convergence tolerance.
type NonConvergenceError struct {
	// Status is the status the underlying method stopped with.
	Status optimize.Status
	// Err is the underlying error, if any.
	Err error
}

func (e *NonConvergenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("minimize: failed to converge (status %v): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("minimize: failed to converge (status %v)", e.Status)
}

func (e *NonConvergenceError) Unwrap() error { return e.Err }

const (
	// maxEscalations bounds the number of times Minimize will switch
	// between the primary and fallback objectives before giving up.
	maxEscalations = 20

	// convergenceIterations is the number of major iterations over which
	// the objective value must change by less than the tolerance for the
	// method to be considered converged.
	convergenceIterations = 10
)

// Minimize minimizes p.Primary starting from p.Guess and returns the
// converged point. Whenever the primary objective is not finite at the
// current point, the fallback objective is minimized in its place until
// the primary becomes finite; a fallback value of -Inf stops immediately
// and returns the current point. Failure to converge is reported as a
// *NonConvergenceError; there are no retries beyond the fallback
// escalation.
func Minimize(p Problem) ([]float64, error) {
	report := p.Report
	if report == nil {
		report = func([]float64, float64, []float64, []float64, bool) {}
	}
	primary := bounded(p.Primary, p.Bounds)
	x := append([]float64(nil), p.Guess...)

	for escalation := 0; escalation < maxEscalations; escalation++ {
		if isFinite(primary(x)) {
			loc, err := descend(primary, x, p.Tolerance, report, nil)
			if err != nil {
				return nil, err
			}
			report(loc.X, loc.F, loc.Gradient, nil, true)
			return loc.X, nil
		}
		if p.Fallback == nil {
			return nil, &NonConvergenceError{Err: errors.New(
				"the objective is not finite at the initial point and there is no fallback")}
		}

		// Bootstrap: descend the fallback until the primary becomes
		// usable again.
		goal := &escape{primary: primary}
		loc, err := descend(goal.wrap(bounded(p.Fallback, p.Bounds)), x, p.Tolerance, report, goal)
		if err != nil {
			return nil, err
		}
		x = loc.X
		if goal.met {
			report(loc.X, loc.F, loc.Gradient, nil, true)
			return loc.X, nil
		}
	}
	return nil, &NonConvergenceError{Err: errors.New(
		"the objective escalation limit was reached without convergence")}
}

// descend runs L-BFGS on f from x0. If esc is non-nil the descent also
// stops as soon as esc reports that it can be escaped.
func descend(f func(x []float64) float64, x0 []float64, tolerance float64,
	report ReportFunc, esc *escape) (*optimize.Location, error) {
	prob := optimize.Problem{
		Func: f,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, f, x, nil)
		},
	}
	var conv optimize.Converger = &optimize.FunctionConverge{
		Absolute:   tolerance,
		Iterations: convergenceIterations,
	}
	if esc != nil {
		conv = &escapeConverger{inner: conv, state: esc}
	}
	settings := &optimize.Settings{
		Converger:         conv,
		GradientThreshold: tolerance,
		Recorder:          &reporter{report: report},
	}
	result, err := optimize.Minimize(prob, x0, settings, &optimize.LBFGS{})
	if err != nil {
		e := &NonConvergenceError{Err: err}
		if result != nil {
			e.Status = result.Status
		}
		return nil, e
	}
	return &result.Location, nil
}

// escape tracks the conditions under which a fallback descent should hand
// control back to the primary objective.
type escape struct {
	primary func(x []float64) float64
	met     bool
}

// wrap substitutes a large negative finite value when the fallback
// signals that the goal is met, so that the method can finish its
// iteration before the converger stops it.
func (s *escape) wrap(f func(x []float64) float64) func(x []float64) float64 {
	return func(x []float64) float64 {
		v := f(x)
		if math.IsInf(v, -1) {
			s.met = true
			return -math.MaxFloat64
		}
		return v
	}
}

type escapeConverger struct {
	inner optimize.Converger
	state *escape
}

func (c *escapeConverger) Init(dim int) { c.inner.Init(dim) }

func (c *escapeConverger) Converged(loc *optimize.Location) optimize.Status {
	if c.state.met || isFinite(c.state.primary(loc.X)) {
		return optimize.FunctionConvergence
	}
	return c.inner.Converged(loc)
}

// reporter adapts a ReportFunc to the optimizer's recorder interface.
type reporter struct {
	report ReportFunc
	lastX  []float64
}

func (r *reporter) Init() error {
	r.lastX = nil
	return nil
}

func (r *reporter) Record(loc *optimize.Location, op optimize.Operation, _ *optimize.Stats) error {
	if op != optimize.MajorIteration {
		return nil
	}
	var step []float64
	if r.lastX != nil {
		step = make([]float64, len(loc.X))
		floats.SubTo(step, loc.X, r.lastX)
	}
	r.lastX = append(r.lastX[:0], loc.X...)
	r.report(loc.X, loc.F, loc.Gradient, step, false)
	return nil
}

func bounded(f Objective, b *Bounds) func(x []float64) float64 {
	if b == nil {
		return f
	}
	return func(x []float64) float64 {
		for i, v := range x {
			if v < b.Min[i] || v > b.Max[i] {
				return math.Inf(1)
			}
		}
		return f(x)
	}
}

func isFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
