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

package flexprojutil

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// ConfigData holds the projection run configuration. Any field may
// contain environment variables in $VAR or ${VAR} format.
type ConfigData struct {
	// MeshFile is the path to the NetCDF file holding the initial
	// projection mesh.
	MeshFile string

	// OutputFile is the path where the optimized mesh will be written.
	OutputFile string

	// WeightsFile is the path to the NetCDF file holding the per-section
	// importance rasters. An empty string means uniform weighting.
	WeightsFile string

	// ScaleFile is the path to the NetCDF file holding the per-section
	// target scale rasters. An empty string means uniform scale.
	ScaleFile string

	// MinimumWeight is the floor applied to raster values so that no
	// region is weighted all the way down to zero. If zero, it defaults
	// to 0.03.
	MinimumWeight float64

	// Tolerance is the convergence tolerance in kilometers. If zero, a
	// default proportional to the size of the Earth is used.
	Tolerance float64

	// PlotDir, if nonempty, is a directory where diagnostic map frames
	// will be written as the optimization progresses.
	PlotDir string

	// PlotEvery is the number of iterations between diagnostic frames.
	PlotEvery int

	// CoastlineFile is the path to a shapefile of coastlines to draw on
	// diagnostic frames.
	CoastlineFile string

	// CoastlineStride keeps every nth coastline vertex.
	CoastlineStride int
}

// ReadConfig reads and parses a TOML configuration file, expanding any
// environment variables the path fields contain and applying defaults.
func ReadConfig(filename string) (*ConfigData, error) {
	cfg := new(ConfigData)
	if _, err := toml.DecodeFile(filename, cfg); err != nil {
		return nil, fmt.Errorf("flexproj: problem reading configuration file: %v", err)
	}
	cfg.MeshFile = os.ExpandEnv(cfg.MeshFile)
	cfg.OutputFile = os.ExpandEnv(cfg.OutputFile)
	cfg.WeightsFile = os.ExpandEnv(cfg.WeightsFile)
	cfg.ScaleFile = os.ExpandEnv(cfg.ScaleFile)
	cfg.PlotDir = os.ExpandEnv(cfg.PlotDir)
	cfg.CoastlineFile = os.ExpandEnv(cfg.CoastlineFile)
	if cfg.MeshFile == "" {
		return nil, fmt.Errorf("flexproj: configuration file %s does not set MeshFile", filename)
	}
	if cfg.OutputFile == "" {
		return nil, fmt.Errorf("flexproj: configuration file %s does not set OutputFile", filename)
	}
	if cfg.MinimumWeight == 0 {
		cfg.MinimumWeight = 0.03
	}
	if cfg.CoastlineStride == 0 {
		cfg.CoastlineStride = 1
	}
	return cfg, nil
}
