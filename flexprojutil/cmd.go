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

// Package flexprojutil holds the command-line interface for the flexproj
// map projection optimizer.
package flexprojutil

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/spatialmodel/flexproj"
)

var configFile string

func init() {
	Root.PersistentFlags().StringVar(&configFile, "config", "",
		"configuration file location")
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "flexproj",
	Short: "An optimizer for low-distortion map projections.",
	Long: `flexproj fits a planar map projection to the Earth by minimizing the
scale and shape distortion of a mesh of grid vertices. Use the subcommands
specified below to access the model functionality.

Configuration is provided through a TOML file whose path is given with the
--config flag. Path fields in the file may contain environment variables.`,
	DisableAutoGenTag: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of flexproj.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("flexproj v%s\n", flexproj.Version)
	},
	DisableAutoGenTag: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Optimize a map projection.",
	Long: `run reads the initial mesh and rasters named in the configuration
file, minimizes the projection's distortion, and writes the optimized mesh
to the output file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if configFile == "" {
			return fmt.Errorf("flexproj: the --config flag is required")
		}
		cfg, err := ReadConfig(configFile)
		if err != nil {
			return err
		}
		return Run(cfg)
	},
	DisableAutoGenTag: true,
}

// Run executes one projection optimization as described by cfg.
func Run(cfg *ConfigData) error {
	mesh, err := flexproj.LoadMesh(cfg.MeshFile)
	if err != nil {
		return err
	}
	log.Printf("flexproj: optimizing %s (%d sections)", mesh.Name, mesh.Sections())

	weights, err := flexproj.LoadRasters(cfg.WeightsFile, cfg.MinimumWeight, mesh.Sections())
	if err != nil {
		return err
	}
	scales, err := flexproj.LoadRasters(cfg.ScaleFile, cfg.MinimumWeight, mesh.Sections())
	if err != nil {
		return err
	}

	p, err := flexproj.NewProjector(mesh, weights, scales)
	if err != nil {
		return err
	}
	if cfg.Tolerance > 0 {
		p.Tolerance = cfg.Tolerance
	}
	if cfg.PlotDir != "" {
		if err := os.MkdirAll(cfg.PlotDir, 0755); err != nil {
			return fmt.Errorf("flexproj: creating plot directory: %v", err)
		}
		p.Plotter = &flexproj.Plotter{Dir: cfg.PlotDir, Every: cfg.PlotEvery}
		if cfg.CoastlineFile != "" {
			p.Plotter.Coastlines, err = flexproj.LoadCoastlines(
				cfg.CoastlineFile, cfg.CoastlineStride)
			if err != nil {
				return err
			}
		}
	}

	if err := p.Run(); err != nil {
		return err
	}
	return flexproj.SaveMesh(cfg.OutputFile, p.Result())
}
