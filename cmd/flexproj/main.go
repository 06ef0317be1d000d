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

// Command flexproj is a command-line interface for the flexproj map
// projection optimizer.
package main

import (
	"fmt"
	"os"

	"github.com/spatialmodel/flexproj/flexprojutil"
)

func main() {
	if err := flexprojutil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
