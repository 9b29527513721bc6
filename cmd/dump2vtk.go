/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"io"
	"runtime"
	"strconv"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/weircfd/engine"
	"github.com/notargets/weircfd/mesh"
	"github.com/notargets/weircfd/model_problems/Weir"
	"github.com/notargets/weircfd/output"
)

const DefaultVTKResolution = 512

// DumpFields are the fields a converted checkpoint carries
var DumpFields = []engine.FieldID{engine.Phase, engine.Pressure, engine.VelX, engine.VelY}

// Dump2VTKCmd converts a checkpoint into a VTK structured points file
var Dump2VTKCmd = &cobra.Command{
	Use:   "dump2vtk [dump_file] [vtk_file] [resolution]",
	Short: "Restore a checkpoint and sample f, p, u.x, u.y on a uniform grid in VTK format",
	Long: `
Restores a checkpoint written by run and writes the liquid fraction, pressure
and velocity sampled on a resolution x resolution grid as legacy VTK.

weircfd dump2vtk run/dump-final dump.vtk 512`,
	Args: cobra.MaximumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			dumpFile = Weir.FinalDump
			vtkFile  = "dump.vtk"
			n        = DefaultVTKResolution
		)
		if len(args) > 0 {
			dumpFile = args[0]
		}
		if len(args) > 1 {
			vtkFile = args[1]
		}
		if len(args) > 2 {
			if n, err = strconv.Atoi(args[2]); err != nil || n < 1 {
				return fmt.Errorf("invalid resolution %q", args[2])
			}
		}
		return DumpToVTK(cmd.OutOrStdout(), dumpFile, vtkFile, n, runtime.NumCPU())
	},
}

func init() {
	rootCmd.AddCommand(Dump2VTKCmd)
}

func DumpToVTK(w io.Writer, dumpFile, vtkFile string, n, procs int) (err error) {
	var (
		eng = engine.NewReference(mesh.NewTree(2, r3.Vec{}, 1, 0, procs), logger)
		ok  bool
	)
	if ok, err = eng.CheckpointRestore(dumpFile); err != nil || !ok {
		if err == nil {
			err = engine.ErrRestore
		}
		return fmt.Errorf("could not restore dump file: %s: %w", dumpFile, err)
	}
	if err = output.WriteStructured(vtkFile, eng, DumpFields, n); err != nil {
		return fmt.Errorf("could not open VTK output file: %s: %w", vtkFile, err)
	}
	fmt.Fprintf(w, "Wrote %s from %s (n=%d)\n", vtkFile, dumpFile, n)
	return
}
