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
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/notargets/weircfd/diagnostics"
	"github.com/notargets/weircfd/model_problems/Weir"
	"github.com/notargets/weircfd/output"
)

// PlotCmd draws the time series of a run
var PlotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Plot head and discharge of a run against the sharp crested weir formulas",
	RunE: func(cmd *cobra.Command, args []string) error {
		csv, _ := cmd.Flags().GetString("csv")
		out, _ := cmd.Flags().GetString("out")
		crest, _ := cmd.Flags().GetFloat64("crest")
		return PlotRun(cmd.OutOrStdout(), csv, out, crest)
	},
}

func init() {
	rootCmd.AddCommand(PlotCmd)
	PlotCmd.Flags().String("csv", filepath.Join("run", diagnostics.TimeSeriesFile), "time series written by run")
	PlotCmd.Flags().String("out", "", "directory for the PNG files (default is the directory of the time series)")
	PlotCmd.Flags().Float64("crest", 0, "crest height (default is read from the run manifest)")
}

// PlotRun writes the plots of a time series. Without a crest height the one
// recorded in the manifest next to the time series is used.
func PlotRun(w io.Writer, csvFile, outDir string, crest float64) (err error) {
	var (
		samples []diagnostics.Sample
		paths   []string
		dir     = filepath.Dir(csvFile)
	)
	if outDir == "" {
		outDir = dir
	}
	if crest <= 0 {
		if m, merr := Weir.ReadManifest(filepath.Join(dir, Weir.ManifestFile)); merr == nil {
			crest = m.Parameters.CrestHeight
		} else {
			logger.Debug("no manifest", zap.Error(merr))
		}
	}
	if samples, err = diagnostics.ReadTimeSeries(csvFile); err != nil {
		return
	}
	if paths, err = output.PlotTimeSeries(samples, crest, outDir); err != nil {
		return
	}
	for _, p := range paths {
		fmt.Fprintf(w, "Wrote %s\n", p)
	}
	return
}
