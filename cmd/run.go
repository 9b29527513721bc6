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
	"io/ioutil"
	"runtime"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/notargets/weircfd/InputParameters"
	"github.com/notargets/weircfd/model_problems/Weir"
)

type ModelRun struct {
	CaseName  string
	ICFile    string
	Restore   string
	Profile   string
	PrintCase bool
	Options   Weir.Options
}

// RunCmd represents the run command
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a weir case",
	Long: `
Runs one of the compiled-in cases, optionally overriding its parameters from a
YAML file. Results go to the run directory: time series, VTK snapshots,
checkpoints and the run manifest.

weircfd run --case weir-2d-reservoir -I params.yaml --runDir run`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		mr := &ModelRun{}
		if mr.CaseName, err = cmd.Flags().GetString("case"); err != nil {
			return
		}
		mr.ICFile, _ = cmd.Flags().GetString("inputConditionsFile")
		mr.Restore, _ = cmd.Flags().GetString("restore")
		mr.Profile, _ = cmd.Flags().GetString("profile")
		mr.PrintCase, _ = cmd.Flags().GetBool("print")
		mr.Options = Weir.Options{
			RunDir:  viper.GetString("runDir"),
			Procs:   viper.GetInt("procs"),
			Restore: mr.Restore,
		}
		cp, err := processInput(mr)
		if err != nil {
			return
		}
		return RunCase(mr, cp)
	},
}

func init() {
	rootCmd.AddCommand(RunCmd)
	RunCmd.Flags().StringP("case", "c", "sharp-crested-weir-2d", "compiled-in case to run, see the cases command")
	RunCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file overriding case parameters like:\n\t- TEnd\n\t- InflowU, InflowH, RampTime")
	RunCmd.Flags().StringP("runDir", "r", "run", "directory for all output of the run")
	RunCmd.Flags().IntP("procs", "p", runtime.NumCPU(), "number of go routines working on the mesh")
	RunCmd.Flags().String("restore", "", "checkpoint file to resume from")
	RunCmd.Flags().String("profile", "", "write a cpu or mem profile into the run directory")
	RunCmd.Flags().Bool("print", false, "print the case parameters before running")
	_ = viper.BindPFlag("runDir", RunCmd.Flags().Lookup("runDir"))
	_ = viper.BindPFlag("procs", RunCmd.Flags().Lookup("procs"))
}

func processInput(mr *ModelRun) (cp InputParameters.CaseParameters, err error) {
	if cp, err = InputParameters.Case(mr.CaseName); err != nil {
		return
	}
	if len(mr.ICFile) != 0 {
		var data []byte
		if data, err = ioutil.ReadFile(mr.ICFile); err != nil {
			return
		}
		if err = cp.Parse(data); err != nil {
			return cp, fmt.Errorf("%s: %w", mr.ICFile, err)
		}
	}
	if mr.PrintCase {
		cp.Print()
	}
	err = cp.Validate()
	return
}

func RunCase(mr *ModelRun, cp InputParameters.CaseParameters) (err error) {
	switch mr.Profile {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(mr.Options.RunDir), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(mr.Options.RunDir), profile.NoShutdownHook).Stop()
	default:
		return fmt.Errorf("unknown profile %q, use cpu or mem", mr.Profile)
	}
	ws, err := Weir.NewWeir(cp, mr.Options, logger)
	if err != nil {
		return
	}
	defer func() {
		err = multierr.Append(err, ws.Close())
	}()
	return ws.Solve()
}
