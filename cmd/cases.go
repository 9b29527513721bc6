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

	"github.com/spf13/cobra"

	"github.com/notargets/weircfd/InputParameters"
)

// CasesCmd lists the compiled-in cases
var CasesCmd = &cobra.Command{
	Use:   "cases [case]",
	Short: "List the compiled-in cases, or print the parameters of one as YAML",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return ListCases(cmd.OutOrStdout())
		}
		return ShowCase(cmd.OutOrStdout(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(CasesCmd)
}

func ListCases(w io.Writer) error {
	for _, name := range InputParameters.Names() {
		cp, err := InputParameters.Case(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%-24s %dD, levels %d-%d, t_end %g\n", name, cp.Dim, cp.MinLevel, cp.MaxLevel, cp.TEnd)
	}
	return nil
}

// ShowCase writes a case in the form accepted by run -I
func ShowCase(w io.Writer, name string) (err error) {
	var (
		cp   InputParameters.CaseParameters
		data []byte
	)
	if cp, err = InputParameters.Case(name); err != nil {
		return
	}
	if data, err = cp.Marshal(); err != nil {
		return
	}
	_, err = w.Write(data)
	return
}
