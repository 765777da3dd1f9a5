// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/gentle-lang/gentle/pkg/ir"
	"github.com/gentle-lang/gentle/pkg/util/termio"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [flags] source_file(s)",
	Short: "inspect the compiled form of source files.",
	Long: `Compile a given set of source file(s), and then print a summary of the
	 generated procedures.  Optionally, the generated code and the dispatch tables
	 used for cost resolution can be printed as well.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig(cmd)
		program := compileFiles(cmd, cfg, args)
		//
		printProcs(program)
		//
		if GetFlag(cmd, "code") {
			fmt.Println()
			fmt.Print(program.String())
		}
		//
		if GetFlag(cmd, "dispatch") {
			printDispatch(program, GetFlag(cmd, "dump"))
		}
	},
}

func printProcs(program *ir.Program) {
	table := termio.NewTablePrinter("proc", "predicate", "kind", "rule", "in", "out", "frame", "marks", "insns")
	table.AnsiEscapes(colour())
	//
	for _, p := range program.Procs {
		table.AddRow(p.Name, p.Predicate, p.Kind.String(), fmt.Sprintf("%d", p.Rule),
			fmt.Sprintf("%d", p.Inputs), fmt.Sprintf("%d", p.Outputs), fmt.Sprintf("%d", p.Frame),
			fmt.Sprintf("%d", p.Marks), fmt.Sprintf("%d", len(p.Code)))
		// Highlight entry points
		if p.Kind == ir.Main {
			table.SetEscape(table.Height()-1, termio.BoldAnsiEscape().Build())
		}
	}
	//
	table.SetMaxWidth(0, 32)
	table.Print(os.Stdout)
}

func printDispatch(program *ir.Program, dump bool) {
	config := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true,
		SortKeys: true}
	//
	for _, d := range program.Dispatch {
		fmt.Printf("\ndispatch %s (%d rules)\n", d.Type, d.Rules())
		//
		if dump {
			config.Dump(d)
			continue
		}
		//
		table := termio.NewTablePrinter("functor", "predicate", "rule", "score")
		table.AnsiEscapes(colour())
		//
		for _, f := range d.Functors {
			for _, c := range f.Candidates {
				table.AddRow(f.Name, d.Predicates[c.Predicate], fmt.Sprintf("%d", c.Rule), c.Score)
			}
		}
		//
		for _, c := range d.Chain {
			table.AddRow("*", d.Predicates[c.Predicate], fmt.Sprintf("%d", c.Rule), c.Score)
		}
		//
		table.Print(os.Stdout)
		//
		for i, deps := range d.Dependents {
			if len(deps) > 0 {
				fmt.Printf("%s => %s\n", d.Predicates[i], config.Sprint(deps))
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().Bool("code", false, "print generated code")
	inspectCmd.Flags().Bool("dispatch", false, "print dispatch tables")
	inspectCmd.Flags().Bool("dump", false, "dump dispatch tables in full")
}
