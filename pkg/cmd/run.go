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
	"strings"

	"github.com/gentle-lang/gentle/pkg/loader"
	"github.com/gentle-lang/gentle/pkg/machine"
	"github.com/gentle-lang/gentle/pkg/vm"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] source_file(s)",
	Short: "run a predicate of the given source files.",
	Long: `Compile a given set of source file(s), then call a predicate with the given
	 arguments, reporting its results.`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			cfg     = readConfig(cmd)
			pred    = GetString(cmd, "pred")
			program = compileFiles(cmd, cfg, args)
			v       = vm.New(program, cfg.Arena.Limit)
			inputs  []machine.Value
		)
		//
		for _, arg := range GetStringArray(cmd, "arg") {
			value, err := v.Parse(arg)
			if err != nil {
				fmt.Println(err)
				os.Exit(2)
			}
			//
			inputs = append(inputs, value)
		}
		//
		results, ok, err := v.Call(pred, inputs...)
		//
		switch {
		case err != nil:
			fmt.Println(err)
			os.Exit(1)
		case !ok:
			fmt.Printf("%s failed\n", pred)
			os.Exit(1)
		}
		//
		outputs := make([]string, len(results))
		for i, r := range results {
			outputs[i] = v.Machine().Format(r)
		}
		//
		fmt.Println(strings.Join(outputs, " "))
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("pred", loader.RootName, "predicate to call (defaults to the root clause).")
	runCmd.Flags().StringArrayP("arg", "a", []string{}, "argument term (e.g. \"(Cons 1 Nil)\").")
}
