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

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] source_file(s)",
	Short: "check source files for errors.",
	Long: `Compile a given set of source file(s), reporting any errors found without
	 generating code.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig(cmd)
		program := compileFiles(cmd, cfg, args)
		//
		if !GetFlag(cmd, "quiet") {
			fmt.Printf("%d predicates, %d procedures, %d dispatch tables\n", len(program.Predicates),
				len(program.Procs), len(program.Dispatch))
		}
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolP("quiet", "q", false, "report only errors")
}
