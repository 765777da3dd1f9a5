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

	"github.com/gentle-lang/gentle/pkg/emit"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var compileCmd = &cobra.Command{
	Use:   "compile [flags] source_file(s)",
	Short: "compile source files into Go.",
	Long: `Compile a given set of source file(s) into a single Go source file, which runs
	 on the gentle machine.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig(cmd)
		output := GetString(cmd, "output")
		//
		if pkg := GetString(cmd, "package"); pkg != "" {
			cfg.Emit.Package = pkg
		}
		//
		program := compileFiles(cmd, cfg, args)
		//
		bytes, err := emit.Source(program, cfg.Emit)
		if err != nil {
			fmt.Println(err)
			os.Exit(3)
		}
		//
		if err := os.WriteFile(output, bytes, 0644); err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
		//
		log.Debugf("wrote %s", output)
	},
}

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().StringP("output", "o", "grammar.go", "specify output file.")
	compileCmd.Flags().StringP("package", "p", "", "specify package of generated code.")
}
