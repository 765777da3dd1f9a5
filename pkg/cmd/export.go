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
	"path/filepath"
	"strings"

	"github.com/gentle-lang/gentle/pkg/symfile"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [flags] source_file(s)",
	Short: "export the signatures of source files.",
	Long: `Check a given set of source file(s), then write their types, variables,
	 tables and predicate signatures as a unit of a symbol file.`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			cfg      = readConfig(cmd)
			filename = GetString(cmd, "symfile")
			unit     = GetString(cmd, "unit")
		)
		//
		if len(args) == 0 {
			fmt.Println("no source files given")
			os.Exit(2)
		} else if unit == "" {
			unit = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		}
		// Only export units which compile.
		compileFiles(cmd, cfg, args)
		_, local, _ := readDeclarations(cmd, args)
		//
		file, err := symfile.Open(filename)
		if err == nil {
			err = file.Export(unit, local)
			//
			if cerr := file.Close(); err == nil {
				err = cerr
			}
		}
		//
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("symfile", "symbols.db", "symbol file to write.")
	exportCmd.Flags().String("unit", "", "name of exported unit (defaults to that of the first file).")
}
