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

	"github.com/gentle-lang/gentle/pkg/ast"
	"github.com/gentle-lang/gentle/pkg/compiler"
	"github.com/gentle-lang/gentle/pkg/config"
	"github.com/gentle-lang/gentle/pkg/ir"
	"github.com/gentle-lang/gentle/pkg/loader"
	"github.com/gentle-lang/gentle/pkg/symfile"
	"github.com/gentle-lang/gentle/pkg/util/source"
	"github.com/gentle-lang/gentle/pkg/util/termio"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// GetFlag gets an expected flag, or exits if an error arises.
func GetFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetString gets an expected string, or exits if an error arises.
func GetString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetStringArray gets an expected string array, or exits if an error arises.
func GetStringArray(cmd *cobra.Command, flag string) []string {
	r, err := cmd.Flags().GetStringArray(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// Read the configuration given with --config, or the defaults if there is
// none.
func readConfig(cmd *cobra.Command) config.Config {
	filename := GetString(cmd, "config")
	//
	if filename == "" {
		return config.Default()
	}
	//
	cfg, err := config.ReadFile(filename)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	return cfg
}

// Read the declarations of the units named with --import, followed by those
// of the given source files.  Syntax errors are reported, and cause an exit.
// The local declarations are also returned separately.
func readDeclarations(cmd *cobra.Command, filenames []string) (all []ast.Declaration, local []ast.Declaration,
	srcmap *source.Maps[ast.Node]) {
	//
	for _, item := range GetStringArray(cmd, "import") {
		all = append(all, readImport(item)...)
	}
	//
	files, err := source.ReadFiles(filenames...)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	srcfiles := make([]*source.File, len(files))
	for i := range files {
		srcfiles[i] = &files[i]
	}
	//
	local, srcmap, errs := loader.Load(srcfiles...)
	//
	if len(errs) > 0 {
		for _, err := range errs {
			printSyntaxError(&err)
		}
		//
		os.Exit(1)
	}
	//
	return append(all, local...), local, srcmap
}

func readImport(item string) []ast.Declaration {
	i := strings.LastIndexByte(item, ':')
	if i <= 0 {
		fmt.Printf("malformed import \"%s\" (expected FILE:UNIT)\n", item)
		os.Exit(2)
	}
	//
	file, err := symfile.Open(item[:i])
	if err == nil {
		defer file.Close()
		//
		var decls []ast.Declaration
		if decls, err = file.Import(item[i+1:]); err == nil {
			return decls
		}
	}
	//
	fmt.Println(err)
	os.Exit(2)
	// unreachable
	return nil
}

// Compile the given source files, reporting any diagnostics.  This exits if
// any diagnostic is an error.
func compileFiles(cmd *cobra.Command, cfg config.Config, filenames []string) *ir.Program {
	decls, _, srcmap := readDeclarations(cmd, filenames)
	//
	options := compiler.NewOptions(cfg)
	options.SourceMaps = srcmap
	//
	program, diagnostics := compiler.Compile(decls, options)
	errs, unmapped := compiler.SyntaxErrors(srcmap, diagnostics)
	//
	for _, err := range errs {
		printSyntaxError(&err)
	}
	//
	for _, d := range unmapped {
		fmt.Println(d)
	}
	//
	if program == nil || compiler.HasErrors(diagnostics) {
		os.Exit(1)
	}
	//
	return program
}

// Print a syntax error with appropriate highlighting.
func printSyntaxError(err *source.SyntaxError) {
	span := err.Span()
	line := err.FirstEnclosingLine()
	// Calculate length (ensures don't overflow line)
	length := min(line.Length()-(span.Start()-line.Start()), span.Length())
	// Print error + line number
	fmt.Printf("%s:%d:%d-%d %s\n", err.SourceFile().Filename(), line.Number(),
		1+span.Start()-line.Start(), 1+span.Start()-line.Start()+length, err.Message())
	// Print separator line
	fmt.Println()
	// Print line
	fmt.Println(line.String())
	// Print indent (todo: account for tabs)
	fmt.Print(strings.Repeat(" ", span.Start()-line.Start()))
	// Print highlight
	highlight := strings.Repeat("^", max(1, length))
	//
	if colour() {
		fg := termio.TERM_RED
		if err.IsWarning() {
			fg = termio.TERM_YELLOW
		}
		//
		highlight = termio.NewAnsiEscape().FgColour(fg).Wrap(highlight)
	}
	//
	fmt.Println(highlight)
}

// Determine whether output should be coloured.
func colour() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
