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
package compiler

import (
	"fmt"

	"github.com/gentle-lang/gentle/pkg/ast"
	"github.com/gentle-lang/gentle/pkg/util/source"
)

// Severity determines the consequences of a diagnostic.
type Severity uint8

const (
	// Warning diagnostics do not prevent a program being generated.
	Warning Severity = iota
	// Error diagnostics indicate the generated program cannot be trusted,
	// though compilation continues in order to find further errors.
	Error
	// Fatal diagnostics prevent any rule being compiled.
	Fatal
)

var severities = []string{"warning", "error", "fatal"}

func (s Severity) String() string { return severities[s] }

// Diagnostic is a message about a particular node of the input.
type Diagnostic struct {
	Node     ast.Node
	Severity Severity
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Severity, d.Message)
}

// HasErrors checks whether any diagnostic is an error (or worse).
func HasErrors(diagnostics []Diagnostic) bool {
	for _, d := range diagnostics {
		if d.Severity != Warning {
			return true
		}
	}
	//
	return false
}

// SyntaxErrors converts diagnostics into syntax errors, using a given set of
// source maps to determine their positions.  Diagnostics on nodes with no
// source mapping are returned separately.
func SyntaxErrors(srcmap *source.Maps[ast.Node], diagnostics []Diagnostic) ([]source.SyntaxError, []Diagnostic) {
	var (
		errors   []source.SyntaxError
		unmapped []Diagnostic
	)
	//
	for _, d := range diagnostics {
		if srcmap != nil && d.Node != nil {
			err := srcmap.SyntaxError(d.Node, d.String())
			//
			if d.Severity == Warning {
				err = srcmap.Warning(d.Node, d.String())
			}
			//
			if err != nil {
				errors = append(errors, *err)
				continue
			}
		}
		//
		unmapped = append(unmapped, d)
	}
	//
	return errors, unmapped
}

type diagnosticKey struct {
	node    ast.Node
	message string
}

func (c *Compiler) report(node ast.Node, severity Severity, msg string) {
	// The guard of a choice rule is compiled twice (once for scoring, once
	// for application), so suppress repeats.
	key := diagnosticKey{node, msg}
	if c.reported[key] {
		return
	}
	//
	c.reported[key] = true
	c.diagnostics = append(c.diagnostics, Diagnostic{node, severity, msg})
}

func (c *Compiler) warnf(node ast.Node, format string, args ...any) {
	c.report(node, Warning, fmt.Sprintf(format, args...))
}

func (c *Compiler) errorf(node ast.Node, format string, args ...any) {
	c.report(node, Error, fmt.Sprintf(format, args...))
}

func (c *Compiler) fatalf(node ast.Node, format string, args ...any) {
	c.report(node, Fatal, fmt.Sprintf(format, args...))
}

// Line of a node in its source file (or 0 if unknown).
func (c *Compiler) line(node ast.Node) int {
	if c.srcmap != nil {
		if line, ok := c.srcmap.Line(node); ok {
			return line
		}
	}
	//
	return 0
}
