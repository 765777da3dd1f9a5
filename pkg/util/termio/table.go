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
package termio

import (
	"fmt"
	"io"
	"strings"
)

// TablePrinter is useful for printing tables to the terminal.  Rows are
// appended one at a time, and the first row is treated as a header.
type TablePrinter struct {
	widths        []uint
	rows          [][]string
	escapes       []string
	enableEscapes bool
}

// NewTablePrinter constructs a new table with the given column headers.
func NewTablePrinter(headers ...string) *TablePrinter {
	p := &TablePrinter{widths: make([]uint, len(headers)), enableEscapes: true}
	p.AddRow(headers...)
	//
	return p
}

// AddRow appends a row to this table.
func (p *TablePrinter) AddRow(vals ...string) {
	if len(vals) != len(p.widths) {
		panic("incorrect number of columns")
	}
	// Update column widths
	for i, v := range vals {
		p.widths[i] = max(p.widths[i], uint(len(v)))
	}
	//
	p.rows = append(p.rows, vals)
	p.escapes = append(p.escapes, "")
}

// Height returns the number of rows in this table, including its header.
func (p *TablePrinter) Height() uint {
	return uint(len(p.rows))
}

// Get the contents of a given cell in this table
func (p *TablePrinter) Get(col uint, row uint) string {
	return p.rows[row][col]
}

// SetEscape sets the colour to use when printing a given row.
func (p *TablePrinter) SetEscape(row uint, escape string) {
	p.escapes[row] = escape
}

// AnsiEscapes enables or disables the use of ANSI escapes (e.g. for showing
// colour).  Disabling escapes is useful in environments that don't support
// escapes as, otherwise, you get a lot of visible excape characters being
// printed.
func (p *TablePrinter) AnsiEscapes(enable bool) {
	p.enableEscapes = enable
}

// SetMaxWidth puts an upper bound on the width of a given column.
func (p *TablePrinter) SetMaxWidth(col uint, width uint) {
	p.widths[col] = min(p.widths[col], max(width, 3))
}

// Print the table to a given writer.  The first column is left aligned, and
// all others are right aligned.
func (p *TablePrinter) Print(out io.Writer) {
	for i, row := range p.rows {
		escape := p.enableEscapes && p.escapes[i] != ""
		//
		if escape {
			fmt.Fprint(out, p.escapes[i])
		}
		//
		for j, col := range row {
			width := int(p.widths[j])
			// Truncate overlong cells
			if len(col) > width {
				col = col[0:width-2] + ".."
			}
			//
			if j == 0 {
				fmt.Fprintf(out, "%-*s |", width, col)
			} else {
				fmt.Fprintf(out, " %*s |", width, col)
			}
		}
		//
		if escape {
			fmt.Fprint(out, ResetAnsiEscape().Build())
		}
		//
		fmt.Fprintln(out)
		// Separate header from body
		if i == 0 {
			p.printRule(out)
		}
	}
}

func (p *TablePrinter) printRule(out io.Writer) {
	for j, w := range p.widths {
		if j == 0 {
			fmt.Fprint(out, strings.Repeat("-", int(w)), "-+")
		} else {
			fmt.Fprint(out, strings.Repeat("-", int(w)+2), "+")
		}
	}
	//
	fmt.Fprintln(out)
}
