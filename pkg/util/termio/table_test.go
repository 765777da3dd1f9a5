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
	"strings"
	"testing"
)

func Test_Table_01(t *testing.T) {
	p := NewTablePrinter("proc", "frame")
	p.AddRow("p_first", "4")
	p.AddRow("s_area_0", "12")
	//
	check_Table(t, p,
		"proc     | frame |",
		"---------+-------+",
		"p_first  |     4 |",
		"s_area_0 |    12 |")
}

func Test_Table_02(t *testing.T) {
	p := NewTablePrinter("name", "n")
	p.AddRow("abcdefgh", "1")
	p.SetMaxWidth(0, 5)
	//
	check_Table(t, p,
		"name  | n |",
		"------+---+",
		"abc.. | 1 |")
}

func Test_Table_03(t *testing.T) {
	p := NewTablePrinter("a")
	p.AddRow("x")
	p.SetEscape(1, NewAnsiEscape().FgColour(TERM_RED).Build())
	p.AnsiEscapes(false)
	//
	check_Table(t, p, "a |", "--+", "x |")
	//
	if p.Height() != 2 || p.Get(0, 1) != "x" {
		t.Errorf("unexpected table contents")
	}
}

func Test_Escape_01(t *testing.T) {
	var (
		red   = NewAnsiEscape().FgColour(TERM_RED)
		bold  = BoldAnsiEscape().FgColour(TERM_YELLOW)
		reset = ResetAnsiEscape().Build()
	)
	//
	if red.Build() != "\033[31m" || bold.Build() != "\033[1;33m" || reset != "\033[0m" {
		t.Errorf("unexpected escapes %q %q %q", red.Build(), bold.Build(), reset)
	} else if w := red.Wrap("^^"); w != "\033[31m^^\033[0m" {
		t.Errorf("unexpected wrapped text %q", w)
	}
}

func check_Table(t *testing.T, p *TablePrinter, expected ...string) {
	var out strings.Builder
	//
	p.Print(&out)
	//
	if actual := strings.TrimSuffix(out.String(), "\n"); actual != strings.Join(expected, "\n") {
		t.Errorf("unexpected table:\n%s\nexpected:\n%s", actual, strings.Join(expected, "\n"))
	}
}
