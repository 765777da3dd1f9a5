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
	"strings"
	"testing"

	"github.com/gentle-lang/gentle/pkg/config"
	"github.com/gentle-lang/gentle/pkg/loader"
)

func Test_Diagnostic_01(t *testing.T) {
	check_Diagnostic(t, `
(type A (Nil) (Leaf INT))
(type B (Nil))
(action f () (A) (rule () (X) (where (Nil) X)))`, Error, "ambiguous functor Nil")
}

func Test_Diagnostic_02(t *testing.T) {
	// Qualified, or determined by the expected type
	check_Clean(t, `
(type A (Nil) (Leaf INT))
(type B (Nil))
(action f (A) (B) (rule ((Nil)) (B.Nil)) (rule ((Leaf _)) ((Nil))))`)
}

func Test_Diagnostic_03(t *testing.T) {
	program, diagnostics := compileText(t, "(action f (Foo) () (rule (_) ()))", DefaultOptions())
	//
	if program != nil {
		t.Errorf("expected no program")
	}
	//
	check_Contains(t, diagnostics, Fatal, "unknown type Foo")
}

func Test_Diagnostic_04(t *testing.T) {
	check_Diagnostic(t, `
(type Pair (Pair INT INT))
(action f (Pair) (INT) (rule ((Pair X X)) (X)))`, Error, "variable X already bound")
}

func Test_Diagnostic_05(t *testing.T) {
	check_Diagnostic(t, "(action f (INT) ())", Error, "action f has no rules")
	// Conditions and sweeps may have no rules
	check_Clean(t, "(condition f (INT) ())\n(sweep g (INT) ())")
}

func Test_Diagnostic_06(t *testing.T) {
	// Variables are local to their rule.
	check_Diagnostic(t, "(action f (INT) (INT) (rule (X) (X)) (rule (_) (X)))", Error, "unknown variable X")
	// And to their case alternative, unless every alternative binds them.
	check_Diagnostic(t, `
(action f (INT) (INT) (rule (N) (Y) (case ((where N Y)) ((where 0 Z)))))`, Error, "unknown variable Y")
	check_Clean(t, `
(action f (INT) (INT) (rule (N) (Y) (case ((where N Y)) ((where 0 Y)))))`)
	check_Diagnostic(t, `
(action f (INT) (INT) (rule (N) (Y) (case ((where N Y)) ((where "s" Y)))))`, Error,
		"variable Y has type INT in one alternative and STRING in another")
}

func Test_Diagnostic_07(t *testing.T) {
	check_Diagnostic(t, "(action f (INT) (STRING) (rule (X) (X)))", Error, "expected type STRING, found INT")
	check_Diagnostic(t, "(action f (INT) (INT) (rule (X Y) (X)))", Error, "expected 1 inputs, found 2")
	check_Diagnostic(t, "(action f (INT) () (rule (_) () (call g (1))))", Error, "unknown predicate g")
	check_Diagnostic(t, "(var v INT)\n(var v STRING)", Error, "v already declared differently")
	check_Diagnostic(t, "(action f () (INT) (rule () (X) (get v X)))", Error, "unknown variable v")
	check_Diagnostic(t, `
(type L (Cons INT L) (Nil))
(action f (L) () (rule ((Cons _)) ()))`, Error, "functor Cons expects 2 arguments, found 1")
}

func Test_Diagnostic_08(t *testing.T) {
	// A compatible redeclaration merges rules.
	_, v := check_Compile(t, `
(action f (INT) (STRING) (rule (0) ("zero")))
(action f (INT) (STRING) (rule (_) ("other")))`)
	//
	check_Call(t, v, "f", "0", `"zero"`)
	check_Call(t, v, "f", "1", `"other"`)
}

func Test_Diagnostic_09(t *testing.T) {
	check_Diagnostic(t, "(action f (INT) (INT) (rule (X) (X) (cost 1)))", Warning, "cost of action rule ignored")
	check_Diagnostic(t, "(action f (INT) (INT) (rule (X) ((cost f X))))", Error,
		"cost reference outside of cost expression")
}

// ============================================================================
// Choice restrictions
// ============================================================================

const nestedChoice = `
(type Expr (Num INT) (Add Expr Expr))
(choice reg (Expr) (INT)
  (rule ((Num N)) (N) (cost 1))
  (rule ((Add (Num N) R)) (N) (cost 1)))
`

func Test_Choice_01(t *testing.T) {
	check_Diagnostic(t, nestedChoice, Error, "nested pattern in primary argument of choice reg")
	//
	options := DefaultOptions()
	options.Choice.ShallowPatterns = false
	check_CleanWith(t, nestedChoice, options)
}

func Test_Choice_02(t *testing.T) {
	text := `
(type T (Leaf INT))
(choice p (T) (INT) (rule ((Leaf N)) (N)))`
	//
	check_Diagnostic(t, text, Error, "rule of choice p has no cost")
	//
	options := DefaultOptions()
	options.Choice.RequireCost = false
	check_CleanWith(t, text, options)
}

func Test_Choice_03(t *testing.T) {
	text := `
(type T (Leaf INT))
(choice p (T INT) (INT) (rule ((Leaf N) M) ((+ N M)) (cost 0)))`
	//
	check_Diagnostic(t, text, Error, "choice p requires exactly one input")
	//
	options := DefaultOptions()
	options.Choice.SingleInput = false
	check_CleanWith(t, text, options)
}

func Test_Choice_04(t *testing.T) {
	text := `
(type T (Leaf INT))
(choice p (T) (INT) (rule ((Leaf N)) (N) (cost 0)))`
	//
	options := DefaultOptions()
	options.Choice.PrimaryTypes = []string{"Other"}
	check_DiagnosticWith(t, text, options, Error, "type T not permitted as primary argument of choice p")
	//
	options.Choice.PrimaryTypes = []string{"T"}
	check_CleanWith(t, text, options)
	//
	check_Diagnostic(t, "(choice p (INT) (INT) (rule (N) (N) (cost 0)))", Error,
		"primary argument of choice p has type INT, which is not a sum type")
}

func Test_Choice_05(t *testing.T) {
	text := `
(type T (Leaf INT) (Node T T))
(choice p (T) (INT) (rule ((Leaf N)) (N) (cost 0)))
(action q (T) () (rule ((Node _ _)) ()))`
	//
	check_CleanWith(t, text, DefaultOptions())
	//
	options := DefaultOptions()
	options.Choice.OrderedOverlap = config.OverlapWarn
	check_DiagnosticWith(t, text, options, Warning, "action q matches functor Node of choice type T")
	//
	options.Choice.OrderedOverlap = config.OverlapError
	check_DiagnosticWith(t, text, options, Error, "action q matches functor Node of choice type T")
}

func Test_Choice_06(t *testing.T) {
	// A choice rule may refer to a condition in its guard, whose diagnostics
	// are reported once.
	_, diagnostics := compileText(t, `
(type T (Leaf INT))
(choice p (T) (INT) (rule ((Leaf N)) (N) (where N "x") (cost 0)))`, DefaultOptions())
	//
	count := 0
	//
	for _, d := range diagnostics {
		if strings.Contains(d.Message, "expected type INT, found STRING") {
			count++
		}
	}
	//
	if count != 1 {
		t.Errorf("expected one diagnostic, found %d", count)
	}
}

func Test_Choice_07(t *testing.T) {
	// Diagnostics are mapped back to their source lines.
	decls, srcmap, _ := loader.LoadString("test", "(type T (Leaf INT))\n(choice p (T) (INT)\n  (rule ((Leaf N)) (N)))")
	options := DefaultOptions()
	options.SourceMaps = srcmap
	_, diagnostics := Compile(decls, options)
	errs, unmapped := SyntaxErrors(srcmap, diagnostics)
	//
	if len(errs) != 1 || len(unmapped) != 0 {
		t.Fatalf("expected one mapped error, got %d (and %d unmapped)", len(errs), len(unmapped))
	} else if line := errs[0].FirstEnclosingLine(); line.Number() != 3 {
		t.Errorf("expected error on line 3, got %d", line.Number())
	} else if errs[0].IsWarning() {
		t.Errorf("expected error, not warning")
	}
}

// ============================================================================
// Helpers
// ============================================================================

func check_Diagnostic(t *testing.T, text string, severity Severity, msg string) {
	check_DiagnosticWith(t, text, DefaultOptions(), severity, msg)
}

func check_DiagnosticWith(t *testing.T, text string, options Options, severity Severity, msg string) {
	_, diagnostics := compileText(t, text, options)
	check_Contains(t, diagnostics, severity, msg)
}

func check_Contains(t *testing.T, diagnostics []Diagnostic, severity Severity, msg string) {
	for _, d := range diagnostics {
		if d.Severity == severity && strings.Contains(d.Message, msg) {
			return
		}
	}
	//
	t.Errorf("expected %s \"%s\", got %v", severity, msg, diagnostics)
}

func check_Clean(t *testing.T, text string) {
	check_CleanWith(t, text, DefaultOptions())
}

func check_CleanWith(t *testing.T, text string, options Options) {
	program, diagnostics := compileText(t, text, options)
	//
	if program == nil || len(diagnostics) != 0 {
		t.Errorf("unexpected diagnostics %v", diagnostics)
	}
}
