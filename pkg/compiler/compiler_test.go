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
	"errors"
	"strings"
	"testing"

	"github.com/gentle-lang/gentle/pkg/config"
	"github.com/gentle-lang/gentle/pkg/ir"
	"github.com/gentle-lang/gentle/pkg/loader"
	"github.com/gentle-lang/gentle/pkg/machine"
	"github.com/gentle-lang/gentle/pkg/vm"
	log "github.com/sirupsen/logrus"
)

const exprSelector = `
(type Expr (Num INT) (Add Expr Expr))
(choice imm (Expr) (INT)
  (rule ((Num N)) (N) (cost 0)))
(choice reg (Expr) (INT)
  (rule ((Num N)) ((* N 10)) (cost 5))
  (rule (E) (V) (call imm (E) (V)) (cost (+ 1 (cost imm E))))
  (rule ((Add L R)) ((+ A B)) (call reg (L) (A)) (call reg (R) (B))
    (cost (+ 1 (+ (cost reg L) (cost reg R))))))
`

const listLength = `
(type List (Nil) (Cons INT List))
(var cur List)
(var count INT)
(action length (List) (INT)
  (rule (L) (N) (set cur L) (set count 0)
    (loop (get cur (Cons _ T)) (set cur T) (get count C) (set count (+ C 1)))
    (get count N)))
`

func Test_Compiler_01(t *testing.T) {
	// Identical input always generates identical programs.
	for _, text := range []string{exprSelector, listLength, shapes} {
		p1, _ := check_Compile(t, text)
		p2, _ := check_Compile(t, text)
		//
		if p1.String() != p2.String() {
			t.Errorf("non-deterministic compilation:\n%s\n---\n%s", p1, p2)
		}
	}
}

func Test_Compiler_02(t *testing.T) {
	_, v := check_Compile(t, `
(condition small (INT) () (rule (0) ()) (rule (1) ()))
(action classify (INT) (STRING)
  (rule (N) ("small") (call small (N)))
  (rule (_) ("large")))`)
	//
	check_Call(t, v, "classify", "0", `"small"`)
	check_Call(t, v, "classify", "1", `"small"`)
	check_Call(t, v, "classify", "7", `"large"`)
	check_Fails(t, v, "small", "7")
}

func Test_Compiler_03(t *testing.T) {
	_, v := check_Compile(t, `
(type List (Nil) (Cons INT List))
(type Pair (Pair INT List))
(action first (List) (INT)
  (rule (L) (H) (where (Pair 1 L) (Pair _ (Cons H _))))
  (rule ((Nil)) (0)))`)
	// The first rule allocates before failing, and must be rolled back.
	arg := check_Parse(t, v, "(Nil)")
	size := v.Machine().HeapSize()
	check_Results(t, v, "first", arg, "0")
	//
	if v.Machine().HeapSize() != size {
		t.Errorf("heap not rolled back: %d slots before, %d after", size, v.Machine().HeapSize())
	}
	// Whilst a successful rule keeps its allocations.
	arg = check_Parse(t, v, "(Cons 4 (Nil))")
	size = v.Machine().HeapSize()
	check_Results(t, v, "first", arg, "4")
	//
	if v.Machine().HeapSize() != size+3 {
		t.Errorf("expected pair to be retained: %d slots before, %d after", size, v.Machine().HeapSize())
	}
}

const shapes = `
(type Shape (Circle INT) (Square INT))
(choice area (Shape) (INT)
  (rule ((Circle R)) ((* R R)) (cost 0))
  (rule ((Square S)) ((* S S)) (cost 0)))
`

func Test_Compiler_04(t *testing.T) {
	_, v := check_Compile(t, shapes)
	//
	check_Call(t, v, "area", "(Circle 5)", "25")
	// The Square rule was never attempted, not even to score it.
	if n := v.Calls("s_area_1"); n != 0 {
		t.Errorf("square rule scored %d times", n)
	} else if n := v.Calls("a_area_1"); n != 0 {
		t.Errorf("square rule applied %d times", n)
	} else if v.Calls("s_area_0") != 1 || v.Calls("a_area_0") != 1 {
		t.Errorf("circle rule scored %d times, applied %d times", v.Calls("s_area_0"), v.Calls("a_area_0"))
	}
	//
	check_Call(t, v, "area", "(Square 3)", "9")
}

func Test_Compiler_05(t *testing.T) {
	_, v := check_Compile(t, exprSelector)
	// Chain rule (1 + 0) beats direct rule (5).
	check_Call(t, v, "reg", "(Num 3)", "3")
	check_Call(t, v, "reg", "(Add (Num 1) (Add (Num 2) (Num 3)))", "6")
	check_Call(t, v, "imm", "(Num 8)", "8")
	//
	if v.Calls("a_reg_0") != 0 {
		t.Errorf("more expensive rule applied")
	}
	// imm has no rule for Add
	_, _, err := v.Call("imm", check_Parse(t, v, "(Add (Num 1) (Num 2))"))
	check_Abort(t, err, "imm", 0)
}

func Test_Compiler_06(t *testing.T) {
	_, v := check_Compile(t, `
(type Coin (Coin INT))
(choice pick (Coin) (STRING)
  (rule (_) ("chain") (cost 2))
  (rule ((Coin _)) ("functor") (cost 2))
  (rule ((Coin N)) ("cheap") (where N 7) (cost 1)))`)
	// Equal costs are broken by declaration order, not evaluation order.
	check_Call(t, v, "pick", "(Coin 3)", `"chain"`)
	check_Call(t, v, "pick", "(Coin 7)", `"cheap"`)
}

func Test_Compiler_07(t *testing.T) {
	_, v := check_Compile(t, `
(type T (Leaf INT))
(choice p (T) (INT)
  (rule ((Leaf N)) (N) (cost 3))
  (rule (X) (V) (call q (X) (V)) (cost (+ 1 (cost q X)))))
(choice q (T) (INT)
  (rule (X) (V) (call p (X) (V)) (cost (+ 1 (cost p X)))))`)
	//
	term := check_Parse(t, v, "(Leaf 5)")
	check_Results(t, v, "q", term, "5")
	//
	block := v.Machine().Resolve("T", term)
	check_Cost(t, block, 0, 3, 0)
	check_Cost(t, block, 1, 4, 0)
	// Two predicates, three rules
	if block.Rounds > 2*3+2 {
		t.Errorf("resolution took %d rounds", block.Rounds)
	}
}

func Test_Compiler_08(t *testing.T) {
	_, v := check_Compile(t, listLength)
	//
	check_Call(t, v, "length", "(Nil)", "0")
	check_Call(t, v, "length", "(Cons 1 (Cons 2 (Cons 3 (Nil))))", "3")
}

func Test_Compiler_09(t *testing.T) {
	_, v := check_Compile(t, `
(var count INT)
(action count3 () (INT)
  (rule () (N) (set count 0) (loop 3 (get count C) (set count (+ C 1))) (get count N)))`)
	//
	check_Results(t, v, "count3", nil, "3")
}

func Test_Compiler_10(t *testing.T) {
	_, v := check_Compile(t, `
(var label STRING)
(action describe (INT) (STRING)
  (rule (N) (S)
    (case ((where N 0) (set label "zero")) ((set label "other")))
    (get label S)))`)
	//
	check_Call(t, v, "describe", "0", `"zero"`)
	check_Call(t, v, "describe", "4", `"other"`)
}

func Test_Compiler_11(t *testing.T) {
	_, v := check_Compile(t, `
(var count INT)
(action reset () () (rule () () (set count 0)))
(sweep bump (INT) ()
  (rule (1) () (get count C) (set count (+ C 1)))
  (rule (_) () (get count C) (set count (+ C 10))))`)
	//
	check_Results(t, v, "reset", nil)
	check_Call(t, v, "bump", "1")
	//
	if n := v.Machine().Global("count").Int(); n != 11 {
		t.Errorf("expected every rule applied, count is %d", n)
	}
	//
	check_Call(t, v, "bump", "2")
	//
	if n := v.Machine().Global("count").Int(); n != 21 {
		t.Errorf("expected only the second rule applied, count is %d", n)
	}
}

func Test_Compiler_12(t *testing.T) {
	_, v := check_Compile(t, `
(table Sym (name STRING) (uses INT))
(action intern (STRING) (STRING INT)
  (rule (Name) (S U) (new Sym K) (write K name Name) (write K uses (+ 1 1)) (read K uses U) (read K name S)))`)
	//
	check_Call(t, v, "intern", `"x"`, `"x"`, "2")
}

func Test_Compiler_13(t *testing.T) {
	_, v := check_Compile(t, `
(extern condition even (INT) ())
(action parity (INT) (STRING)
  (rule (N) ("even") (call even (N)))
  (rule (_) ("odd")))`)
	// Not yet provided
	_, _, err := v.Call("parity", machine.Int(2))
	//
	var undefined *machine.UndefinedError
	if !errors.As(err, &undefined) {
		t.Errorf("expected undefined procedure, got %v", err)
	}
	//
	err = v.External("even", func(_ *machine.Machine, args ...machine.Value) ([]machine.Value, bool) {
		return nil, args[0].Int()%2 == 0
	})
	//
	if err != nil {
		t.Fatal(err)
	} else if v.External("parity", nil) == nil {
		t.Errorf("expected error providing non-external predicate")
	}
	//
	check_Call(t, v, "parity", "2", `"even"`)
	check_Call(t, v, "parity", "3", `"odd"`)
}

func Test_Compiler_14(t *testing.T) {
	_, v := check_Compile(t, `(type B (T) (F))
(action need (B) () (rule ((T)) ()))
(action go (B) ()
  (rule (X) () (call need (X))))`)
	//
	check_Call(t, v, "go", "(T)")
	// Exhaustion of an action aborts, reporting the call site.
	_, _, err := v.Call("go", check_Parse(t, v, "(F)"))
	check_Abort(t, err, "need", 4)
}

func Test_Compiler_15(t *testing.T) {
	_, v := check_Compile(t, `
(action div (INT INT) (INT) (rule (X Y) ((/ X Y))))`)
	//
	check_Results(t, v, "div", []machine.Value{machine.Int(7), machine.Int(2)}, "3")
	//
	_, _, err := v.Call("div", machine.Int(7), machine.Int(0))
	//
	var arith *machine.ArithmeticError
	if !errors.As(err, &arith) {
		t.Errorf("expected arithmetic error, got %v", err)
	}
}

func Test_Compiler_16(t *testing.T) {
	p, _ := check_Compile(t, exprSelector)
	// reg refers to the cost of imm on the same node.
	if len(p.Dispatch) != 1 {
		t.Fatalf("expected one dispatch table, got %d", len(p.Dispatch))
	}
	//
	table := p.Dispatch[0]
	//
	if strings.Join(table.Predicates, ",") != "imm,reg" {
		t.Errorf("unexpected predicates %v", table.Predicates)
	} else if len(table.Dependents[0]) != 1 || table.Dependents[0][0] != 1 || len(table.Dependents[1]) != 0 {
		t.Errorf("unexpected dependents %v", table.Dependents)
	} else if len(table.Chain) != 1 || table.Chain[0].Rule != 1 {
		t.Errorf("unexpected chain %v", table.Chain)
	} else if table.Rules() != 4 {
		t.Errorf("expected four candidates, got %d", table.Rules())
	}
	// Only the Add functor has indexed children.
	for _, entry := range table.Functors {
		if (entry.Name == "Add") != (len(entry.Children) == 2) {
			t.Errorf("unexpected children for %s", entry.Name)
		}
	}
}

func Test_Compiler_17(t *testing.T) {
	_, v := check_Compile(t, `
(type T (Leaf INT))
(choice p (T) (INT)
  (rule ((Leaf N)) (N) (cost 10))
  (rule (X) (V) (where X Y) (call q (Y) (V)) (cost (+ 1 (cost q Y)))))
(choice q (T) (INT)
  (rule ((Leaf N)) ((* N 2)) (cost 1)))`)
	// The cost of q is reached through an alias of the node.
	term := check_Parse(t, v, "(Leaf 5)")
	check_Results(t, v, "p", term, "10")
	//
	block := v.Machine().Resolve("T", term)
	check_Cost(t, block, 0, 2, 1)
	check_Cost(t, block, 1, 1, 0)
}

func Test_Compiler_18(t *testing.T) {
	_, v := check_Compile(t, `
(type T (Leaf INT) (Pair T T))
(choice p (T) (INT)
  (rule ((Leaf N)) (N) (cost 10))
  (rule (X) (V) (call q (X) (V)) (cost (- 100 (cost q X)))))
(choice q (T) (INT)
  (rule ((Pair _ _)) (0) (cost 1)))`)
	// q never applies to a leaf, so neither does the rule relying on it.
	term := check_Parse(t, v, "(Leaf 4)")
	check_Results(t, v, "p", term, "4")
	//
	block := v.Machine().Resolve("T", term)
	check_Cost(t, block, 0, 10, 0)
	check_Cost(t, block, 1, machine.Infinity, -1)
}

func Test_Compiler_19(t *testing.T) {
	cfg := config.Default()
	cfg.Arena.FrameLimit = 64
	//
	program, diagnostics := compileText(t, listLength, NewOptions(cfg))
	//
	if program == nil || HasErrors(diagnostics) {
		t.Fatalf("compilation failed: %v", diagnostics)
	}
	//
	for _, proc := range program.Procs {
		if proc.Frame == 0 || proc.Frame > 64 {
			t.Errorf("unexpected frame size %d for %s", proc.Frame, proc.Name)
		}
	}
}

// Exceeding the frame limit is fatal.
func Test_Compiler_20(t *testing.T) {
	var code = -1
	//
	logger := log.StandardLogger()
	exit := logger.ExitFunc
	logger.ExitFunc = func(c int) { code = c }
	//
	defer func() {
		logger.ExitFunc = exit
		//
		if r := recover(); r == nil {
			t.Errorf("frame exhaustion should not return")
		} else if code != 1 {
			t.Errorf("frame exhaustion should exit with code 1 (was %d)", code)
		}
	}()
	//
	cfg := config.Default()
	cfg.Arena.FrameLimit = 2
	compileText(t, listLength, NewOptions(cfg))
}

// Variables bound by every case alternative remain visible after the case.
func Test_Compiler_21(t *testing.T) {
	_, v := check_Compile(t, `
(type Shape (Circle INT) (Square INT))
(action describe (Shape) (STRING INT)
  (rule (S) (Name Size)
    (case ((where S (Circle R)) (where "circle" Name) (where (* R 2) Size))
          ((where S (Square W)) (where "square" Name) (where W Size)))))`)
	//
	check_Call(t, v, "describe", "(Circle 3)", `"circle"`, "6")
	check_Call(t, v, "describe", "(Square 4)", `"square"`, "4")
}

// Nested cases export through each level.
func Test_Compiler_22(t *testing.T) {
	_, v := check_Compile(t, `
(action sign (INT) (STRING)
  (rule (N) (S)
    (case ((where N 0) (where "zero" S))
          ((case ((where N 1) (where "one" S)) ((where "many" S)))))))`)
	//
	check_Call(t, v, "sign", "0", `"zero"`)
	check_Call(t, v, "sign", "1", `"one"`)
	check_Call(t, v, "sign", "7", `"many"`)
}

// The root clause compiles to an action of no arguments.
func Test_Compiler_23(t *testing.T) {
	_, v := check_Compile(t, `
(var count INT)
(root (set count 3) (get count C) (set count (* C 2)))`)
	//
	check_Results(t, v, "root", nil)
	//
	if n := v.Machine().Global("count").Int(); n != 6 {
		t.Errorf("expected root executed, count is %d", n)
	}
}

// ============================================================================
// Helpers
// ============================================================================

// Compile a program which is expected to have no errors.
func check_Compile(t *testing.T, text string) (*ir.Program, *vm.VM) {
	program, diagnostics := compileText(t, text, DefaultOptions())
	//
	for _, d := range diagnostics {
		if d.Severity != Warning {
			t.Errorf("unexpected %s", d)
		}
	}
	//
	if program == nil {
		t.Fatalf("no program generated")
	}
	//
	return program, vm.New(program, 0)
}

func compileText(t *testing.T, text string, options Options) (*ir.Program, []Diagnostic) {
	decls, srcmap, errs := loader.LoadString("test", text)
	//
	for _, err := range errs {
		t.Fatalf("syntax error: %s", err.Message())
	}
	//
	options.SourceMaps = srcmap
	//
	return Compile(decls, options)
}

func check_Parse(t *testing.T, v *vm.VM, text string) machine.Value {
	value, err := v.Parse(text)
	if err != nil {
		t.Fatalf("invalid term %s: %s", text, err)
	}
	//
	return value
}

// Call a predicate of one argument, and check its results.
func check_Call(t *testing.T, v *vm.VM, pred string, arg string, expected ...string) {
	check_Results(t, v, pred, []machine.Value{check_Parse(t, v, arg)}, expected...)
}

func check_Results(t *testing.T, v *vm.VM, pred string, args any, expected ...string) {
	var inputs []machine.Value
	//
	switch a := args.(type) {
	case machine.Value:
		inputs = []machine.Value{a}
	case []machine.Value:
		inputs = a
	}
	//
	results, ok, err := v.Call(pred, inputs...)
	//
	if err != nil {
		t.Fatalf("%s aborted: %s", pred, err)
	} else if !ok {
		t.Fatalf("%s failed", pred)
	} else if len(results) != len(expected) {
		t.Fatalf("%s returned %d results, expected %d", pred, len(results), len(expected))
	}
	//
	for i, r := range results {
		if actual := v.Machine().Format(r); actual != expected[i] {
			t.Errorf("%s result %d is %s, expected %s", pred, i, actual, expected[i])
		}
	}
}

func check_Fails(t *testing.T, v *vm.VM, pred string, arg string) {
	_, ok, err := v.Call(pred, check_Parse(t, v, arg))
	//
	if err != nil {
		t.Errorf("%s aborted: %s", pred, err)
	} else if ok {
		t.Errorf("%s unexpectedly succeeded", pred)
	}
}

func check_Abort(t *testing.T, err error, pred string, line int) {
	var abort *machine.AbortError
	//
	if !errors.As(err, &abort) {
		t.Errorf("expected abort, got %v", err)
	} else if abort.Predicate != pred || abort.Line != line {
		t.Errorf("expected abort of %s on line %d, got %s", pred, line, abort)
	}
}

func check_Cost(t *testing.T, block *machine.ControlBlock, pred int, cost int64, rule int) {
	if block.Best[pred] != cost || block.Chosen[pred] != rule {
		t.Errorf("predicate %d resolved to rule %d at cost %d, expected rule %d at cost %d", pred,
			block.Chosen[pred], block.Best[pred], rule, cost)
	}
}
