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
package emit

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gentle-lang/gentle/pkg/config"
	"github.com/gentle-lang/gentle/pkg/ir"
	"github.com/gentle-lang/gentle/pkg/machine"
	"github.com/gentle-lang/gentle/pkg/vm"
)

const mixed = `
(type Expr (Num INT) (Add Expr Expr))
(choice imm (Expr) (INT)
  (rule ((Num N)) (N) (cost 0)))
(choice reg (Expr) (INT)
  (rule ((Num N)) ((* N 10)) (cost 5))
  (rule (E) (V) (call imm (E) (V)) (cost (+ 1 (cost imm E))))
  (rule ((Add L R)) ((+ A B)) (call reg (L) (A)) (call reg (R) (B))
    (cost (+ 1 (+ (cost reg L) (cost reg R))))))
(type List (Nil) (Cons INT List))
(var cur List)
(var count INT)
(action length (List) (INT)
  (rule (L) (N) (set cur L) (set count 0)
    (loop (get cur (Cons _ T)) (set cur T) (get count C) (set count (+ C 1)))
    (get count N)))
(type Shape (Circle INT) (Square INT))
(choice area (Shape) (INT)
  (rule ((Circle R)) ((* R R)) (cost 0))
  (rule ((Square S)) ((* S S)) (cost 0)))
(extern condition big (INT) ())
(action describe (Shape) (STRING)
  (rule (X) ("big") (call area (X) (A)) (call big (A)))
  (rule (_) ("small")))
`

type call struct {
	pred string
	arg  string
}

var mixedCalls = []call{
	{"reg", "(Num 3)"},
	{"reg", "(Add (Num 1) (Add (Num 2) (Num 3)))"},
	{"imm", "(Add (Num 1) (Num 2))"},
	{"length", "(Cons 1 (Cons 2 (Cons 3 (Nil))))"},
	{"length", "(Nil)"},
	{"area", "(Square 4)"},
	{"describe", "(Circle 9)"},
	{"describe", "(Square 2)"},
}

func big(m *machine.Machine, args ...machine.Value) ([]machine.Value, bool) {
	return nil, args[0].Int() > 50
}

// Generated code builds, passes vet and agrees with the interpreter.
func Test_Emit_05(t *testing.T) {
	if testing.Short() {
		t.Skip("builds generated code")
	} else if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go command unavailable")
	}
	//
	var (
		program  = check_Program(t, mixed)
		expected = check_Interpret(t, program, mixedCalls)
		dir      = check_Package(t, program, mixedCalls)
	)
	//
	if out, err := exec.Command("go", "vet", dir).CombinedOutput(); err != nil {
		t.Fatalf("vet failed: %s\n%s", err, out)
	}
	//
	out, err := exec.Command("go", "run", dir).CombinedOutput()
	if err != nil {
		t.Fatalf("run failed: %s\n%s", err, out)
	}
	//
	if actual := strings.TrimSpace(string(out)); actual != strings.Join(expected, "\n") {
		t.Errorf("generated code disagrees with interpreter:\n%s\nexpected:\n%s", actual,
			strings.Join(expected, "\n"))
	}
}

// ============================================================================
// Helpers
// ============================================================================

// Run each call through the interpreter, describing its outcome.
func check_Interpret(t *testing.T, program *ir.Program, calls []call) []string {
	var (
		v       = vm.New(program, 0)
		results []string
	)
	//
	if err := v.External("big", big); err != nil {
		t.Fatal(err)
	}
	//
	for _, c := range calls {
		arg, err := v.Parse(c.arg)
		if err != nil {
			t.Fatalf("invalid term %s: %s", c.arg, err)
		}
		//
		values, ok, err := v.Call(c.pred, arg)
		results = append(results, outcome(v.Machine(), c.pred, values, ok && err == nil))
	}
	//
	return results
}

// Write the generated program, along with a main function making each call,
// into a fresh package directory beneath testdata.
func check_Package(t *testing.T, program *ir.Program, calls []call) string {
	var (
		settings = config.Emit{Package: "main", Runtime: config.Default().Emit.Runtime}
		v        = vm.New(program, 0)
		driver   strings.Builder
	)
	//
	src, err := Source(program, settings)
	if err != nil {
		t.Fatal(err)
	} else if err := os.MkdirAll("testdata", 0o755); err != nil {
		t.Fatal(err)
	}
	//
	dir, err := os.MkdirTemp("testdata", "run")
	if err != nil {
		t.Fatal(err)
	}
	//
	t.Cleanup(func() {
		os.RemoveAll(dir)
		os.Remove("testdata")
	})
	//
	driver.WriteString(driverHeader)
	//
	for _, c := range calls {
		arg, err := v.Parse(c.arg)
		if err != nil {
			t.Fatalf("invalid term %s: %s", c.arg, err)
		}
		//
		driver.WriteString(fmt.Sprintf("\tinvoke(m, %q, %s)\n", c.pred, goTerm(v.Machine(), program, arg)))
	}
	//
	driver.WriteString("}\n")
	//
	if err := os.WriteFile(filepath.Join(dir, "grammar.go"), src, 0o644); err != nil {
		t.Fatal(err)
	} else if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte(driver.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	//
	return "./" + filepath.ToSlash(dir)
}

const driverHeader = `package main

import (
	"fmt"
	"strings"

	machine "github.com/gentle-lang/gentle/pkg/machine"
)

func invoke(m *machine.Machine, pred string, args ...machine.Value) {
	var (
		values []machine.Value
		ok     bool
		parts  = []string{pred}
	)
	// Aborts are reported as failures.
	func() {
		defer func() {
			if recover() != nil {
				ok = false
			}
		}()
		values, ok = m.Call(Predicates[pred], args...)
	}()
	//
	if !ok {
		parts = append(parts, "failed")
	}
	//
	for _, v := range values {
		parts = append(parts, m.Format(v))
	}
	//
	fmt.Println(strings.Join(parts, " "))
}

func main() {
	m := machine.New(0)
	Install(m)
	m.Register(Predicates["big"], func(m *machine.Machine, args ...machine.Value) ([]machine.Value, bool) {
		return nil, args[0].Int() > 50
	})
	//
`

// Describe the outcome of a call in the same way as the generated driver.
// Aborts are reported as failures.
func outcome(m *machine.Machine, pred string, values []machine.Value, ok bool) string {
	var parts = []string{pred}
	//
	if !ok {
		parts = append(parts, "failed")
	}
	//
	for _, v := range values {
		parts = append(parts, m.Format(v))
	}
	//
	return strings.Join(parts, " ")
}

// Render a value as a Go expression constructing it on a machine m.
func goTerm(m *machine.Machine, program *ir.Program, value machine.Value) string {
	switch value.Kind() {
	case machine.IntKind:
		return fmt.Sprintf("machine.Int(%d)", value.Int())
	case machine.StringKind:
		return fmt.Sprintf("machine.String(%q)", value.Str())
	case machine.TermKind:
		code := m.Tag(value)
		args := []string{fmt.Sprintf("%d", code)}
		//
		for _, f := range program.Functors {
			if f.Code == code {
				for i := range f.Arity {
					args = append(args, goTerm(m, program, m.Field(value, i)))
				}
			}
		}
		//
		return fmt.Sprintf("m.Build(%s)", strings.Join(args, ", "))
	}
	//
	return "machine.None"
}
