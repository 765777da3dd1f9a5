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
package loader

import (
	"testing"

	"github.com/gentle-lang/gentle/pkg/ast"
)

func Test_Loader_01(t *testing.T) {
	decls := check_Load(t, "(type Shape (Circle INT) (Square (side INT)))")
	decl := decls[0].(*ast.TypeDecl)
	//
	if decl.Name != "Shape" || len(decl.Functors) != 2 {
		t.Fatalf("unexpected declaration %v", decl)
	} else if f := decl.Functors[1]; f.Name != "Square" || f.Fields[0].Name != "side" || f.Fields[0].Type != "INT" {
		t.Errorf("unexpected functor %v", f)
	}
}

func Test_Loader_02(t *testing.T) {
	decls := check_Load(t, "(var counter INT)\n(table Sym (name STRING) INT)")
	//
	if v := decls[0].(*ast.VarDecl); v.Name != "counter" || v.Type != "INT" {
		t.Errorf("unexpected variable %v", v)
	}
	//
	if tbl := decls[1].(*ast.TableDecl); tbl.Name != "Sym" || len(tbl.Fields) != 2 || tbl.Fields[1].Type != "INT" {
		t.Errorf("unexpected table %v", tbl)
	}
}

func Test_Loader_03(t *testing.T) {
	decls := check_Load(t, `
(action area (Shape) (INT)
  (rule ((Circle R)) ((* R R)))
  (rule ((Square.Square S)) (X) (where (+ S 1) X)))`)
	pred := decls[0].(*ast.PredicateDecl)
	//
	if pred.Class != ast.Action || len(pred.Rules) != 2 || pred.External {
		t.Fatalf("unexpected predicate %v", pred.Signature())
	}
	//
	out := pred.Rules[0].Out[0].(*ast.Binary)
	if out.Op != ast.Mul || out.String() != "(* R R)" {
		t.Errorf("unexpected output %s", out)
	}
	//
	in := pred.Rules[1].In[0].(*ast.Apply)
	if in.Qualifier != "Square" || in.Functor != "Square" {
		t.Errorf("unexpected qualification %s", in.QualifiedName())
	}
	//
	if _, ok := pred.Rules[1].Body[0].(*ast.Where); !ok {
		t.Errorf("expected where member")
	}
}

func Test_Loader_04(t *testing.T) {
	decls := check_Load(t, `
(choice reg (Expr) ()
  (rule ((: E (Add L R))) () (call reg (L)) (call reg (R) ()) (cost (+ 1 (cost reg L)))))`)
	rule := decls[0].(*ast.PredicateDecl).Rules[0]
	//
	named := rule.In[0].(*ast.Named)
	if named.Name != "E" || named.Pattern.(*ast.Apply).Functor != "Add" {
		t.Errorf("unexpected pattern %s", named)
	} else if len(rule.Body) != 2 {
		t.Fatalf("expected two members, got %d", len(rule.Body))
	}
	//
	cost := rule.Cost.(*ast.Binary).Right.(*ast.CostRef)
	if cost.Predicate != "reg" || cost.Arg.Name != "L" {
		t.Errorf("unexpected cost %s", cost)
	}
}

func Test_Loader_05(t *testing.T) {
	decls := check_Load(t, `
(action walk (List) ()
  (rule (_) ()
    (case ((get counter 0)) ((set counter 1)))
    (loop 3 (new Sym K) (write K name "x") (read K name N))))`)
	body := decls[0].(*ast.PredicateDecl).Rules[0].Body
	//
	if _, ok := decls[0].(*ast.PredicateDecl).Rules[0].In[0].(*ast.Wildcard); !ok {
		t.Errorf("expected wildcard")
	}
	//
	if c := body[0].(*ast.Case); len(c.Alternatives) != 2 {
		t.Errorf("expected two alternatives")
	}
	//
	loop := body[1].(*ast.Loop)
	if loop.Max != 3 || len(loop.Body) != 3 {
		t.Fatalf("unexpected loop %s", loop)
	} else if set := loop.Body[1].(*ast.TableSet); set.Expr.(*ast.String).Value != "x" {
		t.Errorf("unexpected string %s", set.Expr)
	}
}

func Test_Loader_06(t *testing.T) {
	decls := check_Load(t, "(extern condition lookup (STRING) (INT))")
	pred := decls[0].(*ast.PredicateDecl)
	//
	if !pred.External || pred.Class != ast.Condition || pred.Name != "lookup" || len(pred.Out) != 1 {
		t.Errorf("unexpected external %s", pred.Signature())
	}
}

func Test_Loader_07(t *testing.T) {
	decls, srcmap, errs := LoadString("test", "(action f (INT) (INT)\n  (rule (X) ((+ X 1))))")
	//
	if len(errs) != 0 {
		t.Fatalf("unexpected errors %v", errs)
	}
	//
	rule := decls[0].(*ast.PredicateDecl).Rules[0]
	if line, ok := srcmap.Line(rule); !ok || line != 2 {
		t.Errorf("expected rule on line 2, got %d", line)
	} else if !srcmap.Has(rule.Out[0]) || !srcmap.Has(rule.In[0]) {
		t.Errorf("expected terms to be mapped")
	}
}

func Test_Loader_08(t *testing.T) {
	decls := check_Load(t, "(var count INT)\n(root (set count 1) (call f (2) (X)))")
	root, ok := decls[1].(*ast.PredicateDecl)
	//
	if !ok || root.Name != RootName || root.Class != ast.Action {
		t.Fatalf("expected root action, got %v", decls[1])
	} else if len(root.In) != 0 || len(root.Out) != 0 || len(root.Rules) != 1 {
		t.Errorf("unexpected root signature %s", root.Signature())
	} else if len(root.Rules[0].Body) != 2 {
		t.Errorf("expected two members, got %d", len(root.Rules[0].Body))
	}
}

// ============================================================================
// Negative Tests
// ============================================================================

func Test_Loader_Err01(t *testing.T) {
	check_Err(t, "(frobnicate f)")
}

func Test_Loader_Err02(t *testing.T) {
	check_Err(t, "(action f (INT) (INT) (rule (X)))")
}

func Test_Loader_Err03(t *testing.T) {
	check_Err(t, "(action f (INT) (INT) (rule ((+ X)) (X)))")
}

func Test_Loader_Err04(t *testing.T) {
	check_Err(t, "(action f (INT) (INT) (rule (X) (X) (loop x)))")
}

func Test_Loader_Err05(t *testing.T) {
	check_Err(t, "(action f (INT) (INT)")
}

func Test_Loader_Err06(t *testing.T) {
	check_Err(t, "(action f (INT) (INT) (rule ((: x Y)) (Y)))")
}

func Test_Loader_Err07(t *testing.T) {
	check_Err(t, "(root (set count 1))\n(root (set count 2))")
}

// ============================================================================
// Helpers
// ============================================================================

func check_Load(t *testing.T, text string) []ast.Declaration {
	decls, _, errs := LoadString("test", text)
	//
	for _, err := range errs {
		t.Errorf("unexpected error: %s", err.Message())
	}
	//
	if len(decls) == 0 {
		t.Fatalf("no declarations in %q", text)
	}
	//
	return decls
}

func check_Err(t *testing.T, text string) {
	if _, _, errs := LoadString("test", text); len(errs) == 0 {
		t.Errorf("expected errors for %q", text)
	}
}
