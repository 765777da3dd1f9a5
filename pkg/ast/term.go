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
package ast

import (
	"fmt"
	"strconv"
)

// Term is a pattern (when matched against) or an expression (when built).
// The same syntax serves both purposes, though some forms are restricted to
// one or the other (e.g. arithmetic cannot be matched against).
type Term interface {
	Node
	String() string
}

// Var is a named variable.  Within a pattern, this defines the variable
// whilst, within an expression, this uses it.
type Var struct {
	Name string
}

func (*Var) isNode() {}

func (t *Var) String() string { return t.Name }

// Wildcard is an anonymous pattern which matches anything.  The padding
// ensures distinct wildcards have distinct addresses (and hence distinct
// source mappings).
type Wildcard struct {
	_ byte
}

func (*Wildcard) isNode() {}

func (t *Wildcard) String() string { return "_" }

// Int is an integer literal.
type Int struct {
	Value int64
}

func (*Int) isNode() {}

func (t *Int) String() string { return strconv.FormatInt(t.Value, 10) }

// String is a string literal.
type String struct {
	Value string
}

func (*String) isNode() {}

func (t *String) String() string { return strconv.Quote(t.Value) }

// Apply is a functor applied to zero or more arguments.  The qualifier (which
// may be empty) names the type declaring the functor, and is needed when the
// functor name alone is ambiguous.
type Apply struct {
	Qualifier string
	Functor   string
	Args      []Term
}

func (*Apply) isNode() {}

// QualifiedName returns the functor name, including any qualification.
func (t *Apply) QualifiedName() string {
	if t.Qualifier == "" {
		return t.Functor
	}
	//
	return fmt.Sprintf("%s.%s", t.Qualifier, t.Functor)
}

func (t *Apply) String() string {
	if len(t.Args) == 0 {
		return t.QualifiedName()
	}
	//
	return fmt.Sprintf("(%s %s)", t.QualifiedName(), terms(t.Args))
}

// Named binds a variable to the whole of the term matched by a pattern.
type Named struct {
	Name    string
	Pattern Term
}

func (*Named) isNode() {}

func (t *Named) String() string { return fmt.Sprintf("(: %s %s)", t.Name, t.Pattern) }

// Op identifies an arithmetic operator.
type Op uint8

const (
	// Add is integer addition.
	Add Op = iota
	// Sub is integer subtraction.
	Sub
	// Mul is integer multiplication.
	Mul
	// Div is integer division.
	Div
)

// Ops lists the textual form of each operator, indexed by operator.
var Ops = []string{"+", "-", "*", "/"}

func (o Op) String() string { return Ops[o] }

// Binary is an arithmetic expression.  This can be built, but not matched.
type Binary struct {
	Op    Op
	Left  Term
	Right Term
}

func (*Binary) isNode() {}

func (t *Binary) String() string { return fmt.Sprintf("(%s %s %s)", t.Op, t.Left, t.Right) }

// CostRef reads the best cost established for a given choice predicate on the
// term bound to a given variable.  This can only be used in cost expressions.
type CostRef struct {
	Predicate string
	Arg       *Var
}

func (*CostRef) isNode() {}

func (t *CostRef) String() string { return fmt.Sprintf("(cost %s %s)", t.Predicate, t.Arg) }

// ===================================================================
// Constructors
// ===================================================================

// NewVar constructs a variable, or a wildcard when the name is "_".
func NewVar(name string) Term {
	if name == "_" {
		return &Wildcard{}
	}
	//
	return &Var{name}
}

// NewApply constructs an unqualified functor application.
func NewApply(functor string, args ...Term) *Apply {
	return &Apply{"", functor, args}
}

// NewInt constructs an integer literal.
func NewInt(value int64) *Int {
	return &Int{value}
}

// NewString constructs a string literal.
func NewString(value string) *String {
	return &String{value}
}
