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
// Package ast defines the declarations and rules consumed by the rule compiler.
// Every syntactic element is a pointer type implementing Node, such that it can
// be used as the key of a source map when reporting diagnostics.
package ast

import (
	"fmt"
	"strings"
)

// Node is implemented by every syntactic element which may be associated with
// a span of source text.
type Node interface {
	isNode()
}

// Declaration represents a top-level declaration.
type Declaration interface {
	Node
	// DeclName returns the name being declared.
	DeclName() string
}

// Class determines how a predicate's rules are combined, and what happens when
// none of them apply.
type Class uint8

const (
	// Action predicates perform side-effects.  Exhaustion aborts.
	Action Class = iota
	// Condition predicates succeed or fail.  Exhaustion is failure.
	Condition
	// Nonterminal predicates represent grammar nonterminals.  Exhaustion aborts.
	Nonterminal
	// Token predicates represent grammar tokens.  Exhaustion aborts.
	Token
	// Choice predicates are resolved by cost comparison.
	Choice
	// Sweep predicates apply every matching rule.  Exhaustion is ignored.
	Sweep
)

var classNames = []string{"action", "condition", "nonterminal", "token", "choice", "sweep"}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	//
	return fmt.Sprintf("class(%d)", c)
}

// ParseClass converts a class keyword into a class, or returns false if the
// keyword is unknown.
func ParseClass(name string) (Class, bool) {
	for i, n := range classNames {
		if n == name {
			return Class(i), true
		}
	}
	//
	return 0, false
}

// Field is a (possibly anonymous) typed position within a functor, table or
// predicate signature.
type Field struct {
	// Name of this field, which may be empty.
	Name string
	// Name of the field's type.
	Type string
}

func (*Field) isNode() {}

func (f *Field) String() string {
	if f.Name == "" {
		return f.Type
	}
	//
	return fmt.Sprintf("%s:%s", f.Name, f.Type)
}

// TypeDecl declares a sum type as a list of functors.
type TypeDecl struct {
	Name     string
	Functors []*FunctorDecl
}

func (*TypeDecl) isNode() {}

// DeclName implementation for the Declaration interface.
func (d *TypeDecl) DeclName() string { return d.Name }

// FunctorDecl declares one variant of a sum type.
type FunctorDecl struct {
	Name   string
	Fields []*Field
}

func (*FunctorDecl) isNode() {}

// VarDecl declares a global variable.
type VarDecl struct {
	Name string
	Type string
}

func (*VarDecl) isNode() {}

// DeclName implementation for the Declaration interface.
func (d *VarDecl) DeclName() string { return d.Name }

// TableDecl declares a table type, whose entries are records with positional
// fields which can be read and written.
type TableDecl struct {
	Name   string
	Fields []*Field
}

func (*TableDecl) isNode() {}

// DeclName implementation for the Declaration interface.
func (d *TableDecl) DeclName() string { return d.Name }

// PredicateDecl declares a predicate along with its rules.  A predicate marked
// external has no rules here; it is implemented elsewhere (e.g. in another
// unit, or natively).
type PredicateDecl struct {
	Name     string
	Class    Class
	In       []*Field
	Out      []*Field
	Rules    []*Rule
	External bool
}

func (*PredicateDecl) isNode() {}

// DeclName implementation for the Declaration interface.
func (d *PredicateDecl) DeclName() string { return d.Name }

// Signature returns a textual representation of this predicate's signature,
// which is used when comparing redeclarations.
func (d *PredicateDecl) Signature() string {
	return fmt.Sprintf("%s %s(%s) -> (%s)", d.Class, d.Name, fieldTypes(d.In), fieldTypes(d.Out))
}

// Rule is one pattern-matching alternative of a predicate.  The cost is only
// meaningful for choice predicates, and may be nil.
type Rule struct {
	In   []Term
	Out  []Term
	Body []Member
	Cost Term
}

func (*Rule) isNode() {}

func (r *Rule) String() string {
	return fmt.Sprintf("(%s) -> (%s)", terms(r.In), terms(r.Out))
}

func fieldTypes(fields []*Field) string {
	var types = make([]string, len(fields))
	//
	for i, f := range fields {
		types[i] = f.Type
	}
	//
	return strings.Join(types, ",")
}

func terms(ts []Term) string {
	var strs = make([]string, len(ts))
	//
	for i, t := range ts {
		strs[i] = t.String()
	}
	//
	return strings.Join(strs, " ")
}
