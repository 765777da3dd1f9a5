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
package env

import (
	"github.com/gentle-lang/gentle/pkg/ast"
)

// Meaning is the binding carried by a globally declared identifier.
type Meaning interface {
	// Signature is a canonical description of this meaning.  Two declarations
	// of the same identifier are compatible exactly when their signatures
	// coincide.
	Signature() string
}

// TypeMeaning binds an identifier to a sum type.
type TypeMeaning struct {
	Type *SumType
	// Canonical description of the declared functors.
	signature string
}

// Signature implementation for Meaning interface.
func (p *TypeMeaning) Signature() string { return p.signature }

// VariableMeaning binds an identifier to a global variable.
type VariableMeaning struct {
	Type Type
	// Canonical description of the declared type.
	signature string
}

// Signature implementation for Meaning interface.
func (p *VariableMeaning) Signature() string { return p.signature }

// TableMeaning binds an identifier to a table type.
type TableMeaning struct {
	Type      *TableType
	signature string
}

// Signature implementation for Meaning interface.
func (p *TableMeaning) Signature() string { return p.signature }

// PredefinedMeaning binds an identifier to a builtin type.
type PredefinedMeaning struct {
	Type *Primitive
}

// Signature implementation for Meaning interface.
func (p *PredefinedMeaning) Signature() string { return "predefined " + p.Type.name }

// PredicateMeaning binds an identifier to a predicate.
type PredicateMeaning struct {
	// Name as declared.
	Name string
	// Identifier used for the generated procedure.
	CodeName string
	Class    ast.Class
	// Formal types, resolved once all types are declared.
	In  []Type
	Out []Type
	// Rules in declaration order.
	Rules []*ast.Rule
	// External predicates are implemented elsewhere, and need no rules.
	External bool
	// Original declaration (i.e. the first one encountered).
	Decl *ast.PredicateDecl
	// Position of this predicate in declaration order.
	Index int
}

// Signature implementation for Meaning interface.
func (p *PredicateMeaning) Signature() string { return p.Decl.Signature() }
