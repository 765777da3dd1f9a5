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
	"fmt"
	"strings"
)

// Type represents the type of a value manipulated by a rule.  Types are
// compared by identity.
type Type interface {
	// Name returns the declared name of this type.
	Name() string
}

// Primitive represents one of the builtin types.
type Primitive struct {
	name string
}

// Name implementation for the Type interface.
func (p *Primitive) Name() string { return p.name }

var (
	// INT is the builtin integer type.
	INT = &Primitive{"INT"}
	// STRING is the builtin string type.
	STRING = &Primitive{"STRING"}
	// POS is the builtin source position type.
	POS = &Primitive{"POS"}
)

// Primitives lists the builtin types in the order they are predefined.
var Primitives = []*Primitive{INT, STRING, POS}

type errorType struct{}

func (*errorType) Name() string { return "<error>" }

// ErrorType is a placeholder used after a type error has been reported.  It is
// compatible with every type, so that no further errors cascade from it.
var ErrorType Type = &errorType{}

// Compatible determines whether a value of the actual type can be used where
// the expected type is required.
func Compatible(expected Type, actual Type) bool {
	return expected == actual || expected == ErrorType || actual == ErrorType
}

// SumType is a named set of functors.
type SumType struct {
	name     string
	Functors []*Functor
}

// Name implementation for the Type interface.
func (p *SumType) Name() string { return p.name }

// Functor looks up a functor of this type by name.
func (p *SumType) Functor(name string) *Functor {
	for _, f := range p.Functors {
		if f.Name == name {
			return f
		}
	}
	//
	return nil
}

// Functor is one variant of a sum type.  Functor codes are unique across all
// types, and are used as runtime discriminants.
type Functor struct {
	Name  string
	Owner *SumType
	Code  int64
	// Field names (empty for anonymous fields)
	FieldNames []string
	// Field types
	Fields []Type
}

// Arity returns the number of fields of this functor.
func (p *Functor) Arity() int {
	return len(p.Fields)
}

func (p *Functor) String() string {
	var fields = make([]string, len(p.Fields))
	//
	for i, f := range p.Fields {
		fields[i] = f.Name()
	}
	//
	return fmt.Sprintf("%s.%s(%s)", p.Owner.name, p.Name, strings.Join(fields, ","))
}

// TableType is a named record type with positional fields.  Values of this
// type are references to table entries.
type TableType struct {
	name       string
	FieldNames []string
	Fields     []Type
}

// Name implementation for the Type interface.
func (p *TableType) Name() string { return p.name }

// Field determines the index of a given field, or returns false if there is no
// such field.
func (p *TableType) Field(name string) (int, bool) {
	for i, n := range p.FieldNames {
		if n == name {
			return i, true
		}
	}
	//
	return 0, false
}
