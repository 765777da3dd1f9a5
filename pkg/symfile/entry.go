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
package symfile

import (
	"fmt"

	"github.com/gentle-lang/gentle/pkg/ast"
)

const (
	typeKind      = "type"
	varKind       = "var"
	tableKind     = "table"
	predicateKind = "predicate"
)

// The stored form of one declaration.
type entry struct {
	Kind     string    `json:"kind"`
	Name     string    `json:"name"`
	Type     string    `json:"type,omitempty"`
	Class    string    `json:"class,omitempty"`
	Functors []functor `json:"functors,omitempty"`
	Fields   []field   `json:"fields,omitempty"`
	In       []field   `json:"in,omitempty"`
	Out      []field   `json:"out,omitempty"`
}

type functor struct {
	Name   string  `json:"name"`
	Fields []field `json:"fields,omitempty"`
}

type field struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type"`
}

func encode(decl ast.Declaration) *entry {
	switch d := decl.(type) {
	case *ast.TypeDecl:
		e := &entry{Kind: typeKind, Name: d.Name}
		//
		for _, f := range d.Functors {
			e.Functors = append(e.Functors, functor{f.Name, encodeFields(f.Fields)})
		}
		//
		return e
	case *ast.VarDecl:
		return &entry{Kind: varKind, Name: d.Name, Type: d.Type}
	case *ast.TableDecl:
		return &entry{Kind: tableKind, Name: d.Name, Fields: encodeFields(d.Fields)}
	case *ast.PredicateDecl:
		return &entry{Kind: predicateKind, Name: d.Name, Class: d.Class.String(), In: encodeFields(d.In),
			Out: encodeFields(d.Out)}
	default:
		panic(fmt.Sprintf("unknown declaration %T", decl))
	}
}

func encodeFields(fields []*ast.Field) []field {
	var result = make([]field, len(fields))
	//
	for i, f := range fields {
		result[i] = field{f.Name, f.Type}
	}
	//
	return result
}

func (e *entry) decode() (ast.Declaration, error) {
	switch e.Kind {
	case typeKind:
		d := &ast.TypeDecl{Name: e.Name}
		//
		for _, f := range e.Functors {
			d.Functors = append(d.Functors, &ast.FunctorDecl{Name: f.Name, Fields: decodeFields(f.Fields)})
		}
		//
		return d, nil
	case varKind:
		return &ast.VarDecl{Name: e.Name, Type: e.Type}, nil
	case tableKind:
		return &ast.TableDecl{Name: e.Name, Fields: decodeFields(e.Fields)}, nil
	case predicateKind:
		class, ok := ast.ParseClass(e.Class)
		if !ok {
			return nil, fmt.Errorf("predicate %s has unknown class %s", e.Name, e.Class)
		}
		//
		return &ast.PredicateDecl{Name: e.Name, Class: class, In: decodeFields(e.In), Out: decodeFields(e.Out),
			External: true}, nil
	}
	//
	return nil, fmt.Errorf("%s has unknown kind %s", e.Name, e.Kind)
}

func decodeFields(fields []field) []*ast.Field {
	var result = make([]*ast.Field, len(fields))
	//
	for i, f := range fields {
		result[i] = &ast.Field{Name: f.Name, Type: f.Type}
	}
	//
	return result
}
