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
// Package env provides the symbol environment used during rule compilation.
// This consists of the global meanings of declared identifiers (types,
// variables, tables, predicates) and a stack of local scopes holding the
// variables bound by the patterns of the rule currently being compiled.
package env

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/gentle-lang/gentle/pkg/arena"
	"github.com/gentle-lang/gentle/pkg/ast"
	"github.com/gentle-lang/gentle/pkg/util"
	"github.com/gentle-lang/gentle/pkg/util/collection/stack"
)

// Environment holds every global meaning, along with the local scopes of the
// rule currently being compiled.
type Environment struct {
	names *Interner
	// Global meanings
	globals map[Identifier]Meaning
	// Global identifiers in order of declaration (for determinism).
	order []Identifier
	// Functors indexed by (unqualified) name, in declaration order.
	functors map[Identifier][]*Functor
	// Code to be given to the next functor declared.
	nextCode int64
	// Code names already allocated to predicates.
	codeNames map[string]bool
	// Number of predicates declared.
	npredicates int
	// Stack of local scopes.
	scopes *stack.Stack[*Scope]
	// Slots of the frame being compiled.  Each local is allocated a slot, and
	// slots are reclaimed when the declaring scope is popped.
	frame *arena.Arena[Identifier]
}

// NewEnvironment constructs an environment in which only the builtin types
// are declared.  The frame limit bounds the number of slots any one generated
// procedure can use (0 means unbounded).
func NewEnvironment(frameLimit uint) *Environment {
	env := &Environment{
		names:     NewInterner(),
		globals:   make(map[Identifier]Meaning),
		functors:  make(map[Identifier][]*Functor),
		nextCode:  1,
		codeNames: make(map[string]bool),
		scopes:    stack.NewStack[*Scope](),
		frame:     arena.NewArena[Identifier]("frame", frameLimit),
	}
	//
	for _, p := range Primitives {
		env.DefineGlobal(p.name, &PredefinedMeaning{p})
	}
	//
	return env
}

// Intern returns the identifier for a given name.
func (p *Environment) Intern(name string) Identifier {
	return p.names.Intern(name)
}

// Name returns the name of a given identifier.
func (p *Environment) Name(id Identifier) string {
	return p.names.Name(id)
}

// ===================================================================
// Globals
// ===================================================================

// DefineGlobal binds a global meaning to an identifier.  If the identifier is
// already bound, then the existing meaning is retained and returned.  In that
// case, the return flag indicates whether the two meanings are compatible
// (i.e. have identical signatures), which permits forward declarations.
func (p *Environment) DefineGlobal(name string, meaning Meaning) (Meaning, bool) {
	id := p.names.Intern(name)
	//
	if existing, ok := p.globals[id]; ok {
		return existing, existing.Signature() == meaning.Signature()
	}
	//
	p.globals[id] = meaning
	p.order = append(p.order, id)
	//
	return meaning, true
}

// LookupGlobal returns the global meaning of a given name, if it has one.
func (p *Environment) LookupGlobal(name string) util.Option[Meaning] {
	if m, ok := p.globals[p.names.Intern(name)]; ok {
		return util.Some(m)
	}
	//
	return util.None[Meaning]()
}

// DeclareType declares a sum type without any functors.  Functors are added
// separately, once all type names are known, so that types can refer to each
// other recursively.
func (p *Environment) DeclareType(decl *ast.TypeDecl) (Meaning, bool) {
	var functors = make([]string, len(decl.Functors))
	//
	for i, f := range decl.Functors {
		functors[i] = fmt.Sprintf("%s(%s)", f.Name, fieldTypes(f.Fields))
	}
	//
	signature := fmt.Sprintf("type %s", strings.Join(functors, "|"))
	//
	return p.DefineGlobal(decl.Name, &TypeMeaning{&SumType{name: decl.Name}, signature})
}

// DeclareTable declares a table type, whose field types are resolved later.
func (p *Environment) DeclareTable(decl *ast.TableDecl) (Meaning, bool) {
	var (
		signature = fmt.Sprintf("table (%s)", fieldTypes(decl.Fields))
		names     = make([]string, len(decl.Fields))
	)
	//
	for i, f := range decl.Fields {
		names[i] = f.Name
	}
	//
	return p.DefineGlobal(decl.Name, &TableMeaning{&TableType{decl.Name, names, nil}, signature})
}

// DeclareVariable declares a global variable of a given (resolved) type.
func (p *Environment) DeclareVariable(decl *ast.VarDecl, datatype Type) (Meaning, bool) {
	return p.DefineGlobal(decl.Name, &VariableMeaning{datatype, "var " + decl.Type})
}

// DeclarePredicate declares a predicate, whose formal types are resolved later.
func (p *Environment) DeclarePredicate(decl *ast.PredicateDecl) (Meaning, bool) {
	meaning := &PredicateMeaning{
		Name:     decl.Name,
		CodeName: p.AllocateCodeName("p_", decl.Name),
		Class:    decl.Class,
		Rules:    decl.Rules,
		External: decl.External,
		Decl:     decl,
		Index:    p.npredicates,
	}
	//
	m, ok := p.DefineGlobal(decl.Name, meaning)
	if m == Meaning(meaning) {
		p.npredicates++
	} else {
		// Release the code name, as it was not needed.
		delete(p.codeNames, meaning.CodeName)
	}
	//
	return m, ok
}

// AddFunctor adds a new functor to a given sum type, allocating it a fresh
// functor code.
func (p *Environment) AddFunctor(owner *SumType, name string, fieldNames []string, fields []Type) *Functor {
	functor := &Functor{name, owner, p.nextCode, fieldNames, fields}
	id := p.names.Intern(name)
	//
	p.nextCode++
	owner.Functors = append(owner.Functors, functor)
	p.functors[id] = append(p.functors[id], functor)
	//
	return functor
}

// Functors returns every functor with a given name, in declaration order.
func (p *Environment) Functors(name string) []*Functor {
	return p.functors[p.names.Intern(name)]
}

// QualifiedFunctor returns the functor of a given name declared by a given
// type, if there is one.
func (p *Environment) QualifiedFunctor(typename string, name string) util.Option[*Functor] {
	if t, ok := p.ResolveType(typename); ok {
		if st, ok := t.(*SumType); ok {
			if f := st.Functor(name); f != nil {
				return util.Some(f)
			}
		}
	}
	//
	return util.None[*Functor]()
}

// ResolveType looks up a type by name, returning false if the name does not
// denote a type.
func (p *Environment) ResolveType(name string) (Type, bool) {
	if m, ok := p.globals[p.names.Intern(name)]; ok {
		switch m := m.(type) {
		case *TypeMeaning:
			return m.Type, true
		case *TableMeaning:
			return m.Type, true
		case *PredefinedMeaning:
			return m.Type, true
		}
	}
	//
	return nil, false
}

// Predicates returns every declared predicate, in declaration order.
func (p *Environment) Predicates() []*PredicateMeaning {
	var preds []*PredicateMeaning
	//
	for _, id := range p.order {
		if m, ok := p.globals[id].(*PredicateMeaning); ok {
			preds = append(preds, m)
		}
	}
	//
	return preds
}

// Types returns every declared sum type, in declaration order.
func (p *Environment) Types() []*SumType {
	var types []*SumType
	//
	for _, id := range p.order {
		if m, ok := p.globals[id].(*TypeMeaning); ok {
			types = append(types, m.Type)
		}
	}
	//
	return types
}

// Globals returns the names of every global, in declaration order.
func (p *Environment) Globals() []string {
	var names = make([]string, len(p.order))
	//
	for i, id := range p.order {
		names[i] = p.names.Name(id)
	}
	//
	return names
}

// AllocateCodeName allocates a unique identifier for a generated procedure,
// derived from a given prefix and name.
func (p *Environment) AllocateCodeName(prefix string, name string) string {
	var builder strings.Builder
	//
	builder.WriteString(prefix)
	//
	for _, r := range name {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune('_')
		}
	}
	//
	base := builder.String()
	code := base
	//
	for i := 1; p.codeNames[code]; i++ {
		code = fmt.Sprintf("%s_%d", base, i)
	}
	//
	p.codeNames[code] = true
	//
	return code
}

func fieldTypes(fields []*ast.Field) string {
	var types = make([]string, len(fields))
	//
	for i, f := range fields {
		types[i] = f.Type
	}
	//
	return strings.Join(types, ",")
}
