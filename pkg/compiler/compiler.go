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
// Package compiler turns a list of declarations into a program of generated
// procedures.  Ordinary predicates become first-match-wins procedures over a
// checkpointable heap, whilst choice predicates are partitioned by the type of
// their primary argument into dispatch tables, resolved at runtime by cost.
package compiler

import (
	"slices"

	"github.com/gentle-lang/gentle/pkg/ast"
	"github.com/gentle-lang/gentle/pkg/config"
	"github.com/gentle-lang/gentle/pkg/env"
	"github.com/gentle-lang/gentle/pkg/ir"
	"github.com/gentle-lang/gentle/pkg/util"
	"github.com/gentle-lang/gentle/pkg/util/source"
	log "github.com/sirupsen/logrus"
)

// Options determine how compilation proceeds.
type Options struct {
	// Restrictions applied to choice predicates.
	Choice config.ChoiceRules
	// Source maps for the declarations (optional), used to determine the
	// source lines reported when execution aborts.
	SourceMaps *source.Maps[ast.Node]
	// Maximum number of registers in any one procedure (0 is unbounded).
	FrameLimit uint
}

// DefaultOptions returns the options used when no configuration is given.
func DefaultOptions() Options {
	return Options{Choice: config.Default().Choice}
}

// NewOptions returns the options determined by a given configuration.
func NewOptions(cfg config.Config) Options {
	return Options{Choice: cfg.Choice, FrameLimit: cfg.Arena.FrameLimit}
}

// Compiler holds the state of one compilation.
type Compiler struct {
	env    *env.Environment
	rules  config.ChoiceRules
	srcmap *source.Maps[ast.Node]
	// Diagnostics reported so far, in order.
	diagnostics []Diagnostic
	reported    map[diagnosticKey]bool
	// Procedures generated so far, in order.
	procs []*ir.Proc
	// Choice indices in order of creation, and indexed by type.
	choices []*ChoiceTypeIndex
	index   map[*env.SumType]*ChoiceTypeIndex
	// Rules of each indexed choice predicate.
	choiceRules map[*env.PredicateMeaning][]*ChoiceRule
}

// Compile a set of declarations into a program.  Diagnostics are returned in
// the order they were found.  If any is fatal, no program is returned.
func Compile(decls []ast.Declaration, options Options) (*ir.Program, []Diagnostic) {
	c := &Compiler{
		env:         env.NewEnvironment(options.FrameLimit),
		rules:       options.Choice,
		srcmap:      options.SourceMaps,
		reported:    make(map[diagnosticKey]bool),
		index:       make(map[*env.SumType]*ChoiceTypeIndex),
		choiceRules: make(map[*env.PredicateMeaning][]*ChoiceRule),
	}
	//
	stats := util.NewPerfStats()
	c.declare(decls)
	stats.Log("Declaration")
	//
	for _, d := range c.diagnostics {
		if d.Severity == Fatal {
			return nil, c.diagnostics
		}
	}
	//
	stats = util.NewPerfStats()
	c.indexChoices()
	c.checkOverlap()
	//
	for _, p := range c.env.Predicates() {
		switch {
		case p.External:
			continue
		case c.choiceRules[p] != nil:
			c.compileChoice(p)
		default:
			c.compilePredicate(p)
		}
	}
	//
	program := c.program()
	stats.Log("Rule compilation")
	//
	return program, c.diagnostics
}

// ===================================================================
// Declarations
// ===================================================================

// Declare all global names, then resolve the types they refer to.  Names are
// declared first so that types (and predicates) can refer to each other
// regardless of declaration order.
func (c *Compiler) declare(decls []ast.Declaration) {
	var (
		// Declarations which introduced a meaning
		owners = make(map[env.Meaning]ast.Declaration)
		fresh  []ast.Declaration
		vars   []*ast.VarDecl
	)
	// First, declare names
	for _, d := range decls {
		var (
			meaning    env.Meaning
			compatible bool
		)
		//
		switch d := d.(type) {
		case *ast.TypeDecl:
			meaning, compatible = c.env.DeclareType(d)
		case *ast.TableDecl:
			meaning, compatible = c.env.DeclareTable(d)
		case *ast.PredicateDecl:
			meaning, compatible = c.env.DeclarePredicate(d)
		case *ast.VarDecl:
			// Variables can only be declared once their type is known.
			vars = append(vars, d)
			continue
		}
		//
		if owner, ok := owners[meaning]; !ok {
			owners[meaning] = d
			fresh = append(fresh, d)
		} else if !compatible {
			c.errorf(d, "%s already declared differently", d.DeclName())
		} else if pd, ok := d.(*ast.PredicateDecl); ok && owner != d {
			c.mergePredicate(meaning.(*env.PredicateMeaning), pd)
		}
	}
	// Second, resolve types of the declarations which introduced meanings.
	for _, d := range fresh {
		switch d := d.(type) {
		case *ast.TypeDecl:
			c.declareFunctors(d)
		case *ast.TableDecl:
			m := c.env.LookupGlobal(d.Name).Unwrap().(*env.TableMeaning)
			m.Type.Fields = c.resolveFields(d.Fields)
		case *ast.PredicateDecl:
			m := c.env.LookupGlobal(d.Name).Unwrap().(*env.PredicateMeaning)
			m.In = c.resolveFields(d.In)
			m.Out = c.resolveFields(d.Out)
		}
	}
	// Finally, variables
	for _, d := range vars {
		datatype := c.resolveType(d, d.Type)
		//
		if _, ok := c.env.DeclareVariable(d, datatype); !ok {
			c.errorf(d, "%s already declared differently", d.Name)
		}
	}
}

// Merge the rules of a compatible redeclaration into an existing predicate.
// The predicate is only external if every declaration of it is.
func (c *Compiler) mergePredicate(m *env.PredicateMeaning, d *ast.PredicateDecl) {
	m.Rules = append(slices.Clip(m.Rules), d.Rules...)
	m.External = m.External && d.External
}

func (c *Compiler) declareFunctors(d *ast.TypeDecl) {
	var owner = c.env.LookupGlobal(d.Name).Unwrap().(*env.TypeMeaning).Type
	//
	for _, f := range d.Functors {
		if owner.Functor(f.Name) != nil {
			c.errorf(f, "functor %s declared twice in %s", f.Name, d.Name)
			continue
		}
		//
		names := make([]string, len(f.Fields))
		for i, field := range f.Fields {
			names[i] = field.Name
		}
		//
		c.env.AddFunctor(owner, f.Name, names, c.resolveFields(f.Fields))
	}
}

func (c *Compiler) resolveFields(fields []*ast.Field) []env.Type {
	var types = make([]env.Type, len(fields))
	//
	for i, f := range fields {
		types[i] = c.resolveType(f, f.Type)
	}
	//
	return types
}

// Resolve a type name, where an unknown name is fatal.
func (c *Compiler) resolveType(node ast.Node, name string) env.Type {
	if t, ok := c.env.ResolveType(name); ok {
		return t
	}
	//
	c.fatalf(node, "unknown type %s", name)
	//
	return env.ErrorType
}

// ===================================================================
// Program
// ===================================================================

func (c *Compiler) program() *ir.Program {
	var program = &ir.Program{Procs: c.procs}
	//
	for _, t := range c.env.Types() {
		for _, f := range t.Functors {
			program.Functors = append(program.Functors, ir.FunctorInfo{
				Code: f.Code, Type: t.Name(), Name: f.Name, Arity: uint(f.Arity())})
		}
	}
	//
	for _, name := range c.env.Globals() {
		switch m := c.env.LookupGlobal(name).Unwrap().(type) {
		case *env.VariableMeaning:
			program.Globals = append(program.Globals, name)
		case *env.TableMeaning:
			program.Tables = append(program.Tables, ir.TableInfo{Name: name, Fields: m.Type.FieldNames})
		}
	}
	//
	for _, p := range c.env.Predicates() {
		program.Predicates = append(program.Predicates, ir.PredicateInfo{
			Name: p.Name, Proc: p.CodeName, Class: p.Class, Inputs: uint(len(p.In)), Outputs: uint(len(p.Out)),
			External: p.External,
		})
	}
	//
	for _, index := range c.choices {
		program.Dispatch = append(program.Dispatch, index.table(c.index))
	}
	//
	log.Debugf("generated %d procedures, %d dispatch tables", len(program.Procs), len(program.Dispatch))
	//
	return program
}
