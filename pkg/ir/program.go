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
package ir

import (
	"fmt"
	"strings"

	"github.com/gentle-lang/gentle/pkg/ast"
)

// ProcKind distinguishes the various procedures generated for a predicate.
type ProcKind uint8

const (
	// Main is the procedure invoked by callers of a predicate.
	Main ProcKind = iota
	// Score is the procedure evaluating the cost of one choice rule, given
	// only the primary argument.  This returns one integer result.
	Score
	// Apply is the procedure executing one choice rule in full, once it has
	// been chosen.
	Apply
)

var procKinds = []string{"main", "score", "apply"}

func (k ProcKind) String() string { return procKinds[k] }

// Proc is a generated procedure.  On entry, the inputs occupy the first
// registers of the frame.
type Proc struct {
	// Identifier of this procedure.
	Name string
	// Name of the predicate this procedure was generated for.
	Predicate string
	Kind      ProcKind
	// Index of the rule a score or apply procedure was generated for.
	Rule    uint
	Inputs  uint
	Outputs uint
	// Number of registers.
	Frame uint
	// Number of mark registers.
	Marks uint
	Code  []Insn
}

// Emit appends an instruction to this procedure.
func (p *Proc) Emit(insn Insn) {
	p.Code = append(p.Code, insn)
}

// Labels returns the position of every label placed in this procedure.
func (p *Proc) Labels() map[Label]int {
	var labels = make(map[Label]int)
	//
	for pc, insn := range p.Code {
		if t, ok := insn.(*Target); ok {
			labels[t.Label] = pc
		}
	}
	//
	return labels
}

// FunctorInfo describes a functor for the benefit of the runtime.
type FunctorInfo struct {
	Code  int64
	Type  string
	Name  string
	Arity uint
}

// TableInfo describes a table type.
type TableInfo struct {
	Name   string
	Fields []string
}

// PredicateInfo describes a predicate.  External predicates have no
// procedures in this program, and must be provided when it is run.
type PredicateInfo struct {
	Name     string
	Proc     string
	Class    ast.Class
	Inputs   uint
	Outputs  uint
	External bool
}

// Candidate is a choice rule registered with a dispatch table.
type Candidate struct {
	// Position of the rule's predicate within the table.
	Predicate uint
	// Position of the rule within its predicate.
	Rule uint
	// Procedure computing the rule's cost.
	Score string
}

// Child identifies a field whose value must be resolved before its parent.
type Child struct {
	Field uint
	Table string
}

// FunctorEntry holds the candidates which apply to one functor of a dispatch
// type.
type FunctorEntry struct {
	Functor    int64
	Name       string
	Candidates []Candidate
	Children   []Child
}

// DispatchTable is the runtime description of a choice type: the predicates
// sharing it, the candidate rules per functor (followed by chain rules which
// apply to every functor) and, for each predicate, those predicates whose cost
// on a node depends upon its own cost on that same node.
type DispatchTable struct {
	Type       string
	Predicates []string
	Functors   []*FunctorEntry
	Chain      []Candidate
	Dependents [][]uint
}

// Rules returns the number of candidate rules in this table.
func (p *DispatchTable) Rules() uint {
	var n = uint(len(p.Chain))
	//
	for _, f := range p.Functors {
		n += uint(len(f.Candidates))
	}
	//
	return n
}

// Program is the result of compiling a set of declarations.
type Program struct {
	Functors   []FunctorInfo
	Globals    []string
	Tables     []TableInfo
	Predicates []PredicateInfo
	Procs      []*Proc
	Dispatch   []*DispatchTable
}

// Proc returns the procedure of a given name, or nil if there is none.
func (p *Program) Proc(name string) *Proc {
	for _, proc := range p.Procs {
		if proc.Name == name {
			return proc
		}
	}
	//
	return nil
}

// Predicate looks up a predicate by name.
func (p *Program) Predicate(name string) (PredicateInfo, bool) {
	for _, info := range p.Predicates {
		if info.Name == name {
			return info, true
		}
	}
	//
	return PredicateInfo{}, false
}

// Functor looks up a functor by name, optionally qualified by its type.  This
// returns false if there is no such functor, or if the name is ambiguous.
func (p *Program) Functor(name string) (FunctorInfo, bool) {
	var (
		matches  []FunctorInfo
		typename string
	)
	//
	if i := strings.IndexByte(name, '.'); i >= 0 {
		typename, name = name[:i], name[i+1:]
	}
	//
	for _, f := range p.Functors {
		if f.Name == name && (typename == "" || f.Type == typename) {
			matches = append(matches, f)
		}
	}
	//
	if len(matches) != 1 {
		return FunctorInfo{}, false
	}
	//
	return matches[0], true
}

func (p *Program) String() string {
	var builder strings.Builder
	//
	for _, f := range p.Functors {
		builder.WriteString(fmt.Sprintf("functor %d %s.%s/%d\n", f.Code, f.Type, f.Name, f.Arity))
	}
	//
	for _, g := range p.Globals {
		builder.WriteString(fmt.Sprintf("global %s\n", g))
	}
	//
	for _, t := range p.Tables {
		builder.WriteString(fmt.Sprintf("table %s(%s)\n", t.Name, strings.Join(t.Fields, ",")))
	}
	//
	for _, proc := range p.Procs {
		builder.WriteString(fmt.Sprintf("\n%s %s(%d) -> (%d) [frame %d, marks %d]\n", proc.Kind, proc.Name,
			proc.Inputs, proc.Outputs, proc.Frame, proc.Marks))
		//
		for _, insn := range proc.Code {
			if _, ok := insn.(*Target); ok {
				builder.WriteString(insn.String())
			} else {
				builder.WriteString("\t" + insn.String())
			}
			//
			builder.WriteString("\n")
		}
	}
	//
	for _, d := range p.Dispatch {
		builder.WriteString(fmt.Sprintf("\ndispatch %s (%s)\n", d.Type, strings.Join(d.Predicates, ",")))
		//
		for _, f := range d.Functors {
			builder.WriteString(fmt.Sprintf("\t%s %s children %v\n", f.Name, candidates(f.Candidates), f.Children))
		}
		//
		builder.WriteString(fmt.Sprintf("\tchain %s\n", candidates(d.Chain)))
		builder.WriteString(fmt.Sprintf("\tdependents %v\n", d.Dependents))
	}
	//
	return builder.String()
}

func candidates(cs []Candidate) string {
	var strs = make([]string, len(cs))
	//
	for i, c := range cs {
		strs[i] = fmt.Sprintf("%d:%d=%s", c.Predicate, c.Rule, c.Score)
	}
	//
	return "[" + strings.Join(strs, " ") + "]"
}
