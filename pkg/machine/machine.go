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
package machine

import (
	"fmt"
	"strings"

	"github.com/gentle-lang/gentle/pkg/arena"
)

// Proc is the calling convention shared by all generated procedures.  The
// boolean result is false when the procedure failed, in which case the results
// are undefined.
type Proc func(m *Machine, args ...Value) ([]Value, bool)

// Mark is a saved heap watermark.
type Mark struct {
	heap arena.Mark
}

// Functor describes a functor for the purposes of printing and parsing terms.
type Functor struct {
	Code  int64
	Name  string
	Arity uint
}

type entry struct {
	table  string
	fields []Value
}

// Machine is the state of a running program.  A machine must only be used from
// one goroutine at a time, though independent machines share nothing.
type Machine struct {
	// Terms, each occupying a tag slot followed by its fields.
	heap *arena.Arena[Value]
	// Table entries.  These are not subject to rollback.
	entries []entry
	globals map[string]Value
	// Control blocks indexed by the heap index of the term they describe.
	blocks map[uint]*ControlBlock
	// Highest index of any control block (used to avoid scanning blocks
	// needlessly on rollback).
	highest  uint
	tables   map[string]*Dispatch
	functors map[int64]Functor
	procs    map[string]Proc
	// Candidates being scored, innermost last.
	scoring []scoring
}

// New constructs a machine whose heap holds at most a given number of slots
// (where 0 means unbounded).
func New(limit uint) *Machine {
	return &Machine{
		heap:     arena.NewArena[Value]("heap", limit),
		globals:  make(map[string]Value),
		blocks:   make(map[uint]*ControlBlock),
		tables:   make(map[string]*Dispatch),
		functors: make(map[int64]Functor),
		procs:    make(map[string]Proc),
	}
}

// DeclareFunctor records the name and arity of a functor.
func (m *Machine) DeclareFunctor(code int64, name string, arity uint) {
	m.functors[code] = Functor{code, name, arity}
}

// Register makes a procedure available to Call.
func (m *Machine) Register(name string, proc Proc) {
	m.procs[name] = proc
}

// Call invokes a registered procedure by name.
func (m *Machine) Call(name string, args ...Value) ([]Value, bool) {
	if proc, ok := m.procs[name]; ok {
		return proc(m, args...)
	}
	//
	panic(&UndefinedError{name})
}

// Abort terminates execution because no rule of a given predicate applied at
// a given call site.
func (m *Machine) Abort(predicate string, line int) {
	panic(&AbortError{predicate, line})
}

// ===================================================================
// Heap
// ===================================================================

// Checkpoint saves the heap watermark.
func (m *Machine) Checkpoint() Mark {
	return Mark{m.heap.Checkpoint()}
}

// Rollback discards every term allocated since a given mark, along with any
// control blocks describing them.
func (m *Machine) Rollback(mark Mark) {
	top := mark.heap.Top()
	//
	m.heap.Rollback(mark.heap)
	//
	if len(m.blocks) > 0 && m.highest >= top {
		for index := range m.blocks {
			if index >= top {
				delete(m.blocks, index)
			}
		}
		//
		m.highest = 0
		for index := range m.blocks {
			m.highest = max(m.highest, index)
		}
	}
}

// HeapSize returns the number of live heap slots.
func (m *Machine) HeapSize() uint {
	return m.heap.Len()
}

// Alloc allocates a term with a given functor, whose fields are initially
// empty.
func (m *Machine) Alloc(functor int64, arity uint) Value {
	r := m.heap.Alloc(arity + 1)
	m.heap.Set(r.Start, Int(functor))
	//
	return Value{TermKind, int64(r.Start), ""}
}

// Build allocates a term with a given functor and fields.
func (m *Machine) Build(functor int64, fields ...Value) Value {
	term := m.Alloc(functor, uint(len(fields)))
	//
	for i, f := range fields {
		m.Store(term, uint(i), f)
	}
	//
	return term
}

// Tag returns the functor of a term, or 0 if the value is not a term.
func (m *Machine) Tag(term Value) int64 {
	if term.kind != TermKind {
		return 0
	}
	//
	return m.heap.Get(term.Index()).num
}

// Field reads a field of a term.
func (m *Machine) Field(term Value, field uint) Value {
	return m.heap.Get(term.Index() + 1 + field)
}

// Store writes a field of a term.
func (m *Machine) Store(term Value, field uint, value Value) {
	m.heap.Set(term.Index()+1+field, value)
}

// ===================================================================
// Globals & Tables
// ===================================================================

// Global reads a global variable, which is None if never assigned.
func (m *Machine) Global(name string) Value {
	return m.globals[name]
}

// SetGlobal assigns a global variable.
func (m *Machine) SetGlobal(name string, value Value) {
	m.globals[name] = value
}

// NewEntry creates a fresh entry of a given table, whose fields are initially
// empty.
func (m *Machine) NewEntry(table string, arity uint) Value {
	m.entries = append(m.entries, entry{table, make([]Value, arity)})
	//
	return Value{TableKind, int64(len(m.entries) - 1), ""}
}

// Get reads a field of a table entry.
func (m *Machine) Get(key Value, field uint) Value {
	return m.entry(key).fields[field]
}

// Set writes a field of a table entry.
func (m *Machine) Set(key Value, field uint, value Value) {
	m.entry(key).fields[field] = value
}

func (m *Machine) entry(key Value) *entry {
	if key.kind != TableKind || key.Index() >= uint(len(m.entries)) {
		panic(fmt.Sprintf("invalid table entry %s", key))
	}
	//
	return &m.entries[key.Index()]
}

// ===================================================================
// Printing
// ===================================================================

// Format returns a readable representation of a value, expanding terms and
// table entries.
func (m *Machine) Format(value Value) string {
	var builder strings.Builder
	//
	m.format(&builder, value)
	//
	return builder.String()
}

func (m *Machine) format(builder *strings.Builder, value Value) {
	switch value.kind {
	case TermKind:
		functor, ok := m.functors[m.Tag(value)]
		//
		if !ok {
			builder.WriteString(value.String())
			return
		} else if functor.Arity == 0 {
			builder.WriteString(functor.Name)
			return
		}
		//
		builder.WriteString("(")
		builder.WriteString(functor.Name)
		//
		for i := uint(0); i < functor.Arity; i++ {
			builder.WriteString(" ")
			m.format(builder, m.Field(value, i))
		}
		//
		builder.WriteString(")")
	case TableKind:
		builder.WriteString(fmt.Sprintf("%s#%d", m.entry(value).table, value.Index()))
	default:
		builder.WriteString(value.String())
	}
}
