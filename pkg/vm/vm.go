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
// Package vm executes compiled programs directly, without first emitting them
// as Go source.  Procedures are interpreted over the same runtime support
// (pkg/machine) used by emitted code.
package vm

import (
	"fmt"
	"strconv"

	"github.com/gentle-lang/gentle/pkg/ast"
	"github.com/gentle-lang/gentle/pkg/ir"
	"github.com/gentle-lang/gentle/pkg/machine"
	"github.com/gentle-lang/gentle/pkg/util/source"
	"github.com/gentle-lang/gentle/pkg/util/source/sexp"
)

// VM executes a compiled program.
type VM struct {
	program *ir.Program
	machine *machine.Machine
	// Label positions for each procedure.
	labels map[string]map[ir.Label]int
	// Number of times each procedure was entered.
	calls map[string]uint
}

// New constructs a VM for a given program, whose heap is limited to a given
// number of slots (0 is unbounded).
func New(program *ir.Program, limit uint) *VM {
	v := &VM{
		program: program,
		machine: machine.New(limit),
		labels:  make(map[string]map[ir.Label]int),
		calls:   make(map[string]uint),
	}
	//
	for _, f := range program.Functors {
		v.machine.DeclareFunctor(f.Code, f.Name, f.Arity)
	}
	//
	for _, proc := range program.Procs {
		v.labels[proc.Name] = proc.Labels()
		v.machine.Register(proc.Name, func(_ *machine.Machine, args ...machine.Value) ([]machine.Value, bool) {
			return v.exec(proc, args)
		})
	}
	//
	for _, table := range program.Dispatch {
		v.machine.Install(dispatch(table))
	}
	//
	return v
}

// Machine returns the state of this VM.
func (v *VM) Machine() *machine.Machine {
	return v.machine
}

// Calls returns the number of times a given procedure has been entered.
func (v *VM) Calls(proc string) uint {
	return v.calls[proc]
}

// External provides the implementation of an external predicate.
func (v *VM) External(predicate string, proc machine.Proc) error {
	info, ok := v.program.Predicate(predicate)
	//
	if !ok {
		return fmt.Errorf("unknown predicate %s", predicate)
	} else if !info.External {
		return fmt.Errorf("predicate %s is not external", predicate)
	}
	//
	v.machine.Register(info.Proc, proc)
	//
	return nil
}

// Call invokes a predicate.  This returns false if the predicate failed, and
// an error if execution aborted.  At the top level, exhaustion of any
// predicate other than a condition aborts.
func (v *VM) Call(predicate string, args ...machine.Value) (results []machine.Value, ok bool, err error) {
	info, found := v.program.Predicate(predicate)
	//
	if !found {
		return nil, false, fmt.Errorf("unknown predicate %s", predicate)
	} else if uint(len(args)) != info.Inputs {
		return nil, false, fmt.Errorf("%s expects %d inputs, given %d", predicate, info.Inputs, len(args))
	}
	//
	defer func() {
		if r := recover(); r != nil {
			if e, isErr := r.(error); isErr {
				results, ok, err = nil, false, e
				return
			}
			//
			panic(r)
		}
	}()
	//
	results, ok = v.machine.Call(info.Proc, args...)
	//
	if !ok && info.Class != ast.Condition {
		return nil, false, &machine.AbortError{Predicate: predicate}
	}
	//
	return results, ok, nil
}

func (v *VM) exec(proc *ir.Proc, args []machine.Value) ([]machine.Value, bool) {
	var (
		m      = v.machine
		labels = v.labels[proc.Name]
		regs   = make([]machine.Value, max(proc.Frame, uint(len(args))))
		marks  = make([]machine.Mark, proc.Marks)
	)
	//
	v.calls[proc.Name]++
	copy(regs, args)
	//
	for pc := 0; pc < len(proc.Code); pc++ {
		switch insn := proc.Code[pc].(type) {
		case *ir.Target:
			continue
		case *ir.Jump:
			pc = labels[insn.Label]
		case *ir.Checkpoint:
			marks[insn.Mark] = m.Checkpoint()
		case *ir.Rollback:
			m.Rollback(marks[insn.Mark])
		case *ir.TestTag:
			if m.Tag(regs[insn.Src]) != insn.Functor {
				pc = labels[insn.Fail]
			}
		case *ir.TestConst:
			if !regs[insn.Src].Equals(literal(insn.Value)) {
				pc = labels[insn.Fail]
			}
		case *ir.TestBelow:
			if regs[insn.Src].Int() >= insn.Limit {
				pc = labels[insn.Fail]
			}
		case *ir.Load:
			regs[insn.Dst] = m.Field(regs[insn.Src], insn.Field)
		case *ir.Alloc:
			regs[insn.Dst] = m.Alloc(insn.Functor, insn.Arity)
		case *ir.Store:
			m.Store(regs[insn.Term], insn.Field, regs[insn.Src])
		case *ir.Move:
			regs[insn.Dst] = regs[insn.Src]
		case *ir.Const:
			regs[insn.Dst] = literal(insn.Value)
		case *ir.Arith:
			regs[insn.Dst] = arith(insn.Op, regs[insn.Left], regs[insn.Right])
		case *ir.Increment:
			regs[insn.Reg] = machine.Int(regs[insn.Reg].Int() + 1)
		case *ir.Call:
			if !v.call(insn, regs) {
				if insn.Mode == ir.FailAbort {
					m.Abort(insn.Predicate, insn.Line)
				}
				//
				pc = labels[insn.Fail]
			}
		case *ir.GlobalGet:
			regs[insn.Dst] = m.Global(insn.Name)
		case *ir.GlobalSet:
			m.SetGlobal(insn.Name, regs[insn.Src])
		case *ir.TableNew:
			regs[insn.Dst] = m.NewEntry(insn.Table, insn.Arity)
		case *ir.TableGet:
			regs[insn.Dst] = m.Get(regs[insn.Key], insn.Field)
		case *ir.TableSet:
			m.Set(regs[insn.Key], insn.Field, regs[insn.Src])
		case *ir.CostOf:
			regs[insn.Dst] = machine.Int(m.CostOf(insn.Table, insn.Predicate, regs[insn.Src]))
		case *ir.Chosen:
			regs[insn.Dst] = machine.Int(m.Chosen(insn.Table, insn.Predicate, regs[insn.Src]))
		case *ir.Return:
			return gather(regs, insn.Results), true
		case *ir.Fail:
			return nil, false
		default:
			panic(fmt.Sprintf("unknown instruction %s", insn))
		}
	}
	//
	panic(fmt.Sprintf("procedure %s has no terminating instruction", proc.Name))
}

func (v *VM) call(insn *ir.Call, regs []machine.Value) bool {
	results, ok := v.machine.Call(insn.Proc, gather(regs, insn.Args)...)
	//
	if !ok {
		return false
	} else if len(results) < len(insn.Results) {
		panic(fmt.Errorf("%s returned %d results, expected %d", insn.Predicate, len(results), len(insn.Results)))
	}
	//
	for i, r := range insn.Results {
		regs[r] = results[i]
	}
	//
	return true
}

func gather(regs []machine.Value, rs []ir.Reg) []machine.Value {
	var values = make([]machine.Value, len(rs))
	//
	for i, r := range rs {
		values[i] = regs[r]
	}
	//
	return values
}

func literal(value ir.Literal) machine.Value {
	if value.IsString {
		return machine.String(value.Str)
	}
	//
	return machine.Int(value.Int)
}

func arith(op ast.Op, left, right machine.Value) machine.Value {
	switch op {
	case ast.Add:
		return machine.Add(left, right)
	case ast.Sub:
		return machine.Sub(left, right)
	case ast.Mul:
		return machine.Mul(left, right)
	default:
		return machine.Div(left, right)
	}
}

// Convert a dispatch table into its runtime form, where scoring goes through
// the machine so that calls are counted.
func dispatch(table *ir.DispatchTable) *machine.Dispatch {
	d := &machine.Dispatch{
		Type:       table.Type,
		Predicates: table.Predicates,
		Functors:   make(map[int64][]machine.Candidate),
		Children:   make(map[int64][]machine.Child),
		Chain:      candidates(table.Chain),
		Dependents: table.Dependents,
	}
	//
	for _, entry := range table.Functors {
		d.Functors[entry.Functor] = candidates(entry.Candidates)
		//
		for _, child := range entry.Children {
			d.Children[entry.Functor] = append(d.Children[entry.Functor], machine.Child{Field: child.Field,
				Table: child.Table})
		}
	}
	//
	return d
}

func candidates(cs []ir.Candidate) []machine.Candidate {
	var result = make([]machine.Candidate, len(cs))
	//
	for i, c := range cs {
		score := c.Score
		result[i] = machine.Candidate{Predicate: c.Predicate, Rule: c.Rule,
			Score: func(m *machine.Machine, args ...machine.Value) ([]machine.Value, bool) {
				return m.Call(score, args...)
			}}
	}
	//
	return result
}

// ===================================================================
// Terms
// ===================================================================

// Parse a value written as an S-expression: integers, quoted strings, and
// functor applications such as "(Cons 1 Nil)".
func (v *VM) Parse(text string) (machine.Value, error) {
	var srcfile = source.NewSourceFile("<arg>", []byte(text))
	//
	s, _, serr := sexp.Parse(srcfile)
	if serr != nil {
		return machine.None, serr
	} else if s == nil {
		return machine.None, fmt.Errorf("empty term")
	}
	//
	return v.value(s)
}

func (v *VM) value(s sexp.SExp) (machine.Value, error) {
	var (
		name string
		args []sexp.SExp
	)
	//
	if sym := s.AsSymbol(); sym != nil {
		if sym.Quoted {
			return machine.String(sym.Value), nil
		} else if n, err := strconv.ParseInt(sym.Value, 10, 64); err == nil {
			return machine.Int(n), nil
		}
		//
		name = sym.Value
	} else if list := s.AsList(); list.Len() > 0 && list.Get(0).AsSymbol() != nil {
		name, args = list.Head(), list.Elements[1:]
	} else {
		return machine.None, fmt.Errorf("invalid term %s", s.String(true))
	}
	//
	functor, ok := v.program.Functor(name)
	if !ok {
		return machine.None, fmt.Errorf("unknown or ambiguous functor %s", name)
	} else if functor.Arity != uint(len(args)) {
		return machine.None, fmt.Errorf("functor %s expects %d arguments, given %d", name, functor.Arity, len(args))
	}
	//
	fields := make([]machine.Value, len(args))
	//
	for i, arg := range args {
		field, err := v.value(arg)
		if err != nil {
			return machine.None, err
		}
		//
		fields[i] = field
	}
	//
	return v.machine.Build(functor.Code, fields...), nil
}
