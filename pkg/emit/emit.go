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
// Package emit renders a compiled program as Go source, which runs on the
// support library in pkg/machine.  Each procedure becomes a function whose
// registers are a fixed-size array, and whose control flow uses goto.  An
// Install function registers the procedures and dispatch tables of the
// program with a machine.
package emit

import (
	"fmt"
	"go/format"
	"slices"
	"strings"

	"github.com/gentle-lang/gentle/pkg/config"
	"github.com/gentle-lang/gentle/pkg/ir"
	log "github.com/sirupsen/logrus"
)

const header = "// Code generated by gentle. DO NOT EDIT.\n\n"

// Source renders a program as a Go source file, formatted as gofmt would.
func Source(program *ir.Program, settings config.Emit) ([]byte, error) {
	var (
		builder strings.Builder
		gen     = &generator{program: program, procs: make(map[string]bool)}
	)
	//
	for _, p := range program.Procs {
		gen.procs[p.Name] = true
	}
	//
	builder.WriteString(header)
	builder.WriteString(fmt.Sprintf("package %s\n\n", settings.Package))
	builder.WriteString(fmt.Sprintf("import machine %q\n\n", settings.Runtime))
	//
	gen.tables(indentBuilder{0, &builder})
	gen.install(indentBuilder{0, &builder})
	//
	for _, p := range program.Procs {
		gen.proc(p, indentBuilder{0, &builder})
	}
	//
	bytes, err := format.Source([]byte(builder.String()))
	if err != nil {
		return nil, fmt.Errorf("generated source is malformed: %w", err)
	}
	//
	log.Debugf("generated %d bytes of source for %d procedures", len(bytes), len(program.Procs))
	//
	return bytes, nil
}

type generator struct {
	program *ir.Program
	// Procedures defined in the program.  Others are externals, which are
	// called through the machine.
	procs map[string]bool
}

// ===================================================================
// Tables
// ===================================================================

func (g *generator) tables(builder indentBuilder) {
	var inner = builder.Indent()
	//
	builder.WriteLine("// Predicates maps each predicate to the name of its procedure.")
	builder.WriteLine("var Predicates = map[string]string{")
	//
	for _, p := range g.program.Predicates {
		inner.WriteLine(fmt.Sprintf("%q: %q,", p.Name, p.Proc))
	}
	//
	builder.WriteLine("}")
	builder.WriteString("\n")
	builder.WriteLine("// Functors maps each qualified functor name to its code.")
	builder.WriteLine("var Functors = map[string]int64{")
	//
	for _, f := range g.program.Functors {
		inner.WriteLine(fmt.Sprintf("%q: %d,", f.Type+"."+f.Name, f.Code))
	}
	//
	builder.WriteLine("}")
	builder.WriteString("\n")
}

func (g *generator) install(builder indentBuilder) {
	var inner = builder.Indent()
	//
	builder.WriteLine("// Install registers the functors, procedures and dispatch tables of this")
	builder.WriteLine("// program with a machine.")
	builder.WriteLine("func Install(m *machine.Machine) {")
	//
	for _, f := range g.program.Functors {
		inner.WriteLine(fmt.Sprintf("m.DeclareFunctor(%d, %q, %d)", f.Code, f.Name, f.Arity))
	}
	//
	for _, p := range g.program.Procs {
		inner.WriteLine(fmt.Sprintf("m.Register(%q, %s)", p.Name, p.Name))
	}
	//
	for _, table := range g.program.Dispatch {
		g.dispatch(table, inner)
	}
	//
	builder.WriteLine("}")
	builder.WriteString("\n")
}

func (g *generator) dispatch(table *ir.DispatchTable, builder indentBuilder) {
	var (
		i1 = builder.Indent()
		i2 = i1.Indent()
	)
	//
	builder.WriteLine("m.Install(&machine.Dispatch{")
	i1.WriteLine(fmt.Sprintf("Type: %q,", table.Type))
	i1.WriteLine(fmt.Sprintf("Predicates: %#v,", table.Predicates))
	i1.WriteLine("Functors: map[int64][]machine.Candidate{")
	//
	for _, entry := range table.Functors {
		if len(entry.Candidates) > 0 {
			i2.WriteLine(fmt.Sprintf("%d: %s,", entry.Functor, candidates(entry.Candidates)))
		}
	}
	//
	i1.WriteLine("},")
	i1.WriteLine("Children: map[int64][]machine.Child{")
	//
	for _, entry := range table.Functors {
		if len(entry.Children) > 0 {
			children := make([]string, len(entry.Children))
			for i, c := range entry.Children {
				children[i] = fmt.Sprintf("{Field: %d, Table: %q}", c.Field, c.Table)
			}
			//
			i2.WriteLine(fmt.Sprintf("%d: {%s},", entry.Functor, strings.Join(children, ", ")))
		}
	}
	//
	i1.WriteLine("},")
	i1.WriteLine(fmt.Sprintf("Chain: %s,", candidates(table.Chain)))
	i1.WriteLine("Dependents: [][]uint{")
	//
	for _, deps := range table.Dependents {
		if len(deps) == 0 {
			i2.WriteLine("nil,")
		} else {
			items := make([]string, len(deps))
			for i, d := range deps {
				items[i] = fmt.Sprintf("%d", d)
			}
			//
			i2.WriteLine(fmt.Sprintf("{%s},", strings.Join(items, ", ")))
		}
	}
	//
	i1.WriteLine("},")
	builder.WriteLine("})")
}

func candidates(cs []ir.Candidate) string {
	var items = make([]string, len(cs))
	//
	for i, c := range cs {
		items[i] = fmt.Sprintf("{Predicate: %d, Rule: %d, Score: %s}", c.Predicate, c.Rule, c.Score)
	}
	//
	return fmt.Sprintf("[]machine.Candidate{%s}", strings.Join(items, ", "))
}

// ===================================================================
// Procedures
// ===================================================================

func (g *generator) proc(p *ir.Proc, builder indentBuilder) {
	var (
		inner   = builder.Indent()
		code, _ = live(p)
	)
	//
	builder.WriteLine(fmt.Sprintf("// %s implements %s %s", p.Name, p.Kind, p.Predicate))
	builder.WriteLine(fmt.Sprintf("func %s(m *machine.Machine, args ...machine.Value) ([]machine.Value, bool) {",
		p.Name))
	//
	if p.Frame > 0 {
		inner.WriteLine(fmt.Sprintf("var r [%d]machine.Value", p.Frame))
	}
	//
	if p.Marks > 0 && usesMarks(code) {
		inner.WriteLine(fmt.Sprintf("var k [%d]machine.Mark", p.Marks))
	}
	//
	if p.Frame > 0 {
		inner.WriteLine("copy(r[:], args)")
	}
	//
	for _, insn := range code {
		if target, ok := insn.(*ir.Target); ok {
			builder.WriteLine(fmt.Sprintf("L%d:", target.Label))
		} else {
			g.insn(insn, inner)
		}
	}
	//
	builder.WriteLine("}")
	builder.WriteString("\n")
}

// Determine the reachable instructions of a procedure, along with the labels
// they jump to.  Instructions following an unconditional transfer are
// unreachable until the next label which is jumped to.  Dropping them can
// leave further labels unused, so this iterates until nothing changes.
func live(p *ir.Proc) ([]ir.Insn, map[ir.Label]bool) {
	var (
		code = p.Code
		used = referenced(code)
	)
	//
	for {
		var (
			reachable []ir.Insn
			dead      bool
		)
		//
		for _, insn := range code {
			switch i := insn.(type) {
			case *ir.Target:
				if !used[i.Label] {
					continue
				}
				//
				dead = false
			case *ir.Jump, *ir.Return, *ir.Fail:
				if !dead {
					reachable = append(reachable, insn)
				}
				//
				dead = true
				//
				continue
			}
			//
			if !dead {
				reachable = append(reachable, insn)
			}
		}
		//
		next := referenced(reachable)
		//
		if len(reachable) == len(code) && len(next) == len(used) {
			return reachable, used
		}
		//
		code, used = reachable, next
	}
}

func usesMarks(code []ir.Insn) bool {
	for _, insn := range code {
		switch insn.(type) {
		case *ir.Checkpoint, *ir.Rollback:
			return true
		}
	}
	//
	return false
}

// Determine the labels which are the target of some jump.
func referenced(code []ir.Insn) map[ir.Label]bool {
	var used = make(map[ir.Label]bool)
	//
	for _, insn := range code {
		switch i := insn.(type) {
		case *ir.Jump:
			used[i.Label] = true
		case *ir.TestTag:
			used[i.Fail] = true
		case *ir.TestConst:
			used[i.Fail] = true
		case *ir.TestBelow:
			used[i.Fail] = true
		case *ir.Call:
			if i.Mode == ir.FailJump {
				used[i.Fail] = true
			}
		}
	}
	//
	return used
}

func (g *generator) insn(insn ir.Insn, builder indentBuilder) {
	switch i := insn.(type) {
	case *ir.Jump:
		builder.WriteLine(fmt.Sprintf("goto L%d", i.Label))
	case *ir.Checkpoint:
		builder.WriteLine(fmt.Sprintf("k[%d] = m.Checkpoint()", i.Mark))
	case *ir.Rollback:
		builder.WriteLine(fmt.Sprintf("m.Rollback(k[%d])", i.Mark))
	case *ir.TestTag:
		test(builder, fmt.Sprintf("m.Tag(%s) != %d", reg(i.Src), i.Functor), i.Fail)
	case *ir.TestConst:
		test(builder, fmt.Sprintf("!%s.Equals(%s)", reg(i.Src), literal(i.Value)), i.Fail)
	case *ir.TestBelow:
		test(builder, fmt.Sprintf("%s.Int() >= %d", reg(i.Src), i.Limit), i.Fail)
	case *ir.Load:
		builder.WriteLine(fmt.Sprintf("%s = m.Field(%s, %d)", reg(i.Dst), reg(i.Src), i.Field))
	case *ir.Alloc:
		builder.WriteLine(fmt.Sprintf("%s = m.Alloc(%d, %d)", reg(i.Dst), i.Functor, i.Arity))
	case *ir.Store:
		builder.WriteLine(fmt.Sprintf("m.Store(%s, %d, %s)", reg(i.Term), i.Field, reg(i.Src)))
	case *ir.Move:
		if i.Dst != i.Src {
			builder.WriteLine(fmt.Sprintf("%s = %s", reg(i.Dst), reg(i.Src)))
		}
	case *ir.Const:
		builder.WriteLine(fmt.Sprintf("%s = %s", reg(i.Dst), literal(i.Value)))
	case *ir.Arith:
		builder.WriteLine(fmt.Sprintf("%s = machine.%s(%s, %s)", reg(i.Dst), arithmetic[i.Op], reg(i.Left),
			reg(i.Right)))
	case *ir.Increment:
		builder.WriteLine(fmt.Sprintf("%s = machine.Int(%s.Int() + 1)", reg(i.Reg), reg(i.Reg)))
	case *ir.Call:
		g.call(i, builder)
	case *ir.GlobalGet:
		builder.WriteLine(fmt.Sprintf("%s = m.Global(%q)", reg(i.Dst), i.Name))
	case *ir.GlobalSet:
		builder.WriteLine(fmt.Sprintf("m.SetGlobal(%q, %s)", i.Name, reg(i.Src)))
	case *ir.TableNew:
		builder.WriteLine(fmt.Sprintf("%s = m.NewEntry(%q, %d)", reg(i.Dst), i.Table, i.Arity))
	case *ir.TableGet:
		builder.WriteLine(fmt.Sprintf("%s = m.Get(%s, %d)", reg(i.Dst), reg(i.Key), i.Field))
	case *ir.TableSet:
		builder.WriteLine(fmt.Sprintf("m.Set(%s, %d, %s)", reg(i.Key), i.Field, reg(i.Src)))
	case *ir.CostOf:
		builder.WriteLine(fmt.Sprintf("%s = machine.Int(m.CostOf(%q, %d, %s))", reg(i.Dst), i.Table, i.Predicate,
			reg(i.Src)))
	case *ir.Chosen:
		builder.WriteLine(fmt.Sprintf("%s = machine.Int(m.Chosen(%q, %d, %s))", reg(i.Dst), i.Table, i.Predicate,
			reg(i.Src)))
	case *ir.Return:
		if len(i.Results) == 0 {
			builder.WriteLine("return nil, true")
		} else {
			builder.WriteLine(fmt.Sprintf("return []machine.Value{%s}, true", regs(i.Results)))
		}
	case *ir.Fail:
		builder.WriteLine("return nil, false")
	default:
		panic(fmt.Sprintf("unknown instruction %s", insn))
	}
}

// Render a call.  Procedures of this program are called directly, whilst
// externals are called through the machine.
func (g *generator) call(i *ir.Call, builder indentBuilder) {
	var (
		inner  = builder.Indent()
		args   = slices.Concat([]string{"m"}, regNames(i.Args))
		callee = fmt.Sprintf("%s(%s)", i.Proc, strings.Join(args, ", "))
		res    = "_"
	)
	//
	if !g.procs[i.Proc] {
		args[0] = fmt.Sprintf("%q", i.Proc)
		callee = fmt.Sprintf("m.Call(%s)", strings.Join(args, ", "))
	}
	//
	if len(i.Results) > 0 {
		res = "res"
	}
	//
	builder.WriteLine(fmt.Sprintf("if %s, ok := %s; ok {", res, callee))
	//
	for j, r := range i.Results {
		inner.WriteLine(fmt.Sprintf("%s = res[%d]", reg(r), j))
	}
	//
	builder.WriteLine("} else {")
	//
	if i.Mode == ir.FailAbort {
		inner.WriteLine(fmt.Sprintf("m.Abort(%q, %d)", i.Predicate, i.Line))
	} else {
		inner.WriteLine(fmt.Sprintf("goto L%d", i.Fail))
	}
	//
	builder.WriteLine("}")
}

var arithmetic = []string{"Add", "Sub", "Mul", "Div"}

func test(builder indentBuilder, cond string, fail ir.Label) {
	builder.WriteLine(fmt.Sprintf("if %s {", cond))
	builder.WriteLine(fmt.Sprintf("\tgoto L%d", fail))
	builder.WriteLine("}")
}

func literal(value ir.Literal) string {
	if value.IsString {
		return fmt.Sprintf("machine.String(%q)", value.Str)
	}
	//
	return fmt.Sprintf("machine.Int(%d)", value.Int)
}

func reg(r ir.Reg) string {
	return fmt.Sprintf("r[%d]", r)
}

func regNames(rs []ir.Reg) []string {
	var names = make([]string, len(rs))
	//
	for i, r := range rs {
		names[i] = reg(r)
	}
	//
	return names
}

func regs(rs []ir.Reg) string {
	return strings.Join(regNames(rs), ", ")
}
