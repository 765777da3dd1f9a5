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
package compiler

import (
	"slices"

	"github.com/gentle-lang/gentle/pkg/ast"
	"github.com/gentle-lang/gentle/pkg/env"
	"github.com/gentle-lang/gentle/pkg/ir"
	log "github.com/sirupsen/logrus"
)

// Compile an ordinary predicate.  Rules are attempted in order, and the first
// to succeed is committed to.  Each attempt checkpoints the heap on entry, and
// rolls back to that checkpoint on failure before proceeding to the next.
// When every rule fails, the procedure fails, leaving the caller to decide
// whether this is an abort.  Sweep predicates instead attempt every rule, and
// always succeed.
func (c *Compiler) compilePredicate(p *env.PredicateMeaning) {
	var ctx = c.beginProc(p.CodeName, p, ir.Main, len(p.In), len(p.Out))
	//
	switch {
	case len(p.Rules) == 0 && p.Class != ast.Condition && p.Class != ast.Sweep:
		c.errorf(p.Decl, "%s %s has no rules", p.Class, p.Name)
	case p.Class == ast.Sweep && len(p.Out) > 0:
		c.errorf(p.Decl, "sweep %s cannot have outputs", p.Name)
	}
	//
	for _, rule := range p.Rules {
		c.compileRule(ctx, p, rule)
	}
	//
	if p.Class == ast.Sweep {
		ctx.emit(&ir.Return{})
	} else {
		ctx.emit(&ir.Fail{})
	}
	//
	c.endProc(ctx)
	log.Debugf("compiled %s %s (%d rules)", p.Class, p.Name, len(p.Rules))
}

// Compile one rule attempt.  Inputs are matched first, then the body members
// are executed, and finally the outputs are built and returned.  Every failure
// within the rule jumps to a single fail label, which rolls back the heap and
// falls through into whatever follows.
func (c *Compiler) compileRule(ctx *CompileContext, p *env.PredicateMeaning, rule *ast.Rule) {
	var (
		next  = ctx.newLabel()
		saved = ctx.fail
	)
	//
	c.env.PushScope()
	mark := ctx.checkpoint()
	ctx.fail = next
	//
	c.checkArgs(rule, "inputs", len(rule.In), len(p.In))
	c.checkArgs(rule, "outputs", len(rule.Out), len(p.Out))
	//
	if rule.Cost != nil && p.Class != ast.Choice {
		c.warnf(rule.Cost, "cost of %s rule ignored", p.Class)
	}
	//
	for i, pattern := range rule.In {
		if i < len(p.In) {
			c.match(ctx, ir.Reg(i), pattern, p.In[i])
		} else {
			c.bindErrors(pattern)
		}
	}
	//
	c.members(ctx, rule.Body)
	//
	outputs := make([]ir.Reg, len(rule.Out))
	for i, expr := range rule.Out {
		outputs[i] = c.build(ctx, expr, formal(p.Out, i))
	}
	//
	if p.Class == ast.Sweep {
		// Keep whatever this rule did, and attempt the next.
		done := ctx.newLabel()
		ctx.emit(&ir.Jump{Label: done})
		ctx.place(next)
		ctx.emit(&ir.Rollback{Mark: mark})
		ctx.place(done)
	} else {
		ctx.emit(&ir.Return{Results: outputs})
		ctx.place(next)
		ctx.emit(&ir.Rollback{Mark: mark})
	}
	//
	ctx.release()
	ctx.fail = saved
	c.env.PopScope()
}

func (c *Compiler) checkArgs(node ast.Node, kind string, actual int, expected int) {
	if actual != expected {
		c.errorf(node, "expected %d %s, found %d", expected, kind, actual)
	}
}

// Determine the type of the ith formal, which is the error type for surplus
// arguments (these having already been reported).
func formal(types []env.Type, i int) env.Type {
	if i < len(types) {
		return types[i]
	}
	//
	return env.ErrorType
}

// ===================================================================
// Members
// ===================================================================

func (c *Compiler) members(ctx *CompileContext, body []ast.Member) {
	for _, m := range body {
		c.member(ctx, m)
	}
}

func (c *Compiler) member(ctx *CompileContext, member ast.Member) {
	switch m := member.(type) {
	case *ast.Call:
		c.call(ctx, m)
	case *ast.Where:
		datatype := c.infer(m.Expr)
		value := c.build(ctx, m.Expr, datatype)
		c.match(ctx, value, m.Pattern, datatype)
	case *ast.GlobalGet:
		datatype := c.variable(m, m.Var)
		dst := c.temp()
		ctx.emit(&ir.GlobalGet{Dst: dst, Name: m.Var})
		c.match(ctx, dst, m.Pattern, datatype)
	case *ast.GlobalSet:
		value := c.build(ctx, m.Expr, c.variable(m, m.Var))
		ctx.emit(&ir.GlobalSet{Name: m.Var, Src: value})
	case *ast.TableNew:
		c.tableNew(ctx, m)
	case *ast.TableGet:
		key, field, datatype := c.tableField(ctx, m, m.Key, m.Field)
		dst := c.temp()
		//
		if datatype != nil {
			ctx.emit(&ir.TableGet{Dst: dst, Key: key, Field: field})
			c.match(ctx, dst, m.Pattern, datatype)
		} else {
			c.bindErrors(m.Pattern)
		}
	case *ast.TableSet:
		key, field, datatype := c.tableField(ctx, m, m.Key, m.Field)
		//
		if datatype != nil {
			value := c.build(ctx, m.Expr, datatype)
			ctx.emit(&ir.TableSet{Key: key, Field: field, Src: value})
		} else {
			c.build(ctx, m.Expr, env.ErrorType)
		}
	case *ast.Case:
		c.caseMember(ctx, m)
	case *ast.Loop:
		c.loopMember(ctx, m)
	default:
		c.errorf(member, "unknown member %s", member)
	}
}

// Compile a call.  Inputs are built, and outputs are matched against the
// results.  When the callee fails, a condition fails the enclosing rule whilst
// any other class aborts execution, reporting the call site.
func (c *Compiler) call(ctx *CompileContext, m *ast.Call) {
	var callee = c.predicate(m, m.Predicate)
	//
	if callee == nil {
		for _, arg := range m.In {
			c.build(ctx, arg, env.ErrorType)
		}
		//
		for _, pattern := range m.Out {
			c.bindErrors(pattern)
		}
		//
		return
	}
	//
	c.checkArgs(m, "inputs for "+m.Predicate, len(m.In), len(callee.In))
	c.checkArgs(m, "outputs for "+m.Predicate, len(m.Out), len(callee.Out))
	//
	insn := &ir.Call{Proc: callee.CodeName, Predicate: callee.Name, Line: c.line(m)}
	//
	for i, arg := range m.In {
		insn.Args = append(insn.Args, c.build(ctx, arg, formal(callee.In, i)))
	}
	//
	for range m.Out {
		insn.Results = append(insn.Results, c.temp())
	}
	//
	if callee.Class == ast.Condition {
		insn.Mode, insn.Fail = ir.FailJump, ctx.fail
	} else {
		insn.Mode = ir.FailAbort
	}
	//
	ctx.emit(insn)
	//
	for i, pattern := range m.Out {
		c.match(ctx, insn.Results[i], pattern, formal(callee.Out, i))
	}
}

// Compile an ordered disjunction.  Each alternative is attempted in turn, with
// its own scope, and the heap is rolled back between attempts.  If every
// alternative fails, so does the enclosing rule.  A variable bound by every
// alternative remains visible after the case, and is copied into a slot of the
// enclosing scope as each alternative succeeds.
func (c *Compiler) caseMember(ctx *CompileContext, m *ast.Case) {
	var (
		done  = ctx.newLabel()
		saved = ctx.fail
		mark  = ctx.checkpoint()
		joins = c.joins(m)
	)
	//
	for _, alt := range m.Alternatives {
		next := ctx.newLabel()
		ctx.fail = next
		//
		c.env.PushScope()
		c.members(ctx, alt.Body)
		joins = c.export(ctx, joins)
		c.env.PopScope()
		//
		ctx.emit(&ir.Jump{Label: done})
		ctx.place(next)
		ctx.emit(&ir.Rollback{Mark: mark})
	}
	//
	ctx.release()
	ctx.fail = saved
	ctx.emit(&ir.Jump{Label: saved})
	ctx.place(done)
	//
	for _, j := range joins {
		c.env.BindLocal(j.Name, j.Type, j.Functor, j.Node, j.Slot)
	}
}

// Allocate a slot for each variable which might be bound by every alternative
// of a case.  These are the unbound variables mentioned in the first
// alternative which are also mentioned in all others.
func (c *Compiler) joins(m *ast.Case) []*env.Local {
	var joins []*env.Local
	//
	if len(m.Alternatives) == 0 {
		return nil
	}
	//
	rest := make([]map[string]bool, len(m.Alternatives)-1)
	//
	for i, alt := range m.Alternatives[1:] {
		rest[i] = make(map[string]bool)
		//
		for _, name := range mentioned(alt.Body, nil) {
			rest[i][name] = true
		}
	}
	//
outer:
	for _, name := range mentioned(m.Alternatives[0].Body, nil) {
		if c.env.LookupLocal(name).HasValue() {
			continue
		}
		//
		for _, names := range rest {
			if !names[name] {
				continue outer
			}
		}
		//
		joins = append(joins, &env.Local{Name: name, Slot: c.env.AllocTemp()})
	}
	//
	return joins
}

// Copy every join variable bound by the alternative just compiled into its
// slot, returning those joins which remain candidates.  A join is dropped when
// some alternative does not bind it.
func (c *Compiler) export(ctx *CompileContext, joins []*env.Local) []*env.Local {
	var kept []*env.Local
	//
	for _, j := range joins {
		local := c.env.InnerLocal(j.Name)
		//
		if !local.HasValue() {
			continue
		}
		//
		l := local.Unwrap()
		//
		switch {
		case j.Type == nil:
			j.Type, j.Functor, j.Node = l.Type, l.Functor, l.Node
		case j.Type != l.Type && j.Type != env.ErrorType && l.Type != env.ErrorType:
			c.errorf(l.Node, "variable %s has type %s in one alternative and %s in another", j.Name,
				j.Type.Name(), l.Type.Name())
			//
			j.Type = env.ErrorType
		case j.Functor != l.Functor:
			j.Functor = 0
		}
		//
		ctx.emit(&ir.Move{Dst: ir.Reg(j.Slot), Src: ir.Reg(l.Slot)})
		kept = append(kept, j)
	}
	//
	return kept
}

// Collect the names of the variables mentioned by a sequence of members, in
// order of first occurrence.
func mentioned(members []ast.Member, names []string) []string {
	for _, member := range members {
		switch m := member.(type) {
		case *ast.Call:
			names = mentionedTerms(names, m.In...)
			names = mentionedTerms(names, m.Out...)
		case *ast.Where:
			names = mentionedTerms(names, m.Expr, m.Pattern)
		case *ast.GlobalGet:
			names = mentionedTerms(names, m.Pattern)
		case *ast.GlobalSet:
			names = mentionedTerms(names, m.Expr)
		case *ast.TableNew:
			names = mentionedTerms(names, m.Pattern)
		case *ast.TableGet:
			names = mentionedTerms(names, m.Key, m.Pattern)
		case *ast.TableSet:
			names = mentionedTerms(names, m.Key, m.Expr)
		case *ast.Case:
			for _, alt := range m.Alternatives {
				names = mentioned(alt.Body, names)
			}
		}
	}
	//
	return names
}

func mentionedTerms(names []string, terms ...ast.Term) []string {
	for _, term := range terms {
		switch t := term.(type) {
		case *ast.Var:
			if !slices.Contains(names, t.Name) {
				names = append(names, t.Name)
			}
		case *ast.Named:
			names = mentionedTerms(names, &ast.Var{Name: t.Name}, t.Pattern)
		case *ast.Apply:
			names = mentionedTerms(names, t.Args...)
		case *ast.Binary:
			names = mentionedTerms(names, t.Left, t.Right)
		}
	}
	//
	return names
}

// Compile a loop, which repeats its body until the body fails (or the maximum
// number of iterations is reached).  The failing iteration is rolled back, and
// the loop itself never fails.
func (c *Compiler) loopMember(ctx *CompileContext, m *ast.Loop) {
	var (
		top     = ctx.newLabel()
		exit    = ctx.newLabel()
		out     = ctx.newLabel()
		saved   = ctx.fail
		counter ir.Reg
	)
	//
	if m.Max > 0 {
		counter = c.constant(ctx, ir.IntLiteral(0))
	}
	//
	ctx.place(top)
	//
	if m.Max > 0 {
		ctx.emit(&ir.TestBelow{Src: counter, Limit: int64(m.Max), Fail: out})
		ctx.emit(&ir.Increment{Reg: counter})
	}
	//
	mark := ctx.checkpoint()
	ctx.fail = exit
	//
	c.env.PushScope()
	c.members(ctx, m.Body)
	c.env.PopScope()
	//
	ctx.emit(&ir.Jump{Label: top})
	ctx.place(exit)
	ctx.emit(&ir.Rollback{Mark: mark})
	ctx.place(out)
	//
	ctx.release()
	ctx.fail = saved
}

// ===================================================================
// Globals & Tables
// ===================================================================

// Look up a predicate, reporting an error if there is none.
func (c *Compiler) predicate(node ast.Node, name string) *env.PredicateMeaning {
	if m := c.env.LookupGlobal(name); m.HasValue() {
		if p, ok := m.Unwrap().(*env.PredicateMeaning); ok {
			return p
		}
		//
		c.errorf(node, "%s is not a predicate", name)
	} else {
		c.errorf(node, "unknown predicate %s", name)
	}
	//
	return nil
}

// Look up the type of a global variable, reporting an error if there is no such
// variable.
func (c *Compiler) variable(node ast.Node, name string) env.Type {
	if m := c.env.LookupGlobal(name); m.HasValue() {
		if v, ok := m.Unwrap().(*env.VariableMeaning); ok {
			return v.Type
		}
		//
		c.errorf(node, "%s is not a variable", name)
	} else {
		c.errorf(node, "unknown variable %s", name)
	}
	//
	return env.ErrorType
}

func (c *Compiler) tableNew(ctx *CompileContext, m *ast.TableNew) {
	var meaning = c.env.LookupGlobal(m.Table)
	//
	if meaning.HasValue() {
		if t, ok := meaning.Unwrap().(*env.TableMeaning); ok {
			dst := c.temp()
			ctx.emit(&ir.TableNew{Dst: dst, Table: m.Table, Arity: uint(len(t.Type.Fields))})
			c.match(ctx, dst, m.Pattern, t.Type)
			//
			return
		}
		//
		c.errorf(m, "%s is not a table", m.Table)
	} else {
		c.errorf(m, "unknown table %s", m.Table)
	}
	//
	c.bindErrors(m.Pattern)
}

// Build the key of a table access, and determine the index and type of the
// field being accessed.  The type is nil if the access is invalid.
func (c *Compiler) tableField(ctx *CompileContext, node ast.Node, key ast.Term, field string) (ir.Reg, uint,
	env.Type) {
	//
	var (
		datatype = c.infer(key)
		reg      = c.build(ctx, key, datatype)
	)
	//
	if datatype == env.ErrorType {
		return reg, 0, nil
	} else if t, ok := datatype.(*env.TableType); !ok {
		c.errorf(key, "expected table, found %s", datatype.Name())
	} else if index, ok := t.Field(field); !ok {
		c.errorf(node, "table %s has no field %s", t.Name(), field)
	} else {
		return reg, uint(index), t.Fields[index]
	}
	//
	return reg, 0, nil
}
