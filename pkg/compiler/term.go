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
	"github.com/gentle-lang/gentle/pkg/ast"
	"github.com/gentle-lang/gentle/pkg/env"
	"github.com/gentle-lang/gentle/pkg/ir"
)

// ===================================================================
// Matching
// ===================================================================

// Match the value held in a register against a pattern of an expected type.
// Checks jump to the context's fail label, and variables in the pattern are
// bound in the innermost scope.  This returns the functor code of the pattern,
// when it has one (otherwise 0).
func (c *Compiler) match(ctx *CompileContext, src ir.Reg, pattern ast.Term, expected env.Type) int64 {
	switch p := pattern.(type) {
	case *ast.Wildcard:
		return 0
	case *ast.Var:
		c.bind(ctx, p, p.Name, src, expected, 0)
	case *ast.Named:
		code := c.match(ctx, src, p.Pattern, expected)
		c.bind(ctx, p, p.Name, src, expected, code)
		//
		return code
	case *ast.Int:
		c.expect(p, env.INT, expected)
		ctx.emit(&ir.TestConst{Src: src, Value: ir.IntLiteral(p.Value), Fail: ctx.fail})
	case *ast.String:
		c.expect(p, env.STRING, expected)
		ctx.emit(&ir.TestConst{Src: src, Value: ir.StringLiteral(p.Value), Fail: ctx.fail})
	case *ast.Apply:
		return c.matchApply(ctx, src, p, expected)
	default:
		c.errorf(pattern, "cannot match against %s", pattern)
	}
	//
	return 0
}

func (c *Compiler) matchApply(ctx *CompileContext, src ir.Reg, pattern *ast.Apply, expected env.Type) int64 {
	var functor = c.resolveFunctor(pattern, expected)
	//
	if functor == nil {
		// Treat the pattern as unmatchable
		ctx.emit(&ir.Jump{Label: ctx.fail})
		c.bindErrors(pattern)
		//
		return 0
	}
	//
	ctx.emit(&ir.TestTag{Src: src, Functor: functor.Code, Fail: ctx.fail})
	c.checkArity(pattern, functor)
	//
	for i, arg := range pattern.Args {
		if i >= functor.Arity() {
			c.bindErrors(arg)
		} else if _, ok := arg.(*ast.Wildcard); !ok {
			field := c.temp()
			ctx.emit(&ir.Load{Dst: field, Src: src, Field: uint(i)})
			c.match(ctx, field, arg, functor.Fields[i])
		}
	}
	//
	return functor.Code
}

// Bind a pattern variable to the value held in a register.  Binding the same
// variable twice in one scope is an error, in which case the first binding is
// retained.
func (c *Compiler) bind(ctx *CompileContext, node ast.Node, name string, src ir.Reg, datatype env.Type,
	functor int64) {
	//
	if local, ok := c.env.DefineLocal(name, datatype, functor, node); !ok {
		c.errorf(node, "variable %s already bound", name)
	} else {
		ctx.emit(&ir.Move{Dst: ir.Reg(local.Slot), Src: src})
	}
}

// Bind every variable in a pattern which could not be matched, such that later
// uses of them do not cascade into further errors.
func (c *Compiler) bindErrors(pattern ast.Term) {
	switch p := pattern.(type) {
	case *ast.Var:
		c.env.DefineLocal(p.Name, env.ErrorType, 0, p)
	case *ast.Named:
		c.env.DefineLocal(p.Name, env.ErrorType, 0, p)
		c.bindErrors(p.Pattern)
	case *ast.Apply:
		for _, arg := range p.Args {
			c.bindErrors(arg)
		}
	}
}

// ===================================================================
// Building
// ===================================================================

// Build the value of an expression of an expected type, returning the register
// which holds it.
func (c *Compiler) build(ctx *CompileContext, expr ast.Term, expected env.Type) ir.Reg {
	switch e := expr.(type) {
	case *ast.Var:
		local := c.env.LookupLocal(e.Name)
		//
		if !local.HasValue() {
			c.errorf(e, "unknown variable %s", e.Name)
			return c.temp()
		}
		//
		c.expect(e, local.Unwrap().Type, expected)
		//
		return ir.Reg(local.Unwrap().Slot)
	case *ast.Int:
		c.expect(e, env.INT, expected)
		return c.constant(ctx, ir.IntLiteral(e.Value))
	case *ast.String:
		c.expect(e, env.STRING, expected)
		return c.constant(ctx, ir.StringLiteral(e.Value))
	case *ast.Apply:
		return c.buildApply(ctx, e, expected)
	case *ast.Binary:
		c.expect(e, env.INT, expected)
		left := c.build(ctx, e.Left, env.INT)
		right := c.build(ctx, e.Right, env.INT)
		dst := c.temp()
		ctx.emit(&ir.Arith{Dst: dst, Op: e.Op, Left: left, Right: right})
		//
		return dst
	case *ast.CostRef:
		c.expect(e, env.INT, expected)
		return c.costRef(ctx, e)
	case *ast.Named:
		c.errorf(e, "cannot build named pattern %s", e)
		return c.build(ctx, e.Pattern, expected)
	default:
		c.errorf(expr, "cannot build %s", expr)
		return c.temp()
	}
}

func (c *Compiler) buildApply(ctx *CompileContext, expr *ast.Apply, expected env.Type) ir.Reg {
	var (
		functor = c.resolveFunctor(expr, expected)
		fields  []ir.Reg
	)
	//
	if functor == nil {
		// Check arguments for further errors
		for _, arg := range expr.Args {
			c.build(ctx, arg, env.ErrorType)
		}
		//
		return c.temp()
	}
	//
	c.checkArity(expr, functor)
	// Fields are built before the term itself.
	for i, arg := range expr.Args {
		if i < functor.Arity() {
			fields = append(fields, c.build(ctx, arg, functor.Fields[i]))
		} else {
			c.build(ctx, arg, env.ErrorType)
		}
	}
	//
	dst := c.temp()
	ctx.emit(&ir.Alloc{Dst: dst, Functor: functor.Code, Arity: uint(functor.Arity())})
	//
	for i, field := range fields {
		ctx.emit(&ir.Store{Term: dst, Field: uint(i), Src: field})
	}
	//
	return dst
}

func (c *Compiler) constant(ctx *CompileContext, value ir.Literal) ir.Reg {
	dst := c.temp()
	ctx.emit(&ir.Const{Dst: dst, Value: value})
	//
	return dst
}

// Compile a reference to the best cost of a choice predicate on the term bound
// to a given variable.
func (c *Compiler) costRef(ctx *CompileContext, expr *ast.CostRef) ir.Reg {
	var dst = c.temp()
	//
	if ctx.choice == nil {
		c.errorf(expr, "cost reference outside of cost expression")
		ctx.emit(&ir.Const{Dst: dst, Value: ir.IntLiteral(0)})
		//
		return dst
	}
	//
	index, pos, ok := c.choicePredicate(expr, expr.Predicate)
	local := c.env.LookupLocal(expr.Arg.Name)
	//
	switch {
	case !ok:
		ctx.emit(&ir.Const{Dst: dst, Value: ir.IntLiteral(0)})
	case !local.HasValue():
		c.errorf(expr.Arg, "unknown variable %s", expr.Arg.Name)
		ctx.emit(&ir.Const{Dst: dst, Value: ir.IntLiteral(0)})
	default:
		arg := local.Unwrap()
		c.expect(expr.Arg, arg.Type, index.Type)
		ctx.emit(&ir.CostOf{Dst: dst, Table: index.Type.Name(), Predicate: pos, Src: ir.Reg(arg.Slot)})
		// Referring to the cost of another predicate on this same node induces a
		// dependency.
		if ctx.choice.hasSelf && ir.Reg(arg.Slot) == ctx.choice.self && index == ctx.choice.index {
			index.depend(pos, ctx.choice.predicate)
		}
	}
	//
	return dst
}

// ===================================================================
// Types & Functors
// ===================================================================

// Infer the type of an expression, as needed when the expression is not built
// against a known type (e.g. in a where member).
func (c *Compiler) infer(expr ast.Term) env.Type {
	switch e := expr.(type) {
	case *ast.Var:
		if local := c.env.LookupLocal(e.Name); local.HasValue() {
			return local.Unwrap().Type
		}
	case *ast.Int, *ast.Binary, *ast.CostRef:
		return env.INT
	case *ast.String:
		return env.STRING
	case *ast.Named:
		return c.infer(e.Pattern)
	case *ast.Apply:
		if functor, msg := c.lookupFunctor(e, env.ErrorType); msg == "" {
			return functor.Owner
		}
	}
	//
	return env.ErrorType
}

// Resolve the functor of a term, reporting a diagnostic if it cannot be
// determined.
func (c *Compiler) resolveFunctor(term *ast.Apply, expected env.Type) *env.Functor {
	functor, msg := c.lookupFunctor(term, expected)
	//
	if msg != "" {
		c.errorf(term, "%s", msg)
		return nil
	}
	//
	c.expect(term, functor.Owner, expected)
	//
	return functor
}

// Look up the functor of a term.  A qualified name is resolved directly.  An
// unqualified name is resolved amongst the functors of the expected type,
// and otherwise must be unique across all types.  If the functor cannot be
// determined, an explanation is returned.
func (c *Compiler) lookupFunctor(term *ast.Apply, expected env.Type) (*env.Functor, string) {
	if term.Qualifier != "" {
		if f := c.env.QualifiedFunctor(term.Qualifier, term.Functor); f.HasValue() {
			return f.Unwrap(), ""
		}
		//
		return nil, "unknown functor " + term.QualifiedName()
	}
	//
	candidates := c.env.Functors(term.Functor)
	//
	if len(candidates) == 0 {
		return nil, "unknown functor " + term.Functor
	} else if t, ok := expected.(*env.SumType); ok {
		if f := t.Functor(term.Functor); f != nil {
			return f, ""
		}
	}
	//
	if len(candidates) > 1 {
		return nil, "ambiguous functor " + term.Functor + " (requires qualification)"
	}
	//
	return candidates[0], ""
}

func (c *Compiler) checkArity(term *ast.Apply, functor *env.Functor) {
	if len(term.Args) != functor.Arity() {
		c.errorf(term, "functor %s expects %d arguments, found %d", functor.Name, functor.Arity(), len(term.Args))
	}
}

// Check that a type is compatible with that expected, reporting an error if
// not.
func (c *Compiler) expect(node ast.Node, actual env.Type, expected env.Type) bool {
	if !env.Compatible(expected, actual) {
		c.errorf(node, "expected type %s, found %s", expected.Name(), actual.Name())
		return false
	}
	//
	return true
}
