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
// Package ir defines the code generated for predicates.  Each predicate is
// compiled into one or more procedures, each being a flat sequence of
// instructions over a frame of registers, with explicit labels for fail and
// success continuations.
package ir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gentle-lang/gentle/pkg/ast"
)

// Reg identifies a frame slot of a procedure.
type Reg uint

func (r Reg) String() string { return fmt.Sprintf("r%d", r) }

// Label identifies a position within a procedure.
type Label uint

func (l Label) String() string { return fmt.Sprintf("L%d", l) }

// Literal is an integer or string constant.
type Literal struct {
	IsString bool
	Int      int64
	Str      string
}

// IntLiteral constructs an integer literal.
func IntLiteral(n int64) Literal { return Literal{false, n, ""} }

// StringLiteral constructs a string literal.
func StringLiteral(s string) Literal { return Literal{true, 0, s} }

func (l Literal) String() string {
	if l.IsString {
		return strconv.Quote(l.Str)
	}
	//
	return strconv.FormatInt(l.Int, 10)
}

// FailMode determines how a call reacts when the callee fails.
type FailMode uint8

const (
	// FailJump transfers control to the call's fail label.
	FailJump FailMode = iota
	// FailAbort terminates execution, reporting the call site.
	FailAbort
)

// Insn is a single instruction.
type Insn interface {
	String() string
}

// Target marks the position of a label.
type Target struct{ Label Label }

// Jump transfers control unconditionally.
type Jump struct{ Label Label }

// Checkpoint saves the heap watermark into a mark register.
type Checkpoint struct{ Mark uint }

// Rollback restores the heap watermark from a mark register, discarding all
// terms allocated since.
type Rollback struct{ Mark uint }

// TestTag checks that a register holds a term with a given functor, jumping to
// the fail label otherwise.
type TestTag struct {
	Src     Reg
	Functor int64
	Fail    Label
}

// TestConst checks that a register holds a given constant, jumping to the fail
// label otherwise.
type TestConst struct {
	Src   Reg
	Value Literal
	Fail  Label
}

// TestBelow checks that a register holds an integer below a given limit,
// jumping to the fail label otherwise.
type TestBelow struct {
	Src   Reg
	Limit int64
	Fail  Label
}

// Load reads a field of the term held in a register.
type Load struct {
	Dst   Reg
	Src   Reg
	Field uint
}

// Alloc allocates a fresh term with a given functor.
type Alloc struct {
	Dst     Reg
	Functor int64
	Arity   uint
}

// Store writes a field of a term under construction.
type Store struct {
	Term  Reg
	Field uint
	Src   Reg
}

// Move copies one register into another.
type Move struct{ Dst, Src Reg }

// Const loads a constant into a register.
type Const struct {
	Dst   Reg
	Value Literal
}

// Arith performs integer arithmetic.
type Arith struct {
	Dst         Reg
	Op          ast.Op
	Left, Right Reg
}

// Increment adds one to the integer held in a register.
type Increment struct{ Reg Reg }

// Call invokes another procedure.  On success, results are written into the
// given registers.  On failure, control either jumps to the fail label or
// execution aborts reporting the callee's name and the source line of the call.
type Call struct {
	Proc      string
	Predicate string
	Args      []Reg
	Results   []Reg
	Mode      FailMode
	Fail      Label
	Line      int
}

// GlobalGet reads a global variable.
type GlobalGet struct {
	Dst  Reg
	Name string
}

// GlobalSet writes a global variable.
type GlobalSet struct {
	Name string
	Src  Reg
}

// TableNew creates a fresh table entry.
type TableNew struct {
	Dst   Reg
	Table string
	Arity uint
}

// TableGet reads a field of a table entry.
type TableGet struct {
	Dst   Reg
	Key   Reg
	Field uint
}

// TableSet writes a field of a table entry.
type TableSet struct {
	Key   Reg
	Field uint
	Src   Reg
}

// CostOf reads the best cost of the nth predicate of a dispatch table for the
// term held in a register, resolving that term first if necessary.
type CostOf struct {
	Dst       Reg
	Table     string
	Predicate uint
	Src       Reg
}

// Chosen reads the rule chosen for the nth predicate of a dispatch table on the
// term held in a register (or -1 if none applies), resolving that term first
// if necessary.
type Chosen struct {
	Dst       Reg
	Table     string
	Predicate uint
	Src       Reg
}

// Return terminates the procedure successfully with the given results.
type Return struct{ Results []Reg }

// Fail terminates the procedure unsuccessfully.
type Fail struct{}

func (i *Target) String() string     { return fmt.Sprintf("%s:", i.Label) }
func (i *Jump) String() string       { return fmt.Sprintf("goto %s", i.Label) }
func (i *Checkpoint) String() string { return fmt.Sprintf("k%d = checkpoint", i.Mark) }
func (i *Rollback) String() string   { return fmt.Sprintf("rollback k%d", i.Mark) }
func (i *TestTag) String() string {
	return fmt.Sprintf("if tag(%s) != %d goto %s", i.Src, i.Functor, i.Fail)
}
func (i *TestConst) String() string {
	return fmt.Sprintf("if %s != %s goto %s", i.Src, i.Value, i.Fail)
}
func (i *TestBelow) String() string {
	return fmt.Sprintf("if %s >= %d goto %s", i.Src, i.Limit, i.Fail)
}
func (i *Load) String() string  { return fmt.Sprintf("%s = %s[%d]", i.Dst, i.Src, i.Field) }
func (i *Alloc) String() string { return fmt.Sprintf("%s = alloc %d/%d", i.Dst, i.Functor, i.Arity) }
func (i *Store) String() string { return fmt.Sprintf("%s[%d] = %s", i.Term, i.Field, i.Src) }
func (i *Move) String() string  { return fmt.Sprintf("%s = %s", i.Dst, i.Src) }
func (i *Const) String() string { return fmt.Sprintf("%s = %s", i.Dst, i.Value) }
func (i *Arith) String() string {
	return fmt.Sprintf("%s = %s %s %s", i.Dst, i.Left, i.Op, i.Right)
}
func (i *Increment) String() string { return fmt.Sprintf("%s++", i.Reg) }
func (i *Call) String() string {
	var onfail string
	//
	if i.Mode == FailJump {
		onfail = fmt.Sprintf("else goto %s", i.Fail)
	} else {
		onfail = fmt.Sprintf("else abort line %d", i.Line)
	}
	//
	return fmt.Sprintf("(%s) = call %s(%s) %s", regs(i.Results), i.Proc, regs(i.Args), onfail)
}
func (i *GlobalGet) String() string { return fmt.Sprintf("%s = global %s", i.Dst, i.Name) }
func (i *GlobalSet) String() string { return fmt.Sprintf("global %s = %s", i.Name, i.Src) }
func (i *TableNew) String() string  { return fmt.Sprintf("%s = new %s/%d", i.Dst, i.Table, i.Arity) }
func (i *TableGet) String() string  { return fmt.Sprintf("%s = %s'%d", i.Dst, i.Key, i.Field) }
func (i *TableSet) String() string  { return fmt.Sprintf("%s'%d = %s", i.Key, i.Field, i.Src) }
func (i *CostOf) String() string {
	return fmt.Sprintf("%s = cost %s#%d(%s)", i.Dst, i.Table, i.Predicate, i.Src)
}
func (i *Chosen) String() string {
	return fmt.Sprintf("%s = chosen %s#%d(%s)", i.Dst, i.Table, i.Predicate, i.Src)
}
func (i *Return) String() string { return fmt.Sprintf("return (%s)", regs(i.Results)) }
func (i *Fail) String() string   { return "fail" }

func regs(rs []Reg) string {
	var strs = make([]string, len(rs))
	//
	for i, r := range rs {
		strs[i] = r.String()
	}
	//
	return strings.Join(strs, ", ")
}
