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
	"github.com/gentle-lang/gentle/pkg/env"
	"github.com/gentle-lang/gentle/pkg/ir"
)

// CompileContext is the state of the procedure currently being compiled.  This
// is threaded through the compilation of rules, members and terms.
type CompileContext struct {
	proc *ir.Proc
	pred *env.PredicateMeaning
	// Number of labels allocated.
	labels uint
	// Current and maximum nesting of mark registers.
	marks    uint
	maxMarks uint
	// Label jumped to when a match fails.
	fail ir.Label
	// Set when compiling the cost expression of a choice rule.
	choice *costContext
}

// Information needed to compile cost references.
type costContext struct {
	index *ChoiceTypeIndex
	// Position of the predicate being scored.
	predicate uint
	// Register (if any) bound to the whole of the primary argument.
	self    ir.Reg
	hasSelf bool
}

func (c *CompileContext) emit(insn ir.Insn) {
	c.proc.Emit(insn)
}

func (c *CompileContext) newLabel() ir.Label {
	c.labels++
	return ir.Label(c.labels)
}

func (c *CompileContext) place(label ir.Label) {
	c.emit(&ir.Target{Label: label})
}

// Open a mark register, and checkpoint the heap into it.
func (c *CompileContext) checkpoint() uint {
	mark := c.marks
	c.marks++
	c.maxMarks = max(c.maxMarks, c.marks)
	c.emit(&ir.Checkpoint{Mark: mark})
	//
	return mark
}

// Close the innermost mark register.
func (c *CompileContext) release() {
	c.marks--
}

// Begin compiling a procedure whose inputs occupy the first registers.
func (c *Compiler) beginProc(name string, pred *env.PredicateMeaning, kind ir.ProcKind, inputs, outputs int) *CompileContext {
	proc := &ir.Proc{Name: name, Predicate: pred.Name, Kind: kind, Inputs: uint(inputs), Outputs: uint(outputs)}
	//
	c.env.BeginFrame()
	c.env.PushScope()
	//
	for range inputs {
		c.env.AllocTemp()
	}
	//
	return &CompileContext{proc: proc, pred: pred}
}

func (c *Compiler) endProc(ctx *CompileContext) {
	c.env.PopScope()
	ctx.proc.Frame = c.env.FrameSize()
	ctx.proc.Marks = ctx.maxMarks
	c.procs = append(c.procs, ctx.proc)
}

// Allocate an anonymous register in the innermost scope.
func (c *Compiler) temp() ir.Reg {
	return ir.Reg(c.env.AllocTemp())
}
