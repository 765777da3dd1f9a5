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
package env

import (
	"github.com/gentle-lang/gentle/pkg/arena"
	"github.com/gentle-lang/gentle/pkg/ast"
	"github.com/gentle-lang/gentle/pkg/util"
)

// Local is the meaning of a variable bound by a pattern within a rule.
type Local struct {
	Name string
	Type Type
	// Code of the functor the variable was bound to, when this is known
	// statically (otherwise 0).
	Functor int64
	// Defining occurrence.
	Node ast.Node
	// Frame slot holding the variable's value.
	Slot uint
}

// Scope is one level of the local scope stack.
type Scope struct {
	// Frame watermark on entry to this scope.
	mark arena.Mark
	// Locals defined in this scope.
	locals map[Identifier]*Local
}

// BeginFrame starts the compilation of a new procedure, discarding all frame
// slots.  There must be no open scopes.
func (p *Environment) BeginFrame() {
	if !p.scopes.IsEmpty() {
		panic("frame started with open scopes")
	}
	//
	p.frame.Reset()
}

// FrameSize returns the number of slots required by the procedure compiled
// since the last call to BeginFrame.
func (p *Environment) FrameSize() uint {
	return p.frame.Peak()
}

// PushScope opens a new local scope, checkpointing the frame.
func (p *Environment) PushScope() {
	p.scopes.Push(&Scope{p.frame.Checkpoint(), make(map[Identifier]*Local)})
}

// PopScope closes the innermost scope.  Every local declared in it becomes
// invisible, and its slots are reclaimed.
func (p *Environment) PopScope() {
	scope := p.scopes.Pop()
	p.frame.Rollback(scope.mark)
}

// Depth returns the number of open scopes.
func (p *Environment) Depth() uint {
	return p.scopes.Len()
}

// AllocTemp allocates an anonymous frame slot in the innermost scope.
func (p *Environment) AllocTemp() uint {
	slot := p.frame.Alloc(1).Start
	p.frame.Set(slot, Identifier(^uint32(0)))
	//
	return slot
}

// DefineLocal binds a variable in the innermost scope, allocating it a slot.
// This fails if the variable is already bound in that same scope, in which
// case the first binding is returned.
func (p *Environment) DefineLocal(name string, datatype Type, functor int64, node ast.Node) (*Local, bool) {
	var (
		id    = p.names.Intern(name)
		scope = p.scopes.Top()
	)
	//
	if local, ok := scope.locals[id]; ok {
		return local, false
	}
	//
	slot := p.frame.Alloc(1).Start
	p.frame.Set(slot, id)
	local := &Local{name, datatype, functor, node, slot}
	scope.locals[id] = local
	//
	return local, true
}

// BindLocal binds a variable in the innermost scope to a slot which has already
// been allocated in that scope (typically by AllocTemp).  This fails, as for
// DefineLocal, if the variable is already bound in that same scope.
func (p *Environment) BindLocal(name string, datatype Type, functor int64, node ast.Node, slot uint) (*Local, bool) {
	var (
		id    = p.names.Intern(name)
		scope = p.scopes.Top()
	)
	//
	if local, ok := scope.locals[id]; ok {
		return local, false
	}
	//
	p.frame.Set(slot, id)
	local := &Local{name, datatype, functor, node, slot}
	scope.locals[id] = local
	//
	return local, true
}

// InnerLocal finds the binding of a given variable in the innermost scope
// only, ignoring any enclosing scopes.
func (p *Environment) InnerLocal(name string) util.Option[*Local] {
	id := p.names.Intern(name)
	//
	if local, ok := p.scopes.Top().locals[id]; ok {
		return util.Some(local)
	}
	//
	return util.None[*Local]()
}

// LookupLocal finds the innermost binding of a given variable.
func (p *Environment) LookupLocal(name string) util.Option[*Local] {
	id := p.names.Intern(name)
	scopes := p.scopes.Items()
	//
	for i := len(scopes) - 1; i >= 0; i-- {
		if local, ok := scopes[i].locals[id]; ok {
			return util.Some(local)
		}
	}
	//
	return util.None[*Local]()
}
