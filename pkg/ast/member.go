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
package ast

import (
	"fmt"
)

// Member is one sub-goal within the body of a rule.
type Member interface {
	Node
	String() string
}

// Call invokes a predicate.  Inputs are built, outputs are matched.
type Call struct {
	Predicate string
	In        []Term
	Out       []Term
}

func (*Call) isNode() {}

func (m *Call) String() string {
	return fmt.Sprintf("%s(%s) -> (%s)", m.Predicate, terms(m.In), terms(m.Out))
}

// Where builds an expression and matches the result against a pattern.
type Where struct {
	Expr    Term
	Pattern Term
}

func (*Where) isNode() {}

func (m *Where) String() string { return fmt.Sprintf("where %s -> %s", m.Expr, m.Pattern) }

// GlobalGet matches the current value of a global variable against a pattern.
type GlobalGet struct {
	Var     string
	Pattern Term
}

func (*GlobalGet) isNode() {}

func (m *GlobalGet) String() string { return fmt.Sprintf("%s -> %s", m.Var, m.Pattern) }

// GlobalSet assigns the value of an expression to a global variable.
type GlobalSet struct {
	Var  string
	Expr Term
}

func (*GlobalSet) isNode() {}

func (m *GlobalSet) String() string { return fmt.Sprintf("%s -> %s", m.Expr, m.Var) }

// TableNew creates a fresh table entry, and matches its key against a pattern
// (typically a variable).
type TableNew struct {
	Table   string
	Pattern Term
}

func (*TableNew) isNode() {}

func (m *TableNew) String() string { return fmt.Sprintf("%s :: %s", m.Pattern, m.Table) }

// TableGet reads a field of a table entry and matches it against a pattern.
type TableGet struct {
	Key     Term
	Field   string
	Pattern Term
}

func (*TableGet) isNode() {}

func (m *TableGet) String() string { return fmt.Sprintf("%s'%s -> %s", m.Key, m.Field, m.Pattern) }

// TableSet writes the value of an expression into a field of a table entry.
type TableSet struct {
	Key   Term
	Field string
	Expr  Term
}

func (*TableSet) isNode() {}

func (m *TableSet) String() string { return fmt.Sprintf("%s -> %s'%s", m.Expr, m.Key, m.Field) }

// Alternative is one branch of a disjunction.
type Alternative struct {
	Body []Member
}

func (*Alternative) isNode() {}

// Case is an ordered disjunction: the first alternative which succeeds is
// committed to.  If none succeeds, the enclosing rule fails.
type Case struct {
	Alternatives []*Alternative
}

func (*Case) isNode() {}

func (m *Case) String() string { return fmt.Sprintf("case (%d alternatives)", len(m.Alternatives)) }

// Loop repeats its body until it fails, or until it has been executed a given
// maximum number of times (when Max is non-zero).  A loop itself never fails.
type Loop struct {
	Max  uint
	Body []Member
}

func (*Loop) isNode() {}

func (m *Loop) String() string {
	if m.Max == 0 {
		return "loop"
	}
	//
	return fmt.Sprintf("loop %d", m.Max)
}
