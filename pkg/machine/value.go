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
// Package machine provides the runtime support used by generated programs:
// a checkpointable heap holding terms, table entries, global variables, and
// the control blocks recording the outcome of choice resolution.  The same
// package underpins both emitted Go code and the interpreter in pkg/vm.
package machine

import (
	"fmt"
	"math"
	"strconv"
)

// Kind identifies what a value holds.
type Kind uint8

const (
	// NoneKind is the kind of the zero value, held by unassigned registers
	// and globals.
	NoneKind Kind = iota
	// IntKind is the kind of integer values.
	IntKind
	// StringKind is the kind of string values.
	StringKind
	// TermKind is the kind of references to heap terms.
	TermKind
	// TableKind is the kind of references to table entries.
	TableKind
)

// Infinity is the cost of an unresolved choice.  It is absorbing for every
// operator, whichever side it appears on.
const Infinity int64 = math.MaxInt64

// Value is a single datum manipulated by a generated program.
type Value struct {
	kind Kind
	num  int64
	str  string
}

// None is the empty value.
var None = Value{}

// Int constructs an integer value.
func Int(n int64) Value { return Value{IntKind, n, ""} }

// String constructs a string value.
func String(s string) Value { return Value{StringKind, 0, s} }

// Kind returns the kind of this value.
func (v Value) Kind() Kind { return v.kind }

// Int returns the integer held by this value, or 0 if it holds something else.
func (v Value) Int() int64 {
	if v.kind != IntKind {
		return 0
	}
	//
	return v.num
}

// Str returns the string held by this value.
func (v Value) Str() string { return v.str }

// Index returns the heap index of a term, or the entry index of a table
// reference.
func (v Value) Index() uint { return uint(v.num) }

// Equals checks whether two values are identical.  Terms and table entries
// are compared by reference.
func (v Value) Equals(o Value) bool {
	return v.kind == o.kind && v.num == o.num && v.str == o.str
}

func (v Value) String() string {
	switch v.kind {
	case IntKind:
		return strconv.FormatInt(v.num, 10)
	case StringKind:
		return strconv.Quote(v.str)
	case TermKind:
		return fmt.Sprintf("@%d", v.num)
	case TableKind:
		return fmt.Sprintf("#%d", v.num)
	}
	//
	return "_"
}

// ===================================================================
// Cost arithmetic
// ===================================================================

// Add two integers, saturating on overflow.
func Add(l, r Value) Value {
	var a, b = l.Int(), r.Int()
	//
	if a == Infinity || b == Infinity {
		return Int(Infinity)
	}
	//
	return Int(saturate(a+b, a, b))
}

// Sub subtracts two integers, saturating on overflow.
func Sub(l, r Value) Value {
	var a, b = l.Int(), r.Int()
	//
	if a == Infinity || b == Infinity || b == math.MinInt64 {
		return Int(Infinity)
	}
	//
	return Int(saturate(a-b, a, -b))
}

// Mul multiplies two integers, saturating on overflow.
func Mul(l, r Value) Value {
	var a, b = l.Int(), r.Int()
	//
	switch {
	case a == Infinity || b == Infinity:
		return Int(Infinity)
	case a == 0 || b == 0:
		return Int(0)
	}
	//
	p := a * b
	//
	if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		if (a < 0) != (b < 0) {
			return Int(math.MinInt64)
		}
		//
		return Int(Infinity)
	}
	//
	return Int(p)
}

// Div divides two integers.  Division by zero raises an ArithmeticError.
func Div(l, r Value) Value {
	var a, b = l.Int(), r.Int()
	//
	if b == 0 {
		panic(&ArithmeticError{"division by zero"})
	} else if a == Infinity || b == Infinity {
		return Int(Infinity)
	} else if a == math.MinInt64 && b == -1 {
		return Int(Infinity)
	}
	//
	return Int(a / b)
}

// Clamp restricts a cost to be non-negative.
func Clamp(cost int64) int64 {
	return max(cost, 0)
}

func saturate(sum, a, b int64) int64 {
	switch {
	case a > 0 && b > 0 && sum < 0:
		return Infinity
	case a < 0 && b < 0 && sum >= 0:
		return math.MinInt64
	}
	//
	return sum
}
