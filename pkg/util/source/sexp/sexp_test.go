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
package sexp

import (
	"reflect"
	"testing"

	"github.com/gentle-lang/gentle/pkg/util/source"
)

func Test_Sexp_01(t *testing.T) {
	check_Ok(t, nil, "")
}

func Test_Sexp_02(t *testing.T) {
	e1 := List{nil}
	check_Ok(t, &e1, "()")
}

func Test_Sexp_03(t *testing.T) {
	e1 := List{nil}
	e2 := List{[]SExp{&e1}}
	check_Ok(t, &e2, "(())")
}

func Test_Sexp_04(t *testing.T) {
	e1 := Symbol{"symbol", false}
	check_Ok(t, &e1, "symbol")
}

func Test_Sexp_05(t *testing.T) {
	e1 := Symbol{"+12345", false}
	check_Ok(t, &e1, "  +12345 ; comment")
}

func Test_Sexp_06(t *testing.T) {
	e1 := Symbol{"hello", false}
	e2 := Symbol{"world", false}
	e3 := List{[]SExp{&e2}}
	e4 := List{[]SExp{&e1, &e3}}
	check_Ok(t, &e4, "(hello (world))")
}

func Test_Sexp_07(t *testing.T) {
	e1 := Symbol{"f", false}
	e2 := Symbol{"a b\n", true}
	e3 := List{[]SExp{&e1, &e2}}
	check_Ok(t, &e3, "(f \"a b\\n\")")
}

func Test_Sexp_08(t *testing.T) {
	file := source.NewSourceFile("test", []byte("(a)\n;; comment\n(b c)"))
	terms, srcmap, err := ParseAll(file)
	//
	if err != nil {
		t.Fatal(err)
	} else if len(terms) != 2 {
		t.Fatalf("expected 2 terms, got %d", len(terms))
	}
	//
	span := srcmap.Get(terms[1])
	if span.Start() != 15 || span.End() != 20 {
		t.Errorf("unexpected span %d..%d", span.Start(), span.End())
	} else if terms[1].AsList().Head() != "b" {
		t.Errorf("unexpected head %s", terms[1].AsList().Head())
	}
}

// ============================================================================
// Negative Tests
// ============================================================================

func Test_Sexp_Err01(t *testing.T) {
	check_Err(t, ")")
}

func Test_Sexp_Err02(t *testing.T) {
	check_Err(t, "())")
}

func Test_Sexp_Err03(t *testing.T) {
	check_Err(t, "(string")
}

func Test_Sexp_Err04(t *testing.T) {
	check_Err(t, "(f \"unterminated)")
}

// ============================================================================
// Helpers
// ============================================================================

func check_Ok(t *testing.T, sexp1 SExp, input string) {
	sexp2, _, err := Parse(source.NewSourceFile("test", []byte(input)))
	//
	if err != nil {
		t.Error(err)
	} else if sexp1 == nil && sexp2 != nil {
		t.Errorf("unexpected %s", sexp2.String(true))
	} else if sexp1 != nil && !reflect.DeepEqual(sexp1, sexp2) {
		t.Errorf("%s != %s", sexp1.String(true), sexp2.String(true))
	}
}

func check_Err(t *testing.T, input string) {
	_, _, err := Parse(source.NewSourceFile("test", []byte(input)))
	//
	if err == nil {
		t.Errorf("input should not have parsed!")
	}
}
