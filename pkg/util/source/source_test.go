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
package source

import "testing"

func Test_SourceFile_01(t *testing.T) {
	file := NewSourceFile("test.lisp", []byte("(a)\n(b c)\n(d)"))
	// Position of "c"
	line := file.FindFirstEnclosingLine(NewSpan(7, 8))
	//
	if line.Number() != 2 || line.String() != "(b c)" || line.Start() != 4 {
		t.Errorf("unexpected line %d \"%s\" (start %d)", line.Number(), line.String(), line.Start())
	}
}

func Test_SourceFile_02(t *testing.T) {
	file := NewSourceFile("test.lisp", []byte("(a)\n(b)"))
	// Beyond end of file
	line := file.FindFirstEnclosingLine(NewSpan(100, 100))
	//
	if line.Number() != 2 || line.String() != "(b)" {
		t.Errorf("unexpected line %d \"%s\"", line.Number(), line.String())
	}
}

func Test_SourceMap_01(t *testing.T) {
	type node struct{ name string }
	//
	var (
		file   = NewSourceFile("test.lisp", []byte("x\ny\nz"))
		srcmap = NewSourceMap[*node](file)
		maps   = NewSourceMaps[*node]()
		x      = &node{"x"}
		z      = &node{"z"}
		w      = &node{"w"}
	)
	//
	srcmap.Put(x, NewSpan(0, 1))
	srcmap.Put(z, NewSpan(4, 5))
	maps.Join(srcmap)
	//
	if n, ok := maps.Line(z); !ok || n != 3 {
		t.Errorf("unexpected line %d (%t)", n, ok)
	} else if _, ok := maps.Line(w); ok {
		t.Errorf("unmapped node has a line")
	} else if err := maps.SyntaxError(x, "oops"); err == nil || err.Error() != "test.lisp:1: oops" {
		t.Errorf("unexpected error %v", err)
	} else if maps.SyntaxError(w, "oops") != nil {
		t.Errorf("unmapped node has an error")
	}
}

func Test_SourceMap_02(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("duplicate key should panic")
		}
	}()
	//
	srcmap := NewSourceMap[string](NewSourceFile("f", nil))
	srcmap.Put("a", NewSpan(0, 0))
	srcmap.Put("a", NewSpan(0, 0))
}

func Test_SourceFile_03(t *testing.T) {
	file := NewSourceFile("test.g", []byte("(a)\n\n(b)\n"))
	//
	for _, c := range []struct{ index, number, start int }{
		{0, 1, 0}, {3, 1, 0}, {4, 2, 4}, {5, 3, 5}, {9, 4, 9},
	} {
		line := file.FindFirstEnclosingLine(NewSpan(c.index, c.index))
		if line.Number() != c.number || line.Start() != c.start {
			t.Errorf("index %d: unexpected line %d (start %d)", c.index, line.Number(), line.Start())
		}
	}
}

func Test_SourceMap_03(t *testing.T) {
	var (
		file   = NewSourceFile("test.g", []byte("x\ny"))
		srcmap = NewSourceMap[string](file)
		maps   = NewSourceMaps[string]()
	)
	//
	srcmap.Put("y", NewSpan(2, 3))
	maps.Join(srcmap)
	//
	if w := maps.Warning("y", "unused"); w == nil || !w.IsWarning() || w.Error() != "test.g:2: unused" {
		t.Errorf("unexpected warning %v", w)
	} else if e := maps.SyntaxError("y", "bad"); e == nil || e.IsWarning() {
		t.Errorf("unexpected error %v", e)
	} else if maps.Warning("x", "unmapped") != nil {
		t.Errorf("unmapped node has a warning")
	}
}
