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
package arena

import (
	"fmt"
	"testing"

	log "github.com/sirupsen/logrus"
)

func Test_Arena_01(t *testing.T) {
	a := NewArena[int]("test", 0)
	r1 := a.Alloc(3)
	r2 := a.Alloc(2)
	//
	if r1.Start != 0 || r1.Len != 3 || r2.Start != 3 || r2.End() != 5 {
		t.Errorf("unexpected ranges %v %v", r1, r2)
	} else if a.Len() != 5 {
		t.Errorf("unexpected length %d", a.Len())
	}
}

func Test_Arena_02(t *testing.T) {
	a := NewArena[int]("test", 0)
	a.Alloc(1)
	mark := a.Checkpoint()
	a.Set(a.Alloc(2).Start, 7)
	a.Alloc(4)
	a.Rollback(mark)
	//
	if a.Len() != 1 || a.Peak() != 7 {
		t.Errorf("unexpected watermark %d (peak %d)", a.Len(), a.Peak())
	}
	// Reused slots are reset
	if r := a.Alloc(2); a.Get(r.Start) != 0 {
		t.Errorf("slot not reset after rollback")
	}
}

// Rollback exactness: after rolling back, allocation returns exactly the slots
// it would have returned had the discarded allocations never happened.
func Test_Arena_03(t *testing.T) {
	for n := uint(1); n < 20; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			check_RollbackExact(t, n)
		})
	}
}

func Test_Arena_04(t *testing.T) {
	a := NewArena[int]("test", 0)
	outer := a.Checkpoint()
	a.Alloc(2)
	inner := a.Checkpoint()
	a.Alloc(2)
	a.Rollback(outer)
	//
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("ill-nested rollback should panic")
		}
	}()
	//
	a.Rollback(inner)
}

func Test_Arena_05(t *testing.T) {
	a := NewArena[int]("a", 0)
	b := NewArena[int]("b", 0)
	//
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("foreign rollback should panic")
		}
	}()
	//
	b.Rollback(a.Checkpoint())
}

func Test_Arena_06(t *testing.T) {
	a := NewArena[int]("test", 0)
	a.Alloc(1)
	//
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("access beyond watermark should panic")
		}
	}()
	//
	a.Get(1)
}

// Exhaustion is fatal, and reported through the logger.
func Test_Arena_07(t *testing.T) {
	var code = -1
	//
	logger := log.StandardLogger()
	exit := logger.ExitFunc
	logger.ExitFunc = func(c int) { code = c }
	//
	defer func() {
		logger.ExitFunc = exit
		//
		if r := recover(); r == nil {
			t.Errorf("exhaustion should not return")
		} else if code != 1 {
			t.Errorf("exhaustion should exit with code 1 (was %d)", code)
		}
	}()
	//
	a := NewArena[int]("test", 4)
	a.Alloc(3)
	a.Alloc(2)
}

// ===================================================================
// Test Helpers
// ===================================================================

func check_RollbackExact(t *testing.T, n uint) {
	var (
		expected = NewArena[int]("expected", 0)
		actual   = NewArena[int]("actual", 0)
	)
	// Common prefix
	expected.Alloc(n)
	actual.Alloc(n)
	// Discarded allocations
	mark := actual.Checkpoint()
	for i := uint(0); i < n; i++ {
		actual.Alloc(i + 1)
	}
	//
	actual.Rollback(mark)
	// Subsequent allocations must coincide
	for i := uint(0); i < n; i++ {
		if e, a := expected.Alloc(i+2), actual.Alloc(i+2); e != a {
			t.Errorf("allocation %d differs: %v vs %v", i, e, a)
		}
	}
}
