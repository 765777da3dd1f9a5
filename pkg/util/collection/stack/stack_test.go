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
package stack

import "testing"

func Test_Stack_01(t *testing.T) {
	s := NewStack[int]()
	//
	if !s.IsEmpty() {
		t.Errorf("new stack not empty")
	}
	//
	s.Push(1)
	s.Push(2)
	s.Push(3)
	//
	if s.Len() != 3 || s.Top() != 3 || s.Peek(2) != 1 {
		t.Errorf("unexpected stack contents %v", s.Items())
	}
}

func Test_Stack_02(t *testing.T) {
	s := NewStack[string]()
	s.Push("a")
	s.Push("b")
	//
	if v := s.Pop(); v != "b" {
		t.Errorf("unexpected pop %s", v)
	} else if v := s.Pop(); v != "a" {
		t.Errorf("unexpected pop %s", v)
	} else if !s.IsEmpty() {
		t.Errorf("stack should be empty")
	}
}

func Test_Stack_03(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("pop of empty stack should panic")
		}
	}()
	//
	NewStack[int]().Pop()
}
