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
package util

import "testing"

func Test_Option_01(t *testing.T) {
	opt := None[uint]()
	//
	if opt.HasValue() || !opt.IsEmpty() {
		t.Errorf("empty option has value")
	} else if opt.UnwrapOr(3) != 3 {
		t.Errorf("unexpected default %d", opt.UnwrapOr(3))
	}
}

func Test_Option_02(t *testing.T) {
	opt := Some("x")
	//
	if !opt.HasValue() || opt.Unwrap() != "x" {
		t.Errorf("unexpected option contents")
	}
}

func Test_Option_03(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("unwrap of empty option should panic")
		}
	}()
	//
	None[int]().Unwrap()
}
