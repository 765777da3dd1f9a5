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
package machine

import "fmt"

// AbortError is raised when a predicate which must not fail (e.g. an action)
// fails.  It identifies the predicate, and the source line of the call site.
type AbortError struct {
	Predicate string
	Line      int
}

func (e *AbortError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("no rule of %s applies", e.Predicate)
	}
	//
	return fmt.Sprintf("line %d: no rule of %s applies", e.Line, e.Predicate)
}

// UndefinedError is raised when calling a procedure which was never registered.
type UndefinedError struct {
	Proc string
}

func (e *UndefinedError) Error() string {
	return fmt.Sprintf("undefined procedure %s", e.Proc)
}

// ArithmeticError is raised when integer arithmetic is undefined.
type ArithmeticError struct {
	Message string
}

func (e *ArithmeticError) Error() string {
	return e.Message
}
