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
package termio

import (
	"fmt"
	"strings"
)

// TERM_RED is used to highlight errors.
const TERM_RED = uint(1)

// TERM_YELLOW is used to highlight warnings.
const TERM_YELLOW = uint(3)

// AnsiEscape represents an ANSI escape code used for formatting text in a
// terminal, as a sequence of SGR parameters.
type AnsiEscape struct {
	params []uint
}

// NewAnsiEscape construct an empty escape
func NewAnsiEscape() AnsiEscape {
	return AnsiEscape{}
}

// ResetAnsiEscape constructs an escape which cancels any formatting.
func ResetAnsiEscape() AnsiEscape {
	return AnsiEscape{[]uint{0}}
}

// BoldAnsiEscape constructs an escape for bold text.
func BoldAnsiEscape() AnsiEscape {
	return AnsiEscape{[]uint{1}}
}

// FgColour sets the foreground colour
func (p AnsiEscape) FgColour(col uint) AnsiEscape {
	params := append([]uint{}, p.params...)
	return AnsiEscape{append(params, 30+col)}
}

// Build constructs the final escape
func (p AnsiEscape) Build() string {
	codes := make([]string, len(p.params))
	//
	for i, c := range p.params {
		codes[i] = fmt.Sprintf("%d", c)
	}
	//
	return fmt.Sprintf("\033[%sm", strings.Join(codes, ";"))
}

// Wrap surrounds some text with this escape, followed by a reset.
func (p AnsiEscape) Wrap(text string) string {
	return p.Build() + text + ResetAnsiEscape().Build()
}
