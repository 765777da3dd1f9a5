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

import (
	"fmt"
	"os"
	"sort"
)

// ReadFiles reads a given set of source files, or produces an error.
func ReadFiles(filenames ...string) ([]File, error) {
	files := make([]File, len(filenames))
	//
	for i, n := range filenames {
		bytes, err := os.ReadFile(n)
		if err != nil {
			return nil, err
		}
		//
		files[i] = *NewSourceFile(n, bytes)
	}
	//
	return files, nil
}

// Line provides information about a given line within the original string.
// This includes the line number (counting from 1), and the span of the line
// within the original string.
type Line struct {
	text   []rune
	span   Span
	number int
}

// Get the string representing this line.
func (p *Line) String() string {
	return string(p.text[p.span.start:p.span.end])
}

// Number gets the line number of this line, where the first line in a string
// has line number 1.
func (p *Line) Number() int {
	return p.number
}

// Start returns the starting index of this line in the original string.
func (p *Line) Start() int {
	return p.span.start
}

// Length returns the number of characters in this line.
func (p *Line) Length() int {
	return p.span.Length()
}

// File represents a given source file (typically stored on disk).
type File struct {
	filename string
	contents []rune
	// Offset of the first character of each line.
	lines []int
}

// NewSourceFile constructs a new source file from a given byte array.
func NewSourceFile(filename string, bytes []byte) *File {
	contents := []rune(string(bytes))
	lines := []int{0}
	//
	for i, c := range contents {
		if c == '\n' {
			lines = append(lines, i+1)
		}
	}
	//
	return &File{filename, contents, lines}
}

// Filename returns the filename associated with this source file.
func (s *File) Filename() string {
	return s.filename
}

// Contents returns the contents of this source file.
func (s *File) Contents() []rune {
	return s.contents
}

// SyntaxError constructs a syntax error over a given span of this file with a
// given message.
func (s *File) SyntaxError(span Span, msg string) *SyntaxError {
	return &SyntaxError{s, span, msg, false}
}

// Warning constructs a diagnostic over a given span of this file which does
// not prevent compilation.
func (s *File) Warning(span Span, msg string) *SyntaxError {
	return &SyntaxError{s, span, msg, true}
}

// FindFirstEnclosingLine determines the line in this source file which
// encloses the start of a span.  If the position is beyond the bounds of the
// source file then the last physical line is returned.  The returned line is
// not guaranteed to enclose the entire span, as these can cross multiple
// lines.
func (s *File) FindFirstEnclosingLine(span Span) Line {
	// Find the last line starting at or before the span.
	n := sort.Search(len(s.lines), func(i int) bool { return s.lines[i] > span.start }) - 1
	n = max(n, 0)
	//
	end := len(s.contents)
	if n+1 < len(s.lines) {
		end = s.lines[n+1] - 1
	}
	//
	return Line{s.contents, Span{s.lines[n], end}, n + 1}
}

// SyntaxError is a structured error which retains the index into the original
// string where an error occurred, along with an error message.  Warnings are
// reported in the same way, but do not prevent compilation.
type SyntaxError struct {
	srcfile *File
	span    Span
	msg     string
	warning bool
}

// SourceFile returns the underlying source file that this syntax error covers.
func (p *SyntaxError) SourceFile() *File {
	return p.srcfile
}

// Span returns the span of the original text on which this error is reported.
func (p *SyntaxError) Span() Span {
	return p.span
}

// Message returns the message to be reported.
func (p *SyntaxError) Message() string {
	return p.msg
}

// IsWarning checks whether this is only a warning.
func (p *SyntaxError) IsWarning() bool {
	return p.warning
}

// Error implements the error interface.
func (p *SyntaxError) Error() string {
	line := p.FirstEnclosingLine()
	return fmt.Sprintf("%s:%d: %s", p.srcfile.Filename(), line.Number(), p.Message())
}

// FirstEnclosingLine determines the first line in this source file to which
// this error is associated.
func (p *SyntaxError) FirstEnclosingLine() Line {
	return p.srcfile.FindFirstEnclosingLine(p.span)
}
