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
package env

// Identifier is an interned symbolic name.  Two identifiers are equal exactly
// when they were interned from the same string by the same interner.
type Identifier uint32

// Interner maps names to identifiers and back.
type Interner struct {
	ids   map[string]Identifier
	names []string
}

// NewInterner constructs an empty interner.
func NewInterner() *Interner {
	return &Interner{make(map[string]Identifier), nil}
}

// Intern returns the identifier for a given name, allocating one if necessary.
func (p *Interner) Intern(name string) Identifier {
	if id, ok := p.ids[name]; ok {
		return id
	}
	//
	id := Identifier(len(p.names))
	p.ids[name] = id
	p.names = append(p.names, name)
	//
	return id
}

// Name returns the name from which a given identifier was interned.
func (p *Interner) Name(id Identifier) string {
	return p.names[id]
}
