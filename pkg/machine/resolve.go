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

import (
	"slices"

	log "github.com/sirupsen/logrus"
)

// Candidate is a rule competing to resolve one predicate of a dispatch type.
type Candidate struct {
	// Position of the rule's predicate within the dispatch type.
	Predicate uint
	// Position of the rule within its predicate.
	Rule uint
	// Computes the rule's cost for a given term, failing if the rule does not
	// apply.
	Score Proc
}

// Child identifies a field of a term which is itself resolved through a given
// dispatch type.
type Child struct {
	Field uint
	Table string
}

// Dispatch describes a choice type: the predicates which share it, the
// candidate rules for each functor, the chain rules which apply regardless of
// functor, and the dependencies between predicates arising from cost
// expressions which refer to the cost of another predicate on the same node.
type Dispatch struct {
	Type       string
	Predicates []string
	Functors   map[int64][]Candidate
	Children   map[int64][]Child
	Chain      []Candidate
	// Dependents[p] lists those predicates which must be rescored when the best
	// cost of p improves.
	Dependents [][]uint
}

// Rules returns the number of candidate rules of this dispatch type.
func (d *Dispatch) Rules() uint {
	var n = uint(len(d.Chain))
	//
	for _, cs := range d.Functors {
		n += uint(len(cs))
	}
	//
	return n
}

// ControlBlock records the outcome of resolving one term: for each predicate
// of its dispatch type, the best cost found and the rule achieving it (or -1
// if no rule applies).
type ControlBlock struct {
	Best   []int64
	Chosen []int
	// Blocks of those children which were resolved first.
	Children []*ControlBlock
	// Number of predicate evaluations performed during resolution.
	Rounds uint
	// readers[p] lists those predicates whose scoring read the cost of p on
	// this node.
	readers [][]uint
}

// Record that scoring predicate q read the cost of predicate p on this node.
func (b *ControlBlock) read(p uint, q uint) {
	if b.readers == nil {
		b.readers = make([][]uint, len(b.Best))
	}
	//
	if !slices.Contains(b.readers[p], q) {
		b.readers[p] = append(b.readers[p], q)
	}
}

// The predicate being scored on a node whose resolution is in progress.
type scoring struct {
	block     *ControlBlock
	predicate uint
}

// Install registers a dispatch type.
func (m *Machine) Install(d *Dispatch) {
	m.tables[d.Type] = d
}

// CostOf returns the best cost of a given predicate on a given term, resolving
// the term if this has not already been done.  When the term is the node
// currently being scored, the predicate being scored becomes a dependent of
// the given predicate, however the term was reached.
func (m *Machine) CostOf(table string, predicate uint, term Value) int64 {
	block := m.Resolve(table, term)
	//
	if n := len(m.scoring); n > 0 && m.scoring[n-1].block == block {
		block.read(predicate, m.scoring[n-1].predicate)
	}
	//
	return block.Best[predicate]
}

// Chosen returns the rule chosen for a given predicate on a given term, or -1
// if no rule applies.
func (m *Machine) Chosen(table string, predicate uint, term Value) int64 {
	return int64(m.Resolve(table, term).Chosen[predicate])
}

// Resolve determines, for every predicate of a dispatch type, the cheapest rule
// applicable to a given term.  Dispatch-typed children are resolved first.
// Then, predicates are evaluated from a worklist: each candidate is scored, and
// a candidate is adopted when its cost is strictly lower (or equal, but with
// the rule declared earlier).  When the best cost of a predicate decreases, its
// dependents are queued for evaluation again.  Since costs are never negative
// and only ever decrease, this reaches a fixed point.  The resulting control
// block is cached against the term until the term itself is rolled back.
func (m *Machine) Resolve(table string, term Value) *ControlBlock {
	var d = m.tables[table]
	//
	if d == nil {
		panic(&UndefinedError{"dispatch " + table})
	} else if term.kind == TermKind {
		if block, ok := m.blocks[term.Index()]; ok {
			return block
		}
	}
	//
	block := newControlBlock(len(d.Predicates))
	functor := m.Tag(term)
	//
	for _, child := range d.Children[functor] {
		block.Children = append(block.Children, m.Resolve(child.Table, m.Field(term, child.Field)))
	}
	// Make the block visible, so that cost expressions referring to this same
	// node observe the current best costs.
	if term.kind == TermKind {
		m.blocks[term.Index()] = block
		m.highest = max(m.highest, term.Index())
	}
	//
	m.relax(d, block, functor, term)
	//
	return block
}

func (m *Machine) relax(d *Dispatch, block *ControlBlock, functor int64, term Value) {
	var (
		candidates = d.Functors[functor]
		n          = uint(len(d.Predicates))
		bound      = n*d.Rules() + n
		queued     = make([]bool, n)
		worklist   = make([]uint, n)
	)
	//
	for p := range worklist {
		worklist[p] = uint(p)
		queued[p] = true
	}
	//
	for len(worklist) > 0 {
		if block.Rounds == bound {
			log.Errorf("resolution of %s did not converge within %d rounds", d.Type, bound)
			return
		}
		//
		p := worklist[0]
		worklist = worklist[1:]
		queued[p] = false
		block.Rounds++
		//
		previous := block.Best[p]
		// Functor-specific candidates first, then chain rules.
		m.evaluate(block, p, candidates, term)
		m.evaluate(block, p, d.Chain, term)
		//
		if block.Best[p] < previous {
			var dependents = d.Dependents[p]
			//
			if block.readers != nil {
				dependents = append(slices.Clone(dependents), block.readers[p]...)
			}
			//
			for _, q := range dependents {
				if !queued[q] {
					queued[q] = true
					worklist = append(worklist, q)
				}
			}
		}
	}
}

func (m *Machine) evaluate(block *ControlBlock, p uint, candidates []Candidate, term Value) {
	for _, c := range candidates {
		if c.Predicate != p {
			continue
		}
		//
		mark := m.Checkpoint()
		results, ok := m.score(block, c, term)
		// Scoring must not leave anything behind.
		m.Rollback(mark)
		//
		if !ok {
			continue
		}
		// An infinite cost means the rule relies on something inapplicable.
		cost := Clamp(results[0].Int())
		chosen := block.Chosen[p]
		//
		if cost == Infinity {
			continue
		} else if chosen < 0 || cost < block.Best[p] || (cost == block.Best[p] && int(c.Rule) < chosen) {
			block.Best[p] = cost
			block.Chosen[p] = int(c.Rule)
		}
	}
}

func (m *Machine) score(block *ControlBlock, c Candidate, term Value) ([]Value, bool) {
	m.scoring = append(m.scoring, scoring{block, c.Predicate})
	//
	defer func() { m.scoring = m.scoring[:len(m.scoring)-1] }()
	//
	return c.Score(m, term)
}

func newControlBlock(n int) *ControlBlock {
	block := &ControlBlock{Best: make([]int64, n), Chosen: make([]int, n)}
	//
	for i := range n {
		block.Best[i] = Infinity
		block.Chosen[i] = -1
	}
	//
	return block
}
