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
package compiler

import (
	"fmt"
	"slices"

	"github.com/gentle-lang/gentle/pkg/ast"
	"github.com/gentle-lang/gentle/pkg/config"
	"github.com/gentle-lang/gentle/pkg/env"
	"github.com/gentle-lang/gentle/pkg/ir"
	log "github.com/sirupsen/logrus"
)

// ChoiceTypeIndex gathers the choice predicates sharing a primary argument
// type.  Their rules are indexed by the functor of their primary pattern, or
// placed in the chain when that pattern is a variable.
type ChoiceTypeIndex struct {
	Type       *env.SumType
	Predicates []*env.PredicateMeaning
	Functors   map[int64][]*ChoiceRule
	Chain      []*ChoiceRule
	// Dependents[p] holds those predicates whose cost expressions refer to the
	// cost of p on the same node.
	Dependents [][]uint
}

// ChoiceRule is one rule of a choice predicate.  Rules which could not be
// indexed (because they are malformed) have no score procedure, and are never
// chosen.
type ChoiceRule struct {
	// Position of the rule's predicate within its index.
	Predicate uint
	// Position of the rule within its predicate.
	Rule uint
	Decl *ast.Rule
	// Functor of the primary pattern (0 for chain rules).
	Functor int64
	Indexed bool
	Score   string
	Apply   string
}

// Position returns the position of a predicate within this index.
func (p *ChoiceTypeIndex) Position(pred *env.PredicateMeaning) (uint, bool) {
	if i := slices.Index(p.Predicates, pred); i >= 0 {
		return uint(i), true
	}
	//
	return 0, false
}

// Record that the cost of one predicate depends on that of another.
func (p *ChoiceTypeIndex) depend(on uint, dependent uint) {
	deps := p.Dependents[on]
	//
	if i, found := slices.BinarySearch(deps, dependent); !found {
		p.Dependents[on] = slices.Insert(deps, i, dependent)
	}
}

// Construct the dispatch table for this index.  Children are those fields
// whose types are themselves indexed.
func (p *ChoiceTypeIndex) table(indices map[*env.SumType]*ChoiceTypeIndex) *ir.DispatchTable {
	var table = &ir.DispatchTable{Type: p.Type.Name()}
	//
	for _, pred := range p.Predicates {
		table.Predicates = append(table.Predicates, pred.Name)
	}
	//
	for _, f := range p.Type.Functors {
		entry := &ir.FunctorEntry{Functor: f.Code, Name: f.Name}
		//
		for _, rule := range p.Functors[f.Code] {
			entry.Candidates = append(entry.Candidates, rule.candidate())
		}
		//
		for i, field := range f.Fields {
			if t, ok := field.(*env.SumType); ok && indices[t] != nil {
				entry.Children = append(entry.Children, ir.Child{Field: uint(i), Table: t.Name()})
			}
		}
		//
		table.Functors = append(table.Functors, entry)
	}
	//
	for _, rule := range p.Chain {
		table.Chain = append(table.Chain, rule.candidate())
	}
	//
	for _, deps := range p.Dependents {
		table.Dependents = append(table.Dependents, slices.Clone(deps))
	}
	//
	return table
}

func (r *ChoiceRule) candidate() ir.Candidate {
	return ir.Candidate{Predicate: r.Predicate, Rule: r.Rule, Score: r.Score}
}

// ===================================================================
// Indexing
// ===================================================================

// Index the rules of every choice predicate, prior to compiling anything, such
// that cost references can be resolved.  Choice predicates which violate the
// configured restrictions are reported, then compiled as ordinary predicates.
func (c *Compiler) indexChoices() {
	for _, p := range c.env.Predicates() {
		if p.Class != ast.Choice || p.External {
			continue
		}
		//
		primary, ok := c.validChoice(p)
		if !ok {
			continue
		}
		//
		index := c.index[primary]
		if index == nil {
			index = &ChoiceTypeIndex{Type: primary, Functors: make(map[int64][]*ChoiceRule)}
			c.index[primary] = index
			c.choices = append(c.choices, index)
		}
		//
		pos := uint(len(index.Predicates))
		index.Predicates = append(index.Predicates, p)
		index.Dependents = append(index.Dependents, nil)
		rules := make([]*ChoiceRule, len(p.Rules))
		//
		for i, rule := range p.Rules {
			rules[i] = c.indexRule(index, pos, p, i, rule)
		}
		//
		c.choiceRules[p] = rules
		log.Debugf("indexed choice %s on %s (%d rules)", p.Name, primary.Name(), len(rules))
	}
}

// Check a choice predicate against the configured restrictions, returning its
// primary type.
func (c *Compiler) validChoice(p *env.PredicateMeaning) (*env.SumType, bool) {
	if len(p.In) == 0 {
		c.errorf(p.Decl, "choice %s requires an input", p.Name)
		return nil, false
	} else if c.rules.SingleInput && len(p.In) != 1 {
		c.errorf(p.Decl, "choice %s requires exactly one input", p.Name)
		return nil, false
	}
	//
	primary, ok := p.In[0].(*env.SumType)
	//
	switch {
	case p.In[0] == env.ErrorType:
		return nil, false
	case !ok:
		c.errorf(p.Decl, "primary argument of choice %s has type %s, which is not a sum type", p.Name,
			p.In[0].Name())
	case !c.rules.PrimaryAllowed(primary.Name()):
		c.errorf(p.Decl, "type %s not permitted as primary argument of choice %s", primary.Name(), p.Name)
	default:
		return primary, true
	}
	//
	return nil, false
}

func (c *Compiler) indexRule(index *ChoiceTypeIndex, pos uint, p *env.PredicateMeaning, i int,
	rule *ast.Rule) *ChoiceRule {
	//
	var (
		name = fmt.Sprintf("%s_%d", p.Name, i)
		cr   = &ChoiceRule{Predicate: pos, Rule: uint(i), Decl: rule, Apply: c.env.AllocateCodeName("a_", name)}
	)
	//
	if rule.Cost == nil && c.rules.RequireCost {
		c.errorf(rule, "rule of choice %s has no cost", p.Name)
	}
	// Missing inputs are reported when the rule is compiled.
	if len(rule.In) == 0 {
		return cr
	}
	//
	switch pattern := unwrapNamed(rule.In[0]).(type) {
	case *ast.Var, *ast.Wildcard:
		index.Chain = append(index.Chain, cr)
	case *ast.Apply:
		functor, msg := c.lookupFunctor(pattern, index.Type)
		// Unknown functors are reported when the rule is compiled.
		if msg != "" || functor.Owner != index.Type {
			return cr
		}
		//
		if c.rules.ShallowPatterns {
			for _, arg := range pattern.Args {
				switch arg.(type) {
				case *ast.Var, *ast.Wildcard:
				default:
					c.errorf(arg, "nested pattern in primary argument of choice %s", p.Name)
				}
			}
		}
		//
		cr.Functor = functor.Code
		index.Functors[functor.Code] = append(index.Functors[functor.Code], cr)
	default:
		c.errorf(rule.In[0], "primary argument of choice %s must be a variable or functor", p.Name)
		return cr
	}
	//
	cr.Indexed = true
	cr.Score = c.env.AllocateCodeName("s_", name)
	//
	return cr
}

// Look up the index and position of a choice predicate, as needed by a cost
// reference.
func (c *Compiler) choicePredicate(node ast.Node, name string) (*ChoiceTypeIndex, uint, bool) {
	var p = c.predicate(node, name)
	//
	if p == nil {
		return nil, 0, false
	} else if p.Class != ast.Choice {
		c.errorf(node, "%s is not a choice predicate", name)
		return nil, 0, false
	} else if c.choiceRules[p] == nil {
		c.errorf(node, "choice %s has no dispatch table", name)
		return nil, 0, false
	}
	//
	index := c.index[p.In[0].(*env.SumType)]
	pos, _ := index.Position(p)
	//
	return index, pos, true
}

// Check whether ordinary predicates match against the functors of a choice
// type, which is reported as configured.
func (c *Compiler) checkOverlap() {
	if c.rules.OrderedOverlap == config.OverlapAllow {
		return
	}
	//
	for _, p := range c.env.Predicates() {
		if p.Class == ast.Choice || len(p.In) == 0 {
			continue
		}
		//
		t, ok := p.In[0].(*env.SumType)
		if !ok || c.index[t] == nil {
			continue
		}
		//
		for _, rule := range p.Rules {
			if len(rule.In) == 0 {
				continue
			} else if pattern, ok := unwrapNamed(rule.In[0]).(*ast.Apply); ok {
				msg := fmt.Sprintf("%s %s matches functor %s of choice type %s", p.Class, p.Name,
					pattern.QualifiedName(), t.Name())
				//
				if c.rules.OrderedOverlap == config.OverlapError {
					c.errorf(pattern, "%s", msg)
				} else {
					c.warnf(pattern, "%s", msg)
				}
				//
				break
			}
		}
	}
}

// ===================================================================
// Generation
// ===================================================================

// Compile a choice predicate.  Each indexed rule has a score procedure, which
// matches the primary argument, executes the guard and computes the cost.
// Each rule also has an apply procedure, executing the rule in full.  The
// predicate's own procedure resolves the primary argument, and applies the
// chosen rule (failing if none applies).
func (c *Compiler) compileChoice(p *env.PredicateMeaning) {
	var (
		rules  = c.choiceRules[p]
		index  = c.index[p.In[0].(*env.SumType)]
		pos, _ = index.Position(p)
	)
	//
	if len(rules) == 0 {
		c.errorf(p.Decl, "choice %s has no rules", p.Name)
	}
	//
	ctx := c.beginProc(p.CodeName, p, ir.Main, len(p.In), len(p.Out))
	chosen := c.temp()
	fail := ctx.newLabel()
	ctx.emit(&ir.Chosen{Dst: chosen, Table: index.Type.Name(), Predicate: pos, Src: 0})
	//
	for _, rule := range rules {
		if !rule.Indexed {
			continue
		}
		//
		next := ctx.newLabel()
		ctx.emit(&ir.TestConst{Src: chosen, Value: ir.IntLiteral(int64(rule.Rule)), Fail: next})
		//
		insn := &ir.Call{Proc: rule.Apply, Predicate: p.Name, Mode: ir.FailJump, Fail: fail}
		//
		for i := range p.In {
			insn.Args = append(insn.Args, ir.Reg(i))
		}
		//
		for range p.Out {
			insn.Results = append(insn.Results, c.temp())
		}
		//
		ctx.emit(insn)
		ctx.emit(&ir.Return{Results: insn.Results})
		ctx.place(next)
	}
	//
	ctx.place(fail)
	ctx.emit(&ir.Fail{})
	c.endProc(ctx)
	//
	for _, rule := range rules {
		if rule.Indexed {
			c.compileScore(p, index, pos, rule)
		}
		//
		c.compileApply(p, rule)
	}
	//
	log.Debugf("compiled choice %s (%d rules)", p.Name, len(rules))
}

// Compile the score procedure of a choice rule.  Only the primary argument is
// available, and only the guard of the body is executed.
func (c *Compiler) compileScore(p *env.PredicateMeaning, index *ChoiceTypeIndex, pos uint, rule *ChoiceRule) {
	var (
		ctx     = c.beginProc(rule.Score, p, ir.Score, 1, 1)
		primary = rule.Decl.In[0]
		cost    ir.Reg
	)
	//
	ctx.proc.Rule = rule.Rule
	ctx.fail = ctx.newLabel()
	c.env.PushScope()
	c.match(ctx, 0, primary, index.Type)
	c.members(ctx, guard(c.env, rule.Decl.Body))
	//
	if rule.Decl.Cost == nil {
		cost = c.constant(ctx, ir.IntLiteral(0))
	} else {
		ctx.choice = &costContext{index: index, predicate: pos}
		//
		if local := c.env.LookupLocal(wholeName(primary)); local.HasValue() {
			ctx.choice.self, ctx.choice.hasSelf = ir.Reg(local.Unwrap().Slot), true
		}
		//
		cost = c.build(ctx, rule.Decl.Cost, env.INT)
		ctx.choice = nil
	}
	//
	ctx.emit(&ir.Return{Results: []ir.Reg{cost}})
	ctx.place(ctx.fail)
	ctx.emit(&ir.Fail{})
	c.env.PopScope()
	c.endProc(ctx)
}

// Compile the apply procedure of a choice rule.
func (c *Compiler) compileApply(p *env.PredicateMeaning, rule *ChoiceRule) {
	var ctx = c.beginProc(rule.Apply, p, ir.Apply, len(p.In), len(p.Out))
	//
	ctx.proc.Rule = rule.Rule
	c.compileRule(ctx, p, rule.Decl)
	ctx.emit(&ir.Fail{})
	c.endProc(ctx)
}

// Determine the guard of a rule body: the longest prefix of members which only
// inspect state, or call conditions.
func guard(environment *env.Environment, body []ast.Member) []ast.Member {
	for i, member := range body {
		switch m := member.(type) {
		case *ast.Where, *ast.GlobalGet, *ast.TableGet:
			continue
		case *ast.Call:
			if p := environment.LookupGlobal(m.Predicate); p.HasValue() {
				if pm, ok := p.Unwrap().(*env.PredicateMeaning); ok && pm.Class == ast.Condition {
					continue
				}
			}
		}
		//
		return body[:i]
	}
	//
	return body
}

// Name bound to the whole of a pattern, if any.
func wholeName(pattern ast.Term) string {
	switch p := pattern.(type) {
	case *ast.Var:
		return p.Name
	case *ast.Named:
		return p.Name
	}
	//
	return ""
}

func unwrapNamed(pattern ast.Term) ast.Term {
	for {
		named, ok := pattern.(*ast.Named)
		if !ok {
			return pattern
		}
		//
		pattern = named.Pattern
	}
}
