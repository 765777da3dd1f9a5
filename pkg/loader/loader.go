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
// Package loader reads declarations written as S-expressions.  For example:
//
//	(type Shape (Circle INT) (Square INT))
//	(action area (Shape) (INT)
//	  (rule ((Circle R)) ((* R R)))
//	  (rule ((Square S)) ((* S S))))
//
// Within terms, symbols starting with an uppercase letter are variables, "_" is
// a wildcard, and other symbols are functors without arguments.  A clause
// (root MEMBER...) gives the entry point of a program.
package loader

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gentle-lang/gentle/pkg/ast"
	"github.com/gentle-lang/gentle/pkg/util/source"
	"github.com/gentle-lang/gentle/pkg/util/source/sexp"
)

// RootName is the name of the action declared by a root clause.
const RootName = "root"

// Load reads the declarations from a set of source files.  Source maps are
// returned for every declaration, rule, member and term, such that diagnostics
// can be reported against the original text.
func Load(files ...*source.File) ([]ast.Declaration, *source.Maps[ast.Node], []source.SyntaxError) {
	var (
		decls  []ast.Declaration
		srcmap = source.NewSourceMaps[ast.Node]()
		errors []source.SyntaxError
	)
	//
	for _, file := range files {
		fdecls, fmap, errs := loadFile(file)
		decls = append(decls, fdecls...)
		errors = append(errors, errs...)
		//
		if fmap != nil {
			srcmap.Join(fmap)
		}
	}
	//
	return decls, srcmap, errors
}

// LoadString reads declarations from a string, as needed for testing.
func LoadString(name string, text string) ([]ast.Declaration, *source.Maps[ast.Node], []source.SyntaxError) {
	return Load(source.NewSourceFile(name, []byte(text)))
}

func loadFile(file *source.File) ([]ast.Declaration, *source.Map[ast.Node], []source.SyntaxError) {
	var decls []ast.Declaration
	//
	terms, sexps, err := sexp.ParseAll(file)
	if err != nil {
		return nil, nil, []source.SyntaxError{*err}
	}
	//
	p := &loader{
		srcfile:    file,
		sexps:      sexps,
		nodes:      source.NewSourceMap[ast.Node](file),
		translator: newTermTranslator(file, sexps),
	}
	//
	for _, s := range terms {
		if decl := p.declaration(s); decl != nil {
			decls = append(decls, decl)
		}
	}
	//
	source.JoinMaps(p.nodes, p.translator.SourceMap(), func(t ast.Term) ast.Node { return t })
	//
	return decls, p.nodes, p.errors
}

type loader struct {
	srcfile *source.File
	// Spans of the S-expressions being translated
	sexps *source.Map[sexp.SExp]
	// Spans of the declarations, rules and members constructed (though not
	// terms, which are mapped by the translator).
	nodes      *source.Map[ast.Node]
	translator *sexp.Translator[ast.Term]
	errors     []source.SyntaxError
	// Whether a root clause has been seen.
	root bool
}

func (p *loader) errorf(s sexp.SExp, format string, args ...any) {
	p.errors = append(p.errors, *p.srcfile.SyntaxError(p.sexps.Get(s), fmt.Sprintf(format, args...)))
}

// Record the span of a constructed node.
func (p *loader) mapped(node ast.Node, s sexp.SExp) {
	p.nodes.Put(node, p.sexps.Get(s))
}

// ===================================================================
// Declarations
// ===================================================================

func (p *loader) declaration(s sexp.SExp) ast.Declaration {
	var (
		list = s.AsList()
		decl ast.Declaration
	)
	//
	if list != nil && list.Head() == "root" {
		return p.rootDecl(s, list)
	} else if list == nil || list.Len() < 2 || list.Get(1).AsSymbol() == nil {
		p.errorf(s, "invalid declaration")
		return nil
	}
	//
	name := list.Get(1).AsSymbol().Value
	//
	switch head := list.Head(); head {
	case "type":
		decl = p.typeDecl(name, list.Elements[2:])
	case "var":
		if list.Len() != 3 || list.Get(2).AsSymbol() == nil {
			p.errorf(s, "expected (var NAME TYPE)")
			return nil
		}
		//
		decl = &ast.VarDecl{Name: name, Type: list.Get(2).AsSymbol().Value}
	case "table":
		decl = &ast.TableDecl{Name: name, Fields: p.fields(list.Elements[2:])}
	case "extern":
		class, ok := ast.ParseClass(name)
		//
		if !ok || list.Len() != 5 || list.Get(2).AsSymbol() == nil {
			p.errorf(s, "expected (extern CLASS NAME (INPUTS) (OUTPUTS))")
			return nil
		}
		//
		decl = p.predicateDecl(list, class, list.Get(2).AsSymbol().Value, list.Elements[3:])
		decl.(*ast.PredicateDecl).External = true
	default:
		class, ok := ast.ParseClass(head)
		//
		if !ok || list.Len() < 4 {
			p.errorf(s, "unknown declaration %s", head)
			return nil
		}
		//
		decl = p.predicateDecl(list, class, name, list.Elements[2:])
	}
	//
	if decl != nil {
		p.mapped(decl, s)
	}
	//
	return decl
}

// The root clause is an action named root, with no arguments and a single
// rule.  At most one is permitted per file.
func (p *loader) rootDecl(s sexp.SExp, list *sexp.List) ast.Declaration {
	if p.root {
		p.errorf(s, "duplicate root clause")
		return nil
	}
	//
	p.root = true
	rule := &ast.Rule{Body: p.members(list.Elements[1:])}
	decl := &ast.PredicateDecl{Name: RootName, Class: ast.Action, Rules: []*ast.Rule{rule}}
	p.mapped(rule, s)
	p.mapped(decl, s)
	//
	return decl
}

func (p *loader) typeDecl(name string, functors []sexp.SExp) *ast.TypeDecl {
	var decl = &ast.TypeDecl{Name: name}
	//
	for _, s := range functors {
		var functor *ast.FunctorDecl
		//
		if sym := s.AsSymbol(); sym != nil {
			functor = &ast.FunctorDecl{Name: sym.Value}
		} else if head := s.AsList().Head(); head != "" {
			functor = &ast.FunctorDecl{Name: head, Fields: p.fields(s.AsList().Elements[1:])}
		} else {
			p.errorf(s, "invalid functor")
			continue
		}
		//
		p.mapped(functor, s)
		decl.Functors = append(decl.Functors, functor)
	}
	//
	return decl
}

// Fields are either type names, or (name type) pairs.
func (p *loader) fields(elements []sexp.SExp) []*ast.Field {
	var fields []*ast.Field
	//
	for _, s := range elements {
		var field *ast.Field
		//
		if sym := s.AsSymbol(); sym != nil {
			field = &ast.Field{Type: sym.Value}
		} else if l := s.AsList(); l.Len() == 2 && l.Get(0).AsSymbol() != nil && l.Get(1).AsSymbol() != nil {
			field = &ast.Field{Name: l.Get(0).AsSymbol().Value, Type: l.Get(1).AsSymbol().Value}
		} else {
			p.errorf(s, "invalid field")
			continue
		}
		//
		p.mapped(field, s)
		fields = append(fields, field)
	}
	//
	return fields
}

// Translate the remainder of a predicate declaration: its inputs, outputs and
// rules.
func (p *loader) predicateDecl(s sexp.SExp, class ast.Class, name string, rest []sexp.SExp) *ast.PredicateDecl {
	var decl = &ast.PredicateDecl{Name: name, Class: class}
	//
	if rest[0].AsList() == nil || rest[1].AsList() == nil {
		p.errorf(s, "expected input and output lists for %s", name)
		return decl
	}
	//
	decl.In = p.fields(rest[0].AsList().Elements)
	decl.Out = p.fields(rest[1].AsList().Elements)
	//
	for _, r := range rest[2:] {
		if rule := p.rule(r); rule != nil {
			decl.Rules = append(decl.Rules, rule)
		}
	}
	//
	return decl
}

// ===================================================================
// Rules
// ===================================================================

func (p *loader) rule(s sexp.SExp) *ast.Rule {
	var list = s.AsList()
	//
	if list == nil || list.Head() != "rule" || list.Len() < 3 || list.Get(1).AsList() == nil ||
		list.Get(2).AsList() == nil {
		p.errorf(s, "expected (rule (INPUTS) (OUTPUTS) MEMBER...)")
		return nil
	}
	//
	rule := &ast.Rule{In: p.terms(list.Get(1).AsList().Elements), Out: p.terms(list.Get(2).AsList().Elements)}
	body := list.Elements[3:]
	// Trailing cost
	if n := len(body); n > 0 {
		if l := body[n-1].AsList(); l != nil && l.Head() == "cost" && l.Len() == 2 {
			rule.Cost = p.term(l.Get(1))
			body = body[:n-1]
		}
	}
	//
	rule.Body = p.members(body)
	p.mapped(rule, s)
	//
	return rule
}

func (p *loader) members(elements []sexp.SExp) []ast.Member {
	var members []ast.Member
	//
	for _, s := range elements {
		if m := p.member(s); m != nil {
			p.mapped(m, s)
			members = append(members, m)
		}
	}
	//
	return members
}

func (p *loader) member(s sexp.SExp) ast.Member {
	var list = s.AsList()
	//
	if list == nil || list.Head() == "" {
		p.errorf(s, "invalid member")
		return nil
	}
	//
	args := list.Elements[1:]
	//
	switch head := list.Head(); {
	case head == "call" && (len(args) == 2 || len(args) == 3) && args[0].AsSymbol() != nil && args[1].AsList() != nil:
		call := &ast.Call{Predicate: args[0].AsSymbol().Value, In: p.terms(args[1].AsList().Elements)}
		//
		if len(args) == 3 {
			if args[2].AsList() == nil {
				break
			}
			//
			call.Out = p.terms(args[2].AsList().Elements)
		}
		//
		return call
	case head == "where" && len(args) == 2:
		return &ast.Where{Expr: p.term(args[0]), Pattern: p.term(args[1])}
	case head == "get" && len(args) == 2 && args[0].AsSymbol() != nil:
		return &ast.GlobalGet{Var: args[0].AsSymbol().Value, Pattern: p.term(args[1])}
	case head == "set" && len(args) == 2 && args[0].AsSymbol() != nil:
		return &ast.GlobalSet{Var: args[0].AsSymbol().Value, Expr: p.term(args[1])}
	case head == "new" && len(args) == 2 && args[0].AsSymbol() != nil:
		return &ast.TableNew{Table: args[0].AsSymbol().Value, Pattern: p.term(args[1])}
	case head == "read" && len(args) == 3 && args[1].AsSymbol() != nil:
		return &ast.TableGet{Key: p.term(args[0]), Field: args[1].AsSymbol().Value, Pattern: p.term(args[2])}
	case head == "write" && len(args) == 3 && args[1].AsSymbol() != nil:
		return &ast.TableSet{Key: p.term(args[0]), Field: args[1].AsSymbol().Value, Expr: p.term(args[2])}
	case head == "case":
		return p.caseMember(args)
	case head == "loop":
		return p.loopMember(args)
	}
	//
	p.errorf(s, "invalid %s member", list.Head())
	//
	return nil
}

func (p *loader) caseMember(args []sexp.SExp) ast.Member {
	var member = &ast.Case{}
	//
	for _, s := range args {
		if s.AsList() == nil {
			p.errorf(s, "expected list of members")
			continue
		}
		//
		alt := &ast.Alternative{Body: p.members(s.AsList().Elements)}
		p.mapped(alt, s)
		member.Alternatives = append(member.Alternatives, alt)
	}
	//
	return member
}

func (p *loader) loopMember(args []sexp.SExp) ast.Member {
	var member = &ast.Loop{}
	//
	if len(args) > 0 && args[0].AsSymbol() != nil {
		n, err := strconv.ParseUint(args[0].AsSymbol().Value, 10, 32)
		//
		if err != nil {
			p.errorf(args[0], "invalid loop bound")
		}
		//
		member.Max = uint(n)
		args = args[1:]
	}
	//
	member.Body = p.members(args)
	//
	return member
}

// ===================================================================
// Terms
// ===================================================================

func (p *loader) terms(elements []sexp.SExp) []ast.Term {
	var terms = make([]ast.Term, len(elements))
	//
	for i, s := range elements {
		terms[i] = p.term(s)
	}
	//
	return terms
}

// Translate a term, substituting a wildcard if it is malformed.
func (p *loader) term(s sexp.SExp) ast.Term {
	term, errs := p.translator.Translate(s)
	//
	if len(errs) > 0 {
		p.errors = append(p.errors, errs...)
		return &ast.Wildcard{}
	}
	//
	return term
}

func newTermTranslator(file *source.File, sexps *source.Map[sexp.SExp]) *sexp.Translator[ast.Term] {
	t := sexp.NewTranslator[ast.Term](file, sexps)
	//
	t.AddSymbolRule(symbolTerm)
	//
	for i, op := range ast.Ops {
		t.AddRecursiveListRule(op, binaryTerm(ast.Op(i)))
	}
	//
	t.AddListRule(":", func(l *sexp.List) (ast.Term, []source.SyntaxError) {
		if l.Len() != 3 || !isVariable(l.Get(1)) {
			return nil, t.SyntaxErrors(l, "expected (: VAR PATTERN)")
		}
		//
		pattern, errs := t.Translate(l.Get(2))
		if len(errs) > 0 {
			return nil, errs
		}
		//
		return &ast.Named{Name: l.Get(1).AsSymbol().Value, Pattern: pattern}, nil
	})
	//
	t.AddListRule("cost", func(l *sexp.List) (ast.Term, []source.SyntaxError) {
		if l.Len() != 3 || l.Get(1).AsSymbol() == nil || !isVariable(l.Get(2)) {
			return nil, t.SyntaxErrors(l, "expected (cost PREDICATE VAR)")
		}
		//
		arg, errs := t.Translate(l.Get(2))
		if len(errs) > 0 {
			return nil, errs
		}
		//
		return &ast.CostRef{Predicate: l.Get(1).AsSymbol().Value, Arg: arg.(*ast.Var)}, nil
	})
	//
	t.AddDefaultRecursiveListRule(func(head string, args []ast.Term) (ast.Term, error) {
		return applyTerm(head, args), nil
	})
	//
	return t
}

func symbolTerm(s *sexp.Symbol) (ast.Term, bool, error) {
	if s.Quoted {
		return ast.NewString(s.Value), true, nil
	} else if n, err := strconv.ParseInt(s.Value, 10, 64); err == nil {
		return ast.NewInt(n), true, nil
	} else if s.Value == "_" || isVariable(s) {
		return ast.NewVar(s.Value), true, nil
	}
	//
	return applyTerm(s.Value, nil), true, nil
}

func binaryTerm(op ast.Op) sexp.RecursiveRule[ast.Term] {
	return func(head string, args []ast.Term) (ast.Term, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("operator %s expects two arguments", head)
		}
		//
		return &ast.Binary{Op: op, Left: args[0], Right: args[1]}, nil
	}
}

// Construct a functor application, splitting any qualification.
func applyTerm(name string, args []ast.Term) ast.Term {
	if i := strings.IndexByte(name, '.'); i > 0 {
		return &ast.Apply{Qualifier: name[:i], Functor: name[i+1:], Args: args}
	}
	//
	return ast.NewApply(name, args...)
}

func isVariable(s sexp.SExp) bool {
	if sym := s.AsSymbol(); sym != nil && !sym.Quoted {
		r, _ := utf8.DecodeRuneInString(sym.Value)
		return unicode.IsUpper(r)
	}
	//
	return false
}
