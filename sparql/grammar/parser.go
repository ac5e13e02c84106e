// Copyright 2015 Google Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package grammar implements the recursive descent parser that turns query
// text into the typed representation of package semantic.
package grammar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nounverb/cnvq/sparql/lexer"
	"github.com/nounverb/cnvq/sparql/semantic"
	"github.com/nounverb/cnvq/triple"
	"github.com/nounverb/cnvq/triple/literal"
	"github.com/nounverb/cnvq/triple/namespace"
)

// ParseError is returned for malformed queries.
type ParseError struct {
	// Position is the byte offset of the offending token.
	Position int
	Expected string
	Found    string
	// Err holds the underlying cause, if any.
	Err error
}

// Error returns a readable version of the error.
func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse error at position %d: expected %s, found %s", e.Position, e.Expected, e.Found)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Option configures the parser.
type Option func(*parser)

// WithNamespaces provides the prefixes available to the query in addition to
// the ones it declares.
func WithNamespaces(t *namespace.Table) Option {
	return func(p *parser) {
		p.base = t
	}
}

type parser struct {
	l     *LLk
	base  *namespace.Table
	local *namespace.Table
}

// Parse parses the query text. It never panics; any malformed input is
// reported as a *ParseError.
func Parse(text string, opts ...Option) (q *semantic.Query, err error) {
	p := &parser{
		l:     NewLLk(text, 1),
		local: namespace.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	defer p.l.Drain()
	defer func() {
		if r := recover(); r != nil {
			q, err = nil, &ParseError{
				Position: p.l.Current().Pos,
				Expected: "well formed query",
				Found:    fmt.Sprint(r),
			}
		}
	}()
	return p.query()
}

// fail returns a parse error for the current token.
func (p *parser) fail(expected string) error {
	tkn := p.l.Current()
	return &ParseError{
		Position: tkn.Pos,
		Expected: expected,
		Found:    tkn.String(),
	}
}

// expect consumes the token or fails.
func (p *parser) expect(tt lexer.TokenType) error {
	if !p.l.Consume(tt) {
		return p.fail(fmt.Sprintf("%q", tt.String()))
	}
	return nil
}

// take consumes the current token returning a copy of it.
func (p *parser) take() lexer.Token {
	tkn := *p.l.Current()
	p.l.Consume(tkn.Type)
	return tkn
}

func (p *parser) query() (*semantic.Query, error) {
	for p.l.CanAccept(lexer.ItemPrefix) {
		if err := p.prefix(); err != nil {
			return nil, err
		}
	}
	if err := p.expect(lexer.ItemSelect); err != nil {
		return nil, err
	}
	q := &semantic.Query{}
	q.Distinct = p.l.Consume(lexer.ItemDistinct)
	if err := p.projection(q); err != nil {
		return nil, err
	}
	p.l.Consume(lexer.ItemWhere)
	g, err := p.group()
	if err != nil {
		return nil, err
	}
	q.Where = g
	if err := p.modifiers(q); err != nil {
		return nil, err
	}
	if !p.l.CanAccept(lexer.ItemEOF) {
		return nil, p.fail("end of query")
	}
	return q, nil
}

// prefix parses a PREFIX p: <iri> declaration.
func (p *parser) prefix() error {
	p.take()
	tkn := p.l.Current()
	if tkn.Type != lexer.ItemPrefixedName || !strings.HasSuffix(tkn.Text, ":") {
		return p.fail("prefix declaration such as 'cnv:'")
	}
	name := strings.TrimSuffix(p.take().Text, ":")
	if !p.l.CanAccept(lexer.ItemIRI) {
		return p.fail("namespace IRI")
	}
	iri := p.take()
	if err := p.local.Add(name, iriText(iri.Text)); err != nil {
		return &ParseError{Position: iri.Pos, Expected: "unique prefix declaration", Found: iri.Text, Err: err}
	}
	return nil
}

func iriText(s string) string {
	return strings.TrimSuffix(strings.TrimPrefix(s, "<"), ">")
}

// expand resolves a prefixed name against the query prefixes first and the
// base namespaces afterwards.
func (p *parser) expand(tkn lexer.Token) (triple.Value, error) {
	iri, err := p.local.Expand(tkn.Text)
	var upe *namespace.UnknownPrefixError
	if errors.As(err, &upe) && p.base != nil {
		iri, err = p.base.Expand(tkn.Text)
	}
	if err != nil {
		return triple.Value{}, &ParseError{Position: tkn.Pos, Expected: "declared prefix", Found: tkn.Text, Err: err}
	}
	return triple.NewURI(iri), nil
}

// variable consumes a variable token returning its name.
func (p *parser) variable() (string, error) {
	if !p.l.CanAccept(lexer.ItemVariable) {
		return "", p.fail("variable")
	}
	return p.take().Text[1:], nil
}

func (p *parser) projection(q *semantic.Query) error {
	if p.l.Consume(lexer.ItemStar) {
		q.Star = true
		return nil
	}
	for {
		switch {
		case p.l.CanAccept(lexer.ItemVariable):
			v, _ := p.variable()
			q.Projection = append(q.Projection, semantic.Projection{Var: v})
		case p.l.CanAccept(lexer.ItemLPar):
			a, err := p.aggregate()
			if err != nil {
				return err
			}
			q.Projection = append(q.Projection, semantic.Projection{Aggregate: a})
		default:
			if len(q.Projection) == 0 {
				return p.fail("projected variable, aggregate or '*'")
			}
			return nil
		}
	}
}

var aggregates = map[lexer.TokenType]semantic.AggregateFunc{
	lexer.ItemCount: semantic.Count,
	lexer.ItemSum:   semantic.Sum,
	lexer.ItemMin:   semantic.Min,
	lexer.ItemMax:   semantic.Max,
	lexer.ItemAvg:   semantic.Avg,
}

// aggregate parses (AGG([DISTINCT] ?x|*) AS ?alias).
func (p *parser) aggregate() (*semantic.Aggregate, error) {
	p.take()
	f, ok := aggregates[p.l.Current().Type]
	if !ok {
		return nil, p.fail("aggregate function")
	}
	p.take()
	a := &semantic.Aggregate{Func: f}
	if err := p.expect(lexer.ItemLPar); err != nil {
		return nil, err
	}
	a.Distinct = p.l.Consume(lexer.ItemDistinct)
	if p.l.CanAccept(lexer.ItemStar) && f == semantic.Count {
		p.take()
		a.Star = true
	} else {
		v, err := p.variable()
		if err != nil {
			return nil, err
		}
		a.Var = v
	}
	if err := p.expect(lexer.ItemRPar); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.ItemAs); err != nil {
		return nil, err
	}
	alias, err := p.variable()
	if err != nil {
		return nil, err
	}
	a.Alias = alias
	if err := p.expect(lexer.ItemRPar); err != nil {
		return nil, err
	}
	return a, nil
}

// group parses { ... }.
func (p *parser) group() (*semantic.GroupPattern, error) {
	if err := p.expect(lexer.ItemLBracket); err != nil {
		return nil, err
	}
	g := &semantic.GroupPattern{}
	for {
		switch p.l.Current().Type {
		case lexer.ItemRBracket:
			p.take()
			return g, nil
		case lexer.ItemOptional:
			p.take()
			og, err := p.group()
			if err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, &semantic.Optional{Pattern: og})
		case lexer.ItemFilter:
			p.take()
			e, err := p.constraint()
			if err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, &semantic.Filter{Expr: e})
		case lexer.ItemLBracket:
			sg, err := p.group()
			if err != nil {
				return nil, err
			}
			branches := []*semantic.GroupPattern{sg}
			for p.l.Consume(lexer.ItemUnion) {
				bg, err := p.group()
				if err != nil {
					return nil, err
				}
				branches = append(branches, bg)
			}
			if len(branches) == 1 {
				g.Elements = append(g.Elements, sg)
			} else {
				g.Elements = append(g.Elements, &semantic.Union{Branches: branches})
			}
		case lexer.ItemEOF, lexer.ItemError:
			return nil, p.fail("'}'")
		default:
			if err := p.triples(g); err != nil {
				return nil, err
			}
			if p.l.Consume(lexer.ItemDot) {
				continue
			}
			switch p.l.Current().Type {
			case lexer.ItemRBracket, lexer.ItemFilter, lexer.ItemOptional, lexer.ItemLBracket:
				continue
			}
			return nil, p.fail("'.' or '}'")
		}
		p.l.Consume(lexer.ItemDot)
	}
}

// triples parses a subject followed by its property list.
func (p *parser) triples(g *semantic.GroupPattern) error {
	s, err := p.term(false)
	if err != nil {
		return err
	}
	for {
		var (
			pred semantic.Term
			path semantic.Path
		)
		if p.l.CanAccept(lexer.ItemVariable) {
			v, _ := p.variable()
			pred = semantic.Variable(v)
		} else {
			pp, err := p.pathAlternative()
			if err != nil {
				return err
			}
			if d, ok := pp.(*semantic.DirectPath); ok {
				pred = semantic.Constant(d.Predicate)
			} else {
				path = pp
			}
		}
		for {
			o, err := p.term(true)
			if err != nil {
				return err
			}
			g.Elements = append(g.Elements, &semantic.TriplePattern{Subject: s, Predicate: pred, Path: path, Object: o})
			if !p.l.Consume(lexer.ItemComma) {
				break
			}
		}
		if !p.l.Consume(lexer.ItemSemicolon) {
			return nil
		}
		for p.l.Consume(lexer.ItemSemicolon) {
		}
		if p.l.CanAccept(lexer.ItemDot) || p.l.CanAccept(lexer.ItemRBracket) {
			return nil
		}
	}
}

// term parses a subject or object term. Literals are only valid as objects.
func (p *parser) term(object bool) (semantic.Term, error) {
	tkn := p.l.Current()
	switch tkn.Type {
	case lexer.ItemVariable:
		v, _ := p.variable()
		return semantic.Variable(v), nil
	case lexer.ItemBlankNode:
		// Blank nodes in patterns behave as non projectable variables.
		return semantic.Variable(p.take().Text), nil
	case lexer.ItemIRI:
		return semantic.Constant(triple.NewURI(iriText(p.take().Text))), nil
	case lexer.ItemPrefixedName:
		v, err := p.expand(p.take())
		if err != nil {
			return semantic.Term{}, err
		}
		return semantic.Constant(v), nil
	}
	if !object {
		return semantic.Term{}, p.fail("subject")
	}
	v, err := p.literal()
	if err != nil {
		return semantic.Term{}, err
	}
	return semantic.Constant(v), nil
}

// literal parses string, numeric and boolean literals.
func (p *parser) literal() (triple.Value, error) {
	tkn := *p.l.Current()
	switch tkn.Type {
	case lexer.ItemString:
		p.take()
		s, err := lexer.Unquote(tkn.Text)
		if err != nil {
			return triple.Value{}, &ParseError{Position: tkn.Pos, Expected: "valid string", Found: tkn.Text, Err: err}
		}
		if p.l.CanAccept(lexer.ItemLangTag) {
			return triple.NewLangLiteral(s, p.take().Text[1:]), nil
		}
		if p.l.Consume(lexer.ItemDatatype) {
			dt := p.l.Current()
			switch dt.Type {
			case lexer.ItemIRI:
				return triple.NewTypedLiteral(s, iriText(p.take().Text)), nil
			case lexer.ItemPrefixedName:
				v, err := p.expand(p.take())
				if err != nil {
					return triple.Value{}, err
				}
				return triple.NewTypedLiteral(s, v.Text), nil
			default:
				return triple.Value{}, p.fail("datatype IRI")
			}
		}
		return triple.NewLiteral(s), nil
	case lexer.ItemInteger:
		p.take()
		return triple.NewTypedLiteral(strings.TrimPrefix(tkn.Text, "+"), literal.XSDInteger), nil
	case lexer.ItemDecimal:
		p.take()
		if strings.ContainsAny(tkn.Text, "eE") {
			return triple.NewTypedLiteral(tkn.Text, literal.XSDDouble), nil
		}
		return triple.NewTypedLiteral(tkn.Text, literal.XSDDecimal), nil
	case lexer.ItemBoolean:
		p.take()
		return triple.NewBoolean(strings.EqualFold(tkn.Text, "true")), nil
	}
	return triple.Value{}, p.fail("RDF term")
}

// pathAlternative parses seq ('|' seq)*.
func (p *parser) pathAlternative() (semantic.Path, error) {
	left, err := p.pathSequence()
	if err != nil {
		return nil, err
	}
	for p.l.Consume(lexer.ItemPipe) {
		right, err := p.pathSequence()
		if err != nil {
			return nil, err
		}
		left = &semantic.AlternativePath{Left: left, Right: right}
	}
	return left, nil
}

// pathSequence parses elt ('/' elt)*.
func (p *parser) pathSequence() (semantic.Path, error) {
	left, err := p.pathElement()
	if err != nil {
		return nil, err
	}
	for p.l.Consume(lexer.ItemSlash) {
		right, err := p.pathElement()
		if err != nil {
			return nil, err
		}
		left = &semantic.SequencePath{Left: left, Right: right}
	}
	return left, nil
}

// pathElement parses ['^'] primary [modifier].
func (p *parser) pathElement() (semantic.Path, error) {
	inverse := p.l.Consume(lexer.ItemCaret)
	prim, err := p.pathPrimary()
	if err != nil {
		return nil, err
	}
	switch {
	case p.l.Consume(lexer.ItemStar):
		prim = &semantic.ZeroOrMorePath{Path: prim}
	case p.l.Consume(lexer.ItemPlus):
		prim = &semantic.OneOrMorePath{Path: prim}
	case p.l.Consume(lexer.ItemQuestion):
		prim = &semantic.ZeroOrOnePath{Path: prim}
	}
	if inverse {
		prim = &semantic.InversePath{Path: prim}
	}
	return prim, nil
}

// pathPrimary parses an IRI, 'a' or a parenthesized path.
func (p *parser) pathPrimary() (semantic.Path, error) {
	tkn := p.l.Current()
	switch tkn.Type {
	case lexer.ItemA:
		p.take()
		return &semantic.DirectPath{Predicate: triple.NewURI(namespace.RDFType)}, nil
	case lexer.ItemIRI:
		return &semantic.DirectPath{Predicate: triple.NewURI(iriText(p.take().Text))}, nil
	case lexer.ItemPrefixedName:
		v, err := p.expand(p.take())
		if err != nil {
			return nil, err
		}
		return &semantic.DirectPath{Predicate: v}, nil
	case lexer.ItemLPar:
		p.take()
		pp, err := p.pathAlternative()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.ItemRPar); err != nil {
			return nil, err
		}
		return pp, nil
	}
	return nil, p.fail("predicate or property path")
}

// constraint parses the expression following FILTER.
func (p *parser) constraint() (semantic.Expression, error) {
	if p.l.CanAccept(lexer.ItemLPar) {
		p.take()
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.ItemRPar); err != nil {
			return nil, err
		}
		return e, nil
	}
	if p.l.CanAccept(lexer.ItemFunction) {
		return p.call()
	}
	return nil, p.fail("'(' or built-in call")
}

// expression parses and ('||' and)*.
func (p *parser) expression() (semantic.Expression, error) {
	left, err := p.conjunction()
	if err != nil {
		return nil, err
	}
	for p.l.Consume(lexer.ItemOr) {
		right, err := p.conjunction()
		if err != nil {
			return nil, err
		}
		left = &semantic.OrExpr{Left: left, Right: right}
	}
	return left, nil
}

// conjunction parses rel ('&&' rel)*.
func (p *parser) conjunction() (semantic.Expression, error) {
	left, err := p.relational()
	if err != nil {
		return nil, err
	}
	for p.l.Consume(lexer.ItemAnd) {
		right, err := p.relational()
		if err != nil {
			return nil, err
		}
		left = &semantic.AndExpr{Left: left, Right: right}
	}
	return left, nil
}

var comparisons = map[lexer.TokenType]semantic.CompareOp{
	lexer.ItemEQ:  semantic.EQ,
	lexer.ItemNEQ: semantic.NEQ,
	lexer.ItemLT:  semantic.LT,
	lexer.ItemLTE: semantic.LTE,
	lexer.ItemGT:  semantic.GT,
	lexer.ItemGTE: semantic.GTE,
}

// relational parses unary [op unary].
func (p *parser) relational() (semantic.Expression, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	op, ok := comparisons[p.l.Current().Type]
	if !ok {
		return left, nil
	}
	p.take()
	right, err := p.unary()
	if err != nil {
		return nil, err
	}
	return &semantic.CompareExpr{Op: op, Left: left, Right: right}, nil
}

// unary parses '!' unary | primary.
func (p *parser) unary() (semantic.Expression, error) {
	if p.l.Consume(lexer.ItemNot) {
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &semantic.NotExpr{X: x}, nil
	}
	return p.primary()
}

// primary parses bracketed expressions, variables, terms and calls.
func (p *parser) primary() (semantic.Expression, error) {
	switch p.l.Current().Type {
	case lexer.ItemLPar:
		p.take()
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.ItemRPar); err != nil {
			return nil, err
		}
		return e, nil
	case lexer.ItemVariable:
		v, _ := p.variable()
		return &semantic.VarExpr{Name: v}, nil
	case lexer.ItemFunction:
		return p.call()
	case lexer.ItemIRI, lexer.ItemPrefixedName:
		t, err := p.term(false)
		if err != nil {
			return nil, err
		}
		return &semantic.ConstExpr{Value: t.Value}, nil
	}
	v, err := p.literal()
	if err != nil {
		return nil, err
	}
	return &semantic.ConstExpr{Value: v}, nil
}

// call parses NAME '(' [expr (',' expr)*] ')'. BOUND takes a variable.
func (p *parser) call() (semantic.Expression, error) {
	name := p.take().Text
	if err := p.expect(lexer.ItemLPar); err != nil {
		return nil, err
	}
	if strings.EqualFold(name, "bound") {
		v, err := p.variable()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.ItemRPar); err != nil {
			return nil, err
		}
		return &semantic.BoundExpr{Var: v}, nil
	}
	var args []semantic.Expression
	if !p.l.CanAccept(lexer.ItemRPar) {
		for {
			e, err := p.expression()
			if err != nil {
				return nil, err
			}
			args = append(args, e)
			if !p.l.Consume(lexer.ItemComma) {
				break
			}
		}
	}
	if err := p.expect(lexer.ItemRPar); err != nil {
		return nil, err
	}
	return semantic.NewCallExpr(name, args), nil
}

// modifiers parses GROUP BY, ORDER BY, LIMIT and OFFSET.
func (p *parser) modifiers(q *semantic.Query) error {
	if p.l.Consume(lexer.ItemGroup) {
		if err := p.expect(lexer.ItemBy); err != nil {
			return err
		}
		for p.l.CanAccept(lexer.ItemVariable) {
			v, _ := p.variable()
			q.GroupBy = append(q.GroupBy, v)
		}
		if len(q.GroupBy) == 0 {
			return p.fail("group variable")
		}
	}
	if p.l.Consume(lexer.ItemOrder) {
		if err := p.expect(lexer.ItemBy); err != nil {
			return err
		}
		for {
			tt := p.l.Current().Type
			if tt == lexer.ItemVariable {
				v, _ := p.variable()
				q.OrderBy = append(q.OrderBy, semantic.OrderKey{Var: v})
				continue
			}
			if tt != lexer.ItemAsc && tt != lexer.ItemDesc {
				break
			}
			p.take()
			if err := p.expect(lexer.ItemLPar); err != nil {
				return err
			}
			v, err := p.variable()
			if err != nil {
				return err
			}
			if err := p.expect(lexer.ItemRPar); err != nil {
				return err
			}
			q.OrderBy = append(q.OrderBy, semantic.OrderKey{Var: v, Desc: tt == lexer.ItemDesc})
		}
		if len(q.OrderBy) == 0 {
			return p.fail("order condition")
		}
	}
	seenLimit, seenOffset := false, false
	for {
		switch {
		case !seenLimit && p.l.CanAccept(lexer.ItemLimit):
			p.take()
			n, err := p.nonNegative()
			if err != nil {
				return err
			}
			q.Limit, q.HasLimit, seenLimit = n, true, true
		case !seenOffset && p.l.CanAccept(lexer.ItemOffset):
			p.take()
			n, err := p.nonNegative()
			if err != nil {
				return err
			}
			q.Offset, seenOffset = n, true
		default:
			return nil
		}
	}
}

func (p *parser) nonNegative() (int, error) {
	if !p.l.CanAccept(lexer.ItemInteger) {
		return 0, p.fail("non negative integer")
	}
	tkn := *p.l.Current()
	n, err := strconv.Atoi(tkn.Text)
	if err != nil || n < 0 {
		return 0, p.fail("non negative integer")
	}
	p.take()
	return n, nil
}
