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

// Package turtle reads and writes the Turtle serialization of RDF graphs.
package turtle

import (
	"fmt"
	"io"
	"strings"

	"github.com/nounverb/cnvq/sparql/lexer"
	"github.com/nounverb/cnvq/triple"
	"github.com/nounverb/cnvq/triple/literal"
	"github.com/nounverb/cnvq/triple/namespace"
)

// ParseError is returned for malformed Turtle documents.
type ParseError struct {
	Line     int
	Col      int
	Expected string
	Found    string
	Err      error
}

// Error returns a readable version of the error.
func (e *ParseError) Error() string {
	msg := fmt.Sprintf("turtle: %d:%d: expected %s", e.Line, e.Col, e.Expected)
	if e.Found != "" {
		msg += ", found " + e.Found
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error, if any.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Option configures the parser.
type Option func(*parser)

// WithNamespaces seeds the prefixes available to the document. The table is
// cloned; declarations in the document never modify it.
func WithNamespaces(t *namespace.Table) Option {
	return func(p *parser) {
		p.ns = t.Clone()
	}
}

// WithBase sets the IRI relative IRIs are resolved against.
func WithBase(iri string) Option {
	return func(p *parser) {
		p.base = iri
	}
}

type parser struct {
	sc     *scanner
	tok    token
	ns     *namespace.Table
	base   string
	bnodes map[string]triple.Value
	out    []triple.Triple
}

// Parse reads a Turtle document returning its triples in document order and
// the namespace table holding the declared prefixes.
func Parse(r io.Reader, opts ...Option) ([]triple.Triple, *namespace.Table, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("turtle.Parse: %w", err)
	}
	return ParseString(string(b), opts...)
}

// ParseString parses the provided Turtle document.
func ParseString(doc string, opts ...Option) ([]triple.Triple, *namespace.Table, error) {
	p := &parser{
		sc:     newScanner(doc),
		ns:     namespace.New(),
		bnodes: map[string]triple.Value{},
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.advance(); err != nil {
		return nil, nil, err
	}
	for p.tok.kind != tEOF {
		if err := p.statement(); err != nil {
			return nil, nil, err
		}
	}
	return p.out, p.ns, nil
}

func (p *parser) advance() error {
	tkn, err := p.sc.scan()
	if err != nil {
		return err
	}
	p.tok = tkn
	return nil
}

func (p *parser) fail(expected string) error {
	return &ParseError{
		Line:     p.tok.line,
		Col:      p.tok.col,
		Expected: expected,
		Found:    p.tok.String(),
	}
}

func (p *parser) expect(k kind) (token, error) {
	tkn := p.tok
	if tkn.kind != k {
		return tkn, p.fail(k.String())
	}
	return tkn, p.advance()
}

func (p *parser) isKeyword(kw string) bool {
	return p.tok.kind == tKeyword && strings.EqualFold(p.tok.text, kw)
}

func (p *parser) statement() error {
	switch {
	case p.tok.kind == tLangTag && p.tok.text == "prefix":
		return p.prefix(true)
	case p.isKeyword("prefix"):
		return p.prefix(false)
	case p.tok.kind == tLangTag && p.tok.text == "base":
		return p.baseDecl(true)
	case p.isKeyword("base"):
		return p.baseDecl(false)
	}
	if err := p.triples(); err != nil {
		return err
	}
	_, err := p.expect(tDot)
	return err
}

// prefix parses @prefix and PREFIX declarations. Only the former requires a
// trailing dot.
func (p *parser) prefix(dot bool) error {
	if err := p.advance(); err != nil {
		return err
	}
	if p.tok.kind != tPName || !strings.HasSuffix(p.tok.text, ":") || strings.Count(p.tok.text, ":") != 1 {
		return p.fail("prefix name ending in ':'")
	}
	name := strings.TrimSuffix(p.tok.text, ":")
	line, col := p.tok.line, p.tok.col
	if err := p.advance(); err != nil {
		return err
	}
	iri, err := p.expect(tIRI)
	if err != nil {
		return err
	}
	if err := p.ns.Add(name, p.resolve(iri.text)); err != nil {
		return &ParseError{Line: line, Col: col, Expected: "a consistent prefix declaration", Err: err}
	}
	if dot {
		_, err = p.expect(tDot)
	}
	return err
}

func (p *parser) baseDecl(dot bool) error {
	if err := p.advance(); err != nil {
		return err
	}
	iri, err := p.expect(tIRI)
	if err != nil {
		return err
	}
	p.base = p.resolve(iri.text)
	if dot {
		_, err = p.expect(tDot)
	}
	return err
}

// resolve returns the IRI resolved against the base IRI. IRIs with a scheme
// are returned untouched.
func (p *parser) resolve(iri string) string {
	if p.base == "" || strings.Contains(iri, ":") {
		return iri
	}
	return p.base + iri
}

func (p *parser) emit(s, pr, o triple.Value, tkn token) error {
	t, err := triple.New(s, pr, o)
	if err != nil {
		return &ParseError{Line: tkn.line, Col: tkn.col, Expected: "a valid triple", Err: err}
	}
	p.out = append(p.out, t)
	return nil
}

func (p *parser) triples() error {
	if p.tok.kind == tLBracket {
		b, err := p.blankNodePropertyList()
		if err != nil {
			return err
		}
		if p.tok.kind == tDot {
			return nil
		}
		return p.predicateObjectList(b)
	}
	s, err := p.subject()
	if err != nil {
		return err
	}
	return p.predicateObjectList(s)
}

func (p *parser) subject() (triple.Value, error) {
	switch p.tok.kind {
	case tIRI, tPName:
		return p.iri()
	case tBlank:
		return p.blank()
	}
	return triple.Value{}, p.fail("subject")
}

func (p *parser) iri() (triple.Value, error) {
	tkn := p.tok
	var iri string
	switch tkn.kind {
	case tIRI:
		iri = p.resolve(tkn.text)
	case tPName:
		var err error
		if iri, err = p.ns.Expand(tkn.text); err != nil {
			return triple.Value{}, &ParseError{Line: tkn.line, Col: tkn.col, Expected: "a declared prefix", Found: tkn.String(), Err: err}
		}
	default:
		return triple.Value{}, p.fail("IRI")
	}
	return triple.NewURI(iri), p.advance()
}

func (p *parser) blank() (triple.Value, error) {
	label := p.tok.text
	b, ok := p.bnodes[label]
	if !ok {
		b = triple.NewBlankNode(label)
		p.bnodes[label] = b
	}
	return b, p.advance()
}

func (p *parser) verb() (triple.Value, error) {
	if p.isKeyword("a") && p.tok.text == "a" {
		return triple.NewURI(namespace.RDFType), p.advance()
	}
	if p.tok.kind != tIRI && p.tok.kind != tPName {
		return triple.Value{}, p.fail("predicate")
	}
	return p.iri()
}

func (p *parser) predicateObjectList(s triple.Value) error {
	for {
		vt := p.tok
		pr, err := p.verb()
		if err != nil {
			return err
		}
		if err := p.objectList(s, pr, vt); err != nil {
			return err
		}
		if p.tok.kind != tSemicolon {
			return nil
		}
		for p.tok.kind == tSemicolon {
			if err := p.advance(); err != nil {
				return err
			}
		}
		if p.tok.kind == tDot || p.tok.kind == tRBracket {
			return nil
		}
	}
}

func (p *parser) objectList(s, pr triple.Value, vt token) error {
	for {
		o, err := p.object()
		if err != nil {
			return err
		}
		if err := p.emit(s, pr, o, vt); err != nil {
			return err
		}
		if p.tok.kind != tComma {
			return nil
		}
		if err := p.advance(); err != nil {
			return err
		}
	}
}

func (p *parser) blankNodePropertyList() (triple.Value, error) {
	if _, err := p.expect(tLBracket); err != nil {
		return triple.Value{}, err
	}
	b := triple.NewAnonymousBlankNode()
	if p.tok.kind != tRBracket {
		if err := p.predicateObjectList(b); err != nil {
			return triple.Value{}, err
		}
	}
	_, err := p.expect(tRBracket)
	return b, err
}

func (p *parser) object() (triple.Value, error) {
	tkn := p.tok
	switch tkn.kind {
	case tIRI, tPName:
		return p.iri()
	case tBlank:
		return p.blank()
	case tLBracket:
		return p.blankNodePropertyList()
	case tString:
		return p.literal()
	case tInteger:
		return triple.NewTypedLiteral(tkn.text, literal.XSDInteger), p.advance()
	case tDecimal:
		return triple.NewTypedLiteral(tkn.text, literal.XSDDecimal), p.advance()
	case tDouble:
		return triple.NewTypedLiteral(tkn.text, literal.XSDDouble), p.advance()
	case tKeyword:
		if tkn.text == "true" || tkn.text == "false" {
			return triple.NewTypedLiteral(tkn.text, literal.XSDBoolean), p.advance()
		}
	}
	return triple.Value{}, p.fail("object")
}

func (p *parser) literal() (triple.Value, error) {
	tkn := p.tok
	s, err := lexer.Unquote(tkn.text)
	if err != nil {
		return triple.Value{}, &ParseError{Line: tkn.line, Col: tkn.col, Expected: "a valid string", Err: err}
	}
	if err := p.advance(); err != nil {
		return triple.Value{}, err
	}
	switch p.tok.kind {
	case tLangTag:
		lang := p.tok.text
		return triple.NewLangLiteral(s, lang), p.advance()
	case tDatatype:
		if err := p.advance(); err != nil {
			return triple.Value{}, err
		}
		dt, err := p.iri()
		if err != nil {
			return triple.Value{}, err
		}
		return triple.NewTypedLiteral(s, dt.Text), nil
	}
	return triple.NewLiteral(s), nil
}
