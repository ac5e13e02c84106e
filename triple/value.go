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

package triple

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/nounverb/cnvq/triple/literal"
	"github.com/pborman/uuid"
)

// Kind identifies the flavor of an RDF term.
type Kind uint8

const (
	// URI is an IRI reference.
	URI Kind = iota
	// Literal is a plain string literal.
	Literal
	// TypedLiteral is a literal carrying an explicit datatype IRI.
	TypedLiteral
	// LangLiteral is a literal tagged with a language.
	LangLiteral
	// BlankNode is a document scoped anonymous resource.
	BlankNode
)

// String returns a readable version of the kind.
func (k Kind) String() string {
	switch k {
	case URI:
		return "uri"
	case Literal:
		return "literal"
	case TypedLiteral:
		return "typed-literal"
	case LangLiteral:
		return "lang-literal"
	case BlankNode:
		return "blank"
	default:
		return "UNKNOWN"
	}
}

// Value is an RDF term. Values are comparable and can be used as map keys.
type Value struct {
	Kind     Kind
	Text     string
	Datatype string
	Lang     string
}

// NewURI returns a value for the provided IRI.
func NewURI(iri string) Value {
	return Value{Kind: URI, Text: iri}
}

// ValidIRI reports if the IRI can be written between angle brackets: it is
// not empty and holds no spaces, control characters or any of <>"{}|^`\.
func ValidIRI(iri string) bool {
	if iri == "" {
		return false
	}
	for _, r := range iri {
		if r <= 0x20 || unicode.IsSpace(r) || strings.ContainsRune("<>\"{}|^`\\", r) {
			return false
		}
	}
	return true
}

// NewDerivedBlankNode returns a blank node whose label is derived from the
// name based UUID of the scope IRI and the index.
func NewDerivedBlankNode(scope string, i int) Value {
	u := uuid.NewSHA1(uuid.NameSpace_URL, []byte(scope))
	return NewBlankNode(fmt.Sprintf("d%s_%d", strings.Replace(u.String(), "-", "", -1), i))
}

// NewLiteral returns a plain string literal.
func NewLiteral(s string) Value {
	return Value{Kind: Literal, Text: s}
}

// NewTypedLiteral returns a literal with the provided datatype IRI. Literals
// typed as xsd:string collapse into plain literals.
func NewTypedLiteral(s, datatype string) Value {
	if datatype == "" || datatype == literal.XSDString {
		return NewLiteral(s)
	}
	return Value{Kind: TypedLiteral, Text: s, Datatype: datatype}
}

// NewLangLiteral returns a language tagged literal. Tags are lower cased.
func NewLangLiteral(s, lang string) Value {
	if lang == "" {
		return NewLiteral(s)
	}
	return Value{Kind: LangLiteral, Text: s, Lang: strings.ToLower(lang)}
}

// NewBlankNode returns a blank node with the provided label.
func NewBlankNode(label string) Value {
	return Value{Kind: BlankNode, Text: label}
}

// NewAnonymousBlankNode returns a blank node with a freshly minted label.
func NewAnonymousBlankNode() Value {
	return NewBlankNode("b" + strings.Replace(uuid.New(), "-", "", -1))
}

// NewInteger returns an xsd:integer literal.
func NewInteger(i int64) Value {
	return Value{Kind: TypedLiteral, Text: literal.FormatInt64(i), Datatype: literal.XSDInteger}
}

// NewDecimal returns an xsd:decimal literal.
func NewDecimal(f float64) Value {
	return Value{Kind: TypedLiteral, Text: literal.FormatFloat64(f), Datatype: literal.XSDDecimal}
}

// NewBoolean returns an xsd:boolean literal.
func NewBoolean(b bool) Value {
	s := "false"
	if b {
		s = "true"
	}
	return Value{Kind: TypedLiteral, Text: s, Datatype: literal.XSDBoolean}
}

// IsZero returns true for the zero value, which does not represent any term.
func (v Value) IsZero() bool {
	return v == Value{}
}

// IsIRI returns true if the value is an IRI.
func (v Value) IsIRI() bool {
	return v.Kind == URI
}

// IsBlank returns true if the value is a blank node.
func (v Value) IsBlank() bool {
	return v.Kind == BlankNode
}

// IsLiteral returns true for any of the literal kinds.
func (v Value) IsLiteral() bool {
	return v.Kind == Literal || v.Kind == TypedLiteral || v.Kind == LangLiteral
}

// Lexical returns the text used when the value is rendered in a result row:
// the bare IRI, the blank node label, or the lexical form of a literal.
func (v Value) Lexical() string {
	if v.Kind == BlankNode {
		return "_:" + v.Text
	}
	return v.Text
}

// DatatypeIRI returns the datatype of a literal following RDF 1.1 rules.
func (v Value) DatatypeIRI() string {
	switch v.Kind {
	case Literal:
		return literal.XSDString
	case TypedLiteral:
		return v.Datatype
	case LangLiteral:
		return "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"
	default:
		return ""
	}
}

// Numeric returns the numeric value boxed by the term, if any. Typed literals
// need a numeric datatype; plain literals are accepted when they parse.
func (v Value) Numeric() (float64, bool) {
	switch v.Kind {
	case TypedLiteral:
		if !literal.IsNumeric(v.Datatype) {
			return 0, false
		}
	case Literal:
	default:
		return 0, false
	}
	f, _, err := literal.ParseNumber(v.Text)
	if err != nil {
		return 0, false
	}
	return f, true
}

// String pretty prints the value in N-Triples form.
func (v Value) String() string {
	switch v.Kind {
	case URI:
		return "<" + v.Text + ">"
	case BlankNode:
		return "_:" + v.Text
	case TypedLiteral:
		return fmt.Sprintf("%s^^<%s>", Quote(v.Text), v.Datatype)
	case LangLiteral:
		return fmt.Sprintf("%s@%s", Quote(v.Text), v.Lang)
	default:
		return Quote(v.Text)
	}
}

// Quote returns the double quoted and escaped form of a lexical value.
func Quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// rank orders the kinds as blank nodes, IRIs and then literals.
func rank(k Kind) int {
	switch k {
	case BlankNode:
		return 0
	case URI:
		return 1
	default:
		return 2
	}
}

// Compare returns -1, 0 or 1 depending on how a orders against b. Numeric
// values compare by magnitude, everything else by kind and then lexical form.
func Compare(a, b Value) int {
	if fa, ok := a.Numeric(); ok {
		if fb, ok := b.Numeric(); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}
	if ra, rb := rank(a.Kind), rank(b.Kind); ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	if c := strings.Compare(a.Text, b.Text); c != 0 {
		return c
	}
	if c := strings.Compare(a.Datatype, b.Datatype); c != 0 {
		return c
	}
	return strings.Compare(a.Lang, b.Lang)
}
