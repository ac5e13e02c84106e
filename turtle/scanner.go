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

package turtle

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// kind is the type of a scanned token.
type kind int

const (
	tEOF kind = iota
	tIRI
	tPName
	tBlank
	tString
	tInteger
	tDecimal
	tDouble
	tLangTag
	tDatatype
	tDot
	tSemicolon
	tComma
	tLBracket
	tRBracket
	tKeyword
)

var kindNames = map[kind]string{
	tEOF:       "end of input",
	tIRI:       "IRI",
	tPName:     "prefixed name",
	tBlank:     "blank node",
	tString:    "string",
	tInteger:   "integer",
	tDecimal:   "decimal",
	tDouble:    "double",
	tLangTag:   "language tag",
	tDatatype:  "'^^'",
	tDot:       "'.'",
	tSemicolon: "';'",
	tComma:     "','",
	tLBracket:  "'['",
	tRBracket:  "']'",
	tKeyword:   "keyword",
}

func (k kind) String() string {
	return kindNames[k]
}

// token is a lexical unit of a Turtle document. IRIs, blank nodes and
// language tags carry their text without delimiters; strings keep quotes.
type token struct {
	kind      kind
	text      string
	line, col int
}

func (t token) String() string {
	if t.kind == tEOF {
		return t.kind.String()
	}
	return fmt.Sprintf("%s %q", t.kind, t.text)
}

const eof = -1

// scanner splits a Turtle document into tokens tracking lines and columns.
type scanner struct {
	src       string
	pos       int
	line, col int
}

func newScanner(src string) *scanner {
	return &scanner{src: src, line: 1, col: 1}
}

func (s *scanner) peekAt(n int) rune {
	pos := s.pos
	for i := 0; ; i++ {
		if pos >= len(s.src) {
			return eof
		}
		r, w := utf8.DecodeRuneInString(s.src[pos:])
		if i == n {
			return r
		}
		pos += w
	}
}

func (s *scanner) peek() rune {
	return s.peekAt(0)
}

func (s *scanner) advance() rune {
	if s.pos >= len(s.src) {
		return eof
	}
	r, w := utf8.DecodeRuneInString(s.src[s.pos:])
	s.pos += w
	if r == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return r
}

func (s *scanner) errorf(line, col int, format string, args ...interface{}) error {
	return &ParseError{Line: line, Col: col, Expected: fmt.Sprintf(format, args...)}
}

// skip consumes whitespace and comments.
func (s *scanner) skip() {
	for {
		r := s.peek()
		switch {
		case r == '#':
			for r := s.peek(); r != '\n' && r != eof; r = s.peek() {
				s.advance()
			}
		case r != eof && unicode.IsSpace(r):
			s.advance()
		default:
			return
		}
	}
}

func isNameRune(r rune) bool {
	return r == '_' || r == '-' || r == ':' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// name consumes name runes. Dots are part of the name only when followed by
// another name rune.
func (s *scanner) name() string {
	start := s.pos
	for {
		r := s.peek()
		if isNameRune(r) || (r == '.' && isNameRune(s.peekAt(1))) {
			s.advance()
			continue
		}
		break
	}
	return s.src[start:s.pos]
}

// scan returns the next token of the document.
func (s *scanner) scan() (token, error) {
	s.skip()
	tkn := token{line: s.line, col: s.col}
	r := s.peek()
	switch {
	case r == eof:
		tkn.kind = tEOF
		return tkn, nil
	case r == '<':
		s.advance()
		start := s.pos
		for {
			c := s.advance()
			if c == '>' {
				break
			}
			if c == eof || unicode.IsSpace(c) {
				return tkn, s.errorf(tkn.line, tkn.col, "'>' closing the IRI")
			}
		}
		tkn.kind, tkn.text = tIRI, s.src[start:s.pos-1]
		return tkn, nil
	case r == '"' || r == '\'':
		return s.str(tkn)
	case r == '@':
		s.advance()
		start := s.pos
		for c := s.peek(); c == '-' || unicode.IsLetter(c) || unicode.IsDigit(c); c = s.peek() {
			s.advance()
		}
		if s.pos == start {
			return tkn, s.errorf(tkn.line, tkn.col, "language tag or directive after '@'")
		}
		tkn.kind, tkn.text = tLangTag, s.src[start:s.pos]
		return tkn, nil
	case r == '^':
		s.advance()
		if s.advance() != '^' {
			return tkn, s.errorf(tkn.line, tkn.col, "'^^'")
		}
		tkn.kind, tkn.text = tDatatype, "^^"
		return tkn, nil
	case r == '_' && s.peekAt(1) == ':':
		s.advance()
		s.advance()
		label := s.name()
		if label == "" {
			return tkn, s.errorf(tkn.line, tkn.col, "blank node label")
		}
		tkn.kind, tkn.text = tBlank, label
		return tkn, nil
	case unicode.IsDigit(r) || r == '+' || r == '-' || (r == '.' && unicode.IsDigit(s.peekAt(1))):
		return s.number(tkn)
	case r == ':' || unicode.IsLetter(r):
		text := s.name()
		tkn.text = text
		if strings.Contains(text, ":") {
			tkn.kind = tPName
			return tkn, nil
		}
		switch strings.ToLower(text) {
		case "a", "true", "false", "prefix", "base":
			tkn.kind = tKeyword
			return tkn, nil
		}
		return tkn, s.errorf(tkn.line, tkn.col, "prefixed name or keyword instead of %q", text)
	}
	s.advance()
	tkn.text = string(r)
	switch r {
	case '.':
		tkn.kind = tDot
	case ';':
		tkn.kind = tSemicolon
	case ',':
		tkn.kind = tComma
	case '[':
		tkn.kind = tLBracket
	case ']':
		tkn.kind = tRBracket
	default:
		return tkn, s.errorf(tkn.line, tkn.col, "a valid token instead of %q", r)
	}
	return tkn, nil
}

// str scans short and long quoted strings keeping the quotes.
func (s *scanner) str(tkn token) (token, error) {
	start := s.pos
	q := s.peek()
	long := s.peekAt(1) == q && s.peekAt(2) == q
	n := 1
	if long {
		n = 3
	}
	for i := 0; i < n; i++ {
		s.advance()
	}
	for {
		c := s.advance()
		switch {
		case c == eof:
			return tkn, s.errorf(tkn.line, tkn.col, "closing quote of the string")
		case c == '\\':
			s.advance()
		case c == '\n' && !long:
			return tkn, s.errorf(tkn.line, tkn.col, "closing quote before the end of line")
		case c == q && !long:
			tkn.kind, tkn.text = tString, s.src[start:s.pos]
			return tkn, nil
		case c == q && s.peek() == q && s.peekAt(1) == q:
			s.advance()
			s.advance()
			// Quotes right before the closing delimiter belong to the value.
			for s.peek() == q {
				s.advance()
			}
			tkn.kind, tkn.text = tString, s.src[start:s.pos]
			return tkn, nil
		}
	}
}

// number scans integers, decimals and doubles.
func (s *scanner) number(tkn token) (token, error) {
	start := s.pos
	if r := s.peek(); r == '+' || r == '-' {
		s.advance()
	}
	digits := func() int {
		n := 0
		for unicode.IsDigit(s.peek()) {
			s.advance()
			n++
		}
		return n
	}
	n := digits()
	tkn.kind = tInteger
	if s.peek() == '.' && unicode.IsDigit(s.peekAt(1)) {
		s.advance()
		n += digits()
		tkn.kind = tDecimal
	}
	if n == 0 {
		return tkn, s.errorf(tkn.line, tkn.col, "digits")
	}
	if r := s.peek(); r == 'e' || r == 'E' {
		s.advance()
		if r := s.peek(); r == '+' || r == '-' {
			s.advance()
		}
		if digits() == 0 {
			return tkn, s.errorf(tkn.line, tkn.col, "exponent digits")
		}
		tkn.kind = tDouble
	}
	tkn.text = s.src[start:s.pos]
	return tkn, nil
}
