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

// Package lexer implements the lexer used by the SPARQL subset understood by
// the query engine. The lexer is loosely written after the model described
// by Rob Pike in his presentation "Lexical Scanning in Go".
package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenType list all the possible tokens returned by a lexer.
type TokenType int

const (
	// ItemError contains information about an error triggered while scanning.
	ItemError TokenType = iota
	// ItemEOF indicates end of input to be scanned.
	ItemEOF

	// ItemSelect represents the select keyword.
	ItemSelect
	// ItemDistinct represents the distinct keyword.
	ItemDistinct
	// ItemWhere represents the where keyword.
	ItemWhere
	// ItemFilter represents the filter keyword.
	ItemFilter
	// ItemOptional represents the optional keyword.
	ItemOptional
	// ItemUnion represents the union keyword.
	ItemUnion
	// ItemGroup represents the group keyword.
	ItemGroup
	// ItemBy represents the by keyword.
	ItemBy
	// ItemOrder represents the order keyword.
	ItemOrder
	// ItemAsc represents the asc keyword.
	ItemAsc
	// ItemDesc represents the desc keyword.
	ItemDesc
	// ItemLimit represents the limit keyword.
	ItemLimit
	// ItemOffset represents the offset keyword.
	ItemOffset
	// ItemAs represents the as keyword.
	ItemAs
	// ItemPrefix represents the prefix keyword.
	ItemPrefix
	// ItemCount represents the count aggregate.
	ItemCount
	// ItemSum represents the sum aggregate.
	ItemSum
	// ItemMin represents the min aggregate.
	ItemMin
	// ItemMax represents the max aggregate.
	ItemMax
	// ItemAvg represents the avg aggregate.
	ItemAvg
	// ItemA represents the rdf:type shorthand.
	ItemA

	// ItemVariable represents a ?var or $var binding.
	ItemVariable
	// ItemIRI represents an <iri> reference.
	ItemIRI
	// ItemPrefixedName represents a prefix:local name.
	ItemPrefixedName
	// ItemBlankNode represents a _:label blank node.
	ItemBlankNode
	// ItemString represents a quoted string literal.
	ItemString
	// ItemInteger represents an integer literal.
	ItemInteger
	// ItemDecimal represents a decimal or double literal.
	ItemDecimal
	// ItemBoolean represents the true or false literals.
	ItemBoolean
	// ItemLangTag represents a @lang suffix.
	ItemLangTag
	// ItemDatatype represents the ^^ datatype marker.
	ItemDatatype
	// ItemFunction represents any other identifier, used for built-in calls.
	ItemFunction

	// ItemLBracket represents the left opening bracket.
	ItemLBracket
	// ItemRBracket represents the right opening bracket.
	ItemRBracket
	// ItemLPar represents the left opening parenthesis.
	ItemLPar
	// ItemRPar represents the right closing parenthesis.
	ItemRPar
	// ItemDot represents the graph clause separator.
	ItemDot
	// ItemSemicolon represents the same subject separator.
	ItemSemicolon
	// ItemComma represents the same predicate separator.
	ItemComma
	// ItemStar represents * in projections and paths.
	ItemStar
	// ItemPlus represents the + path modifier.
	ItemPlus
	// ItemQuestion represents the ? path modifier.
	ItemQuestion
	// ItemSlash represents the / sequence path operator.
	ItemSlash
	// ItemPipe represents the | alternative path operator.
	ItemPipe
	// ItemCaret represents the ^ inverse path operator.
	ItemCaret
	// ItemEQ represents =.
	ItemEQ
	// ItemNEQ represents !=.
	ItemNEQ
	// ItemLT represents <.
	ItemLT
	// ItemLTE represents <=.
	ItemLTE
	// ItemGT represents >.
	ItemGT
	// ItemGTE represents >=.
	ItemGTE
	// ItemAnd represents &&.
	ItemAnd
	// ItemOr represents ||.
	ItemOr
	// ItemNot represents !.
	ItemNot
)

var typeNames = map[TokenType]string{
	ItemError:        "ERROR",
	ItemEOF:          "EOF",
	ItemSelect:       "SELECT",
	ItemDistinct:     "DISTINCT",
	ItemWhere:        "WHERE",
	ItemFilter:       "FILTER",
	ItemOptional:     "OPTIONAL",
	ItemUnion:        "UNION",
	ItemGroup:        "GROUP",
	ItemBy:           "BY",
	ItemOrder:        "ORDER",
	ItemAsc:          "ASC",
	ItemDesc:         "DESC",
	ItemLimit:        "LIMIT",
	ItemOffset:       "OFFSET",
	ItemAs:           "AS",
	ItemPrefix:       "PREFIX",
	ItemCount:        "COUNT",
	ItemSum:          "SUM",
	ItemMin:          "MIN",
	ItemMax:          "MAX",
	ItemAvg:          "AVG",
	ItemA:            "a",
	ItemVariable:     "VARIABLE",
	ItemIRI:          "IRI",
	ItemPrefixedName: "PREFIXED_NAME",
	ItemBlankNode:    "BLANK_NODE",
	ItemString:       "STRING",
	ItemInteger:      "INTEGER",
	ItemDecimal:      "DECIMAL",
	ItemBoolean:      "BOOLEAN",
	ItemLangTag:      "LANGTAG",
	ItemDatatype:     "^^",
	ItemFunction:     "FUNCTION",
	ItemLBracket:     "{",
	ItemRBracket:     "}",
	ItemLPar:         "(",
	ItemRPar:         ")",
	ItemDot:          ".",
	ItemSemicolon:    ";",
	ItemComma:        ",",
	ItemStar:         "*",
	ItemPlus:         "+",
	ItemQuestion:     "?",
	ItemSlash:        "/",
	ItemPipe:         "|",
	ItemCaret:        "^",
	ItemEQ:           "=",
	ItemNEQ:          "!=",
	ItemLT:           "<",
	ItemLTE:          "<=",
	ItemGT:           ">",
	ItemGTE:          ">=",
	ItemAnd:          "&&",
	ItemOr:           "||",
	ItemNot:          "!",
}

// String returns a pretty printing version of the token type.
func (tt TokenType) String() string {
	if s, ok := typeNames[tt]; ok {
		return s
	}
	return "UNKNOWN"
}

// keywords maps the case insensitive keywords to their token type.
var keywords = map[string]TokenType{
	"select":   ItemSelect,
	"distinct": ItemDistinct,
	"where":    ItemWhere,
	"filter":   ItemFilter,
	"optional": ItemOptional,
	"union":    ItemUnion,
	"group":    ItemGroup,
	"by":       ItemBy,
	"order":    ItemOrder,
	"asc":      ItemAsc,
	"desc":     ItemDesc,
	"limit":    ItemLimit,
	"offset":   ItemOffset,
	"as":       ItemAs,
	"prefix":   ItemPrefix,
	"count":    ItemCount,
	"sum":      ItemSum,
	"min":      ItemMin,
	"max":      ItemMax,
	"avg":      ItemAvg,
	"true":     ItemBoolean,
	"false":    ItemBoolean,
}

const eof = -1

// Token contains the type and text collected around the captured token.
type Token struct {
	Type         TokenType
	Text         string
	Pos          int
	ErrorMessage string
}

// String pretty prints a token for error messages.
func (t Token) String() string {
	switch t.Type {
	case ItemEOF:
		return "end of input"
	case ItemError:
		return t.ErrorMessage
	default:
		return fmt.Sprintf("%s %q", t.Type, t.Text)
	}
}

// stateFn represents the state of the scanner as a function that returns
// the next state.
type stateFn func(*lexer) stateFn

// lexer holds the state of the scanner.
type lexer struct {
	input    string     // the string being scanned.
	start    int        // start position of this item.
	pos      int        // current position in the input.
	width    int        // width of last rune read from input.
	line     int        // current line number for error reporting.
	lastLine int        // last line number for error reporting.
	col      int        // current column number for error reporting.
	lastCol  int        // last column number for error reporting.
	tokens   chan Token // channel of scanned items.
}

// New creates a new lexer for the given input. Tokens are delivered on the
// returned channel which is closed after the ItemEOF or ItemError token.
// Callers must drain the channel.
func New(input string, capacity int) <-chan Token {
	if capacity < 0 {
		capacity = 0
	}
	l := &lexer{
		input:  input,
		line:   1,
		tokens: make(chan Token, capacity),
	}
	go l.run() // Concurrently run state machine.
	return l.tokens
}

// Tokenize returns all the tokens of the input, ending with either ItemEOF
// or ItemError.
func Tokenize(input string) []Token {
	var res []Token
	for tkn := range New(input, 16) {
		res = append(res, tkn)
	}
	return res
}

// lexToken represents the initial state for token identification.
func lexToken(l *lexer) stateFn {
	for {
		r := l.peek()
		switch {
		case r == eof:
			l.emit(ItemEOF)
			return nil
		case unicode.IsSpace(r):
			l.next()
			l.ignore()
			continue
		case r == '#':
			return lexComment
		case r == '?' || r == '$':
			return lexVariable
		case r == '<':
			return lexIRIOrLess
		case r == '"' || r == '\'':
			return lexString
		case r == '_':
			return lexBlankNode
		case r == ':':
			return lexName
		case unicode.IsDigit(r) || r == '-':
			return lexNumber
		case unicode.IsLetter(r):
			return lexName
		}
		return lexSymbol
	}
}

// lexComment skips a comment until the end of the line.
func lexComment(l *lexer) stateFn {
	for {
		if r := l.next(); r == '\n' || r == eof {
			break
		}
	}
	l.ignore()
	return lexToken
}

// lexSymbol lexes punctuation and operators.
func lexSymbol(l *lexer) stateFn {
	r := l.next()
	switch r {
	case '{':
		l.emit(ItemLBracket)
	case '}':
		l.emit(ItemRBracket)
	case '(':
		l.emit(ItemLPar)
	case ')':
		l.emit(ItemRPar)
	case '.':
		l.emit(ItemDot)
	case ';':
		l.emit(ItemSemicolon)
	case ',':
		l.emit(ItemComma)
	case '*':
		l.emit(ItemStar)
	case '+':
		l.emit(ItemPlus)
	case '/':
		l.emit(ItemSlash)
	case '=':
		l.emit(ItemEQ)
	case '^':
		if l.accept('^') {
			l.emit(ItemDatatype)
		} else {
			l.emit(ItemCaret)
		}
	case '|':
		if l.accept('|') {
			l.emit(ItemOr)
		} else {
			l.emit(ItemPipe)
		}
	case '&':
		if !l.accept('&') {
			l.emitError("expected '&&'")
			return nil
		}
		l.emit(ItemAnd)
	case '!':
		if l.accept('=') {
			l.emit(ItemNEQ)
		} else {
			l.emit(ItemNot)
		}
	case '>':
		if l.accept('=') {
			l.emit(ItemGTE)
		} else {
			l.emit(ItemGT)
		}
	default:
		l.emitError(fmt.Sprintf("unexpected character %q", r))
		return nil
	}
	return lexToken
}

// isNameRune returns true for the runes allowed inside names.
func isNameRune(r rune) bool {
	return r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// acceptName consumes name runes. Dots are accepted only when followed by
// another name rune, so "ex:a." still ends the clause.
func (l *lexer) acceptName() int {
	n := 0
	for {
		r := l.peek()
		if isNameRune(r) || (r == '.' && isNameRune(l.peekSecond())) {
			l.next()
			n++
			continue
		}
		return n
	}
}

// lexVariable lexes a ?var or $var binding, or the ? path modifier.
func lexVariable(l *lexer) stateFn {
	r := l.next()
	nr := l.peek()
	if nr == eof || !(nr == '_' || unicode.IsLetter(nr) || unicode.IsDigit(nr)) {
		if r == '?' {
			l.emit(ItemQuestion)
			return lexToken
		}
		l.emitError("variable name expected after '$'")
		return nil
	}
	for {
		if r := l.next(); !(r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)) {
			l.backup()
			break
		}
	}
	l.emit(ItemVariable)
	return lexToken
}

// lexIRIOrLess lexes an <iri> if a closing '>' is found before any
// whitespace, otherwise the < or <= operators.
func lexIRIOrLess(l *lexer) stateFn {
	rest := l.input[l.pos+1:]
	end := strings.IndexAny(rest, "> \t\r\n<\"{}|^`")
	if end >= 0 && rest[end] == '>' && !strings.HasPrefix(rest, "=") {
		for i := 0; i < end+2; {
			_, w := utf8.DecodeRuneInString(l.input[l.pos:])
			l.next()
			i += w
		}
		l.emit(ItemIRI)
		return lexToken
	}
	l.next()
	if l.accept('=') {
		l.emit(ItemLTE)
	} else {
		l.emit(ItemLT)
	}
	return lexToken
}

// lexString lexes a short or long quoted string followed by an optional
// language tag or datatype marker.
func lexString(l *lexer) stateFn {
	q := l.next()
	long := strings.HasPrefix(l.input[l.pos:], string([]rune{q, q}))
	if long {
		l.next()
		l.next()
	}
	for {
		r := l.next()
		switch {
		case r == eof:
			l.emitError("string is not properly terminated")
			return nil
		case r == '\\':
			if l.next() == eof {
				l.emitError("string is not properly terminated")
				return nil
			}
		case !long && (r == '\n' || r == '\r'):
			l.emitError("new line inside a short string")
			return nil
		case r == q && !long:
			l.emit(ItemString)
			return lexStringSuffix
		case r == q && long && strings.HasPrefix(l.input[l.pos:], string([]rune{q, q})):
			l.next()
			l.next()
			l.emit(ItemString)
			return lexStringSuffix
		}
	}
}

// lexStringSuffix lexes the language tag that may follow a string.
func lexStringSuffix(l *lexer) stateFn {
	if l.peek() != '@' {
		return lexToken
	}
	l.next()
	n := 0
	for {
		r := l.next()
		if unicode.IsLetter(r) || (n > 0 && (r == '-' || unicode.IsDigit(r))) {
			n++
			continue
		}
		l.backup()
		break
	}
	if n == 0 {
		l.emitError("language tag expected after '@'")
		return nil
	}
	l.emit(ItemLangTag)
	return lexToken
}

// lexBlankNode lexes a _:label blank node.
func lexBlankNode(l *lexer) stateFn {
	l.next()
	if !l.accept(':') || l.acceptName() == 0 {
		l.emitError("blank node label expected after '_:'")
		return nil
	}
	l.emit(ItemBlankNode)
	return lexToken
}

// lexNumber lexes integers, decimals and doubles.
func lexNumber(l *lexer) stateFn {
	l.accept('-')
	digits := l.acceptDigits()
	tt := ItemInteger
	if l.peek() == '.' && unicode.IsDigit(l.peekSecond()) {
		l.next()
		digits += l.acceptDigits()
		tt = ItemDecimal
	}
	if digits == 0 {
		l.emitError("number expected")
		return nil
	}
	if r := l.peek(); r == 'e' || r == 'E' {
		l.next()
		if !l.accept('-') {
			l.accept('+')
		}
		if l.acceptDigits() == 0 {
			l.emitError("exponent expected")
			return nil
		}
		tt = ItemDecimal
	}
	l.emit(tt)
	return lexToken
}

func (l *lexer) acceptDigits() int {
	n := 0
	for unicode.IsDigit(l.peek()) {
		l.next()
		n++
	}
	return n
}

// lexName lexes keywords, identifiers and prefixed names.
func lexName(l *lexer) stateFn {
	l.acceptName()
	if l.peek() == ':' {
		l.next()
		l.acceptName()
		l.emit(ItemPrefixedName)
		return lexToken
	}
	word := l.input[l.start:l.pos]
	if word == "a" {
		l.emit(ItemA)
		return lexToken
	}
	if tt, ok := keywords[strings.ToLower(word)]; ok {
		l.emit(tt)
		return lexToken
	}
	l.emit(ItemFunction)
	return lexToken
}

// run lexes the input by executing state functions until the state is nil.
func (l *lexer) run() {
	for state := lexToken(l); state != nil; {
		state = state(l)
	}
	close(l.tokens) // No more tokens will be delivered.
}

// emit passes an item back to the client.
func (l *lexer) emit(t TokenType) {
	l.tokens <- Token{
		Type: t,
		Text: l.input[l.start:l.pos],
		Pos:  l.start,
	}
	l.start = l.pos
}

// emitError passes and error to the client with proper error messaging.
func (l *lexer) emitError(msg string) {
	l.tokens <- Token{
		Type:         ItemError,
		Text:         l.input[l.start:l.pos],
		Pos:          l.start,
		ErrorMessage: fmt.Sprintf("[lexer:%d:%d] %s", l.line, l.col, msg),
	}
	l.start = l.pos
}

// ignore skips over the pending input before this point.
func (l *lexer) ignore() {
	l.start = l.pos
}

// backup steps back one rune. Can be called only once per call of next.
func (l *lexer) backup() {
	l.pos -= l.width
	l.col, l.line = l.lastCol, l.lastLine
}

// next returns the next rune in the input.
func (l *lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		l.lastCol, l.lastLine = l.col, l.line
		return eof
	}
	var r rune
	r, l.width = utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += l.width
	l.lastCol, l.lastLine = l.col, l.line
	l.col++
	if r == '\n' {
		l.line++
		l.col = 0
	}
	return r
}

// peek returns but does not consume the next rune in the input.
func (l *lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

// peekSecond returns the rune following the next one without consuming any.
func (l *lexer) peekSecond() rune {
	if l.pos >= len(l.input) {
		return eof
	}
	_, w := utf8.DecodeRuneInString(l.input[l.pos:])
	if l.pos+w >= len(l.input) {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos+w:])
	return r
}

// accept consumes the next rune if it's equal to the one provided.
func (l *lexer) accept(r rune) bool {
	if l.next() == r {
		return true
	}
	l.backup()
	return false
}
