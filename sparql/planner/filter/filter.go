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

// Package filter isolates the built-in functions available inside FILTER
// expressions.
package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/golang/groupcache/lru"
	"github.com/nounverb/cnvq/triple"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Operation represents a built-in filter function.
type Operation int

// List of supported filter operations.
const (
	Contains Operation = iota + 1
	StrStarts
	StrEnds
	Regex
	LCase
	UCase
	Str
	Lang
	Datatype
	IsIRI
	IsLiteral
	IsBlank
	StrLen
)

// SupportedOperations maps supported function names to their Operation. The
// keys are lower case; lookups are case insensitive.
var SupportedOperations = map[string]Operation{
	"contains":  Contains,
	"strstarts": StrStarts,
	"strends":   StrEnds,
	"regex":     Regex,
	"lcase":     LCase,
	"ucase":     UCase,
	"str":       Str,
	"lang":      Lang,
	"datatype":  Datatype,
	"isiri":     IsIRI,
	"isuri":     IsIRI,
	"isliteral": IsLiteral,
	"isblank":   IsBlank,
	"strlen":    StrLen,
}

// arity lists the minimum and maximum number of arguments of an operation.
var arity = map[Operation][2]int{
	Contains:  {2, 2},
	StrStarts: {2, 2},
	StrEnds:   {2, 2},
	Regex:     {2, 3},
	LCase:     {1, 1},
	UCase:     {1, 1},
	Str:       {1, 1},
	Lang:      {1, 1},
	Datatype:  {1, 1},
	IsIRI:     {1, 1},
	IsLiteral: {1, 1},
	IsBlank:   {1, 1},
	StrLen:    {1, 1},
}

// ErrUnsupported is returned when evaluating an unknown function.
var ErrUnsupported = errors.New("unsupported filter function")

// Lookup returns the operation for the provided function name.
func Lookup(name string) (Operation, bool) {
	op, ok := SupportedOperations[strings.ToLower(name)]
	return op, ok
}

// String returns the string representation of Operation.
func (op Operation) String() string {
	switch op {
	case Contains:
		return "CONTAINS"
	case StrStarts:
		return "STRSTARTS"
	case StrEnds:
		return "STRENDS"
	case Regex:
		return "REGEX"
	case LCase:
		return "LCASE"
	case UCase:
		return "UCASE"
	case Str:
		return "STR"
	case Lang:
		return "LANG"
	case Datatype:
		return "DATATYPE"
	case IsIRI:
		return "ISIRI"
	case IsLiteral:
		return "ISLITERAL"
	case IsBlank:
		return "ISBLANK"
	case StrLen:
		return "STRLEN"
	default:
		return fmt.Sprintf(`not defined filter operation "%d"`, int(op))
	}
}

// IsEmpty returns true if the Operation was not set yet.
func (op Operation) IsEmpty() bool {
	return op == Operation(0)
}

// CheckArity validates the number of arguments provided to the operation.
func (op Operation) CheckArity(n int) error {
	a, ok := arity[op]
	if !ok {
		return ErrUnsupported
	}
	if n < a[0] || n > a[1] {
		if a[0] == a[1] {
			return fmt.Errorf("%s expects %d arguments, got %d", op, a[0], n)
		}
		return fmt.Errorf("%s expects %d to %d arguments, got %d", op, a[0], a[1], n)
	}
	return nil
}

// Casers are stateful, so a new one is used per call.
func lower(s string) string { return cases.Lower(language.Und).String(s) }
func upper(s string) string { return cases.Upper(language.Und).String(s) }

// Fold returns the case folded version of s used for case insensitive
// matching.
func Fold(s string) string {
	return lower(s)
}

// stringArg returns the lexical form of a literal argument. IRIs and blank
// nodes are not string arguments.
func stringArg(op Operation, v triple.Value) (string, error) {
	if !v.IsLiteral() {
		return "", fmt.Errorf("%s expects a literal argument, got %s", op, v)
	}
	return v.Text, nil
}

// stringResult keeps the language tag of the source literal.
func stringResult(src triple.Value, s string) triple.Value {
	if src.Kind == triple.LangLiteral {
		return triple.NewLangLiteral(s, src.Lang)
	}
	return triple.NewLiteral(s)
}

// Apply evaluates the operation over already evaluated arguments.
func Apply(op Operation, args []triple.Value) (triple.Value, error) {
	if err := op.CheckArity(len(args)); err != nil {
		return triple.Value{}, err
	}
	switch op {
	case Contains, StrStarts, StrEnds:
		a, err := stringArg(op, args[0])
		if err != nil {
			return triple.Value{}, err
		}
		b, err := stringArg(op, args[1])
		if err != nil {
			return triple.Value{}, err
		}
		switch op {
		case Contains:
			return triple.NewBoolean(strings.Contains(a, b)), nil
		case StrStarts:
			return triple.NewBoolean(strings.HasPrefix(a, b)), nil
		default:
			return triple.NewBoolean(strings.HasSuffix(a, b)), nil
		}
	case Regex:
		text, err := stringArg(op, args[0])
		if err != nil {
			return triple.Value{}, err
		}
		pattern, err := stringArg(op, args[1])
		if err != nil {
			return triple.Value{}, err
		}
		flags := ""
		if len(args) == 3 {
			if flags, err = stringArg(op, args[2]); err != nil {
				return triple.Value{}, err
			}
		}
		re, err := CompileRegex(pattern, flags)
		if err != nil {
			return triple.Value{}, err
		}
		return triple.NewBoolean(re.MatchString(text)), nil
	case LCase, UCase:
		s, err := stringArg(op, args[0])
		if err != nil {
			return triple.Value{}, err
		}
		if op == LCase {
			return stringResult(args[0], lower(s)), nil
		}
		return stringResult(args[0], upper(s)), nil
	case Str:
		if args[0].IsBlank() {
			return triple.Value{}, fmt.Errorf("STR is not defined for blank node %s", args[0])
		}
		return triple.NewLiteral(args[0].Text), nil
	case Lang:
		if !args[0].IsLiteral() {
			return triple.Value{}, fmt.Errorf("LANG expects a literal argument, got %s", args[0])
		}
		return triple.NewLiteral(args[0].Lang), nil
	case Datatype:
		if !args[0].IsLiteral() {
			return triple.Value{}, fmt.Errorf("DATATYPE expects a literal argument, got %s", args[0])
		}
		return triple.NewURI(args[0].DatatypeIRI()), nil
	case IsIRI:
		return triple.NewBoolean(args[0].IsIRI()), nil
	case IsLiteral:
		return triple.NewBoolean(args[0].IsLiteral()), nil
	case IsBlank:
		return triple.NewBoolean(args[0].IsBlank()), nil
	case StrLen:
		s, err := stringArg(op, args[0])
		if err != nil {
			return triple.Value{}, err
		}
		return triple.NewInteger(int64(utf8.RuneCountInString(s))), nil
	}
	return triple.Value{}, ErrUnsupported
}

// regexCache holds the compiled regular expressions shared by all queries.
var regexCache = struct {
	sync.Mutex
	c *lru.Cache
}{c: lru.New(256)}

// CompileRegex compiles the pattern honoring the i, s, m and x flags. Compiled
// expressions are memoized.
func CompileRegex(pattern, flags string) (*regexp.Regexp, error) {
	key := flags + "/" + pattern
	regexCache.Lock()
	v, ok := regexCache.c.Get(key)
	regexCache.Unlock()
	if ok {
		return v.(*regexp.Regexp), nil
	}
	prefix := ""
	for _, f := range flags {
		switch f {
		case 'i', 's', 'm':
			prefix += string(f)
		case 'x':
		default:
			return nil, fmt.Errorf("REGEX does not support flag %q", f)
		}
	}
	expr := pattern
	if strings.ContainsRune(flags, 'x') {
		expr = strings.Map(func(r rune) rune {
			if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
				return -1
			}
			return r
		}, expr)
	}
	if prefix != "" {
		expr = "(?" + prefix + ")" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("REGEX failed to compile %q: %v", pattern, err)
	}
	regexCache.Lock()
	regexCache.c.Add(key, re)
	regexCache.Unlock()
	return re, nil
}
