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

package filter

import (
	"testing"

	"github.com/nounverb/cnvq/triple"
)

func TestLookup(t *testing.T) {
	for name, want := range map[string]Operation{"CONTAINS": Contains, "lcase": LCase, "isUri": IsIRI, "StrStarts": StrStarts} {
		got, ok := Lookup(name)
		if !ok || got != want {
			t.Errorf("Lookup(%q) = (%v, %v); want (%v, true)", name, got, ok, want)
		}
	}
	if _, ok := Lookup("sha256"); ok {
		t.Errorf("Lookup should not find unsupported functions")
	}
}

func TestApply(t *testing.T) {
	lit := triple.NewLiteral
	iri := triple.NewURI("http://example.org/Services")
	table := []struct {
		op   Operation
		args []triple.Value
		want triple.Value
		err  bool
	}{
		{Contains, []triple.Value{lit("services list"), lit("list")}, triple.NewBoolean(true), false},
		{Contains, []triple.Value{lit("services"), lit("status")}, triple.NewBoolean(false), false},
		{Contains, []triple.Value{iri, lit("x")}, triple.Value{}, true},
		{StrStarts, []triple.Value{lit("services"), lit("serv")}, triple.NewBoolean(true), false},
		{StrEnds, []triple.Value{lit("services"), lit("ices")}, triple.NewBoolean(true), false},
		{Regex, []triple.Value{lit("Status"), lit("^stat"), lit("i")}, triple.NewBoolean(true), false},
		{Regex, []triple.Value{lit("Status"), lit("^stat")}, triple.NewBoolean(false), false},
		{Regex, []triple.Value{lit("x"), lit("(")}, triple.Value{}, true},
		{Regex, []triple.Value{lit("x"), lit("x"), lit("q")}, triple.Value{}, true},
		{LCase, []triple.Value{lit("SeRvIcEs")}, lit("services"), false},
		{UCase, []triple.Value{triple.NewLangLiteral("abc", "en")}, triple.NewLangLiteral("ABC", "en"), false},
		{Str, []triple.Value{iri}, lit("http://example.org/Services"), false},
		{Lang, []triple.Value{triple.NewLangLiteral("abc", "en")}, lit("en"), false},
		{Datatype, []triple.Value{triple.NewInteger(1)}, triple.NewURI("http://www.w3.org/2001/XMLSchema#integer"), false},
		{IsIRI, []triple.Value{iri}, triple.NewBoolean(true), false},
		{IsLiteral, []triple.Value{iri}, triple.NewBoolean(false), false},
		{IsBlank, []triple.Value{triple.NewBlankNode("b")}, triple.NewBoolean(true), false},
		{StrLen, []triple.Value{lit("héllo")}, triple.NewInteger(5), false},
		{StrLen, []triple.Value{lit("a"), lit("b")}, triple.Value{}, true},
		{Operation(0), nil, triple.Value{}, true},
	}
	for _, entry := range table {
		got, err := Apply(entry.op, entry.args)
		if (err != nil) != entry.err {
			t.Errorf("Apply(%v, %v) error = %v; want error %v", entry.op, entry.args, err, entry.err)
			continue
		}
		if got != entry.want {
			t.Errorf("Apply(%v, %v) = %v; want %v", entry.op, entry.args, got, entry.want)
		}
	}
}

func TestCompileRegexIsMemoized(t *testing.T) {
	a, err := CompileRegex("a+b", "i")
	if err != nil {
		t.Fatal(err)
	}
	b, err := CompileRegex("a+b", "i")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("CompileRegex should return the memoized expression")
	}
	c, err := CompileRegex("a b", "x")
	if err != nil {
		t.Fatal(err)
	}
	if !c.MatchString("ab") {
		t.Errorf("the x flag should ignore white space in the pattern")
	}
}
