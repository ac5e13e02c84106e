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
	"bytes"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/nounverb/cnvq/triple"
	"github.com/nounverb/cnvq/triple/literal"
	"github.com/nounverb/cnvq/triple/namespace"
)

func cnv(local string) triple.Value {
	return triple.NewURI(namespace.CNV + local)
}

var rdfType = triple.NewURI(namespace.RDFType)

func sampleTriples() []triple.Triple {
	arg := triple.NewBlankNode("arg0")
	return []triple.Triple{
		triple.Must(cnv("Services"), rdfType, cnv("Noun")),
		triple.Must(cnv("Services"), cnv("name"), triple.NewLiteral("services")),
		triple.Must(cnv("ServicesStatus"), cnv("name"), triple.NewLiteral("status")),
		triple.Must(cnv("ServicesStatus"), rdfType, cnv("Verb")),
		triple.Must(cnv("ServicesStatus"), cnv("hasNoun"), cnv("Services")),
		triple.Must(cnv("ServicesStatus"), cnv("label"), triple.NewLangLiteral("état", "fr")),
		triple.Must(cnv("ServicesStatus"), cnv("position"), triple.NewInteger(2)),
		triple.Must(cnv("ServicesStatus"), cnv("tag"), triple.NewLiteral("x")),
		triple.Must(cnv("ServicesStatus"), cnv("tag"), triple.NewLiteral("y")),
		triple.Must(arg, rdfType, cnv("Argument")),
		triple.Must(arg, cnv("required"), triple.NewBoolean(true)),
		triple.Must(arg, triple.NewURI("http://example.org/terms#note"), triple.NewLiteral("multi\nline \"quoted\"")),
	}
}

func TestSerializeGolden(t *testing.T) {
	var b bytes.Buffer
	if err := Serialize(&b, sampleTriples(), namespace.Default()); err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "serialize", b.Bytes())
}

func sorted(ts []triple.Triple) []string {
	res := make([]string, 0, len(ts))
	for _, t := range ts {
		res = append(res, t.String())
	}
	sort.Strings(res)
	return res
}

func TestRoundTrip(t *testing.T) {
	table := []struct {
		id string
		ts []triple.Triple
		ns *namespace.Table
	}{
		{"sample with prefixes", sampleTriples(), namespace.Default()},
		{"sample without prefixes", sampleTriples(), nil},
		{"empty", nil, namespace.Default()},
		{"odd literals", []triple.Triple{
			triple.Must(cnv("x"), cnv("p"), triple.NewLiteral(`back\slash`)),
			triple.Must(cnv("x"), cnv("p"), triple.NewLiteral("")),
			triple.Must(cnv("x"), cnv("p"), triple.NewTypedLiteral("2.50", literal.XSDDecimal)),
			triple.Must(cnv("x"), cnv("p"), triple.NewTypedLiteral("2026-10-18T00:00:00Z", literal.XSDDateTime)),
			triple.Must(cnv("x"), cnv("p"), triple.NewTypedLiteral("v", "http://example.org/dt")),
			triple.Must(cnv("x"), cnv("p"), triple.NewLangLiteral("hello", "en-GB")),
		}, namespace.Default()},
	}
	for _, entry := range table {
		doc := String(entry.ts, entry.ns)
		got, _, err := ParseString(doc)
		if err != nil {
			t.Errorf("%s: ParseString failed: %v\n%s", entry.id, err, doc)
			continue
		}
		if g, w := strings.Join(sorted(got), "\n"), strings.Join(sorted(entry.ts), "\n"); g != w {
			t.Errorf("%s: round trip returned\n%s\nwant\n%s", entry.id, g, w)
		}
	}
}

func TestParse(t *testing.T) {
	doc := `# A producer document.
@prefix cnv: <https://cnv.dev/ontology#> .
PREFIX ex: <http://example.org/>
@base <http://example.org/base/> .

cnv:ServicesStatus a cnv:Verb, cnv:Command ;
    cnv:name 'status' ;
    cnv:size 42, -3, 1.5, 1e3 ;
    cnv:enabled false ;
    cnv:doc """long
"text\"""" ;
    ex:rel <relative> ;
    cnv:hasArgument [ a cnv:Argument ; cnv:name "name" ] ;
    cnv:label "salut"@fr ;
    cnv:kind "v"^^ex:dt ;
.
[ cnv:name "anonymous" ] .
_:x cnv:p _:x .
`
	ts, ns, err := ParseString(doc)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}
	if got, want := len(ts), 17; got != want {
		t.Fatalf("ParseString returned %d triples; want %d:\n%s", got, want, strings.Join(sorted(ts), "\n"))
	}
	if iri, ok := ns.Lookup("ex"); !ok || iri != "http://example.org/" {
		t.Errorf("ns.Lookup(ex) = (%q, %v); want (http://example.org/, true)", iri, ok)
	}
	ss := cnv("ServicesStatus")
	want := map[string]bool{}
	for _, w := range []triple.Triple{
		triple.Must(ss, rdfType, cnv("Command")),
		triple.Must(ss, cnv("name"), triple.NewLiteral("status")),
		triple.Must(ss, cnv("size"), triple.NewInteger(-3)),
		triple.Must(ss, cnv("size"), triple.NewTypedLiteral("1e3", literal.XSDDouble)),
		triple.Must(ss, cnv("enabled"), triple.NewBoolean(false)),
		triple.Must(ss, cnv("doc"), triple.NewLiteral("long\n\"text\"")),
		triple.Must(ss, triple.NewURI("http://example.org/rel"), triple.NewURI("http://example.org/base/relative")),
		triple.Must(ss, cnv("label"), triple.NewLangLiteral("salut", "fr")),
		triple.Must(ss, cnv("kind"), triple.NewTypedLiteral("v", "http://example.org/dt")),
		triple.Must(triple.NewBlankNode("x"), cnv("p"), triple.NewBlankNode("x")),
	} {
		want[w.String()] = true
	}
	for _, got := range ts {
		delete(want, got.String())
	}
	for w := range want {
		t.Errorf("ParseString is missing %s", w)
	}
}

func TestParseSeededNamespaces(t *testing.T) {
	base := namespace.Default()
	ts, ns, err := ParseString(`cnv:a cnv:p cnv:b .`, WithNamespaces(base))
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}
	if len(ts) != 1 || ts[0].S != cnv("a") {
		t.Errorf("ParseString returned %v", ts)
	}
	if _, err := ns.Expand("rdfs:label"); err != nil {
		t.Errorf("seeded namespaces should be returned: %v", err)
	}
	if _, _, err := ParseString(`@prefix foo: <http://foo/> . foo:a foo:p foo:b .`, WithNamespaces(base)); err != nil {
		t.Fatal(err)
	}
	if _, ok := base.Lookup("foo"); ok {
		t.Errorf("document declarations leaked into the seeded table")
	}
}

func TestParseBase(t *testing.T) {
	doc := `<a> <#p> <http://example.org/abs> .
@base <http://other.org/> .
<b> <p> "v" .
`
	ts, _, err := ParseString(doc, WithBase("http://example.org/doc/"))
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}
	want := []triple.Triple{
		triple.Must(triple.NewURI("http://example.org/doc/a"), triple.NewURI("http://example.org/doc/#p"), triple.NewURI("http://example.org/abs")),
		triple.Must(triple.NewURI("http://other.org/b"), triple.NewURI("http://other.org/p"), triple.NewLiteral("v")),
	}
	if len(ts) != len(want) {
		t.Fatalf("ParseString returned %v; want %v", ts, want)
	}
	for i := range want {
		if ts[i] != want[i] {
			t.Errorf("triple %d = %v; want %v", i, ts[i], want[i])
		}
	}
	ts, _, err = ParseString(`<a> <p> <o> .`)
	if err != nil {
		t.Fatal(err)
	}
	if got := ts[0].S; got != triple.NewURI("a") {
		t.Errorf("without a base the IRI should be kept as is; got %v", got)
	}
}

func TestParseErrors(t *testing.T) {
	table := []struct {
		doc       string
		line, col int
	}{
		{`cnv:a cnv:p cnv:b .`, 1, 1},
		{"@prefix cnv: <https://cnv.dev/ontology#> .\ncnv:a cnv:p cnv:b", 2, 18},
		{`@prefix cnv: <https://cnv.dev/ontology#> . cnv:a cnv:p "open .`, 1, 56},
		{`<http://a> <http://p> .`, 1, 23},
		{`<http://a> "lit" <http://b> .`, 1, 12},
		{`"lit" <http://p> <http://b> .`, 1, 1},
		{`<http://a> <http://p> <http://b`, 1, 23},
		{`@prefix ex: <http://x/> . @prefix ex: <http://y/> .`, 1, 35},
		{`<http://a> <http://p> ( <http://b> ) .`, 1, 23},
		{`<http://a> <http://p> 1.5e .`, 1, 23},
	}
	for _, entry := range table {
		_, _, err := ParseString(entry.doc)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("ParseString(%q) returned %v; want a *ParseError", entry.doc, err)
			continue
		}
		if pe.Line != entry.line || pe.Col != entry.col {
			t.Errorf("ParseString(%q) failed at %d:%d; want %d:%d (%v)", entry.doc, pe.Line, pe.Col, entry.line, entry.col, pe)
		}
	}
}

func TestUnknownPrefixIsWrapped(t *testing.T) {
	_, _, err := ParseString(`foo:a foo:p foo:b .`)
	var upe *namespace.UnknownPrefixError
	if !errors.As(err, &upe) || upe.Prefix != "foo" {
		t.Errorf("ParseString should wrap the unknown prefix error; got %v", err)
	}
}
