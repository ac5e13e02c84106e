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

package planner

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/nounverb/cnvq/sparql/grammar"
	"github.com/nounverb/cnvq/sparql/semantic"
	"github.com/nounverb/cnvq/sparql/table"
	"github.com/nounverb/cnvq/storage/memory"
	"github.com/nounverb/cnvq/triple"
	"github.com/nounverb/cnvq/triple/namespace"
)

func cnv(local string) triple.Value {
	return triple.NewURI(namespace.CNV + local)
}

var rdfType = triple.NewURI(namespace.RDFType)

func populate(t *testing.T, ts ...triple.Triple) *memory.Store {
	t.Helper()
	s := memory.NewStore(nil)
	if _, err := s.Insert(context.Background(), ts...); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	return s
}

// testStore returns a small command ontology with two nouns and three verbs.
func testStore(t *testing.T) *memory.Store {
	t.Helper()
	return populate(t,
		triple.Must(cnv("Services"), rdfType, cnv("Noun")),
		triple.Must(cnv("Services"), cnv("name"), triple.NewLiteral("services")),
		triple.Must(cnv("Nodes"), rdfType, cnv("Noun")),
		triple.Must(cnv("Nodes"), cnv("name"), triple.NewLiteral("nodes")),
		triple.Must(cnv("ServicesStatus"), rdfType, cnv("Verb")),
		triple.Must(cnv("ServicesStatus"), cnv("name"), triple.NewLiteral("status")),
		triple.Must(cnv("ServicesStatus"), cnv("hasNoun"), cnv("Services")),
		triple.Must(cnv("ServicesStatus"), cnv("description"), triple.NewLiteral("Show the Status of a service")),
		triple.Must(cnv("ServicesRestart"), rdfType, cnv("Verb")),
		triple.Must(cnv("ServicesRestart"), cnv("name"), triple.NewLiteral("restart")),
		triple.Must(cnv("ServicesRestart"), cnv("hasNoun"), cnv("Services")),
		triple.Must(cnv("NodesList"), rdfType, cnv("Verb")),
		triple.Must(cnv("NodesList"), cnv("name"), triple.NewLiteral("list")),
		triple.Must(cnv("NodesList"), cnv("hasNoun"), cnv("Nodes")),
		triple.Must(cnv("NodesList"), cnv("description"), triple.NewLiteral("List the cluster nodes")),
	)
}

func parse(t *testing.T, q string) *semantic.Query {
	t.Helper()
	pq, err := grammar.Parse(q, grammar.WithNamespaces(namespace.Default()))
	if err != nil {
		t.Fatalf("grammar.Parse(%q) failed: %v", q, err)
	}
	return pq
}

func run(t *testing.T, s *memory.Store, q string, opts ...Option) *table.Table {
	t.Helper()
	p, err := New(s, parse(t, q), opts...)
	if err != nil {
		t.Fatalf("New(%q) failed: %v", q, err)
	}
	tbl, err := p.Execute(context.Background(), s)
	if err != nil {
		t.Fatalf("Execute(%q) failed: %v", q, err)
	}
	return tbl
}

// column returns the lexical forms bound to the variable, using "" for
// unbound cells.
func column(tbl *table.Table, v string) []string {
	var res []string
	for _, r := range tbl.Rows() {
		res = append(res, r[v].Lexical())
	}
	return res
}

func TestJoin(t *testing.T) {
	s := testStore(t)
	for _, opts := range [][]Option{nil, {WithJoinThreshold(1)}} {
		tbl := run(t, s, `SELECT ?verbName WHERE {
			?noun cnv:name "services" .
			?verb cnv:hasNoun ?noun .
			?verb cnv:name ?verbName .
		} ORDER BY ?verbName`, opts...)
		if got, want := column(tbl, "verbName"), []string{"restart", "status"}; !reflect.DeepEqual(got, want) {
			t.Errorf("join returned %v; want %v", got, want)
		}
		if got, want := tbl.Bindings(), []string{"verbName"}; !reflect.DeepEqual(got, want) {
			t.Errorf("join bindings %v; want %v", got, want)
		}
	}
}

func TestOptionalNeverDropsRows(t *testing.T) {
	s := testStore(t)
	without := run(t, s, `SELECT ?verb WHERE { ?verb a cnv:Verb }`)
	with := run(t, s, `SELECT ?verb ?desc WHERE { ?verb a cnv:Verb . OPTIONAL { ?verb cnv:description ?desc } }`)
	if got, want := with.NumRows(), without.NumRows(); got != want {
		t.Fatalf("OPTIONAL returned %d rows; want %d", got, want)
	}
	unbound := 0
	for _, r := range with.Rows() {
		if _, ok := r["desc"]; !ok {
			unbound++
			if got, want := r["verb"], cnv("ServicesRestart"); got != want {
				t.Errorf("unexpected row without description %v", r)
			}
		}
	}
	if unbound != 1 {
		t.Errorf("got %d rows without description; want 1", unbound)
	}
}

func TestOptionalWithFilter(t *testing.T) {
	s := testStore(t)
	tbl := run(t, s, `SELECT ?verb ?desc WHERE {
		?verb a cnv:Verb .
		OPTIONAL { ?verb cnv:description ?desc FILTER(CONTAINS(?desc, "cluster")) }
	}`)
	if got, want := tbl.NumRows(), 3; got != want {
		t.Fatalf("got %d rows; want %d", got, want)
	}
	bound := 0
	for _, r := range tbl.Rows() {
		if _, ok := r["desc"]; ok {
			bound++
		}
	}
	if bound != 1 {
		t.Errorf("got %d bound descriptions; want 1", bound)
	}
}

func TestUnion(t *testing.T) {
	s := testStore(t)
	tbl := run(t, s, `SELECT ?x WHERE { { ?x a cnv:Noun } UNION { ?x a cnv:Verb } }`)
	if got, want := tbl.NumRows(), 5; got != want {
		t.Errorf("UNION returned %d rows; want %d", got, want)
	}
}

func TestFilterUnboundIsFalse(t *testing.T) {
	s := testStore(t)
	tbl := run(t, s, `SELECT ?verb WHERE {
		?verb a cnv:Verb .
		OPTIONAL { ?verb cnv:description ?desc }
		FILTER(CONTAINS(LCASE(?desc), "status"))
	}`)
	if got, want := column(tbl, "verb"), []string{namespace.CNV + "ServicesStatus"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v; want %v", got, want)
	}
}

func TestStatusScenario(t *testing.T) {
	s := testStore(t)
	tbl := run(t, s, `SELECT ?nounName ?verbName WHERE {
		?verb a cnv:Verb ; cnv:name ?verbName ; cnv:hasNoun ?noun .
		?noun cnv:name ?nounName .
		FILTER(CONTAINS(LCASE(?verbName), "status"))
	}`)
	if got, want := tbl.NumRows(), 1; got != want {
		t.Fatalf("got %d rows; want %d:\n%s", got, want, tbl)
	}
	r, _ := tbl.Row(0)
	if got, want := r["nounName"].Lexical()+" "+r["verbName"].Lexical(), "services status"; got != want {
		t.Errorf("got %q; want %q", got, want)
	}
}

func TestPropertyPathCycles(t *testing.T) {
	s := populate(t,
		triple.Must(cnv("a"), cnv("p"), cnv("b")),
		triple.Must(cnv("b"), cnv("p"), cnv("a")),
	)
	table := []struct {
		q    string
		want []string
	}{
		{`SELECT ?x WHERE { cnv:a cnv:p* ?x }`, []string{"a", "b"}},
		{`SELECT ?x WHERE { cnv:a cnv:p+ ?x }`, []string{"a", "b"}},
		{`SELECT ?x WHERE { cnv:a cnv:p? ?x }`, []string{"a", "b"}},
		{`SELECT ?x WHERE { cnv:a cnv:p/cnv:p ?x }`, []string{"a"}},
		{`SELECT ?x WHERE { cnv:a ^cnv:p ?x }`, []string{"b"}},
		{`SELECT ?x WHERE { ?x cnv:p+ cnv:b }`, []string{"a", "b"}},
	}
	for _, entry := range table {
		tbl := run(t, s, entry.q)
		var got []string
		for _, v := range column(tbl, "x") {
			got = append(got, strings.TrimPrefix(v, namespace.CNV))
		}
		sort.Strings(got)
		if !reflect.DeepEqual(got, entry.want) {
			t.Errorf("%s returned %v; want %v", entry.q, got, entry.want)
		}
	}
}

func TestPropertyPathBothEndsUnbound(t *testing.T) {
	s := populate(t,
		triple.Must(cnv("a"), cnv("p"), cnv("b")),
		triple.Must(cnv("b"), cnv("p"), cnv("c")),
	)
	tbl := run(t, s, `SELECT ?x ?y WHERE { ?x cnv:p+ ?y }`)
	if got, want := tbl.NumRows(), 3; got != want {
		t.Errorf("got %d rows; want %d:\n%s", got, want, tbl)
	}
}

func TestPropertyPathDepth(t *testing.T) {
	var ts []triple.Triple
	for i := 0; i < 10; i++ {
		ts = append(ts, triple.Must(cnv(fmt.Sprintf("n%d", i)), cnv("next"), cnv(fmt.Sprintf("n%d", i+1))))
	}
	s := populate(t, ts...)
	tbl := run(t, s, `SELECT ?x WHERE { cnv:n0 cnv:next+ ?x }`, WithMaxPathDepth(3))
	if got, want := tbl.NumRows(), 3; got != want {
		t.Errorf("depth limited closure returned %d rows; want %d", got, want)
	}
}

func TestAggregates(t *testing.T) {
	s := testStore(t)
	tbl := run(t, s, `SELECT (COUNT(?verb) AS ?n) WHERE { ?verb a cnv:Verb }`)
	r, ok := tbl.Row(0)
	if !ok || tbl.NumRows() != 1 {
		t.Fatalf("COUNT returned %d rows; want 1", tbl.NumRows())
	}
	if got, want := r["n"], triple.NewInteger(3); got != want {
		t.Errorf("COUNT = %v; want %v", got, want)
	}

	tbl = run(t, s, `SELECT ?noun (COUNT(?verb) AS ?n) WHERE { ?verb cnv:hasNoun ?noun } GROUP BY ?noun ORDER BY DESC(?n)`)
	if got, want := column(tbl, "n"), []string{"2", "1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("grouped COUNT = %v; want %v", got, want)
	}

	tbl = run(t, s, `SELECT (COUNT(*) AS ?n) WHERE { ?verb a cnv:Dragon }`)
	if got, want := column(tbl, "n"), []string{"0"}; !reflect.DeepEqual(got, want) {
		t.Errorf("COUNT over no solutions = %v; want %v", got, want)
	}
}

func TestNumericAggregates(t *testing.T) {
	s := populate(t,
		triple.Must(cnv("a"), cnv("size"), triple.NewInteger(1)),
		triple.Must(cnv("b"), cnv("size"), triple.NewInteger(2)),
		triple.Must(cnv("c"), cnv("size"), triple.NewInteger(6)),
		triple.Must(cnv("d"), cnv("size"), triple.NewLiteral("huge")),
	)
	table := []struct {
		agg  string
		want triple.Value
	}{
		{"SUM(?v)", triple.NewInteger(9)},
		{"AVG(?v)", triple.NewDecimal(3)},
		{"MIN(?v)", triple.NewInteger(1)},
		{"COUNT(DISTINCT ?v)", triple.NewInteger(4)},
	}
	for _, entry := range table {
		tbl := run(t, s, fmt.Sprintf(`SELECT (%s AS ?r) WHERE { ?x cnv:size ?v }`, entry.agg))
		r, _ := tbl.Row(0)
		if got := r["r"]; got != entry.want {
			t.Errorf("%s = %v; want %v", entry.agg, got, entry.want)
		}
	}
}

func TestUngroupedVariable(t *testing.T) {
	s := testStore(t)
	_, err := New(s, parse(t, `SELECT ?verb (COUNT(?noun) AS ?n) WHERE { ?verb cnv:hasNoun ?noun }`))
	var ee *ExecutionError
	if !errors.As(err, &ee) {
		t.Errorf("New should have failed with an ExecutionError; got %v", err)
	}
}

func TestModifiers(t *testing.T) {
	s := testStore(t)
	table := []struct {
		q    string
		want []string
	}{
		{`SELECT ?n WHERE { ?x cnv:name ?n } ORDER BY ?n LIMIT 2`, []string{"list", "nodes"}},
		{`SELECT ?n WHERE { ?x cnv:name ?n } ORDER BY DESC(?n) OFFSET 1 LIMIT 2`, []string{"services", "restart"}},
		{`SELECT ?n WHERE { ?x cnv:name ?n } ORDER BY ?n OFFSET 10`, nil},
		{`SELECT DISTINCT ?t WHERE { ?x a ?t } ORDER BY ?t`, []string{namespace.CNV + "Noun", namespace.CNV + "Verb"}},
	}
	for _, entry := range table {
		tbl := run(t, s, entry.q)
		v := tbl.Bindings()[0]
		if got := column(tbl, v); !reflect.DeepEqual(got, entry.want) {
			t.Errorf("%s returned %v; want %v", entry.q, got, entry.want)
		}
	}
}

func TestStreamingLimit(t *testing.T) {
	s := testStore(t)
	tbl := run(t, s, `SELECT ?x WHERE { ?x ?p ?o } LIMIT 2`)
	if got, want := tbl.NumRows(), 2; got != want {
		t.Errorf("LIMIT returned %d rows; want %d", got, want)
	}
}

func chain(t *testing.T, n int) *memory.Store {
	t.Helper()
	ts := make([]triple.Triple, 0, n)
	for i := 0; i < n; i++ {
		ts = append(ts, triple.Must(cnv(fmt.Sprintf("n%d", i)), cnv("next"), cnv(fmt.Sprintf("n%d", i+1))))
	}
	return populate(t, ts...)
}

func TestTimeoutReturnsPartialResults(t *testing.T) {
	s := chain(t, 5000)
	q := parse(t, `SELECT ?x ?y WHERE { ?x cnv:next* ?y }`)
	p, err := New(s, q, WithTimeout(time.Millisecond), WithMaxPathDepth(5000))
	if err != nil {
		t.Fatal(err)
	}
	tbl, err := p.Execute(context.Background(), s)
	if err != nil {
		t.Fatalf("Execute should not fail on timeouts; got %v", err)
	}
	if !tbl.Partial() {
		t.Errorf("Execute should have flagged the result as partial")
	}
	for _, r := range tbl.Rows() {
		if _, ok := r["x"]; !ok {
			t.Fatalf("partial row %v is missing ?x", r)
		}
		if _, ok := r["y"]; !ok {
			t.Fatalf("partial row %v is missing ?y", r)
		}
	}
}

func TestCancelledContext(t *testing.T) {
	s := chain(t, 1000)
	p, err := New(s, parse(t, `SELECT ?x ?y WHERE { ?x cnv:next* ?y }`))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Execute(ctx, s); !errors.Is(err, context.Canceled) {
		t.Errorf("Execute on a cancelled context returned %v; want %v", err, context.Canceled)
	}
}

func TestOptimizerOrder(t *testing.T) {
	s := testStore(t)
	q := parse(t, `SELECT ?verbName WHERE {
		?verb cnv:name ?verbName .
		?verb cnv:hasNoun ?noun .
		?noun cnv:name "services" .
	}`)
	p, err := New(s, q)
	if err != nil {
		t.Fatal(err)
	}
	first := p.Root().Steps[0].Pattern
	if first.Object.IsVar() {
		t.Errorf("optimizer should start with the most selective pattern; got %v\n%s", first, p)
	}

	empty := memory.NewStore(nil)
	p, err = New(empty, q)
	if err != nil {
		t.Fatal(err)
	}
	for i, st := range p.Root().Steps {
		if got, want := st.Pattern, q.Where.Elements[i]; got != want {
			t.Errorf("without statistics step %d = %v; want %v", i, got, want)
		}
	}
}

func TestChooseJoinMethod(t *testing.T) {
	o := &optimizer{threshold: 10}
	table := []struct {
		left, right int
		want        JoinMethod
	}{
		{1, 5, NestedLoop},
		{9, 9, NestedLoop},
		{1, 20, HashJoin},
		{20, 1, HashJoin},
	}
	for _, entry := range table {
		if got := o.chooseJoinMethod(entry.left, entry.right); got != entry.want {
			t.Errorf("chooseJoinMethod(%d, %d) = %v; want %v", entry.left, entry.right, got, entry.want)
		}
	}
}

func TestHashJoinPlan(t *testing.T) {
	s := testStore(t)
	p, err := New(s, parse(t, `SELECT ?v WHERE { ?v a cnv:Verb . ?v cnv:name ?n }`), WithJoinThreshold(1))
	if err != nil {
		t.Fatal(err)
	}
	steps := p.Root().Steps
	if got, want := steps[len(steps)-1].Join, HashJoin; got != want {
		t.Errorf("last step join = %v; want %v", got, want)
	}
	if got, want := steps[len(steps)-1].Keys, []string{"v"}; !reflect.DeepEqual(got, want) {
		t.Errorf("hash join keys = %v; want %v", got, want)
	}
	if !strings.Contains(p.String(), "hash-join on ?v") {
		t.Errorf("plan listing is missing the hash join:\n%s", p)
	}
}

func TestTracer(t *testing.T) {
	s := testStore(t)
	var b strings.Builder
	run(t, s, `SELECT ?x WHERE { ?x cnv:hasNoun/cnv:name "services" }`, WithTracer(&b))
	for _, want := range []string{"executing plan", "memoization hits=", "returned 2 rows"} {
		if !strings.Contains(b.String(), want) {
			t.Errorf("trace is missing %q:\n%s", want, b.String())
		}
	}
}
