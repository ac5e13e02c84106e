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

package table

import (
	"encoding/json"
	"testing"

	"github.com/nounverb/cnvq/triple"
)

var (
	vA  = triple.NewLiteral("a")
	vB  = triple.NewLiteral("b")
	v1  = triple.NewInteger(1)
	v2  = triple.NewInteger(2)
	v10 = triple.NewInteger(10)
)

func TestNew(t *testing.T) {
	if _, err := New([]string{"a", "b"}); err != nil {
		t.Errorf("New should never fail for unique bindings; %v", err)
	}
	if _, err := New([]string{"a", "a"}); err == nil {
		t.Errorf("New should fail for duplicated bindings")
	}
}

func TestCompatible(t *testing.T) {
	table := []struct {
		a, b Row
		want bool
	}{
		{Row{"x": vA}, Row{"x": vA, "y": vB}, true},
		{Row{"x": vA}, Row{"x": vB}, false},
		{Row{"x": vA}, Row{"y": vB}, true},
		{Row{}, Row{"y": vB}, true},
	}
	for _, entry := range table {
		if got := Compatible(entry.a, entry.b); got != entry.want {
			t.Errorf("Compatible(%v, %v) = %v; want %v", entry.a, entry.b, got, entry.want)
		}
	}
}

func TestMergeRows(t *testing.T) {
	r := MergeRows(Row{"x": vA}, Row{"y": vB})
	if len(r) != 2 || r["x"] != vA || r["y"] != vB {
		t.Errorf("MergeRows returned %v", r)
	}
}

func TestProjectBindings(t *testing.T) {
	tbl, _ := New([]string{"x", "y"})
	tbl.AddRow(Row{"x": vA, "y": vB})
	tbl.ProjectBindings([]string{"y", "z"})
	if got := tbl.Bindings(); len(got) != 2 || got[0] != "y" || got[1] != "z" {
		t.Errorf("Bindings() = %v; want [y z]", got)
	}
	r, _ := tbl.Row(0)
	if _, ok := r["x"]; ok {
		t.Errorf("projected row should not contain x; %v", r)
	}
	if _, ok := r["z"]; ok {
		t.Errorf("projected row should leave z unbound; %v", r)
	}
}

func TestSort(t *testing.T) {
	tbl, _ := New([]string{"n", "s"})
	tbl.AddRow(Row{"n": v10, "s": vA})
	tbl.AddRow(Row{"n": v2, "s": vB})
	tbl.AddRow(Row{"s": vA})
	tbl.AddRow(Row{"n": v1, "s": vA})
	tbl.Sort(SortConfig{{Binding: "n"}})
	want := []string{"", "1", "2", "10"}
	for i, r := range tbl.Rows() {
		got := ""
		if v, ok := r["n"]; ok {
			got = v.Lexical()
		}
		if got != want[i] {
			t.Errorf("row %d after ascending sort = %q; want %q", i, got, want[i])
		}
	}
	tbl.Sort(SortConfig{{Binding: "s", Desc: true}})
	if r, _ := tbl.Row(0); r["s"] != vB {
		t.Errorf("descending sort should put %v first; got %v", vB, r)
	}
	if r, _ := tbl.Row(1); r["n"] != (triple.Value{}) {
		t.Errorf("sort should be stable; got %v", r)
	}
}

func TestDistinctAndSlice(t *testing.T) {
	tbl, _ := New([]string{"x"})
	for _, v := range []triple.Value{vA, vB, vA, vB, v1} {
		tbl.AddRow(Row{"x": v})
	}
	tbl.AddRow(Row{})
	tbl.AddRow(Row{})
	tbl.Distinct()
	if got, want := tbl.NumRows(), 4; got != want {
		t.Fatalf("Distinct left %d rows; want %d", got, want)
	}
	tbl.Slice(1, 2)
	if got, want := tbl.NumRows(), 2; got != want {
		t.Fatalf("Slice(1, 2) left %d rows; want %d", got, want)
	}
	if r, _ := tbl.Row(0); r["x"] != vB {
		t.Errorf("Slice(1, 2) first row = %v; want %v", r, vB)
	}
	tbl.Slice(5, -1)
	if tbl.NumRows() != 0 {
		t.Errorf("Slice beyond the end should remove every row")
	}
}

func TestCloneIsDeep(t *testing.T) {
	tbl, _ := New([]string{"x"})
	tbl.AddRow(Row{"x": vA})
	tbl.SetPartial(true)
	c := tbl.Clone()
	c.Rows()[0]["x"] = vB
	if r, _ := tbl.Row(0); r["x"] != vA {
		t.Errorf("mutating a clone changed the original table")
	}
	if !c.Partial() {
		t.Errorf("Clone should preserve the partial flag")
	}
}

func TestToTextAndJSON(t *testing.T) {
	tbl, _ := New([]string{"x", "y"})
	tbl.AddRow(Row{"x": triple.NewURI("http://e/a"), "y": v2})
	tbl.AddRow(Row{"x": vA})
	if got, want := tbl.String(), "x\ty\nhttp://e/a\t2\na\t<NULL>\n"; got != want {
		t.Errorf("String() = %q; want %q", got, want)
	}
	b, err := tbl.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Variables []string
		Rows      []map[string]string
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Rows) != 2 || doc.Rows[0]["y"] != "2" || doc.Rows[1]["x"] != "a" {
		t.Errorf("ToJSON returned unexpected rows %s", b)
	}
}
