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

package namespace

import (
	"errors"
	"testing"
)

func TestDefault(t *testing.T) {
	tbl := Default()
	for _, p := range []string{"rdf", "rdfs", "xsd", "cnv"} {
		if _, ok := tbl.Lookup(p); !ok {
			t.Errorf("Default() is missing prefix %q", p)
		}
	}
	if got, want := tbl.Len(), 4; got != want {
		t.Errorf("Default().Len() = %d; want %d", got, want)
	}
}

func TestAdd(t *testing.T) {
	tbl := New()
	if err := tbl.Add("ex", "http://example.org/"); err != nil {
		t.Fatalf("Add should never fail for a fresh prefix; %v", err)
	}
	if err := tbl.Add("ex", "http://example.org/"); err != nil {
		t.Errorf("Add with the same binding should be a no-op; %v", err)
	}
	if err := tbl.Add("ex", "http://other.org/"); err == nil {
		t.Errorf("Add should fail when rebinding a prefix")
	}
	if err := tbl.Add("bad:prefix", "http://other.org/"); err == nil {
		t.Errorf("Add should reject prefixes containing ':'")
	}
	var zero Table
	if err := zero.Add("z", "http://z/"); err != nil {
		t.Errorf("zero Table should be usable; %v", err)
	}
}

func TestExpand(t *testing.T) {
	tbl := Default()
	got, err := tbl.Expand("cnv:Command")
	if err != nil {
		t.Fatalf("Expand failed; %v", err)
	}
	if want := CNV + "Command"; got != want {
		t.Errorf("Expand returned %q; want %q", got, want)
	}
	_, err = tbl.Expand("foo:bar")
	var upe *UnknownPrefixError
	if !errors.As(err, &upe) || upe.Prefix != "foo" {
		t.Errorf("Expand(foo:bar) should fail with an unknown prefix error; got %v", err)
	}
	if _, err := tbl.Expand("noprefix"); err == nil {
		t.Errorf("Expand(noprefix) should have failed")
	}
}

func TestCompact(t *testing.T) {
	tbl := New()
	tbl.Add("ex", "http://example.org/")
	tbl.Add("exv", "http://example.org/vocab#")
	tbl.Add("", "http://default.org/")
	table := []struct {
		iri  string
		want string
		ok   bool
	}{
		{"http://example.org/thing", "ex:thing", true},
		{"http://example.org/vocab#Prop", "exv:Prop", true},
		{"http://default.org/x", ":x", true},
		{"http://example.org/has space", "", false},
		{"http://unknown.org/x", "", false},
		{"http://example.org/", "", false},
	}
	for _, entry := range table {
		got, ok := tbl.Compact(entry.iri)
		if got != entry.want || ok != entry.ok {
			t.Errorf("Compact(%q) = (%q, %v); want (%q, %v)", entry.iri, got, ok, entry.want, entry.ok)
		}
	}
}

func TestCloneAndMerge(t *testing.T) {
	a := Default()
	b := a.Clone()
	b.Add("ex", "http://example.org/")
	if _, ok := a.Lookup("ex"); ok {
		t.Errorf("Clone should return an independent table")
	}
	if err := a.Merge(b); err != nil {
		t.Fatalf("Merge failed; %v", err)
	}
	bs := a.Bindings()
	if got, want := bs[len(bs)-1].Prefix, "ex"; got != want {
		t.Errorf("Merge should append new prefixes in order; got %q, want %q", got, want)
	}
	c := New()
	c.Add("ex", "http://elsewhere.org/")
	if err := a.Merge(c); err == nil {
		t.Errorf("Merge should fail on conflicting declarations")
	}
}
