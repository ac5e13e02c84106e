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

// Package namespace implements prefix tables used to expand and compact IRIs.
package namespace

import (
	"fmt"
	"strings"
)

// Well known namespaces.
const (
	RDF  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFS = "http://www.w3.org/2000/01/rdf-schema#"
	XSD  = "http://www.w3.org/2001/XMLSchema#"
	CNV  = "https://cnv.dev/ontology#"
)

// RDFType is the IRI abbreviated as "a" in queries and Turtle documents.
const RDFType = RDF + "type"

// UnknownPrefixError is returned when a prefixed name uses a prefix that was
// never declared.
type UnknownPrefixError struct {
	Prefix string
}

// Error returns a readable version of the error.
func (e *UnknownPrefixError) Error() string {
	return fmt.Sprintf("unknown prefix %q", e.Prefix)
}

// Binding is a single prefix declaration.
type Binding struct {
	Prefix string
	IRI    string
}

// Table maps prefixes to namespace IRIs. Declarations are kept in the order
// they were added. The zero value is an empty table ready to use.
type Table struct {
	order []string
	iris  map[string]string
}

// New returns an empty table.
func New() *Table {
	return &Table{iris: make(map[string]string)}
}

// Default returns a table holding the rdf, rdfs, xsd and cnv prefixes.
func Default() *Table {
	t := New()
	for _, b := range []Binding{{"rdf", RDF}, {"rdfs", RDFS}, {"xsd", XSD}, {"cnv", CNV}} {
		t.add(b.Prefix, b.IRI)
	}
	return t
}

func (t *Table) add(prefix, iri string) {
	if t.iris == nil {
		t.iris = make(map[string]string)
	}
	t.order = append(t.order, prefix)
	t.iris[prefix] = iri
}

// Add declares a prefix. Declaring the same binding twice is a no-op;
// rebinding a prefix to a different IRI fails.
func (t *Table) Add(prefix, iri string) error {
	if strings.ContainsAny(prefix, ": \t\n") {
		return fmt.Errorf("namespace.Add: invalid prefix %q", prefix)
	}
	if iri == "" {
		return fmt.Errorf("namespace.Add: empty IRI for prefix %q", prefix)
	}
	if old, ok := t.iris[prefix]; ok {
		if old == iri {
			return nil
		}
		return fmt.Errorf("namespace.Add: prefix %q already bound to <%s>, cannot rebind to <%s>", prefix, old, iri)
	}
	t.add(prefix, iri)
	return nil
}

// Lookup returns the IRI bound to the prefix.
func (t *Table) Lookup(prefix string) (string, bool) {
	iri, ok := t.iris[prefix]
	return iri, ok
}

// Expand turns a prefixed name such as "cnv:Command" into a full IRI.
func (t *Table) Expand(prefixed string) (string, error) {
	idx := strings.Index(prefixed, ":")
	if idx < 0 {
		return "", fmt.Errorf("namespace.Expand: %q is not a prefixed name", prefixed)
	}
	iri, ok := t.iris[prefixed[:idx]]
	if !ok {
		return "", &UnknownPrefixError{Prefix: prefixed[:idx]}
	}
	return iri + prefixed[idx+1:], nil
}

// Compact returns the prefixed form of the IRI using the longest matching
// namespace. The boolean is false when no namespace matches or the local
// part could not be written as a prefixed name.
func (t *Table) Compact(iri string) (string, bool) {
	best, bestNS, found := "", "", false
	for _, p := range t.order {
		ns := t.iris[p]
		if !strings.HasPrefix(iri, ns) || (found && len(ns) <= len(bestNS)) {
			continue
		}
		if validLocal(iri[len(ns):]) {
			best, bestNS, found = p, ns, true
		}
	}
	if !found {
		return "", false
	}
	return best + ":" + iri[len(bestNS):], true
}

// validLocal reports if the local part can be emitted without escaping.
func validLocal(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		case (r == '-' || r == '.') && i > 0 && i < len(s)-1:
		default:
			return false
		}
	}
	return true
}

// Bindings returns the declarations in the order they were added.
func (t *Table) Bindings() []Binding {
	res := make([]Binding, 0, len(t.order))
	for _, p := range t.order {
		res = append(res, Binding{Prefix: p, IRI: t.iris[p]})
	}
	return res
}

// Len returns the number of declared prefixes.
func (t *Table) Len() int {
	return len(t.order)
}

// Clone returns an independent copy of the table.
func (t *Table) Clone() *Table {
	c := New()
	if t == nil {
		return c
	}
	for _, p := range t.order {
		c.add(p, t.iris[p])
	}
	return c
}

// Merge adds all the declarations of o not yet present in t. Conflicting
// declarations fail.
func (t *Table) Merge(o *Table) error {
	if o == nil {
		return nil
	}
	for _, b := range o.Bindings() {
		if err := t.Add(b.Prefix, b.IRI); err != nil {
			return err
		}
	}
	return nil
}
