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

// Package testutil implements utility functions used in testing.
package testutil

import (
	"context"
	"strings"
	"testing"

	"github.com/nounverb/cnvq/sparql/grammar"
	"github.com/nounverb/cnvq/sparql/semantic"
	"github.com/nounverb/cnvq/storage/memory"
	"github.com/nounverb/cnvq/triple"
	"github.com/nounverb/cnvq/triple/namespace"
	"github.com/nounverb/cnvq/turtle"
)

// MustParseTurtle parses the Turtle document or makes the given test to fail.
// The default prefixes are available to the document.
func MustParseTurtle(t *testing.T, doc string) ([]triple.Triple, *namespace.Table) {
	t.Helper()
	ts, ns, err := turtle.ParseString(doc, turtle.WithNamespaces(namespace.Default()))
	if err != nil {
		t.Fatalf("could not parse Turtle document, got error: %v", err)
	}
	return ts, ns
}

// MustBuildStore returns a store holding the triples of the Turtle document
// or makes the given test to fail. The store knows the document prefixes.
func MustBuildStore(t *testing.T, doc string) *memory.Store {
	t.Helper()
	ts, ns := MustParseTurtle(t, doc)
	s := memory.NewStore(ns)
	if _, err := s.Insert(context.Background(), ts...); err != nil {
		t.Fatalf("could not insert %d triples, got error: %v", len(ts), err)
	}
	return s
}

// MustParseQuery parses the query against the default namespaces or makes the
// given test to fail.
func MustParseQuery(t *testing.T, query string) *semantic.Query {
	t.Helper()
	q, err := grammar.Parse(strings.TrimSpace(query), grammar.WithNamespaces(namespace.Default()))
	if err != nil {
		t.Fatalf("could not parse query %q, got error: %v", query, err)
	}
	return q
}

// MustExpand expands the prefixed name using the default namespaces or makes
// the given test to fail.
func MustExpand(t *testing.T, prefixed string) triple.Value {
	t.Helper()
	iri, err := namespace.Default().Expand(prefixed)
	if err != nil {
		t.Fatalf("could not expand %q, got error: %v", prefixed, err)
	}
	return triple.NewURI(iri)
}
