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

// Package compliance validates the query engine behavior against stories. A
// story is a collection of Turtle sources and a sequence of assertions
// against the data they define. An assertion is defined by a tuple
// containing a query, the execution status, and the expected result rows.
package compliance

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/nounverb/cnvq/sparql/table"
	"github.com/nounverb/cnvq/triple"
	"github.com/nounverb/cnvq/triple/namespace"
	"github.com/nounverb/cnvq/turtle"
)

// Source contains a named Turtle document.
type Source struct {
	// ID of the source, used in error messages.
	ID string

	// Facts contains the Turtle statements that define the source.
	Facts []string
}

// Document returns the Turtle document of the source.
func (s *Source) Document() string {
	return strings.Join(s.Facts, "\n")
}

// Assertion contains a query, the expected status of its execution, and the
// returned rows.
type Assertion struct {
	// Requires describes what the assertion checks.
	Requires string

	// Statement contains the query to assert.
	Statement string

	// WillFail indicates if the query should fail with an error.
	WillFail bool

	// MustReturn contains the expected rows in order. Values are Turtle
	// terms; anything else is taken as a plain literal.
	MustReturn []map[string]string
}

// Story contains the available sources and the collection of assertions to
// validate.
type Story struct {
	// Name of the story.
	Name string

	// Sources contains the Turtle documents loaded before the assertions run.
	Sources []*Source

	// Assertions that need to be validated against the provided sources.
	Assertions []*Assertion
}

// Marshal serializes the story into a JSON readable string.
func (s *Story) Marshal() (string, error) {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Unmarshal rebuilds a story from a JSON readable string.
func (s *Story) Unmarshal(ss string) error {
	return json.Unmarshal([]byte(ss), s)
}

// ReadStories decodes a JSON array of stories.
func ReadStories(r io.Reader) ([]*Story, error) {
	var ss []*Story
	if err := json.NewDecoder(r).Decode(&ss); err != nil {
		return nil, fmt.Errorf("compliance.ReadStories: %w", err)
	}
	return ss, nil
}

// inferCell builds a value out of the provided string.
func inferCell(s string, ns *namespace.Table) triple.Value {
	doc := fmt.Sprintf("<urn:cell> <urn:value> %s .", s)
	if ts, _, err := turtle.ParseString(doc, turtle.WithNamespaces(ns)); err == nil && len(ts) == 1 {
		return ts[0].O
	}
	return triple.NewLiteral(s)
}

// OutputTable returns the expected result table for the rows provided by the
// assertion. Bindings may be written with or without the leading '?'.
func (a *Assertion) OutputTable(bs []string, ns *namespace.Table) (*table.Table, error) {
	t, err := table.New(bs)
	if err != nil {
		return nil, err
	}
	for _, row := range a.MustReturn {
		nr := table.Row{}
		for k, v := range row {
			k = strings.TrimPrefix(k, "?")
			if !t.HasBinding(k) {
				return nil, fmt.Errorf("unknown binding %q; available ones are %v", k, bs)
			}
			nr[k] = inferCell(v, ns)
		}
		t.AddRow(nr)
	}
	return t, nil
}
