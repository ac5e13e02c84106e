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

// Package triple implements the RDF terms and triples stored by the engine.
package triple

import (
	"fmt"
)

// Triple is an RDF statement. Subjects are IRIs or blank nodes, predicates
// are IRIs and objects may be any term.
type Triple struct {
	S Value
	P Value
	O Value
}

// New creates a new triple validating the position of each term.
func New(s, p, o Value) (Triple, error) {
	if s.Kind != URI && s.Kind != BlankNode {
		return Triple{}, fmt.Errorf("triple.New: subject %s must be an IRI or a blank node", s)
	}
	if p.Kind != URI {
		return Triple{}, fmt.Errorf("triple.New: predicate %s must be an IRI", p)
	}
	if o.IsZero() {
		return Triple{}, fmt.Errorf("triple.New: missing object for %s %s", s, p)
	}
	return Triple{S: s, P: p, O: o}, nil
}

// Must creates a new triple and panics if the terms are not valid.
func Must(s, p, o Value) Triple {
	t, err := New(s, p, o)
	if err != nil {
		panic(err)
	}
	return t
}

// String pretty prints the triple as an N-Triples statement.
func (t Triple) String() string {
	return fmt.Sprintf("%s %s %s .", t.S, t.P, t.O)
}

// Reverse returns the inverse triple when the object can act as a subject.
func (t Triple) Reverse() (Triple, error) {
	return New(t.O, t.P, t.S)
}
