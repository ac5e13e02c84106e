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

// Package storage provides the abstraction implemented by triple stores.
package storage

import (
	"context"
	"errors"

	"github.com/nounverb/cnvq/triple"
	"github.com/nounverb/cnvq/triple/namespace"
)

// ErrFrozen is returned when mutating a store that was already published to
// readers.
var ErrFrozen = errors.New("storage: store is frozen")

// Graph is the read API used to evaluate queries.
type Graph interface {
	// PatternMatch returns the triples matching the provided pattern. A nil
	// slot is unbound and matches any term. Matches are returned in insertion
	// order.
	PatternMatch(s, p, o *triple.Value) []triple.Triple

	// Exist checks if the provided triple exist on the store.
	Exist(t triple.Triple) bool

	// Triples returns all the available triples in insertion order.
	Triples() []triple.Triple

	// Nodes returns every distinct subject and object in first seen order.
	Nodes() []triple.Value
}

// Statistics provides the cardinality estimates used to plan queries.
type Statistics interface {
	// Len returns the number of triples held.
	Len() int

	// PredicateCount returns the number of triples using the predicate.
	PredicateCount(p triple.Value) int
}

// Store is a graph that can be populated and eventually frozen.
type Store interface {
	Graph
	Statistics

	// Insert adds the triples to the store. Duplicated triples are ignored.
	// It returns the number of triples actually added.
	Insert(ctx context.Context, ts ...triple.Triple) (int, error)

	// Namespaces returns the prefix table attached to the store.
	Namespaces() *namespace.Table

	// Expand turns a prefixed name into an IRI using the store namespaces.
	Expand(prefixed string) (string, error)

	// Version is bumped on every mutation.
	Version() uint64

	// Freeze publishes the store. Further inserts fail with ErrFrozen.
	Freeze()

	// Frozen returns true once the store was published.
	Frozen() bool
}
