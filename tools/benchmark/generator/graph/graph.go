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

// Package graph contains the data generator to build arbitrary graph
// benchmark data.
package graph

import (
	"fmt"
	"math/rand"

	"github.com/nounverb/cnvq/tools/benchmark/generator"
	"github.com/nounverb/cnvq/triple"
)

// randomGraph generates a random graph using the number of provided nodes.
type randomGraph struct {
	nodes     int
	predicate triple.Value
}

// NewRandomGraph creates a new random graph generator. Edges use the
// predicate cnv:follow between cnv:gn<i> nodes.
func NewRandomGraph(n int) (generator.Generator, error) {
	if n < 1 {
		return nil, fmt.Errorf("invalid number of nodes %d<1", n)
	}
	return &randomGraph{
		nodes:     n,
		predicate: generator.Predicate("follow"),
	}, nil
}

// Generate creates the required number of distinct edges.
func (r *randomGraph) Generate(n int) ([]triple.Triple, error) {
	maxEdges := r.nodes * r.nodes
	if n > maxEdges {
		return nil, fmt.Errorf("current configuration only allow a max of %d triples (%d requested)", maxEdges, n)
	}
	var trpls []triple.Triple
	for _, idx := range rand.Perm(maxEdges)[:n] {
		i, j := idx/r.nodes, idx%r.nodes
		t, err := triple.New(generator.Node("gn", i), r.predicate, generator.Node("gn", j))
		if err != nil {
			return nil, err
		}
		trpls = append(trpls, t)
	}
	return trpls, nil
}

// chain generates a linear chain of cnv:next edges.
type chain struct {
	predicate triple.Value
}

// NewChain creates a generator of cnv:cn<i> cnv:next cnv:cn<i+1> edges
// starting at cnv:cn0.
func NewChain() generator.Generator {
	return &chain{predicate: generator.Predicate("next")}
}

// Generate creates a chain with n edges.
func (c *chain) Generate(n int) ([]triple.Triple, error) {
	if n < 0 {
		return nil, fmt.Errorf("invalid chain length %d", n)
	}
	var trpls []triple.Triple
	for i := 0; i < n; i++ {
		t, err := triple.New(generator.Node("cn", i), c.predicate, generator.Node("cn", i+1))
		if err != nil {
			return nil, err
		}
		trpls = append(trpls, t)
	}
	return trpls, nil
}
