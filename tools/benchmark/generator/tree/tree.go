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

// Package tree contains the data generator to build the tree benchmark data.
package tree

import (
	"fmt"

	"github.com/nounverb/cnvq/tools/benchmark/generator"
	"github.com/nounverb/cnvq/triple"
)

// treeGenerator generates data modeled after a tree structure.
type treeGenerator struct {
	branch    int
	predicate triple.Value
}

// New creates a new tree generator. The triples are generated breadth first
// starting at cnv:tn0, using the predicate cnv:parentOf. The children of
// node k are the nodes k*branch+1 to k*branch+branch.
func New(branch int) (generator.Generator, error) {
	if branch < 1 {
		return nil, fmt.Errorf("invalid branch factor %d", branch)
	}
	return &treeGenerator{
		branch:    branch,
		predicate: generator.Predicate("parentOf"),
	}, nil
}

// Generate creates the requested number of triples.
func (t *treeGenerator) Generate(n int) ([]triple.Triple, error) {
	var trpls []triple.Triple
	for child := 1; child <= n; child++ {
		parent := (child - 1) / t.branch
		trpl, err := triple.New(generator.Node("tn", parent), t.predicate, generator.Node("tn", child))
		if err != nil {
			return nil, err
		}
		trpls = append(trpls, trpl)
	}
	return trpls, nil
}
