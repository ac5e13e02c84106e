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

// Package batteries generates the benchmarks used for testing.
package batteries

import (
	"context"

	"github.com/nounverb/cnvq/tools/benchmark/generator"
	"github.com/nounverb/cnvq/tools/benchmark/generator/graph"
	"github.com/nounverb/cnvq/tools/benchmark/generator/tree"
	"github.com/nounverb/cnvq/tools/benchmark/runtime"
)

// Config sizes the generated benchmarks.
type Config struct {
	// Sizes lists the number of triples of the generated graphs.
	Sizes []int

	// Reps is the number of repetitions of every entry.
	Reps int

	// BranchFactors of the generated trees.
	BranchFactors []int

	// Nodes of the generated random graphs.
	Nodes []int
}

// DefaultConfig returns the configuration used by the bench command.
func DefaultConfig() Config {
	return Config{
		Sizes:         []int{10, 1000, 10000},
		Reps:          10,
		BranchFactors: []int{2, 200},
		Nodes:         []int{317, 1000},
	}
}

// Battery creates a collection of benchmark entries.
type Battery func(ctx context.Context, cfg Config) ([]*runtime.BenchEntry, error)

// getTreeGenerators returns the set of tree generators to use while creating
// benchmarks.
func getTreeGenerators(bFactors []int) ([]generator.Generator, error) {
	var gens []generator.Generator
	for _, b := range bFactors {
		t, err := tree.New(b)
		if err != nil {
			return nil, err
		}
		gens = append(gens, t)
	}
	return gens, nil
}

// getGraphGenerators returns the set of random graph generators to use while
// creating benchmarks.
func getGraphGenerators(nodes []int) ([]generator.Generator, error) {
	var gens []generator.Generator
	for _, n := range nodes {
		g, err := graph.NewRandomGraph(n)
		if err != nil {
			return nil, err
		}
		gens = append(gens, g)
	}
	return gens, nil
}
