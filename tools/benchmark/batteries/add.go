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

package batteries

import (
	"context"
	"fmt"

	"github.com/nounverb/cnvq/storage/memory"
	"github.com/nounverb/cnvq/tools/benchmark/generator"
	"github.com/nounverb/cnvq/tools/benchmark/runtime"
	"github.com/nounverb/cnvq/triple"
)

// dataSet is a generated collection of triples.
type dataSet struct {
	id      string
	triples []triple.Triple
}

// generate returns a data set per generator and size.
func generate(gens []generator.Generator, labels []string, sizes []int) ([]dataSet, error) {
	var sets []dataSet
	for idx, g := range gens {
		for _, s := range sizes {
			ts, err := g.Generate(s)
			if err != nil {
				return nil, err
			}
			sets = append(sets, dataSet{
				id:      fmt.Sprintf("%s, size=%07d", labels[idx], s),
				triples: ts,
			})
		}
	}
	return sets, nil
}

func treeSets(cfg Config) ([]dataSet, error) {
	gs, err := getTreeGenerators(cfg.BranchFactors)
	if err != nil {
		return nil, err
	}
	var labels []string
	for _, b := range cfg.BranchFactors {
		labels = append(labels, fmt.Sprintf("tg branch_factor=%04d", b))
	}
	return generate(gs, labels, cfg.Sizes)
}

func graphSets(cfg Config) ([]dataSet, error) {
	gs, err := getGraphGenerators(cfg.Nodes)
	if err != nil {
		return nil, err
	}
	var labels []string
	for _, n := range cfg.Nodes {
		labels = append(labels, fmt.Sprintf("rg nodes=%04d", n))
	}
	// Random graphs cannot hold more than nodes^2 edges.
	var sizes []int
	for _, s := range cfg.Sizes {
		ok := true
		for _, n := range cfg.Nodes {
			if s > n*n {
				ok = false
			}
		}
		if ok {
			sizes = append(sizes, s)
		}
	}
	return generate(gs, labels, sizes)
}

// insertEntries returns entries inserting every data set into a store. If
// existing is set, the store already holds the triples.
func insertEntries(ctx context.Context, battery string, sets []dataSet, reps int, existing bool) []*runtime.BenchEntry {
	var bes []*runtime.BenchEntry
	for _, ds := range sets {
		var st *memory.Store
		data := ds.triples
		bes = append(bes, &runtime.BenchEntry{
			BatteryID: battery,
			ID:        fmt.Sprintf("%s, reps=%02d", ds.id, reps),
			Triples:   len(data),
			Reps:      reps,
			Setup: func() error {
				st = memory.NewStore(nil)
				if !existing {
					return nil
				}
				_, err := st.Insert(ctx, data...)
				return err
			},
			F: func() error {
				_, err := st.Insert(ctx, data...)
				return err
			},
		})
	}
	return bes
}

// AddTreeTriplesBenchmark inserts generated trees into empty stores.
func AddTreeTriplesBenchmark(ctx context.Context, cfg Config) ([]*runtime.BenchEntry, error) {
	sets, err := treeSets(cfg)
	if err != nil {
		return nil, err
	}
	return insertEntries(ctx, "Add triples", sets, cfg.Reps, false), nil
}

// AddGraphTriplesBenchmark inserts generated random graphs into empty stores.
func AddGraphTriplesBenchmark(ctx context.Context, cfg Config) ([]*runtime.BenchEntry, error) {
	sets, err := graphSets(cfg)
	if err != nil {
		return nil, err
	}
	return insertEntries(ctx, "Add triples", sets, cfg.Reps, false), nil
}

// AddExistingTreeTriplesBenchmark inserts generated trees into stores that
// already hold them.
func AddExistingTreeTriplesBenchmark(ctx context.Context, cfg Config) ([]*runtime.BenchEntry, error) {
	sets, err := treeSets(cfg)
	if err != nil {
		return nil, err
	}
	return insertEntries(ctx, "Add existing triples", sets, cfg.Reps, true), nil
}

// AddExistingGraphTriplesBenchmark inserts generated random graphs into
// stores that already hold them.
func AddExistingGraphTriplesBenchmark(ctx context.Context, cfg Config) ([]*runtime.BenchEntry, error) {
	sets, err := graphSets(cfg)
	if err != nil {
		return nil, err
	}
	return insertEntries(ctx, "Add existing triples", sets, cfg.Reps, true), nil
}
