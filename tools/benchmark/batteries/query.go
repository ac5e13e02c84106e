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
	"strings"
	"time"

	"github.com/nounverb/cnvq/sparql/grammar"
	"github.com/nounverb/cnvq/sparql/planner"
	"github.com/nounverb/cnvq/storage/memory"
	"github.com/nounverb/cnvq/tools/benchmark/generator/graph"
	"github.com/nounverb/cnvq/tools/benchmark/runtime"
	"github.com/nounverb/cnvq/triple/namespace"
)

// walkingQueries returns queries walking up to depth hops from the root
// along the predicate. Every depth is queried plain, sorted, and grouped.
func walkingQueries(root, pred string, depth int) []string {
	var plain, sorted, grouped []string
	for d := 1; d <= depth; d++ {
		var vars, patterns []string
		prev := root
		for i := 0; i < d; i++ {
			v := fmt.Sprintf("?c%d", i)
			vars = append(vars, v)
			patterns = append(patterns, fmt.Sprintf("%s %s %s", prev, pred, v))
			prev = v
		}
		body := fmt.Sprintf("WHERE { %s }", strings.Join(patterns, " . "))
		plain = append(plain, fmt.Sprintf("SELECT %s %s", strings.Join(vars, " "), body))
		sorted = append(sorted, fmt.Sprintf("SELECT %s %s ORDER BY DESC(?c0)", strings.Join(vars, " "), body))
		grouped = append(grouped, fmt.Sprintf("SELECT ?c0 (COUNT(%s) AS ?n) %s GROUP BY ?c0", vars[d-1], body))
	}
	return append(append(plain, sorted...), grouped...)
}

var (
	treeWalkingQueries  = walkingQueries("cnv:tn0", "cnv:parentOf", 5)
	graphWalkingQueries = walkingQueries("cnv:gn0", "cnv:follow", 5)
	pathQueries         = []string{
		`SELECT ?y WHERE { cnv:cn0 cnv:next+ ?y }`,
		`SELECT ?x WHERE { ?x cnv:next* cnv:cn0 }`,
		`SELECT (COUNT(?y) AS ?n) WHERE { cnv:cn0 cnv:next/cnv:next ?y }`,
	}
)

// queryEntries returns entries executing every query against every data set.
func queryEntries(ctx context.Context, battery string, queries []string, sets []dataSet, reps int, opts ...planner.Option) ([]*runtime.BenchEntry, error) {
	var bes []*runtime.BenchEntry
	for qIdx, query := range queries {
		q, err := grammar.Parse(query, grammar.WithNamespaces(namespace.Default()))
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", qIdx, err)
		}
		for _, ds := range sets {
			st := memory.NewStore(nil)
			data := ds.triples
			var p *planner.Plan
			bes = append(bes, &runtime.BenchEntry{
				BatteryID: fmt.Sprintf("%s query %d", battery, qIdx),
				ID:        fmt.Sprintf("%s, reps=%02d", ds.id, reps),
				Triples:   len(data),
				Reps:      reps,
				Setup: func() error {
					if st.Len() == 0 {
						if _, err := st.Insert(ctx, data...); err != nil {
							return err
						}
					}
					var err error
					p, err = planner.New(st, q, opts...)
					return err
				},
				F: func() error {
					_, err := p.Execute(ctx, st)
					return err
				},
			})
		}
	}
	return bes, nil
}

// TreeWalkingBenchmark walks generated trees from their root.
func TreeWalkingBenchmark(ctx context.Context, cfg Config) ([]*runtime.BenchEntry, error) {
	sets, err := treeSets(cfg)
	if err != nil {
		return nil, err
	}
	return queryEntries(ctx, "Run tree walking", treeWalkingQueries, sets, cfg.Reps)
}

// GraphWalkingBenchmark walks generated random graphs from a fixed node.
func GraphWalkingBenchmark(ctx context.Context, cfg Config) ([]*runtime.BenchEntry, error) {
	sets, err := graphSets(cfg)
	if err != nil {
		return nil, err
	}
	return queryEntries(ctx, "Run random graph walking", graphWalkingQueries, sets, cfg.Reps)
}

// PathBenchmark evaluates property paths over generated chains. Closures are
// bounded by a one second deadline and the length of the chain.
func PathBenchmark(ctx context.Context, cfg Config) ([]*runtime.BenchEntry, error) {
	var sets []dataSet
	depth := planner.DefaultMaxPathDepth
	for _, s := range cfg.Sizes {
		ts, err := graph.NewChain().Generate(s)
		if err != nil {
			return nil, err
		}
		sets = append(sets, dataSet{id: fmt.Sprintf("chain size=%07d", s), triples: ts})
		if s > depth {
			depth = s
		}
	}
	return queryEntries(ctx, "Run path", pathQueries, sets, cfg.Reps,
		planner.WithTimeout(time.Second), planner.WithMaxPathDepth(depth))
}
