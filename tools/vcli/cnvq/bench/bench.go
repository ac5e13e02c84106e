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

// Package bench runs a set of canned benchmarks against the in-memory store
// and the query planner.
package bench

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/nounverb/cnvq/tools/benchmark/batteries"
	"github.com/nounverb/cnvq/tools/benchmark/runtime"
	"github.com/nounverb/cnvq/tools/vcli/cnvq/common"
)

// New creates the bench command.
func New(opts *common.Options) *cobra.Command {
	cfg := batteries.DefaultConfig()
	var concurrent bool
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "runs a set of canned benchmarks.",
		Long: `Runs and prints the runtime statistics of a set of canned benchmarks.
They include bulk insertion of new and existing triples, walking queries
over generated trees and random graphs, and property paths over generated
chains.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := common.Setup(opts, cmd, nil)
			if err != nil {
				return err
			}
			return RunAll(common.Context(cmd), env, cfg, concurrent)
		},
	}
	cmd.Flags().IntSliceVar(&cfg.Sizes, "sizes", cfg.Sizes, "number of triples of the generated graphs")
	cmd.Flags().IntVar(&cfg.Reps, "reps", cfg.Reps, "repetitions of every benchmark")
	cmd.Flags().BoolVar(&concurrent, "concurrent", false, "also run every battery concurrently")
	return cmd
}

var all = []struct {
	name    string
	battery batteries.Battery
}{
	{"adding new tree triples", batteries.AddTreeTriplesBenchmark},
	{"adding new graph triples", batteries.AddGraphTriplesBenchmark},
	{"adding existing tree triples", batteries.AddExistingTreeTriplesBenchmark},
	{"adding existing graph triples", batteries.AddExistingGraphTriplesBenchmark},
	{"tree walking queries", batteries.TreeWalkingBenchmark},
	{"random graph walking queries", batteries.GraphWalkingBenchmark},
	{"property path queries", batteries.PathBenchmark},
}

// RunAll executes all the canned benchmarks and prints out the stats.
func RunAll(ctx context.Context, env *common.Env, cfg batteries.Config, concurrent bool) error {
	failed := 0
	for _, b := range all {
		if err := runBattery(ctx, env, cfg, b.name, b.battery, concurrent); err != nil {
			fmt.Fprintf(env.Err, "[ERROR] %s: %v\n", b.name, err)
			failed++
		}
	}
	if failed > 0 {
		return common.WrapExitError(common.ExitFailure, fmt.Sprintf("%d batteries failed", failed), nil)
	}
	return nil
}

func format(br *runtime.BenchResult) string {
	if br.Err != nil {
		return fmt.Sprintf("%30s - %40s - [ERROR] %v", br.BatteryID, br.ID, br.Err)
	}
	tps := float64(br.Triples) / br.Mean.Seconds()
	return fmt.Sprintf("%30s - %40s - %10.2f triples/sec - %v/%v", br.BatteryID, br.ID, tps, br.Mean, br.StdDev)
}

func printSorted(env *common.Env, brs []*runtime.BenchResult) {
	var ss []string
	for _, br := range brs {
		ss = append(ss, format(br))
	}
	sort.Strings(ss)
	for _, s := range ss {
		fmt.Fprintln(env.Out, s)
	}
	fmt.Fprintln(env.Out)
}

// runBattery creates and runs the entries of a battery.
func runBattery(ctx context.Context, env *common.Env, cfg batteries.Config, name string, b batteries.Battery, concurrent bool) error {
	fmt.Fprintf(env.Out, "Creating %s benchmark... ", name)
	bes, err := b(ctx, cfg)
	if err != nil {
		fmt.Fprintln(env.Out)
		return err
	}
	fmt.Fprintf(env.Out, "%d entries created\n", len(bes))

	fmt.Fprintf(env.Out, "Run %s benchmark sequentially... ", name)
	ts := time.Now()
	brs := runtime.RunBenchmarkBatterySequentially(bes)
	fmt.Fprintf(env.Out, "(%v) done\n\n", time.Since(ts))
	fmt.Fprintf(env.Out, "Stats for sequentially run %s benchmark\n", name)
	printSorted(env, brs)

	if concurrent {
		fmt.Fprintf(env.Out, "Run %s benchmark concurrently... ", name)
		tc := time.Now()
		brc := runtime.RunBenchmarkBatteryConcurrently(bes)
		fmt.Fprintf(env.Out, "(%v) done\n\n", time.Since(tc))
		fmt.Fprintf(env.Out, "Stats for concurrently run %s benchmark\n", name)
		printSorted(env, brc)
	}
	return nil
}
