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

// Package runtime contains common utilities use to meter time for benchmarks.
package runtime

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
)

// Use to allow injection of mock time Now during testing.
var timeNow = time.Now

// TrackDuration measures the duration of the run time function using the
// wall clock. The returned duration is meaningless in the presence of an
// error since the execution was likely cut short.
func TrackDuration(f func() error) (time.Duration, error) {
	ts := timeNow()
	err := f()
	d := timeNow().Sub(ts)
	return d, err
}

// RepetitionDurationStats extracts some duration stats by repeatedly
// executing and measuring runtime. Returns the mean and standard deviation of
// the run duration of f. Setup and teardown run before and after each
// repetition and are not measured. Any error shortcuts the execution.
func RepetitionDurationStats(reps int, setup, f, teardown func() error) (time.Duration, time.Duration, error) {
	if reps < 1 {
		return 0, 0, fmt.Errorf("repetitions need to be %d >= 1", reps)
	}
	var durations []time.Duration
	for i := 0; i < reps; i++ {
		if setup != nil {
			if err := setup(); err != nil {
				return 0, 0, err
			}
		}
		d, err := TrackDuration(f)
		if err != nil {
			return 0, 0, err
		}
		durations = append(durations, d)
		if teardown != nil {
			if err := teardown(); err != nil {
				return 0, 0, err
			}
		}
	}
	mean := float64(0)
	for _, d := range durations {
		mean += float64(d)
	}
	mean /= float64(len(durations))
	variance := float64(0)
	for _, d := range durations {
		variance += (float64(d) - mean) * (float64(d) - mean)
	}
	variance /= float64(len(durations))
	return time.Duration(mean), time.Duration(math.Sqrt(variance)), nil
}

// BenchEntry contains the benchmark to run.
type BenchEntry struct {
	BatteryID string
	ID        string
	Triples   int
	Reps      int
	Setup     func() error
	F         func() error
	TearDown  func() error
}

// BenchResult contains the result of running a benchmark entry.
type BenchResult struct {
	BatteryID string
	ID        string
	Triples   int
	Err       error
	Mean      time.Duration
	StdDev    time.Duration
}

func run(be *BenchEntry) *BenchResult {
	m, d, err := RepetitionDurationStats(be.Reps, be.Setup, be.F, be.TearDown)
	return &BenchResult{
		BatteryID: be.BatteryID,
		ID:        be.ID,
		Triples:   be.Triples,
		Err:       err,
		Mean:      m,
		StdDev:    d,
	}
}

// RunBenchmarkBatterySequentially runs the entries one after another.
func RunBenchmarkBatterySequentially(entries []*BenchEntry) []*BenchResult {
	var res []*BenchResult
	for _, be := range entries {
		res = append(res, run(be))
	}
	return res
}

// RunBenchmarkBatteryConcurrently runs all the entries at once. Results keep
// the order of the entries.
func RunBenchmarkBatteryConcurrently(entries []*BenchEntry) []*BenchResult {
	res := make([]*BenchResult, len(entries))
	var g errgroup.Group
	for i, be := range entries {
		i, be := i, be
		g.Go(func() error {
			res[i] = run(be)
			return nil
		})
	}
	g.Wait()
	return res
}
