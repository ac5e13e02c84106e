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

package compliance

import (
	"context"
	"fmt"
	"strings"

	"github.com/nounverb/cnvq/engine"
	"github.com/nounverb/cnvq/sparql/table"
	"github.com/nounverb/cnvq/storage/memory"
	"github.com/nounverb/cnvq/turtle"
)

// AssertionOutcome contains the result of running an assertion.
type AssertionOutcome struct {
	Equal bool
	Got   *table.Table
	Want  *table.Table
}

// populateSources builds a store holding the data of every source of the
// story.
func (s *Story) populateSources(ctx context.Context) (*memory.Store, error) {
	st := memory.NewStore(nil)
	for _, src := range s.Sources {
		ts, ns, err := turtle.ParseString(src.Document(), turtle.WithNamespaces(st.Namespaces()))
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", src.ID, err)
		}
		if err := st.Namespaces().Merge(ns); err != nil {
			return nil, fmt.Errorf("source %q: %w", src.ID, err)
		}
		if _, err := st.Insert(ctx, ts...); err != nil {
			return nil, fmt.Errorf("source %q: %w", src.ID, err)
		}
	}
	st.Freeze()
	return st, nil
}

// runAssertion runs the assertion and compares the outcome. Returns the
// outcome of comparing the obtained result table with the assertion table if
// there is no error during the assertion.
func (a *Assertion) runAssertion(ctx context.Context, e *engine.Engine) (bool, *table.Table, *table.Table, error) {
	errorizer := func(err error) (bool, *table.Table, *table.Table, error) {
		if a.WillFail && err != nil {
			return true, nil, nil, nil
		}
		return false, nil, nil, err
	}

	res, err := e.Query(ctx, a.Statement)
	if err != nil {
		return errorizer(fmt.Errorf("failed to execute assertion %q with error %w", a.Requires, err))
	}
	if a.WillFail {
		return false, res.Table, nil, nil
	}
	want, err := a.OutputTable(res.Variables, e.Namespaces())
	if err != nil {
		return errorizer(err)
	}
	// Cells are compared by their lexical form in row order.
	return res.Table.String() == want.String(), res.Table, want, nil
}

// Run evaluates a story against a fresh store holding its sources. Returns
// the outcome of every assertion keyed by its requirement.
func (s *Story) Run(ctx context.Context, opts ...engine.Option) (map[string]*AssertionOutcome, error) {
	st, err := s.populateSources(ctx)
	if err != nil {
		return nil, err
	}
	e, err := engine.New(st, opts...)
	if err != nil {
		return nil, err
	}
	m := make(map[string]*AssertionOutcome)
	for _, a := range s.Assertions {
		b, got, want, err := a.runAssertion(ctx, e)
		if err != nil {
			return nil, err
		}
		m[fmt.Sprintf("requires %s", strings.TrimSpace(a.Requires))] = &AssertionOutcome{
			Equal: b,
			Got:   got,
			Want:  want,
		}
	}
	return m, nil
}

// AssertionBattery contains the result of running a collection of stories.
type AssertionBattery struct {
	Entries []*AssertionBatteryEntry
}

// AssertionBatteryEntry contains the result of running a story.
type AssertionBatteryEntry struct {
	Story   *Story
	Outcome map[string]*AssertionOutcome
	Err     error
}

// Failed returns the number of stories that failed to run or have a false
// assertion.
func (ab *AssertionBattery) Failed() int {
	n := 0
	for _, entry := range ab.Entries {
		if entry.Err != nil {
			n++
			continue
		}
		for _, o := range entry.Outcome {
			if !o.Equal {
				n++
				break
			}
		}
	}
	return n
}

// RunStories runs the provided stories and returns the outcome of each of
// them.
func RunStories(ctx context.Context, stories []*Story, opts ...engine.Option) *AssertionBattery {
	results := &AssertionBattery{}
	for _, s := range stories {
		o, err := s.Run(ctx, opts...)
		results.Entries = append(results.Entries, &AssertionBatteryEntry{
			Story:   s,
			Outcome: o,
			Err:     err,
		})
	}
	return results
}
