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

package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nounverb/cnvq/sparql/planner/tracer"
	"github.com/nounverb/cnvq/sparql/semantic"
	"github.com/nounverb/cnvq/sparql/table"
	"github.com/nounverb/cnvq/storage"
	"github.com/nounverb/cnvq/storage/memoization"
)

// emitFunc receives the solutions of a step. Returning false stops the
// evaluation.
type emitFunc func(table.Row) bool

// executor holds the state of a single plan execution. Solutions flow
// depth first through the steps so the rows completed before the deadline
// expires are always valid solutions.
type executor struct {
	ctx      context.Context
	g        storage.Graph
	plan     *Plan
	deadline time.Time
	ticks    int
	expired  bool
	reason   error
	hashes   map[*Step]map[string][]table.Row
	rows     map[*Step]int
}

// tick accounts for one unit of work and checks the deadline every
// checkEvery units. It returns false once the execution must stop.
func (e *executor) tick() bool {
	e.ticks++
	if e.ticks%checkEvery == 0 {
		e.check()
	}
	return !e.expired
}

func (e *executor) check() {
	if e.expired {
		return
	}
	if err := e.ctx.Err(); err != nil {
		e.expired, e.reason = true, err
		return
	}
	if !e.deadline.IsZero() && time.Now().After(e.deadline) {
		e.expired, e.reason = true, ErrTimeoutExceeded
	}
}

// evalGroup emits the solutions of the group compatible with r.
func (e *executor) evalGroup(g *Group, r table.Row, emit emitFunc) bool {
	return e.evalSteps(g, 0, r, func(r table.Row) bool {
		for _, f := range g.Filters {
			if !semantic.Satisfied(f, r) {
				return true
			}
		}
		return emit(r)
	})
}

func (e *executor) evalSteps(g *Group, i int, r table.Row, emit emitFunc) bool {
	if !e.tick() {
		return false
	}
	if i == len(g.Steps) {
		return emit(r)
	}
	st := g.Steps[i]
	next := func(r table.Row) bool {
		e.rows[st]++
		return e.evalSteps(g, i+1, r, emit)
	}
	switch {
	case st.Pattern != nil && st.Pattern.Path != nil:
		return e.evalPath(st.Pattern, r, next)
	case st.Pattern != nil && st.Join == HashJoin:
		return e.hashJoin(st, r, next)
	case st.Pattern != nil:
		return e.nestedLoop(st.Pattern, r, next)
	case st.Optional != nil:
		matched := false
		if !e.evalGroup(st.Optional, r, func(r table.Row) bool {
			matched = true
			return next(r)
		}) {
			return false
		}
		if !matched {
			return next(r)
		}
		return true
	case st.Union != nil:
		for _, b := range st.Union {
			if !e.evalGroup(b, r, next) {
				return false
			}
		}
		return true
	case st.Group != nil:
		return e.evalGroup(st.Group, r, next)
	}
	return next(r)
}

// nestedLoop substitutes the bindings of r into the pattern and emits the
// extensions of r for every matching triple.
func (e *executor) nestedLoop(tp *semantic.TriplePattern, r table.Row, emit emitFunc) bool {
	s, p, o := lookupArgs(tp, r)
	for _, t := range e.g.PatternMatch(s, p, o) {
		if !e.tick() {
			return false
		}
		nr, ok := extend(tp, t, r)
		if !ok {
			continue
		}
		if !emit(nr) {
			return false
		}
	}
	return true
}

// hashJoin matches the pattern once and probes the matches using the values
// r binds to the step keys. Rows missing a key fall back to the nested loop.
func (e *executor) hashJoin(st *Step, r table.Row, emit emitFunc) bool {
	k, ok := hashKey(r, st.Keys)
	if !ok {
		return e.nestedLoop(st.Pattern, r, emit)
	}
	h, ok := e.hashes[st]
	if !ok {
		h = map[string][]table.Row{}
		s, p, o := lookupArgs(st.Pattern, table.Row{})
		for _, t := range e.g.PatternMatch(s, p, o) {
			if !e.tick() {
				return false
			}
			m, ok := extend(st.Pattern, t, table.Row{})
			if !ok {
				continue
			}
			mk, _ := hashKey(m, st.Keys)
			h[mk] = append(h[mk], m)
		}
		e.hashes[st] = h
	}
	for _, m := range h[k] {
		if !e.tick() {
			return false
		}
		if !table.Compatible(r, m) {
			continue
		}
		if !emit(table.MergeRows(r, m)) {
			return false
		}
	}
	return true
}

// hasPaths returns true if any step of the group evaluates a property path.
func hasPaths(g *Group) bool {
	for _, st := range g.Steps {
		switch {
		case st.Pattern != nil && st.Pattern.Path != nil:
			return true
		case st.Optional != nil && hasPaths(st.Optional):
			return true
		case st.Group != nil && hasPaths(st.Group):
			return true
		}
		for _, b := range st.Union {
			if hasPaths(b) {
				return true
			}
		}
	}
	return false
}

// streamLimit returns the number of solutions after which the evaluation can
// stop, or -1 if every solution is needed.
func (p *Plan) streamLimit() int {
	q := p.q
	if !q.HasLimit || q.Distinct || len(q.OrderBy) > 0 || len(q.GroupBy) > 0 || q.HasAggregates() {
		return -1
	}
	return q.Offset + q.Limit
}

// Execute evaluates the plan against the store. If the deadline expires the
// solutions found so far are returned in a table flagged as partial.
// Cancelling the context aborts the execution with the context error.
func (p *Plan) Execute(ctx context.Context, s storage.Store) (*table.Table, error) {
	start := time.Now()
	e := &executor{
		ctx:    ctx,
		g:      s,
		plan:   p,
		hashes: map[*Step]map[string][]table.Row{},
		rows:   map[*Step]int{},
	}
	var memo *memoization.Store
	if p.opts.memoize && hasPaths(p.root) {
		memo = memoization.New(s)
		e.g = memo
	}
	if p.opts.timeout > 0 {
		e.deadline = start.Add(p.opts.timeout)
	}
	tracer.Trace(p.opts.tracer, func() []string {
		return []string{fmt.Sprintf("executing plan with %d root steps", len(p.root.Steps))}
	})

	var rows []table.Row
	limit := p.streamLimit()
	e.evalGroup(p.root, table.Row{}, func(r table.Row) bool {
		rows = append(rows, r)
		return limit < 0 || len(rows) < limit
	})
	if errors.Is(e.reason, context.Canceled) {
		return nil, e.reason
	}

	tbl, err := p.finish(rows)
	if err != nil {
		return nil, err
	}
	tbl.SetPartial(e.expired)

	tracer.Trace(p.opts.tracer, func() []string {
		msgs := p.stepTraces(p.root, e.rows, "")
		if memo != nil {
			h, m := memo.Stats()
			msgs = append(msgs, fmt.Sprintf("memoization hits=%d misses=%d", h, m))
		}
		if e.expired {
			msgs = append(msgs, fmt.Sprintf("interrupted: %v", e.reason))
		}
		msgs = append(msgs, fmt.Sprintf("returned %d rows in %v", tbl.NumRows(), time.Since(start)))
		return msgs
	})
	return tbl, nil
}

func (p *Plan) stepTraces(g *Group, rows map[*Step]int, prefix string) []string {
	var res []string
	for i, st := range g.Steps {
		id := fmt.Sprintf("%s%d", prefix, i+1)
		switch {
		case st.Pattern != nil:
			res = append(res, fmt.Sprintf("step %s %s produced %d rows", id, p.pattern(st.Pattern), rows[st]))
		case st.Optional != nil:
			res = append(res, fmt.Sprintf("step %s OPTIONAL produced %d rows", id, rows[st]))
			res = append(res, p.stepTraces(st.Optional, rows, id+".")...)
		case st.Group != nil:
			res = append(res, fmt.Sprintf("step %s GROUP produced %d rows", id, rows[st]))
			res = append(res, p.stepTraces(st.Group, rows, id+".")...)
		case st.Union != nil:
			res = append(res, fmt.Sprintf("step %s UNION produced %d rows", id, rows[st]))
			for j, b := range st.Union {
				res = append(res, p.stepTraces(b, rows, fmt.Sprintf("%s.%d.", id, j+1))...)
			}
		}
	}
	return res
}

// finish applies the solution modifiers to the solutions: aggregation,
// ordering, projection, DISTINCT, OFFSET and LIMIT.
func (p *Plan) finish(rows []table.Row) (*table.Table, error) {
	q := p.q
	var (
		tbl *table.Table
		err error
	)
	if q.HasAggregates() || len(q.GroupBy) > 0 {
		if rows, err = p.aggregate(rows); err != nil {
			return nil, err
		}
		if tbl, err = table.New(p.vars); err != nil {
			return nil, err
		}
	} else {
		if tbl, err = table.New(q.Where.Variables()); err != nil {
			return nil, err
		}
	}
	tbl.AddRows(rows)

	var cfg table.SortConfig
	for _, k := range q.OrderBy {
		cfg = append(cfg, struct {
			Binding string
			Desc    bool
		}{k.Var, k.Desc})
	}
	tbl.Sort(cfg)
	tbl.ProjectBindings(p.vars)
	if q.Distinct {
		tbl.Distinct()
	}
	limit := -1
	if q.HasLimit {
		limit = q.Limit
	}
	tbl.Slice(q.Offset, limit)
	return tbl, nil
}
