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
	"math"

	"github.com/nounverb/cnvq/sparql/semantic"
	"github.com/nounverb/cnvq/storage"
)

// optimizer reorders the triple patterns of the groups greedily using the
// store statistics.
type optimizer struct {
	stats     storage.Statistics
	threshold int
}

// group returns the optimized version of g given the variables bound by the
// enclosing groups. Contiguous runs of triple patterns are reordered;
// OPTIONAL, UNION and nested groups keep their relative position.
func (o *optimizer) group(g *semantic.GroupPattern, outer map[string]bool) *Group {
	bound := copySet(outer)
	res := &Group{}
	card := 1
	var run []*semantic.TriplePattern
	flush := func() {
		for _, tp := range o.order(run, bound) {
			st := o.patternStep(tp, bound, card)
			card = cardinality(card, st, tp, bound)
			res.Steps = append(res.Steps, st)
			for _, v := range tp.Variables() {
				bound[v] = true
			}
		}
		run = nil
	}
	for _, e := range g.Elements {
		switch e := e.(type) {
		case *semantic.TriplePattern:
			run = append(run, e)
		case *semantic.Filter:
			res.Filters = append(res.Filters, e.Expr)
		case *semantic.Optional:
			flush()
			res.Steps = append(res.Steps, &Step{Optional: o.group(e.Pattern, bound)})
		case *semantic.Union:
			flush()
			st := &Step{}
			for _, b := range e.Branches {
				st.Union = append(st.Union, o.group(b, bound))
			}
			res.Steps = append(res.Steps, st)
			for v := range certain(&semantic.GroupPattern{Elements: []semantic.Element{e}}) {
				bound[v] = true
			}
		case *semantic.GroupPattern:
			flush()
			res.Steps = append(res.Steps, &Step{Group: o.group(e, bound)})
			for v := range certain(e) {
				bound[v] = true
			}
		}
	}
	flush()
	return res
}

// certain returns the variables bound in every solution of the group.
func certain(g *semantic.GroupPattern) map[string]bool {
	res := map[string]bool{}
	for _, e := range g.Elements {
		switch e := e.(type) {
		case *semantic.TriplePattern:
			for _, v := range e.Variables() {
				res[v] = true
			}
		case *semantic.GroupPattern:
			for v := range certain(e) {
				res[v] = true
			}
		case *semantic.Union:
			var common map[string]bool
			for _, b := range e.Branches {
				vs := certain(b)
				if common == nil {
					common = vs
					continue
				}
				for v := range common {
					if !vs[v] {
						delete(common, v)
					}
				}
			}
			for v := range common {
				res[v] = true
			}
		}
	}
	return res
}

// order returns the patterns sorted greedily: first the pattern with the
// fewest unbound variables given the ones already bound, then the smallest
// predicate count, then the original order. Without statistics the original
// order is kept.
func (o *optimizer) order(run []*semantic.TriplePattern, outer map[string]bool) []*semantic.TriplePattern {
	if len(run) < 2 || o.stats == nil || o.stats.Len() == 0 {
		return run
	}
	bound := copySet(outer)
	remaining := append([]*semantic.TriplePattern{}, run...)
	res := make([]*semantic.TriplePattern, 0, len(run))
	for len(remaining) > 0 {
		best := 0
		bu, bc := unbound(remaining[0], bound), o.predicateCount(remaining[0])
		for i := 1; i < len(remaining); i++ {
			u, c := unbound(remaining[i], bound), o.predicateCount(remaining[i])
			if u < bu || (u == bu && c < bc) {
				best, bu, bc = i, u, c
			}
		}
		tp := remaining[best]
		res = append(res, tp)
		for _, v := range tp.Variables() {
			bound[v] = true
		}
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return res
}

// unbound returns the number of variables of the pattern not bound yet.
func unbound(tp *semantic.TriplePattern, bound map[string]bool) int {
	n := 0
	for _, v := range tp.Variables() {
		if !bound[v] {
			n++
		}
	}
	return n
}

// predicateCount returns the number of triples using the pattern predicate.
// Variable predicates and property paths may touch the whole store.
func (o *optimizer) predicateCount(tp *semantic.TriplePattern) int {
	if o.stats == nil {
		return 0
	}
	if tp.Path != nil || tp.Predicate.IsVar() {
		return o.stats.Len()
	}
	return o.stats.PredicateCount(tp.Predicate.Value)
}

// estimate returns the expected number of matches of the pattern. Each bound
// subject or object divides the predicate count by ten.
func (o *optimizer) estimate(tp *semantic.TriplePattern, bound map[string]bool) int {
	est := o.predicateCount(tp)
	for _, t := range []semantic.Term{tp.Subject, tp.Object} {
		if !t.IsVar() || bound[t.Var] {
			est /= 10
		}
	}
	if est < 1 {
		est = 1
	}
	return est
}

func (o *optimizer) patternStep(tp *semantic.TriplePattern, bound map[string]bool, card int) *Step {
	st := &Step{
		Pattern:  tp,
		Estimate: o.estimate(tp, bound),
	}
	if tp.Path != nil {
		return st
	}
	st.Join = o.chooseJoinMethod(card, st.Estimate)
	if st.Join == HashJoin {
		for _, v := range tp.Variables() {
			if bound[v] {
				st.Keys = append(st.Keys, v)
			}
		}
		if len(st.Keys) == 0 {
			st.Join = NestedLoop
		}
	}
	return st
}

// chooseJoinMethod returns the nested loop when both sides are expected to be
// small and hash join otherwise.
func (o *optimizer) chooseJoinMethod(left, right int) JoinMethod {
	if left < o.threshold && right < o.threshold {
		return NestedLoop
	}
	return HashJoin
}

// cardinality returns the expected number of solutions after the step.
func cardinality(card int, st *Step, tp *semantic.TriplePattern, bound map[string]bool) int {
	shared := false
	for _, v := range tp.Variables() {
		if bound[v] {
			shared = true
			break
		}
	}
	if shared {
		if st.Estimate > card {
			return st.Estimate
		}
		return card
	}
	n := int64(card) * int64(st.Estimate)
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

func copySet(m map[string]bool) map[string]bool {
	res := make(map[string]bool, len(m))
	for k, v := range m {
		res[k] = v
	}
	return res
}
