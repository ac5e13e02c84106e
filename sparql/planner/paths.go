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
	"github.com/nounverb/cnvq/sparql/semantic"
	"github.com/nounverb/cnvq/sparql/table"
	"github.com/nounverb/cnvq/triple"
)

// nodeSet is an insertion ordered set of values.
type nodeSet struct {
	vs   []triple.Value
	seen map[triple.Value]bool
}

func newNodeSet() *nodeSet {
	return &nodeSet{seen: map[triple.Value]bool{}}
}

func (n *nodeSet) add(v triple.Value) bool {
	if n.seen[v] {
		return false
	}
	n.seen[v] = true
	n.vs = append(n.vs, v)
	return true
}

func (n *nodeSet) addAll(vs []triple.Value) {
	for _, v := range vs {
		n.add(v)
	}
}

// evalPath emits the extensions of r for every pair of nodes connected by
// the property path of the pattern.
func (e *executor) evalPath(tp *semantic.TriplePattern, r table.Row, emit emitFunc) bool {
	sv, sok := resolve(tp.Subject, r)
	ov, ook := resolve(tp.Object, r)
	switch {
	case sok:
		for _, t := range e.reach(tp.Path, sv, true) {
			if ook {
				if t == ov {
					return emit(r.Clone())
				}
				continue
			}
			if !e.emitPair(tp, r, sv, t, emit) {
				return false
			}
		}
		return true
	case ook:
		for _, s := range e.reach(tp.Path, ov, false) {
			if !e.emitPair(tp, r, s, ov, emit) {
				return false
			}
		}
		return true
	}
	for _, n := range e.g.Nodes() {
		if !e.tick() {
			return false
		}
		for _, t := range e.reach(tp.Path, n, true) {
			if !e.emitPair(tp, r, n, t, emit) {
				return false
			}
		}
	}
	return !e.expired
}

// emitPair binds the ends of the path and emits the extended row.
func (e *executor) emitPair(tp *semantic.TriplePattern, r table.Row, s, o triple.Value, emit emitFunc) bool {
	nr := r.Clone()
	if tp.Subject.IsVar() && !bind(nr, tp.Subject.Var, s) {
		return true
	}
	if tp.Object.IsVar() && !bind(nr, tp.Object.Var, o) {
		return true
	}
	return emit(nr)
}

// reach returns the nodes reachable from start following the path forward,
// or backwards if forward is false, in discovery order.
func (e *executor) reach(p semantic.Path, start triple.Value, forward bool) []triple.Value {
	switch p := p.(type) {
	case *semantic.DirectPath:
		return e.step(p.Predicate, start, forward)
	case *semantic.InversePath:
		return e.reach(p.Path, start, !forward)
	case *semantic.SequencePath:
		first, second := p.Left, p.Right
		if !forward {
			first, second = second, first
		}
		res := newNodeSet()
		for _, mid := range e.reach(first, start, forward) {
			if e.expired {
				break
			}
			res.addAll(e.reach(second, mid, forward))
		}
		return res.vs
	case *semantic.AlternativePath:
		res := newNodeSet()
		res.addAll(e.reach(p.Left, start, forward))
		res.addAll(e.reach(p.Right, start, forward))
		return res.vs
	case *semantic.ZeroOrOnePath:
		res := newNodeSet()
		res.add(start)
		res.addAll(e.reach(p.Path, start, forward))
		return res.vs
	case *semantic.ZeroOrMorePath:
		return e.closure(p.Path, start, forward, true)
	case *semantic.OneOrMorePath:
		return e.closure(p.Path, start, forward, false)
	}
	return nil
}

// step returns the nodes one predicate hop away from n.
func (e *executor) step(pred, n triple.Value, forward bool) []triple.Value {
	var ts []triple.Triple
	if forward {
		ts = e.g.PatternMatch(&n, &pred, nil)
	} else {
		ts = e.g.PatternMatch(nil, &pred, &n)
	}
	res := make([]triple.Value, 0, len(ts))
	for _, t := range ts {
		if !e.tick() {
			break
		}
		if forward {
			res = append(res, t.O)
		} else {
			res = append(res, t.S)
		}
	}
	return res
}

// closure computes the transitive closure of the path from start using a
// breadth first search bounded by the maximum path depth. Visited nodes are
// never expanded twice, so cycles terminate.
func (e *executor) closure(p semantic.Path, start triple.Value, forward, reflexive bool) []triple.Value {
	res := newNodeSet()
	if reflexive {
		res.add(start)
	}
	expanded := map[triple.Value]bool{start: true}
	frontier := []triple.Value{start}
	for depth := 0; depth < e.plan.opts.maxPathDepth && len(frontier) > 0; depth++ {
		var next []triple.Value
		for _, n := range frontier {
			if e.expired {
				return res.vs
			}
			for _, m := range e.reach(p, n, forward) {
				res.add(m)
				if !expanded[m] {
					expanded[m] = true
					next = append(next, m)
				}
			}
		}
		frontier = next
	}
	return res.vs
}
