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
	"sort"
	"strings"

	"github.com/nounverb/cnvq/sparql/semantic"
	"github.com/nounverb/cnvq/sparql/table"
	"github.com/nounverb/cnvq/triple"
	"github.com/nounverb/cnvq/triple/literal"
)

// group is the set of solutions sharing the same GROUP BY values.
type group struct {
	key  table.Row
	rows []table.Row
}

// aggregate partitions the solutions by the GROUP BY variables, keeping the
// groups in first seen order, and computes one row per group. Without
// GROUP BY all solutions form a single group, even if there are none.
func (p *Plan) aggregate(rows []table.Row) ([]table.Row, error) {
	q := p.q
	var gs []*group
	if len(q.GroupBy) == 0 {
		gs = []*group{{key: table.Row{}, rows: rows}}
	} else {
		idx := map[string]*group{}
		for _, r := range rows {
			k, key := groupKey(r, q.GroupBy)
			g, ok := idx[k]
			if !ok {
				g = &group{key: key}
				idx[k] = g
				gs = append(gs, g)
			}
			g.rows = append(g.rows, r)
		}
	}

	res := make([]table.Row, 0, len(gs))
	for _, g := range gs {
		out := g.key.Clone()
		for _, pr := range q.Projection {
			if pr.Aggregate == nil {
				continue
			}
			if v, ok := evalAggregate(pr.Aggregate, g.rows); ok {
				out[pr.Aggregate.Alias] = v
			}
		}
		res = append(res, out)
	}
	return res, nil
}

// groupKey returns the key identifying the group of r and the row holding
// the grouped bindings.
func groupKey(r table.Row, vars []string) (string, table.Row) {
	var b strings.Builder
	key := table.Row{}
	for _, v := range vars {
		if val, ok := r[v]; ok {
			key[v] = val
			b.WriteString(val.String())
		} else {
			b.WriteByte(1)
		}
		b.WriteByte(0)
	}
	return b.String(), key
}

// values returns the bound values of the aggregated variable, deduplicated
// if the aggregate is DISTINCT.
func values(a *semantic.Aggregate, rows []table.Row) []triple.Value {
	var res []triple.Value
	seen := map[triple.Value]bool{}
	for _, r := range rows {
		v, ok := r[a.Var]
		if !ok {
			continue
		}
		if a.Distinct {
			if seen[v] {
				continue
			}
			seen[v] = true
		}
		res = append(res, v)
	}
	return res
}

// evalAggregate computes the aggregate over the rows of a group. Unbound and
// non numeric values are skipped silently. It returns false if the
// aggregate has no value for the group.
func evalAggregate(a *semantic.Aggregate, rows []table.Row) (triple.Value, bool) {
	if a.Func == semantic.Count && a.Star {
		if !a.Distinct {
			return triple.NewInteger(int64(len(rows))), true
		}
		seen := map[string]bool{}
		for _, r := range rows {
			seen[rowSignature(r)] = true
		}
		return triple.NewInteger(int64(len(seen))), true
	}

	vs := values(a, rows)
	switch a.Func {
	case semantic.Count:
		return triple.NewInteger(int64(len(vs))), true
	case semantic.Sum, semantic.Avg:
		sum, n, ints := 0.0, 0, true
		for _, v := range vs {
			f, ok := v.Numeric()
			if !ok {
				continue
			}
			if !isInteger(v) {
				ints = false
			}
			sum += f
			n++
		}
		if a.Func == semantic.Sum {
			if ints {
				return triple.NewInteger(int64(sum)), true
			}
			return triple.NewDecimal(sum), true
		}
		if n == 0 {
			return triple.Value{}, false
		}
		return triple.NewDecimal(sum / float64(n)), true
	case semantic.Min, semantic.Max:
		var (
			best  triple.Value
			found bool
		)
		for _, v := range vs {
			if !found {
				best, found = v, true
				continue
			}
			c := triple.Compare(v, best)
			if (a.Func == semantic.Min && c < 0) || (a.Func == semantic.Max && c > 0) {
				best = v
			}
		}
		return best, found
	}
	return triple.Value{}, false
}

// isInteger returns true if the lexical form of the numeric value is an
// integer.
func isInteger(v triple.Value) bool {
	_, isInt, err := literal.ParseNumber(v.Text)
	return err == nil && isInt
}

// rowSignature returns a string identifying the full contents of the row.
func rowSignature(r table.Row) string {
	ks := make([]string, 0, len(r))
	for k := range r {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	var b strings.Builder
	for _, k := range ks {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(r[k].String())
		b.WriteByte(0)
	}
	return b.String()
}
