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

// Package planner contains all the machinery to transform a parsed query
// into an optimized plan and to execute it against a store.
package planner

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nounverb/cnvq/sparql/semantic"
	"github.com/nounverb/cnvq/storage"
	"github.com/nounverb/cnvq/triple"
	"github.com/nounverb/cnvq/triple/namespace"
)

const (
	// DefaultJoinThreshold is the estimated cardinality from which hash joins
	// are preferred over nested loops.
	DefaultJoinThreshold = 1000
	// DefaultMaxPathDepth bounds the expansion of transitive property paths.
	DefaultMaxPathDepth = 64
	// checkEvery is the number of matches between deadline checks.
	checkEvery = 256
)

// ErrTimeoutExceeded records that the execution deadline expired. It is never
// returned by Execute; the resulting table is flagged as partial instead.
var ErrTimeoutExceeded = errors.New("planner: execution deadline exceeded")

// ExecutionError is returned for constructs that cannot be evaluated.
type ExecutionError struct {
	Reason string
}

// Error returns a readable version of the error.
func (e *ExecutionError) Error() string {
	return "execution error: " + e.Reason
}

// JoinMethod is the strategy used to join a step with the solutions produced
// by the previous ones.
type JoinMethod int

const (
	// NestedLoop substitutes each incoming solution into the pattern and
	// looks it up.
	NestedLoop JoinMethod = iota
	// HashJoin matches the pattern once and probes the matches keyed by the
	// shared variables.
	HashJoin
)

// String returns the name of the join method.
func (j JoinMethod) String() string {
	if j == HashJoin {
		return "hash-join"
	}
	return "nested-loop"
}

// Step is a unit of evaluation of a group. Exactly one of Pattern, Optional,
// Union or Group is set.
type Step struct {
	Pattern  *semantic.TriplePattern
	Optional *Group
	Union    []*Group
	Group    *Group

	Join     JoinMethod
	Estimate int
	// Keys lists the variables used as hash join keys.
	Keys []string
}

// Group is the optimized version of a group pattern. Filters are applied to
// every solution of the group once all its steps matched.
type Group struct {
	Steps   []*Step
	Filters []semantic.Expression
}

type options struct {
	joinThreshold int
	maxPathDepth  int
	timeout       time.Duration
	tracer        io.Writer
	ns            *namespace.Table
	memoize       bool
}

// Option configures the planner.
type Option func(*options)

// WithJoinThreshold sets the cardinality from which hash joins are used.
func WithJoinThreshold(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.joinThreshold = n
		}
	}
}

// WithMaxPathDepth bounds the number of hops of transitive paths.
func WithMaxPathDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPathDepth = n
		}
	}
}

// WithTimeout sets the execution deadline relative to the Execute call.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithTracer enables execution tracing on the provided writer.
func WithTracer(w io.Writer) Option {
	return func(o *options) {
		o.tracer = w
	}
}

// WithNamespaces is used to compact IRIs when rendering the plan.
func WithNamespaces(ns *namespace.Table) Option {
	return func(o *options) {
		o.ns = ns
	}
}

// WithMemoization toggles the memoization of store lookups while
// evaluating property paths. It is enabled by default.
func WithMemoization(b bool) Option {
	return func(o *options) {
		o.memoize = b
	}
}

// Plan is the optimized, executable version of a query. Plans are created
// per query and are not meant to be executed concurrently.
type Plan struct {
	q     *semantic.Query
	root  *Group
	vars  []string
	opts  options
	stats storage.Statistics
}

// New creates an optimized plan for the query using the store statistics.
func New(stats storage.Statistics, q *semantic.Query, opts ...Option) (*Plan, error) {
	o := options{
		joinThreshold: DefaultJoinThreshold,
		maxPathDepth:  DefaultMaxPathDepth,
		memoize:       true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if q == nil || q.Where == nil {
		return nil, &ExecutionError{Reason: "missing WHERE clause"}
	}
	if err := validate(q); err != nil {
		return nil, err
	}
	p := &Plan{
		q:     q,
		vars:  q.Variables(),
		opts:  o,
		stats: stats,
	}
	o2 := &optimizer{stats: stats, threshold: o.joinThreshold}
	p.root = o2.group(q.Where, map[string]bool{})
	return p, nil
}

// validate checks the query uses aggregation and ordering consistently.
func validate(q *semantic.Query) error {
	aliases := map[string]bool{}
	for _, pr := range q.Projection {
		if pr.Aggregate == nil {
			continue
		}
		if aliases[pr.Aggregate.Alias] {
			return &ExecutionError{Reason: fmt.Sprintf("duplicated alias ?%s", pr.Aggregate.Alias)}
		}
		aliases[pr.Aggregate.Alias] = true
	}
	if !q.HasAggregates() && len(q.GroupBy) == 0 {
		return nil
	}
	if q.Star {
		return &ExecutionError{Reason: "SELECT * cannot be used with GROUP BY"}
	}
	grouped := map[string]bool{}
	for _, v := range q.GroupBy {
		grouped[v] = true
	}
	for _, pr := range q.Projection {
		if pr.Aggregate != nil {
			if grouped[pr.Aggregate.Alias] {
				return &ExecutionError{Reason: fmt.Sprintf("alias ?%s shadows a group variable", pr.Aggregate.Alias)}
			}
			continue
		}
		if !grouped[pr.Var] {
			return &ExecutionError{Reason: fmt.Sprintf("variable ?%s must be grouped or aggregated", pr.Var)}
		}
	}
	for _, k := range q.OrderBy {
		if !grouped[k.Var] && !aliases[k.Var] {
			return &ExecutionError{Reason: fmt.Sprintf("cannot order by ?%s after grouping", k.Var)}
		}
	}
	return nil
}

// Root returns the optimized root group.
func (p *Plan) Root() *Group {
	return p.root
}

// Variables returns the variables of the result rows.
func (p *Plan) Variables() []string {
	return append([]string{}, p.vars...)
}

// compact renders a value using the plan namespaces when possible.
func (p *Plan) compact(v triple.Value) string {
	if v.IsIRI() && p.opts.ns != nil {
		if c, ok := p.opts.ns.Compact(v.Text); ok {
			return c
		}
	}
	return v.String()
}

func (p *Plan) term(t semantic.Term) string {
	if t.IsVar() {
		return t.String()
	}
	return p.compact(t.Value)
}

func (p *Plan) path(pp semantic.Path) string {
	switch pp := pp.(type) {
	case *semantic.DirectPath:
		return p.compact(pp.Predicate)
	case *semantic.InversePath:
		return "^" + p.wrap(pp.Path)
	case *semantic.SequencePath:
		return "(" + p.path(pp.Left) + "/" + p.path(pp.Right) + ")"
	case *semantic.AlternativePath:
		return "(" + p.path(pp.Left) + "|" + p.path(pp.Right) + ")"
	case *semantic.ZeroOrMorePath:
		return p.wrap(pp.Path) + "*"
	case *semantic.OneOrMorePath:
		return p.wrap(pp.Path) + "+"
	case *semantic.ZeroOrOnePath:
		return p.wrap(pp.Path) + "?"
	}
	return pp.String()
}

func (p *Plan) wrap(pp semantic.Path) string {
	switch pp.(type) {
	case *semantic.DirectPath, *semantic.SequencePath, *semantic.AlternativePath:
		return p.path(pp)
	default:
		return "(" + p.path(pp) + ")"
	}
}

func (p *Plan) pattern(tp *semantic.TriplePattern) string {
	pred := p.term(tp.Predicate)
	if tp.Path != nil {
		pred = p.path(tp.Path)
	}
	return fmt.Sprintf("%s %s %s", p.term(tp.Subject), pred, p.term(tp.Object))
}

// String returns an EXPLAIN style listing of the plan.
func (p *Plan) String() string {
	var b strings.Builder
	b.WriteString("SELECT")
	if p.q.Distinct {
		b.WriteString(" DISTINCT")
	}
	if p.q.Star {
		b.WriteString(" *")
	}
	for _, pr := range p.q.Projection {
		if pr.Aggregate != nil {
			b.WriteString(" " + pr.Aggregate.String())
		} else {
			b.WriteString(" ?" + pr.Var)
		}
	}
	b.WriteString("\n")
	p.writeGroup(&b, p.root, 1)
	if len(p.q.GroupBy) > 0 {
		b.WriteString("GROUP BY")
		for _, v := range p.q.GroupBy {
			b.WriteString(" ?" + v)
		}
		b.WriteString("\n")
	}
	if len(p.q.OrderBy) > 0 {
		b.WriteString("ORDER BY")
		for _, k := range p.q.OrderBy {
			if k.Desc {
				fmt.Fprintf(&b, " DESC(?%s)", k.Var)
			} else {
				fmt.Fprintf(&b, " ?%s", k.Var)
			}
		}
		b.WriteString("\n")
	}
	if p.q.Offset > 0 {
		fmt.Fprintf(&b, "OFFSET %d\n", p.q.Offset)
	}
	if p.q.HasLimit {
		fmt.Fprintf(&b, "LIMIT %d\n", p.q.Limit)
	}
	return b.String()
}

func (p *Plan) writeGroup(b *strings.Builder, g *Group, depth int) {
	indent := strings.Repeat("  ", depth)
	for i, st := range g.Steps {
		switch {
		case st.Pattern != nil && st.Pattern.Path != nil:
			fmt.Fprintf(b, "%s%d. path est=%d: %s\n", indent, i+1, st.Estimate, p.pattern(st.Pattern))
		case st.Pattern != nil:
			keys := ""
			if st.Join == HashJoin && len(st.Keys) > 0 {
				keys = " on ?" + strings.Join(st.Keys, ",?")
			}
			fmt.Fprintf(b, "%s%d. %s%s est=%d: %s\n", indent, i+1, st.Join, keys, st.Estimate, p.pattern(st.Pattern))
		case st.Optional != nil:
			fmt.Fprintf(b, "%s%d. OPTIONAL\n", indent, i+1)
			p.writeGroup(b, st.Optional, depth+1)
		case st.Union != nil:
			for j, br := range st.Union {
				if j == 0 {
					fmt.Fprintf(b, "%s%d. UNION branch %d\n", indent, i+1, j+1)
				} else {
					fmt.Fprintf(b, "%s   UNION branch %d\n", indent, j+1)
				}
				p.writeGroup(b, br, depth+1)
			}
		case st.Group != nil:
			fmt.Fprintf(b, "%s%d. GROUP\n", indent, i+1)
			p.writeGroup(b, st.Group, depth+1)
		}
	}
	for _, f := range g.Filters {
		fmt.Fprintf(b, "%sFILTER %s\n", indent, f)
	}
}
