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

// Package semantic contains the typed representation of a parsed query. The
// rest of the engine operates exclusively on these structures.
package semantic

import (
	"fmt"
	"strings"

	"github.com/nounverb/cnvq/triple"
)

// Term is either a variable or a constant RDF value.
type Term struct {
	// Var holds the variable name without the leading '?'. An empty name
	// marks a constant term.
	Var   string
	Value triple.Value
}

// Variable returns a variable term.
func Variable(name string) Term {
	return Term{Var: name}
}

// Constant returns a constant term.
func Constant(v triple.Value) Term {
	return Term{Value: v}
}

// IsBlankVar returns true for the variables standing for blank nodes of a
// pattern. They join like any other variable but are never projected.
func IsBlankVar(name string) bool {
	return strings.HasPrefix(name, "_:")
}

// IsVar returns true if the term is a variable.
func (t Term) IsVar() bool {
	return t.Var != ""
}

// String returns a readable version of the term.
func (t Term) String() string {
	if IsBlankVar(t.Var) {
		return t.Var
	}
	if t.IsVar() {
		return "?" + t.Var
	}
	return t.Value.String()
}

// Path is a regular expression over predicate edges.
type Path interface {
	String() string
	isPath()
}

// DirectPath follows a single predicate edge.
type DirectPath struct {
	Predicate triple.Value
}

// InversePath follows the wrapped path from object to subject.
type InversePath struct {
	Path Path
}

// SequencePath follows Left and then Right.
type SequencePath struct {
	Left, Right Path
}

// AlternativePath follows either Left or Right.
type AlternativePath struct {
	Left, Right Path
}

// ZeroOrMorePath follows the wrapped path any number of times.
type ZeroOrMorePath struct {
	Path Path
}

// OneOrMorePath follows the wrapped path at least once.
type OneOrMorePath struct {
	Path Path
}

// ZeroOrOnePath optionally follows the wrapped path once.
type ZeroOrOnePath struct {
	Path Path
}

func (*DirectPath) isPath()      {}
func (*InversePath) isPath()     {}
func (*SequencePath) isPath()    {}
func (*AlternativePath) isPath() {}
func (*ZeroOrMorePath) isPath()  {}
func (*OneOrMorePath) isPath()   {}
func (*ZeroOrOnePath) isPath()   {}

func (p *DirectPath) String() string      { return p.Predicate.String() }
func (p *InversePath) String() string     { return "^" + wrap(p.Path) }
func (p *SequencePath) String() string    { return fmt.Sprintf("(%s/%s)", p.Left, p.Right) }
func (p *AlternativePath) String() string { return fmt.Sprintf("(%s|%s)", p.Left, p.Right) }
func (p *ZeroOrMorePath) String() string  { return wrap(p.Path) + "*" }
func (p *OneOrMorePath) String() string   { return wrap(p.Path) + "+" }
func (p *ZeroOrOnePath) String() string   { return wrap(p.Path) + "?" }

func wrap(p Path) string {
	switch p.(type) {
	case *DirectPath, *SequencePath, *AlternativePath:
		return p.String()
	default:
		return "(" + p.String() + ")"
	}
}

// TriplePattern is a triple template. When Path is set the pattern is a
// property path and Predicate is ignored.
type TriplePattern struct {
	Subject   Term
	Predicate Term
	Path      Path
	Object    Term
}

// String returns a readable version of the pattern.
func (tp *TriplePattern) String() string {
	p := tp.Predicate.String()
	if tp.Path != nil {
		p = tp.Path.String()
	}
	return fmt.Sprintf("%s %s %s", tp.Subject, p, tp.Object)
}

// Variables returns the variables of the pattern in subject, predicate,
// object order without duplicates.
func (tp *TriplePattern) Variables() []string {
	var res []string
	seen := map[string]bool{}
	ts := []Term{tp.Subject, tp.Object}
	if tp.Path == nil {
		ts = []Term{tp.Subject, tp.Predicate, tp.Object}
	}
	for _, t := range ts {
		if t.IsVar() && !seen[t.Var] {
			seen[t.Var] = true
			res = append(res, t.Var)
		}
	}
	return res
}

// Element is one of *TriplePattern, *Optional, *Union, *Filter or
// *GroupPattern.
type Element interface {
	isElement()
}

// GroupPattern is an ordered list of elements evaluated together.
type GroupPattern struct {
	Elements []Element
}

// Optional is a left outer join against the wrapped group.
type Optional struct {
	Pattern *GroupPattern
}

// Union concatenates the solutions of each branch.
type Union struct {
	Branches []*GroupPattern
}

// Filter drops the solutions for which the expression is not true.
type Filter struct {
	Expr Expression
}

func (*TriplePattern) isElement() {}
func (*GroupPattern) isElement()  {}
func (*Optional) isElement()      {}
func (*Union) isElement()         {}
func (*Filter) isElement()        {}

// Variables returns all the variables that may be bound by the group in
// first seen order.
func (g *GroupPattern) Variables() []string {
	var res []string
	seen := map[string]bool{}
	add := func(vs []string) {
		for _, v := range vs {
			if !seen[v] {
				seen[v] = true
				res = append(res, v)
			}
		}
	}
	for _, e := range g.Elements {
		switch e := e.(type) {
		case *TriplePattern:
			add(e.Variables())
		case *GroupPattern:
			add(e.Variables())
		case *Optional:
			add(e.Pattern.Variables())
		case *Union:
			for _, b := range e.Branches {
				add(b.Variables())
			}
		}
	}
	return res
}

// AggregateFunc lists the supported aggregation functions.
type AggregateFunc int

// Supported aggregates.
const (
	Count AggregateFunc = iota + 1
	Sum
	Min
	Max
	Avg
)

// String returns the keyword of the aggregate.
func (f AggregateFunc) String() string {
	switch f {
	case Count:
		return "COUNT"
	case Sum:
		return "SUM"
	case Min:
		return "MIN"
	case Max:
		return "MAX"
	case Avg:
		return "AVG"
	default:
		return "UNKNOWN"
	}
}

// Aggregate describes an aggregation projected as Alias.
type Aggregate struct {
	Func     AggregateFunc
	Var      string
	Star     bool
	Distinct bool
	Alias    string
}

// String returns a readable version of the aggregate.
func (a *Aggregate) String() string {
	arg := "?" + a.Var
	if a.Star {
		arg = "*"
	}
	if a.Distinct {
		arg = "DISTINCT " + arg
	}
	return fmt.Sprintf("(%s(%s) AS ?%s)", a.Func, arg, a.Alias)
}

// Projection is either a plain variable or an aggregate.
type Projection struct {
	Var       string
	Aggregate *Aggregate
}

// Name returns the name of the projected variable.
func (p Projection) Name() string {
	if p.Aggregate != nil {
		return p.Aggregate.Alias
	}
	return p.Var
}

// OrderKey is an ORDER BY condition.
type OrderKey struct {
	Var  string
	Desc bool
}

// Query is a parsed SELECT query.
type Query struct {
	Distinct   bool
	Star       bool
	Projection []Projection
	Where      *GroupPattern
	GroupBy    []string
	OrderBy    []OrderKey
	Limit      int
	HasLimit   bool
	Offset     int
}

// HasAggregates returns true if any projection is an aggregate.
func (q *Query) HasAggregates() bool {
	for _, p := range q.Projection {
		if p.Aggregate != nil {
			return true
		}
	}
	return false
}

// Variables returns the names of the variables of the result rows.
func (q *Query) Variables() []string {
	if q.Star {
		if q.Where == nil {
			return nil
		}
		var res []string
		for _, v := range q.Where.Variables() {
			if !IsBlankVar(v) {
				res = append(res, v)
			}
		}
		return res
	}
	res := make([]string, 0, len(q.Projection))
	for _, p := range q.Projection {
		res = append(res, p.Name())
	}
	return res
}

// String returns a normalized rendering of the query.
func (q *Query) String() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if q.Distinct {
		b.WriteString("DISTINCT ")
	}
	if q.Star {
		b.WriteString("*")
	}
	for i, p := range q.Projection {
		if i > 0 {
			b.WriteString(" ")
		}
		if p.Aggregate != nil {
			b.WriteString(p.Aggregate.String())
		} else {
			b.WriteString("?" + p.Var)
		}
	}
	b.WriteString(" WHERE ")
	writeGroup(&b, q.Where)
	if len(q.GroupBy) > 0 {
		b.WriteString(" GROUP BY")
		for _, v := range q.GroupBy {
			b.WriteString(" ?" + v)
		}
	}
	if len(q.OrderBy) > 0 {
		b.WriteString(" ORDER BY")
		for _, k := range q.OrderBy {
			if k.Desc {
				fmt.Fprintf(&b, " DESC(?%s)", k.Var)
			} else {
				b.WriteString(" ?" + k.Var)
			}
		}
	}
	if q.HasLimit {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", q.Offset)
	}
	return b.String()
}

func writeGroup(b *strings.Builder, g *GroupPattern) {
	b.WriteString("{")
	if g != nil {
		for _, e := range g.Elements {
			b.WriteString(" ")
			writeElement(b, e)
		}
	}
	b.WriteString(" }")
}

func writeElement(b *strings.Builder, e Element) {
	switch e := e.(type) {
	case *TriplePattern:
		b.WriteString(e.String() + " .")
	case *GroupPattern:
		writeGroup(b, e)
	case *Optional:
		b.WriteString("OPTIONAL ")
		writeGroup(b, e.Pattern)
	case *Union:
		for i, br := range e.Branches {
			if i > 0 {
				b.WriteString(" UNION ")
			}
			writeGroup(b, br)
		}
	case *Filter:
		fmt.Fprintf(b, "FILTER(%s)", e.Expr)
	}
}
