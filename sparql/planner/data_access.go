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
	"strings"

	"github.com/nounverb/cnvq/sparql/semantic"
	"github.com/nounverb/cnvq/sparql/table"
	"github.com/nounverb/cnvq/triple"
)

// resolve returns the value of the term given the bindings of the row.
func resolve(t semantic.Term, r table.Row) (triple.Value, bool) {
	if !t.IsVar() {
		return t.Value, true
	}
	v, ok := r[t.Var]
	return v, ok
}

// lookupArgs returns the arguments of a PatternMatch call for the pattern
// after substituting the bindings of r. Unbound positions are nil.
func lookupArgs(tp *semantic.TriplePattern, r table.Row) (s, p, o *triple.Value) {
	ptr := func(t semantic.Term) *triple.Value {
		if v, ok := resolve(t, r); ok {
			return &v
		}
		return nil
	}
	return ptr(tp.Subject), ptr(tp.Predicate), ptr(tp.Object)
}

// bind adds the binding name=v to r. It returns false if the variable is
// already bound to a different value.
func bind(r table.Row, name string, v triple.Value) bool {
	if old, ok := r[name]; ok {
		return old == v
	}
	r[name] = v
	return true
}

// extend returns a copy of r extended with the bindings the triple provides
// to the pattern. It returns false if the triple is not consistent with the
// bindings of r or with variables repeated in the pattern.
func extend(tp *semantic.TriplePattern, t triple.Triple, r table.Row) (table.Row, bool) {
	res := r.Clone()
	for _, c := range []struct {
		term semantic.Term
		v    triple.Value
	}{
		{tp.Subject, t.S},
		{tp.Predicate, t.P},
		{tp.Object, t.O},
	} {
		if !c.term.IsVar() {
			continue
		}
		if !bind(res, c.term.Var, c.v) {
			return nil, false
		}
	}
	return res, true
}

// hashKey returns the key of the row for the provided variables. It returns
// false if any of them is unbound.
func hashKey(r table.Row, vars []string) (string, bool) {
	var b strings.Builder
	for _, v := range vars {
		val, ok := r[v]
		if !ok {
			return "", false
		}
		b.WriteString(val.String())
		b.WriteByte(0)
	}
	return b.String(), true
}
