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

// Package memory provide a volatile memory-based implementation of the
// storage.Store interface.
package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nounverb/cnvq/storage"
	"github.com/nounverb/cnvq/triple"
	"github.com/nounverb/cnvq/triple/namespace"
)

type pair struct {
	a, b triple.Value
}

// Store provides an in-memory volatile implementation of the storage API.
// Indices hold positions into the insertion ordered triple slice, so every
// lookup returns matches in a deterministic order.
type Store struct {
	rwmu    sync.RWMutex
	frozen  atomic.Bool
	version atomic.Uint64

	ns    *namespace.Table
	ts    []triple.Triple
	idx   map[triple.Triple]int
	idxS  map[triple.Value][]int
	idxP  map[triple.Value][]int
	idxO  map[triple.Value][]int
	idxSP map[pair][]int
	idxPO map[pair][]int
	idxSO map[pair][]int
	nodes []triple.Value
	seen  map[triple.Value]struct{}
	preds []triple.Value
}

var _ storage.Store = (*Store)(nil)

// NewStore creates a new empty store using the provided namespace table. A
// nil table defaults to the rdf, rdfs, xsd and cnv prefixes.
func NewStore(ns *namespace.Table) *Store {
	if ns == nil {
		ns = namespace.Default()
	}
	return &Store{
		ns:    ns,
		idx:   make(map[triple.Triple]int),
		idxS:  make(map[triple.Value][]int),
		idxP:  make(map[triple.Value][]int),
		idxO:  make(map[triple.Value][]int),
		idxSP: make(map[pair][]int),
		idxPO: make(map[pair][]int),
		idxSO: make(map[pair][]int),
		seen:  make(map[triple.Value]struct{}),
	}
}

// rlock acquires the read lock unless the store is frozen, in which case no
// writer can exist anymore. It returns the matching unlock function.
func (m *Store) rlock() func() {
	if m.frozen.Load() {
		return func() {}
	}
	m.rwmu.RLock()
	return m.rwmu.RUnlock
}

// Insert adds the triples to the storage.
func (m *Store) Insert(ctx context.Context, ts ...triple.Triple) (int, error) {
	m.rwmu.Lock()
	defer m.rwmu.Unlock()
	if m.frozen.Load() {
		return 0, storage.ErrFrozen
	}
	added := 0
	defer func() {
		if added > 0 {
			m.version.Add(1)
		}
	}()
	for i, t := range ts {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return added, err
			}
		}
		if t.S.Kind != triple.URI && t.S.Kind != triple.BlankNode || t.P.Kind != triple.URI || t.O.IsZero() {
			return added, fmt.Errorf("memory.Insert: invalid triple %s", t)
		}
		if _, ok := m.idx[t]; ok {
			continue
		}
		pos := len(m.ts)
		m.ts = append(m.ts, t)
		m.idx[t] = pos
		m.idxS[t.S] = append(m.idxS[t.S], pos)
		if _, ok := m.idxP[t.P]; !ok {
			m.preds = append(m.preds, t.P)
		}
		m.idxP[t.P] = append(m.idxP[t.P], pos)
		m.idxO[t.O] = append(m.idxO[t.O], pos)
		m.idxSP[pair{t.S, t.P}] = append(m.idxSP[pair{t.S, t.P}], pos)
		m.idxPO[pair{t.P, t.O}] = append(m.idxPO[pair{t.P, t.O}], pos)
		m.idxSO[pair{t.S, t.O}] = append(m.idxSO[pair{t.S, t.O}], pos)
		m.addNode(t.S)
		m.addNode(t.O)
		added++
	}
	return added, nil
}

func (m *Store) addNode(v triple.Value) {
	if _, ok := m.seen[v]; ok {
		return
	}
	m.seen[v] = struct{}{}
	m.nodes = append(m.nodes, v)
}

func (m *Store) collect(pos []int) []triple.Triple {
	if len(pos) == 0 {
		return nil
	}
	res := make([]triple.Triple, 0, len(pos))
	for _, p := range pos {
		res = append(res, m.ts[p])
	}
	return res
}

// PatternMatch returns the triples matching the pattern using the most
// selective index available for the bound slots.
func (m *Store) PatternMatch(s, p, o *triple.Value) []triple.Triple {
	defer m.rlock()()
	switch {
	case s != nil && p != nil && o != nil:
		t := triple.Triple{S: *s, P: *p, O: *o}
		if _, ok := m.idx[t]; ok {
			return []triple.Triple{t}
		}
		return nil
	case s != nil && p != nil:
		return m.collect(m.idxSP[pair{*s, *p}])
	case p != nil && o != nil:
		return m.collect(m.idxPO[pair{*p, *o}])
	case s != nil && o != nil:
		return m.collect(m.idxSO[pair{*s, *o}])
	case s != nil:
		return m.collect(m.idxS[*s])
	case p != nil:
		return m.collect(m.idxP[*p])
	case o != nil:
		return m.collect(m.idxO[*o])
	default:
		res := make([]triple.Triple, len(m.ts))
		copy(res, m.ts)
		return res
	}
}

// Exist checks if the provided triple exist on the store.
func (m *Store) Exist(t triple.Triple) bool {
	defer m.rlock()()
	_, ok := m.idx[t]
	return ok
}

// Triples returns all the triples in insertion order.
func (m *Store) Triples() []triple.Triple {
	return m.PatternMatch(nil, nil, nil)
}

// Nodes returns every distinct subject and object in first seen order.
func (m *Store) Nodes() []triple.Value {
	defer m.rlock()()
	res := make([]triple.Value, len(m.nodes))
	copy(res, m.nodes)
	return res
}

// Predicates returns the distinct predicates in first seen order.
func (m *Store) Predicates() []triple.Value {
	defer m.rlock()()
	res := make([]triple.Value, len(m.preds))
	copy(res, m.preds)
	return res
}

// Len returns the number of triples held.
func (m *Store) Len() int {
	defer m.rlock()()
	return len(m.ts)
}

// PredicateCount returns the number of triples using the predicate.
func (m *Store) PredicateCount(p triple.Value) int {
	defer m.rlock()()
	return len(m.idxP[p])
}

// Stats returns the number of triples per predicate.
func (m *Store) Stats() map[triple.Value]int {
	defer m.rlock()()
	res := make(map[triple.Value]int, len(m.idxP))
	for p, pos := range m.idxP {
		res[p] = len(pos)
	}
	return res
}

// Namespaces returns the prefix table attached to the store.
func (m *Store) Namespaces() *namespace.Table {
	return m.ns
}

// Expand turns a prefixed name into an IRI.
func (m *Store) Expand(prefixed string) (string, error) {
	return m.ns.Expand(prefixed)
}

// Version is bumped on every mutation.
func (m *Store) Version() uint64 {
	return m.version.Load()
}

// Freeze publishes the store. Once frozen reads no longer take locks.
func (m *Store) Freeze() {
	m.rwmu.Lock()
	defer m.rwmu.Unlock()
	m.frozen.Store(true)
}

// Frozen returns true once the store was published.
func (m *Store) Frozen() bool {
	return m.frozen.Load()
}
