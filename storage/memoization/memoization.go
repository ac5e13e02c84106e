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

// Package memoization implements a passthrough store that memoizes the
// results of pattern lookups.
package memoization

import (
	"context"
	"sync"

	"github.com/nounverb/cnvq/storage"
	"github.com/nounverb/cnvq/triple"
)

// slot is an optionally bound term of a memoized pattern.
type slot struct {
	bound bool
	v     triple.Value
}

func newSlot(v *triple.Value) slot {
	if v == nil {
		return slot{}
	}
	return slot{bound: true, v: *v}
}

type key struct {
	s, p, o slot
}

// Store wraps a storage.Store and memoizes its pattern lookups. Property
// path evaluation repeats the same edge lookups many times, which is where
// the memoizer pays off.
type Store struct {
	storage.Store

	mu     sync.RWMutex
	memT   map[key][]triple.Triple
	memN   []triple.Value
	hits   int
	misses int
}

// New returns a new memoized store.
func New(s storage.Store) *Store {
	return &Store{
		Store: s,
		memT:  make(map[key][]triple.Triple),
	}
}

// reset drops all the memoized results.
func (m *Store) reset() {
	m.mu.Lock()
	m.memT = make(map[key][]triple.Triple)
	m.memN = nil
	m.mu.Unlock()
}

// Insert adds the triples to the wrapped store. Update operations reset the
// memoization.
func (m *Store) Insert(ctx context.Context, ts ...triple.Triple) (int, error) {
	n, err := m.Store.Insert(ctx, ts...)
	if n > 0 {
		m.reset()
	}
	return n, err
}

// PatternMatch returns the memoized matches for the pattern, querying the
// wrapped store on the first request.
func (m *Store) PatternMatch(s, p, o *triple.Value) []triple.Triple {
	k := key{newSlot(s), newSlot(p), newSlot(o)}
	m.mu.RLock()
	v, ok := m.memT[k]
	m.mu.RUnlock()
	if ok {
		m.mu.Lock()
		m.hits++
		m.mu.Unlock()
		return v
	}

	v = m.Store.PatternMatch(s, p, o)
	m.mu.Lock()
	m.memT[k] = v
	m.misses++
	m.mu.Unlock()
	return v
}

// Nodes returns the memoized distinct nodes of the wrapped store.
func (m *Store) Nodes() []triple.Value {
	m.mu.RLock()
	v := m.memN
	m.mu.RUnlock()
	if v != nil {
		return v
	}
	v = m.Store.Nodes()
	m.mu.Lock()
	m.memN = v
	m.mu.Unlock()
	return v
}

// Stats returns the number of memoized hits and misses so far.
func (m *Store) Stats() (hits, misses int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hits, m.misses
}
