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

// Package cache provides a bounded LRU cache of query results keyed by the
// normalized query text.
package cache

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/nounverb/cnvq/sparql/table"
)

// DefaultCapacity is the number of results kept when no capacity is given.
const DefaultCapacity = 1000

// Stats contains the counters of the cache.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Len       int
}

type metrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter
}

// Cache is a mutex guarded LRU of query results. Results are cloned on the
// way in and out so callers never share state with the cache.
type Cache struct {
	mu    sync.Mutex
	lru   *lru.Cache
	stats Stats
	group singleflight.Group
	m     *metrics
}

// Option configures a cache.
type Option func(*Cache) error

// WithRegisterer exports the cache counters on the provided registerer.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Cache) error {
		if reg == nil {
			return nil
		}
		var err error
		m := &metrics{}
		if m.hits, err = registerCounter(reg, "cnvq_cache_hits_total", "Number of query cache hits."); err != nil {
			return err
		}
		if m.misses, err = registerCounter(reg, "cnvq_cache_misses_total", "Number of query cache misses."); err != nil {
			return err
		}
		if m.evictions, err = registerCounter(reg, "cnvq_cache_evictions_total", "Number of results evicted from the query cache."); err != nil {
			return err
		}
		c.m = m
		return nil
	}
}

// registerCounter registers a counter, reusing the existing one if an
// identical collector was already registered.
func registerCounter(reg prometheus.Registerer, name, help string) (prometheus.Counter, error) {
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if ec, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return ec, nil
			}
		}
		return nil, err
	}
	return c, nil
}

// New returns a cache holding at most capacity results. A non positive
// capacity uses DefaultCapacity.
func New(capacity int, opts ...Option) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Cache{lru: lru.New(capacity)}
	c.lru.OnEvicted = func(lru.Key, interface{}) {
		c.stats.Evictions++
		if c.m != nil {
			c.m.evictions.Inc()
		}
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Key returns the cache key of a query: its text trimmed with every run of
// whitespace collapsed to a single space.
func Key(q string) string {
	return strings.Join(strings.Fields(q), " ")
}

// Get returns a copy of the cached result of the query, if any.
func (c *Cache) Get(q string) (*table.Table, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lru.Get(Key(q))
	if !ok {
		c.stats.Misses++
		if c.m != nil {
			c.m.misses.Inc()
		}
		return nil, false
	}
	c.stats.Hits++
	if c.m != nil {
		c.m.hits.Inc()
	}
	return v.(*table.Table).Clone(), true
}

// Put stores a copy of the result of the query, evicting the least recently
// used entry if the cache is full.
func (c *Cache) Put(q string, t *table.Table) {
	if t == nil {
		return
	}
	t = t.Clone()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(Key(q), t)
}

// InvalidateAll drops every cached result. Evictions caused by invalidation
// are not counted.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	onEvicted := c.lru.OnEvicted
	c.lru.OnEvicted = nil
	c.lru.Clear()
	c.lru.OnEvicted = onEvicted
}

// Len returns the number of cached results.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Len = c.lru.Len()
	return s
}

// GetOrCompute returns the cached result of the query or computes it with fn.
// Concurrent misses on the same query share a single computation, run under a
// context detached from the cancellation of the caller that started it. Calls
// whose context carries a deadline compute alone, so their partial rows only
// reach them. Partial results and errors are never cached. The returned
// boolean reports a cache hit.
func (c *Cache) GetOrCompute(ctx context.Context, q string, fn func(context.Context) (*table.Table, error)) (*table.Table, bool, error) {
	if t, ok := c.Get(q); ok {
		return t, true, nil
	}
	compute := func(ctx context.Context) (*table.Table, error) {
		t, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if !t.Partial() {
			c.Put(q, t)
		}
		return t, nil
	}
	if _, ok := ctx.Deadline(); ok {
		t, err := compute(ctx)
		if err != nil {
			return nil, false, err
		}
		return t.Clone(), false, nil
	}
	ch := c.group.DoChan(Key(q), func() (interface{}, error) {
		return compute(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, false, r.Err
		}
		return r.Val.(*table.Table).Clone(), false, nil
	}
}
