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

// Package engine fronts the query pipeline: parsing, planning, execution and
// result caching over a published ontology store.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pborman/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/nounverb/cnvq/sparql/cache"
	"github.com/nounverb/cnvq/sparql/grammar"
	"github.com/nounverb/cnvq/sparql/planner"
	"github.com/nounverb/cnvq/sparql/planner/filter"
	"github.com/nounverb/cnvq/sparql/semantic"
	"github.com/nounverb/cnvq/sparql/table"
	"github.com/nounverb/cnvq/storage"
	"github.com/nounverb/cnvq/triple"
	"github.com/nounverb/cnvq/triple/namespace"
)

// DefaultBatchConcurrency is the number of batch queries run concurrently.
const DefaultBatchConcurrency = 4

// Result is the outcome of a query.
type Result struct {
	ID        string
	Variables []string
	Table     *table.Table
	Partial   bool
	CacheHit  bool
	Duration  time.Duration
}

// Rows returns the result rows.
func (r *Result) Rows() []table.Row {
	return r.Table.Rows()
}

// BatchResult is the outcome of a query of a batch.
type BatchResult struct {
	Query  string
	Result *Result
	Err    error
}

type options struct {
	logger        *slog.Logger
	timeout       time.Duration
	joinThreshold int
	maxPathDepth  int
	capacity      int
	batch         int
	reg           prometheus.Registerer
	tracer        io.Writer
}

// Option configures an engine.
type Option func(*options)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTimeout sets the deadline of every query.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithJoinThreshold sets the planner hash join threshold.
func WithJoinThreshold(n int) Option {
	return func(o *options) { o.joinThreshold = n }
}

// WithMaxPathDepth bounds the expansion of transitive paths.
func WithMaxPathDepth(n int) Option {
	return func(o *options) { o.maxPathDepth = n }
}

// WithCacheCapacity sets the number of cached results.
func WithCacheCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// WithBatchConcurrency sets the number of batch queries run concurrently.
func WithBatchConcurrency(n int) Option {
	return func(o *options) { o.batch = n }
}

// WithRegisterer exports the engine and cache metrics.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.reg = reg }
}

// WithTracer writes execution traces of every executed plan.
func WithTracer(w io.Writer) Option {
	return func(o *options) { o.tracer = w }
}

type metrics struct {
	duration *prometheus.HistogramVec
	partial  prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cnvq_query_duration_seconds",
			Help:    "Duration of query executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		partial: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cnvq_query_partial_total",
			Help: "Number of queries interrupted by their deadline.",
		}),
	}
	for _, c := range []prometheus.Collector{m.duration, m.partial} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return nil, err
			}
			switch ec := are.ExistingCollector.(type) {
			case *prometheus.HistogramVec:
				m.duration = ec
			case prometheus.Counter:
				m.partial = ec
			}
		}
	}
	return m, nil
}

// Engine executes queries against a store. It is safe for concurrent use.
type Engine struct {
	opts    options
	cache   *cache.Cache
	metrics *metrics

	mu      sync.RWMutex
	store   storage.Store
	ns      *namespace.Table
	version uint64
}

// New returns an engine over the store. Queries can use the prefixes of the
// store namespace table.
func New(store storage.Store, opts ...Option) (*Engine, error) {
	o := options{
		logger:        slog.Default(),
		joinThreshold: planner.DefaultJoinThreshold,
		maxPathDepth:  planner.DefaultMaxPathDepth,
		capacity:      cache.DefaultCapacity,
		batch:         DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(&o)
	}
	c, err := cache.New(o.capacity, cache.WithRegisterer(o.reg))
	if err != nil {
		return nil, fmt.Errorf("engine.New: %w", err)
	}
	e := &Engine{
		opts:    o,
		cache:   c,
		store:   store,
		ns:      store.Namespaces().Clone(),
		version: store.Version(),
	}
	if o.reg != nil {
		if e.metrics, err = newMetrics(o.reg); err != nil {
			return nil, fmt.Errorf("engine.New: %w", err)
		}
	}
	return e, nil
}

// Store returns the current store.
func (e *Engine) Store() storage.Store {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store
}

// Cache returns the result cache.
func (e *Engine) Cache() *cache.Cache {
	return e.cache
}

// Namespaces returns a copy of the namespaces available to queries.
func (e *Engine) Namespaces() *namespace.Table {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ns.Clone()
}

// snapshot returns the store and namespaces to use for a query. Cached
// results are dropped if the store changed since they were computed.
func (e *Engine) snapshot() (storage.Store, *namespace.Table) {
	e.mu.RLock()
	s, ns, v := e.store, e.ns, e.version
	e.mu.RUnlock()
	if cur := s.Version(); cur != v {
		e.mu.Lock()
		if e.store == s && e.version != cur {
			e.version = cur
			e.cache.InvalidateAll()
		}
		e.mu.Unlock()
	}
	return s, ns
}

// Reload swaps the store and drops every cached result.
func (e *Engine) Reload(store storage.Store) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store = store
	e.ns = store.Namespaces().Clone()
	e.version = store.Version()
	e.cache.InvalidateAll()
	e.opts.logger.Info("store reloaded", slog.Int("triples", store.Len()))
}

// AddPrefix declares a prefix available to every query. Cached results are
// dropped since prefixed names may now resolve differently.
func (e *Engine) AddPrefix(prefix, iri string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ns := e.ns.Clone()
	if err := ns.Add(prefix, iri); err != nil {
		return err
	}
	e.ns = ns
	e.cache.InvalidateAll()
	return nil
}

func (e *Engine) plannerOptions(ns *namespace.Table) []planner.Option {
	return []planner.Option{
		planner.WithJoinThreshold(e.opts.joinThreshold),
		planner.WithMaxPathDepth(e.opts.maxPathDepth),
		planner.WithTimeout(e.opts.timeout),
		planner.WithTracer(e.opts.tracer),
		planner.WithNamespaces(ns),
	}
}

// Query parses, plans and executes the query. Results are served from the
// cache when possible. Queries interrupted by the deadline return the
// partial rows found so far without error.
func (e *Engine) Query(ctx context.Context, text string) (*Result, error) {
	start := time.Now()
	id := uuid.New()
	store, ns := e.snapshot()
	var q *semantic.Query
	tbl, hit, err := e.cache.GetOrCompute(ctx, text, func(ctx context.Context) (*table.Table, error) {
		var err error
		if q, err = grammar.Parse(text, grammar.WithNamespaces(ns)); err != nil {
			return nil, err
		}
		p, err := planner.New(store, q, e.plannerOptions(ns)...)
		if err != nil {
			return nil, err
		}
		return p.Execute(ctx, store)
	})
	d := time.Since(start)
	if err != nil {
		e.observe("error", d)
		e.opts.logger.Debug("query failed",
			slog.String("query_id", id),
			slog.String("query", cache.Key(text)),
			slog.Any("error", err))
		return nil, err
	}

	res := &Result{
		ID:        id,
		Variables: tbl.Bindings(),
		Table:     tbl,
		Partial:   tbl.Partial(),
		CacheHit:  hit,
		Duration:  d,
	}
	outcome := "ok"
	if res.Partial {
		outcome = "partial"
		if e.metrics != nil {
			e.metrics.partial.Inc()
		}
		e.opts.logger.Warn("query interrupted",
			slog.String("query_id", id),
			slog.String("query", cache.Key(text)),
			slog.Any("warning", planner.ErrTimeoutExceeded),
			slog.Int("rows", tbl.NumRows()))
	}
	e.observe(outcome, d)
	e.opts.logger.Debug("query executed",
		slog.String("query_id", id),
		slog.Int("rows", tbl.NumRows()),
		slog.Duration("duration", d),
		slog.Bool("partial", res.Partial),
		slog.Bool("cache_hit", hit))
	return res, nil
}

func (e *Engine) observe(outcome string, d time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.duration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ExecuteQuery returns the rows of the query.
func (e *Engine) ExecuteQuery(ctx context.Context, text string) ([]table.Row, error) {
	res, err := e.Query(ctx, text)
	if err != nil {
		return nil, err
	}
	return res.Rows(), nil
}

// discoverTemplate finds the commands whose name or description contains
// the intent.
const discoverTemplate = `PREFIX cnv: <` + namespace.CNV + `>
SELECT DISTINCT ?name WHERE {
  ?cmd a cnv:Command ;
       cnv:name ?name .
  OPTIONAL { ?cmd cnv:description ?desc }
  FILTER(CONTAINS(LCASE(?name), %[1]s) || CONTAINS(LCASE(?desc), %[1]s))
} ORDER BY ?name`

// DiscoverCommands returns the names of the commands matching the intent.
// Matching is case insensitive.
func (e *Engine) DiscoverCommands(ctx context.Context, intent string) ([]string, error) {
	q := fmt.Sprintf(discoverTemplate, triple.Quote(filter.Fold(strings.TrimSpace(intent))))
	rows, err := e.ExecuteQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	res := make([]string, 0, len(rows))
	for _, r := range rows {
		res = append(res, r["name"].Lexical())
	}
	return res, nil
}

// ExecuteBatch runs the queries concurrently. Results keep the order of the
// queries; failures are reported per query.
func (e *Engine) ExecuteBatch(ctx context.Context, queries []string) []BatchResult {
	res := make([]BatchResult, len(queries))
	var g errgroup.Group
	g.SetLimit(e.opts.batch)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			r, err := e.Query(ctx, q)
			res[i] = BatchResult{Query: q, Result: r, Err: err}
			return nil
		})
	}
	g.Wait()
	return res
}

// Explain returns the optimized plan of the query.
func (e *Engine) Explain(text string) (string, error) {
	store, ns := e.snapshot()
	q, err := grammar.Parse(text, grammar.WithNamespaces(ns))
	if err != nil {
		return "", err
	}
	p, err := planner.New(store, q, e.plannerOptions(ns)...)
	if err != nil {
		return "", err
	}
	return p.String(), nil
}
