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

// Package server provides a simple http endpoint to run queries against the
// ontology.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/nounverb/cnvq/engine"
	"github.com/nounverb/cnvq/tools/vcli/cnvq/common"
)

const shutdownTimeout = 5 * time.Second

// New creates the serve command.
func New(opts *common.Options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "runs a query endpoint.",
		Long: `Runs an HTTP endpoint over the configured ontology. It accepts queries on
/sparql and intents on /discover, returning JSON documents, and exposes the
engine metrics on /metrics.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := common.Setup(opts, cmd, nil)
			if err != nil {
				return err
			}
			reg := prometheus.NewRegistry()
			e, err := env.Engine(engine.WithRegisterer(reg))
			if err != nil {
				return err
			}
			return Serve(common.Context(cmd), addr, NewHandler(e, reg, env.Logger), env.Logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	return cmd
}

// Serve runs the handler on the address until the context is done.
func Serve(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return common.WrapExitError(common.ExitCommandError, fmt.Sprintf("failed to serve on %s", addr), err)
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("stopping server", slog.String("addr", addr))
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler serves queries against an engine.
type Handler struct {
	e      *engine.Engine
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewHandler returns the handler of the endpoint. Metrics are gathered from
// g.
func NewHandler(e *engine.Engine, g prometheus.Gatherer, logger *slog.Logger) *Handler {
	h := &Handler{e: e, logger: logger, mux: http.NewServeMux()}
	h.mux.HandleFunc("/sparql", h.sparqlHandler)
	h.mux.HandleFunc("/explain", h.explainHandler)
	h.mux.HandleFunc("/discover", h.discoverHandler)
	h.mux.HandleFunc("/health", h.healthHandler)
	h.mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	h.mux.HandleFunc("/", defaultHandler)
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// result contains a query and its outcome.
type result struct {
	Query string          `json:"query"`
	Msg   string          `json:"msg"`
	Table json.RawMessage `json:"table,omitempty"`
}

// sparqlHandler runs the queries of the request. Several queries may be
// provided, either as repeated query values or terminated by ';' at the end
// of a line.
func (h *Handler) sparqlHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	qs, err := getQueries(r.Form["query"])
	if err != nil || len(qs) == 0 {
		http.Error(w, "missing query", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if v := r.FormValue("timeout"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid timeout %q", v), http.StatusBadRequest)
			return
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	var res []result
	for _, br := range h.e.ExecuteBatch(ctx, qs) {
		rs := result{Query: br.Query, Msg: "[OK]"}
		if br.Err != nil {
			h.logger.Warn("query failed", slog.String("query", br.Query), slog.Any("error", br.Err))
			rs.Msg = fmt.Sprintf("[ERROR] %v", br.Err)
		} else if rs.Table, err = br.Result.Table.ToJSON(); err != nil {
			rs.Msg = fmt.Sprintf("[ERROR] %v", err)
		}
		res = append(res, rs)
	}
	writeJSON(w, http.StatusOK, res)
}

// getQueries returns the list of queries found, splitting them if needed.
func getQueries(raw []string) ([]string, error) {
	var res []string
	for _, q := range raw {
		stms, err := common.ReadStatements(strings.NewReader(q))
		if err != nil {
			return nil, err
		}
		res = append(res, stms...)
	}
	return res, nil
}

func (h *Handler) explainHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	plan, err := h.e.Explain(r.URL.Query().Get("query"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, plan)
}

func (h *Handler) discoverHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	names, err := h.e.DiscoverCommands(r.Context(), r.URL.Query().Get("intent"))
	if err != nil {
		h.logger.Warn("discover failed", slog.Any("error", err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

func (h *Handler) healthHandler(w http.ResponseWriter, r *http.Request) {
	s := h.e.Store()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"triples": s.Len(),
		"version": s.Version(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// defaultHandler serves a form to submit queries.
func defaultHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := defaultEntryTemplate.Execute(w, nil); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

var defaultEntryTemplate = template.Must(template.New("default").Parse(`
<html>
<head>
	<title>cnvq - Simple SPARQL endpoint</title>
</head>
<body>
	<p>SPARQL query to run</p>
	<form action="/sparql" method="POST">
		<textarea cols="86" rows="20" name="query"></textarea>
		<br>
		<input type="submit" value="Run">
	</form>
</body>
</html>`))
