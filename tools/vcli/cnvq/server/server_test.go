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

package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nounverb/cnvq/engine"
	"github.com/nounverb/cnvq/tools/testutil"
)

const commands = `
cnv:Services a cnv:Noun ; cnv:name "services" .
cnv:ServicesStatus a cnv:Verb ; cnv:name "status" ; cnv:hasNoun cnv:Services .
cnv:ServicesRestart a cnv:Verb ; cnv:name "restart" ; cnv:hasNoun cnv:Services .
cnv:servicesStatus a cnv:Command ; cnv:name "services status" ;
    cnv:noun cnv:Services ; cnv:verb cnv:ServicesStatus ;
    cnv:description "Show the status of a service" .
cnv:servicesRestart a cnv:Command ; cnv:name "services restart" ;
    cnv:noun cnv:Services ; cnv:verb cnv:ServicesRestart ;
    cnv:description "Restart a service" .
`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	s := testutil.MustBuildStore(t, commands)
	s.Freeze()
	reg := prometheus.NewRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e, err := engine.New(s, engine.WithRegisterer(reg), engine.WithLogger(logger))
	require.NoError(t, err)
	srv := httptest.NewServer(NewHandler(e, reg, logger))
	t.Cleanup(srv.Close)
	return srv
}

type response struct {
	Query string `json:"query"`
	Msg   string `json:"msg"`
	Table *struct {
		Variables []string            `json:"variables"`
		Rows      []map[string]string `json:"rows"`
	} `json:"table"`
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestSparqlHandler(t *testing.T) {
	srv := newServer(t)
	q := `SELECT ?n WHERE { ?v cnv:hasNoun cnv:Services ; cnv:name ?n } ORDER BY ?n`

	resp, err := http.Get(srv.URL + "/sparql?" + url.Values{"query": {q}}.Encode())
	require.NoError(t, err)
	var got []response
	decode(t, resp, &got)
	require.Len(t, got, 1)
	assert.Equal(t, "[OK]", got[0].Msg)
	require.NotNil(t, got[0].Table)
	assert.Equal(t, []string{"n"}, got[0].Table.Variables)
	assert.Equal(t, []map[string]string{{"n": "restart"}, {"n": "status"}}, got[0].Table.Rows)
}

func TestSparqlHandlerBatch(t *testing.T) {
	srv := newServer(t)
	body := "SELECT ?c WHERE { ?c a cnv:Command };\nSELECT ?x WHERE {;\n}"
	resp, err := http.PostForm(srv.URL+"/sparql", url.Values{
		"query":   {body, "SELECT (COUNT(*) AS ?n) WHERE { ?v a cnv:Verb }"},
		"timeout": {"2s"},
	})
	require.NoError(t, err)
	var got []response
	decode(t, resp, &got)
	require.Len(t, got, 3)
	assert.Equal(t, "[OK]", got[0].Msg)
	assert.Len(t, got[0].Table.Rows, 2)
	assert.True(t, strings.HasPrefix(got[1].Msg, "[ERROR]"), got[1].Msg)
	assert.Nil(t, got[1].Table)
	assert.Equal(t, []map[string]string{{"n": "2"}}, got[2].Table.Rows)
}

func TestSparqlHandlerBadRequests(t *testing.T) {
	srv := newServer(t)
	table := []struct {
		name   string
		method string
		target string
		want   int
	}{
		{"missing query", http.MethodGet, "/sparql", http.StatusBadRequest},
		{"invalid timeout", http.MethodGet, "/sparql?query=SELECT+%3Fx+WHERE+%7B+%3Fx+%3Fp+%3Fo+%7D&timeout=soon", http.StatusBadRequest},
		{"method", http.MethodDelete, "/sparql", http.StatusMethodNotAllowed},
		{"explain method", http.MethodPost, "/explain", http.StatusMethodNotAllowed},
		{"explain syntax", http.MethodGet, "/explain?query=SELECT", http.StatusBadRequest},
		{"unknown path", http.MethodGet, "/nowhere", http.StatusNotFound},
	}
	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			req, err := http.NewRequest(entry.method, srv.URL+entry.target, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, entry.want, resp.StatusCode)
		})
	}
}

func TestDiscoverHandler(t *testing.T) {
	srv := newServer(t)
	table := []struct {
		intent string
		want   []string
	}{
		{"restart", []string{"services restart"}},
		{"SERVICE", []string{"services restart", "services status"}},
		{"deploy", []string{}},
	}
	for _, entry := range table {
		resp, err := http.Get(srv.URL + "/discover?" + url.Values{"intent": {entry.intent}}.Encode())
		require.NoError(t, err)
		var got []string
		decode(t, resp, &got)
		assert.Equal(t, entry.want, got, entry.intent)
	}
}

func TestExplainHandler(t *testing.T) {
	srv := newServer(t)
	resp, err := http.Get(srv.URL + "/explain?" + url.Values{"query": {"SELECT ?n WHERE { ?c cnv:name ?n } LIMIT 1"}}.Encode())
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(string(b), "SELECT ?n\n"), string(b))
	assert.Contains(t, string(b), "LIMIT 1\n")
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newServer(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	var health struct {
		Status  string `json:"status"`
		Triples int    `json:"triples"`
	}
	decode(t, resp, &health)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 18, health.Triples)

	resp, err = http.Get(srv.URL + "/sparql?" + url.Values{"query": {"SELECT ?x WHERE { ?x a cnv:Noun }"}}.Encode())
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(b), "cnvq_query_duration_seconds_count")
	assert.Contains(t, string(b), "cnvq_query_partial_total 0")
}

func TestDefaultHandler(t *testing.T) {
	srv := newServer(t)
	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), `<form action="/sparql" method="POST">`)
}
