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

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nounverb/cnvq/tools/testutil"
	"github.com/nounverb/cnvq/tools/vcli/cnvq/common"
)

const commandsTTL = `@prefix cnv: <https://cnv.dev/ontology#> .

cnv:Services a cnv:Noun ; cnv:name "services" .
cnv:Nodes a cnv:Noun ; cnv:name "nodes" .

cnv:ServicesStatus a cnv:Verb ; cnv:name "status" ; cnv:hasNoun cnv:Services .
cnv:ServicesRestart a cnv:Verb ; cnv:name "restart" ; cnv:hasNoun cnv:Services .
cnv:NodesList a cnv:Verb ; cnv:name "list" ; cnv:hasNoun cnv:Nodes .

cnv:servicesStatus a cnv:Command ;
    cnv:name "services status" ;
    cnv:noun cnv:Services ;
    cnv:verb cnv:ServicesStatus ;
    cnv:description "Show the status of a service" .
cnv:servicesRestart a cnv:Command ;
    cnv:name "services restart" ;
    cnv:noun cnv:Services ;
    cnv:verb cnv:ServicesRestart ;
    cnv:description "Restart a service" .
cnv:nodesList a cnv:Command ;
    cnv:name "nodes list" ;
    cnv:noun cnv:Nodes ;
    cnv:verb cnv:NodesList ;
    cnv:description "List the cluster nodes" .
`

const configYAML = `engine:
  timeout: 5s
ontology:
  sources:
    - ontology/**/*.ttl
log:
  level: warn
`

// project writes a project holding the command ontology and returns the path
// of its config file.
func project(t *testing.T, extra ...string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "ontology"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ontology", "commands.ttl"), []byte(commandsTTL), 0644))
	for i, doc := range extra {
		name := filepath.Join(dir, "ontology", "extra", string(rune('a'+i))+".ttl")
		require.NoError(t, os.MkdirAll(filepath.Dir(name), 0755))
		require.NoError(t, os.WriteFile(name, []byte(doc), 0644))
	}
	cfg := filepath.Join(dir, "cnvq.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(configYAML), 0644))
	return cfg
}

// execute runs the root command returning its regular output.
func execute(t *testing.T, cfg, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", cfg}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := newRootCommand()
	for _, name := range []string{"bench", "check", "discover", "explain", "export", "load", "query", "repl", "run", "serve", "version"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := newRootCommand()
	for _, entry := range []struct{ name, def string }{
		{"config", ""},
		{"verbose", "false"},
		{"format", "text"},
		{"log-format", ""},
	} {
		f := cmd.PersistentFlags().Lookup(entry.name)
		require.NotNil(t, f, entry.name)
		assert.Equal(t, entry.def, f.DefValue, entry.name)
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, project(t), "", "--format", "xml", "version")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, project(t), "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "cnvq vCli (")
}

func TestQuery(t *testing.T) {
	cfg := project(t)
	q := `SELECT ?verb WHERE { ?v cnv:hasNoun cnv:Services ; cnv:name ?verb } ORDER BY ?verb`

	out, err := execute(t, cfg, "", "query", q)
	require.NoError(t, err)
	assert.Equal(t, "verb\nrestart\nstatus\n", out)

	out, err = execute(t, cfg, q, "query", "--trace", "-")
	require.NoError(t, err)
	assert.Equal(t, "verb\nrestart\nstatus\n", out)

	out, err = execute(t, cfg, "", "--format", "json", "query", q)
	require.NoError(t, err)
	var got struct {
		Variables []string            `json:"variables"`
		Rows      []map[string]string `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []string{"verb"}, got.Variables)
	assert.Equal(t, []map[string]string{{"verb": "restart"}, {"verb": "status"}}, got.Rows)
}

func TestQueryFailure(t *testing.T) {
	_, err := execute(t, project(t), "", "query", "SELECT ?x WHERE {")
	require.Error(t, err)
	assert.Equal(t, common.ExitFailure, common.GetExitCode(err))
}

func TestMissingConfig(t *testing.T) {
	_, err := execute(t, filepath.Join(t.TempDir(), "missing.yaml"), "", "query", "SELECT ?x WHERE { ?x ?p ?o }")
	require.Error(t, err)
	assert.Equal(t, common.ExitCommandError, common.GetExitCode(err))
}

func TestDiscover(t *testing.T) {
	cfg := project(t)
	out, err := execute(t, cfg, "", "discover", "STATUS")
	require.NoError(t, err)
	assert.Equal(t, "services status\n", out)

	out, err = execute(t, cfg, "", "--format", "json", "discover", "service")
	require.NoError(t, err)
	assert.JSONEq(t, `["services restart", "services status"]`, out)
}

func TestExplain(t *testing.T) {
	out, err := execute(t, project(t), "", "explain", `SELECT ?n WHERE { ?c a cnv:Command ; cnv:name ?n } ORDER BY ?n`)
	require.NoError(t, err)
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "explain", []byte(out))
}

func TestLoad(t *testing.T) {
	out, err := execute(t, project(t), "", "load")
	require.NoError(t, err)
	assert.Equal(t, "files=1 triples=28 prefixes=4 nouns=2 verbs=3 commands=3\n", out)
}

func TestLoadShapeViolations(t *testing.T) {
	broken := `@prefix cnv: <https://cnv.dev/ontology#> .
cnv:nodesDrain a cnv:Command ; cnv:name "nodes drain" ; cnv:noun cnv:Nodes .
`
	out, err := execute(t, project(t, broken), "", "--format", "json", "load")
	require.Error(t, err)
	assert.Equal(t, common.ExitFailure, common.GetExitCode(err))
	var st struct {
		Files    int      `json:"files"`
		Commands int      `json:"commands"`
		Problems []string `json:"problems"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, 2, st.Files)
	assert.Equal(t, 4, st.Commands)
	assert.Len(t, st.Problems, 2)
}

func TestExport(t *testing.T) {
	cfg := project(t)
	out, err := execute(t, cfg, "", "export")
	require.NoError(t, err)
	assert.Contains(t, out, "@prefix cnv: <https://cnv.dev/ontology#> .")
	ts, _ := testutil.MustParseTurtle(t, out)
	assert.Len(t, ts, 28)

	path := filepath.Join(t.TempDir(), "out.ttl")
	out, err = execute(t, cfg, "", "export", "--out", path)
	require.NoError(t, err)
	assert.Empty(t, out)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "cnv:servicesStatus")
}

func TestRun(t *testing.T) {
	cfg := project(t)
	path := filepath.Join(t.TempDir(), "queries.sparql")
	stms := `# verbs of the services noun
SELECT ?verb WHERE {
  ?v cnv:hasNoun cnv:Services ;
     cnv:name ?verb .
} ORDER BY ?verb;
SELECT (COUNT(*) AS ?n) WHERE { ?c a cnv:Command };
`
	require.NoError(t, os.WriteFile(path, []byte(stms), 0644))
	out, err := execute(t, cfg, "", "run", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Processing statement (2/2)")
	assert.Equal(t, 2, strings.Count(out, "[OK]"))

	require.NoError(t, os.WriteFile(path, []byte(stms+"SELECT ?broken WHERE { ?broken };\n"), 0644))
	out, err = execute(t, cfg, "", "run", path)
	require.Error(t, err)
	assert.Equal(t, common.ExitFailure, common.GetExitCode(err))
	assert.Contains(t, out, "[ERROR]")
}

func TestCheck(t *testing.T) {
	cfg := project(t)
	stories := `[{
  "Name": "Verbs",
  "Sources": [{"ID": "commands", "Facts": [
    "cnv:Services a cnv:Noun .",
    "cnv:ServicesStatus cnv:hasNoun cnv:Services ; cnv:name \"status\" ."
  ]}],
  "Assertions": [{
    "Requires": "finding the verbs of a noun",
    "Statement": "SELECT ?name WHERE { ?v cnv:hasNoun cnv:Services ; cnv:name ?name }",
    "MustReturn": [{"?name": "status"}]
  }]
}]`
	path := filepath.Join(t.TempDir(), "stories.json")
	require.NoError(t, os.WriteFile(path, []byte(stories), 0644))
	out, err := execute(t, cfg, "", "check", path)
	require.NoError(t, err)
	assert.Contains(t, out, "[Assertion=TRUE] requires finding the verbs of a noun")
	assert.Contains(t, out, "1 stories run, 0 failed")

	bad := strings.Replace(stories, `"status"}]`, `"restart"}]`, 1)
	require.NoError(t, os.WriteFile(path, []byte(bad), 0644))
	out, err = execute(t, cfg, "", "check", path)
	require.Error(t, err)
	assert.Equal(t, common.ExitFailure, common.GetExitCode(err))
	assert.Contains(t, out, "[Assertion=FALSE]")
}

func TestREPL(t *testing.T) {
	in := strings.Join([]string{
		"help",
		"discover cluster",
		`SELECT ?n WHERE { ?c a cnv:Command ; cnv:name ?n } ORDER BY ?n;`,
		"explain SELECT ?n WHERE { ?c cnv:name ?n }",
		"prefix ops: <https://cnv.dev/ontology#>",
		"SELECT ?n WHERE { ?c a ops:Noun ; ops:name ?n } ORDER BY ?n",
		"SELECT ?broken WHERE {",
		"reload",
		"quit",
		"SELECT ?never WHERE { ?never ?p ?o }",
	}, "\n")
	out, err := execute(t, project(t), in, "repl")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome to cnvq vCli")
	assert.Contains(t, out, "prints help for the cnvq console")
	assert.Contains(t, out, "nodes list\n[OK] 1 commands")
	assert.Contains(t, out, "n\nnodes list\nservices restart\nservices status\n[OK] 3 rows")
	assert.Contains(t, out, "SELECT ?n\n  1. ")
	assert.Contains(t, out, "n\nnodes\nservices\n[OK] 2 rows")
	assert.Contains(t, out, "[ERROR]")
	assert.Contains(t, out, "Reloaded 28 triples")
	assert.NotContains(t, out, "never")
	assert.Contains(t, out, "Thanks for all those queries!")
}

func TestBench(t *testing.T) {
	out, err := execute(t, project(t), "", "bench", "--sizes", "1", "--reps", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Stats for sequentially run property path queries benchmark")
	assert.NotContains(t, out, "[ERROR]")
}
