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

package compliance

import (
	"context"
	"testing"
)

var commandFacts = []string{
	"cnv:Services a cnv:Noun ; cnv:name \"services\" .",
	"cnv:Nodes a cnv:Noun ; cnv:name \"nodes\" .",
	"cnv:ServicesStatus a cnv:Verb ; cnv:name \"status\" ; cnv:hasNoun cnv:Services .",
	"cnv:ServicesRestart a cnv:Verb ; cnv:name \"restart\" ; cnv:hasNoun cnv:Services .",
	"cnv:NodesList a cnv:Verb ; cnv:name \"list\" ; cnv:hasNoun cnv:Nodes .",
}

func testStories() []*Story {
	return []*Story{
		{
			Name:    "Joins",
			Sources: []*Source{{ID: "commands", Facts: commandFacts}},
			Assertions: []*Assertion{
				{
					Requires:  "retrieving the verbs of a noun",
					Statement: `SELECT ?verb WHERE { ?n cnv:name "services" . ?v cnv:hasNoun ?n ; cnv:name ?verb } ORDER BY ?verb`,
					MustReturn: []map[string]string{
						{"?verb": "restart"},
						{"?verb": "status"},
					},
				},
				{
					Requires:  "counting the verbs",
					Statement: `SELECT (COUNT(?v) AS ?count) WHERE { ?v a cnv:Verb }`,
					MustReturn: []map[string]string{
						{"?count": "3"},
					},
				},
			},
		},
		{
			Name: "Paths",
			Sources: []*Source{{
				ID: "cycle",
				Facts: []string{
					"@prefix ex: <http://example.org/> .",
					"ex:a ex:next ex:b .",
					"ex:b ex:next ex:a .",
				},
			}},
			Assertions: []*Assertion{
				{
					Requires:  "terminating on cycles",
					Statement: `PREFIX ex: <http://example.org/> SELECT ?y WHERE { ex:a ex:next+ ?y } ORDER BY ?y`,
					MustReturn: []map[string]string{
						{"?y": "ex:a"},
						{"?y": "ex:b"},
					},
				},
			},
		},
		{
			Name:    "Failures",
			Sources: []*Source{{ID: "commands", Facts: commandFacts}},
			Assertions: []*Assertion{
				{
					Requires:  "rejecting malformed queries",
					Statement: `SELECT ?x WHERE { ?x`,
					WillFail:  true,
				},
			},
		},
	}
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	for _, s := range testStories() {
		m, err := s.Run(ctx)
		if err != nil {
			t.Fatalf("story %q failed with error %v", s.Name, err)
		}
		if got, want := len(m), len(s.Assertions); got != want {
			t.Errorf("story %q returned %d outcomes, want %d", s.Name, got, want)
		}
		for r, sao := range m {
			if !sao.Equal {
				t.Errorf("%q should have not returned false; got\n%s\nwant\n%s", r, sao.Got, sao.Want)
			}
		}
	}
}

func TestRunStories(t *testing.T) {
	stories := testStories()
	stories = append(stories, &Story{
		Name:    "Broken source",
		Sources: []*Source{{ID: "broken", Facts: []string{"cnv:a cnv:b"}}},
	}, &Story{
		Name:    "Wrong expectation",
		Sources: []*Source{{ID: "commands", Facts: commandFacts}},
		Assertions: []*Assertion{{
			Requires:   "a missing noun",
			Statement:  `SELECT ?n WHERE { ?n a cnv:Noun } ORDER BY ?n`,
			MustReturn: []map[string]string{{"?n": "cnv:Nodes"}},
		}},
	})
	results := RunStories(context.Background(), stories)
	if got, want := len(results.Entries), len(stories); got != want {
		t.Fatalf("RunStories returned %d entries, want %d", got, want)
	}
	if results.Entries[len(stories)-2].Err == nil {
		t.Errorf("a broken source should fail the story")
	}
	if got, want := results.Failed(), 2; got != want {
		t.Errorf("Failed returned %d, want %d", got, want)
	}
}
