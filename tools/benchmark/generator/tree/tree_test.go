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

package tree

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/nounverb/cnvq/tools/benchmark/generator"
)

func edge(p, c int) string {
	return fmt.Sprintf("<https://cnv.dev/ontology#tn%d> <https://cnv.dev/ontology#parentOf> <https://cnv.dev/ontology#tn%d> .", p, c)
}

func TestInvalidBranch(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Errorf("tree.New(0) should have failed")
	}
}

func TestGenerate(t *testing.T) {
	tg1, err := New(1)
	if err != nil {
		t.Fatal(err)
	}
	tg2, err := New(2)
	if err != nil {
		t.Fatal(err)
	}
	tg5, err := New(5)
	if err != nil {
		t.Fatal(err)
	}
	testData := []struct {
		g    generator.Generator
		n    int
		want []string
	}{
		{g: tg2, n: 0, want: nil},
		{g: tg2, n: 1, want: []string{edge(0, 1)}},
		{g: tg2, n: 2, want: []string{edge(0, 1), edge(0, 2)}},
		{g: tg2, n: 5, want: []string{edge(0, 1), edge(0, 2), edge(1, 3), edge(1, 4), edge(2, 5)}},
		{g: tg1, n: 3, want: []string{edge(0, 1), edge(1, 2), edge(2, 3)}},
		{g: tg5, n: 6, want: []string{edge(0, 1), edge(0, 2), edge(0, 3), edge(0, 4), edge(0, 5), edge(1, 6)}},
	}
	for _, entry := range testData {
		trpls, err := entry.g.Generate(entry.n)
		if err != nil {
			t.Fatalf("Generate(%d) failed with error %v", entry.n, err)
		}
		var got []string
		for _, t := range trpls {
			got = append(got, t.String())
		}
		if !reflect.DeepEqual(got, entry.want) {
			t.Errorf("Generate(%d) returned %v, want %v", entry.n, got, entry.want)
		}
	}
}
