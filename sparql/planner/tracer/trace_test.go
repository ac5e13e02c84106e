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

package tracer

import (
	"bytes"
	"regexp"
	"testing"
)

func TestTraceNilWriter(t *testing.T) {
	called := false
	Trace(nil, func() []string {
		called = true
		return nil
	})
	if called {
		t.Errorf("Trace should not generate messages without a writer")
	}
}

func TestTrace(t *testing.T) {
	var b bytes.Buffer
	Trace(&b, func() []string {
		return []string{"foo", "bar"}
	})
	Tracef(&b, "rows=%d", 3)
	re := regexp.MustCompile(`^\[[^\]]+\] (foo|bar|rows=3)$`)
	lines := bytes.Split(bytes.TrimSpace(b.Bytes()), []byte("\n"))
	if got, want := len(lines), 3; got != want {
		t.Fatalf("Trace wrote %d lines, want %d", got, want)
	}
	for _, l := range lines {
		if !re.Match(l) {
			t.Errorf("Trace wrote unexpected line %q", l)
		}
	}
}
