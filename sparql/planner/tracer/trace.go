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

// Package tracer provides lazy execution tracing for the planner.
package tracer

import (
	"fmt"
	"io"
	"time"
)

const layout = "2006-01-02T15:04:05.999999-07:00"

// Trace writes the messages returned by msgs prefixed by a timestamp. The
// messages are only generated if a writer is provided.
func Trace(w io.Writer, msgs func() []string) {
	if w == nil {
		return
	}
	ts := time.Now().Format(layout)
	for _, msg := range msgs() {
		fmt.Fprintf(w, "[%s] %s\n", ts, msg)
	}
}

// Tracef writes a single formatted message.
func Tracef(w io.Writer, format string, args ...interface{}) {
	if w == nil {
		return
	}
	Trace(w, func() []string {
		return []string{fmt.Sprintf(format, args...)}
	})
}
