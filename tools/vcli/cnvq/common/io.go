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

package common

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// ReadStatements returns the queries found in the reader. Queries end with a
// ';' at the end of a line outside any braces; lines starting with '#' are
// skipped.
func ReadStatements(r io.Reader) ([]string, error) {
	var (
		stms  []string
		lines []string
		depth int
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		l := strings.TrimSpace(scanner.Text())
		if len(l) == 0 || strings.HasPrefix(l, "#") {
			continue
		}
		depth += braceDepth(l)
		if depth <= 0 && strings.HasSuffix(l, ";") {
			lines = append(lines, strings.TrimSpace(strings.TrimSuffix(l, ";")))
			if stm := strings.TrimSpace(strings.Join(lines, "\n")); stm != "" {
				stms = append(stms, stm)
			}
			lines, depth = nil, 0
			continue
		}
		lines = append(lines, l)
	}
	if stm := strings.TrimSpace(strings.Join(lines, "\n")); stm != "" {
		stms = append(stms, stm)
	}
	return stms, scanner.Err()
}

// braceDepth returns the change of brace nesting of the line ignoring quoted
// strings.
func braceDepth(l string) int {
	d := 0
	var quote rune
	escaped := false
	for _, r := range l {
		switch {
		case escaped:
			escaped = false
		case quote != 0 && r == '\\':
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '{':
			d++
		case r == '}':
			d--
		}
	}
	return d
}

// GetStatementsFromFile returns the statements found in the provided file.
func GetStatementsFromFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadStatements(f)
}
