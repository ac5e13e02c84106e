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

package config

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// ExpandSources expands the ontology source patterns to the matching files,
// sorted and without duplicates. Relative patterns are resolved against
// base. Both single level (*) and recursive (**) wildcards are supported.
func ExpandSources(base string, patterns []string) ([]string, error) {
	seen := map[string]bool{}
	var res []string
	for _, p := range patterns {
		if !filepath.IsAbs(p) && base != "" {
			p = filepath.Join(base, p)
		}
		if !doublestar.ValidatePathPattern(p) {
			return nil, fmt.Errorf("invalid source pattern %q", p)
		}
		matches, err := doublestar.FilepathGlob(p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob error: %w", err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				res = append(res, m)
			}
		}
	}
	sort.Strings(res)
	return res, nil
}
