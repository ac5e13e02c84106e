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

// Package generator contains the interface shared by the synthetic data
// generators used in benchmarks.
package generator

import (
	"fmt"

	"github.com/nounverb/cnvq/triple"
	"github.com/nounverb/cnvq/triple/namespace"
)

// Generator produces synthetic triples.
type Generator interface {
	// Generate creates the requested number of triples.
	Generate(n int) ([]triple.Triple, error)
}

// Node returns the IRI of a generated node of the provided kind.
func Node(kind string, id int) triple.Value {
	return triple.NewURI(fmt.Sprintf("%s%s%d", namespace.CNV, kind, id))
}

// Predicate returns the IRI of a generated predicate.
func Predicate(name string) triple.Value {
	return triple.NewURI(namespace.CNV + name)
}
