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

package ontology

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nounverb/cnvq/storage"
	"github.com/nounverb/cnvq/triple"
	"github.com/nounverb/cnvq/turtle"
)

// ShapeError reports a resource missing a mandatory property.
type ShapeError struct {
	Subject  triple.Value
	Class    string
	Property triple.Value
}

// Error returns a readable version of the error.
func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s %s is missing %s", e.Class, e.Subject, e.Property)
}

// shapes lists the mandatory properties of each class.
var shapes = []struct {
	class triple.Value
	props []triple.Value
}{
	{Command, []triple.Value{NounOf, VerbOf, Description}},
	{Verb, []triple.Value{HasNoun}},
}

// Validate checks every command has a noun, a verb and a description and
// every verb has a noun. All the violations are returned joined.
func Validate(g storage.Graph) error {
	var errs []error
	for _, sh := range shapes {
		cl := sh.class
		for _, t := range g.PatternMatch(nil, &Type, &cl) {
			s := t.S
			for _, p := range sh.props {
				if len(g.PatternMatch(&s, &p, nil)) == 0 {
					errs = append(errs, &ShapeError{Subject: s, Class: kindNames[cl], Property: p})
				}
			}
		}
	}
	return errors.Join(errs...)
}

// ToTurtle returns the Turtle document of the store.
func ToTurtle(s storage.Store) (string, error) {
	var b strings.Builder
	if err := turtle.SerializeStore(&b, s); err != nil {
		return "", err
	}
	return b.String(), nil
}
