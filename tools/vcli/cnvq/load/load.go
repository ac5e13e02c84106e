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

// Package load contains the command that parses and validates ontology
// sources.
package load

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nounverb/cnvq/ontology"
	"github.com/nounverb/cnvq/storage"
	"github.com/nounverb/cnvq/tools/vcli/cnvq/common"
	"github.com/nounverb/cnvq/triple"
)

// Stats summarizes a loaded ontology.
type Stats struct {
	Files    int      `json:"files"`
	Triples  int      `json:"triples"`
	Prefixes int      `json:"prefixes"`
	Nouns    int      `json:"nouns"`
	Verbs    int      `json:"verbs"`
	Commands int      `json:"commands"`
	Problems []string `json:"problems,omitempty"`
}

func count(g storage.Graph, class triple.Value) int {
	return len(g.PatternMatch(nil, &ontology.Type, &class))
}

// New creates the load command.
func New(opts *common.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "load [<glob>...]",
		Short: "parses and validates ontology sources.",
		Long: `Parses the Turtle documents matching the globs, defaulting to the
configured sources, checks the shape of every command and verb, and prints
statistics about the result. Shape violations make the command fail.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := common.Setup(opts, cmd, nil)
			if err != nil {
				return err
			}
			files, err := env.Sources(args...)
			if err != nil {
				return err
			}
			b, err := env.Builder(files)
			if err != nil {
				return err
			}
			verr := b.Validate()
			s, err := b.Build()
			if err != nil {
				return err
			}
			st := Stats{
				Files:    len(files),
				Triples:  s.Len(),
				Prefixes: s.Namespaces().Len(),
				Nouns:    count(s, ontology.Noun),
				Verbs:    count(s, ontology.Verb),
				Commands: count(s, ontology.Command),
			}
			if verr != nil {
				for _, e := range unwrap(verr) {
					st.Problems = append(st.Problems, e.Error())
				}
			}
			if env.Format == "json" {
				if err := json.NewEncoder(env.Out).Encode(st); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(env.Out, "files=%d triples=%d prefixes=%d nouns=%d verbs=%d commands=%d\n",
					st.Files, st.Triples, st.Prefixes, st.Nouns, st.Verbs, st.Commands)
				for _, p := range st.Problems {
					fmt.Fprintf(env.Out, "[ERROR] %s\n", p)
				}
			}
			if verr != nil {
				return common.WrapExitError(common.ExitFailure, fmt.Sprintf("%d shape violations", len(st.Problems)), nil)
			}
			return nil
		},
	}
}

// unwrap flattens joined errors.
func unwrap(err error) []error {
	var j interface{ Unwrap() []error }
	if errors.As(err, &j) {
		return j.Unwrap()
	}
	return []error{err}
}
