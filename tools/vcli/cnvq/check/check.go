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

// Package check contains the command that runs compliance stories.
package check

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/nounverb/cnvq/engine"
	"github.com/nounverb/cnvq/tools/compliance"
	"github.com/nounverb/cnvq/tools/vcli/cnvq/common"
)

// New creates the check command.
func New(opts *common.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "check <stories.json>...",
		Short: "runs compliance stories.",
		Long: `Runs the compliance stories stored in the provided JSON files. Every
story loads its own Turtle sources and checks the results of its queries.
The command fails if any assertion does not hold.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := common.Setup(opts, cmd, nil)
			if err != nil {
				return err
			}
			var stories []*compliance.Story
			for _, path := range args {
				ss, err := readStories(path)
				if err != nil {
					return common.WrapExitError(common.ExitCommandError, fmt.Sprintf("failed to read %s", path), err)
				}
				stories = append(stories, ss...)
			}
			c := env.Config.Engine
			results := compliance.RunStories(common.Context(cmd), stories,
				engine.WithLogger(env.Logger),
				engine.WithTimeout(c.Timeout),
				engine.WithJoinThreshold(c.JoinThreshold),
				engine.WithMaxPathDepth(c.MaxPathDepth))
			Print(env, results)
			if n := results.Failed(); n > 0 {
				return common.WrapExitError(common.ExitFailure, fmt.Sprintf("%d of %d stories failed", n, len(stories)), nil)
			}
			return nil
		},
	}
}

func readStories(path string) ([]*compliance.Story, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return compliance.ReadStories(f)
}

// Print writes the outcome of every assertion of the battery.
func Print(env *common.Env, results *compliance.AssertionBattery) {
	for _, entry := range results.Entries {
		fmt.Fprintf(env.Out, "-------------------------------------------------------------\n")
		fmt.Fprintf(env.Out, "Story %q\n", entry.Story.Name)
		if entry.Err != nil {
			fmt.Fprintf(env.Out, "[ERROR] %v\n", entry.Err)
			continue
		}
		var reqs []string
		for r := range entry.Outcome {
			reqs = append(reqs, r)
		}
		sort.Strings(reqs)
		for _, r := range reqs {
			o := entry.Outcome[r]
			if o.Equal {
				fmt.Fprintf(env.Out, "[Assertion=TRUE] %s\n", r)
				continue
			}
			fmt.Fprintf(env.Out, "[Assertion=FALSE] %s\nGot:\n%s\nWant:\n%s\n", r, o.Got, o.Want)
		}
	}
	fmt.Fprintf(env.Out, "-------------------------------------------------------------\n")
	fmt.Fprintf(env.Out, "%d stories run, %d failed\n", len(results.Entries), results.Failed())
}
