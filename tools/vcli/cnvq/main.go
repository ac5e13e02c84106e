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

// cnvq command line tool allows you to query the command ontology.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/nounverb/cnvq/tools/vcli/cnvq/bench"
	"github.com/nounverb/cnvq/tools/vcli/cnvq/check"
	"github.com/nounverb/cnvq/tools/vcli/cnvq/common"
	"github.com/nounverb/cnvq/tools/vcli/cnvq/export"
	"github.com/nounverb/cnvq/tools/vcli/cnvq/load"
	"github.com/nounverb/cnvq/tools/vcli/cnvq/query"
	"github.com/nounverb/cnvq/tools/vcli/cnvq/repl"
	"github.com/nounverb/cnvq/tools/vcli/cnvq/run"
	"github.com/nounverb/cnvq/tools/vcli/cnvq/server"
	"github.com/nounverb/cnvq/tools/vcli/cnvq/version"
)

// newRootCommand creates the root command and registers the available ones.
func newRootCommand() *cobra.Command {
	opts := &common.Options{}
	cmd := &cobra.Command{
		Use:   "cnvq",
		Short: "cnvq queries the noun-verb command ontology.",
		Long: `cnvq loads a command ontology described in Turtle and answers SPARQL
queries about it: which commands exist, which verbs apply to a noun, and which
commands match an intent.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.Validate()
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (defaults to the nearest cnvq.yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format (json|text, defaults to the configured one)")

	// Registration of the available commands. Please keep sorted.
	cmd.AddCommand(
		bench.New(opts),
		check.New(opts),
		query.NewDiscover(opts),
		query.NewExplain(opts),
		export.New(opts),
		load.New(opts),
		query.New(opts),
		repl.New(opts),
		run.New(opts),
		server.New(opts),
		version.New(),
	)
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(common.GetExitCode(err))
}
