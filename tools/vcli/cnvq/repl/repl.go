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

// Package repl contains the implementation of the command that starts an
// interactive query console.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nounverb/cnvq/engine"
	"github.com/nounverb/cnvq/tools/vcli/cnvq/common"
	"github.com/nounverb/cnvq/tools/vcli/cnvq/run"
	"github.com/nounverb/cnvq/tools/vcli/cnvq/version"
)

const prompt = "cnvq> "

// New creates the repl command.
func New(opts *common.Options) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "starts a REPL to run queries.",
		Long: `Starts a REPL from the command line to accept queries. Type help for the
console commands and quit to leave the REPL. With --watch the ontology is
reloaded whenever one of its sources changes.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := common.Setup(opts, cmd, nil)
			if err != nil {
				return err
			}
			files, err := env.Sources()
			if err != nil {
				return err
			}
			e, err := env.Engine()
			if err != nil {
				return err
			}
			reload := func() error {
				s, err := env.LoadStore()
				if err != nil {
					return err
				}
				e.Reload(s)
				return nil
			}
			ctx, cancel := context.WithCancel(common.Context(cmd))
			defer cancel()
			if watch {
				w, err := NewWatcher(files, reload, env.Logger)
				if err != nil {
					return common.WrapExitError(common.ExitCommandError, "failed to watch the ontology sources", err)
				}
				defer w.Close()
				w.Start(ctx)
			}
			REPL(ctx, env, e, cmd.InOrStdin(), reload)
			return nil
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "reload the ontology when its sources change")
	return cmd
}

// REPL starts a read-evaluation-print-loop to run queries. It returns when
// the input is exhausted or quit is typed.
func REPL(ctx context.Context, env *common.Env, e *engine.Engine, in io.Reader, reload func() error) {
	out := env.Out
	fmt.Fprintf(out, "Welcome to cnvq vCli (%s)\n", version.String())
	fmt.Fprintf(out, "Ontology holds %d triples. Type quit to exit\n", e.Store().Len())
	fmt.Fprintf(out, "Session started at %v\n\n", time.Now().Format(time.RFC3339))
	defer fmt.Fprintf(out, "\n\nThanks for all those queries!\n\n")

	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, prompt)
	for scanner.Scan() {
		l := strings.TrimSuffix(strings.TrimSpace(scanner.Text()), ";")
		cmd, rest, _ := strings.Cut(l, " ")
		rest = strings.TrimSpace(rest)
		switch {
		case l == "":
		case cmd == "quit" || cmd == "exit":
			return
		case cmd == "help":
			printHelp(out)
		case cmd == "reload":
			if err := reload(); err != nil {
				fmt.Fprintf(out, "[ERROR] %s\n\n", err)
			} else {
				fmt.Fprintf(out, "Reloaded %d triples\n\n", e.Store().Len())
			}
		case cmd == "prefix":
			p, iri, _ := strings.Cut(rest, " ")
			if err := e.AddPrefix(strings.TrimSuffix(p, ":"), strings.Trim(strings.TrimSpace(iri), "<>")); err != nil {
				fmt.Fprintf(out, "[ERROR] %s\n\n", err)
			} else {
				fmt.Fprintln(out, "[OK]")
			}
		case cmd == "explain":
			plan, err := e.Explain(rest)
			if err != nil {
				fmt.Fprintf(out, "[ERROR] %s\n\n", err)
			} else {
				fmt.Fprintln(out, plan)
			}
		case cmd == "discover":
			names, err := e.DiscoverCommands(ctx, rest)
			if err != nil {
				fmt.Fprintf(out, "[ERROR] %s\n\n", err)
				break
			}
			for _, n := range names {
				fmt.Fprintln(out, n)
			}
			fmt.Fprintf(out, "[OK] %d commands\n", len(names))
		case cmd == "run":
			stms, err := common.GetStatementsFromFile(rest)
			if err != nil {
				fmt.Fprintf(out, "[ERROR] %s\n\n", err)
				break
			}
			if err := run.Eval(ctx, env, e, stms); err != nil {
				fmt.Fprintf(out, "[ERROR] %s\n\n", err)
			}
		default:
			res, err := e.Query(ctx, l)
			if err != nil {
				fmt.Fprintf(out, "[ERROR] %s\n\n", err)
				break
			}
			if err := env.PrintResult(res); err != nil {
				fmt.Fprintf(out, "[ERROR] %s\n\n", err)
				break
			}
			fmt.Fprintf(out, "[OK] %d rows in %v\n", res.Table.NumRows(), res.Duration)
		}
		fmt.Fprint(out, prompt)
	}
}

// printHelp prints help for the console commands.
func printHelp(out io.Writer) {
	fmt.Fprintln(out, "help                              - prints help for the cnvq console.")
	fmt.Fprintln(out, "explain <query>                   - prints the plan of the query.")
	fmt.Fprintln(out, "discover <intent>                 - lists the commands matching the intent.")
	fmt.Fprintln(out, "prefix <prefix> <iri>             - declares a prefix for the following queries.")
	fmt.Fprintln(out, "run <file_with_queries>           - runs the queries stored in the file.")
	fmt.Fprintln(out, "reload                            - reloads the ontology sources.")
	fmt.Fprintln(out, "quit                              - quits the console.")
	fmt.Fprintln(out)
}
