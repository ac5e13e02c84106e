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

// Package query contains the commands that run, explain and discover with
// single queries.
package query

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nounverb/cnvq/config"
	"github.com/nounverb/cnvq/engine"
	"github.com/nounverb/cnvq/tools/vcli/cnvq/common"
)

// text returns the query held by the arguments. A single "-" reads the query
// from the input of the command.
func text(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return strings.Join(args, " "), nil
}

// New creates the query command.
func New(opts *common.Options) *cobra.Command {
	var (
		trace   bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "query <sparql>",
		Short: "runs a query against the ontology.",
		Long: `Runs a query against the configured ontology and prints the result
table. Use - to read the query from the standard input. Queries hitting the
deadline print the rows found so far flagged as partial.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := text(cmd, args)
			if err != nil {
				return err
			}
			env, err := common.Setup(opts, cmd, &config.Config{Engine: config.EngineConfig{Timeout: timeout}})
			if err != nil {
				return err
			}
			var eo []engine.Option
			if trace {
				eo = append(eo, engine.WithTracer(env.Err))
			}
			e, err := env.Engine(eo...)
			if err != nil {
				return err
			}
			res, err := e.Query(common.Context(cmd), q)
			if err != nil {
				return common.WrapExitError(common.ExitFailure, "query failed", err)
			}
			return env.PrintResult(res)
		},
	}
	cmd.Flags().BoolVar(&trace, "trace", false, "trace the execution of the plan to the error output")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "deadline of the query (defaults to the configured one)")
	return cmd
}

// NewExplain creates the explain command.
func NewExplain(opts *common.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <sparql>",
		Short: "prints the plan of a query.",
		Long: `Prints the optimized plan of a query: the order the triple patterns run
in, their estimated cardinality, and the join method of each step.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := text(cmd, args)
			if err != nil {
				return err
			}
			env, err := common.Setup(opts, cmd, nil)
			if err != nil {
				return err
			}
			e, err := env.Engine()
			if err != nil {
				return err
			}
			plan, err := e.Explain(q)
			if err != nil {
				return common.WrapExitError(common.ExitFailure, "explain failed", err)
			}
			fmt.Fprint(env.Out, plan)
			return nil
		},
	}
}

// NewDiscover creates the discover command.
func NewDiscover(opts *common.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "discover <intent>",
		Short: "finds the commands matching an intent.",
		Long: `Lists the commands whose name or description contains the intent,
ignoring case.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := common.Setup(opts, cmd, nil)
			if err != nil {
				return err
			}
			e, err := env.Engine()
			if err != nil {
				return err
			}
			names, err := e.DiscoverCommands(common.Context(cmd), strings.Join(args, " "))
			if err != nil {
				return common.WrapExitError(common.ExitFailure, "discover failed", err)
			}
			if env.Format == "json" {
				return json.NewEncoder(env.Out).Encode(names)
			}
			for _, n := range names {
				fmt.Fprintln(env.Out, n)
			}
			return nil
		},
	}
}
