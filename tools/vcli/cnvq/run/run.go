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

// Package run contains the command that runs the queries of a file.
package run

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nounverb/cnvq/engine"
	"github.com/nounverb/cnvq/tools/vcli/cnvq/common"
)

// New creates the run command.
func New(opts *common.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "run <file_with_queries>",
		Short: "runs the queries stored in a file.",
		Long: `Runs all the queries stored in a file. Queries are terminated by a ';' at
the end of a line outside the WHERE braces. Lines starting with '#' are
ignored. Queries run concurrently and their results are printed in order.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := common.Setup(opts, cmd, nil)
			if err != nil {
				return err
			}
			stms, err := common.GetStatementsFromFile(args[0])
			if err != nil {
				return common.WrapExitError(common.ExitCommandError, fmt.Sprintf("failed to read %s", args[0]), err)
			}
			e, err := env.Engine()
			if err != nil {
				return err
			}
			return Eval(common.Context(cmd), env, e, stms)
		},
	}
}

// Eval runs the statements printing each result. It fails if any statement
// failed.
func Eval(ctx context.Context, env *common.Env, e *engine.Engine, stms []string) error {
	failed := 0
	for idx, br := range e.ExecuteBatch(ctx, stms) {
		fmt.Fprintf(env.Out, "Processing statement (%d/%d):\n%s\n\n", idx+1, len(stms), br.Query)
		if br.Err != nil {
			failed++
			fmt.Fprintf(env.Out, "[ERROR] %s\n\n", br.Err)
			continue
		}
		if err := env.PrintResult(br.Result); err != nil {
			return err
		}
		fmt.Fprintf(env.Out, "[OK] %d rows in %v\n\n", br.Result.Table.NumRows(), br.Result.Duration)
	}
	env.Logger.Debug("statements processed", slog.Int("total", len(stms)), slog.Int("failed", failed))
	if failed > 0 {
		return common.WrapExitError(common.ExitFailure, fmt.Sprintf("%d of %d statements failed", failed, len(stms)), nil)
	}
	return nil
}
