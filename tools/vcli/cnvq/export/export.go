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

// Package export contains the command that serializes the ontology as
// Turtle.
package export

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nounverb/cnvq/tools/vcli/cnvq/common"
	"github.com/nounverb/cnvq/turtle"
)

// New creates the export command.
func New(opts *common.Options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "dumps the ontology as Turtle.",
		Long: `Loads the configured ontology sources and writes the resulting store
as a single Turtle document, to the standard output or the --out file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := common.Setup(opts, cmd, nil)
			if err != nil {
				return err
			}
			s, err := env.LoadStore()
			if err != nil {
				return err
			}
			var w io.Writer = env.Out
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return common.WrapExitError(common.ExitCommandError, fmt.Sprintf("failed to create %s", out), err)
				}
				defer f.Close()
				w = f
			}
			if err := turtle.SerializeStore(w, s); err != nil {
				return err
			}
			env.Logger.Info("ontology exported", slog.Int("triples", s.Len()), slog.String("out", out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "file to write the Turtle document to")
	return cmd
}
