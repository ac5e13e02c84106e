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

// Package version contains the implementation of the command that prints the
// cnvq version.
package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version of the command line tool.
const (
	Major   = 0
	Minor   = 3
	Patch   = 0
	Release = "alpha"
)

// String returns the printable version.
func String() string {
	return fmt.Sprintf("%d.%d.%d-%s", Major, Minor, Patch, Release)
}

// New creates the version command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "prints the current version.",
		Long:  "Prints the current version of the cnvq command line tool.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cnvq vCli (%s)\n", String())
		},
	}
}
