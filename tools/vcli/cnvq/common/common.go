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

// Package common contains shared functionality for the command line tool
// commands.
package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nounverb/cnvq/config"
	"github.com/nounverb/cnvq/engine"
	"github.com/nounverb/cnvq/ontology"
	"github.com/nounverb/cnvq/storage/memory"
	"github.com/nounverb/cnvq/turtle"
)

// Exit codes of the command line tool.
const (
	ExitSuccess      = 0
	ExitFailure      = 1
	ExitCommandError = 2
)

// ExitError carries the exit code of a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Errors not carrying one
// are command errors.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// ValidFormats lists the supported output formats.
var ValidFormats = []string{"text", "json"}

// Options holds the global flags of all commands.
type Options struct {
	ConfigPath string
	Verbose    bool
	Format     string
	LogFormat  string
}

// Validate checks the flag values.
func (o *Options) Validate() error {
	for _, f := range ValidFormats {
		if f == o.Format {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be one of %v", o.Format, ValidFormats)
}

// Env is the environment a command runs in.
type Env struct {
	Config *config.Config
	Logger *slog.Logger
	Format string
	Out    io.Writer
	Err    io.Writer
}

// NewLogger returns a text or JSON structured logger writing to w.
func NewLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	ho := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, ho))
	}
	return slog.New(slog.NewTextHandler(w, ho))
}

// Setup loads the configuration and builds the logger of a command. Logs go
// to the command error output to keep the regular output parseable.
func Setup(opts *Options, cmd *cobra.Command, overrides *config.Config) (*Env, error) {
	boot := NewLogger(cmd.ErrOrStderr(), opts.LogFormat, slog.LevelWarn)
	cfg, err := config.NewLoader(boot).Load(opts.ConfigPath, overrides)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	level := cfg.SlogLevel()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	format := cfg.Log.Format
	if opts.LogFormat != "" {
		format = opts.LogFormat
	}
	return &Env{
		Config: cfg,
		Logger: NewLogger(cmd.ErrOrStderr(), format, level),
		Format: opts.Format,
		Out:    cmd.OutOrStdout(),
		Err:    cmd.ErrOrStderr(),
	}, nil
}

// Sources returns the ontology files to load. Explicit patterns replace the
// configured ones.
func (e *Env) Sources(patterns ...string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = e.Config.Ontology.Sources
	}
	files, err := config.ExpandSources("", patterns)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid ontology sources", err)
	}
	return files, nil
}

// Builder returns an ontology builder holding the content of the files.
func (e *Env) Builder(files []string) (*ontology.Builder, error) {
	ns, err := e.Config.Namespaces()
	if err != nil {
		return nil, err
	}
	b := ontology.NewBuilder(ontology.WithNamespaces(ns), ontology.WithLogger(e.Logger))
	for _, path := range files {
		if err := loadFile(b, path); err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to load %s", path), err)
		}
		e.Logger.Debug("loaded ontology source", slog.String("path", path))
	}
	return b, nil
}

func loadFile(b *ontology.Builder, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	f, err := os.Open(abs)
	if err != nil {
		return err
	}
	defer f.Close()
	return ontology.LoadTurtle(b, f, turtle.WithBase(FileBase(abs)))
}

// FileBase returns the IRI relative IRIs of the Turtle file at path resolve
// against.
func FileBase(path string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

// LoadStore builds the published ontology store out of the sources.
func (e *Env) LoadStore(patterns ...string) (*memory.Store, error) {
	files, err := e.Sources(patterns...)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		e.Logger.Warn("no ontology sources found", slog.Any("patterns", e.Config.Ontology.Sources))
	}
	b, err := e.Builder(files)
	if err != nil {
		return nil, err
	}
	return b.Build()
}

// NewEngine returns an engine over the store configured after the
// environment.
func (e *Env) NewEngine(store *memory.Store, opts ...engine.Option) (*engine.Engine, error) {
	c := e.Config.Engine
	base := []engine.Option{
		engine.WithLogger(e.Logger),
		engine.WithTimeout(c.Timeout),
		engine.WithJoinThreshold(c.JoinThreshold),
		engine.WithMaxPathDepth(c.MaxPathDepth),
		engine.WithCacheCapacity(c.CacheCapacity),
		engine.WithBatchConcurrency(c.BatchConcurrency),
	}
	return engine.New(store, append(base, opts...)...)
}

// Engine loads the configured ontology and returns an engine over it.
func (e *Env) Engine(opts ...engine.Option) (*engine.Engine, error) {
	s, err := e.LoadStore()
	if err != nil {
		return nil, err
	}
	return e.NewEngine(s, opts...)
}

// PrintResult writes the result in the configured format.
func (e *Env) PrintResult(res *engine.Result) error {
	if e.Format == "json" {
		b, err := res.Table.ToJSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(e.Out, "%s\n", b)
		return err
	}
	fmt.Fprint(e.Out, res.Table.String())
	if res.Partial {
		fmt.Fprintf(e.Out, "[PARTIAL] %d rows before the deadline\n", res.Table.NumRows())
	}
	return nil
}

// Context returns the context of the command.
func Context(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
