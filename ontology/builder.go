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

// Package ontology builds the RDF description of the commands of a CLI and
// publishes it as a frozen store.
package ontology

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nounverb/cnvq/storage/memory"
	"github.com/nounverb/cnvq/triple"
	"github.com/nounverb/cnvq/triple/namespace"
	"github.com/nounverb/cnvq/turtle"
)

// ErrBuilt is returned when a builder is used after Build.
var ErrBuilt = errors.New("ontology: builder already built")

// BuildError reports a conflicting definition.
type BuildError struct {
	Conflict string
}

// Error returns a readable version of the error.
func (e *BuildError) Error() string {
	return "ontology conflict: " + e.Conflict
}

// Arg describes an argument of a command. A zero Position means the argument
// is not positional.
type Arg struct {
	Name     string
	Type     string
	Required bool
	Position int
}

// Cmd describes a noun-verb command. ID defaults to "<noun>-<verb>".
type Cmd struct {
	ID          string
	Noun        string
	Verb        string
	Description string
	Arguments   []Arg
	Guards      []string
	Effects     []string
}

// Option configures a builder.
type Option func(*Builder)

// WithNamespaces sets the initial namespace table of the builder.
func WithNamespaces(t *namespace.Table) Option {
	return func(b *Builder) {
		b.ns = t.Clone()
	}
}

// WithLogger sets the logger used to report the build.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = l
	}
}

type command struct {
	noun, verb triple.Value
}

// Builder accumulates the triples of an ontology. It is not safe for
// concurrent use.
type Builder struct {
	ns     *namespace.Table
	logger *slog.Logger
	ts     []triple.Triple
	seen   map[triple.Triple]bool
	kinds  map[triple.Value]triple.Value
	cmds   map[triple.Value]command
	built  bool
}

// NewBuilder returns an empty builder using the default namespaces.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		ns:     namespace.Default(),
		logger: slog.Default(),
		seen:   map[triple.Triple]bool{},
		kinds:  map[triple.Value]triple.Value{},
		cmds:   map[triple.Value]command{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Namespaces returns the namespace table of the builder.
func (b *Builder) Namespaces() *namespace.Table {
	return b.ns
}

// Len returns the number of distinct triples added so far.
func (b *Builder) Len() int {
	return len(b.ts)
}

// AddPrefix declares a namespace prefix.
func (b *Builder) AddPrefix(prefix, iri string) error {
	if b.built {
		return ErrBuilt
	}
	return b.ns.Add(prefix, iri)
}

// resource returns the IRI of an identifier. Identifiers holding a ':' are
// taken as IRIs or prefixed names; the rest live in the cnv namespace.
func (b *Builder) resource(id string) (triple.Value, error) {
	var v triple.Value
	switch {
	case !strings.Contains(id, ":"):
		v = cnv(id)
	case strings.Contains(id, "://"):
		v = triple.NewURI(id)
	default:
		iri, err := b.ns.Expand(id)
		if err != nil {
			return triple.Value{}, err
		}
		v = triple.NewURI(iri)
	}
	if !triple.ValidIRI(v.Text) {
		return triple.Value{}, &BuildError{Conflict: fmt.Sprintf("%q is not a valid identifier", id)}
	}
	return v, nil
}

// words splits a name on every character that is not a letter or a digit.
func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// title returns the camel cased local name of a noun or a verb, such as
// UserProfile for "user profile".
func title(s string) string {
	c := cases.Title(language.Und)
	var b strings.Builder
	for _, w := range words(s) {
		b.WriteString(c.String(w))
	}
	return b.String()
}

func (b *Builder) add(s, p, o triple.Value) error {
	t, err := triple.New(s, p, o)
	if err != nil {
		return err
	}
	if err := b.track(t); err != nil {
		return err
	}
	if !b.seen[t] {
		b.seen[t] = true
		b.ts = append(b.ts, t)
	}
	return nil
}

// track records the class of typed resources failing on conflicting types.
func (b *Builder) track(t triple.Triple) error {
	if t.P != Type {
		return nil
	}
	if _, ok := kindNames[t.O]; !ok {
		return nil
	}
	if err := b.expect(t.S, t.O); err != nil {
		return err
	}
	b.kinds[t.S] = t.O
	return nil
}

// expect fails if v is already registered with a class other than k.
func (b *Builder) expect(v, k triple.Value) error {
	if prev, ok := b.kinds[v]; ok && prev != k {
		return &BuildError{Conflict: fmt.Sprintf("%s is already a %s, cannot redefine it as a %s", v, kindNames[prev], kindNames[k])}
	}
	return nil
}

// AddNoun declares a noun resource.
func (b *Builder) AddNoun(id, name, description string) error {
	if b.built {
		return ErrBuilt
	}
	n, err := b.resource(id)
	if err != nil {
		return err
	}
	return b.noun(n, name, description)
}

func (b *Builder) noun(n triple.Value, name, description string) error {
	if err := b.add(n, Type, Noun); err != nil {
		return err
	}
	if err := b.add(n, Name, triple.NewLiteral(name)); err != nil {
		return err
	}
	if description != "" {
		return b.add(n, Description, triple.NewLiteral(description))
	}
	return nil
}

// AddCommand declares a command, synthesizing its noun and verb resources
// and its arguments. Adding the same command twice is a no-op unless the
// noun or the verb differ.
func (b *Builder) AddCommand(c Cmd) error {
	if b.built {
		return ErrBuilt
	}
	if c.Noun == "" || c.Verb == "" {
		return &BuildError{Conflict: fmt.Sprintf("command %q needs both a noun and a verb", c.ID)}
	}
	nl, vl := title(c.Noun), title(c.Verb)
	if nl == "" || vl == "" {
		return &BuildError{Conflict: fmt.Sprintf("command %q needs a noun and a verb holding letters or digits", c.ID)}
	}
	id := c.ID
	if id == "" {
		id = strings.Join(append(words(c.Noun), words(c.Verb)...), "-")
	}
	cmd, err := b.resource(id)
	if err != nil {
		return err
	}
	noun := cnv(nl)
	verb := cnv(nl + vl)
	if prev, ok := b.cmds[cmd]; ok {
		if prev.noun != noun || prev.verb != verb {
			return &BuildError{Conflict: fmt.Sprintf("command %s is already defined for %s %s", cmd, prev.noun, prev.verb)}
		}
	}

	for _, e := range []struct{ v, k triple.Value }{{noun, Noun}, {verb, Verb}, {cmd, Command}} {
		if err := b.expect(e.v, e.k); err != nil {
			return err
		}
	}
	if _, ok := b.kinds[noun]; !ok {
		if err := b.noun(noun, c.Noun, ""); err != nil {
			return err
		}
	}
	adds := [][3]triple.Value{
		{verb, Type, Verb},
		{verb, Name, triple.NewLiteral(c.Verb)},
		{verb, HasNoun, noun},
		{cmd, Type, Command},
		{cmd, NounOf, noun},
		{cmd, VerbOf, verb},
		{cmd, Name, triple.NewLiteral(c.Noun + " " + c.Verb)},
	}
	if c.Description != "" {
		adds = append(adds,
			[3]triple.Value{cmd, Description, triple.NewLiteral(c.Description)},
			[3]triple.Value{verb, Description, triple.NewLiteral(c.Description)},
		)
	}
	for i, a := range c.Arguments {
		arg := triple.NewDerivedBlankNode(cmd.Text, i)
		typ := a.Type
		if typ == "" {
			typ = "string"
		}
		adds = append(adds,
			[3]triple.Value{cmd, HasArgument, arg},
			[3]triple.Value{arg, Type, Argument},
			[3]triple.Value{arg, Name, triple.NewLiteral(a.Name)},
			[3]triple.Value{arg, ArgType, triple.NewLiteral(typ)},
			[3]triple.Value{arg, Required, triple.NewBoolean(a.Required)},
		)
		if a.Position > 0 {
			adds = append(adds, [3]triple.Value{arg, Position, triple.NewInteger(int64(a.Position))})
		}
	}
	for _, g := range c.Guards {
		adds = append(adds, [3]triple.Value{cmd, HasGuard, triple.NewLiteral(g)})
	}
	for _, e := range c.Effects {
		adds = append(adds, [3]triple.Value{cmd, HasEffect, triple.NewLiteral(e)})
	}
	for _, t := range adds {
		if err := b.add(t[0], t[1], t[2]); err != nil {
			return err
		}
	}
	b.cmds[cmd] = command{noun: noun, verb: verb}
	return nil
}

// AddTriples adds raw triples produced elsewhere.
func (b *Builder) AddTriples(ts ...triple.Triple) error {
	if b.built {
		return ErrBuilt
	}
	for _, t := range ts {
		if err := b.add(t.S, t.P, t.O); err != nil {
			return err
		}
	}
	return nil
}

// LoadTurtle parses a Turtle document adding its prefixes and triples to the
// builder. The options are passed to the parser after the builder prefixes.
func LoadTurtle(b *Builder, r io.Reader, opts ...turtle.Option) error {
	if b.built {
		return ErrBuilt
	}
	ts, ns, err := turtle.Parse(r, append([]turtle.Option{turtle.WithNamespaces(b.ns)}, opts...)...)
	if err != nil {
		return err
	}
	if err := b.ns.Merge(ns); err != nil {
		return err
	}
	return b.AddTriples(ts...)
}

// store returns a store holding the triples added so far.
func (b *Builder) store(ctx context.Context) (*memory.Store, error) {
	s := memory.NewStore(b.ns.Clone())
	if _, err := s.Insert(ctx, b.ts...); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the shape of the triples added so far.
func (b *Builder) Validate() error {
	s, err := b.store(context.Background())
	if err != nil {
		return err
	}
	return Validate(s)
}

// Build publishes the ontology as a frozen store. The builder cannot be
// used afterwards.
func (b *Builder) Build() (*memory.Store, error) {
	if b.built {
		return nil, ErrBuilt
	}
	s, err := b.store(context.Background())
	if err != nil {
		return nil, err
	}
	b.built = true
	s.Freeze()
	b.logger.Info("ontology built",
		slog.Int("triples", s.Len()),
		slog.Int("commands", len(b.cmds)),
		slog.Int("prefixes", b.ns.Len()))
	return s, nil
}
