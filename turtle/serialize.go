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

package turtle

import (
	"bufio"
	"io"
	"strings"

	"github.com/nounverb/cnvq/storage"
	"github.com/nounverb/cnvq/triple"
	"github.com/nounverb/cnvq/triple/namespace"
)

// subject holds the predicates and objects of a subject in first seen order.
type subject struct {
	v     triple.Value
	preds []triple.Value
	objs  map[triple.Value][]triple.Value
}

// Serialize writes the triples as a Turtle document. Prefixes are declared in
// table order and IRIs are compacted when possible. Subjects are written in
// first seen order with rdf:type first and the rest of the predicates in
// first seen order.
func Serialize(w io.Writer, ts []triple.Triple, ns *namespace.Table) error {
	if ns == nil {
		ns = namespace.New()
	}
	bw := bufio.NewWriter(w)
	bs := ns.Bindings()
	for _, b := range bs {
		bw.WriteString("@prefix " + b.Prefix + ": <" + b.IRI + "> .\n")
	}

	var subjects []*subject
	idx := map[triple.Value]*subject{}
	for _, t := range ts {
		s, ok := idx[t.S]
		if !ok {
			s = &subject{v: t.S, objs: map[triple.Value][]triple.Value{}}
			idx[t.S] = s
			subjects = append(subjects, s)
		}
		if _, ok := s.objs[t.P]; !ok {
			s.preds = append(s.preds, t.P)
		}
		s.objs[t.P] = append(s.objs[t.P], t.O)
	}

	rdfType := triple.NewURI(namespace.RDFType)
	for i, s := range subjects {
		if i > 0 || len(bs) > 0 {
			bw.WriteString("\n")
		}
		preds := make([]triple.Value, 0, len(s.preds))
		if _, ok := s.objs[rdfType]; ok {
			preds = append(preds, rdfType)
		}
		for _, p := range s.preds {
			if p != rdfType {
				preds = append(preds, p)
			}
		}
		bw.WriteString(Term(s.v, ns))
		for j, p := range preds {
			if j > 0 {
				bw.WriteString(" ;\n   ")
			}
			bw.WriteString(" ")
			if p == rdfType {
				bw.WriteString("a")
			} else {
				bw.WriteString(Term(p, ns))
			}
			for k, o := range s.objs[p] {
				if k > 0 {
					bw.WriteString(",")
				}
				bw.WriteString(" " + Term(o, ns))
			}
		}
		bw.WriteString(" .\n")
	}
	return bw.Flush()
}

// SerializeStore writes all the triples of the store using its namespaces.
func SerializeStore(w io.Writer, s storage.Store) error {
	return Serialize(w, s.Triples(), s.Namespaces())
}

// String returns the Turtle document of the triples.
func String(ts []triple.Triple, ns *namespace.Table) string {
	var b strings.Builder
	Serialize(&b, ts, ns)
	return b.String()
}

// Term returns the Turtle form of a value. Literals with a datatype always
// carry it explicitly.
func Term(v triple.Value, ns *namespace.Table) string {
	switch v.Kind {
	case triple.URI:
		return iri(v.Text, ns)
	case triple.BlankNode:
		return "_:" + v.Text
	case triple.TypedLiteral:
		return triple.Quote(v.Text) + "^^" + iri(v.Datatype, ns)
	case triple.LangLiteral:
		return triple.Quote(v.Text) + "@" + v.Lang
	}
	return triple.Quote(v.Text)
}

func iri(s string, ns *namespace.Table) string {
	if ns == nil {
		return "<" + s + ">"
	}
	if c, ok := ns.Compact(s); ok {
		return c
	}
	return "<" + s + ">"
}
