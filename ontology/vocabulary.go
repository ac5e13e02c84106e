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

package ontology

import (
	"github.com/nounverb/cnvq/triple"
	"github.com/nounverb/cnvq/triple/namespace"
)

func cnv(local string) triple.Value {
	return triple.NewURI(namespace.CNV + local)
}

// Classes of the command ontology.
var (
	Noun     = cnv("Noun")
	Verb     = cnv("Verb")
	Command  = cnv("Command")
	Argument = cnv("Argument")
)

// Properties of the command ontology.
var (
	Type        = triple.NewURI(namespace.RDFType)
	Name        = cnv("name")
	Description = cnv("description")
	NounOf      = cnv("noun")
	VerbOf      = cnv("verb")
	HasNoun     = cnv("hasNoun")
	HasArgument = cnv("hasArgument")
	ArgType     = cnv("argType")
	Required    = cnv("required")
	Position    = cnv("position")
	HasGuard    = cnv("hasGuard")
	HasEffect   = cnv("hasEffect")
)

// kindNames is used in conflict messages.
var kindNames = map[triple.Value]string{
	Noun:    "noun",
	Verb:    "verb",
	Command: "command",
}
