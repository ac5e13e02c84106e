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

// Package literal provides the XSD datatype vocabulary used by RDF literals
// and the conversions required to reason about their values.
package literal

import (
	"fmt"
	"strconv"
	"strings"
)

// XSD is the XML Schema datatype namespace.
const XSD = "http://www.w3.org/2001/XMLSchema#"

// Well known XSD datatypes.
const (
	XSDString   = XSD + "string"
	XSDBoolean  = XSD + "boolean"
	XSDInteger  = XSD + "integer"
	XSDInt      = XSD + "int"
	XSDLong     = XSD + "long"
	XSDDecimal  = XSD + "decimal"
	XSDDouble   = XSD + "double"
	XSDFloat    = XSD + "float"
	XSDDateTime = XSD + "dateTime"
)

// Type indicates the kind of value boxed by a literal lexical form.
type Type uint8

const (
	// Text indicates that the literal should be treated as a string.
	Text Type = iota
	// Bool indicates that the literal contains a boolean.
	Bool
	// Int64 indicates that the literal contains an integer.
	Int64
	// Float64 indicates that the literal contains a decimal or floating point.
	Float64
)

// String returns a readable version of the type.
func (t Type) String() string {
	switch t {
	case Text:
		return "text"
	case Bool:
		return "bool"
	case Int64:
		return "int64"
	case Float64:
		return "float64"
	default:
		return "UNKNOWN"
	}
}

// TypeOf returns the value type for the provided datatype IRI. Unknown
// datatypes are treated as text.
func TypeOf(datatype string) Type {
	switch datatype {
	case XSDBoolean:
		return Bool
	case XSDInteger, XSDInt, XSDLong, XSD + "short", XSD + "byte",
		XSD + "nonNegativeInteger", XSD + "positiveInteger",
		XSD + "negativeInteger", XSD + "nonPositiveInteger",
		XSD + "unsignedInt", XSD + "unsignedLong":
		return Int64
	case XSDDecimal, XSDDouble, XSDFloat:
		return Float64
	default:
		return Text
	}
}

// IsNumeric returns true if the datatype holds numbers.
func IsNumeric(datatype string) bool {
	t := TypeOf(datatype)
	return t == Int64 || t == Float64
}

// ParseNumber attempts to extract a number out of a lexical form. The
// returned boolean indicates if the lexical form represents an integer.
func ParseNumber(lexical string) (float64, bool, error) {
	s := strings.TrimSpace(lexical)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return float64(i), true, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("literal.ParseNumber: %q is not a number", lexical)
	}
	return f, false, nil
}

// ParseBool parses the XSD lexical space of booleans.
func ParseBool(lexical string) (bool, error) {
	switch strings.TrimSpace(lexical) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("literal.ParseBool: %q is not a boolean", lexical)
	}
}

// FormatInt64 returns the canonical lexical form of an integer.
func FormatInt64(i int64) string {
	return strconv.FormatInt(i, 10)
}

// FormatFloat64 returns the shortest lexical form of a decimal.
func FormatFloat64(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
