// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strconv"
)

// OntologyNS is the base URI under which subjects and predicates are minted.
const OntologyNS = "http://odahub.io/ontology/paper#"

// OntologyPrefix is the short prefix bound to OntologyNS in serialized output.
const OntologyPrefix = "paper"

// LiteralKind is the datatype of a fact's object.
type LiteralKind string

const (
	KindString  LiteralKind = "string"
	KindInteger LiteralKind = "integer"
	KindDouble  LiteralKind = "double"
	KindBoolean LiteralKind = "boolean"
)

// Literal is the object of a Fact in its textual form. Lexical never carries
// the surrounding quotes of a string literal.
type Literal struct {
	Kind    LiteralKind `json:"kind" yaml:"kind"`
	Lexical string      `json:"lexical" yaml:"lexical"`
}

// N3 renders the literal as it appears in a triple: strings quoted, numbers
// and booleans bare.
func (l Literal) N3() string {
	if l.Kind == KindString || l.Kind == "" {
		return `"` + l.Lexical + `"`
	}
	return l.Lexical
}

// Value parses the lexical form back into a Go value: string, int64,
// float64 or bool.
func (l Literal) Value() (any, error) {
	switch l.Kind {
	case KindString, "":
		return l.Lexical, nil
	case KindInteger:
		return strconv.ParseInt(l.Lexical, 10, 64)
	case KindDouble:
		return strconv.ParseFloat(l.Lexical, 64)
	case KindBoolean:
		return strconv.ParseBool(l.Lexical)
	default:
		return nil, fmt.Errorf("unknown literal kind %q", l.Kind)
	}
}

// Fact is one (subject, predicate, object) statement.
type Fact struct {
	// Subject is the full URI of the input the fact was extracted from.
	Subject string `json:"subject" yaml:"subject"`

	// Predicate is the local name under OntologyNS, e.g. "integral_ul".
	Predicate string `json:"predicate" yaml:"predicate"`

	Object Literal `json:"object" yaml:"object"`
}

// PredicateURI returns the predicate under the ontology namespace.
func (f Fact) PredicateURI() string {
	return OntologyNS + f.Predicate
}

// String renders the fact as "<subject> <predicate> literal".
func (f Fact) String() string {
	return fmt.Sprintf("<%s> <%s> %s", f.Subject, f.PredicateURI(), f.Object.N3())
}
