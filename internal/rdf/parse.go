// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rdf

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	turtle "github.com/knakk/rdf"

	"github.com/pdiddy/astro-facts/pkg/types"
)

const (
	xsdNS       = "http://www.w3.org/2001/XMLSchema#"
	blankPrefix = "_:"
)

var (
	xsdString  = mustIRI(xsdNS + "string")
	xsdInteger = mustIRI(xsdNS + "integer")
	xsdDouble  = mustIRI(xsdNS + "double")
	xsdBoolean = mustIRI(xsdNS + "boolean")
)

// Datatypes whose values fold into the graph's literal kinds. Anything else,
// language-tagged strings included, reads as a plain string.
var kindByDatatype = map[string]types.LiteralKind{
	"integer":            types.KindInteger,
	"int":                types.KindInteger,
	"long":               types.KindInteger,
	"short":              types.KindInteger,
	"byte":               types.KindInteger,
	"nonNegativeInteger": types.KindInteger,
	"nonPositiveInteger": types.KindInteger,
	"positiveInteger":    types.KindInteger,
	"negativeInteger":    types.KindInteger,
	"unsignedInt":        types.KindInteger,
	"unsignedShort":      types.KindInteger,
	"unsignedByte":       types.KindInteger,
	"double":             types.KindDouble,
	"float":              types.KindDouble,
	"decimal":            types.KindDouble,
	"boolean":            types.KindBoolean,
}

func mustIRI(s string) turtle.IRI {
	iri, err := turtle.NewIRI(s)
	if err != nil {
		panic(err)
	}
	return iri
}

// Parse reads Turtle from r into a new graph. Any Turtle document is
// accepted: IRI objects become string literals holding the IRI, blank nodes
// keep their "_:" labels, and prefix directives only serve the decoder.
func Parse(r io.Reader) (*Graph, error) {
	dec := turtle.NewTripleDecoder(r, turtle.Turtle)
	g := NewGraph()
	for n := 1; ; n++ {
		t, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return g, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "decoding triple %d", n)
		}
		tr := fromTerms(t)
		if err := g.Add(tr); err != nil {
			return nil, errors.Wrapf(err, "triple %d", n)
		}
	}
}

// ParseTriple parses one statement holding a single triple. The final dot is
// optional.
func ParseTriple(text string) (Triple, error) {
	return parseTriple(text, nil)
}

func parseTriple(text string, prefixes map[string]string) (Triple, error) {
	stmt := strings.TrimSpace(text)
	if stmt == "" {
		return Triple{}, errors.New("empty triple")
	}
	if !strings.HasSuffix(stmt, ".") {
		stmt += " ."
	}

	var src strings.Builder
	for p, ns := range prefixes {
		fmt.Fprintf(&src, "@prefix %s: %s .\n", p, compact(nil, ns))
	}
	src.WriteString(stmt)
	src.WriteString("\n")

	dec := turtle.NewTripleDecoder(strings.NewReader(src.String()), turtle.Turtle)
	var out []Triple
	for {
		t, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Triple{}, err
		}
		out = append(out, fromTerms(t))
	}
	if len(out) != 1 {
		return Triple{}, errors.Newf("expected one triple, got %d", len(out))
	}
	return out[0], nil
}

func fromTerms(t turtle.Triple) Triple {
	return Triple{
		Subject:   termString(t.Subj),
		Predicate: termString(t.Pred),
		Object:    decodeObject(t.Obj),
	}
}

func termString(t turtle.Term) string {
	if t.Type() == turtle.TermBlank {
		return blankPrefix + strings.TrimPrefix(t.String(), blankPrefix)
	}
	return t.String()
}

func decodeObject(o turtle.Object) types.Literal {
	l, ok := o.(turtle.Literal)
	if !ok {
		return types.Literal{Kind: types.KindString, Lexical: termString(o)}
	}
	lexical := l.String()
	kind := types.KindString
	if dt, ok := strings.CutPrefix(l.DataType.String(), xsdNS); ok && l.Lang() == "" {
		if k, ok := kindByDatatype[dt]; ok {
			kind = k
		}
	}
	if kind == types.KindDouble && !strings.ContainsAny(lexical, ".eE") {
		if _, err := strconv.ParseInt(lexical, 10, 64); err == nil {
			lexical += ".0"
		}
	}
	return types.Literal{Kind: kind, Lexical: lexical}
}

// encodeLiteral renders l as a Turtle object term.
func encodeLiteral(l types.Literal) string {
	dt := xsdString
	switch l.Kind {
	case types.KindInteger:
		dt = xsdInteger
	case types.KindDouble:
		dt = xsdDouble
	case types.KindBoolean:
		dt = xsdBoolean
	}
	return turtle.NewTypedLiteral(l.Lexical, dt).Serialize(turtle.Turtle)
}

func checkLiteral(l types.Literal) error {
	var err error
	switch l.Kind {
	case types.KindString, "":
		return nil
	case types.KindInteger:
		_, err = strconv.ParseInt(l.Lexical, 10, 64)
	case types.KindDouble:
		_, err = strconv.ParseFloat(l.Lexical, 64)
		if err == nil && !strings.ContainsAny(l.Lexical, ".eE") {
			err = errors.Newf("double %q has neither a point nor an exponent", l.Lexical)
		}
	case types.KindBoolean:
		if l.Lexical != "true" && l.Lexical != "false" {
			err = errors.Newf("boolean %q", l.Lexical)
		}
	default:
		err = errors.Newf("unknown literal kind %q", l.Kind)
	}
	return err
}
