// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rdf holds a small in-memory triple graph whose objects are
// literals. Terms are encoded and Turtle is decoded with knakk/rdf; the
// graph adds set semantics, prefix bindings and a stable subject-grouped
// layout.
package rdf

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	turtle "github.com/knakk/rdf"

	"github.com/pdiddy/astro-facts/pkg/types"
)

// Triple is one statement. Subject is an absolute IRI or a blank node
// label of the form "_:b0"; Predicate is an absolute IRI.
type Triple struct {
	Subject   string
	Predicate string
	Object    types.Literal
}

// String renders the triple in N-Triples form, without the final dot.
func (t Triple) String() string {
	return fmt.Sprintf("%s %s %s", compact(nil, t.Subject), compact(nil, t.Predicate), encodeLiteral(t.Object))
}

// InsertError reports a triple the graph refused.
type InsertError struct {
	// Triple is the offending triple text.
	Triple string
	Err    error
}

func (e *InsertError) Error() string {
	return fmt.Sprintf("invalid triple %q: %v", e.Triple, e.Err)
}

func (e *InsertError) Unwrap() error { return e.Err }

// Graph is a set of triples with prefix bindings used when serializing.
type Graph struct {
	prefixes map[string]string
	triples  map[Triple]struct{}
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		prefixes: make(map[string]string),
		triples:  make(map[Triple]struct{}),
	}
}

// Bind associates prefix with namespace ns.
func (g *Graph) Bind(prefix, ns string) {
	g.prefixes[prefix] = ns
}

// Prefixes returns a copy of the bindings.
func (g *Graph) Prefixes() map[string]string {
	out := make(map[string]string, len(g.prefixes))
	for k, v := range g.prefixes {
		out[k] = v
	}
	return out
}

// Add validates t and adds it. Adding a triple already present is a no-op.
func (g *Graph) Add(t Triple) error {
	if err := checkSubject(t.Subject); err != nil {
		return errors.Wrap(err, "subject")
	}
	if err := checkIRI(t.Predicate); err != nil {
		return errors.Wrap(err, "predicate")
	}
	if err := checkLiteral(t.Object); err != nil {
		return errors.Wrap(err, "object")
	}
	g.triples[t] = struct{}{}
	return nil
}

// Insert parses one Turtle statement holding a single triple, with or
// without the final dot, and adds it. Prefixed names resolve against the
// graph's bindings.
func (g *Graph) Insert(text string) error {
	t, err := parseTriple(text, g.prefixes)
	if err == nil {
		err = g.Add(t)
	}
	if err != nil {
		return &InsertError{Triple: text, Err: err}
	}
	return nil
}

// Len returns the number of triples.
func (g *Graph) Len() int { return len(g.triples) }

// Triples returns the triples sorted by subject, predicate, then object.
func (g *Graph) Triples() []Triple {
	out := make([]Triple, 0, len(g.triples))
	for t := range g.triples {
		out = append(out, t)
	}
	slices.SortFunc(out, compareTriples)
	return out
}

func compareTriples(a, b Triple) int {
	if c := strings.Compare(a.Subject, b.Subject); c != 0 {
		return c
	}
	if c := strings.Compare(a.Predicate, b.Predicate); c != 0 {
		return c
	}
	if c := strings.Compare(string(a.Object.Kind), string(b.Object.Kind)); c != 0 {
		return c
	}
	return strings.Compare(a.Object.Lexical, b.Object.Lexical)
}

// Serialize writes the graph as Turtle: prefix directives, then one block per
// subject with predicates separated by ";".
func (g *Graph) Serialize(w io.Writer) error {
	prefixes := make([]string, 0, len(g.prefixes))
	for p := range g.prefixes {
		prefixes = append(prefixes, p)
	}
	slices.Sort(prefixes)

	var buf bytes.Buffer
	for _, p := range prefixes {
		fmt.Fprintf(&buf, "@prefix %s: %s .\n", p, compact(nil, g.prefixes[p]))
	}

	var subject string
	for i, t := range g.Triples() {
		if i == 0 || t.Subject != subject {
			if i > 0 {
				buf.WriteString(" .\n")
			}
			buf.WriteString("\n")
			buf.WriteString(compact(g.prefixes, t.Subject))
			buf.WriteString(" ")
			subject = t.Subject
		} else {
			buf.WriteString(" ;\n    ")
		}
		buf.WriteString(compact(g.prefixes, t.Predicate))
		buf.WriteString(" ")
		buf.WriteString(encodeLiteral(t.Object))
	}
	if len(g.triples) > 0 {
		buf.WriteString(" .\n")
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// String returns the Turtle serialization.
func (g *Graph) String() string {
	var b strings.Builder
	_ = g.Serialize(&b)
	return b.String()
}

var safeLocal = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_-]*$`)

// compact writes iri as a prefixed name when a binding covers it and the
// local part needs no escaping, and in angle brackets otherwise. Blank node
// labels pass through.
func compact(prefixes map[string]string, iri string) string {
	if strings.HasPrefix(iri, blankPrefix) {
		return iri
	}
	best, bestNS := "", ""
	for p, ns := range prefixes {
		if strings.HasPrefix(iri, ns) && len(ns) > len(bestNS) {
			best, bestNS = p, ns
		}
	}
	if bestNS != "" {
		if local := iri[len(bestNS):]; safeLocal.MatchString(local) {
			return best + ":" + local
		}
	}
	term, err := turtle.NewIRI(iri)
	if err != nil {
		return "<" + iri + ">"
	}
	return term.Serialize(turtle.Turtle)
}

func checkSubject(s string) error {
	if label, ok := strings.CutPrefix(s, blankPrefix); ok {
		if !safeLocal.MatchString(label) {
			return errors.Newf("blank node label %q", s)
		}
		return nil
	}
	return checkIRI(s)
}

func checkIRI(iri string) error {
	if _, err := turtle.NewIRI(iri); err != nil {
		return errors.Wrapf(err, "IRI %q", iri)
	}
	if !strings.Contains(iri, ":") {
		return errors.Newf("IRI %q is not absolute", iri)
	}
	return nil
}
