// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"cmp"
	"fmt"
	"io"
	"slices"

	"github.com/cockroachdb/errors"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/astro-facts/internal/rdf"
	"github.com/pdiddy/astro-facts/pkg/types"
)

// Lines renders every fact as "<subject> <predicate> literal", subjects in
// sorted order.
func Lines(result AggregateResult) []string {
	var out []string
	for _, f := range result.All() {
		out = append(out, f.String())
	}
	return out
}

// ItemDict groups the facts of one subject by predicate under keys
// "paper:<predicate>". A predicate with a single distinct value maps to that
// value; several values become a sorted list without duplicates.
func ItemDict(facts []types.Fact) map[string]any {
	grouped := make(map[string][]types.Literal)
	for _, f := range facts {
		key := types.OntologyPrefix + ":" + f.Predicate
		grouped[key] = append(grouped[key], f.Object)
	}

	out := make(map[string]any, len(grouped))
	for k, lits := range grouped {
		lits = uniqueLiterals(lits)
		if len(lits) == 1 {
			out[k] = literalValue(lits[0])
			continue
		}
		vals := make([]any, len(lits))
		for i, l := range lits {
			vals[i] = literalValue(l)
		}
		out[k] = vals
	}
	return out
}

// Dict applies ItemDict to every subject of result.
func Dict(result AggregateResult) map[string]map[string]any {
	out := make(map[string]map[string]any, len(result))
	for s, facts := range result {
		out[s] = ItemDict(facts)
	}
	return out
}

// N3 loads result into a graph bound to the ontology prefix and serializes
// it. A triple the graph rejects aborts with *rdf.InsertError.
func N3(result AggregateResult) (string, error) {
	g, err := Graph(result)
	if err != nil {
		return "", err
	}
	return g.String(), nil
}

// Graph loads result into a new graph bound to the ontology prefix.
func Graph(result AggregateResult) (*rdf.Graph, error) {
	g := rdf.NewGraph()
	g.Bind(types.OntologyPrefix, types.OntologyNS)
	for _, f := range result.All() {
		if err := g.Insert(f.String()); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Render writes result to w in the given mode.
func Render(w io.Writer, result AggregateResult, mode types.OutputMode) error {
	switch mode {
	case types.OutputList, "":
		for _, l := range Lines(result) {
			if _, err := fmt.Fprintln(w, l); err != nil {
				return err
			}
		}
		return nil
	case types.OutputDict:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(Dict(result)); err != nil {
			return errors.Wrap(err, "encoding dict")
		}
		return enc.Close()
	case types.OutputN3:
		text, err := N3(result)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, text)
		return err
	default:
		return errors.WithHint(errors.Newf("unknown output mode %q", mode), "use list, dict or n3")
	}
}

// literalValue parses l back into a Go value; a lexical form that does not
// parse stays a string.
func literalValue(l types.Literal) any {
	v, err := l.Value()
	if err != nil {
		return l.Lexical
	}
	return v
}

// kindRank orders mixed lists: numbers, then booleans, then strings.
func kindRank(k types.LiteralKind) int {
	switch k {
	case types.KindInteger, types.KindDouble:
		return 0
	case types.KindBoolean:
		return 1
	default:
		return 2
	}
}

func compareLiterals(a, b types.Literal) int {
	if c := cmp.Compare(kindRank(a.Kind), kindRank(b.Kind)); c != 0 {
		return c
	}
	switch kindRank(a.Kind) {
	case 0:
		av, aerr := numeric(a)
		bv, berr := numeric(b)
		if aerr == nil && berr == nil {
			if c := cmp.Compare(av, bv); c != 0 {
				return c
			}
		}
	}
	return cmp.Compare(a.Lexical, b.Lexical)
}

func numeric(l types.Literal) (float64, error) {
	v, err := l.Value()
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case int64:
		return float64(x), nil
	case float64:
		return x, nil
	}
	return 0, errors.Newf("not a number: %q", l.Lexical)
}

// uniqueLiterals sorts lits and drops repeated values. An integer and a
// double with the same value are kept apart.
func uniqueLiterals(lits []types.Literal) []types.Literal {
	lits = slices.Clone(lits)
	slices.SortFunc(lits, compareLiterals)
	return slices.Compact(lits)
}
