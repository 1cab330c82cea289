// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/pdiddy/astro-facts/pkg/types"
)

const (
	defaultMarker   = "mentions"
	defaultMinFacts = 5
)

// BoringPolicy decides whether an input's facts are worth keeping.
type BoringPolicy interface {
	IsBoring(facts []types.Fact) bool
}

// MentionsPolicy keeps inputs with at least one fact whose predicate
// contains Marker ("mentions" when empty).
type MentionsPolicy struct {
	Marker string
}

// IsBoring implements BoringPolicy.
func (p MentionsPolicy) IsBoring(facts []types.Fact) bool {
	marker := p.Marker
	if marker == "" {
		marker = defaultMarker
	}
	for _, f := range facts {
		if strings.Contains(f.Predicate, marker) {
			return false
		}
	}
	return true
}

// CountPolicy keeps inputs with at least Min facts. An input without facts
// is always boring.
type CountPolicy struct {
	Min int
}

// IsBoring implements BoringPolicy.
func (p CountPolicy) IsBoring(facts []types.Fact) bool {
	return len(facts) == 0 || len(facts) < p.Min
}

// PolicyFromConfig builds the policy named in cfg.
func PolicyFromConfig(cfg types.LearnConfig) (BoringPolicy, error) {
	switch cfg.BoringPolicy {
	case types.BoringMentions, "":
		return MentionsPolicy{}, nil
	case types.BoringCount:
		min := cfg.BoringMinFacts
		if min <= 0 {
			min = defaultMinFacts
		}
		return CountPolicy{Min: min}, nil
	default:
		return nil, errors.WithHint(
			errors.Newf("unknown boring policy %q", cfg.BoringPolicy),
			"use mentions or count")
	}
}
