// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/astro-facts/pkg/types"
)

func factsWithPredicates(preds ...string) []types.Fact {
	out := make([]types.Fact, len(preds))
	for i, p := range preds {
		out[i] = types.Fact{Subject: types.OntologyNS + "gcn1", Predicate: p, Object: StringLiteral("v")}
	}
	return out
}

func tenPlainFacts() []types.Fact {
	preds := make([]string, 10)
	for i := range preds {
		preds[i] = fmt.Sprintf("date_%d", i)
	}
	return factsWithPredicates(preds...)
}

func TestMentionsPolicy(t *testing.T) {
	p := MentionsPolicy{}

	assert.False(t, p.IsBoring(factsWithPredicates("mentions_keyword")), "one mentions fact is enough")
	assert.True(t, p.IsBoring(tenPlainFacts()), "many facts without mentions are boring")
	assert.True(t, p.IsBoring(nil))
	assert.False(t, p.IsBoring(factsWithPredicates("gcn_date", "gcn_mentions_named")))

	custom := MentionsPolicy{Marker: "integral"}
	assert.False(t, custom.IsBoring(factsWithPredicates("integral_ul")))
	assert.True(t, custom.IsBoring(factsWithPredicates("mentions_keyword")))
}

func TestCountPolicy(t *testing.T) {
	p := CountPolicy{Min: 5}

	assert.True(t, p.IsBoring(factsWithPredicates("mentions_keyword")))
	assert.False(t, p.IsBoring(tenPlainFacts()))
	assert.True(t, p.IsBoring(factsWithPredicates("a", "b", "c", "d")))
	assert.False(t, p.IsBoring(factsWithPredicates("a", "b", "c", "d", "e")))

	assert.True(t, CountPolicy{}.IsBoring(nil), "no facts is always boring")
	assert.False(t, CountPolicy{}.IsBoring(factsWithPredicates("a")))
}

func TestPolicyFromConfig(t *testing.T) {
	p, err := PolicyFromConfig(types.LearnConfig{})
	require.NoError(t, err)
	assert.Equal(t, MentionsPolicy{}, p)

	p, err = PolicyFromConfig(types.LearnConfig{BoringPolicy: types.BoringCount})
	require.NoError(t, err)
	assert.Equal(t, CountPolicy{Min: 5}, p)

	p, err = PolicyFromConfig(types.LearnConfig{BoringPolicy: types.BoringCount, BoringMinFacts: 2})
	require.NoError(t, err)
	assert.Equal(t, CountPolicy{Min: 2}, p)

	_, err = PolicyFromConfig(types.LearnConfig{BoringPolicy: "dull"})
	assert.Error(t, err)
}
