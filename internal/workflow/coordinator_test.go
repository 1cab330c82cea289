// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/astro-facts/pkg/types"
)

// newCoordinatorRegistry registers a producer of n circulars and extractors
// whose behaviour depends on the circular text:
//   - every circular gets a gcn_number fact,
//   - circulars containing "GRB" get a mentions fact,
//   - circulars containing "CRASH" make an extractor fail.
func newCoordinatorRegistry(t *testing.T, n int) *Registry {
	t.Helper()
	var circulars []string
	for i := 1; i <= n; i++ {
		body := "quiet"
		switch {
		case i%7 == 0:
			body = "CRASH"
		case i%2 == 0:
			body = "GRB 211123A"
		}
		circulars = append(circulars, fmt.Sprintf("%d\n%s", i, body))
	}

	r := NewRegistry(nil)
	require.NoError(t, r.Producer("list", types.InputGCNText, gcnProducer(circulars...)))
	require.NoError(t, r.Identity("identity", gcnIdentity, types.InputGCNText))
	require.NoError(t, r.Extractor("number", func(_ context.Context, in types.Input) (types.Findings, error) {
		// Random jitter so completion order differs between runs.
		time.Sleep(time.Duration(rand.IntN(200)) * time.Microsecond)
		first, _, _ := strings.Cut(string(in.(types.GCNText)), "\n")
		return types.Findings{"gcn_number": first}, nil
	}, types.InputGCNText))
	require.NoError(t, r.Extractor("named", func(_ context.Context, in types.Input) (types.Findings, error) {
		text := string(in.(types.GCNText))
		if strings.Contains(text, "CRASH") {
			return nil, errors.New("unexpected layout")
		}
		if !strings.Contains(text, "GRB") {
			return nil, ErrNoMatch
		}
		return types.Findings{"mentions_named_grb": "GRB211123A"}, nil
	}, types.InputGCNText))
	return r
}

func TestCoordinator_WorkerCountDoesNotChangeResult(t *testing.T) {
	r := newCoordinatorRegistry(t, 40)

	serial, err := NewCoordinator(r, MentionsPolicy{}, 1, 0).Run(context.Background(), []types.InputType{types.InputGCNText}, 0)
	require.NoError(t, err)
	parallel, err := NewCoordinator(r, MentionsPolicy{}, 4, 0).Run(context.Background(), []types.InputType{types.InputGCNText}, 0)
	require.NoError(t, err)

	assert.Equal(t, serial.Facts, parallel.Facts)
	assert.Equal(t, Lines(serial.Facts), Lines(parallel.Facts))
	assert.Equal(t, serial.Boring, parallel.Boring)
	assert.Equal(t, len(serial.Failures), len(parallel.Failures))

	serial.Stats.Elapsed, parallel.Stats.Elapsed = 0, 0
	assert.Equal(t, serial.Stats, parallel.Stats)
}

func TestCoordinator_Bookkeeping(t *testing.T) {
	r := newCoordinatorRegistry(t, 14)

	res, err := NewCoordinator(r, MentionsPolicy{}, 3, 0).Run(context.Background(), []types.InputType{types.InputGCNText}, 0)
	require.NoError(t, err)

	// 7 and 14 crash; the other even ones mention a GRB.
	assert.Equal(t, 14, res.Stats.Inputs)
	assert.Equal(t, 2, res.Stats.Failed)
	assert.Equal(t, 6, res.Stats.Retained)
	assert.Equal(t, 6, res.Stats.Boring)
	assert.Equal(t, 12, res.Stats.Facts)

	require.Len(t, res.Failures, 2)
	assert.Equal(t, 6, res.Failures[0].Index)
	assert.Equal(t, types.OntologyNS+"gcn7", res.Failures[0].Subject)
	var xe *ExtractorError
	assert.True(t, errors.As(res.Failures[0].Err, &xe))

	boring, ok := res.Facts[types.OntologyNS+"gcn1"]
	assert.True(t, ok, "boring subjects stay in the result")
	assert.Empty(t, boring)
	assert.Contains(t, res.Boring, types.OntologyNS+"gcn1")

	assert.Len(t, res.Facts[types.OntologyNS+"gcn2"], 2)
	_, ok = res.Facts[types.OntologyNS+"gcn7"]
	assert.False(t, ok, "failed subjects are not in the result")
}

func TestCoordinator_MaxInputs(t *testing.T) {
	r := newCoordinatorRegistry(t, 10)

	res, err := NewCoordinator(r, CountPolicy{Min: 1}, 2, 0).Run(context.Background(), []types.InputType{types.InputGCNText}, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Stats.Inputs)
	assert.Len(t, res.Facts.Subjects(), 4)
}

func TestCoordinator_TimeoutIsPerItem(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Identity("identity", gcnIdentity, types.InputGCNText))
	require.NoError(t, r.Extractor("sometimes_slow", func(ctx context.Context, in types.Input) (types.Findings, error) {
		if strings.Contains(string(in.(types.GCNText)), "slow") {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return types.Findings{"mentions_x": "y"}, nil
	}, types.InputGCNText))

	items := []types.InputItem{
		types.NewInputItem(types.GCNText("1\nslow")),
		types.NewInputItem(types.GCNText("2\nfast")),
	}
	c := NewCoordinator(r, nil, 2, 30*time.Millisecond)
	res, err := c.RunItems(context.Background(), items)
	require.NoError(t, err)

	require.Len(t, res.Failures, 1)
	assert.True(t, errors.Is(res.Failures[0].Err, ErrTimeout))
	assert.Len(t, res.Facts[types.OntologyNS+"gcn2"], 1)
}

func TestCoordinator_SharedSubjectMerges(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Identity("identity", gcnIdentity, types.InputGCNText))
	require.NoError(t, r.Extractor("body", func(_ context.Context, in types.Input) (types.Findings, error) {
		_, body, _ := strings.Cut(string(in.(types.GCNText)), "\n")
		return types.Findings{"mentions_body": body}, nil
	}, types.InputGCNText))

	items := []types.InputItem{
		types.NewInputItem(types.GCNText("5\nfirst")),
		types.NewInputItem(types.GCNText("5\nsecond")),
	}
	res, err := NewCoordinator(r, nil, 2, 0).RunItems(context.Background(), items)
	require.NoError(t, err)

	facts := res.Facts[types.OntologyNS+"gcn5"]
	require.Len(t, facts, 2)
	assert.Equal(t, "first", facts[0].Object.Lexical)
	assert.Equal(t, "second", facts[1].Object.Lexical)
}

func TestAggregateResult_Helpers(t *testing.T) {
	a := AggregateResult{
		"b": factsWithPredicates("x"),
		"a": factsWithPredicates("y", "z"),
		"c": {},
	}
	assert.Equal(t, []string{"a", "b", "c"}, a.Subjects())
	assert.Equal(t, 3, a.Len())
	assert.Len(t, a.All(), 3)
}
