// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/astro-facts/internal/workflow"
	"github.com/pdiddy/astro-facts/pkg/types"
)

func testConfig(t *testing.T) types.SourcesConfig {
	return types.SourcesConfig{
		GCNDir:    filepath.Join("gcn", "testdata"),
		PapersDir: t.TempDir(),
		ATelIndex: filepath.Join(t.TempDir(), "atels.json"),
	}
}

func TestNewRegistry(t *testing.T) {
	r, err := NewRegistry(testConfig(t), nil, nil)
	require.NoError(t, err)

	for _, it := range []types.InputType{types.InputPaperEntry, types.InputGCNText, types.InputATelEntry} {
		_, ok := r.IdentityFor(it)
		assert.True(t, ok, "identity for %s", it)
		assert.NotEmpty(t, r.ForInput(it), "extractors for %s", it)
		assert.Len(t, r.Producers(it), 1, "producers for %s", it)
	}

	for _, name := range []string{"arxiv.basic_meta", "gcn.integral_ul", "gcn.gbm_balrog", "atel.cites"} {
		_, ok := r.Lookup(name)
		assert.True(t, ok, name)
	}
	_, ok := r.Lookup("gcn.gcn_list_recent")
	assert.False(t, ok, "the archive index needs the network")
}

func TestNewRegistry_WithNet(t *testing.T) {
	cfg := testConfig(t)
	cfg.AllowNet = true
	r, err := NewRegistry(cfg, NewClient(cfg, nil), nil)
	require.NoError(t, err)
	assert.Len(t, r.Producers(types.InputGCNText), 2)
}

func TestRegisterAll_Twice(t *testing.T) {
	cfg := testConfig(t)
	r := workflow.NewRegistry(nil)
	require.NoError(t, RegisterAll(r, cfg, nil, nil))
	err := RegisterAll(r, cfg, nil, nil)
	assert.ErrorIs(t, err, workflow.ErrDuplicateName)
}

func TestLearnLocalCirculars(t *testing.T) {
	r, err := NewRegistry(testConfig(t), nil, nil)
	require.NoError(t, err)

	c := workflow.NewCoordinator(r, workflow.MentionsPolicy{}, 3, 0)
	res, err := c.Run(context.Background(), []types.InputType{types.InputGCNText}, 0)
	require.NoError(t, err)

	assert.Equal(t, 6, res.Stats.Inputs)
	assert.Zero(t, res.Stats.Failed)
	assert.Equal(t, res.Stats.Inputs, res.Stats.Retained+res.Stats.Boring)

	facts := res.Facts[types.OntologyNS+"gcn31119"]
	require.NotEmpty(t, facts)
	dict := workflow.ItemDict(facts)
	assert.Equal(t, "GRB211123A", dict["paper:integral_grb_report"])
}
