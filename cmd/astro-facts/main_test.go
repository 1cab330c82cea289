// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/astro-facts/internal/workflow"
	"github.com/pdiddy/astro-facts/pkg/types"
)

func TestLoadConfig_FlagDefaults(t *testing.T) {
	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Learn.Workers)
	assert.Equal(t, types.OutputN3, cfg.Learn.Output)
	assert.Equal(t, "knowledge.n3", cfg.Learn.OutFile)
	assert.Equal(t, "gcn3", cfg.Sources.GCNDir)
	assert.Equal(t, "atels.json", cfg.Sources.ATelIndex)
	assert.False(t, cfg.Sources.AllowNet)
	assert.Equal(t, "knowledge", cfg.KnowledgeBase.KnowledgeDir)
}

func TestLoadConfig_Overrides(t *testing.T) {
	viper.Set("learn.workers", 4)
	viper.Set("learn.item_timeout", "2s")
	viper.Set("sources.timeout", "30s")
	viper.Set("sources.requests_per_second", 0.5)
	t.Cleanup(func() {
		viper.Set("learn.workers", 1)
		viper.Set("learn.item_timeout", "0s")
		viper.Set("sources.timeout", "0s")
		viper.Set("sources.requests_per_second", 0)
	})

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Learn.Workers)
	assert.Equal(t, 2*time.Second, cfg.Learn.ItemTimeout)
	assert.Equal(t, 30*time.Second, cfg.Sources.Timeout)
	assert.Equal(t, 0.5, cfg.Sources.RequestsPerSecond)
}

func TestSelectedInputTypes(t *testing.T) {
	assert.Equal(t,
		[]types.InputType{types.InputPaperEntry, types.InputGCNText, types.InputATelEntry},
		selectedInputTypes(learnCmd))

	require.NoError(t, learnCmd.Flags().Set("gcn", "true"))
	t.Cleanup(func() { _ = learnCmd.Flags().Set("gcn", "false") })
	assert.Equal(t, []types.InputType{types.InputGCNText}, selectedInputTypes(learnCmd))
}

func TestWriteKnowledge(t *testing.T) {
	out := filepath.Join(t.TempDir(), "knowledge.txt")
	facts := workflow.AggregateResult{
		types.OntologyNS + "gcn31119": {{
			Subject:   types.OntologyNS + "gcn31119",
			Predicate: "gcn_number",
			Object:    workflow.IntegerLiteral(31119),
		}},
	}

	require.NoError(t, writeKnowledge(facts, types.LearnConfig{Output: types.OutputList, OutFile: out}))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "<"+types.OntologyNS+"gcn31119> <"+types.OntologyNS+"gcn_number> 31119\n", string(data))

	err = writeKnowledge(facts, types.LearnConfig{Output: "xml", OutFile: out})
	assert.Error(t, err)
}
