// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/astro-facts/internal/workflow"
	"github.com/pdiddy/astro-facts/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(types.KnowledgeBaseConfig{
		KnowledgeDir: filepath.Join(t.TempDir(), "knowledge"),
		MaxResults:   20,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func fact(id, pred string, obj types.Literal) types.Fact {
	return types.Fact{Subject: types.OntologyNS + id, Predicate: pred, Object: obj}
}

func sampleResult() workflow.RunResult {
	gcn := types.OntologyNS + "gcn31119"
	atel := types.OntologyNS + "atel15055"
	return workflow.RunResult{
		Facts: workflow.AggregateResult{
			gcn: {
				fact("gcn31119", "gcn_number", workflow.IntegerLiteral(31119)),
				fact("gcn31119", "integral_grb_report", workflow.StringLiteral("GRB211123A")),
				fact("gcn31119", "mentions_integral", workflow.StringLiteral("body")),
				fact("gcn31119", "integral_ul", workflow.DoubleLiteral(4.6e-7)),
			},
			atel: {
				fact("atel15055", "title", workflow.StringLiteral("CHIME/FRB detection of a bright burst")),
				fact("atel15055", "mentions_frb", workflow.StringLiteral("title")),
			},
		},
		Boring: []string{types.OntologyNS + "gcn20000"},
		Stats:  types.RunStats{Inputs: 3, Retained: 2, Boring: 1, Facts: 6},
	}
}

func saveSample(t *testing.T, store *Store) Run {
	t.Helper()
	run := NewRun([]types.InputType{types.InputGCNText, types.InputATelEntry}, 4)
	summary, err := store.SaveRun(context.Background(), run, sampleResult())
	require.NoError(t, err)
	assert.Equal(t, SaveSummary{Subjects: 2, Facts: 6}, summary)
	return run
}

// --- tests ---

func TestNewStore_CreatesDatabase(t *testing.T) {
	store := testStore(t)
	_, err := os.Stat(store.Path())
	assert.NoError(t, err)
	assert.Equal(t, dbFile, filepath.Base(store.Path()))
}

func TestSaveRun_AndRetrieveBySubject(t *testing.T) {
	store := testStore(t)
	run := saveSample(t, store)

	results, err := store.Retrieve(context.Background(), QueryOptions{Subject: "gcn31119"})
	require.NoError(t, err)
	require.Len(t, results, 4)

	// Filter-only results are sorted by predicate within a subject.
	var preds []string
	for _, r := range results {
		preds = append(preds, r.Predicate)
		assert.Equal(t, run.ID, r.RunID)
	}
	assert.Equal(t, []string{"gcn_number", "integral_grb_report", "integral_ul", "mentions_integral"}, preds)
	assert.Equal(t, types.KindInteger, results[0].Object.Kind)
	assert.Equal(t, "31119", results[0].Object.Lexical)

	none, err := store.Retrieve(context.Background(), QueryOptions{Subject: "gcn20000"})
	require.NoError(t, err)
	assert.Empty(t, none, "boring subjects are not stored")
}

func TestSaveRun_ReplacesRelearnedSubject(t *testing.T) {
	store := testStore(t)
	saveSample(t, store)

	again := workflow.RunResult{Facts: workflow.AggregateResult{
		types.OntologyNS + "gcn31119": {
			fact("gcn31119", "gcn_number", workflow.IntegerLiteral(31119)),
			fact("gcn31119", "mentions_swift", workflow.StringLiteral("body")),
		},
	}}
	second := NewRun([]types.InputType{types.InputGCNText}, 1)
	summary, err := store.SaveRun(context.Background(), second, again)
	require.NoError(t, err)
	assert.Equal(t, SaveSummary{Subjects: 1, Facts: 2}, summary)

	results, err := store.Retrieve(context.Background(), QueryOptions{Subject: "gcn31119"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "mentions_swift", results[1].Predicate)
	assert.Equal(t, second.ID, results[1].RunID)

	// Other subjects keep their facts.
	other, err := store.Retrieve(context.Background(), QueryOptions{Subject: "atel15055"})
	require.NoError(t, err)
	assert.Len(t, other, 2)
}

func TestRetrieve_ByPredicate(t *testing.T) {
	store := testStore(t)
	saveSample(t, store)

	for _, pred := range []string{"mentions_frb", "paper:mentions_frb"} {
		results, err := store.Retrieve(context.Background(), QueryOptions{Predicate: pred})
		require.NoError(t, err)
		require.Len(t, results, 1, pred)
		assert.Equal(t, types.OntologyNS+"atel15055", results[0].Subject)
		assert.Equal(t, "title", results[0].Object.Lexical)
	}
}

func TestRetrieve_Query(t *testing.T) {
	store := testStore(t)
	saveSample(t, store)

	results, err := store.Retrieve(context.Background(), QueryOptions{Query: "CHIME"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "title", results[0].Predicate)

	results, err = store.Retrieve(context.Background(), QueryOptions{Query: "CHIME/FRB detection"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, types.OntologyNS+"atel15055", results[0].Subject)

	results, err = store.Retrieve(context.Background(), QueryOptions{Query: "GRB211123A", Subject: "atel15055"})
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = store.Retrieve(context.Background(), QueryOptions{Query: "nothing-like-this"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieve_MaxResults(t *testing.T) {
	store := testStore(t)
	saveSample(t, store)

	results, err := store.Retrieve(context.Background(), QueryOptions{MaxResults: 3})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestFTSQuery(t *testing.T) {
	assert.Equal(t, `"IceCube-211116A" "say ""hi"""`, ftsQuery(`IceCube-211116A  say "hi"`))
}

func TestQueryOptions_IsEmpty(t *testing.T) {
	assert.True(t, QueryOptions{MaxResults: 5}.IsEmpty())
	assert.False(t, QueryOptions{Predicate: "cites"}.IsEmpty())
}

func TestRuns(t *testing.T) {
	store := testStore(t)
	first := saveSample(t, store)

	second := NewRun([]types.InputType{types.InputPaperEntry}, 2)
	_, err := store.SaveRun(context.Background(), second, workflow.RunResult{Facts: workflow.AggregateResult{}})
	require.NoError(t, err)

	runs, err := store.Runs(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)
	assert.Equal(t, []types.InputType{types.InputGCNText, types.InputATelEntry}, runs[1].InputTypes)
	assert.Equal(t, 4, runs[1].Workers)
	assert.Equal(t, 1, runs[1].Stats.Boring)
	assert.False(t, runs[1].FinishedAt.IsZero())

	runs, err = store.Runs(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestIngestN3(t *testing.T) {
	store := testStore(t)

	src := `@prefix paper: <http://odahub.io/ontology/paper#> .

paper:gcn31085 paper:gcn_number 31085 ;
    paper:icecube_dec 12.3 ;
    paper:mentions_icecube "title" .

paper:gcn31085 <http://purl.org/dc/terms/title> "foreign" .
`
	var out bytes.Buffer
	summary, err := store.IngestN3(context.Background(), strings.NewReader(src), &out)
	require.NoError(t, err)
	assert.Equal(t, SaveSummary{Subjects: 1, Facts: 3}, summary)
	assert.Contains(t, out.String(), "skipped")
	assert.Contains(t, out.String(), "ingested 3 facts about 1 subjects")

	results, err := store.Retrieve(context.Background(), QueryOptions{Subject: "gcn31085", Predicate: "icecube_dec"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, types.KindDouble, results[0].Object.Kind)

	runs, err := store.Runs(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].Stats.Retained)
}

func TestIngestN3_Invalid(t *testing.T) {
	store := testStore(t)
	_, err := store.IngestN3(context.Background(), strings.NewReader(`<http://x#s> <http://x#p> "v" ! .`), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestIngestN3_StandardTurtle(t *testing.T) {
	store := testStore(t)

	src := `@prefix paper: <http://odahub.io/ontology/paper#> .
paper:gcn31085 a paper:Circular ;
    paper:title "IceCube-211116A: caf\u00e9 follow-up" .
`
	var out bytes.Buffer
	summary, err := store.IngestN3(context.Background(), strings.NewReader(src), &out)
	require.NoError(t, err)
	assert.Equal(t, SaveSummary{Subjects: 1, Facts: 1}, summary)
	assert.Contains(t, out.String(), "skipped")

	results, err := store.Retrieve(context.Background(), QueryOptions{Subject: "gcn31085"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "IceCube-211116A: café follow-up", results[0].Object.Lexical)
}

func TestExportN3_RoundTrip(t *testing.T) {
	store := testStore(t)
	saveSample(t, store)

	var buf bytes.Buffer
	require.NoError(t, store.ExportN3(context.Background(), QueryOptions{}, &buf))
	assert.Contains(t, buf.String(), "@prefix paper: <"+types.OntologyNS+">")
	assert.Contains(t, buf.String(), `"GRB211123A"`)

	other := testStore(t)
	summary, err := other.IngestN3(context.Background(), &buf, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, SaveSummary{Subjects: 2, Facts: 6}, summary)
}

func TestExportYAMLAndJSON(t *testing.T) {
	store := testStore(t)
	saveSample(t, store)
	opts := QueryOptions{Subject: "gcn31119"}

	path, err := store.ExportYAML(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, "export.yaml", filepath.Base(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var y map[string]map[string]any
	require.NoError(t, yaml.Unmarshal(data, &y))
	require.Contains(t, y, types.OntologyNS+"gcn31119")
	assert.Equal(t, "GRB211123A", y[types.OntologyNS+"gcn31119"]["paper:integral_grb_report"])
	assert.NotContains(t, y, types.OntologyNS+"atel15055")

	path, err = store.ExportJSON(context.Background(), opts)
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	var j map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &j))
	assert.Equal(t, float64(31119), j[types.OntologyNS+"gcn31119"]["paper:gcn_number"])
	assert.InDelta(t, 4.6e-7, j[types.OntologyNS+"gcn31119"]["paper:integral_ul"], 1e-12)
}
