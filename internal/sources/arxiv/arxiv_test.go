// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package arxiv

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/astro-facts/internal/fetch"
	"github.com/pdiddy/astro-facts/internal/workflow"
	"github.com/pdiddy/astro-facts/pkg/types"
)

func init() {
	fetch.RetryBaseDelay = time.Millisecond
}

const sampleFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2111.12345v1</id>
    <updated>2021-11-23T18:00:00Z</updated>
    <published>2021-11-23T18:00:00Z</published>
    <title>INTEGRAL view of GRB 211123A
  and its afterglow</title>
    <summary>We observed GRB 211123A with INTEGRAL. The GRB was long.</summary>
    <author><name>V. Savchenko</name></author>
    <author><name> C. Ferrigno </name></author>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2111.54321v2</id>
    <updated>2021-11-22T10:30:00Z</updated>
    <title>Dust in nearby galaxies</title>
    <summary>A survey of dust.</summary>
  </entry>
</feed>`

func sampleEntry(t *testing.T) types.PaperEntry {
	t.Helper()
	entries, err := ParseFeed(strings.NewReader(sampleFeedXML))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	return entries[0]
}

func TestParseFeed(t *testing.T) {
	e := sampleEntry(t)
	assert.Equal(t, "http://arxiv.org/abs/2111.12345v1", e.ID)
	assert.Equal(t, "2021-11-23T18:00:00Z", e.Updated)
	assert.Equal(t, []string{"V. Savchenko", "C. Ferrigno"}, e.Authors)

	_, err := ParseFeed(strings.NewReader("<feed><entry>"))
	assert.Error(t, err)
}

func TestIdentity(t *testing.T) {
	uri, err := identity(context.Background(), sampleEntry(t))
	require.NoError(t, err)
	assert.Equal(t, types.OntologyNS+"arXiv2111.12345v1", uri)

	_, err = identity(context.Background(), types.PaperEntry{ID: "http://arxiv.org/abs/"})
	assert.Error(t, err)
}

func TestBasicMeta(t *testing.T) {
	d, err := basicMeta(sampleEntry(t))
	require.NoError(t, err)
	assert.Equal(t, "http://arxiv.org/abs/2111.12345v1", d["location"])
	assert.Equal(t, "INTEGRAL view of GRB 211123A   and its afterglow", d["title"])
	assert.Equal(t, "arXiv", d["source"])
}

func TestBasicTimeMeta(t *testing.T) {
	d, err := basicTimeMeta(sampleEntry(t))
	require.NoError(t, err)
	assert.Equal(t, "2021-11-23T18:00:00Z", d["updated_isot"])
	assert.Equal(t, float64(1637690400), d["updated_ts"])
	assert.Equal(t, d["updated_ts"], d["timestamp"])

	_, err = basicTimeMeta(types.PaperEntry{Updated: "yesterday"})
	assert.True(t, errors.Is(err, workflow.ErrNoMatch))
}

func TestMentionsKeyword(t *testing.T) {
	d, err := mentionsKeyword(sampleEntry(t))
	require.NoError(t, err)
	assert.Equal(t, "summary", d["mentions_integral"])
	assert.Equal(t, "summary", d["mentions_grb"])
	assert.Equal(t, 2, d["mentions_grb_times"])
	assert.NotContains(t, d, "mentions_integral_times")
	assert.NotContains(t, d, "mentions_frb")
}

func TestMentionsNamed(t *testing.T) {
	d, err := mentionsNamed(sampleEntry(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"GRB211123A", "GRB211123A"}, d["mentions_named_grb"])
}

func TestFetchAndList(t *testing.T) {
	var queries []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("search_query")+"|"+r.URL.Query().Get("sortBy"))
		assert.Equal(t, "5", r.URL.Query().Get("max_results"))
		w.Write([]byte(sampleFeedXML))
	}))
	defer ts.Close()

	old := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = old }()

	dir := t.TempDir()
	opts := Options{Dir: dir, Client: fetch.New(types.HTTPConfig{}, nil)}
	var out bytes.Buffer
	files, err := Fetch(context.Background(), opts, FetchOptions{Category: `astro-ph\.HE`, MaxResults: 5}, &out)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"cat:astro-ph.HE|lastUpdatedDate",
		"cat:astro-ph.HE|submittedDate",
	}, queries)
	require.Len(t, files, 2)
	assert.Equal(t, filepath.Join(dir, "papers-recent-astro-ph.HE-lastUpdatedDate.json"), files[0])
	assert.Contains(t, out.String(), "2 entries")

	r := workflow.NewRegistry(nil)
	require.NoError(t, Register(r, opts))

	items, err := r.Discover(context.Background(), []types.InputType{types.InputPaperEntry}, 0)
	require.NoError(t, err)
	assert.Len(t, items, 4)

	d := &workflow.Dispatcher{Registry: r}
	res, err := d.Dispatch(context.Background(), items[0])
	require.NoError(t, err)
	assert.Equal(t, types.OntologyNS+"arXiv2111.12345v1", res.Subject)
	assert.False(t, res.Boring)

	res, err = d.Dispatch(context.Background(), items[1])
	require.NoError(t, err)
	assert.True(t, res.Boring, "no mentions")
}

func TestFetch_BadCategory(t *testing.T) {
	opts := Options{Dir: t.TempDir(), Client: fetch.New(types.HTTPConfig{}, nil)}
	_, err := Fetch(context.Background(), opts, FetchOptions{Category: "("}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestReadListings_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "papers-bad.json"), []byte("{"), 0o644))
	_, err := ReadListings(dir)
	assert.Error(t, err)

	entries, err := ReadListings(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
