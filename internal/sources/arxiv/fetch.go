// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package arxiv

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/pdiddy/astro-facts/pkg/types"
)

// arxivAPIBase is the arXiv query endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "http://export.arxiv.org/api/query"

// Categories are the astro-ph listings Fetch knows about.
var Categories = []string{
	"astro-ph",
	"astro-ph.GA",
	"astro-ph.CO",
	"astro-ph.EP",
	"astro-ph.HE",
	"astro-ph.IM",
	"astro-ph.SR",
}

var sortOrders = []string{"lastUpdatedDate", "submittedDate"}

// FetchOptions selects what Fetch downloads.
type FetchOptions struct {
	// Category is a regular expression over Categories. Defaults to
	// "astro-ph.*".
	Category string

	// Search is ANDed with the category query when set.
	Search string

	// MaxResults per category and sort order. Defaults to 10.
	MaxResults int
}

// Fetch queries the arXiv API for each matching category, once sorted by
// last update and once by submission, and writes every feed to
// papers-recent-<category>-<sort>.json under opts.Dir. It returns the
// files written.
func Fetch(ctx context.Context, opts Options, fo FetchOptions, w io.Writer) ([]string, error) {
	if opts.Client == nil {
		return nil, errors.New("arXiv fetch needs an HTTP client")
	}
	if fo.Category == "" {
		fo.Category = "astro-ph.*"
	}
	if fo.MaxResults <= 0 {
		fo.MaxResults = 10
	}
	catRe, err := regexp.Compile(fo.Category)
	if err != nil {
		return nil, errors.WithHint(errors.Wrap(err, "category pattern"), "use a regular expression such as astro-ph.HE")
	}
	if err := os.MkdirAll(opts.dir(), 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating %s", opts.dir())
	}

	var written []string
	for _, cat := range Categories {
		if !catRe.MatchString(cat) {
			continue
		}
		opts.logger().Infow("fetching category", "category", cat, "pattern", fo.Category)

		query := "cat:" + cat
		if fo.Search != "" {
			query += " AND " + fo.Search
		}

		for _, sortBy := range sortOrders {
			entries, err := queryFeed(ctx, opts, query, sortBy, fo.MaxResults)
			if err != nil {
				return written, errors.Wrapf(err, "%s by %s", cat, sortBy)
			}

			path := filepath.Join(opts.dir(), fmt.Sprintf("papers-recent-%s-%s.json", cat, sortBy))
			if err := writeListing(path, entries); err != nil {
				return written, err
			}
			written = append(written, path)
			fmt.Fprintf(w, "%s: %d entries\n", path, len(entries))
		}
	}
	return written, nil
}

func queryFeed(ctx context.Context, opts Options, query, sortBy string, maxResults int) ([]types.PaperEntry, error) {
	params := url.Values{}
	params.Set("search_query", query)
	params.Set("sortBy", sortBy)
	params.Set("sortOrder", "descending")
	params.Set("max_results", strconv.Itoa(maxResults))

	body, err := opts.Client.Get(ctx, arxivAPIBase+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	entries, err := ParseFeed(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		opts.logger().Debugw("fetched", "id", e.ID[strings.LastIndex(e.ID, "/")+1:], "updated", e.Updated, "title", e.Title)
	}
	return entries, nil
}

// ParseFeed decodes an arXiv Atom feed.
func ParseFeed(r io.Reader) ([]types.PaperEntry, error) {
	var feed atomFeed
	if err := xml.NewDecoder(r).Decode(&feed); err != nil {
		return nil, errors.Wrap(err, "parsing arXiv response")
	}

	entries := make([]types.PaperEntry, 0, len(feed.Entries))
	for _, fe := range feed.Entries {
		e := types.PaperEntry{
			ID:        strings.TrimSpace(fe.ID),
			Title:     strings.TrimSpace(fe.Title),
			Summary:   strings.TrimSpace(fe.Summary),
			Updated:   strings.TrimSpace(fe.Updated),
			Published: strings.TrimSpace(fe.Published),
		}
		for _, a := range fe.Authors {
			e.Authors = append(e.Authors, strings.TrimSpace(a.Name))
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func writeListing(path string, entries []types.PaperEntry) error {
	data, err := json.MarshalIndent(Listing{Entries: entries}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding listing")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}

// Atom feed XML structures.
type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string       `xml:"id"`
	Title     string       `xml:"title"`
	Summary   string       `xml:"summary"`
	Updated   string       `xml:"updated"`
	Published string       `xml:"published"`
	Authors   []atomAuthor `xml:"author"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}
