// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package arxiv reads arXiv astro-ph listings saved by Fetch and extracts
// basic metadata and mentions of transients from each abstract.
package arxiv

import (
	"context"
	"encoding/json"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/pdiddy/astro-facts/internal/fetch"
	"github.com/pdiddy/astro-facts/internal/sources/common"
	"github.com/pdiddy/astro-facts/internal/workflow"
	"github.com/pdiddy/astro-facts/pkg/types"
)

// Name qualifies the registered descriptor names, e.g. "arxiv.basic_meta".
const Name = "arxiv"

// listingGlob matches the files written by Fetch.
const listingGlob = "papers-*.json"

// Keywords are the terms mentions_keyword counts in titles and abstracts.
var Keywords = []string{"INTEGRAL", "FRB", "GRB", "GW170817", "GW190425", "magnetar", "SGR"}

// Options configures the arXiv source.
type Options struct {
	// Dir holds papers-*.json listings.
	Dir string

	// Client is used by Fetch.
	Client *fetch.Client

	Logger *zap.SugaredLogger
}

func (o Options) logger() *zap.SugaredLogger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop().Sugar()
}

func (o Options) dir() string {
	if o.Dir == "" {
		return "."
	}
	return o.Dir
}

// Listing is the on-disk form of one fetched feed.
type Listing struct {
	Entries []types.PaperEntry `json:"entries"`
}

// Register adds the arXiv producer, identity and extractors to r.
func Register(r *workflow.Registry, opts Options) error {
	if err := r.Producer(Name+".list_entries", types.InputPaperEntry, listEntries(opts)); err != nil {
		return err
	}
	if err := r.Identity(Name+".identity", identity, types.InputPaperEntry); err != nil {
		return err
	}
	for _, e := range []struct {
		name string
		fn   func(types.PaperEntry) (types.Findings, error)
	}{
		{"basic_meta", basicMeta},
		{"basic_time_meta", basicTimeMeta},
		{"mentions_keyword", mentionsKeyword},
		{"mentions_named", mentionsNamed},
	} {
		if err := r.Extractor(Name+"."+e.name, entry(e.fn), types.InputPaperEntry); err != nil {
			return err
		}
	}
	return nil
}

func entry(fn func(types.PaperEntry) (types.Findings, error)) workflow.ExtractFunc {
	return func(_ context.Context, in types.Input) (types.Findings, error) {
		e, ok := in.(types.PaperEntry)
		if !ok {
			return nil, errors.Newf("expected PaperEntry, got %T", in)
		}
		return fn(e)
	}
}

// ReadListings loads every entry of the papers-*.json files in dir, in file
// name order.
func ReadListings(dir string) ([]types.PaperEntry, error) {
	files, err := filepath.Glob(filepath.Join(dir, listingGlob))
	if err != nil {
		return nil, errors.Wrap(err, "globbing listings")
	}
	slices.Sort(files)

	var entries []types.PaperEntry
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", f)
		}
		var l Listing
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, errors.Wrapf(err, "parsing %s", f)
		}
		entries = append(entries, l.Entries...)
	}
	return entries, nil
}

func listEntries(opts Options) workflow.ProduceFunc {
	return func(ctx context.Context) iter.Seq2[types.Input, error] {
		return func(yield func(types.Input, error) bool) {
			entries, err := ReadListings(opts.dir())
			if err != nil {
				yield(nil, err)
				return
			}
			opts.logger().Debugw("arXiv listings", "dir", opts.dir(), "entries", len(entries))

			for _, e := range entries {
				if ctx.Err() != nil {
					yield(nil, ctx.Err())
					return
				}
				if !yield(e, nil) {
					return
				}
			}
		}
	}
}

// identity names a paper after the last segment of its abstract URL, so
// "http://arxiv.org/abs/2111.12345v1" becomes ...#arXiv2111.12345v1.
func identity(_ context.Context, in types.Input) (string, error) {
	e, ok := in.(types.PaperEntry)
	if !ok {
		return "", errors.Newf("expected PaperEntry, got %T", in)
	}
	id := e.ID[strings.LastIndex(e.ID, "/")+1:]
	if id == "" {
		return "", errors.Newf("entry id %q has no paper id", e.ID)
	}
	return types.OntologyNS + "arXiv" + id, nil
}

func basicMeta(e types.PaperEntry) (types.Findings, error) {
	return types.Findings{
		"location": e.ID,
		"title":    strings.NewReplacer("\n", " ", "\r", " ").Replace(e.Title),
		"source":   "arXiv",
	}, nil
}

func basicTimeMeta(e types.PaperEntry) (types.Findings, error) {
	t, err := time.Parse(time.RFC3339, e.Updated)
	if err != nil {
		return nil, workflow.NoMatch("updated %q: %v", e.Updated, err)
	}
	ts := float64(t.UnixNano()) / 1e9
	return types.Findings{
		"updated_isot": e.Updated,
		"updated_ts":   ts,
		"timestamp":    ts,
	}, nil
}

// mentionsKeyword records where each keyword appears. A summary hit
// overrides a title hit.
func mentionsKeyword(e types.PaperEntry) (types.Findings, error) {
	d := types.Findings{}
	for _, kw := range Keywords {
		k := strings.ToLower(kw)
		for _, field := range []struct{ name, text string }{{"title", e.Title}, {"summary", e.Summary}} {
			n := strings.Count(field.text, kw)
			if n > 0 {
				d["mentions_"+k] = field.name
			}
			if n > 1 {
				d["mentions_"+k+"_times"] = n
			}
		}
	}
	return d, nil
}

func mentionsNamed(e types.PaperEntry) (types.Findings, error) {
	return common.MentionsGRBLike(e.Title, e.Summary), nil
}
