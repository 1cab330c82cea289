// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package atel reads Astronomer's Telegrams from an index built out of
// cached telegram e-mails.
package atel

import (
	"context"
	"encoding/json"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/pdiddy/astro-facts/internal/sources/common"
	"github.com/pdiddy/astro-facts/internal/workflow"
	"github.com/pdiddy/astro-facts/pkg/types"
)

// Name qualifies the registered descriptor names, e.g. "atel.cites".
const Name = "atel"

// ReadURL is the public page of a telegram, formatted with its id.
const ReadURL = "https://www.astronomerstelegram.org/?read=%s"

// dateLayout is the telegram "Posted:" format, e.g. "22 Nov 2021; 13:05 UT".
const dateLayout = "2 Jan 2006; 15:04 UT"

// Options configures the ATel source.
type Options struct {
	// Index is the atels.json file written by BuildIndex.
	Index string

	Logger *zap.SugaredLogger
}

func (o Options) logger() *zap.SugaredLogger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop().Sugar()
}

func (o Options) index() string {
	if o.Index == "" {
		return "atels.json"
	}
	return o.Index
}

// Register adds the ATel producer, identity and extractors to r.
func Register(r *workflow.Registry, opts Options) error {
	if err := r.Producer(Name+".list_entries", types.InputATelEntry, listEntries(opts)); err != nil {
		return err
	}
	if err := r.Identity(Name+".identity", identity, types.InputATelEntry); err != nil {
		return err
	}
	for _, e := range []struct {
		name string
		fn   func(types.ATelEntry) (types.Findings, error)
	}{
		{"atel_date", atelDate},
		{"mentions_keyword", mentionsKeyword},
		{"mentions_named", mentionsNamed},
		{"basic_meta", basicMeta},
		{"cites", cites},
	} {
		if err := r.Extractor(Name+"."+e.name, entry(e.fn), types.InputATelEntry); err != nil {
			return err
		}
	}
	return nil
}

func entry(fn func(types.ATelEntry) (types.Findings, error)) workflow.ExtractFunc {
	return func(_ context.Context, in types.Input) (types.Findings, error) {
		e, ok := in.(types.ATelEntry)
		if !ok {
			return nil, errors.Newf("expected ATelEntry, got %T", in)
		}
		return fn(e)
	}
}

// ReadIndex loads the telegrams of an atels.json index.
func ReadIndex(path string) ([]types.ATelEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []types.ATelEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return entries, nil
}

// Lookup returns the telegram with the given id from the index.
func Lookup(path, id string) (types.ATelEntry, error) {
	entries, err := ReadIndex(path)
	if err != nil {
		return types.ATelEntry{}, err
	}
	for _, e := range entries {
		if e.ATelID == id {
			return e, nil
		}
	}
	return types.ATelEntry{}, errors.WithHint(
		errors.Newf("telegram %s not in %s", id, path),
		"rebuild the index with: astro-facts atel index")
}

func listEntries(opts Options) workflow.ProduceFunc {
	return func(ctx context.Context) iter.Seq2[types.Input, error] {
		return func(yield func(types.Input, error) bool) {
			entries, err := ReadIndex(opts.index())
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					opts.logger().Infow("no telegram index", "path", opts.index())
					return
				}
				yield(nil, err)
				return
			}
			opts.logger().Debugw("telegram index", "path", opts.index(), "entries", len(entries))

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

func identity(_ context.Context, in types.Input) (string, error) {
	e, ok := in.(types.ATelEntry)
	if !ok {
		return "", errors.Newf("expected ATelEntry, got %T", in)
	}
	id := e.ATelID[strings.LastIndex(e.ATelID, "/")+1:]
	if id == "" {
		return "", errors.New("telegram without atelid")
	}
	return types.OntologyNS + "atel" + id, nil
}

func atelDate(e types.ATelEntry) (types.Findings, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(e.Date))
	if err != nil {
		return nil, workflow.NoMatch("date %q: %v", e.Date, err)
	}
	return types.Findings{"timestamp": float64(t.Unix())}, nil
}

func mentionsKeyword(e types.ATelEntry) (types.Findings, error) {
	return common.MentionsKeyword(e.Title, e.Body), nil
}

func mentionsNamed(e types.ATelEntry) (types.Findings, error) {
	return common.MentionsGRBLike(e.Title, e.Body), nil
}

func basicMeta(e types.ATelEntry) (types.Findings, error) {
	return types.Findings{
		"location": e.URL,
		"title":    strings.NewReplacer("\n", " ", "\r", " ").Replace(e.Title),
		"source":   "ATel",
		"atelid":   e.ATelID,
	}, nil
}

func cites(e types.ATelEntry) (types.Findings, error) {
	return common.CitesATelGCN(e.Title, e.Body), nil
}

// DefaultCacheDir is where telegram e-mails are cached, ~/.cache/atels.
func DefaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".cache", "atels")
}
