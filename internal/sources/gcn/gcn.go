// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gcn reads GCN circulars and extracts facts about the transients
// they report: trigger times, localizations, upper limits, named events and
// the instruments involved.
package gcn

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/pdiddy/astro-facts/internal/fetch"
	"github.com/pdiddy/astro-facts/internal/workflow"
	"github.com/pdiddy/astro-facts/pkg/types"
)

// gcnBase is the circular archive. Declared as a var so tests can
// substitute an httptest server.
var gcnBase = "https://gcn.gsfc.nasa.gov"

const (
	// Name qualifies the registered descriptor names, e.g. "gcn.identity".
	Name = "gcn"

	circularExt = ".gcn3"
	archiveName = "all_gcn_circulars.tar.gz"
)

// ErrNoSuchCircular is returned when a circular is neither on disk nor
// fetchable.
var ErrNoSuchCircular = errors.New("no such circular")

// Options configures the GCN source.
type Options struct {
	// Dir holds circulars as <number>.gcn3.
	Dir string

	// AllowNet enables the archive index producer, fetching circulars
	// missing on disk, and extractors that follow links.
	AllowNet bool

	// Client is required when AllowNet is set.
	Client *fetch.Client

	Logger *zap.SugaredLogger
}

func (o Options) logger() *zap.SugaredLogger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop().Sugar()
}

func (o Options) net() bool { return o.AllowNet && o.Client != nil }

// Register adds the GCN producers, identity and extractors to r.
func Register(r *workflow.Registry, opts Options) error {
	if opts.Dir == "" {
		opts.Dir = "gcn3"
	}
	s := &source{opts: opts}

	if err := r.Producer(Name+".gcn_list_local", types.InputGCNText, s.listLocal); err != nil {
		return err
	}
	if opts.net() {
		if err := r.Producer(Name+".gcn_list_recent", types.InputGCNText, s.listRecent); err != nil {
			return err
		}
	}
	if err := r.Identity(Name+".identity", identity, types.InputGCNText); err != nil {
		return err
	}

	for _, e := range s.extractors() {
		if err := r.Extractor(Name+"."+e.name, text(e.fn), types.InputGCNText); err != nil {
			return err
		}
	}
	return nil
}

type extractor struct {
	name string
	fn   func(ctx context.Context, text string) (types.Findings, error)
}

// text adapts a function over the circular text to an extractor.
func text(fn func(ctx context.Context, text string) (types.Findings, error)) workflow.ExtractFunc {
	return func(ctx context.Context, in types.Input) (types.Findings, error) {
		t, ok := in.(types.GCNText)
		if !ok {
			return nil, errors.Newf("expected GCNText, got %T", in)
		}
		return fn(ctx, string(t))
	}
}

type source struct {
	opts Options
}

var numberRe = regexp.MustCompile(`NUMBER:(.*)`)

// Number returns the circular number from its NUMBER header.
func Number(text string) (int, error) {
	m := numberRe.FindStringSubmatch(text)
	if m == nil {
		return 0, errors.New("no NUMBER header")
	}
	n, err := strconv.Atoi(strings.TrimSpace(m[1]))
	if err != nil {
		return 0, errors.Wrap(err, "NUMBER header")
	}
	return n, nil
}

func identity(_ context.Context, in types.Input) (string, error) {
	t, ok := in.(types.GCNText)
	if !ok {
		return "", errors.Newf("expected GCNText, got %T", in)
	}
	n, err := Number(string(t))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%sgcn%d", types.OntologyNS, n), nil
}

// Decode turns raw circular bytes into text, replacing non-ASCII bytes.
func Decode(raw []byte) types.GCNText {
	var b strings.Builder
	b.Grow(len(raw))
	for _, c := range raw {
		if c < 0x80 {
			b.WriteByte(c)
		} else {
			b.WriteRune('\uFFFD')
		}
	}
	return types.GCNText(b.String())
}

// Source returns circular id from the local directory or, when allowed,
// from the archive.
func Source(ctx context.Context, id int, opts Options) (types.GCNText, error) {
	if opts.Dir == "" {
		opts.Dir = "gcn3"
	}
	raw, err := os.ReadFile(filepath.Join(opts.Dir, strconv.Itoa(id)+circularExt))
	if err == nil {
		return Decode(raw), nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", errors.Wrapf(err, "reading circular %d", id)
	}

	if opts.net() {
		raw, err := opts.Client.Get(ctx, fmt.Sprintf("%s/gcn3/%d%s", gcnBase, id, circularExt))
		if err == nil {
			return Decode(raw), nil
		}
		if !errors.Is(err, fetch.ErrNotFound) {
			return "", errors.Wrapf(err, "fetching circular %d", id)
		}
	}
	return "", errors.Wrapf(ErrNoSuchCircular, "%d", id)
}

// localIDs lists the circular numbers in dir, newest first.
func localIDs(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var ids []int
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, circularExt) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(name, circularExt))
		if err != nil {
			continue
		}
		ids = append(ids, n)
	}
	slices.Sort(ids)
	slices.Reverse(ids)
	return ids, nil
}

func (s *source) listLocal(ctx context.Context) iter.Seq2[types.Input, error] {
	return func(yield func(types.Input, error) bool) {
		ids, err := localIDs(s.opts.Dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				s.opts.logger().Infow("no local circulars", "dir", s.opts.Dir)
				return
			}
			yield(nil, errors.Wrap(err, "listing circulars"))
			return
		}
		s.opts.logger().Debugw("local circulars", "dir", s.opts.Dir, "count", len(ids))

		for _, id := range ids {
			if ctx.Err() != nil {
				yield(nil, ctx.Err())
				return
			}
			raw, err := os.ReadFile(filepath.Join(s.opts.Dir, strconv.Itoa(id)+circularExt))
			if err != nil {
				s.opts.logger().Warnw("unreadable circular", "id", id, "error", err)
				continue
			}
			if !yield(Decode(raw), nil) {
				return
			}
		}
	}
}

var archiveLinkRe = regexp.MustCompile(`<A HREF=(gcn3/\d{1,5}\.gcn3)>(\d{1,5})</A>`)

// listRecent walks the archive index newest first, fetching each circular
// only when the consumer asks for it.
func (s *source) listRecent(ctx context.Context) iter.Seq2[types.Input, error] {
	return func(yield func(types.Input, error) bool) {
		index, err := s.opts.Client.Get(ctx, gcnBase+"/gcn3_archive.html")
		if err != nil {
			yield(nil, errors.Wrap(err, "fetching archive index"))
			return
		}

		links := archiveLinkRe.FindAllStringSubmatch(string(index), -1)
		s.opts.logger().Debugw("archive index", "circulars", len(links))

		for i := len(links) - 1; i >= 0; i-- {
			id, err := strconv.Atoi(links[i][2])
			if err != nil {
				continue
			}
			t, err := Source(ctx, id, s.opts)
			if errors.Is(err, ErrNoSuchCircular) {
				s.opts.logger().Warnw("no circular", "id", id)
				continue
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(t, nil) {
				return
			}
		}
	}
}

// FetchArchive downloads the full circular archive and unpacks every
// circular into dir. It returns the number of circulars written.
func FetchArchive(ctx context.Context, client *fetch.Client, dir string, w io.Writer) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, errors.Wrapf(err, "creating %s", dir)
	}

	archive := filepath.Join(dir, archiveName)
	fmt.Fprintf(w, "downloading %s/gcn3/%s\n", gcnBase, archiveName)
	if err := client.Download(ctx, gcnBase+"/gcn3/"+archiveName, archive); err != nil {
		return 0, errors.Wrap(err, "downloading archive")
	}
	defer os.Remove(archive)

	f, err := os.Open(archive)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n, err := Unpack(f, dir)
	fmt.Fprintf(w, "unpacked %d circulars into %s\n", n, dir)
	return n, err
}

// Unpack extracts the .gcn3 members of a gzipped tar stream into dir,
// flattening any directories inside the archive.
func Unpack(r io.Reader, dir string) (int, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return 0, errors.Wrap(err, "opening gzip stream")
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	n := 0
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, errors.Wrap(err, "reading archive")
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := filepath.Base(hdr.Name)
		if !strings.HasSuffix(name, circularExt) || name == circularExt {
			continue
		}

		if err := writeFile(filepath.Join(dir, name), tr); err != nil {
			return n, err
		}
		n++
	}
}

func writeFile(path string, r io.Reader) error {
	out, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	return out.Close()
}
