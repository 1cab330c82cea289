// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package atel

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/quotedprintable"
	"net/mail"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/pdiddy/astro-facts/pkg/types"
)

var (
	atelIDRe = regexp.MustCompile(`ATEL #(\d+)`)
	bodyRe   = regexp.MustCompile(`(?s)Subjects:.*?\n\n(.*?)[=\-]{20,}`)
	spaceRe  = regexp.MustCompile(`[\t\r\n]+`)
	wsRe     = regexp.MustCompile(`[\n\r\t ]+`)
)

// emailFields are the labelled header lines at the top of a telegram
// e-mail body, each running until the next label.
var emailFields = []struct {
	label, end string
	set        func(e *types.ATelEntry, v string)
}{
	{"Title:", "Author:", func(e *types.ATelEntry, v string) { e.Title = v }},
	{"Author:", "Queries:", func(e *types.ATelEntry, v string) { e.Authors = v }},
	{"Queries:", "Posted:", func(e *types.ATelEntry, v string) { e.SubmitterEmail = v }},
	{"Posted:", "Subjects:", func(e *types.ATelEntry, v string) { e.Date = v }},
	{"Subjects:", "\n\n", func(e *types.ATelEntry, v string) { e.Tags = v }},
}

// ParseEmail reads one telegram as delivered by the ATel mailing list.
func ParseEmail(r io.Reader) (types.ATelEntry, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return types.ATelEntry{}, errors.Wrap(err, "reading message")
	}
	var body io.Reader = msg.Body
	if strings.EqualFold(msg.Header.Get("Content-Transfer-Encoding"), "quoted-printable") {
		body = quotedprintable.NewReader(body)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return types.ATelEntry{}, errors.Wrap(err, "reading body")
	}
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")

	var e types.ATelEntry
	for _, f := range emailFields {
		v, ok := between(text, f.label, f.end)
		if !ok {
			return types.ATelEntry{}, errors.Newf("telegram has no %s field", strings.TrimSuffix(f.label, ":"))
		}
		f.set(&e, strings.TrimSpace(spaceRe.ReplaceAllString(v, " ")))
	}

	// "A. Author (Inst.); B. Author, C. Author" lists the submitter first.
	if _, rest, ok := strings.Cut(e.Authors, ";"); ok {
		e.Authors = strings.TrimSpace(rest)
	}

	m := atelIDRe.FindStringSubmatch(text)
	if m == nil {
		return types.ATelEntry{}, errors.New("telegram has no ATEL # number")
	}
	e.ATelID = m[1]
	e.URL = fmt.Sprintf(ReadURL, e.ATelID)

	b := bodyRe.FindStringSubmatch(text)
	if b == nil {
		return types.ATelEntry{}, errors.Newf("telegram %s has no body", e.ATelID)
	}
	e.Body = wsRe.ReplaceAllString(b[1], " ")
	return e, nil
}

// between returns the text after the first label up to the next end.
func between(text, label, end string) (string, bool) {
	i := strings.Index(text, label)
	if i < 0 {
		return "", false
	}
	rest := text[i+len(label):]
	j := strings.Index(rest, end)
	if j < 0 {
		return "", false
	}
	return rest[:j], true
}

// BuildIndex parses every cached telegram (<id>.txt) in cacheDir and writes
// them, by increasing id, to out as a JSON array. Unparseable files are
// logged and skipped. It returns the number of telegrams indexed.
func BuildIndex(cacheDir, out string, logger *zap.SugaredLogger) (int, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	files, err := filepath.Glob(filepath.Join(cacheDir, "*.txt"))
	if err != nil {
		return 0, errors.Wrap(err, "globbing cache")
	}

	entries := []types.ATelEntry{}
	for _, fn := range files {
		e, err := parseFile(fn)
		if err != nil {
			logger.Warnw("skipping telegram", "file", fn, "error", err)
			continue
		}
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b types.ATelEntry) int {
		if len(a.ATelID) != len(b.ATelID) {
			return len(a.ATelID) - len(b.ATelID)
		}
		return strings.Compare(a.ATelID, b.ATelID)
	})

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return 0, errors.Wrap(err, "encoding index")
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return 0, errors.Wrapf(err, "writing %s", out)
	}
	logger.Infow("telegram index written", "path", out, "entries", len(entries))
	return len(entries), nil
}

func parseFile(path string) (types.ATelEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.ATelEntry{}, err
	}
	defer f.Close()
	return ParseEmail(f)
}
