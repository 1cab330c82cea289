// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package common holds text matchers shared by every source: keyword
// mentions, named transient events and citations of other telegrams and
// circulars.
package common

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/pdiddy/astro-facts/pkg/types"
)

var relevantKeywords = []string{
	"HAWC", "INTEGRAL", "CTA", "HESS", "MAGIC", "LST", "SKA",
	"IceCube", "LIGO/Virgo", "ANTARES", "Fermi/LAT",
	"SPI-ACS", "ISGRI",
	"FRB", "GRB", "magnetar", "SGR", "blazar",
	"GW170817", "GW190425",
}

// RelevantKeywords returns the keywords MentionsKeyword looks for.
func RelevantKeywords() []string {
	return slices.Clone(relevantKeywords)
}

// MentionsKeyword reports, for each relevant keyword found, where it was
// seen ("title" wins over "body") and how often when more than once.
// Matching is case sensitive.
func MentionsKeyword(title, body string) types.Findings {
	return mentionsKeywords(relevantKeywords, title, body)
}

// MentionsKeywords is MentionsKeyword over a caller-supplied keyword list.
func MentionsKeywords(keywords []string, title, body string) types.Findings {
	return mentionsKeywords(keywords, title, body)
}

func mentionsKeywords(keywords []string, title, body string) types.Findings {
	d := types.Findings{}
	for _, kw := range keywords {
		k := strings.ToLower(kw)

		if n := strings.Count(body, kw); n > 0 {
			d["mentions_"+k] = "body"
			if n > 1 {
				d["mentions_"+k+"_times"] = n
			}
		}
		if n := strings.Count(title, kw); n > 0 {
			d["mentions_"+k] = "title"
			if n > 1 {
				d["mentions_"+k+"_times"] = n
			}
		}
	}
	return d
}

type namePattern struct {
	re     *regexp.Regexp
	format func(groups []string) string
}

var grbLikePatterns = []namePattern{
	{
		re:     regexp.MustCompile(`\b(IceCube|IC|GRB|FRB|PKS|Mrk|HAWC)([ -]?)([0-9\.\-\+]{2,}[A-Z]?)\b`),
		format: func(g []string) string { return g[0] + g[1] + g[2] },
	},
	{
		re:     regexp.MustCompile(`\b(AT) *?([0-9]{4}[a-z]{3})\b`),
		format: func(g []string) string { return g[0] + g[1] },
	},
	{
		re:     regexp.MustCompile(`\b(ZTF)([0-9]{2}[a-z]{7})\b`),
		format: func(g []string) string { return g[0] + g[1] },
	},
}

// MentionsGRBLike finds named transients (GRB 211123A, FRB20211122A,
// IceCube-211116A, AT2021abc, ZTF21aaaaaaa, ...) in title and body. Every
// hit adds its space-free name to mentions_named_event, its kind to
// mentions_named_event_type, and its name to mentions_named_<kind>.
func MentionsGRBLike(title, body string) types.Findings {
	lists := map[string][]string{}
	var order []string
	add := func(k, v string) {
		if _, ok := lists[k]; !ok {
			order = append(order, k)
		}
		lists[k] = append(lists[k], v)
	}

	for _, text := range []string{title, body} {
		for _, p := range grbLikePatterns {
			for _, m := range p.re.FindAllStringSubmatch(text, -1) {
				name := strings.ReplaceAll(p.format(m[1:]), " ", "")
				kind := m[1]
				add("mentions_named_event", name)
				add("mentions_named_event_type", kind)
				add("mentions_named_"+strings.ToLower(kind), name)
			}
		}
	}

	d := types.Findings{}
	for _, k := range order {
		d[k] = lists[k]
	}
	return d
}

var citePrefixes = []struct {
	kind     string
	prefixes []string
}{
	{"atel", []string{"atel"}},
	{"gcn", []string{"gcn circ.", "gcn circ", "gcnc", "gcn"}},
}

var citeRes = func() map[string]*regexp.Regexp {
	out := map[string]*regexp.Regexp{}
	for _, c := range citePrefixes {
		for _, p := range c.prefixes {
			out[p] = regexp.MustCompile(`(?i)` + p + ` *?#?(\d{3,})`)
		}
	}
	return out
}()

// CitesATelGCN finds references such as "ATel #15055" or "GCN Circ. 31119".
// cites lists the cited subject URIs without repeats; cites_<kind>_id holds
// the last id seen of each kind.
func CitesATelGCN(title, body string) types.Findings {
	d := types.Findings{}
	var cites []string

	for _, c := range citePrefixes {
		for _, text := range []string{title, body} {
			for _, p := range c.prefixes {
				for _, m := range citeRes[p].FindAllStringSubmatch(text, -1) {
					uri, err := PaperIDToURI(c.kind, m[1])
					if err != nil {
						continue
					}
					d["cites_"+c.kind+"_id"] = m[1]
					if !slices.Contains(cites, uri) {
						cites = append(cites, uri)
					}
				}
			}
		}
	}

	if len(cites) > 0 {
		d["cites"] = cites
	}
	return d
}

// PaperIDToURI builds the subject URI of a document of the given kind from
// its numeric id, e.g. ("gcn", "031119") gives ...#gcn31119.
func PaperIDToURI(kind, id string) (string, error) {
	n, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil {
		return "", fmt.Errorf("%s id %q: %w", kind, id, err)
	}
	return fmt.Sprintf("%s%s%d", types.OntologyNS, kind, n), nil
}
