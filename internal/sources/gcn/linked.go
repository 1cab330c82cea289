// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gcn

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/pdiddy/astro-facts/internal/workflow"
	"github.com/pdiddy/astro-facts/pkg/types"
)

// Extractors in this file follow links found in the circular and need the
// network.

var balrogURLRe = regexp.MustCompile(`(https?://.*?json)`)

type balrogResult struct {
	GRBParams []struct {
		TriggerTimestamp string      `json:"trigger_timestamp"`
		TriggerNumber    json.Number `json:"trigger_number"`
		BalrogRA         float64     `json:"balrog_ra"`
		BalrogRAErr      float64     `json:"balrog_ra_err"`
		BalrogDec        float64     `json:"balrog_dec"`
		BalrogDecErr     float64     `json:"balrog_dec_err"`
	} `json:"grb_params"`
}

// gbmBalrog follows the BALROG localization link of a GBM circular.
func (s *source) gbmBalrog(ctx context.Context, text string) (types.Findings, error) {
	m := balrogURLRe.FindStringSubmatch(text)
	if m == nil {
		return nil, workflow.NoMatch("no BALROG link")
	}
	if !s.opts.net() {
		return nil, workflow.NoMatch("network disabled")
	}

	d := types.Findings{
		"url_json": m[1],
		"url":      strings.Replace(m[1], "/json", "/", 1),
	}

	var results []balrogResult
	if err := s.opts.Client.GetJSON(ctx, m[1], &results); err != nil {
		return nil, errors.Wrap(err, "fetching BALROG result")
	}
	if len(results) == 0 || len(results[0].GRBParams) == 0 {
		return nil, errors.Newf("BALROG result %s has no grb_params", m[1])
	}

	p := results[0].GRBParams[0]
	trigger, err := p.TriggerNumber.Int64()
	if err != nil {
		return nil, errors.Wrapf(err, "trigger_number %q", p.TriggerNumber)
	}
	d["grb_isot"] = strings.ReplaceAll(p.TriggerTimestamp, "Z", "")
	d["gbm_trigger_id"] = trigger
	d["balrog_ra"] = p.BalrogRA
	d["balrog_ra_err"] = p.BalrogRAErr
	d["balrog_dec"] = p.BalrogDec
	d["balrog_dec_err"] = p.BalrogDecErr
	return d, nil
}

const noticeSep = "//////////////////////////////////////////////////////////////////////"

var (
	iceCubeSubjectRe = regexp.MustCompile(`(?i)SUBJECT:(.*?) *?:?-? *?IceCube observation of a(.*)`)
	iceCubeTimeRe    = regexp.MustCompile(`On (\d{4}[/\- ]\d{2}[/\- ]\d{2} at \d{2}:\d{2}:[\d\.]*?) UT IceCube`)
	iceCubeRARe      = regexp.MustCompile(`RA: ([\d\.\-\+]*?) `)
	iceCubeDecRe     = regexp.MustCompile(`Dec: ([\d\.\-\+]*?) `)

	noticeDegRe  = regexp.MustCompile(`^([\d\.+\-]*?)d`)
	noticeDateRe = regexp.MustCompile(`(\d{2}/\d{2}/\d{2}) \(yy/mm/dd\)`)
	noticeTimeRe = regexp.MustCompile(`\{(\d{2}:\d{2}:[\d\.]+)\} UT`)
)

// gcnIceCubeCircular reads IceCube neutrino alerts. When the circular links
// an AMON notice and the network is allowed, the notice fields are used;
// otherwise the time and position come from the circular text.
func (s *source) gcnIceCubeCircular(ctx context.Context, text string) (types.Findings, error) {
	m := iceCubeSubjectRe.FindStringSubmatch(text)
	if m == nil {
		return nil, workflow.NoMatch("not an IceCube alert")
	}
	ev := strings.TrimSpace(m[1])
	d := types.Findings{
		"reports_icecube_event": ev,
		"reports_event":         ev,
		"icecube_event_descr":   strings.TrimSpace(m[2]),
	}

	noticeURL := regexp.MustCompile(`(` + regexp.QuoteMeta(gcnBase) + `/.*?\.amon)`).FindStringSubmatch(text)
	if noticeURL != nil && s.opts.net() {
		body, err := s.opts.Client.Get(ctx, noticeURL[1])
		if err != nil {
			return nil, errors.Wrap(err, "fetching AMON notice")
		}
		notice, err := ParseNotice(string(body))
		if err != nil {
			return nil, err
		}
		for k, v := range notice {
			d["amon_gcn_notice_"+k] = v
		}
	} else {
		if t := iceCubeTimeRe.FindStringSubmatch(text); t != nil {
			raw := strings.ReplaceAll(strings.TrimSpace(t[1]), "-", "/")
			if isot, err := reformat(raw, "2006/01/02 at 15:04:05", isotMicroLayout); err == nil {
				d["event_isot"] = isot
			}
		}
		if r := iceCubeRARe.FindStringSubmatch(text); r != nil {
			d["icecube_ra"] = r[1]
			d["event_ra"] = r[1]
		}
		if r := iceCubeDecRe.FindStringSubmatch(text); r != nil {
			d["icecube_dec"] = r[1]
		}
	}

	if ra, ok := d["icecube_ra"]; ok {
		if dec, ok := d["icecube_dec"]; ok {
			d["event_ra"] = ra
			d["event_dec"] = dec
		}
	}
	if ra, ok := d["amon_gcn_notice_src_ra"]; ok {
		if dec, ok := d["amon_gcn_notice_src_dec"]; ok {
			d["event_ra"] = ra
			d["event_dec"] = dec
		}
	}
	date, okDate := d["amon_gcn_notice_date_ymd"].(string)
	hms, okTime := d["amon_gcn_notice_time_hms"].(string)
	if okDate && okTime {
		if isot, err := reformat(date+" "+hms, "06/01/02 15:04:05", isotMicroLayout); err == nil {
			d["event_isot"] = isot
		}
	}
	return d, nil
}

// ParseNotice reads the fixed-width "KEY:   value" lines of a GCN notice.
// Keys are lower-cased. Values in degrees ("42.45d {...}") become floats,
// DISCOVERY_DATE becomes date_ymd and DISCOVERY_TIME becomes time_hms.
// When the text holds several notices, later ones overwrite earlier keys.
func ParseNotice(text string) (map[string]any, error) {
	out := map[string]any{}
	for _, block := range strings.Split(text, noticeSep) {
		for _, line := range strings.Split(block, "\n") {
			line = strings.TrimRight(line, "\r")
			keyPart, raw := line, ""
			if len(line) > 18 {
				keyPart, raw = line[:18], strings.TrimSpace(line[18:])
			}
			k := strings.ToLower(strings.Trim(strings.TrimSpace(keyPart), ":"))
			if k == "" {
				continue
			}

			var v any = raw
			if m := noticeDegRe.FindStringSubmatch(raw); m != nil {
				if f, err := strconv.ParseFloat(m[1], 64); err == nil {
					v = f
				}
			}

			switch k {
			case "discovery_date":
				m := noticeDateRe.FindStringSubmatch(raw)
				if m == nil {
					return nil, errors.Newf("notice DISCOVERY_DATE %q", raw)
				}
				k, v = "date_ymd", m[1]
			case "discovery_time":
				m := noticeTimeRe.FindStringSubmatch(raw)
				if m == nil {
					return nil, errors.Newf("notice DISCOVERY_TIME %q", raw)
				}
				k, v = "time_hms", m[1]
			}
			out[k] = v
		}
	}
	return out, nil
}
