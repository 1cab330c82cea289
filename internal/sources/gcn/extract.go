// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gcn

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/astro-facts/internal/sources/common"
	"github.com/pdiddy/astro-facts/internal/workflow"
	"github.com/pdiddy/astro-facts/pkg/types"
)

const (
	isotLayout      = "2006-01-02T15:04:05"
	isotMicroLayout = "2006-01-02T15:04:05.000000"
	afterglowURI    = "http://odahub.io/ontology/afterglow"
)

var (
	whitespaceRe = regexp.MustCompile(`[ \n\r]+`)
	newlineRe    = regexp.MustCompile(`\n`)
)

// collapse folds runs of spaces and line breaks into one space so patterns
// can span the wrapped lines of a circular.
func collapse(text string) string {
	return whitespaceRe.ReplaceAllString(text, " ")
}

// reformat parses value with layout and renders it with out. Go accepts a
// fractional second after the seconds field even when layout has none.
func reformat(value, layout, out string) (string, error) {
	t, err := time.Parse(layout, strings.TrimSpace(value))
	if err != nil {
		return "", err
	}
	return t.Format(out), nil
}

func (s *source) extractors() []extractor {
	return []extractor{
		{"gcn_meta", gcnMeta},
		{"gcn_date", gcnDate},
		{"gcn_instrument", gcnInstrument},
		{"mentions_keyword", mentionsKeyword},
		{"mentions_named", mentionsNamed},
		{"fermi_realtime", fermiRealtime},
		{"fermi_v2", fermiV2},
		{"gbm_balrog", s.gbmBalrog},
		{"swift_detected", swiftDetected},
		{"swift_trigger_id", swiftTriggerID},
		{"gcn_named", gcnNamed},
		{"gcn_lvc_event", gcnLVCEvent},
		{"gcn_integral_lvc_countepart_search", gcnIntegralLVCCounterpartSearch},
		{"gcn_integral_countepart_search", gcnIntegralCounterpartSearch},
		{"gcn_icecube_circular", s.gcnIceCubeCircular},
		{"gcn_lvc_circular", gcnLVCCircular},
		{"integral_ul_old_variation", integralULOldVariation},
		{"integral_ul", integralUL},
		{"clearly_detected_afterglow", clearlyDetectedAfterglow},
		{"afterglow", afterglow},
		{"gcn_grb_integral_circular", gcnGRBIntegralCircular},
		{"gcn_lvc_integral_counterpart", gcnLVCIntegralCounterpart},
		{"gcn_hawc", gcnHAWC},
		{"submitter", submitter},
		{"authors", authors},
	}
}

var metaRes = map[string]*regexp.Regexp{
	"DATE":    regexp.MustCompile(`DATE:(.*)`),
	"SUBJECT": regexp.MustCompile(`SUBJECT:(.*)`),
	"NUMBER":  regexp.MustCompile(`NUMBER:(.*)`),
}

func header(text, name string) (string, bool) {
	m := metaRes[name].FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

func gcnMeta(_ context.Context, text string) (types.Findings, error) {
	d := types.Findings{}
	for _, h := range []string{"DATE", "SUBJECT", "NUMBER"} {
		if v, ok := header(text, h); ok {
			d[h] = v
		}
	}

	number, ok := d["NUMBER"]
	if !ok {
		return nil, workflow.NoMatch("no NUMBER header")
	}
	subject, ok := d["SUBJECT"]
	if !ok {
		return nil, workflow.NoMatch("no SUBJECT header")
	}
	d["location"] = fmt.Sprintf("%s/gcn3/%s%s", gcnBase, number, circularExt)
	d["title"] = subject
	d["source"] = "GCN"
	return d, nil
}

func gcnDate(_ context.Context, text string) (types.Findings, error) {
	date, ok := header(text, "DATE")
	if !ok {
		return nil, workflow.NoMatch("no DATE header")
	}
	t, err := time.Parse("06/01/02 15:04:05 MST", date)
	if err != nil {
		return nil, workflow.NoMatch("DATE %q: %v", date, err)
	}
	return types.Findings{"timestamp": float64(t.Unix())}, nil
}

var instrumentRes = []struct {
	instrument string
	re         *regexp.Regexp
}{
	{"fermi-gbm", regexp.MustCompile(`SUBJECT:.*Fermi/GBM.*`)},
	{"fermi-gbm", regexp.MustCompile(`SUBJECT:.*Fermi GBM.*`)},
	{"fermi-lat", regexp.MustCompile(`SUBJECT:.*Fermi/LAT.*`)},
	{"agile", regexp.MustCompile(`SUBJECT:.*AGILE.*`)},
}

func gcnInstrument(_ context.Context, text string) (types.Findings, error) {
	var instruments []string
	for _, ir := range instrumentRes {
		if ir.re.MatchString(text) {
			instruments = append(instruments, ir.instrument)
		}
	}
	if len(instruments) == 0 {
		return nil, workflow.NoMatch("no instrument in subject")
	}
	return types.Findings{"instrument": instruments}, nil
}

func mentionsKeyword(_ context.Context, text string) (types.Findings, error) {
	return common.MentionsKeyword("", text), nil
}

func mentionsNamed(_ context.Context, text string) (types.Findings, error) {
	return common.MentionsGRBLike("", text), nil
}

var (
	fermiRealtimeTriggerRe = regexp.MustCompile(`At (.*?), the Fermi Gamma-ray Burst Monitor \(GBM\) triggered`)
	fermiRealtimeLocRe     = regexp.MustCompile(`The on-ground calculated location, using the Fermi GBM trigger data.*?` +
		`RA = ([\d\.\-\+]*?), Dec = ([\d\.\-\+]*?) .*?` +
		`with a statistical uncertainty of ([\d\.\-\+]*?) degrees.`)
)

func fermiRealtime(_ context.Context, text string) (types.Findings, error) {
	flat := collapse(text)
	d := types.Findings{}

	if m := fermiRealtimeTriggerRe.FindStringSubmatch(text); m != nil {
		if isot, err := reformat(m[1], "15:04:05 UT on 2 Jan 2006", isotLayout); err == nil {
			d["grb_isot"] = isot
		}
	}
	if m := fermiRealtimeLocRe.FindStringSubmatch(flat); m != nil {
		d["gbm_ra"] = m[1]
		d["gbm_dec"] = m[2]
		d["gbm_rad"] = m[3]
	}
	return d, nil
}

var fermiV2Re = regexp.MustCompile(`At ([0-9:\.]*? UT on [0-9]{1,2} [a-zA-Z]*? [0-9]{4}).*?, ` +
	`the Fermi Gamma-Ray Burst Monitor \(GBM\) triggered and located (GRB [0-9]{6}[A-G])`)

func fermiV2(_ context.Context, text string) (types.Findings, error) {
	m := fermiV2Re.FindStringSubmatch(collapse(text))
	if m == nil {
		return nil, workflow.NoMatch("no GBM trigger sentence")
	}
	isot, err := reformat(m[1], "15:04:05 UT on 2 January 2006", isotMicroLayout)
	if err != nil {
		return nil, workflow.NoMatch("GBM trigger time %q: %v", m[1], err)
	}
	return types.Findings{"grb_isot": isot}, nil
}

var swiftDetectedRe = regexp.MustCompile(`At (.*?) UT, the Swift Burst Alert Telescope \(BAT\) triggered and located (GRB ?.*?) `)

func swiftDetected(_ context.Context, text string) (types.Findings, error) {
	m := swiftDetectedRe.FindStringSubmatch(newlineRe.ReplaceAllString(text, " "))
	if m == nil {
		return nil, workflow.NoMatch("no BAT trigger sentence")
	}

	// "GRB 201017A" gives the date "201017".
	name := strings.TrimSpace(m[2])
	if len(name) < 2 {
		return nil, workflow.NoMatch("GRB name %q", name)
	}
	date := strings.ReplaceAll(name[:len(name)-1], " ", "")
	isot, err := reformat(strings.TrimSpace(m[1])+" "+date, "15:04:05 GRB060102", isotLayout)
	if err != nil {
		return nil, workflow.NoMatch("BAT trigger time: %v", err)
	}
	return types.Findings{"grb_isot": isot}, nil
}

var (
	swiftSubjectRe = regexp.MustCompile(`SUBJECT: .*?Swift detection`)
	swiftTriggerRe = regexp.MustCompile(`trigger=([0-9]+)`)
)

func swiftTriggerID(_ context.Context, text string) (types.Findings, error) {
	flat := newlineRe.ReplaceAllString(text, " ")
	if !swiftSubjectRe.MatchString(flat) {
		return nil, workflow.NoMatch("not a Swift detection")
	}
	m := swiftTriggerRe.FindStringSubmatch(flat)
	if m == nil {
		return nil, workflow.NoMatch("no trigger number")
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, workflow.NoMatch("trigger %q: %v", m[1], err)
	}
	return types.Findings{"swift_trigger_id": id, "detected_by": "swift"}, nil
}

var gcnNamedRe = regexp.MustCompile(`(?i)SUBJECT: *(GRB.*?):.*`)

func gcnNamed(_ context.Context, text string) (types.Findings, error) {
	m := gcnNamedRe.FindStringSubmatch(text)
	if m == nil {
		return nil, workflow.NoMatch("no GRB in subject")
	}
	return types.Findings{"mentions_named_grb": strings.ReplaceAll(strings.TrimSpace(m[1]), " ", "")}, nil
}

var (
	lvcSubjectRe = regexp.MustCompile(`(?i)SUBJECT: *(LIGO/Virgo.*?):`)
	lvcUTCRe     = regexp.MustCompile(`(?i)at (\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d*?) UTC`)
)

func gcnLVCEvent(_ context.Context, text string) (types.Findings, error) {
	m := lvcSubjectRe.FindStringSubmatch(text)
	if m == nil {
		return nil, workflow.NoMatch("no LIGO/Virgo subject")
	}
	d := types.Findings{"lvc_event": strings.TrimSpace(m[1])}
	if u := lvcUTCRe.FindStringSubmatch(collapse(text)); u != nil {
		d["lvc_event_utc"] = strings.TrimSpace(u[1])
	}
	return d, nil
}

var (
	lvcIntegralRe = regexp.MustCompile(`(?i)SUBJECT: *(LIGO/Virgo.*?):.*INTEGRAL`)
	t0Re          = regexp.MustCompile(`(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:[\d\.]+?) UTC, hereafter T0`)
)

func gcnIntegralLVCCounterpartSearch(_ context.Context, text string) (types.Findings, error) {
	d := types.Findings{}
	if m := lvcIntegralRe.FindStringSubmatch(text); m != nil {
		d["original_event"] = strings.TrimSpace(m[1])
	}
	if m := t0Re.FindStringSubmatch(text); m != nil {
		d["original_event_utc"] = strings.TrimSpace(m[1])
	}
	return d, nil
}

var (
	counterpartRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)SUBJECT:(.*?):.*counterpart.*INTEGRAL`),
		regexp.MustCompile(`(?i)SUBJECT:(.*?):.*INTEGRAL.*counterpart.*`),
		regexp.MustCompile(`(?i)SUBJECT:(.*?):.*associated.*INTEGRAL.*`),
	}
	acsRe  = regexp.MustCompile(`(?i)SUBJECT:(.*?):.*ACS.*`)
	ibisRe = regexp.MustCompile(`(?i)SUBJECT:(.*?):.*IBIS.*`)
)

func gcnIntegralCounterpartSearch(_ context.Context, text string) (types.Findings, error) {
	var m []string
	for _, re := range counterpartRes {
		if m = re.FindStringSubmatch(text); m != nil {
			break
		}
	}
	t0 := t0Re.FindStringSubmatch(text)
	if m == nil || t0 == nil {
		return nil, workflow.NoMatch("not an INTEGRAL counterpart search")
	}

	var instruments []string
	if acsRe.MatchString(text) {
		instruments = append(instruments, "acs")
	}
	if ibisRe.MatchString(text) {
		instruments = append(instruments, "ibis")
	}
	return types.Findings{
		"original_event":     strings.TrimSpace(m[1]),
		"original_event_utc": strings.TrimSpace(t0[1]),
		"instrument":         instruments,
	}, nil
}

var lvcCircularRe = regexp.MustCompile(`(?i)SUBJECT:.*?(LIGO/Virgo .*?): Identification`)

func gcnLVCCircular(_ context.Context, text string) (types.Findings, error) {
	m := lvcCircularRe.FindStringSubmatch(text)
	if m == nil {
		return nil, workflow.NoMatch("not a LIGO/Virgo identification")
	}
	return types.Findings{"lvc_event_report": strings.TrimSpace(m[1])}, nil
}

var (
	oldULRes = []*regexp.Regexp{
		regexp.MustCompile(`upper limit .*? ([\d\.e\-]*?) erg/cm.*? for a 1 s duration`),
		regexp.MustCompile(`(?i)We find a limiting fluence of ([\d\.e\-]*?) erg/cm`),
		regexp.MustCompile(`([\d\.e\-]*?) erg/cm2 for 1 s`),
		regexp.MustCompile(`limiting peak flux is ~([\d\.e\-\^x]*?) erg/cm.*? at 1 s time scale`),
	}
	ulRe = regexp.MustCompile(`upper limit on the 75-2000 keV fluence of ([\d\.e\-\^x]*?) *?erg/cm`)
)

// parseFluence reads "4.6e-7" or "4.6x10^-7".
func parseFluence(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), "x10^", "e"), 64)
}

func integralULOldVariation(_ context.Context, text string) (types.Findings, error) {
	flat := collapse(text)
	for _, re := range oldULRes {
		m := re.FindStringSubmatch(flat)
		if m == nil {
			continue
		}
		v, err := parseFluence(m[1])
		if err != nil {
			return nil, workflow.NoMatch("upper limit %q: %v", m[1], err)
		}
		return types.Findings{"integral_ul": v}, nil
	}
	return nil, workflow.NoMatch("no upper limit")
}

func integralUL(_ context.Context, text string) (types.Findings, error) {
	m := ulRe.FindStringSubmatch(collapse(text))
	if m == nil {
		return nil, workflow.NoMatch("no 75-2000 keV upper limit")
	}
	v, err := parseFluence(m[1])
	if err != nil {
		return nil, workflow.NoMatch("upper limit %q: %v", m[1], err)
	}
	return types.Findings{"integral_ul": v}, nil
}

func clearlyDetectedAfterglow(_ context.Context, text string) (types.Findings, error) {
	flat := collapse(text)
	if strings.Contains(flat, "clearly detected") && strings.Contains(flat, "afterglow") {
		return types.Findings{"reports_characteristic": afterglowURI}, nil
	}
	return nil, nil
}

func afterglow(_ context.Context, text string) (types.Findings, error) {
	if strings.Contains(collapse(text), "afterglow") {
		return types.Findings{"reports_characteristic": afterglowURI}, nil
	}
	return nil, nil
}

var (
	grbIntegralRe = regexp.MustCompile(`(?i)SUBJECT:.*?(GRB.*?):.*INTEGRAL.*`)
	utTimeRe      = regexp.MustCompile(`(?i)(\d\d:\d\d:\d\d) +UT`)
)

// gcnGRBIntegralCircular reads INTEGRAL reports on a GRB. The burst date
// comes from the name (GRB 211123A is 2021-11-23) and the time of day from
// the first "hh:mm:ss UT" in the text.
func gcnGRBIntegralCircular(_ context.Context, text string) (types.Findings, error) {
	m := grbIntegralRe.FindStringSubmatch(text)
	t := utTimeRe.FindStringSubmatch(text)
	if m == nil || t == nil {
		return nil, workflow.NoMatch("not an INTEGRAL GRB report")
	}

	name := strings.ReplaceAll(strings.TrimSpace(m[1]), " ", "")
	date := strings.TrimPrefix(name, "GRB")
	if len(date) < 6 {
		return nil, workflow.NoMatch("GRB name %q has no date", name)
	}
	utc := fmt.Sprintf("20%s-%s-%s %s", date[:2], date[2:4], date[4:6], strings.TrimSpace(t[1]))
	return types.Findings{"integral_grb_report": name, "event_t0": utc}, nil
}

var lvcIntegralCounterpartRe = regexp.MustCompile(`(?i)SUBJECT:.*?(LIGO/Virgo .*?):.*INTEGRAL`)

func gcnLVCIntegralCounterpart(_ context.Context, text string) (types.Findings, error) {
	if !lvcIntegralCounterpartRe.MatchString(text) {
		return nil, workflow.NoMatch("not an INTEGRAL LIGO/Virgo follow-up")
	}
	return types.Findings{"lvc_counterpart_by": "INTEGRAL"}, nil
}

var (
	hawcSubjectRe = regexp.MustCompile(`(?i)SUBJECT:.*?\b(HAWC[\- ]?[0-9]+?[A-Z]?)\b`)
	hawcTimeRe    = regexp.MustCompile(`On (\d{2} \d{2}, \d{4}, at \d{2}:\d{2}:[\d\.]{2,}) UTC`)
	hawcRARe      = regexp.MustCompile(`RA.*?: ([\d\.\-\+]*?) `)
	hawcDecRe     = regexp.MustCompile(`Dec.*?: ([\d\.\-\+]*?) `)
)

func gcnHAWC(_ context.Context, text string) (types.Findings, error) {
	m := hawcSubjectRe.FindStringSubmatch(text)
	if m == nil {
		return nil, workflow.NoMatch("not a HAWC circular")
	}
	ev := strings.TrimSpace(m[1])
	d := types.Findings{"reports_hawc_event": ev, "reports_event": ev}

	if t := hawcTimeRe.FindStringSubmatch(text); t != nil {
		if isot, err := reformat(t[1], "01 02, 2006, at 15:04:05", isotMicroLayout); err == nil {
			d["grb_isot"] = isot
			d["event_isot"] = isot
		}
	}
	if r := hawcRARe.FindStringSubmatch(text); r != nil {
		if v, err := strconv.ParseFloat(r[1], 64); err == nil {
			d["hawc_ra"] = v
			d["event_ra"] = v
		}
	}
	if r := hawcDecRe.FindStringSubmatch(text); r != nil {
		if v, err := strconv.ParseFloat(r[1], 64); err == nil {
			d["hawc_dec"] = v
			d["event_dec"] = v
		}
	}
	return d, nil
}

var submitterRe = regexp.MustCompile(`(?s)FROM:(.*?)<(.*?)>\r?\n`)

func submitter(_ context.Context, text string) (types.Findings, error) {
	m := submitterRe.FindStringSubmatch(text)
	if m == nil {
		return nil, workflow.NoMatch("no FROM header")
	}
	return types.Findings{
		"gcn_from_name":  strings.TrimSpace(m[1]),
		"gcn_from_email": strings.TrimSpace(m[2]),
	}, nil
}

var authorsRe = regexp.MustCompile(`(?s)FROM:.*?\n\n(.*?)\n\n`)

func authors(_ context.Context, text string) (types.Findings, error) {
	m := authorsRe.FindStringSubmatch(strings.ReplaceAll(text, "\r", ""))
	if m == nil {
		return nil, workflow.NoMatch("no author block")
	}
	return types.Findings{"gcn_authors": strings.TrimSpace(strings.ReplaceAll(m[1], "\n", " "))}, nil
}
