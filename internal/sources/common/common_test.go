// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/astro-facts/pkg/types"
)

func TestMentionsKeyword(t *testing.T) {
	d := MentionsKeyword(
		"INTEGRAL observation of GRB 211123A",
		"SPI-ACS and IBIS saw the GRB. The GRB was bright. A blazar nearby.",
	)

	assert.Equal(t, "title", d["mentions_integral"])
	assert.Equal(t, "title", d["mentions_grb"])
	assert.Equal(t, 2, d["mentions_grb_times"])
	assert.Equal(t, "body", d["mentions_spi-acs"])
	assert.Equal(t, "body", d["mentions_blazar"])
	assert.NotContains(t, d, "mentions_integral_times")
	assert.NotContains(t, d, "mentions_hawc")
}

func TestMentionsKeyword_CaseSensitive(t *testing.T) {
	d := MentionsKeyword("", "an integral over the grb population")
	assert.Empty(t, d)
}

func TestMentionsGRBLike(t *testing.T) {
	tests := []struct {
		name  string
		title string
		body  string
		key   string
		want  []string
	}{
		{"grb with space", "GRB 211123A: INTEGRAL observation", "", "mentions_named_grb", []string{"GRB211123A"}},
		{"long frb", "", "We report FRB 20211122A detected by CHIME", "mentions_named_frb", []string{"FRB20211122A"}},
		{"pks", "", "flaring blazar PKS 0903-57", "mentions_named_pks", []string{"PKS0903-57"}},
		{"icecube", "IceCube-211116A", "", "mentions_named_icecube", []string{"IceCube-211116A"}},
		{"at", "", "transient AT 2021abc", "mentions_named_at", []string{"AT2021abc"}},
		{"ztf", "", "candidate ZTF21aaoryiz", "mentions_named_ztf", []string{"ZTF21aaoryiz"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := MentionsGRBLike(tt.title, tt.body)
			require.Contains(t, d, tt.key)
			assert.Equal(t, tt.want, d[tt.key])
			assert.Equal(t, tt.want, d["mentions_named_event"])
		})
	}
}

func TestMentionsGRBLike_TitleThenBody(t *testing.T) {
	d := MentionsGRBLike("GRB 211123A", "follow-up of GRB 211123A and FRB 20211122A")
	assert.Equal(t, []string{"GRB211123A", "GRB211123A", "FRB20211122A"}, d["mentions_named_event"])
	assert.Equal(t, []string{"GRB", "GRB", "FRB"}, d["mentions_named_event_type"])
}

func TestMentionsGRBLike_Nothing(t *testing.T) {
	assert.Empty(t, MentionsGRBLike("Optical photometry", "no names here"))
}

func TestCitesATelGCN(t *testing.T) {
	d := CitesATelGCN("Follow-up of ATel #15055", "see GCN Circ. 31119 and GCN 31120; also ATel 15058")

	assert.Equal(t, "15058", d["cites_atel_id"])
	assert.Equal(t, "31120", d["cites_gcn_id"])
	assert.Equal(t, []string{
		types.OntologyNS + "atel15055",
		types.OntologyNS + "atel15058",
		types.OntologyNS + "gcn31119",
		types.OntologyNS + "gcn31120",
	}, d["cites"])
}

func TestCitesATelGCN_ShortNumbersIgnored(t *testing.T) {
	assert.Empty(t, CitesATelGCN("", "GCN 12 and ATel #7"))
}

func TestPaperIDToURI(t *testing.T) {
	uri, err := PaperIDToURI("gcn", "031119")
	require.NoError(t, err)
	assert.Equal(t, types.OntologyNS+"gcn31119", uri)

	_, err = PaperIDToURI("atel", "abc")
	assert.Error(t, err)
}

func TestRelevantKeywords_Copy(t *testing.T) {
	k := RelevantKeywords()
	k[0] = "changed"
	assert.Equal(t, "HAWC", RelevantKeywords()[0])
}
