// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/astro-facts/pkg/types"
)

const subj = types.OntologyNS + "gcn31119"

func TestNormalize_ExpandsLists(t *testing.T) {
	facts := Normalize(subj, types.Findings{
		"integral_ul": []float64{4.6e-7, 1.2e-6},
		"gcn_number":  31119,
		"instruments": []any{"IBIS", nil, 3},
		"lvc_event":   nil,
		"detected":    true,
	})

	var got []string
	var uls []float64
	for _, f := range facts {
		if f.Predicate == "integral_ul" {
			assert.Equal(t, types.KindDouble, f.Object.Kind)
			v, err := strconv.ParseFloat(f.Object.Lexical, 64)
			require.NoError(t, err)
			uls = append(uls, v)
			continue
		}
		got = append(got, f.Predicate+"="+f.Object.N3())
	}
	assert.Equal(t, []string{
		"detected=true",
		"gcn_number=31119",
		"instruments=\"IBIS\"",
		"instruments=3",
	}, got)
	assert.Equal(t, []float64{4.6e-7, 1.2e-6}, uls)
	assert.Len(t, facts, 6)
}

func TestDoubleLiteral_RoundTrips(t *testing.T) {
	for _, v := range []float64{4.6e-7, 0.1, 1.0 / 3.0, 123456.789, -2.5e10, 0} {
		lit := DoubleLiteral(v)
		assert.Equal(t, types.KindDouble, lit.Kind)
		assert.Regexp(t, `^-?\d\.\d{19}e[+-]\d{2,3}$`, lit.Lexical, "20 significant digits")

		back, err := strconv.ParseFloat(lit.Lexical, 64)
		require.NoError(t, err)
		assert.Equal(t, v, back)
	}
}

func TestDoubleLiteral_NonFinite(t *testing.T) {
	assert.Equal(t, types.KindString, DoubleLiteral(math.NaN()).Kind)
	assert.Equal(t, "+Inf", DoubleLiteral(math.Inf(1)).Lexical)
}

func TestStringLiteral_Hygiene(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`plain`, `plain`},
		{`say "hi"`, `say hi`},
		{`$5\alpha$`, `5alpha`},
		{"line1\nline2\r\nline3\rend", "line1 line2 line3 end"},
	}
	for _, tt := range tests {
		lit := StringLiteral(tt.in)
		assert.Equal(t, tt.want, lit.Lexical)
		assert.Equal(t, `"`+tt.want+`"`, lit.N3())
	}
}

func TestNormalize_IntegersAndBoolsBare(t *testing.T) {
	facts := Normalize(subj, types.Findings{"n": int64(-42), "ok": false})
	require.Len(t, facts, 2)
	assert.Equal(t, "-42", facts[0].Object.N3())
	assert.Equal(t, "false", facts[1].Object.N3())
	assert.Equal(t, "<"+subj+"> <"+types.OntologyNS+"n> -42", facts[0].String())
}

type magnitude float64

type band string

func TestNormalize_ScalarKinds(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"int8", int8(-8), "-8"},
		{"int16", int16(1600), "1600"},
		{"uint8", uint8(200), "200"},
		{"uint16", uint16(65535), "65535"},
		{"uint", uint(7), "7"},
		{"uint64", uint64(31119), "31119"},
		{"uint64 beyond int64", uint64(math.MaxUint64), `"18446744073709551615"`},
		{"named float", magnitude(2.5), DoubleLiteral(2.5).N3()},
		{"named string", band("r"), `"r"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts := Normalize(subj, types.Findings{"v": tt.in})
			require.Len(t, facts, 1)
			assert.Equal(t, tt.want, facts[0].Object.N3())
		})
	}
}

func TestNormalize_SliceKinds(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []string
	}{
		{"float32", []float32{1.5, 2}, []string{DoubleLiteral(1.5).N3(), DoubleLiteral(2).N3()}},
		{"uint64", []uint64{1, 2}, []string{"1", "2"}},
		{"int16", []int16{-1, 3}, []string{"-1", "3"}},
		{"named", []band{"g", "r"}, []string{`"g"`, `"r"`}},
		{"array", [2]int{4, 5}, []string{"4", "5"}},
		{"pointers skip nil", []*int{nil}, []string{}},
		{"bytes stay text", []byte("IBIS"), []string{`"IBIS"`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts := Normalize(subj, types.Findings{"v": tt.in})
			got := make([]string, 0, len(facts))
			for _, f := range facts {
				got = append(got, f.Object.N3())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
