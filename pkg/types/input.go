// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the astro-facts pipeline:
// the input variants extractors accept, the facts they produce, and the
// configuration of each stage.
package types

import "time"

// InputType tags the kind of document an extractor accepts or a producer
// yields.
type InputType string

const (
	InputPaperEntry InputType = "PaperEntry"
	InputGCNText    InputType = "GCNText"
	InputATelEntry  InputType = "ATelEntry"
)

// Input is one document handed to extractors. Each variant reports its own
// tag so dispatch is a typed lookup rather than a reflection over values.
type Input interface {
	InputType() InputType
}

// InputItem pairs an Input with its tag for one dispatch.
type InputItem struct {
	Type  InputType
	Value Input
}

// NewInputItem wraps v, taking the tag from the value itself.
func NewInputItem(v Input) InputItem {
	return InputItem{Type: v.InputType(), Value: v}
}

// PaperEntry is an arXiv Atom feed entry.
type PaperEntry struct {
	// ID is the abstract URL, e.g. "http://arxiv.org/abs/2111.12345v1".
	ID string `json:"id" yaml:"id"`

	Title string `json:"title" yaml:"title"`

	// Summary is the abstract text.
	Summary string `json:"summary" yaml:"summary"`

	// Updated is the RFC 3339 timestamp of the latest version.
	Updated string `json:"updated" yaml:"updated"`

	Published string   `json:"published,omitempty" yaml:"published,omitempty"`
	Authors   []string `json:"authors,omitempty" yaml:"authors,omitempty"`
}

// InputType implements Input.
func (PaperEntry) InputType() InputType { return InputPaperEntry }

// GCNText is the raw text of a GCN circular, headers included.
type GCNText string

// InputType implements Input.
func (GCNText) InputType() InputType { return InputGCNText }

// ATelEntry is one Astronomer's Telegram.
type ATelEntry struct {
	ATelID         string `json:"atelid" yaml:"atelid"`
	URL            string `json:"url" yaml:"url"`
	Title          string `json:"title" yaml:"title"`
	Authors        string `json:"authors" yaml:"authors"`
	SubmitterEmail string `json:"submitter_email,omitempty" yaml:"submitter_email,omitempty"`

	// Date keeps the telegram's own format, e.g. "22 Nov 2021; 13:05 UT".
	Date string `json:"date" yaml:"date"`
	Tags string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Body string `json:"body" yaml:"body"`
}

// InputType implements Input.
func (ATelEntry) InputType() InputType { return InputATelEntry }

// Findings is what a single extractor reports for one input. Values are
// scalars (string, int, int64, float64, bool) or slices of scalars. An empty
// map means the extractor found nothing.
type Findings map[string]any

// RunStats summarizes one pipeline run.
type RunStats struct {
	Inputs   int           `json:"inputs" yaml:"inputs"`
	Retained int           `json:"retained" yaml:"retained"`
	Boring   int           `json:"boring" yaml:"boring"`
	Failed   int           `json:"failed" yaml:"failed"`
	Facts    int           `json:"facts" yaml:"facts"`
	Elapsed  time.Duration `json:"elapsed" yaml:"elapsed"`
}
