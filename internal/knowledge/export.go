// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/astro-facts/internal/workflow"
	"github.com/pdiddy/astro-facts/pkg/types"
)

const exportLimit = 1000000

// ExportN3 writes the stored facts matching opts to w as Turtle.
func (s *Store) ExportN3(ctx context.Context, opts QueryOptions, w io.Writer) error {
	result, err := s.exportFacts(ctx, opts)
	if err != nil {
		return err
	}
	return workflow.Render(w, result, types.OutputN3)
}

// ExportYAML writes the stored facts matching opts, grouped by subject, to
// knowledge/index/export.yaml and returns the path.
func (s *Store) ExportYAML(ctx context.Context, opts QueryOptions) (string, error) {
	result, err := s.exportFacts(ctx, opts)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(workflow.Dict(result))
	if err != nil {
		return "", errors.Wrap(err, "marshaling YAML")
	}
	return s.writeExport("export.yaml", data)
}

// ExportJSON writes the stored facts matching opts, grouped by subject, to
// knowledge/index/export.json and returns the path.
func (s *Store) ExportJSON(ctx context.Context, opts QueryOptions) (string, error) {
	result, err := s.exportFacts(ctx, opts)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(workflow.Dict(result), "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshaling JSON")
	}
	return s.writeExport("export.json", data)
}

func (s *Store) writeExport(name string, data []byte) (string, error) {
	path := filepath.Join(s.knowledgeDir, indexDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "writing %s", path)
	}
	return path, nil
}

func (s *Store) exportFacts(ctx context.Context, opts QueryOptions) (workflow.AggregateResult, error) {
	opts.MaxResults = exportLimit
	results, err := s.Retrieve(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "querying for export")
	}
	out := workflow.AggregateResult{}
	for _, r := range results {
		out[r.Subject] = append(out[r.Subject], r.Fact)
	}
	return out, nil
}
