// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sources registers every document source with a workflow
// registry.
package sources

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/pdiddy/astro-facts/internal/fetch"
	"github.com/pdiddy/astro-facts/internal/sources/arxiv"
	"github.com/pdiddy/astro-facts/internal/sources/atel"
	"github.com/pdiddy/astro-facts/internal/sources/gcn"
	"github.com/pdiddy/astro-facts/internal/workflow"
	"github.com/pdiddy/astro-facts/pkg/types"
)

// NewClient builds the HTTP client the sources share.
func NewClient(cfg types.SourcesConfig, logger *zap.SugaredLogger) *fetch.Client {
	return fetch.New(cfg.HTTPConfig, logger)
}

// RegisterAll adds the arXiv, GCN and ATel descriptors to r. client may be
// nil, in which case nothing reaches the network.
func RegisterAll(r *workflow.Registry, cfg types.SourcesConfig, client *fetch.Client, logger *zap.SugaredLogger) error {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if err := arxiv.Register(r, arxiv.Options{
		Dir:    cfg.PapersDir,
		Client: client,
		Logger: logger.With("source", arxiv.Name),
	}); err != nil {
		return errors.Wrap(err, "registering arxiv")
	}
	if err := gcn.Register(r, gcn.Options{
		Dir:      cfg.GCNDir,
		AllowNet: cfg.AllowNet,
		Client:   client,
		Logger:   logger.With("source", gcn.Name),
	}); err != nil {
		return errors.Wrap(err, "registering gcn")
	}
	if err := atel.Register(r, atel.Options{
		Index:  cfg.ATelIndex,
		Logger: logger.With("source", atel.Name),
	}); err != nil {
		return errors.Wrap(err, "registering atel")
	}
	return nil
}

// NewRegistry returns a registry holding every source.
func NewRegistry(cfg types.SourcesConfig, client *fetch.Client, logger *zap.SugaredLogger) (*workflow.Registry, error) {
	r := workflow.NewRegistry(logger)
	if err := RegisterAll(r, cfg, client, logger); err != nil {
		return nil, err
	}
	return r, nil
}
