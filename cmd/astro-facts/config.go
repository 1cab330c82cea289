// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/astro-facts/internal/fetch"
	"github.com/pdiddy/astro-facts/internal/sources"
	"github.com/pdiddy/astro-facts/internal/workflow"
	"github.com/pdiddy/astro-facts/pkg/types"
)

// loadConfig merges config file, environment and flags into the typed
// pipeline config. The viper settings tree is round-tripped through YAML so
// the yaml tags of pkg/types are the single source of key names.
func loadConfig() (types.PipelineConfig, error) {
	var cfg types.PipelineConfig
	data, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return cfg, errors.Wrap(err, "encoding settings")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.WithHint(errors.Wrap(err, "decoding settings"),
			"check the types of the values in astro-facts.yaml")
	}
	return cfg, nil
}

// newClient returns the shared HTTP client, or nil when the network is
// not allowed.
func newClient(cfg types.SourcesConfig) *fetch.Client {
	if !cfg.AllowNet {
		return nil
	}
	return sources.NewClient(cfg, logger.With("component", "fetch"))
}

// newRegistry registers every source according to cfg.
func newRegistry(cfg types.SourcesConfig) (*workflow.Registry, error) {
	return sources.NewRegistry(cfg, newClient(cfg), logger)
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
