// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/pdiddy/astro-facts/internal/sources/arxiv"
	"github.com/pdiddy/astro-facts/internal/sources/atel"
	"github.com/pdiddy/astro-facts/internal/sources/gcn"
	"github.com/pdiddy/astro-facts/internal/workflow"
	"github.com/pdiddy/astro-facts/pkg/types"
)

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Run every extractor over a single input and print the facts",
	Long: `Parse dispatches one document and prints what the extractors found,
boring or not. It is the quickest way to check an extractor against a
circular or telegram.`,
}

var parseGCNCmd = &cobra.Command{
	Use:   "gcn <file|number>",
	Short: "Parse a GCN circular from a file or by number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		text, err := readCircular(cmd.Context(), args[0], cfg.Sources)
		if err != nil {
			return err
		}
		return parseOne(cmd, cfg.Sources, types.NewInputItem(text))
	},
}

var parseATelCmd = &cobra.Command{
	Use:   "atel <id>",
	Short: "Parse a telegram from the index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		e, err := atel.Lookup(cfg.Sources.ATelIndex, args[0])
		if err != nil {
			return err
		}
		return parseOne(cmd, cfg.Sources, types.NewInputItem(e))
	},
}

var parseArxivCmd = &cobra.Command{
	Use:   "arxiv <id>",
	Short: "Parse an arXiv entry from the saved listings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		entries, err := arxiv.ReadListings(cfg.Sources.PapersDir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if strings.HasSuffix(e.ID, "/"+args[0]) {
				return parseOne(cmd, cfg.Sources, types.NewInputItem(e))
			}
		}
		return errors.WithHint(errors.Newf("no entry %s in %s", args[0], cfg.Sources.PapersDir),
			"run 'astro-facts arxiv fetch' first or pass the id with its version, e.g. 2111.12345v1")
	},
}

func init() {
	parseCmd.PersistentFlags().String("output", string(types.OutputDict), "output mode: list, dict or n3")

	parseCmd.AddCommand(parseGCNCmd)
	parseCmd.AddCommand(parseATelCmd)
	parseCmd.AddCommand(parseArxivCmd)
	rootCmd.AddCommand(parseCmd)
}

// readCircular reads arg as a file if one exists, else as a circular
// number looked up in the local directory and, if allowed, the archive.
func readCircular(ctx context.Context, arg string, cfg types.SourcesConfig) (types.GCNText, error) {
	if raw, err := os.ReadFile(arg); err == nil {
		return gcn.Decode(raw), nil
	}
	id, err := strconv.Atoi(strings.TrimSuffix(arg, ".gcn3"))
	if err != nil {
		return "", errors.WithHint(errors.Newf("%q is neither a file nor a circular number", arg),
			"pass a path to a .gcn3 file or a number such as 31119")
	}
	return gcn.Source(ctx, id, gcn.Options{
		Dir:      cfg.GCNDir,
		AllowNet: cfg.AllowNet,
		Client:   newClient(cfg),
		Logger:   logger,
	})
}

func parseOne(cmd *cobra.Command, cfg types.SourcesConfig, item types.InputItem) error {
	reg, err := newRegistry(cfg)
	if err != nil {
		return err
	}
	res, err := (&workflow.Dispatcher{Registry: reg, Logger: logger}).Dispatch(cmd.Context(), item)
	if err != nil {
		return err
	}
	if res.Boring {
		fmt.Fprintf(os.Stderr, "%s is boring\n", res.Subject)
	}
	output, _ := cmd.Flags().GetString("output")
	return workflow.Render(os.Stdout, workflow.AggregateResult{res.Subject: res.Facts}, types.OutputMode(output))
}
