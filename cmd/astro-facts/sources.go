// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/pdiddy/astro-facts/internal/sources"
	"github.com/pdiddy/astro-facts/internal/sources/arxiv"
	"github.com/pdiddy/astro-facts/internal/sources/atel"
	"github.com/pdiddy/astro-facts/internal/sources/gcn"
)

// --- gcn ---

var gcnCmd = &cobra.Command{
	Use:   "gcn",
	Short: "Manage the local copy of GCN circulars",
}

var gcnFetchTarCmd = &cobra.Command{
	Use:   "fetch-tar",
	Short: "Download the circular archive and unpack it into --gcn-dir",
	Long: `Fetch-tar downloads all_gcn_circulars.tar.gz from the GCN archive and
writes each circular to <gcn-dir>/<number>.gcn3. Existing files are
overwritten.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client := sources.NewClient(cfg.Sources, logger.With("component", "fetch"))
		_, err = gcn.FetchArchive(cmd.Context(), client, cfg.Sources.GCNDir, os.Stdout)
		return err
	},
}

// --- arxiv ---

var arxivCmd = &cobra.Command{
	Use:   "arxiv",
	Short: "Manage the saved arXiv listings",
}

var arxivFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Save recent astro-ph listings as papers-*.json",
	Long: `Fetch queries the arXiv API for every astro-ph category matching
--category, once by last update and once by submission date, and writes
each feed to <papers-dir>/papers-recent-<category>-<sort>.json.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		category, _ := cmd.Flags().GetString("category")
		search, _ := cmd.Flags().GetString("search")
		maxResults, _ := cmd.Flags().GetInt("max-results")

		opts := arxiv.Options{
			Dir:    cfg.Sources.PapersDir,
			Client: sources.NewClient(cfg.Sources, logger.With("component", "fetch")),
			Logger: logger.With("source", arxiv.Name),
		}
		_, err = arxiv.Fetch(cmd.Context(), opts, arxiv.FetchOptions{
			Category:   category,
			Search:     search,
			MaxResults: maxResults,
		}, os.Stdout)
		return err
	},
}

// --- atel ---

var atelCmd = &cobra.Command{
	Use:   "atel",
	Short: "Manage the telegram index",
}

var atelIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the telegram index from cached e-mails",
	Long: `Index parses every <id>.txt telegram e-mail in --cache-dir and writes
the telegrams, by increasing id, to --atel-index. E-mails that do not parse
are reported and skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cacheDir, _ := cmd.Flags().GetString("cache-dir")
		if cacheDir == "" {
			cacheDir = cfg.Sources.ATelCacheDir
		}
		if cacheDir == "" {
			cacheDir = atel.DefaultCacheDir()
		}
		n, err := atel.BuildIndex(cacheDir, cfg.Sources.ATelIndex, logger.With("source", atel.Name))
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.WithHint(errors.Newf("no telegrams in %s", cacheDir),
				"save telegram e-mails there as <id>.txt")
		}
		return nil
	},
}

func init() {
	gcnCmd.AddCommand(gcnFetchTarCmd)

	arxivFetchCmd.Flags().String("category", "astro-ph.*", "regular expression over astro-ph categories")
	arxivFetchCmd.Flags().String("search", "", "extra arXiv query terms, e.g. 'abs:GRB'")
	arxivFetchCmd.Flags().Int("max-results", 10, "entries per category and sort order")
	arxivCmd.AddCommand(arxivFetchCmd)

	atelIndexCmd.Flags().String("cache-dir", "", "directory of cached telegram e-mails (default ~/.cache/atels)")
	atelCmd.AddCommand(atelIndexCmd)

	rootCmd.AddCommand(gcnCmd)
	rootCmd.AddCommand(arxivCmd)
	rootCmd.AddCommand(atelCmd)
}
