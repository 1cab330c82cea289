// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the astro-facts CLI. It learns facts
// from arXiv listings, GCN circulars and ATel telegrams, and keeps them in a
// local knowledge base.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/astro-facts/internal/logging"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is built from the log config before any subcommand runs.
var logger = zap.NewNop().Sugar()

// rootCmd is the base command for the astro-facts CLI.
var rootCmd = &cobra.Command{
	Use:   "astro-facts",
	Short: "Learn facts about astrophysical transients from the literature",
	Long: `astro-facts reads arXiv abstracts, GCN circulars and ATel telegrams,
runs every registered extractor over them and writes what it finds as
triples under the http://odahub.io/ontology/paper# namespace.

The source subcommands (gcn, arxiv, atel) fetch or index documents; learn
turns them into knowledge; knowledge stores, queries and exports it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "loading .env")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		debug, _ := cmd.Flags().GetBool("debug")
		l, err := logging.New(cfg.Log, debug)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./astro-facts.yaml or ~/.config/astro-facts/config.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "log at debug level")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("log-json", false, "log as JSON")

	// Source and knowledge locations are shared by most subcommands.
	rootCmd.PersistentFlags().String("gcn-dir", "gcn3", "directory of <number>.gcn3 circulars")
	rootCmd.PersistentFlags().String("papers-dir", ".", "directory of papers-*.json arXiv listings")
	rootCmd.PersistentFlags().String("atel-index", "atels.json", "telegram index written by 'atel index'")
	rootCmd.PersistentFlags().Bool("allow-net", false, "let sources fetch missing or linked documents")
	rootCmd.PersistentFlags().String("knowledge-dir", "knowledge", "base directory for the knowledge base (contains index/)")

	pf := rootCmd.PersistentFlags()
	must(viper.BindPFlag("log.level", pf.Lookup("log-level")))
	must(viper.BindPFlag("log.json", pf.Lookup("log-json")))
	must(viper.BindPFlag("sources.gcn_dir", pf.Lookup("gcn-dir")))
	must(viper.BindPFlag("sources.papers_dir", pf.Lookup("papers-dir")))
	must(viper.BindPFlag("sources.atel_index", pf.Lookup("atel-index")))
	must(viper.BindPFlag("sources.allow_net", pf.Lookup("allow-net")))
	must(viper.BindPFlag("knowledge_base.knowledge_dir", pf.Lookup("knowledge-dir")))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("astro-facts")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "astro-facts"))
		}
	}

	viper.SetEnvPrefix("ASTRO_FACTS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintln(os.Stderr, "hint:", hint)
		}
		os.Exit(1)
	}
}
