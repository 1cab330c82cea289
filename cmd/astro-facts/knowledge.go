// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/astro-facts/internal/knowledge"
)

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Manage the knowledge base (store, retrieve, export, runs)",
	Long: `Knowledge manages a local SQLite knowledge base of learned facts. Use
subcommands to load knowledge files, query facts, export them or list the
runs that wrote them.`,
}

// --- store subcommand ---

var knowledgeStoreCmd = &cobra.Command{
	Use:   "store [knowledge.n3...]",
	Short: "Load knowledge files written by learn into the knowledge base",
	Long: `Store reads N3 knowledge files (knowledge.n3 when none is given) and
saves their facts as one run per file. Facts of a subject already in the
knowledge base are replaced.`,
	RunE: runKnowledgeStore,
}

func runKnowledgeStore(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"knowledge.n3"}
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return errors.WithHint(errors.Wrapf(err, "opening %s", path), "run 'astro-facts learn' first")
		}
		_, err = store.IngestN3(cmd.Context(), f, os.Stdout)
		f.Close()
		if err != nil {
			return errors.Wrapf(err, "storing %s", path)
		}
	}
	return nil
}

// --- retrieve subcommand ---

var knowledgeRetrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Query the knowledge base with full-text search and filters",
	Long: `Retrieve searches fact objects with full-text search, filters by
subject and predicate, or both. A bare subject such as gcn31119 is taken
under the paper namespace.`,
	RunE: runKnowledgeRetrieve,
}

func runKnowledgeRetrieve(cmd *cobra.Command, args []string) error {
	opts := queryOptsFromFlags(cmd, args)
	if opts.IsEmpty() {
		return errors.WithHint(errors.New("query or filter required"),
			"provide a search query, --subject or --predicate")
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := store.Retrieve(cmd.Context(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatRetrieveOutput(results, jsonOutput)
}

func formatRetrieveOutput(results []knowledge.QueryResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-20s  %-32s  %s\n", "Rank", "Subject", "Predicate", "Object")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))

	for i, r := range results {
		subject := r.Subject[strings.LastIndex(r.Subject, "#")+1:]
		if len(subject) > 20 {
			subject = subject[:17] + "..."
		}
		object := r.Object.Lexical
		if len(object) > 40 {
			object = object[:37] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-20s  %-32s  %s\n", i+1, subject, r.Predicate, object)
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

// --- export subcommand ---

var knowledgeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the knowledge base to N3, YAML or JSON",
	Long: `Export writes the stored facts (or a filtered subset) grouped by
subject. N3 goes to stdout; YAML and JSON go to knowledge/index/export.yaml
or export.json. Supports the same filter flags as retrieve.`,
	RunE: runKnowledgeExport,
}

func runKnowledgeExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	opts := queryOptsFromFlags(cmd, args)

	var path string
	switch format {
	case "n3":
		return store.ExportN3(cmd.Context(), opts, os.Stdout)
	case "yaml", "":
		path, err = store.ExportYAML(cmd.Context(), opts)
	case "json":
		path, err = store.ExportJSON(cmd.Context(), opts)
	default:
		return errors.WithHint(errors.Newf("unsupported format %q", format), "use n3, yaml or json")
	}
	if err != nil {
		return err
	}
	fmt.Println("Exported to", path)
	return nil
}

// --- runs subcommand ---

var knowledgeRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List the runs that wrote to the knowledge base, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.Runs(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(runs)
		}

		fmt.Fprintf(os.Stdout, "%-36s  %-20s  %7s  %8s  %6s  %6s\n", "Run", "Started", "Inputs", "Retained", "Boring", "Failed")
		fmt.Fprintln(os.Stdout, strings.Repeat("-", 95))
		for _, r := range runs {
			fmt.Fprintf(os.Stdout, "%-36s  %-20s  %7d  %8d  %6d  %6d\n",
				r.ID, r.StartedAt.Local().Format(time.DateTime),
				r.Stats.Inputs, r.Stats.Retained, r.Stats.Boring, r.Stats.Failed)
		}
		return nil
	},
}

// --- shared helpers ---

func openStore() (*knowledge.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return knowledge.NewStore(cfg.KnowledgeBase)
}

func queryOptsFromFlags(cmd *cobra.Command, args []string) knowledge.QueryOptions {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}
	subject, _ := cmd.Flags().GetString("subject")
	predicate, _ := cmd.Flags().GetString("predicate")
	limit, _ := cmd.Flags().GetInt("limit")

	return knowledge.QueryOptions{
		Query:      queryText,
		Subject:    subject,
		Predicate:  predicate,
		MaxResults: limit,
	}
}

func init() {
	knowledgeCmd.PersistentFlags().Int("max-results", 20, "maximum number of query results")
	must(viper.BindPFlag("knowledge_base.max_results", knowledgeCmd.PersistentFlags().Lookup("max-results")))

	// Retrieve flags.
	knowledgeRetrieveCmd.Flags().String("query", "", "full-text search query")
	knowledgeRetrieveCmd.Flags().String("subject", "", "filter by subject, e.g. gcn31119")
	knowledgeRetrieveCmd.Flags().String("predicate", "", "filter by predicate, e.g. integral_ul")
	knowledgeRetrieveCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	knowledgeRetrieveCmd.Flags().Bool("json", false, "output results as JSON")

	// Export flags.
	knowledgeExportCmd.Flags().String("format", "yaml", "export format: n3, yaml or json")
	knowledgeExportCmd.Flags().String("query", "", "full-text search filter for partial export")
	knowledgeExportCmd.Flags().String("subject", "", "filter by subject for partial export")
	knowledgeExportCmd.Flags().String("predicate", "", "filter by predicate for partial export")

	// Runs flags.
	knowledgeRunsCmd.Flags().Int("limit", 10, "maximum runs to list (0 = all)")
	knowledgeRunsCmd.Flags().Bool("json", false, "output runs as JSON")

	knowledgeCmd.AddCommand(knowledgeStoreCmd)
	knowledgeCmd.AddCommand(knowledgeRetrieveCmd)
	knowledgeCmd.AddCommand(knowledgeExportCmd)
	knowledgeCmd.AddCommand(knowledgeRunsCmd)

	rootCmd.AddCommand(knowledgeCmd)
}
