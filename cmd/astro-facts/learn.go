// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/astro-facts/internal/knowledge"
	"github.com/pdiddy/astro-facts/internal/workflow"
	"github.com/pdiddy/astro-facts/pkg/types"
)

var learnCmd = &cobra.Command{
	Use:   "learn",
	Short: "Extract facts from every discovered input",
	Long: `Learn discovers inputs of the selected kinds (all of them when no kind
flag is given), runs every applicable extractor over each input on a pool of
workers, drops boring inputs and writes the remaining facts.

Output is a list of triples, a dict grouped by subject, or an N3 graph.
With --store the facts are also saved in the knowledge base, replacing what
it held for the same subjects.`,
	RunE: runLearn,
}

func init() {
	learnCmd.Flags().Bool("arxiv", false, "learn from arXiv listings")
	learnCmd.Flags().Bool("gcn", false, "learn from GCN circulars")
	learnCmd.Flags().Bool("atel", false, "learn from ATel telegrams")
	learnCmd.Flags().Int("workers", 1, "concurrent dispatch workers")
	learnCmd.Flags().Int("max-inputs", 0, "maximum inputs to learn from (0 = all)")
	learnCmd.Flags().Duration("item-timeout", 0, "time limit per input (0 = none)")
	learnCmd.Flags().String("boring-policy", string(types.BoringMentions), "how boring inputs are found: mentions or count")
	learnCmd.Flags().Int("boring-min-facts", 5, "minimum facts kept by the count policy")
	learnCmd.Flags().String("output", string(types.OutputN3), "output mode: list, dict or n3")
	learnCmd.Flags().String("out", "knowledge.n3", "output file ('-' for stdout)")
	learnCmd.Flags().Bool("store", false, "also save the facts in the knowledge base")

	f := learnCmd.Flags()
	must(viper.BindPFlag("learn.workers", f.Lookup("workers")))
	must(viper.BindPFlag("learn.max_inputs", f.Lookup("max-inputs")))
	must(viper.BindPFlag("learn.item_timeout", f.Lookup("item-timeout")))
	must(viper.BindPFlag("learn.boring_policy", f.Lookup("boring-policy")))
	must(viper.BindPFlag("learn.boring_min_facts", f.Lookup("boring-min-facts")))
	must(viper.BindPFlag("learn.output", f.Lookup("output")))
	must(viper.BindPFlag("learn.out_file", f.Lookup("out")))

	rootCmd.AddCommand(learnCmd)
}

// selectedInputTypes maps the kind flags to input types.
func selectedInputTypes(cmd *cobra.Command) []types.InputType {
	var out []types.InputType
	for _, k := range []struct {
		flag string
		t    types.InputType
	}{
		{"arxiv", types.InputPaperEntry},
		{"gcn", types.InputGCNText},
		{"atel", types.InputATelEntry},
	} {
		if on, _ := cmd.Flags().GetBool(k.flag); on {
			out = append(out, k.t)
		}
	}
	if len(out) == 0 {
		out = []types.InputType{types.InputPaperEntry, types.InputGCNText, types.InputATelEntry}
	}
	return out
}

func runLearn(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	policy, err := workflow.PolicyFromConfig(cfg.Learn)
	if err != nil {
		return err
	}
	reg, err := newRegistry(cfg.Sources)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	inputTypes := selectedInputTypes(cmd)
	run := knowledge.NewRun(inputTypes, cfg.Learn.Workers)
	log := logger.With("run", run.ID)

	coord := workflow.NewCoordinator(reg, policy, cfg.Learn.Workers, cfg.Learn.ItemTimeout)
	coord.Logger = log
	coord.Dispatcher.Logger = log

	result, err := coord.Run(ctx, inputTypes, cfg.Learn.MaxInputs)
	if err != nil {
		return errors.Wrap(err, "learn interrupted")
	}

	if err := writeKnowledge(result.Facts, cfg.Learn); err != nil {
		return err
	}

	if store, _ := cmd.Flags().GetBool("store"); store {
		s, err := knowledge.NewStore(cfg.KnowledgeBase)
		if err != nil {
			return err
		}
		defer s.Close()
		summary, err := s.SaveRun(ctx, run, result)
		if err != nil {
			return errors.Wrap(err, "saving run")
		}
		fmt.Fprintf(os.Stderr, "stored %d facts about %d subjects in %s\n", summary.Facts, summary.Subjects, s.Path())
	}

	st := result.Stats
	fmt.Fprintf(os.Stderr, "%d inputs: %d retained, %d boring, %d failed, %d facts (%s)\n",
		st.Inputs, st.Retained, st.Boring, st.Failed, st.Facts, st.Elapsed.Round(time.Millisecond))
	for _, f := range result.Failures {
		fmt.Fprintf(os.Stderr, "  failed #%d %s %s: %v\n", f.Index, f.Type, f.Subject, f.Err)
	}
	return nil
}

// writeKnowledge renders facts to cfg.OutFile, or stdout for "-".
func writeKnowledge(facts workflow.AggregateResult, cfg types.LearnConfig) error {
	out := cfg.OutFile
	if out == "" {
		out = "knowledge.n3"
	}

	var w io.Writer = os.Stdout
	if out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return errors.Wrapf(err, "creating %s", out)
		}
		defer f.Close()
		w = f
	}
	if err := workflow.Render(w, facts, cfg.Output); err != nil {
		return errors.Wrap(err, "writing knowledge")
	}
	if out != "-" {
		fmt.Fprintf(os.Stderr, "wrote %s\n", out)
	}
	return nil
}
