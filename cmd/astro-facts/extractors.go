// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var extractorsCmd = &cobra.Command{
	Use:   "extractors",
	Short: "List the registered producers, identity functions and extractors",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := newRegistry(cfg.Sources)
		if err != nil {
			return err
		}

		type row struct {
			Name  string `json:"name"`
			Kind  string `json:"kind"`
			Types string `json:"types"`
		}
		var rows []row
		for _, d := range reg.Descriptors() {
			ts := string(d.Produces)
			if !d.IsProducer() {
				parts := make([]string, len(d.Accepts))
				for i, t := range d.Accepts {
					parts[i] = string(t)
				}
				ts = strings.Join(parts, ",")
			}
			rows = append(rows, row{Name: d.PublicName(), Kind: d.Kind(), Types: ts})
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}

		fmt.Fprintf(os.Stdout, "%-45s  %-9s  %s\n", "Name", "Kind", "Types")
		fmt.Fprintln(os.Stdout, strings.Repeat("-", 72))
		for _, r := range rows {
			fmt.Fprintf(os.Stdout, "%-45s  %-9s  %s\n", r.Name, r.Kind, r.Types)
		}
		fmt.Fprintf(os.Stdout, "\n%d registered\n", len(rows))
		return nil
	},
}

func init() {
	extractorsCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(extractorsCmd)
}
