// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pyci/pkg/orchestrator"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent pipeline runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		h, err := orchestrator.OpenHistory(cfg.History.Path)
		if err != nil {
			return err
		}
		defer h.Close()

		entries, err := h.Recent(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		printHistory(cmd.OutOrStdout(), entries)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of runs to show")
}

func printHistory(w io.Writer, entries []orchestrator.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tDURATION\tEXIT\tFAILED\tCOVERAGE\tVENV")
	for _, e := range entries {
		failed := string(e.FailedStage)
		if failed == "" {
			failed = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%.2f%%\t%v\n",
			e.ID[:min(8, len(e.ID))],
			e.StartedAt.Local().Format(time.DateTime),
			e.Duration.Round(time.Second),
			e.ExitCode, failed, e.CoveragePercent, e.Provisioned)
	}
	tw.Flush()
}
