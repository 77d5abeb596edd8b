package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/michaelgiba/covered/internal/store"
)

func newTopicsCommand(cmdCtx *commandContext) *cobra.Command {
	var pendingOnly bool

	cmd := &cobra.Command{
		Use:   "topics",
		Short: "List curated topics and their enrichment state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			topics, err := st.AllTopics(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(topics))
			for _, topic := range topics {
				if pendingOnly && topic.HasPlayback() {
					continue
				}
				status := "pending"
				if topic.HasPlayback() {
					status = "processed"
				}
				rows = append(rows, []string{
					topic.ID,
					topic.Timestamp,
					truncate(topic.ProcessedInput.Title, 48),
					status,
				})
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No topics found.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Timestamp", "Title", "Status"}, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&pendingOnly, "pending", false, "Show only topics awaiting enrichment")
	return cmd
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
