package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/michaelgiba/covered/internal/queue"
	"github.com/michaelgiba/covered/internal/store"
)

func newQueueCommand(cmdCtx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the work queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newQueueListCommand(cmdCtx))
	cmd.AddCommand(newQueuePushCommand(cmdCtx))
	cmd.AddCommand(newQueueClearCommand(cmdCtx))
	return cmd
}

func newQueueListCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queued topic ids in pop order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			q, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer q.Close()

			entries, err := q.Entries(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty.")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					strconv.FormatInt(entry.ID, 10),
					entry.TopicID,
					entry.CreatedAt.Format("2006-01-02 15:04:05"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Topic", "Queued At"}, rows, 0))
			return nil
		},
	}
}

func newQueuePushCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "push <topic-id>",
		Short: "Enqueue a topic for enrichment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			topicID := args[0]

			st, err := store.Open(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			input, err := st.GetInput(cmd.Context(), topicID)
			if err != nil {
				return err
			}
			if input == nil {
				return fmt.Errorf("unknown topic %s", topicID)
			}

			q, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer q.Close()

			if err := q.Push(cmd.Context(), topicID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued %s\n", topicID)
			return nil
		},
	}
}

func newQueueClearCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every entry from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			q, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer q.Close()

			removed, err := q.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries.\n", removed)
			return nil
		},
	}
}
