package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/michaelgiba/covered/internal/ingest"
	"github.com/michaelgiba/covered/internal/logging"
	"github.com/michaelgiba/covered/internal/queue"
	"github.com/michaelgiba/covered/internal/services/llm"
	"github.com/michaelgiba/covered/internal/store"
)

func newIngestCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Run a single mailbox ingestion pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Email.Host == "" {
				return fmt.Errorf("no mailbox configured: set [email] host in the config file")
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			st, err := store.Open(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			q, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer q.Close()

			extractor := llm.NewClient(llm.Config{
				APIKey:         cfg.LLM.APIKey,
				BaseURL:        cfg.LLM.BaseURL,
				Model:          cfg.LLM.Model,
				TimeoutSeconds: cfg.LLM.TimeoutSeconds,
			})
			service := ingest.NewService(
				ingest.NewIMAPMailbox(cfg.Email),
				extractor,
				st,
				q,
				ingest.NewCursorTracker(cfg.StateDir()),
				logger,
			)

			stats, err := service.Run(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Fetched:  %d\n", stats.Fetched)
			fmt.Fprintf(out, "Accepted: %d\n", stats.Accepted)
			fmt.Fprintf(out, "Skipped:  %d\n", stats.Skipped)
			fmt.Fprintf(out, "Errors:   %d\n", stats.Errors)
			return nil
		},
	}
}
