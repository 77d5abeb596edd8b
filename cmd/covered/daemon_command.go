package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/michaelgiba/covered/internal/daemon"
	"github.com/michaelgiba/covered/internal/logging"
)

func newDaemonCommand(cmdCtx *commandContext) *cobra.Command {
	var maxRunSeconds int

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the ingestion, enrichment, and API daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("max-run-duration") {
				cfg.Workflow.MaxRunDurationSecond = maxRunSeconds
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			d, err := daemon.Build(cfg, logger)
			if err != nil {
				return err
			}
			defer d.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return d.Run(ctx)
		},
	}

	cmd.Flags().IntVar(&maxRunSeconds, "max-run-duration", 0, "Stop after this many seconds (0 runs until signalled)")
	return cmd
}
