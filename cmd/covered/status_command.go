package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/michaelgiba/covered/internal/preflight"
	"github.com/michaelgiba/covered/internal/queue"
	"github.com/michaelgiba/covered/internal/store"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

func statusLine(label string, kind statusKind, message string, colorize bool) string {
	line := fmt.Sprintf("  %-14s %s", label+":", message)
	if !colorize {
		return line
	}
	switch kind {
	case statusOK:
		return ansiGreen + line + ansiReset
	case statusWarn:
		return ansiYellow + line + ansiReset
	default:
		return ansiBlue + line + ansiReset
	}
}

func newStatusCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show store, queue, and daemon state",
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
			stats, err := st.Stats(cmd.Context())
			if err != nil {
				return err
			}

			q, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer q.Close()
			queued, err := q.Len(cmd.Context())
			if err != nil {
				return err
			}

			lock := flock.New(filepath.Join(cfg.Paths.LogDir, "covered.lock"))
			daemonRunning := false
			if locked, err := lock.TryLock(); err == nil {
				if locked {
					lock.Unlock()
				} else {
					daemonRunning = true
				}
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(os.Stdout)

			daemonKind, daemonMsg := statusWarn, "stopped"
			if daemonRunning {
				daemonKind, daemonMsg = statusOK, "running"
			}
			pendingKind := statusOK
			if stats.Pending > 0 {
				pendingKind = statusWarn
			}

			fmt.Fprintln(out, statusLine("Daemon", daemonKind, daemonMsg, colorize))
			fmt.Fprintln(out, statusLine("Mode", statusInfo, string(cfg.Mode()), colorize))
			fmt.Fprintln(out, statusLine("Topics", statusInfo, fmt.Sprintf("%d curated", stats.Inputs), colorize))
			fmt.Fprintln(out, statusLine("Processed", statusOK, fmt.Sprintf("%d playback bundles", stats.Playback), colorize))
			fmt.Fprintln(out, statusLine("Pending", pendingKind, fmt.Sprintf("%d awaiting enrichment", stats.Pending), colorize))
			fmt.Fprintln(out, statusLine("Queued", statusInfo, fmt.Sprintf("%d entries", queued), colorize))
			fmt.Fprintln(out, statusLine("Data dir", statusInfo, cfg.Paths.DataDir, colorize))

			fmt.Fprintln(out)
			fmt.Fprintln(out, "Checks:")
			for _, check := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusWarn
				if check.Passed {
					kind = statusOK
				}
				fmt.Fprintln(out, statusLine(check.Name, kind, check.Detail, colorize))
			}
			return nil
		},
	}
}
