package daemon

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/michaelgiba/covered/internal/api"
	"github.com/michaelgiba/covered/internal/config"
	"github.com/michaelgiba/covered/internal/ingest"
	"github.com/michaelgiba/covered/internal/pipeline"
	"github.com/michaelgiba/covered/internal/queue"
	"github.com/michaelgiba/covered/internal/services/browser"
	"github.com/michaelgiba/covered/internal/services/ffmpeg"
	"github.com/michaelgiba/covered/internal/services/llm"
	"github.com/michaelgiba/covered/internal/services/tts"
	"github.com/michaelgiba/covered/internal/services/whisperx"
	"github.com/michaelgiba/covered/internal/store"
	"github.com/michaelgiba/covered/internal/workflow"
)

// Build wires every component from configuration and returns a ready daemon.
func Build(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("prepare directories: %w", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open topics store: %w", err)
	}
	q, err := queue.Open(cfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("open work queue: %w", err)
	}

	llmClient := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	browserSvc := browser.NewService(browser.Config{
		Binary:             cfg.Browser.Binary,
		NavTimeoutSeconds:  cfg.Browser.NavTimeoutSeconds,
		ViewportWidth:      cfg.Browser.ViewportWidth,
		ViewportHeight:     cfg.Browser.ViewportHeight,
		UserAgent:          cfg.Browser.UserAgent,
		DisableScreenshots: cfg.Browser.DisableScreenshots,
	})
	speechClient := tts.NewClient(tts.Config{
		APIKey:         cfg.TTS.APIKey,
		BaseURL:        cfg.TTS.BaseURL,
		Model:          cfg.TTS.Model,
		Voice:          cfg.TTS.Voice,
		TimeoutSeconds: cfg.TTS.TimeoutSeconds,
	})
	transcriber := whisperx.NewService(whisperx.Config{
		Binary:      cfg.Transcription.Binary,
		Model:       cfg.Transcription.Model,
		CUDAEnabled: cfg.Transcription.CUDAEnabled,
	})
	transcoder := ffmpeg.NewTranscoder(cfg.Audio.FFmpegBinary)
	prober := ffmpeg.NewProber("")

	pipe := pipeline.New(cfg, pipeline.Collaborators{
		Browser:     browserSvc,
		Polisher:    llmClient,
		Speech:      speechClient,
		Transcriber: transcriber,
		Transcoder:  transcoder,
		Prober:      prober,
	}, logger)

	var ingestScheduler *ingest.Scheduler
	if cfg.Email.Host != "" {
		cursor := ingest.NewCursorTracker(cfg.StateDir())
		service := ingest.NewService(
			ingest.NewIMAPMailbox(cfg.Email),
			llmClient,
			st,
			q,
			cursor,
			logger,
		)
		interval := time.Duration(cfg.Workflow.IngestInterval) * time.Second
		ingestScheduler = ingest.NewScheduler(service, interval, logger)
	}

	comp := Components{
		Store:    st,
		Queue:    q,
		Workflow: workflow.NewManager(cfg, st, q, pipe, logger),
		Ingest:   ingestScheduler,
		API:      api.NewServer(cfg, st, q, logger),
	}
	return New(cfg, comp, logger)
}
