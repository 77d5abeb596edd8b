package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/michaelgiba/covered/internal/config"
	"github.com/michaelgiba/covered/internal/fileutil"
	"github.com/michaelgiba/covered/internal/logging"
	"github.com/michaelgiba/covered/internal/media"
	"github.com/michaelgiba/covered/internal/services"
	"github.com/michaelgiba/covered/internal/services/browser"
)

// Stage names surfaced in errors and logs.
const (
	StageSnapshot = "snapshot"
	StageScript   = "script"
	StageNarrate  = "narrate"
	StageAssemble = "assemble"
)

// Artifact filenames inside a playback directory.
const (
	ScriptFilename    = "script.json"
	AudioFilename     = "audio.m4a"
	narrationFilename = "narration.wav"
)

// PageCapturer renders the topic's link into screenshots and readable text.
type PageCapturer interface {
	CapturePage(ctx context.Context, pageURL, outputDir string) (browser.Capture, error)
}

// ScriptPolisher turns raw extracted text into a narration-ready script.
type ScriptPolisher interface {
	PolishScript(ctx context.Context, draft string) (string, error)
}

// SpeechSynthesizer narrates a script into WAV audio at dest.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, dest string) error
}

// Transcriber produces segment timings from synthesized audio.
type Transcriber interface {
	Transcribe(ctx context.Context, source, outputDir string) (media.Transcript, error)
}

// AudioTranscoder converts WAV narration into the delivered m4a.
type AudioTranscoder interface {
	TranscodeToM4A(ctx context.Context, source, dest string) error
}

// AudioProber reports the duration of a produced audio file.
type AudioProber interface {
	AudioDuration(ctx context.Context, path string) (float64, error)
}

// Collaborators bundles the external services a pipeline drives. Prober is
// optional; when nil the transcode output is not verified.
type Collaborators struct {
	Browser     PageCapturer
	Polisher    ScriptPolisher
	Speech      SpeechSynthesizer
	Transcriber Transcriber
	Transcoder  AudioTranscoder
	Prober      AudioProber
}

// Pipeline converts one topic into playback content through four ordered
// stages. A stage failure aborts the whole attempt; the worker retries the
// topic from the top, so no partial progress is checkpointed here.
type Pipeline struct {
	mediaDir     string
	baseURL      string
	stageTimeout time.Duration
	collab       Collaborators
	logger       *slog.Logger
}

// New constructs a pipeline from configuration and collaborators.
func New(cfg *config.Config, collab Collaborators, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		mediaDir:     cfg.MediaDir(),
		baseURL:      strings.TrimRight(strings.TrimSpace(cfg.Paths.BaseURL), "/"),
		stageTimeout: time.Duration(cfg.Workflow.StageTimeoutSeconds) * time.Second,
		collab:       collab,
		logger:       logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Process runs all stages for a topic and returns the finished playback
// record. The caller persists it; Process only writes artifact files.
func (p *Pipeline) Process(ctx context.Context, topic media.Topic) (media.PlaybackContent, error) {
	var playback media.PlaybackContent
	ctx = services.WithTopicID(ctx, topic.ID)

	link := strings.TrimSpace(topic.ProcessedInput.ExtractedLink)
	if link == "" {
		return playback, p.failure(ctx, topic.ID, services.Wrap(
			services.ErrValidation, StageSnapshot, "prepare", "topic has no extracted link", nil))
	}

	playbackID := uuid.NewString()
	playbackDir := filepath.Join(p.mediaDir, playbackID)
	if err := os.MkdirAll(playbackDir, 0o755); err != nil {
		return playback, p.failure(ctx, topic.ID, services.Wrap(
			services.ErrConfiguration, StageSnapshot, "prepare", "create playback dir", err))
	}

	started := time.Now()
	logging.WithContext(ctx, p.logger).Info("processing topic",
		logging.String("title", topic.ProcessedInput.Title),
		logging.String("playback_id", playbackID),
	)

	var capture browser.Capture
	err := p.runStage(ctx, StageSnapshot, func(stageCtx context.Context) error {
		var stageErr error
		capture, stageErr = p.collab.Browser.CapturePage(stageCtx, link, playbackDir)
		if stageErr != nil {
			return stageErr
		}
		if strings.TrimSpace(capture.Text) == "" {
			return fmt.Errorf("page yielded no readable text")
		}
		return nil
	})
	if err != nil {
		p.cleanup(playbackDir)
		return playback, p.failure(ctx, topic.ID, err)
	}

	var script string
	err = p.runStage(ctx, StageScript, func(stageCtx context.Context) error {
		var stageErr error
		script, stageErr = p.collab.Polisher.PolishScript(stageCtx, capture.Text)
		return stageErr
	})
	if err != nil {
		p.cleanup(playbackDir)
		return playback, p.failure(ctx, topic.ID, err)
	}

	narrationPath := filepath.Join(playbackDir, narrationFilename)
	audioPath := filepath.Join(playbackDir, AudioFilename)
	var transcript media.Transcript
	err = p.runStage(ctx, StageNarrate, func(stageCtx context.Context) error {
		if stageErr := p.collab.Speech.Synthesize(stageCtx, script, narrationPath); stageErr != nil {
			return stageErr
		}
		var stageErr error
		// Transcribe the WAV, not the script, so timings match the audio.
		transcript, stageErr = p.collab.Transcriber.Transcribe(stageCtx, narrationPath, playbackDir)
		if stageErr != nil {
			return stageErr
		}
		return p.collab.Transcoder.TranscodeToM4A(stageCtx, narrationPath, audioPath)
	})
	if err != nil {
		p.cleanup(playbackDir)
		return playback, p.failure(ctx, topic.ID, err)
	}

	err = p.runStage(ctx, StageAssemble, func(stageCtx context.Context) error {
		if p.collab.Prober != nil {
			duration, stageErr := p.collab.Prober.AudioDuration(stageCtx, audioPath)
			if stageErr != nil {
				return stageErr
			}
			logging.WithContext(stageCtx, p.logger).Debug("audio verified",
				logging.String("audio", audioPath),
				logging.Any("duration_seconds", duration),
			)
		}
		document := media.ScriptDocument{Text: script, Transcript: transcript}
		if stageErr := writeScriptDocument(filepath.Join(playbackDir, ScriptFilename), document); stageErr != nil {
			return stageErr
		}
		// Drop the intermediates so only delivered artifacts remain under
		// the publicly served playback dir. The transcriber leaves its raw
		// segment JSON next to the WAV.
		os.Remove(narrationPath)
		os.Remove(strings.TrimSuffix(narrationPath, ".wav") + ".json")
		playback = media.PlaybackContent{
			ID:               playbackID,
			ProcessedInputID: topic.ID,
			PageSnapshotURL:  p.artifactURL(playbackID, capture.SnapshotPath),
			ThumbnailURL:     p.artifactURL(playbackID, capture.ThumbnailPath),
			ScriptJSONURL:    p.artifactURL(playbackID, ScriptFilename),
			AudioFileURL:     p.artifactURL(playbackID, AudioFilename),
		}
		return nil
	})
	if err != nil {
		p.cleanup(playbackDir)
		return media.PlaybackContent{}, p.failure(ctx, topic.ID, err)
	}

	logging.WithContext(ctx, p.logger).Info("topic processed",
		logging.String("playback_id", playbackID),
		logging.Duration("duration", time.Since(started)),
	)
	return playback, nil
}

// runStage offloads the stage body to its own goroutine so the timeout holds
// even when a collaborator blocks without honoring context.
func (p *Pipeline) runStage(ctx context.Context, stage string, fn func(context.Context) error) error {
	stageCtx := services.WithStage(ctx, stage)
	cancel := func() {}
	if p.stageTimeout > 0 {
		stageCtx, cancel = context.WithTimeout(stageCtx, p.stageTimeout)
	}
	defer cancel()

	logging.WithContext(stageCtx, p.logger).Debug("stage started")

	done := make(chan error, 1)
	go func() {
		done <- fn(stageCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			return services.Wrap(services.ErrExternalTool, stage, "execute", "", err)
		}
		return nil
	case <-stageCtx.Done():
		return services.Wrap(services.ErrTimeout, stage, "execute", "stage deadline exceeded", stageCtx.Err())
	}
}

func (p *Pipeline) failure(ctx context.Context, topicID string, err error) error {
	logging.WithContext(ctx, p.logger).Error("pipeline failed",
		logging.String(logging.FieldErrorKind, services.Kind(err)),
		logging.Error(err),
	)
	return fmt.Errorf("pipeline failed for topic %s: %w", topicID, err)
}

func (p *Pipeline) cleanup(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		p.logger.Warn("failed to remove partial playback dir",
			logging.String("dir", dir),
			logging.Error(err),
		)
	}
}

// artifactURL maps an artifact inside a playback directory onto the public
// address it is served from.
func (p *Pipeline) artifactURL(playbackID, pathOrName string) string {
	if strings.TrimSpace(pathOrName) == "" {
		return ""
	}
	return p.baseURL + "/data/media/" + playbackID + "/" + filepath.Base(pathOrName)
}

func writeScriptDocument(path string, document media.ScriptDocument) error {
	encoded, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("encode script document: %w", err)
	}
	if err := fileutil.WriteAtomic(path, encoded, 0o644); err != nil {
		return fmt.Errorf("write script document: %w", err)
	}
	return nil
}
