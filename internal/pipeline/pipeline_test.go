package pipeline_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/michaelgiba/covered/internal/logging"
	"github.com/michaelgiba/covered/internal/media"
	"github.com/michaelgiba/covered/internal/pipeline"
	"github.com/michaelgiba/covered/internal/services"
	"github.com/michaelgiba/covered/internal/services/browser"
	"github.com/michaelgiba/covered/internal/testsupport"
)

type stubBrowser struct {
	text string
	err  error
}

func (s *stubBrowser) CapturePage(_ context.Context, _, outputDir string) (browser.Capture, error) {
	if s.err != nil {
		return browser.Capture{}, s.err
	}
	snapshot := filepath.Join(outputDir, browser.SnapshotFilename)
	thumbnail := filepath.Join(outputDir, browser.ThumbnailFilename)
	for _, path := range []string{snapshot, thumbnail} {
		if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
			return browser.Capture{}, err
		}
	}
	return browser.Capture{SnapshotPath: snapshot, ThumbnailPath: thumbnail, Text: s.text}, nil
}

type stubPolisher struct {
	script string
	err    error
	block  bool
}

func (s *stubPolisher) PolishScript(ctx context.Context, _ string) (string, error) {
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.script, s.err
}

type stubSpeech struct{ err error }

func (s *stubSpeech) Synthesize(_ context.Context, _, dest string) error {
	if s.err != nil {
		return s.err
	}
	return os.WriteFile(dest, []byte("wav"), 0o644)
}

type stubTranscriber struct {
	transcript media.Transcript
	err        error
}

func (s *stubTranscriber) Transcribe(_ context.Context, source, outputDir string) (media.Transcript, error) {
	if s.err != nil {
		return media.Transcript{}, s.err
	}
	if _, err := os.Stat(source); err != nil {
		return media.Transcript{}, err
	}
	// Mirror the real tool, which leaves its raw segment JSON in outputDir.
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if err := os.WriteFile(filepath.Join(outputDir, base+".json"), []byte(`{"segments":[]}`), 0o644); err != nil {
		return media.Transcript{}, err
	}
	return s.transcript, nil
}

type stubTranscoder struct{ err error }

func (s *stubTranscoder) TranscodeToM4A(_ context.Context, _, dest string) error {
	if s.err != nil {
		return s.err
	}
	return os.WriteFile(dest, []byte("m4a"), 0o644)
}

type stubProber struct {
	duration float64
	err      error
	probed   []string
}

func (s *stubProber) AudioDuration(_ context.Context, path string) (float64, error) {
	s.probed = append(s.probed, path)
	if s.err != nil {
		return 0, s.err
	}
	return s.duration, nil
}

func workingCollaborators() pipeline.Collaborators {
	return pipeline.Collaborators{
		Browser:  &stubBrowser{text: "Extracted article text."},
		Polisher: &stubPolisher{script: "Polished narration."},
		Speech:   &stubSpeech{},
		Transcriber: &stubTranscriber{transcript: media.Transcript{
			Language: "en",
			Segments: []media.TranscriptSegment{{Start: 0, End: 2, Text: "Polished narration."}},
		}},
		Transcoder: &stubTranscoder{},
	}
}

func topicWithLink(id string) media.Topic {
	return media.Topic{
		ID:        id,
		Timestamp: "2024-01-01T00:00:00Z",
		ProcessedInput: media.ProcessedInput{
			ID:            id,
			Timestamp:     "2024-01-01T00:00:00Z",
			Title:         "A Story",
			Content:       "body",
			ExtractedLink: "https://example.test/story",
			Sender:        "s@x.test",
		},
	}
}

func TestProcessProducesPlayback(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p := pipeline.New(cfg, workingCollaborators(), logging.NewNop())

	playback, err := p.Process(context.Background(), topicWithLink("t1"))
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if playback.ProcessedInputID != "t1" || playback.ID == "" {
		t.Fatalf("unexpected playback record %+v", playback)
	}

	prefix := "http://base.test/data/media/" + playback.ID + "/"
	if playback.PageSnapshotURL != prefix+"snapshot.png" {
		t.Fatalf("unexpected snapshot url %q", playback.PageSnapshotURL)
	}
	if playback.ThumbnailURL != prefix+"thumbnail.png" {
		t.Fatalf("unexpected thumbnail url %q", playback.ThumbnailURL)
	}
	if playback.ScriptJSONURL != prefix+"script.json" {
		t.Fatalf("unexpected script url %q", playback.ScriptJSONURL)
	}
	if playback.AudioFileURL != prefix+"audio.m4a" {
		t.Fatalf("unexpected audio url %q", playback.AudioFileURL)
	}

	playbackDir := filepath.Join(cfg.MediaDir(), playback.ID)
	raw, err := os.ReadFile(filepath.Join(playbackDir, pipeline.ScriptFilename))
	if err != nil {
		t.Fatalf("read script document: %v", err)
	}
	var document media.ScriptDocument
	if err := json.Unmarshal(raw, &document); err != nil {
		t.Fatalf("decode script document: %v", err)
	}
	if document.Text != "Polished narration." || len(document.Transcript.Segments) != 1 {
		t.Fatalf("unexpected script document %+v", document)
	}

	if _, err := os.Stat(filepath.Join(playbackDir, "narration.wav")); !os.IsNotExist(err) {
		t.Fatalf("expected intermediate wav removed, stat err=%v", err)
	}
	if _, err := os.Stat(filepath.Join(playbackDir, "narration.json")); !os.IsNotExist(err) {
		t.Fatalf("expected intermediate transcript json removed, stat err=%v", err)
	}
	if _, err := os.Stat(filepath.Join(playbackDir, pipeline.AudioFilename)); err != nil {
		t.Fatalf("expected audio artifact: %v", err)
	}
}

func TestProcessRejectsTopicWithoutLink(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p := pipeline.New(cfg, workingCollaborators(), logging.NewNop())

	topic := topicWithLink("t1")
	topic.ProcessedInput.ExtractedLink = "  "
	_, err := p.Process(context.Background(), topic)
	if err == nil {
		t.Fatal("expected error for missing link")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation kind, got %v", err)
	}
	if !strings.Contains(err.Error(), "pipeline failed for topic t1") {
		t.Fatalf("expected topic id in error, got %v", err)
	}
}

func TestProcessStageFailureNamesStageAndCleansUp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	collab := workingCollaborators()
	collab.Polisher = &stubPolisher{err: errors.New("model refused")}
	p := pipeline.New(cfg, collab, logging.NewNop())

	_, err := p.Process(context.Background(), topicWithLink("t2"))
	if err == nil {
		t.Fatal("expected stage failure")
	}
	if !strings.Contains(err.Error(), pipeline.StageScript) || !strings.Contains(err.Error(), "model refused") {
		t.Fatalf("expected stage name and cause in error, got %v", err)
	}

	entries, readErr := os.ReadDir(cfg.MediaDir())
	if readErr != nil && !os.IsNotExist(readErr) {
		t.Fatalf("read media dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("expected partial playback dir removed, found %v", entries)
	}
}

func TestProcessLogsCarryTopicAndStage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	collab := workingCollaborators()
	collab.Polisher = &stubPolisher{err: errors.New("model refused")}

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	p := pipeline.New(cfg, collab, logger)

	if _, err := p.Process(context.Background(), topicWithLink("t7")); err == nil {
		t.Fatal("expected stage failure")
	}

	out := logs.String()
	if !strings.Contains(out, `"topic_id":"t7"`) {
		t.Fatalf("expected topic id on log records, got: %s", out)
	}
	if !strings.Contains(out, `"stage":"script"`) {
		t.Fatalf("expected stage on log records, got: %s", out)
	}
	if !strings.Contains(out, "pipeline failed") {
		t.Fatalf("expected failure record, got: %s", out)
	}
}

func TestProcessEnforcesStageTimeout(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.StageTimeoutSeconds = 1
	collab := workingCollaborators()
	collab.Polisher = &stubPolisher{block: true}
	p := pipeline.New(cfg, collab, logging.NewNop())

	_, err := p.Process(context.Background(), topicWithLink("t3"))
	if err == nil {
		t.Fatal("expected timeout failure")
	}
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout kind, got %v", err)
	}
	if !strings.Contains(err.Error(), pipeline.StageScript) {
		t.Fatalf("expected failing stage name, got %v", err)
	}
}

func TestProcessVerifiesAudioWhenProberSet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	collab := workingCollaborators()
	prober := &stubProber{duration: 42.5}
	collab.Prober = prober
	p := pipeline.New(cfg, collab, logging.NewNop())

	playback, err := p.Process(context.Background(), topicWithLink("t5"))
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	want := filepath.Join(cfg.MediaDir(), playback.ID, pipeline.AudioFilename)
	if len(prober.probed) != 1 || prober.probed[0] != want {
		t.Fatalf("expected probe of %s, got %v", want, prober.probed)
	}
}

func TestProcessFailsWhenAudioProbeRejects(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	collab := workingCollaborators()
	collab.Prober = &stubProber{err: errors.New("no audio stream")}
	p := pipeline.New(cfg, collab, logging.NewNop())

	_, err := p.Process(context.Background(), topicWithLink("t6"))
	if err == nil {
		t.Fatal("expected probe failure to abort the topic")
	}
	if !strings.Contains(err.Error(), pipeline.StageAssemble) {
		t.Fatalf("expected assemble stage in error, got %v", err)
	}
}

func TestProcessRejectsEmptyExtraction(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	collab := workingCollaborators()
	collab.Browser = &stubBrowser{text: "   "}
	p := pipeline.New(cfg, collab, logging.NewNop())

	_, err := p.Process(context.Background(), topicWithLink("t4"))
	if err == nil {
		t.Fatal("expected failure for empty extraction")
	}
	if !strings.Contains(err.Error(), pipeline.StageSnapshot) {
		t.Fatalf("expected snapshot stage in error, got %v", err)
	}
}
