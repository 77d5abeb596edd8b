package whisperx

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

const samplePayload = `{
  "language": "en",
  "segments": [
    {"start": 0.0, "end": 2.4, "text": " Hello and welcome."},
    {"start": 2.4, "end": 5.1, "text": "Today we cover the news."},
    {"start": 5.1, "end": 5.1, "text": "   "}
  ]
}`

func TestTranscribeParsesSegments(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "narration.wav")
	if err := os.WriteFile(source, []byte("wav"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	svc := NewService(Config{Binary: "whisperx-test", Model: "small"})
	var gotArgs []string
	svc.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		if name != "whisperx-test" {
			t.Fatalf("unexpected binary %q", name)
		}
		gotArgs = args
		return os.WriteFile(filepath.Join(dir, "narration.json"), []byte(samplePayload), 0o644)
	})

	transcript, err := svc.Transcribe(context.Background(), source, dir)
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if transcript.Language != "en" {
		t.Fatalf("unexpected language %q", transcript.Language)
	}
	if len(transcript.Segments) != 2 {
		t.Fatalf("expected blank segment dropped, got %d segments", len(transcript.Segments))
	}
	if transcript.Segments[0].Text != "Hello and welcome." || transcript.Segments[0].End != 2.4 {
		t.Fatalf("unexpected first segment %+v", transcript.Segments[0])
	}

	want := []string{source, "--model", "small", "--output_dir", dir, "--output_format", "json", "--device", "cpu", "--compute_type", "int8"}
	if !slices.Equal(gotArgs, want) {
		t.Fatalf("unexpected args %v", gotArgs)
	}
}

func TestTranscribeCUDAArgs(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "a.wav")
	svc := NewService(Config{CUDAEnabled: true})
	var gotArgs []string
	svc.WithCommandRunner(func(_ context.Context, _ string, args ...string) error {
		gotArgs = args
		return os.WriteFile(filepath.Join(dir, "a.json"), []byte(`{"segments":[]}`), 0o644)
	})
	if _, err := svc.Transcribe(context.Background(), source, dir); err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if !slices.Contains(gotArgs, "cuda") {
		t.Fatalf("expected cuda device flag, got %v", gotArgs)
	}
	if slices.Contains(gotArgs, "--compute_type") {
		t.Fatalf("compute type is a cpu-only flag, got %v", gotArgs)
	}
}

func TestTranscribeMissingOutput(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(Config{})
	svc.WithCommandRunner(func(context.Context, string, ...string) error {
		return nil
	})
	if _, err := svc.Transcribe(context.Background(), filepath.Join(dir, "a.wav"), dir); err == nil {
		t.Fatal("expected error when whisperx wrote no output")
	}
}

func TestLoadTranscriptRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadTranscript(path); err == nil {
		t.Fatal("expected parse error")
	}
}
