package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultBinary is the ffmpeg executable resolved from PATH.
const DefaultBinary = "ffmpeg"

// Transcoder converts synthesized WAV narration into the m4a delivered to
// playback clients.
type Transcoder struct {
	binary        string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewTranscoder creates a transcoder using the given ffmpeg binary.
func NewTranscoder(binary string) *Transcoder {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Transcoder{binary: binary}
}

// WithCommandRunner sets a custom command runner (for testing).
func (t *Transcoder) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	t.commandRunner = runner
}

// TranscodeToM4A converts source WAV audio into an AAC m4a at dest.
// faststart moves the moov atom up front so playback can begin while the
// file is still downloading.
func (t *Transcoder) TranscodeToM4A(ctx context.Context, source, dest string) error {
	if source == "" {
		return fmt.Errorf("transcode: source path required")
	}
	if dest == "" {
		return fmt.Errorf("transcode: destination path required")
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("transcode: ensure output dir: %w", err)
	}
	args := []string{
		"-y",
		"-i", source,
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		dest,
	}
	if err := t.run(ctx, args...); err != nil {
		return fmt.Errorf("transcode: %w", err)
	}
	return nil
}

// HealthCheck verifies the ffmpeg binary is present and runnable.
func (t *Transcoder) HealthCheck(ctx context.Context) error {
	if err := t.run(ctx, "-version"); err != nil {
		return fmt.Errorf("ffmpeg health: %w", err)
	}
	return nil
}

func (t *Transcoder) run(ctx context.Context, args ...string) error {
	if t.commandRunner != nil {
		return t.commandRunner(ctx, t.binary, args...)
	}
	cmd := exec.CommandContext(ctx, t.binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", t.binary, err, strings.TrimSpace(string(output)))
	}
	return nil
}
