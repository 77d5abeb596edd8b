package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// DefaultProbeBinary is the ffprobe executable resolved from PATH.
const DefaultProbeBinary = "ffprobe"

// Prober inspects produced audio with ffprobe.
type Prober struct {
	binary        string
	commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewProber creates a prober using the given ffprobe binary.
func NewProber(binary string) *Prober {
	if binary == "" {
		binary = DefaultProbeBinary
	}
	return &Prober{binary: binary}
}

// WithCommandRunner sets a custom command runner (for testing).
func (p *Prober) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	p.commandRunner = runner
}

type probeStream struct {
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

type probeFormat struct {
	Duration string `json:"duration"`
	Size     string `json:"size"`
	BitRate  string `json:"bit_rate"`
}

type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

// AudioDuration returns the duration in seconds of the audio file at path.
// A file without an audio stream or with a zero duration is an error; a
// truncated transcode should fail the topic rather than ship silently.
func (p *Prober) AudioDuration(ctx context.Context, path string) (float64, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return 0, fmt.Errorf("probe: path required")
	}

	args := []string{
		"-v", "error",
		"-hide_banner",
		"-show_format",
		"-show_streams",
		"-of", "json",
		"--", path,
	}
	output, err := p.run(ctx, args...)
	if err != nil {
		return 0, fmt.Errorf("probe: %w", err)
	}

	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return 0, fmt.Errorf("probe: parse output: %w", err)
	}

	hasAudio := false
	for _, stream := range result.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			hasAudio = true
			break
		}
	}
	if !hasAudio {
		return 0, fmt.Errorf("probe: no audio stream in %s", path)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(result.Format.Duration), 64)
	if err != nil || duration <= 0 {
		return 0, fmt.Errorf("probe: invalid duration %q for %s", result.Format.Duration, path)
	}
	return duration, nil
}

func (p *Prober) run(ctx context.Context, args ...string) ([]byte, error) {
	if p.commandRunner != nil {
		return p.commandRunner(ctx, p.binary, args...)
	}
	cmd := exec.CommandContext(ctx, p.binary, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", p.binary, err, strings.TrimSpace(string(output)))
	}
	return output, nil
}
