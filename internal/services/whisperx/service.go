package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/michaelgiba/covered/internal/media"
)

const (
	// DefaultBinary is the whisperx executable resolved from PATH.
	DefaultBinary = "whisperx"
	// DefaultModel balances transcription quality against CPU runtime.
	DefaultModel = "small"

	outputFormat   = "json"
	cudaDevice     = "cuda"
	cpuDevice      = "cpu"
	cpuComputeType = "int8"
)

// Config captures transcription settings.
type Config struct {
	Binary      string
	Model       string
	CUDAEnabled bool
}

// Service transcribes synthesized narration audio. Timings come from the
// audio itself, so they line up with what listeners actually hear.
type Service struct {
	cfg           Config
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a transcription service with the given configuration.
func NewService(cfg Config) *Service {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	return s.cfg.Model
}

// Transcribe runs whisperx against a WAV file and returns segment-level
// timings parsed from its JSON output. outputDir holds the intermediate
// whisperx files and defaults to the source directory.
func (s *Service) Transcribe(ctx context.Context, source, outputDir string) (media.Transcript, error) {
	var transcript media.Transcript
	if source == "" {
		return transcript, fmt.Errorf("transcribe: source path required")
	}
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return transcript, fmt.Errorf("transcribe: ensure output dir: %w", err)
	}

	if err := s.run(ctx, s.buildArgs(source, outputDir)...); err != nil {
		return transcript, fmt.Errorf("whisperx: %w", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	jsonPath := filepath.Join(outputDir, baseName+".json")
	transcript, err := LoadTranscript(jsonPath)
	if err != nil {
		return transcript, fmt.Errorf("whisperx: load output: %w", err)
	}
	return transcript, nil
}

func (s *Service) buildArgs(source, outputDir string) []string {
	args := []string{
		source,
		"--model", s.cfg.Model,
		"--output_dir", outputDir,
		"--output_format", outputFormat,
	}
	if s.cfg.CUDAEnabled {
		args = append(args, "--device", cudaDevice)
	} else {
		args = append(args, "--device", cpuDevice, "--compute_type", cpuComputeType)
	}
	return args
}

func (s *Service) run(ctx context.Context, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, s.cfg.Binary, args...)
	}
	cmd := exec.CommandContext(ctx, s.cfg.Binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", s.cfg.Binary, err, strings.TrimSpace(string(output)))
	}
	return nil
}

type whisperXPayload struct {
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// LoadTranscript parses a whisperx JSON output file into a transcript.
func LoadTranscript(jsonPath string) (media.Transcript, error) {
	var transcript media.Transcript
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return transcript, err
	}
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return transcript, fmt.Errorf("parse whisperx json: %w", err)
	}
	transcript.Language = strings.TrimSpace(payload.Language)
	transcript.Segments = make([]media.TranscriptSegment, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		transcript.Segments = append(transcript.Segments, media.TranscriptSegment{
			Start: seg.Start,
			End:   seg.End,
			Text:  text,
		})
	}
	return transcript, nil
}
