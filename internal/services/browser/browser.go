package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultBinary is the headless browser executable resolved from PATH.
	DefaultBinary = "chromium"

	// SnapshotFilename is the full-page capture written into the output directory.
	SnapshotFilename = "snapshot.png"
	// ThumbnailFilename is the viewport-sized capture written alongside it.
	ThumbnailFilename = "thumbnail.png"

	defaultNavTimeout     = 60 * time.Second
	defaultViewportWidth  = 1280
	defaultViewportHeight = 720
	defaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

	// Tall window used to approximate a full-page capture.
	fullPageWindowHeight = 4320
)

// Config captures the headless browser settings.
type Config struct {
	Binary             string
	NavTimeoutSeconds  int
	ViewportWidth      int
	ViewportHeight     int
	UserAgent          string
	DisableScreenshots bool
}

// Capture is the result of rendering a page: the two screenshot paths and the
// readable text extracted from the rendered document.
type Capture struct {
	SnapshotPath  string
	ThumbnailPath string
	Text          string
}

// Service renders pages with a headless browser binary and extracts their
// readable content.
type Service struct {
	cfg           Config
	commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewService creates a browser service with the given configuration.
func NewService(cfg Config) *Service {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = defaultViewportWidth
	}
	if cfg.ViewportHeight <= 0 {
		cfg.ViewportHeight = defaultViewportHeight
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	s.commandRunner = runner
}

// CapturePage navigates to the URL, writes snapshot.png and thumbnail.png
// into outputDir, and returns the extracted readable text. When screenshots
// are disabled only the text extraction runs and the returned paths are empty.
func (s *Service) CapturePage(ctx context.Context, pageURL, outputDir string) (Capture, error) {
	var capture Capture
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return capture, fmt.Errorf("browser capture: url required")
	}
	if outputDir == "" {
		return capture, fmt.Errorf("browser capture: output dir required")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return capture, fmt.Errorf("browser capture: ensure output dir: %w", err)
	}

	html, err := s.run(ctx, s.domArgs(pageURL)...)
	if err != nil {
		return capture, fmt.Errorf("browser capture: render page: %w", err)
	}
	text, err := ExtractReadableText(string(html))
	if err != nil {
		return capture, fmt.Errorf("browser capture: extract content: %w", err)
	}
	capture.Text = text

	if s.cfg.DisableScreenshots {
		return capture, nil
	}

	snapshotPath := filepath.Join(outputDir, SnapshotFilename)
	if _, err := s.run(ctx, s.screenshotArgs(pageURL, snapshotPath, s.cfg.ViewportWidth, fullPageWindowHeight)...); err != nil {
		return capture, fmt.Errorf("browser capture: full page screenshot: %w", err)
	}
	capture.SnapshotPath = snapshotPath

	thumbnailPath := filepath.Join(outputDir, ThumbnailFilename)
	if _, err := s.run(ctx, s.screenshotArgs(pageURL, thumbnailPath, s.cfg.ViewportWidth, s.cfg.ViewportHeight)...); err != nil {
		return capture, fmt.Errorf("browser capture: thumbnail screenshot: %w", err)
	}
	capture.ThumbnailPath = thumbnailPath

	return capture, nil
}

// HealthCheck verifies the browser binary is present and runnable.
func (s *Service) HealthCheck(ctx context.Context) error {
	if _, err := s.run(ctx, "--version"); err != nil {
		return fmt.Errorf("browser health: %w", err)
	}
	return nil
}

func (s *Service) domArgs(pageURL string) []string {
	return append(s.baseArgs(s.cfg.ViewportWidth, s.cfg.ViewportHeight), "--dump-dom", pageURL)
}

func (s *Service) screenshotArgs(pageURL, dest string, width, height int) []string {
	return append(s.baseArgs(width, height), "--screenshot="+dest, pageURL)
}

func (s *Service) baseArgs(width, height int) []string {
	args := []string{
		"--headless=new",
		"--disable-gpu",
		"--no-sandbox",
		"--hide-scrollbars",
		"--mute-audio",
		fmt.Sprintf("--window-size=%d,%d", width, height),
		"--user-agent=" + s.cfg.UserAgent,
	}
	if timeout := s.navTimeout(); timeout > 0 {
		args = append(args, fmt.Sprintf("--timeout=%d", timeout.Milliseconds()))
	}
	return args
}

func (s *Service) navTimeout() time.Duration {
	if s.cfg.NavTimeoutSeconds > 0 {
		return time.Duration(s.cfg.NavTimeoutSeconds) * time.Second
	}
	return defaultNavTimeout
}

func (s *Service) run(ctx context.Context, args ...string) ([]byte, error) {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, s.cfg.Binary, args...)
	}
	cmd := exec.CommandContext(ctx, s.cfg.Binary, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", s.cfg.Binary, err, strings.TrimSpace(stderr.String()))
	}
	return output, nil
}
