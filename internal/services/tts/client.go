package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 120 * time.Second
	defaultVoice       = "alloy"
	wavFormat          = "wav"

	// Error bodies can be large; keep diagnostics bounded.
	maxErrorBodyBytes = 4096
)

// Config captures speech synthesis connection settings.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Voice          string
	TimeoutSeconds int
}

// Client calls an OpenAI-compatible speech endpoint and writes WAV audio.
// Synthesis is a single attempt; a failed topic is retried whole by the
// worker, never stage by stage.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a speech synthesis client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			Voice:          strings.TrimSpace(cfg.Voice),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.Voice == "" {
		client.cfg.Voice = defaultVoice
	}
	return client
}

type speechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize narrates text and writes the WAV stream to dest. The write is
// atomic: a partial download never leaves a truncated file at dest.
func (c *Client) Synthesize(ctx context.Context, text, dest string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("tts synthesize: text required")
	}
	if dest == "" {
		return errors.New("tts synthesize: destination path required")
	}
	if c.cfg.APIKey == "" {
		return errors.New("tts synthesize: api key required")
	}
	if c.cfg.BaseURL == "" {
		return errors.New("tts synthesize: base url required")
	}

	encoded, err := json.Marshal(speechRequest{
		Model:          c.cfg.Model,
		Voice:          c.cfg.Voice,
		Input:          text,
		ResponseFormat: wavFormat,
	})
	if err != nil {
		return fmt.Errorf("tts synthesize: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("tts synthesize: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tts synthesize: http error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("tts synthesize: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("tts synthesize: ensure output dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tts-*.wav")
	if err != nil {
		return fmt.Errorf("tts synthesize: temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("tts synthesize: stream audio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("tts synthesize: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("tts synthesize: finalize audio: %w", err)
	}
	return nil
}
