package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
	// BaseURL is the externally reachable address artifact URLs are built
	// from, e.g. "http://192.168.1.23:8000".
	BaseURL string `toml:"base_url"`
}

// Email contains IMAP mailbox settings for ingestion.
type Email struct {
	Host       string `toml:"host"`
	Address    string `toml:"address"`
	Password   string `toml:"password"`
	Mailbox    string `toml:"mailbox"`
	FetchLimit int    `toml:"fetch_limit"`
}

// LLM contains chat-completion connection settings shared by curation and
// script polishing.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TTS contains speech synthesis settings.
type TTS struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Voice          string `toml:"voice"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Browser contains page snapshot settings.
type Browser struct {
	Binary             string `toml:"binary"`
	NavTimeoutSeconds  int    `toml:"nav_timeout_seconds"`
	ViewportWidth      int    `toml:"viewport_width"`
	ViewportHeight     int    `toml:"viewport_height"`
	UserAgent          string `toml:"user_agent"`
	DisableScreenshots bool   `toml:"disable_screenshots"`
}

// Transcription contains WhisperX invocation settings.
type Transcription struct {
	Binary      string `toml:"binary"`
	Model       string `toml:"model"`
	CUDAEnabled bool   `toml:"cuda_enabled"`
}

// Audio contains transcode settings.
type Audio struct {
	FFmpegBinary string `toml:"ffmpeg_binary"`
}

// WorkMode selects how the worker acquires its next topic.
type WorkMode string

const (
	// ModeQueue pops topic ids from the durable queue. An item lost between
	// pop and completion is gone; the queue is consume-and-forget.
	ModeQueue WorkMode = "queue"
	// ModeReconcile re-derives pending work from durable state each cycle
	// and survives worker crashes.
	ModeReconcile WorkMode = "reconcile"
)

// Workflow contains worker and ingestion loop timing.
type Workflow struct {
	Mode                 string `toml:"mode"`
	QueuePollInterval    int    `toml:"queue_poll_interval"`
	ErrorRetryInterval   int    `toml:"error_retry_interval"`
	StageTimeoutSeconds  int    `toml:"stage_timeout_seconds"`
	IngestInterval       int    `toml:"ingest_interval"`
	MaxRunDurationSecond int    `toml:"max_run_duration_seconds"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for covered.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories, API bind address, public base URL
//   - Email: IMAP mailbox ingestion source
//   - LLM: chat-completion settings for curation and script polishing
//   - TTS: speech synthesis settings
//   - Browser: page snapshot and extraction settings
//   - Transcription: WhisperX settings
//   - Audio: ffmpeg transcode settings
//   - Workflow: worker mode and polling intervals
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Email         Email         `toml:"email"`
	LLM           LLM           `toml:"llm"`
	TTS           TTS           `toml:"tts"`
	Browser       Browser       `toml:"browser"`
	Transcription Transcription `toml:"transcription"`
	Audio         Audio         `toml:"audio"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/covered/config.toml")
}

// Load locates, parses, normalizes, and validates a configuration file.
// When the file does not exist the defaults are returned with exists=false.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to path. Unless
// overwrite is set an existing file is left untouched.
func WriteSample(path string, overwrite bool) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil && !overwrite {
		return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// MediaDir returns the directory playback artifact directories live under.
func (c *Config) MediaDir() string {
	return filepath.Join(c.Paths.DataDir, "media")
}

// StateDir returns the directory holding the ingestion cursor.
func (c *Config) StateDir() string {
	return filepath.Join(c.Paths.DataDir, "state")
}

// EnsureDirectories creates the directories covered writes to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.MediaDir(), c.StateDir(), c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Mode returns the configured work acquisition mode.
func (c *Config) Mode() WorkMode {
	if strings.EqualFold(strings.TrimSpace(c.Workflow.Mode), string(ModeQueue)) {
		return ModeQueue
	}
	return ModeReconcile
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	c.Paths.BaseURL = strings.TrimRight(strings.TrimSpace(c.Paths.BaseURL), "/")
	if key := os.Getenv("COVERED_LLM_API_KEY"); key != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = key
	}
	if key := os.Getenv("COVERED_TTS_API_KEY"); key != "" && c.TTS.APIKey == "" {
		c.TTS.APIKey = key
	}
	return nil
}
