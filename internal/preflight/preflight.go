package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/michaelgiba/covered/internal/config"
	"github.com/michaelgiba/covered/internal/services/llm"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Requirement defines an external binary the enrichment pipeline shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
}

// RunLocal executes the checks that never touch the network: directory
// access and external binaries. The daemon runs these at startup.
func RunLocal(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	results = append(results, CheckBinaries(requirements(cfg))...)
	return results
}

// RunAll executes every preflight check, including live API probes.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := RunLocal(cfg)
	results = append(results, CheckLLM(ctx, cfg))
	results = append(results, checkTTSConfig(cfg))
	return results
}

func requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "Browser",
			Command:     cfg.Browser.Binary,
			Description: "Required for page snapshots and content extraction",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.Audio.FFmpegBinary,
			Description: "Required for audio transcoding",
		},
		{
			Name:        "WhisperX",
			Command:     cfg.Transcription.Binary,
			Description: "Required for transcript timing",
		},
	}
}

// CheckBinaries reports whether each required binary resolves on PATH.
func CheckBinaries(reqs []Requirement) []Result {
	results := make([]Result, 0, len(reqs))
	for _, req := range reqs {
		command := strings.TrimSpace(req.Command)
		if command == "" {
			results = append(results, Result{Name: req.Name, Detail: "command not configured"})
			continue
		}
		if _, err := exec.LookPath(command); err != nil {
			results = append(results, Result{
				Name:   req.Name,
				Detail: fmt.Sprintf("binary %q not found (%s)", command, req.Description),
			})
			continue
		}
		results = append(results, Result{Name: req.Name, Passed: true, Detail: command})
	}
	return results
}

// CheckDirectoryAccess verifies that the directory exists and is readable and
// writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckLLM verifies that the chat-completion API is reachable and the key is
// valid. Single attempt, 30-second timeout.
func CheckLLM(ctx context.Context, cfg *config.Config) Result {
	const name = "LLM API"

	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	}, llm.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeProbeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

func checkTTSConfig(cfg *config.Config) Result {
	const name = "TTS API"
	if strings.TrimSpace(cfg.TTS.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}

func summarizeProbeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (API unreachable)"
	}
	return err.Error()
}
