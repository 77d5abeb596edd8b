package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/michaelgiba/covered/internal/store"
	"github.com/michaelgiba/covered/internal/testsupport"
)

func writeTestConfig(t *testing.T) (configPath, dataDir string) {
	t.Helper()

	base := t.TempDir()
	dataDir = filepath.Join(base, "data")
	logDir := filepath.Join(base, "logs")
	configPath = filepath.Join(base, "config.toml")

	contents := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
api_bind = "127.0.0.1:0"
base_url = "http://base.test"
`, dataDir, logDir)
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath, dataDir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, out, "covered")
}

func TestConfigInitAndValidate(t *testing.T) {
	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")

	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}
	if _, err := runCLI(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	configPath, _ := writeTestConfig(t)
	out, err = runCLI(t, "--config", configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	out, err = runCLI(t, "--config", configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "base_url = 'http://base.test'")
}

func TestQueueCommands(t *testing.T) {
	configPath, dataDir := writeTestConfig(t)

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatalf("mkdir data dir: %v", err)
	}
	st, err := store.OpenPath(filepath.Join(dataDir, "topics.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	testsupport.SeedInput(t, st, "topic-1", "2026-09-01T10:00:00Z")
	st.Close()

	if _, err := runCLI(t, "--config", configPath, "queue", "push", "missing"); err == nil {
		t.Fatal("expected push of unknown topic to fail")
	}

	out, err := runCLI(t, "--config", configPath, "queue", "push", "topic-1")
	if err != nil {
		t.Fatalf("queue push: %v", err)
	}
	requireContains(t, out, "Queued topic-1")

	out, err = runCLI(t, "--config", configPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "topic-1")

	out, err = runCLI(t, "--config", configPath, "queue", "clear")
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, out, "Removed 1 entries")

	out, err = runCLI(t, "--config", configPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list after clear: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}

func TestTopicsCommand(t *testing.T) {
	configPath, dataDir := writeTestConfig(t)

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatalf("mkdir data dir: %v", err)
	}
	st, err := store.OpenPath(filepath.Join(dataDir, "topics.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	testsupport.SeedInput(t, st, "topic-a", "2026-09-01T10:00:00Z")
	st.Close()

	out, err := runCLI(t, "--config", configPath, "topics")
	if err != nil {
		t.Fatalf("topics: %v", err)
	}
	requireContains(t, out, "topic-a")
	requireContains(t, out, "pending")

	out, err = runCLI(t, "--config", configPath, "topics", "--pending")
	if err != nil {
		t.Fatalf("topics --pending: %v", err)
	}
	requireContains(t, out, "topic-a")
}

func TestStatusCommand(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	out, err := runCLI(t, "--config", configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "stopped")
	requireContains(t, out, "reconcile")
}
