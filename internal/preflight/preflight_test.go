package preflight_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/michaelgiba/covered/internal/preflight"
	"github.com/michaelgiba/covered/internal/testsupport"
)

func TestCheckBinariesResolvesPath(t *testing.T) {
	results := preflight.CheckBinaries([]preflight.Requirement{
		{Name: "Shell", Command: "sh", Description: "test"},
		{Name: "Missing", Command: "covered-test-no-such-binary", Description: "test"},
		{Name: "Unset", Command: "", Description: "test"},
	})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].Passed {
		t.Fatalf("expected sh to resolve: %s", results[0].Detail)
	}
	if results[1].Passed {
		t.Fatal("expected missing binary to fail")
	}
	if !strings.Contains(results[1].Detail, "not found") {
		t.Fatalf("unexpected detail: %s", results[1].Detail)
	}
	if results[2].Passed || !strings.Contains(results[2].Detail, "not configured") {
		t.Fatalf("unexpected result for unset command: %+v", results[2])
	}
}

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	if res := preflight.CheckDirectoryAccess("Data directory", dir); !res.Passed {
		t.Fatalf("expected writable temp dir to pass: %s", res.Detail)
	}
	missing := filepath.Join(dir, "absent")
	if res := preflight.CheckDirectoryAccess("Data directory", missing); res.Passed {
		t.Fatal("expected missing dir to fail")
	}
}

func TestCheckLLMRequiresKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.LLM.APIKey = ""

	res := preflight.CheckLLM(context.Background(), cfg)
	if res.Passed {
		t.Fatal("expected missing key to fail")
	}
	if !strings.Contains(res.Detail, "API key missing") {
		t.Fatalf("unexpected detail: %s", res.Detail)
	}
}

func TestRunLocalCoversDirectoriesAndBinaries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	results := preflight.RunLocal(cfg)
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	for _, res := range results[:2] {
		if !res.Passed {
			t.Fatalf("expected directory check to pass: %+v", res)
		}
	}
}
