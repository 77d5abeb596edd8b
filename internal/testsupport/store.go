package testsupport

import (
	"context"
	"testing"

	"github.com/michaelgiba/covered/internal/config"
	"github.com/michaelgiba/covered/internal/media"
	"github.com/michaelgiba/covered/internal/queue"
	"github.com/michaelgiba/covered/internal/store"
)

// MustOpenStore opens a topics store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// MustOpenQueue opens a work queue for tests and registers cleanup.
func MustOpenQueue(t testing.TB, cfg *config.Config) *queue.Queue {
	t.Helper()

	q, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		q.Close()
	})
	return q
}

// SeedInput writes a curated input for tests using the provided store.
func SeedInput(t testing.TB, st *store.Store, id, timestamp string) media.ProcessedInput {
	t.Helper()

	input := media.ProcessedInput{
		ID:            id,
		Timestamp:     timestamp,
		Title:         "Topic " + id,
		Content:       "Body for " + id,
		ExtractedLink: "https://example.test/" + id,
		Sender:        "sender@example.test",
	}
	if err := st.UpsertInput(context.Background(), input); err != nil {
		t.Fatalf("store.UpsertInput: %v", err)
	}
	return input
}
