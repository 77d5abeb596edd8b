package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode"
)

func completionOf(t *testing.T, content string) []byte {
	t.Helper()
	payload := map[string]any{
		"choices": []any{
			map[string]any{
				"message": map[string]any{
					"content": content,
				},
			},
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("encode response: %v", err)
	}
	return encoded
}

func TestClientExtractTopic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Fatalf("unexpected authorization header %q", got)
		}
		var body chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.ResponseFormat["type"] != jsonResponseType {
			t.Fatalf("expected json response format, got %v", body.ResponseFormat)
		}
		_, _ = w.Write(completionOf(t, `{"title":"Big News","content":"cleaned","extracted_link":"https://a.test"}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	title, content, link, err := client.ExtractTopic(context.Background(), "subj", "body", "sender@x.test")
	if err != nil {
		t.Fatalf("ExtractTopic returned error: %v", err)
	}
	if title != "Big News" || content != "cleaned" || link != "https://a.test" {
		t.Fatalf("unexpected extraction: %q %q %q", title, content, link)
	}
}

func TestClientPolishScriptCodeFence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(completionOf(t, "```json\n{\"script\":\"Polished text.\"}\n```"))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	script, err := client.PolishScript(context.Background(), "raw draft")
	if err != nil {
		t.Fatalf("PolishScript returned error: %v", err)
	}
	if script != "Polished text." {
		t.Fatalf("unexpected script %q", script)
	}
}

// substantiveTokens lowercases text and keeps the words long enough to carry
// meaning, so two renderings of the same material can be compared.
func substantiveTokens(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(word) > 3 {
			tokens[word] = true
		}
	}
	return tokens
}

func TestClientPolishScriptPreservesContent(t *testing.T) {
	draft := "The Verdana space agency confirmed on Tuesday that its Calypso probe " +
		"entered orbit around Neptune after a seven year cruise. Mission director " +
		"Elena Ruiz said the spacecraft will map the planet's magnetic field and " +
		"photograph its moon Triton over the next eighteen months. The program cost " +
		"roughly four billion dollars and survived two funding cancellations."
	polished := "The Verdana space agency confirmed Tuesday that the Calypso probe has " +
		"entered orbit around Neptune, ending a seven year cruise. Mission director " +
		"Elena Ruiz says the spacecraft will now map the planet's magnetic field and " +
		"photograph the moon Triton across the next eighteen months. The program cost " +
		"about four billion dollars and survived two funding cancellations."

	encoded, err := json.Marshal(map[string]string{"script": polished})
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(completionOf(t, string(encoded)))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	script, err := client.PolishScript(context.Background(), draft)
	if err != nil {
		t.Fatalf("PolishScript returned error: %v", err)
	}

	// Polishing smooths phrasing only. The substance of the draft, names,
	// figures, and facts, must survive into the returned script.
	want := substantiveTokens(draft)
	got := substantiveTokens(script)
	preserved := 0
	for token := range want {
		if got[token] {
			preserved++
		}
	}
	if len(want) == 0 {
		t.Fatal("fixture draft produced no tokens")
	}
	if ratio := float64(preserved) / float64(len(want)); ratio < 0.8 {
		t.Fatalf("polished script kept %.0f%% of draft substance, want at least 80%%", ratio*100)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(completionOf(t, `{"ok":true}`))
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo"},
		WithRetryMaxAttempts(3),
		WithRetryBackoff(10*time.Millisecond, 40*time.Millisecond),
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
	if len(slept) != 2 || slept[0] != 10*time.Millisecond || slept[1] != 20*time.Millisecond {
		t.Fatalf("unexpected backoff sleeps %v", slept)
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo"},
		WithRetryMaxAttempts(5),
		WithSleeper(func(time.Duration) {}),
	)
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected failure for http 400")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestClientHonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write(completionOf(t, `{"ok":true}`))
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected Retry-After to drive the sleep, got %v", slept)
	}
}

func TestClientRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{Model: "demo"})
	if _, _, _, err := client.ExtractTopic(context.Background(), "s", "b", "x"); err == nil {
		t.Fatal("expected missing api key error")
	}
}

func TestDecodeModelJSONSurroundingProse(t *testing.T) {
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeModelJSON("Sure, here you go: {\"ok\": true} hope that helps", &parsed); err != nil {
		t.Fatalf("DecodeModelJSON returned error: %v", err)
	}
	if !parsed.OK {
		t.Fatal("expected ok=true")
	}
}
