package llm

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func noSleep(c *Client) {
	c.sleep = func(context.Context, time.Duration) error { return nil }
}

const finalBody = `{
	"choices": [{"message": {"content": "All done."}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

func TestSendMessageRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error": {"message": "upstream overloaded"}}`))
			return
		}
		w.Write([]byte(finalBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", slog.Default())
	noSleep(c)

	reply, err := c.SendMessage(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, Options{Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
	if reply.Content != "All done." {
		t.Errorf("unexpected content %q", reply.Content)
	}
	if reply.Usage.TotalTokens != 15 {
		t.Errorf("expected usage passthrough of 15, got %d", reply.Usage.TotalTokens)
	}
}

func TestSendMessageExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error": {"message": "try later"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", slog.Default())
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	_, err := c.SendMessage(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, Options{Model: "gpt-4o-mini"})
	if err == nil {
		t.Fatal("expected failure after exhausted retries")
	}
	if got := calls.Load(); got != DefaultMaxAttempts {
		t.Errorf("expected exactly %d attempts, got %d", DefaultMaxAttempts, got)
	}
	if len(slept) != 2 || slept[0] != time.Second || slept[1] != 2*time.Second {
		t.Errorf("expected linear backoff of [1s 2s], got %v", slept)
	}

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %T", err)
	}
	if !perr.Transient {
		t.Error("503 should classify as transient")
	}
	if perr.Attempts != DefaultMaxAttempts {
		t.Errorf("expected %d recorded attempts, got %d", DefaultMaxAttempts, perr.Attempts)
	}
}

func TestSendMessageTerminalClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "model not found"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", slog.Default())
	noSleep(c)

	_, err := c.SendMessage(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, Options{Model: "nope"})
	if err == nil {
		t.Fatal("expected error on 400")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("4xx must not retry, got %d attempts", got)
	}

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %T", err)
	}
	if perr.Transient {
		t.Error("400 must not classify as transient")
	}
	if perr.Message != "model not found" {
		t.Errorf("expected extracted provider message, got %q", perr.Message)
	}
}

func TestSendMessageWithoutCredential(t *testing.T) {
	c := NewClient("http://localhost:1", "", slog.Default())

	_, err := c.SendMessage(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, Options{Model: "gpt-4o-mini"})
	if !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
}

func TestProviderMessageExtraction(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"openai shape", `{"error": {"message": "rate limited"}}`, "rate limited"},
		{"flat shape", `{"message": "gateway timeout"}`, "gateway timeout"},
		{"plain text", "service down", "service down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := providerMessage([]byte(tt.body)); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestSupportsReasoningEffort(t *testing.T) {
	tests := []struct {
		model    string
		expected bool
	}{
		{"o1-mini", true},
		{"o3", true},
		{"o4-mini", true},
		{"gpt-5", true},
		{"gpt-4o-mini", false},
		{"gpt-4.1", false},
		{"claude-3-5-sonnet", false},
	}

	for _, tt := range tests {
		if got := SupportsReasoningEffort(tt.model); got != tt.expected {
			t.Errorf("SupportsReasoningEffort(%q) = %v, want %v", tt.model, got, tt.expected)
		}
	}
}
