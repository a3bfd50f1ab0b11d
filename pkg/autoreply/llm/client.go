package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	// DefaultTimeout bounds one provider HTTP call.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxAttempts is how many times a transient failure is tried.
	DefaultMaxAttempts = 3

	// DefaultMaxDepth bounds consecutive tool-call round-trips within one
	// SendMessage invocation.
	DefaultMaxDepth = 5

	// backoffUnit is the linear backoff step: the delay after attempt n is
	// n * backoffUnit.
	backoffUnit = time.Second

	// DefaultOverflowMessage is returned when the tool-call loop hits its
	// depth bound.
	DefaultOverflowMessage = "Sorry, I couldn't finish looking that up. Could you ask in a more specific way?"
)

// Client is the stateless chat-completions transport. Safe for concurrent
// use.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	maxAttempts int
	maxDepth    int
	overflowMsg string

	// sleep is swappable for tests.
	sleep func(context.Context, time.Duration) error

	logger *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client (tests, custom transports).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxAttempts overrides the transient-retry attempt budget.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithMaxDepth overrides the tool-call depth bound.
func WithMaxDepth(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

// WithOverflowMessage overrides the canned depth-overflow reply.
func WithOverflowMessage(msg string) Option {
	return func(c *Client) {
		if msg != "" {
			c.overflowMsg = msg
		}
	}
}

// NewClient creates a client for an OpenAI-compatible endpoint.
func NewClient(baseURL, apiKey string, logger *slog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		maxAttempts: DefaultMaxAttempts,
		maxDepth:    DefaultMaxDepth,
		overflowMsg: DefaultOverflowMessage,
		sleep:       sleepCtx,
		logger:      logger.With("component", "llm"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// complete sends one chat-completions request with the transient-retry
// policy: network errors and 5xx responses are retried with linear backoff
// (attempt × 1s) up to maxAttempts; 4xx is terminal on the first hit.
func (c *Client) complete(ctx context.Context, messages []Message, tools []ToolDefinition, opts Options) (*chatResponse, error) {
	if c.apiKey == "" {
		return nil, ErrNoCredential
	}

	body := chatRequest{
		Model:    opts.Model,
		Messages: messages,
	}
	if len(tools) > 0 {
		body.Tools = tools
	}
	if opts.ReasoningEffort != "" && SupportsReasoningEffort(opts.Model) {
		body.ReasoningEffort = opts.ReasoningEffort
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	var lastErr *ProviderError

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			// Linear backoff: 1s after the first failure, 2s after the
			// second.
			delay := time.Duration(attempt-1) * backoffUnit
			c.logger.Debug("retrying provider call",
				"attempt", attempt,
				"delay_ms", delay.Milliseconds(),
			)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		resp, perr := c.doRequest(ctx, endpoint, payload, opts.Model, len(messages), len(tools))
		if perr == nil {
			return resp, nil
		}

		perr.Attempts = attempt
		if !perr.Transient {
			return nil, perr
		}
		lastErr = perr
	}

	c.logger.Error("provider retries exhausted",
		"attempts", c.maxAttempts,
		"code", lastErr.Code,
	)
	return nil, lastErr
}

// doRequest performs a single HTTP round-trip and classifies the outcome.
func (c *Client) doRequest(ctx context.Context, endpoint string, payload []byte, model string, msgCount, toolCount int) (*chatResponse, *ProviderError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &ProviderError{Message: err.Error(), Transient: false}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Debug("sending chat completion",
		"model", model,
		"messages", msgCount,
		"tools", toolCount,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Message: err.Error(), Transient: true}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Message: "reading response: " + err.Error(), Transient: true}
	}

	if resp.StatusCode != http.StatusOK {
		msg := providerMessage(respBody)
		transient := resp.StatusCode >= 500
		c.logger.Warn("provider error",
			"status", resp.StatusCode,
			"message", msg,
			"transient", transient,
		)
		return nil, &ProviderError{Code: resp.StatusCode, Message: msg, Transient: transient}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &ProviderError{Message: "parsing response: " + err.Error(), Transient: false}
	}
	if parsed.Error != nil {
		return nil, &ProviderError{Message: parsed.Error.Message, Transient: false}
	}
	if len(parsed.Choices) == 0 {
		return nil, &ProviderError{Message: "no choices in response", Transient: false}
	}

	c.logger.Info("chat completion done",
		"model", model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", parsed.Usage.PromptTokens,
		"completion_tokens", parsed.Usage.CompletionTokens,
		"tool_calls", len(parsed.Choices[0].Message.ToolCalls),
	)
	return &parsed, nil
}

// providerMessage extracts a readable message from an error body without
// assuming its exact shape.
func providerMessage(body []byte) string {
	if msg := gjson.GetBytes(body, "error.message").String(); msg != "" {
		return msg
	}
	if msg := gjson.GetBytes(body, "message").String(); msg != "" {
		return msg
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// SupportsReasoningEffort reports whether the model family accepts the
// reasoning_effort request field.
func SupportsReasoningEffort(model string) bool {
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

// sleepCtx waits for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
