package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// VerifyCredential checks that the configured API key is accepted by the
// provider. Lightweight standalone health check, outside the message path.
func (c *Client) VerifyCredential(ctx context.Context) error {
	if c.apiKey == "" {
		return ErrNoCredential
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("building health check request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: provider rejected the key (%d)", ErrNoCredential, resp.StatusCode)
	default:
		return &ProviderError{
			Code:      resp.StatusCode,
			Message:   "health check failed",
			Transient: resp.StatusCode >= 500,
			Attempts:  1,
		}
	}
}
