// Package nlp is the HTTP client for the external natural-language
// collaborator service. Every call is bounded by a timeout and a small
// retry budget with exponential backoff; callers always have a
// deterministic fallback when the service is unavailable.
package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"ledger-assistant/internal/common/config"
	"ledger-assistant/internal/common/errors"
	"ledger-assistant/internal/common/logger"
)

// Client talks to the NL collaborator service.
type Client struct {
	baseURL    string
	apiKey     string
	maxRetries int
	httpClient *http.Client
	logger     logger.Logger
}

// NewClient builds a Client from config.
func NewClient(cfg config.NLPConfig, log logger.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.WithFields(map[string]interface{}{"component": "nlp-client"}),
	}
}

// postJSON sends the payload and decodes the response into out. Non-200
// statuses and transport errors are retried with exponential backoff; the
// request body is rebuilt per attempt.
func (c *Client) postJSON(ctx context.Context, operation, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.NewNLServiceError(operation, err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return errors.NewNLServiceTimeoutError(operation)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return errors.NewNLServiceError(operation, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if ctx.Err() != nil || stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
			return errors.NewNLServiceTimeoutError(operation)
		}
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, string(data))
			// Client errors will not heal on retry.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return errors.NewNLServiceError(operation, lastErr)
			}
			continue
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return errors.NewNLServiceError(operation, fmt.Errorf("decode response: %w", err))
		}
		if attempt > 0 {
			c.logger.Warn("nl call succeeded after retry", map[string]interface{}{
				"operation": operation,
				"attempt":   attempt,
			})
		}
		return nil
	}

	return errors.NewNLServiceError(operation, lastErr)
}
