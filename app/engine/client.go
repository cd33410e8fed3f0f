package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ugboard/yt-pull/app/feed"
)

const (
	maxAttempts = 3
	backoffBase = 500 * time.Millisecond
)

type pushPayload struct {
	Items []feed.Record `json:"items"`
}

// Client delivers record batches to the engine ingestion endpoint with
// bounded retries. Delivery is at-least-once: a batch may be retried, never
// silently dropped mid-flight.
type Client struct {
	httpClient *http.Client
	ingestURL  string
	auth       Auth
	userAgent  string
	sleep      func(time.Duration)
}

func NewClient(httpClient *http.Client, engineURL string, auth Auth, userAgent string) *Client {
	return &Client{
		httpClient: httpClient,
		ingestURL:  engineURL + "/ingest/youtube",
		auth:       auth,
		userAgent:  userAgent,
		sleep:      time.Sleep,
	}
}

// Run pushes one batch. An empty batch succeeds without a network call.
// Transport errors, 429 and 5xx responses are retried with exponential
// backoff (500ms, 1000ms); other 4xx responses are terminal on the first
// occurrence.
func (c *Client) Run(ctx context.Context, batch []feed.Record) PushResult {
	if len(batch) == 0 {
		return PushResult{Success: true, Message: "empty batch, nothing to push"}
	}

	body, err := json.Marshal(pushPayload{Items: batch})
	if err != nil {
		return PushResult{Success: false, Message: fmt.Sprintf("failed to encode batch: %v", err)}
	}

	var lastMessage string
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, responseBody, err := c.send(ctx, body, attempt)

		switch {
		case err != nil:
			lastMessage = fmt.Sprintf("request failed: %v", err)
			slog.Warn("Engine push attempt failed", "attempt", attempt, "error", err)

		case status >= 200 && status <= 299:
			return PushResult{
				Success:    true,
				StatusCode: status,
				Message:    fmt.Sprintf("engine accepted %d records", len(batch)),
				Attempts:   attempt,
			}

		case status == http.StatusTooManyRequests || status >= 500:
			lastMessage = fmt.Sprintf("engine returned %d: %s", status, responseBody)
			slog.Warn("Engine push attempt rejected, will retry", "attempt", attempt, "status", status)

		default:
			// Client errors cannot succeed on retry; burn no further attempts.
			return PushResult{
				Success:    false,
				StatusCode: status,
				Message:    fmt.Sprintf("engine returned %d: %s", status, responseBody),
				Attempts:   attempt,
			}
		}

		if attempt < maxAttempts {
			c.sleep(backoffBase << (attempt - 1))
		}
	}

	return PushResult{
		Success:  false,
		Message:  fmt.Sprintf("retries exhausted after %d attempts, last error: %s", maxAttempts, lastMessage),
		Attempts: maxAttempts,
	}
}

func (c *Client) send(ctx context.Context, body []byte, attempt int) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ingestURL, bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	// Fresh correlation id per attempt so the engine can tell retries apart.
	req.Header.Set("X-Request-ID", uuid.NewString())
	c.auth.Apply(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	snippet, err := io.ReadAll(io.LimitReader(resp.Body, 512))
	if err != nil {
		snippet = nil
	}

	return resp.StatusCode, string(bytes.TrimSpace(snippet)), nil
}

// WithSleep returns a copy of the client using the given sleep function.
// Tests use this to observe backoff without waiting for it.
func (c *Client) WithSleep(sleep func(time.Duration)) *Client {
	clone := *c
	clone.sleep = sleep
	return &clone
}
