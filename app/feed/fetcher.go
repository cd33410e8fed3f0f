package feed

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Fetcher retrieves raw feed documents for channel identifiers. It never
// returns partial data: either the full document or a classified FetchError.
type Fetcher struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	timeout    time.Duration
}

func NewFetcher(httpClient *http.Client, baseURL, userAgent string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		httpClient: httpClient,
		baseURL:    baseURL,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// Run fetches the feed document for a single channel. Fetch failures are the
// caller's signal to skip the channel for this run; they are never retried
// here.
func (f *Fetcher) Run(ctx context.Context, channelID string) ([]byte, *FetchError) {
	if strings.TrimSpace(channelID) == "" {
		return nil, &FetchError{Kind: FetchErrInvalidInput}
	}

	feedURL := f.baseURL + "?channel_id=" + url.QueryEscape(channelID)

	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: FetchErrInvalidInput, Err: err}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/atom+xml")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &FetchError{Kind: FetchErrTimeout, Err: err}
		}
		return nil, &FetchError{Kind: FetchErrNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Kind: FetchErrHTTPStatus, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &FetchError{Kind: FetchErrTimeout, Err: err}
		}
		return nil, &FetchError{Kind: FetchErrNetwork, Err: err}
	}

	// A plausible feed document carries the Atom root marker. Anything else
	// (HTML error pages, consent walls) is rejected before parsing.
	if !strings.Contains(string(data), "<feed") {
		return nil, &FetchError{Kind: FetchErrInvalidBody}
	}

	return data, nil
}
