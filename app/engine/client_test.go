package engine

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ugboard/yt-pull/app/feed"
)

func testBatch() []feed.Record {
	return []feed.Record{
		{
			Source:      "youtube",
			ExternalID:  "video-one",
			Title:       "First Video",
			PublishedAt: "2024-06-01T10:00:00Z",
			ChannelID:   "UCtest",
		},
	}
}

func noSleep(*testing.T) (func(time.Duration), *[]time.Duration) {
	var slept []time.Duration
	return func(d time.Duration) { slept = append(slept, d) }, &slept
}

func TestClient_Run_EmptyBatch(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL, BearerToken{Token: "secret"}, "TestAgent/1.0")

	result := client.Run(context.Background(), nil)
	if !result.Success {
		t.Error("Expected empty batch push to succeed")
	}
	if result.Attempts != 0 {
		t.Errorf("Expected 0 attempts for empty batch, got %d", result.Attempts)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Error("Expected no network call for empty batch")
	}
}

func TestClient_Run_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ingest/youtube" {
			t.Errorf("Expected path '/ingest/youtube', got '%s'", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("Expected bearer auth header, got '%s'", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected JSON content type, got '%s'", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("Expected X-Request-ID header to be set")
		}

		body, _ := io.ReadAll(r.Body)
		var payload struct {
			Items []feed.Record `json:"items"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("Failed to decode payload: %v", err)
		}
		if len(payload.Items) != 1 {
			t.Errorf("Expected 1 item in payload, got %d", len(payload.Items))
		}
		if payload.Items[0].ExternalID != "video-one" {
			t.Errorf("Expected external_id 'video-one', got '%s'", payload.Items[0].ExternalID)
		}

		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL, BearerToken{Token: "secret"}, "TestAgent/1.0")

	result := client.Run(context.Background(), testBatch())
	if !result.Success {
		t.Fatalf("Expected success, got: %s", result.Message)
	}
	if result.Attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", result.Attempts)
	}
	if result.StatusCode != http.StatusAccepted {
		t.Errorf("Expected status 202, got %d", result.StatusCode)
	}
}

func TestClient_Run_CustomHeaderAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Internal-Token") != "secret" {
			t.Errorf("Expected custom auth header, got '%s'", r.Header.Get("X-Internal-Token"))
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("Expected no Authorization header with custom header auth")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL, CustomHeader{Name: "X-Internal-Token", Value: "secret"}, "TestAgent/1.0")

	result := client.Run(context.Background(), testBatch())
	if !result.Success {
		t.Fatalf("Expected success, got: %s", result.Message)
	}
}

func TestClient_Run_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	requestIDs := make(map[string]bool)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestIDs[r.Header.Get("X-Request-ID")] = true
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sleep, slept := noSleep(t)
	client := NewClient(server.Client(), server.URL, BearerToken{Token: "secret"}, "TestAgent/1.0").WithSleep(sleep)

	result := client.Run(context.Background(), testBatch())
	if !result.Success {
		t.Fatalf("Expected success after retries, got: %s", result.Message)
	}
	if result.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", result.Attempts)
	}
	if len(requestIDs) != 3 {
		t.Errorf("Expected a fresh request id per attempt, saw %d unique ids", len(requestIDs))
	}
	if len(*slept) != 2 || (*slept)[0] != 500*time.Millisecond || (*slept)[1] != 1000*time.Millisecond {
		t.Errorf("Expected backoff sequence [500ms 1s], got %v", *slept)
	}
}

func TestClient_Run_NoRetryOn4xx(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("malformed payload"))
	}))
	defer server.Close()

	sleep, slept := noSleep(t)
	client := NewClient(server.Client(), server.URL, BearerToken{Token: "secret"}, "TestAgent/1.0").WithSleep(sleep)

	result := client.Run(context.Background(), testBatch())
	if result.Success {
		t.Error("Expected failure for 400 response")
	}
	if result.Attempts != 1 {
		t.Errorf("Expected exactly 1 attempt for 400 response, got %d", result.Attempts)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("Expected exactly 1 request, got %d", atomic.LoadInt32(&calls))
	}
	if len(*slept) != 0 {
		t.Errorf("Expected no backoff for terminal failure, got %v", *slept)
	}
	if result.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", result.StatusCode)
	}
}

func TestClient_Run_RetriesExhausted(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sleep, slept := noSleep(t)
	client := NewClient(server.Client(), server.URL, BearerToken{Token: "secret"}, "TestAgent/1.0").WithSleep(sleep)

	result := client.Run(context.Background(), testBatch())
	if result.Success {
		t.Error("Expected failure after exhausting retries")
	}
	if result.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", result.Attempts)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("Expected exactly 3 requests, got %d", atomic.LoadInt32(&calls))
	}
	// Backoff applies between attempts only, never after the last one.
	if len(*slept) != 2 {
		t.Errorf("Expected 2 backoff sleeps, got %d", len(*slept))
	}
}

func TestClient_Run_RetryOn429(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sleep, _ := noSleep(t)
	client := NewClient(server.Client(), server.URL, BearerToken{Token: "secret"}, "TestAgent/1.0").WithSleep(sleep)

	result := client.Run(context.Background(), testBatch())
	if !result.Success {
		t.Fatalf("Expected success after 429 retry, got: %s", result.Message)
	}
	if result.Attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", result.Attempts)
	}
}
