package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrRejected is returned when the server refuses a workout. Rejections are
// not retried.
var ErrRejected = errors.New("workout rejected by server")

// Workout mirrors library.Request without importing the library package
// (which would pull in pgx and other server-side dependencies).
type Workout struct {
	Name        string `json:"name"`
	Author      string `json:"author,omitempty"`
	Description string `json:"description,omitempty"`
	Workout     string `json:"workout"`
}

// saved is the subset of the stored workout returned by the server.
type saved struct {
	ID          string `json:"id"`
	DurationSec int    `json:"duration_sec"`
}

// Client sends workouts to the zwogen server over HTTP.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
	retryDelay time.Duration
}

// NewClient creates a new HTTP client for the zwogen server.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL:  strings.TrimRight(serverURL, "/"),
		apiKey:     apiKey,
		retryDelay: time.Second,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// SendWorkout POSTs a workout to the server's library and returns its ID.
// Transport failures and 5xx responses are retried up to 3 times with
// exponential backoff; other failures wrap ErrRejected.
func (c *Client) SendWorkout(ctx context.Context, w Workout) (string, error) {
	data, err := json.Marshal(w)
	if err != nil {
		return "", fmt.Errorf("marshaling workout: %w", err)
	}

	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.retryDelay << uint(attempt-1)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.serverURL+"/api/v1/workouts?origin=upload", bytes.NewReader(data))
		if err != nil {
			return "", fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusCreated:
			var s saved
			if err := json.Unmarshal(body, &s); err != nil {
				return "", fmt.Errorf("decoding response: %w", err)
			}
			return s.ID, nil
		case resp.StatusCode >= http.StatusInternalServerError:
			lastErr = fmt.Errorf("upload failed (status %d): %s", resp.StatusCode, bytes.TrimSpace(body))
		default:
			return "", fmt.Errorf("%w (status %d): %s", ErrRejected, resp.StatusCode, bytes.TrimSpace(body))
		}
	}

	return "", fmt.Errorf("after 3 attempts: %w", lastErr)
}
