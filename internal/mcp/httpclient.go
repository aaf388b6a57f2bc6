package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/zwogen/internal/library"
	"github.com/claude/zwogen/internal/models"
	"github.com/claude/zwogen/internal/storage"
	"github.com/google/uuid"
)

// HTTPClient implements DataSource by calling the zwogen REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// the library lives on the remote server (accessed over Tailscale).
// The remote server resolves the user from the connection, so the userID
// arguments are ignored.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL. The API
// key is only sent with library writes and may be empty for read-only use.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-success response from the REST API. Kind and Tokens are
// set for workouts that failed to compile.
type APIError struct {
	Path    string
	Status  int
	Message string
	Kind    string
	Tokens  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("httpclient: %s returned %d: %s", e.Path, e.Status, e.Message)
}

// Unwrap maps 404 responses to library.ErrNotFound.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return library.ErrNotFound
	}
	return nil
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}
	return c.do(req, path, http.StatusOK)
}

func (c *HTTPClient) post(ctx context.Context, path string, params url.Values, v any, want int) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("httpclient: encode request: %w", err)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	return c.do(req, path, want)
}

func (c *HTTPClient) do(req *http.Request, path string, want int) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != want {
		apiErr := &APIError{Path: path, Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		var decoded struct {
			Error  string `json:"error"`
			Kind   string `json:"kind"`
			Tokens string `json:"tokens"`
		}
		if json.Unmarshal(body, &decoded) == nil && decoded.Error != "" {
			apiErr.Message, apiErr.Kind, apiErr.Tokens = decoded.Error, decoded.Kind, decoded.Tokens
		}
		return nil, apiErr
	}

	return body, nil
}

func (c *HTTPClient) Compile(ctx context.Context, req library.Request) (*library.Outcome, error) {
	body, err := c.post(ctx, "/api/v1/compile", nil, req, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var out library.Outcome
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("httpclient: decode compile outcome: %w", err)
	}
	return &out, nil
}

func (c *HTTPClient) Save(ctx context.Context, req library.Request, _ int, origin string) (*models.WorkoutRow, error) {
	var params url.Values
	if origin != "" {
		params = url.Values{"origin": {origin}}
	}
	body, err := c.post(ctx, "/api/v1/workouts", params, req, http.StatusCreated)
	if err != nil {
		return nil, err
	}

	var row models.WorkoutRow
	if err := json.Unmarshal(body, &row); err != nil {
		return nil, fmt.Errorf("httpclient: decode workout: %w", err)
	}
	return &row, nil
}

func (c *HTTPClient) List(ctx context.Context, _ int, f storage.WorkoutFilter) ([]models.WorkoutRow, error) {
	params := url.Values{}
	if f.Name != "" {
		params.Set("name", f.Name)
	}
	if f.Author != "" {
		params.Set("author", f.Author)
	}
	if f.Limit > 0 {
		params.Set("limit", strconv.Itoa(f.Limit))
	}

	body, err := c.get(ctx, "/api/v1/workouts", params)
	if err != nil {
		return nil, err
	}

	var rows []models.WorkoutRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("httpclient: decode workouts: %w", err)
	}
	return rows, nil
}

func (c *HTTPClient) Get(ctx context.Context, id uuid.UUID, _ int) (*models.WorkoutRow, error) {
	body, err := c.get(ctx, "/api/v1/workouts/"+id.String(), nil)
	if err != nil {
		return nil, err
	}

	var row models.WorkoutRow
	if err := json.Unmarshal(body, &row); err != nil {
		return nil, fmt.Errorf("httpclient: decode workout: %w", err)
	}
	return &row, nil
}

func (c *HTTPClient) Stats(ctx context.Context, _ int) (*storage.LibraryStats, error) {
	body, err := c.get(ctx, "/api/v1/stats", nil)
	if err != nil {
		return nil, err
	}

	var stats storage.LibraryStats
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("httpclient: decode library stats: %w", err)
	}
	return &stats, nil
}
