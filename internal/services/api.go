// HTTP client for the Shffl backend
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/shffl/internal/models"
	"github.com/desertthunder/shffl/internal/shared"
)

const defaultBaseURL = "http://127.0.0.1:8000"

// Client provides methods for calling the Shffl backend.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	requestTimeout time.Duration
}

// NewClient creates a new backend client. A nil client falls back to [http.DefaultClient].
func NewClient(baseURL string, client *http.Client) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// WithRequestTimeout bounds every non-streaming request. Zero disables the bound.
func (c *Client) WithRequestTimeout(d time.Duration) *Client {
	c.requestTimeout = d
	return c
}

// URL returns the absolute URL of a backend path.
func (c *Client) URL(path string) string {
	return c.baseURL + path
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Get performs a GET request to the specified path and returns the raw response.
func (c *Client) Get(ctx context.Context, path string) (*APIResponse, error) {
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(path), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// User calls GET /user and returns the raw response; interpreting it is up to the caller.
func (c *Client) User(ctx context.Context) (*APIResponse, error) {
	resp, err := c.Get(ctx, "/user")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return resp, nil
}

// Logout notifies the backend that the session ended. The response body is ignored.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.Get(ctx, "/logout")
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: logout status %d", shared.ErrAPIRequest, resp.StatusCode)
	}
	return nil
}

// Playlists fetches one page of the user's playlists.
func (c *Client) Playlists(ctx context.Context, offset, limit int) (*models.PlaylistPage, error) {
	q := url.Values{}
	q.Set("offset", fmt.Sprint(offset))
	q.Set("limit", fmt.Sprint(limit))

	resp, err := c.Get(ctx, "/playlists?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: playlists status %d", shared.ErrNotAuthenticated, resp.StatusCode)
	case !resp.OK():
		return nil, fmt.Errorf("%w: playlists status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var page models.PlaylistPage
	if err := json.Unmarshal(resp.Body, &page); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDecode, err)
	}
	page.Offset = offset

	return &page, nil
}

// QueueStream returns an unopened [EventSource] for the shuffle job of playlistID.
func (c *Client) QueueStream(playlistID string) *EventSource {
	return NewEventSource(c.httpClient, c.URL("/queue-playlist/"+url.PathEscape(playlistID)))
}
