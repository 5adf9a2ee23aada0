package taiga

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds a single Taiga API request
const DefaultTimeout = 30 * time.Second

// TokenSource supplies the bearer token for authenticated requests
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource for a token issued elsewhere
type StaticToken string

// Token returns the static token
func (t StaticToken) Token(ctx context.Context) (string, error) {
	if t == "" {
		return "", &AuthError{Err: fmt.Errorf("empty token")}
	}
	return string(t), nil
}

// Client is a Taiga API client
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: d}
	}
}

// NewClient creates a new Taiga client
func NewClient(baseURL string, tokens TokenSource, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest performs an authenticated HTTP request to the Taiga API
func (c *Client) doRequest(ctx context.Context, method, path string, body any, header http.Header) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	return send(ctx, c.httpClient, method, c.baseURL, path, token, body, header)
}

// send performs one HTTP round trip; an empty token sends no Authorization header
func send(ctx context.Context, hc *http.Client, method, baseURL, path, token string, body any, header http.Header) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, newAPIError(resp.StatusCode, method, path, respBody)
	}

	return respBody, nil
}

// getJSON fetches path and decodes the body into T
func getJSON[T any](ctx context.Context, c *Client, path string) (T, error) {
	return sendJSON[T](ctx, c, http.MethodGet, path, nil)
}

// getAllJSON fetches every page of a list endpoint in one response
func getAllJSON[T any](ctx context.Context, c *Client, path string) (T, error) {
	return decodeResponse[T](c.doRequest(ctx, http.MethodGet, path, nil, http.Header{
		"X-Disable-Pagination": {"True"},
	}))
}

// sendJSON performs a request and decodes the body into T
func sendJSON[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	return decodeResponse[T](c.doRequest(ctx, method, path, body, nil))
}

func decodeResponse[T any](data []byte, err error) (T, error) {
	var out T
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to parse response: %w", err)
	}
	return out, nil
}

// deleteResource removes the resource at path
func (c *Client) deleteResource(ctx context.Context, path string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, path, nil, nil)
	return err
}

// withQuery appends a query string when any value is set
func withQuery(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}

type versionInfo struct {
	Version int `json:"version"`
}

// patchVersioned applies a partial update to a versioned resource. Taiga
// rejects updates without the current version, so it is fetched when absent.
func patchVersioned[T any](ctx context.Context, c *Client, path string, fields map[string]any) (T, error) {
	if _, ok := fields["version"]; !ok {
		current, err := getJSON[versionInfo](ctx, c, path)
		if err != nil {
			var zero T
			return zero, fmt.Errorf("failed to read current version: %w", err)
		}
		fields["version"] = current.Version
	}
	return sendJSON[T](ctx, c, http.MethodPatch, path, fields)
}
