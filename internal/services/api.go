// Raw JSON HTTP client shared by the Spotify and YouTube services
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// APIClient performs raw HTTP requests against a JSON API rooted at baseURL.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a client for baseURL. A nil client falls back to [http.DefaultClient].
func NewAPIClient(baseURL string, client *http.Client) *APIClient {
	if client == nil {
		client = http.DefaultClient
	}

	return &APIClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: client,
	}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// OK reports whether the response has a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the response body into v.
func (r *APIResponse) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Request describes a single call made through [APIClient.Do].
type Request struct {
	Method string
	// Path is appended to the base URL unless it is already absolute (e.g. a pagination link).
	Path   string
	Query  url.Values
	Bearer string
	Body   any
}

// Do performs req and returns the raw response. Transport failures are classified by [transportError];
// non-2xx statuses are returned as a response, not an error.
func (a *APIClient) Do(ctx context.Context, req Request) (*APIResponse, error) {
	target := req.Path
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = a.baseURL + target
	}
	if len(req.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Bearer)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(fmt.Errorf("failed to read response: %w", err))
	}

	return &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
	}, nil
}

// Get performs a GET request for path with the given query.
func (a *APIClient) Get(ctx context.Context, path string, query url.Values, bearer string) (*APIResponse, error) {
	return a.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query, Bearer: bearer})
}

// PostJSON performs a POST request for path with body encoded as JSON.
func (a *APIClient) PostJSON(ctx context.Context, path string, query url.Values, bearer string, body any) (*APIResponse, error) {
	return a.Do(ctx, Request{Method: http.MethodPost, Path: path, Query: query, Bearer: bearer, Body: body})
}
