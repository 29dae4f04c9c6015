// Package supabase provides a minimal Supabase REST client: the PostgREST
// subset the gateway needs (select by id, partial patch) and the auth
// endpoint used to resolve an access token to a user.
package supabase

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

// Client is a Supabase REST API client bound to one API key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Config holds client configuration.
type Config struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
}

// New creates a Supabase client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("APIKey is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

// From starts a query builder for a table.
func (c *Client) From(table string) *QueryBuilder {
	return &QueryBuilder{client: c, table: table}
}

// QueryBuilder builds PostgREST queries.
type QueryBuilder struct {
	client  *Client
	table   string
	columns string
	filters url.Values
	limit   int
}

// Select specifies the columns to select.
func (q *QueryBuilder) Select(columns string) *QueryBuilder {
	q.columns = columns
	return q
}

// Eq adds an equality filter.
func (q *QueryBuilder) Eq(column string, value any) *QueryBuilder {
	if q.filters == nil {
		q.filters = url.Values{}
	}
	q.filters.Add(column, fmt.Sprintf("eq.%v", value))
	return q
}

// Limit sets the row limit.
func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.limit = n
	return q
}

// Execute runs the query as a SELECT.
func (q *QueryBuilder) Execute(ctx context.Context) (*Response, error) {
	params := url.Values{}
	if q.columns != "" {
		params.Set("select", q.columns)
	}
	for column, values := range q.filters {
		for _, v := range values {
			params.Add(column, v)
		}
	}
	if q.limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", q.limit))
	}

	reqURL := q.tableURL()
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	q.client.setHeaders(req)

	return q.client.do(req)
}

// ExecuteUpdate runs a PATCH with the current filters, returning the
// updated representation.
func (q *QueryBuilder) ExecuteUpdate(ctx context.Context, data any) (*Response, error) {
	reqURL := q.tableURL()
	if len(q.filters) > 0 {
		reqURL += "?" + q.filters.Encode()
	}

	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal patch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	q.client.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	return q.client.do(req)
}

func (q *QueryBuilder) tableURL() string {
	return fmt.Sprintf("%s/rest/v1/%s", q.client.baseURL, url.PathEscape(q.table))
}

// Auth returns an auth client.
func (c *Client) Auth() *AuthClient {
	return &AuthClient{client: c}
}

// AuthClient handles authentication operations.
type AuthClient struct {
	client *Client
}

// GetUser resolves an access token to the user it belongs to.
func (a *AuthClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	reqURL := fmt.Sprintf("%s/auth/v1/user", a.client.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", a.client.apiKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token validation failed: status %d", resp.StatusCode)
	}

	var user User
	if err := json.Unmarshal(resp.Body, &user); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &user, nil
}

// User is the subset of the Supabase user record the gateway uses.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Response is a generic API response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// JSON unmarshals the response body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Error returns an error if the response indicates failure.
func (r *Response) Error() error {
	if r.StatusCode < 400 {
		return nil
	}
	var errResp struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(r.Body, &errResp); err == nil {
		if errResp.Message != "" {
			return fmt.Errorf("supabase error: %s", errResp.Message)
		}
		if errResp.Error != "" {
			return fmt.Errorf("supabase error: %s", errResp.Error)
		}
	}
	return fmt.Errorf("supabase error: status %d", r.StatusCode)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
}

func (c *Client) do(req *http.Request) (*Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Headers:    resp.Header,
	}, nil
}
