// Package logapi is a typed client for the log server's HTTP surface.
package logapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

// Client talks to /logs and /healthz on a log server.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithToken attaches a viewer bearer token to every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// New constructs a Client pointing at the provided server base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		return nil, errors.New("log server url required")
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid log server url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// APIError represents an error response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("log server request failed with status %d", e.Status)
	}
	return fmt.Sprintf("log server request failed (%d): %s", e.Status, e.Message)
}

// Entry is one archived log line.
type Entry struct {
	ID         int64     `json:"id"`
	Severity   string    `json:"severity"`
	Author     string    `json:"author"`
	Text       string    `json:"text"`
	Clock      string    `json:"time"`
	ReceivedAt time.Time `json:"received_at"`
}

// Query narrows ListLogs. Zero fields are omitted.
type Query struct {
	Author   string
	Severity string
	Limit    int
	BeforeID int64
}

func (q Query) encode() string {
	values := url.Values{}
	if q.Author != "" {
		values.Set("author", q.Author)
	}
	if q.Severity != "" {
		values.Set("severity", q.Severity)
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.BeforeID > 0 {
		values.Set("before", strconv.FormatInt(q.BeforeID, 10))
	}
	if len(values) == 0 {
		return ""
	}
	return "?" + values.Encode()
}

// ListLogs returns recent archived entries, newest first.
func (c *Client) ListLogs(ctx context.Context, q Query) ([]Entry, error) {
	var entries []Entry
	if err := c.do(ctx, http.MethodGet, "/logs"+q.encode(), nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Record submits one line through the HTTP ingestion path.
func (c *Client) Record(ctx context.Context, severity, author, text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("text is required")
	}
	body := map[string]string{
		"severity": severity,
		"author":   author,
		"text":     text,
	}
	return c.do(ctx, http.MethodPost, "/logs", body, nil)
}

// Health summarises /healthz.
type Health struct {
	Status     string                     `json:"status"`
	Archiving  bool                       `json:"archiving"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth is the state of one dependency.
type ComponentHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Health reports server health. A degraded server is not an error.
func (c *Client) Health(ctx context.Context) (Health, error) {
	resp, err := c.send(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return Health{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return Health{}, APIError{Status: resp.StatusCode, Message: extractError(resp.Body)}
	}
	var health Health
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return Health{}, fmt.Errorf("decode response: %w", err)
	}
	return health, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, v any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return APIError{Status: resp.StatusCode, Message: extractError(resp.Body)}
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	if c == nil {
		return nil, errors.New("client is nil")
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("perform request: %w", err)
	}
	return resp, nil
}

func extractError(body io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(payload.Error)
}
