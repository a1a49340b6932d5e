// Package runtimeapi queries a runtime's task_history table over its HTTP SQL
// endpoint and decodes the result rows into spans.
package runtimeapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/awhicks/spanview/pkg/tracetree"
)

const defaultTimeout = 30 * time.Second

var tracer = otel.Tracer("github.com/awhicks/spanview/pkg/runtimeapi")

// Client issues SQL queries against a runtime's /v1/sql endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the api key sent on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for the runtime at baseURL (e.g. http://localhost:8090).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// QuerySpans executes a SQL query whose result rows are task_history records
// and returns them as spans. An empty response body yields no spans.
func (c *Client) QuerySpans(ctx context.Context, query string) ([]tracetree.Span, error) {
	ctx, span := tracer.Start(ctx, "runtime.sql_query")
	defer span.End()

	spans, err := c.querySpans(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sql query failed")
		return nil, err
	}
	return spans, nil
}

func (c *Client) querySpans(ctx context.Context, query string) ([]tracetree.Span, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/sql", strings.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("creating SQL request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending SQL request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close on read

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("runtime returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	spans, err := tracetree.ParseSpans(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from runtime: %w", err)
	}
	return spans, nil
}
