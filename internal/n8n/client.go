// Package n8n is a client for the n8n public REST API and its webhook
// endpoints.
package n8n

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

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"n8n-workflows/internal/config"
)

const (
	// APIKeyHeader carries the API key on management calls.
	APIKeyHeader = "X-N8N-API-KEY"
	// PlaceholderAPIKey is the value shipped in example .env files.
	PlaceholderAPIKey = "your_api_key_here"
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second

	workflowsPath = "/api/v1/workflows"
	webhookPrefix = "/webhook/"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Client talks to one n8n instance. It keeps no state besides its
// configuration and is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     Logger
	metrics    *clientMetrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// WithLogger sets where operation confirmations are logged.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMeter sets the meter used for request metrics.
func WithMeter(m metric.Meter) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = newClientMetrics(m)
		}
	}
}

// New creates a client for the instance at baseURL. An empty baseURL means
// http://localhost:5678. The API key is required and must not be the
// placeholder value.
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" || apiKey == PlaceholderAPIKey {
		return nil, &ConfigurationError{
			Reason: "N8N_API_KEY not set; create an API key in n8n under Settings > n8n API and add it to .env",
		}
	}

	c := &Client{
		baseURL: config.NormalizeHost(baseURL),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: nopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = newClientMetrics(otel.Meter(instrumentationName))
	}
	return c, nil
}

// NewFromConfig creates a client from the n8n section of cfg.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	opts = append([]Option{WithTimeout(cfg.N8N.Timeout)}, opts...)
	return New(cfg.N8N.Host, cfg.N8N.APIKey, opts...)
}

// BaseURL returns the normalised instance address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes one HTTP call.
type request struct {
	operation string
	method    string
	path      string
	query     url.Values
	body      interface{}
	// auth adds the API key; webhook calls go without it.
	auth bool
}

// do performs r and returns the response body of a 2xx response. Any other
// status becomes a *RemoteError.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	var reader io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil || r.auth {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.auth {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.record(ctx, r.operation, r.method, 0, time.Since(start))
		return nil, fmt.Errorf("cannot connect to n8n: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.metrics.record(ctx, r.operation, r.method, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("n8n request failed", "operation", r.operation, "status", resp.StatusCode)
		return nil, newRemoteError(req, resp, body)
	}
	return body, nil
}

// doJSON performs r and decodes the response into dst.
func (c *Client) doJSON(ctx context.Context, r request, dst interface{}) error {
	body, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("invalid response from n8n: %w", err)
	}
	return nil
}

func workflowPath(id string, suffix ...string) string {
	p := workflowsPath + "/" + url.PathEscape(id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}
