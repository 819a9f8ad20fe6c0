// Package httpclient bridges a remote fault-injection endpoint into a
// load-test operation: each invocation performs one HTTP call and maps
// the response onto the harness's success/failure contract.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/wesleyorama2/breakwater/internal/loadtest"
)

// Client issues calls against a fault-injection endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a client for the endpoint at baseURL.
func NewClient(baseURL string, options ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		headers:    make(map[string]string),
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// WithTimeout sets the per-call timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHeader adds a header to every call.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// ProductsOperation returns an operation that GETs the products
// endpoint with the given scenario. All calls share the endpoint's
// global sequence stream.
func (c *Client) ProductsOperation(scenario string) loadtest.Operation {
	url := fmt.Sprintf("%s/internal-api/products?scenario=%s", c.baseURL, scenario)
	return func(ctx context.Context) error {
		return c.call(ctx, http.MethodGet, url, nil, nil)
	}
}

// ChargeOperation returns an operation that POSTs a charge with the
// given scenario. Each invocation carries a fresh correlation ID, so
// every logical call walks its own sequence stream on the endpoint.
func (c *Client) ChargeOperation(scenario string, payload []byte) loadtest.Operation {
	url := fmt.Sprintf("%s/internal-api/payment/charge?scenario=%s", c.baseURL, scenario)
	return func(ctx context.Context) error {
		headers := map[string]string{"X-Correlation-ID": uuid.NewString()}
		return c.call(ctx, http.MethodPost, url, payload, headers)
	}
}

// call performs one HTTP exchange. Any non-2xx status is a failure
// whose reason is taken from the response body's message or error
// field when present, falling back to the HTTP status text.
func (c *Client) call(ctx context.Context, method, url string, body []byte, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	return fmt.Errorf("%d %s: %s", resp.StatusCode, http.StatusText(resp.StatusCode), failureReason(payload))
}

// failureReason pulls the human-readable reason out of a JSON error
// body. The two mock surfaces use different field names.
func failureReason(body []byte) string {
	for _, field := range []string{"message", "error"} {
		if value := gjson.GetBytes(body, field); value.Exists() && value.String() != "" {
			return value.String()
		}
	}
	if len(body) == 0 {
		return "no response body"
	}
	return string(body)
}
