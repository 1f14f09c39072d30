// Package completion provides the client for the external completion
// collaborator: a best-effort service that supplies values for fields no
// local rule can compute. Calls retry with exponential backoff and jitter;
// exhausted retries fail locally so a single field's completion failure never
// aborts an item's resolution.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// maxResponseSize limits the completion response body to prevent memory
// exhaustion.
const maxResponseSize = 1 * 1024 * 1024 // 1MB

// Request is the wire request for one completion call.
type Request struct {
	// RequestID correlates the call in logs and service traces.
	RequestID string `json:"request_id"`

	// PromptKey selects the completion prompt.
	PromptKey string `json:"prompt_key"`

	// ContextFields is the record subset relevant to the prompt.
	ContextFields map[string]string `json:"context_fields"`
}

// Response is the wire response: a value on success, an error kind otherwise.
type Response struct {
	Value string `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// Client calls the completion service with retry and backoff. It implements
// the strategy package's Completer interface.
type Client struct {
	endpoint    string
	httpClient  *http.Client
	retryConfig RetryConfig
	prompts     *PromptRegistry
	logger      *slog.Logger
	metrics     *metrics
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(client *Client) {
		client.retryConfig = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

// WithPromptRegistry sets the prompt registry.
func WithPromptRegistry(r *PromptRegistry) ClientOption {
	return func(client *Client) {
		client.prompts = r
	}
}

// WithMetrics registers the client's collectors with reg.
func WithMetrics(reg prometheus.Registerer) ClientOption {
	return func(client *Client) {
		if err := client.metrics.register(reg); err != nil {
			client.logger.Warn("Failed to register completion metrics", "error", err)
		}
	}
}

// NewClient creates a completion client for the given endpoint.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:    endpoint,
		retryConfig: DefaultRetryConfig(),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		prompts: NewPromptRegistry(),
		logger:  slog.Default(),
		metrics: newMetrics(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Complete requests a value for promptKey, retrying transient failures with
// exponential backoff. contextFields is filtered down to the prompt's
// declared fields before sending.
func (c *Client) Complete(ctx context.Context, promptKey string, contextFields map[string]string) (string, error) {
	if promptKey == "" {
		return "", NewFatalError(fmt.Errorf("prompt key is required"))
	}

	req := Request{
		RequestID:     uuid.New().String(),
		PromptKey:     promptKey,
		ContextFields: c.prompts.filter(promptKey, contextFields),
	}

	started := time.Now()
	var lastErr error

	for attempt := 1; attempt <= c.retryConfig.MaxAttempts; attempt++ {
		value, err := c.doRequest(ctx, req)
		if err == nil {
			c.metrics.calls.WithLabelValues(promptKey, "success").Inc()
			c.metrics.duration.Observe(time.Since(started).Seconds())
			return value, nil
		}

		lastErr = err

		if IsFatal(err) {
			c.metrics.calls.WithLabelValues(promptKey, "fatal").Inc()
			c.metrics.duration.Observe(time.Since(started).Seconds())
			return "", err
		}

		if attempt < c.retryConfig.MaxAttempts {
			backoff := c.retryConfig.Backoff(attempt)
			c.logger.Debug("Completion request failed, retrying",
				"request_id", req.RequestID,
				"prompt_key", promptKey,
				"attempt", attempt,
				"max_attempts", c.retryConfig.MaxAttempts,
				"backoff", backoff,
				"error", err)
			c.metrics.retries.Inc()

			select {
			case <-ctx.Done():
				c.metrics.calls.WithLabelValues(promptKey, "canceled").Inc()
				return "", ctx.Err()
			case <-time.After(backoff):
				// Continue to retry
			}
		}
	}

	c.metrics.calls.WithLabelValues(promptKey, "exhausted").Inc()
	c.metrics.duration.Observe(time.Since(started).Seconds())
	return "", fmt.Errorf("%w for %s: %w", ErrExhausted, promptKey, lastErr)
}

// doRequest executes a single HTTP request to the completion endpoint.
func (c *Client) doRequest(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", NewFatalError(fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", NewFatalError(fmt.Errorf("create HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Network errors are transient
		return "", NewTransientError(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return "", NewTransientError(fmt.Errorf("read response body: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		return "", classifyStatus(httpResp.StatusCode, respBody)
	}

	var resp Response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", NewTransientError(fmt.Errorf("malformed response: %w", err))
	}
	if resp.Error != "" {
		return "", NewTransientError(fmt.Errorf("completion service error: %s", resp.Error))
	}
	if resp.Value == "" {
		return "", NewTransientError(fmt.Errorf("completion service returned empty value"))
	}

	return resp.Value, nil
}
