package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// APIKeyEnv is the environment variable consulted when Config.APIKey is
// empty. An explicit Config.APIKey always takes precedence.
const APIKeyEnv = "DEEPSEEK_API_KEY"

// Defaults applied to zero-valued Config fields.
const (
	DefaultModel       = "deepseek-chat"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 512
	DefaultTimeout     = 60 * time.Second
	DefaultMaxRetries  = 3
)

// decodeErrPrefixLen bounds the raw-body excerpt carried by DecodeError.
const decodeErrPrefixLen = 200

// maxBackoffUnits caps the exponential backoff at 8 units.
const maxBackoffUnits = 8

// Config holds the parameters for a single chat completion call. It is
// constructed once per call and never mutated by the client.
type Config struct {
	// Endpoint is the full URL of an OpenAI-compatible chat-completions
	// endpoint. Required.
	Endpoint string
	// APIKey is the bearer credential. If empty, it is resolved from the
	// APIKeyEnv environment variable at call entry.
	APIKey string
	// Model is the model identifier expected by the endpoint.
	Model string
	// Temperature controls output randomness. DefaultConfig sets 0.7;
	// a zero value built by hand is sent as-is.
	Temperature float64
	// MaxTokens bounds the generated output length.
	MaxTokens int
	// Timeout bounds each individual attempt, not the call as a whole.
	Timeout time.Duration
	// MaxRetries is the total attempt budget. Must be at least 1;
	// zero or negative falls back to DefaultMaxRetries.
	MaxRetries int
}

// DefaultConfig returns a Config for the given endpoint with the default
// generation and retry parameters.
func DefaultConfig(endpoint string) Config {
	return Config{
		Endpoint:    endpoint,
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		Timeout:     DefaultTimeout,
		MaxRetries:  DefaultMaxRetries,
	}
}

// withDefaults fills zero-valued fields. Temperature is left alone so an
// explicit 0.0 survives.
func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries < 1 {
		c.MaxRetries = DefaultMaxRetries
	}
	return c
}

// Doer issues a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client sends chat completion requests to an OpenAI-compatible endpoint,
// retrying transient failures with capped exponential backoff. The zero
// backoff unit is one second. A Client holds no per-call state and is safe
// for concurrent use.
type Client struct {
	httpClient  Doer
	sleep       func(ctx context.Context, d time.Duration) error
	backoffUnit time.Duration
}

// NewClient creates a new chat client.
func NewClient() *Client {
	return &Client{
		httpClient:  &http.Client{},
		sleep:       sleepContext,
		backoffUnit: time.Second,
	}
}

// chatRequest is the outbound chat-completions payload. No fields beyond
// these are ever sent.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// Chat sends one chat completion request, retrying transient failures up
// to cfg.MaxRetries attempts. It returns the decoded response body, or one
// of the classified errors from errors.go. Rate-limit (429) and transient
// server statuses (500, 502, 503, 504) are retried; every other error
// status is terminal on first occurrence. The messages sequence is sent
// verbatim.
func (c *Client) Chat(ctx context.Context, cfg Config, messages []Message) (Completion, error) {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv(APIKeyEnv)
	}
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	cfg = cfg.withDefaults()

	payload, err := json.Marshal(chatRequest{
		Model:       cfg.Model,
		Messages:    messages,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		status, body, err := c.doAttempt(ctx, cfg, key, payload)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			if attempt == cfg.MaxRetries {
				return nil, &TransportError{Err: err}
			}
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}

		if retriableStatus(status) {
			if attempt == cfg.MaxRetries {
				// A retriable status on the last attempt reports the
				// status itself, not a generic exhaustion failure.
				return nil, &StatusError{Code: status, Body: string(body)}
			}
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}

		if status >= 400 {
			return nil, &StatusError{Code: status, Body: string(body)}
		}

		var completion Completion
		if err := json.Unmarshal(body, &completion); err != nil {
			return nil, &DecodeError{Err: err, BodyPrefix: bodyPrefix(body)}
		}
		return completion, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetriesExhausted, lastErr)
	}
	return nil, ErrRetriesExhausted
}

// doAttempt performs one POST, bounded by cfg.Timeout, and returns the
// status code and fully read body. Any network-level failure is returned
// as-is for the caller to classify.
func (c *Client) doAttempt(ctx context.Context, cfg Config, key string, payload []byte) (int, []byte, error) {
	attemptCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

// retriableStatus reports whether another attempt is worth making for the
// given HTTP status: rate limiting or a transient server failure.
func retriableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// backoffDelay returns min(2^(attempt-1), 8) backoff units.
func (c *Client) backoffDelay(attempt int) time.Duration {
	units := maxBackoffUnits
	if attempt <= 4 {
		units = 1 << (attempt - 1)
	}
	return time.Duration(units) * c.backoffUnit
}

func (c *Client) backoff(ctx context.Context, attempt int) error {
	return c.sleep(ctx, c.backoffDelay(attempt))
}

// sleepContext blocks for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func bodyPrefix(body []byte) string {
	if len(body) > decodeErrPrefixLen {
		body = body[:decodeErrPrefixLen]
	}
	return string(body)
}
