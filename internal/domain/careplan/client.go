package careplan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/frat/frat/internal/platform/apperr"
)

const systemPrompt = "You are a helpful clinical AI. Always respond with valid JSON."

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = apperr.New(apperr.ErrUnavailable, "Care plan service is not configured")

// Completer sends a single prompt and returns the model's reply text.
type Completer interface {
	Complete(ctx context.Context, model Model, prompt string) (string, error)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.httpClient = c }
}

// WithRetryDelay sets the pause before the second attempt.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(cl *Client) { cl.retryDelay = d }
}

// Client talks to an OpenAI-compatible chat completions endpoint
// (OpenRouter by default). A failed attempt is retried once.
type Client struct {
	url            string
	apiKey         string
	attemptTimeout time.Duration
	retryDelay     time.Duration
	httpClient     *http.Client
	logger         zerolog.Logger
}

// NewClient creates a Client. attemptTimeout bounds each attempt.
func NewClient(url, apiKey string, attemptTimeout time.Duration, logger zerolog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		url:            url,
		apiKey:         apiKey,
		attemptTimeout: attemptTimeout,
		retryDelay:     time.Second,
		httpClient:     &http.Client{},
		logger:         logger.With().Str("component", "careplan").Logger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// permanentError marks a failure that a retry cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func (c *Client) Complete(ctx context.Context, model Model, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}
	body, err := json.Marshal(chatRequest{
		Model: model.Upstream(),
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", apperr.ErrUpstream, ctx.Err())
			case <-time.After(c.retryDelay):
			}
		}
		text, err := c.attempt(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		c.logger.Warn().Err(err).Int("attempt", attempt).Str("model", model.ID).Msg("care plan request failed")
		var perm *permanentError
		if errors.As(err, &perm) {
			break
		}
	}
	return "", fmt.Errorf("%w: model '%s' failed: %v", apperr.ErrUpstream, model.Upstream(), lastErr)
}

func (c *Client) attempt(ctx context.Context, body []byte) (string, error) {
	if c.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.attemptTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", &permanentError{err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Title", "FRAT Care Plan")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		err := fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return "", &permanentError{err: err}
		}
		return "", err
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("chat response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}
