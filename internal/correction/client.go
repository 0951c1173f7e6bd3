package correction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "http://localhost:8000/v1/chat/completions"
	defaultHTTPTimeout = 600 * time.Second
)

// Config captures the endpoint and sampling settings.
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	Temperature    float64
	TopK           int
	TopP           float64
	MaxTokens      int
	TimeoutSeconds int
}

// Client talks to an OpenAI-compatible chat completion endpoint such as the
// one vLLM serves next to each worker.
type Client struct {
	cfg   Config
	http  *http.Client
	retry retryPolicy
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithRetryMaxAttempts sets how many requests one chunk may cost (default 5).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) { c.retry.attempts = attempts }
}

// WithRetryBackoff sets the first retry delay and the cap it doubles towards.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retry.base = baseDelay
		c.retry.max = maxDelay
	}
}

// WithSleeper replaces the timer used between retries.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) { c.retry.sleeper = sleeper }
}

// NewClient constructs a correction client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg:   cfg,
		http:  &http.Client{Timeout: timeout},
		retry: defaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.cfg.Model }

// Correct sends one chunk through the model and returns the corrected text.
// Blank chunks are returned as-is without a request.
func (c *Client) Correct(ctx context.Context, chunk string) (string, error) {
	if strings.TrimSpace(chunk) == "" {
		return chunk, nil
	}
	return c.complete(ctx, "correct chunk", c.newRequest(SystemPrompt, chunk))
}

// HealthCheck issues a short prompt to verify the endpoint and model respond.
func (c *Client) HealthCheck(ctx context.Context) error {
	req := c.newRequest("You are a health probe.", healthPrompt)
	req.MaxTokens = 8
	_, err := c.complete(ctx, "health check", req)
	return err
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopK        int           `json:"top_k,omitempty"`
	TopP        float64       `json:"top_p,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		Text         string      `json:"text"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// reply returns the first non-blank choice and the first finish reason seen.
func (r chatCompletionResponse) reply() (string, string) {
	var finish string
	for _, choice := range r.Choices {
		if finish == "" {
			finish = choice.FinishReason
		}
		if text := strings.TrimSpace(choice.Message.Content); text != "" {
			return text, finish
		}
		if text := strings.TrimSpace(choice.Text); text != "" {
			return text, finish
		}
	}
	return "", finish
}

func (c *Client) newRequest(system, user string) chatCompletionRequest {
	return chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.cfg.Temperature,
		TopK:        c.cfg.TopK,
		TopP:        c.cfg.TopP,
		MaxTokens:   c.cfg.MaxTokens,
	}
}

func (c *Client) complete(ctx context.Context, op string, req chatCompletionRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("%s: encode request: %w", op, err)
	}

	for attempt := 1; ; attempt++ {
		text, err := c.post(ctx, body)
		if err == nil {
			return text, nil
		}
		delay, again := c.retry.next(ctx, err, attempt)
		if !again {
			if attempt == 1 {
				return "", fmt.Errorf("%s: %w", op, err)
			}
			return "", fmt.Errorf("%s: failed after %d attempts: %w", op, attempt, err)
		}
		if err := c.retry.wait(ctx, delay); err != nil {
			return "", err
		}
	}
}

// post performs one round trip and returns the trimmed reply text.
func (c *Client) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed (timeout=%s): %w", c.http.Timeout, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response (timeout=%s): %w", c.http.Timeout, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return "", &statusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw)), RetryAfter: retryAfter}
	}

	var decoded chatCompletionResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("api error: %s", strings.TrimSpace(decoded.Error.Message))
	}
	text, finish := decoded.reply()
	if text == "" {
		return "", &emptyReplyError{Choices: len(decoded.Choices), FinishReason: finish, Snippet: snippet(string(raw))}
	}
	return text, nil
}

func snippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	const limit = 160
	if runes := []rune(clean); len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return clean
}
