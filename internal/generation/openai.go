package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAITimeout = 120 * time.Second
	defaultMaxRetries    = 2
	retryBaseDelay       = 500 * time.Millisecond
)

// OpenAIConfig configures an [OpenAIClient].
type OpenAIConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Headers    map[string]string
	Timeout    time.Duration
	MaxRetries int
}

// OpenAIClient speaks the OpenAI-compatible chat completions API. It works
// against any endpoint that implements the protocol, not just api.openai.com.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	model      string
	headers    map[string]string
	maxRetries int
	httpClient *http.Client
	logger     *slog.Logger
}

func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.Model == "" {
		return nil, errors.New("model is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultOpenAITimeout
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	return &OpenAIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		headers:    cfg.Headers,
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default().With("component", "openai-client"),
	}, nil
}

// Model implements [Client].
func (c *OpenAIClient) Model() string {
	return c.model
}

// Complete implements [Client]. Retries on 429 and 5xx responses with
// exponential backoff; all other failures are returned immediately.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := []map[string]string{}
	if req.System != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.System})
	}
	messages = append(messages, map[string]string{"role": "user", "content": req.User})

	oaiReq := map[string]any{
		"model":       model,
		"messages":    messages,
		"temperature": req.Temperature,
		"stream":      false,
	}
	if req.MaxTokens > 0 {
		oaiReq["max_tokens"] = req.MaxTokens
	}
	if req.ForceJSON {
		oaiReq["response_format"] = map[string]string{"type": "json_object"}
	}

	body, err := json.Marshal(oaiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			c.logger.DebugContext(ctx, "retrying completion", "attempt", attempt, "delay", delay)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, retryable, err := c.doOnce(ctx, body)
		if err == nil {
			resp.Model = model
			return resp, nil
		}

		lastErr = err

		if !retryable {
			return nil, err
		}
	}

	return nil, fmt.Errorf("completion failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *OpenAIClient) doOnce(ctx context.Context, body []byte) (*Response, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// transport failures may be transient
		return nil, true, err
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500 {
		return nil, true, &StatusError{Code: httpResp.StatusCode, Body: truncateBody(respBody)}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, false, &StatusError{Code: httpResp.StatusCode, Body: truncateBody(respBody)}
	}

	var oaiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage Usage `json:"usage"`
	}

	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		return nil, false, fmt.Errorf("decode response: %w", err)
	}

	if len(oaiResp.Choices) == 0 {
		return nil, false, errors.New("no choices in completion response")
	}

	return &Response{
		Content: oaiResp.Choices[0].Message.Content,
		Usage:   oaiResp.Usage,
	}, false, nil
}

// StatusError is a non-2xx response from the completions endpoint, kept
// typed so callers can map it to a failure category.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("completion request failed with status %d: %s", e.Code, e.Body)
}

func truncateBody(body []byte) string {
	const max = 512
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
