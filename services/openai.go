package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIRequest struct {
	Model          string               `json:"model"`
	Messages       []openAIMessage      `json:"messages"`
	ResponseFormat openAIResponseFormat `json:"response_format"`
	Temperature    float32              `json:"temperature"`
	MaxTokens      int                  `json:"max_tokens"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// OpenAIClient calls the chat completions endpoint in JSON mode.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	opts    GenerationOptions
	client  HTTPClient
	logger  *zap.Logger
}

func NewOpenAIClient(apiKey, baseURL string, opts GenerationOptions, client HTTPClient, logger *zap.Logger) *OpenAIClient {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		opts:    opts,
		client:  client,
		logger:  logger,
	}
}

// errRetryable marks an attempt failure that may succeed on retry.
type errRetryable struct{ err error }

func (e errRetryable) Error() string { return e.err.Error() }
func (e errRetryable) Unwrap() error { return e.err }

func (c *OpenAIClient) GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.apiKey == "" {
		return "", NewConfigError("OpenAI API key not configured")
	}

	payload, err := json.Marshal(openAIRequest{
		Model: c.opts.Model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		ResponseFormat: openAIResponseFormat{Type: "json_object"},
		Temperature:    c.opts.Temperature,
		MaxTokens:      c.opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, backoff(c.opts.RetryBackoff, attempt)); err != nil {
				return "", NewUpstreamUnavailableError("OpenAI API unavailable", err)
			}
			c.logger.Warn("retrying OpenAI request", zap.Int("attempt", attempt), zap.Error(lastErr))
		}

		content, err := c.attempt(ctx, payload)
		if err == nil {
			return content, nil
		}
		var re errRetryable
		if !errors.As(err, &re) {
			return "", err
		}
		lastErr = re.err
		if ctx.Err() != nil {
			break
		}
	}

	c.logger.Error("OpenAI API retries exhausted", zap.Error(lastErr))
	return "", NewUpstreamUnavailableError("OpenAI API unavailable", lastErr)
}

func (c *OpenAIClient) attempt(ctx context.Context, payload []byte) (string, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errRetryable{fmt.Errorf("request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errRetryable{fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		c.logger.Error("OpenAI API error", zap.Int("status", resp.StatusCode), zap.ByteString("body", body))
		return "", errRetryable{fmt.Errorf("OpenAI API error: %s", http.StatusText(resp.StatusCode))}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("OpenAI API error", zap.Int("status", resp.StatusCode), zap.ByteString("body", body))
		return "", NewUpstreamError(fmt.Sprintf("OpenAI API error: %s", http.StatusText(resp.StatusCode)), nil)
	}

	var parsed openAIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", NewMalformedReplyError("invalid response from OpenAI API", err)
	}
	if len(parsed.Choices) == 0 {
		return "", NewMalformedReplyError("no completion returned", nil)
	}
	return cleanModelOutput(parsed.Choices[0].Message.Content), nil
}
