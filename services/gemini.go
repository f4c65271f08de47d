package services

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient generates JSON completions through the Gemini API.
type GeminiClient struct {
	models geminiModels
	opts   GenerationOptions
	logger *zap.Logger
}

func initGemini(ctx context.Context, apiKey string) (*genai.Client, error) {
	config := &genai.ClientConfig{Backend: genai.BackendGeminiAPI}
	if apiKey != "" {
		config.APIKey = apiKey
	}
	return genai.NewClient(ctx, config)
}

// NewGeminiClient returns a config error when no API key is available.
func NewGeminiClient(ctx context.Context, apiKey string, opts GenerationOptions, logger *zap.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, NewConfigError("Gemini API key not configured")
	}
	client, err := initGemini(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return newGeminiClient(client.Models, opts, logger), nil
}

func newGeminiClient(models geminiModels, opts GenerationOptions, logger *zap.Logger) *GeminiClient {
	if opts.Model == "" {
		opts.Model = defaultGeminiModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiClient{models: models, opts: opts, logger: logger}
}

func (c *GeminiClient) GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(c.opts.Temperature),
		MaxOutputTokens:   int32(c.opts.MaxTokens),
		ResponseMIMEType:  "application/json",
	}

	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, backoff(c.opts.RetryBackoff, attempt)); err != nil {
				return "", NewUpstreamUnavailableError("Gemini API unavailable", err)
			}
			c.logger.Warn("retrying Gemini request", zap.Int("attempt", attempt), zap.Error(lastErr))
		}

		text, err := c.generate(ctx, userPrompt, config)
		if err == nil {
			if text == "" {
				return "", NewMalformedReplyError("no completion returned", nil)
			}
			return text, nil
		}

		c.logger.Error("Gemini API error", zap.Error(err))
		if !geminiRetryable(err) {
			return "", NewUpstreamError("Gemini API error", err)
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return "", NewUpstreamUnavailableError("Gemini API unavailable", lastErr)
}

func (c *GeminiClient) generate(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}
	resp, err := c.models.GenerateContent(ctx, c.opts.Model, genai.Text(prompt), config)
	if err != nil {
		return "", err
	}
	return cleanModelOutput(resp.Text()), nil
}

// geminiRetryable treats rate limits, server errors and transport failures as transient.
func geminiRetryable(err error) bool {
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	default:
		return !errors.Is(err, context.Canceled)
	}
	return code == http.StatusTooManyRequests || code >= 500
}
