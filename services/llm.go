package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"essaycoach/config"

	"go.uber.org/zap"
)

// TextGenerator returns a JSON-formatted completion for a system/user prompt pair.
type TextGenerator interface {
	GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// GenerationOptions are the sampling settings shared by every provider.
type GenerationOptions struct {
	Model        string
	Temperature  float32
	MaxTokens    int
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// OptionsFromConfig maps the llm section onto GenerationOptions for provider.
func OptionsFromConfig(cfg *config.Config) GenerationOptions {
	opts := GenerationOptions{
		Model:        cfg.Openai.Model,
		Temperature:  cfg.LLM.Temperature,
		MaxTokens:    cfg.LLM.MaxTokens,
		Timeout:      cfg.LLM.Timeout,
		MaxRetries:   cfg.LLM.MaxRetries,
		RetryBackoff: cfg.LLM.RetryBackoff,
	}
	if cfg.LLM.Provider == config.ProviderGemini {
		opts.Model = cfg.Gemini.Model
	}
	return opts
}

// NewTextGenerator builds the configured provider. A provider without an
// API key still yields a generator; every call then fails with a config error.
func NewTextGenerator(ctx context.Context, cfg *config.Config, client HTTPClient, logger *zap.Logger) (TextGenerator, error) {
	opts := OptionsFromConfig(cfg)
	switch cfg.LLM.Provider {
	case config.ProviderOpenAI, "":
		return NewOpenAIClient(cfg.Openai.ApiKey, cfg.Openai.BaseURL, opts, client, logger), nil
	case config.ProviderGemini:
		if cfg.Gemini.ApiKey == "" {
			return unconfigured("Gemini API key not configured"), nil
		}
		return NewGeminiClient(ctx, cfg.Gemini.ApiKey, opts, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

type unconfigured string

func (u unconfigured) GenerateJSON(context.Context, string, string) (string, error) {
	return "", NewConfigError(string(u))
}

func cleanModelOutput(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// backoff returns the wait before retry attempt n (1-based).
func backoff(base time.Duration, n int) time.Duration {
	if base <= 0 {
		return 0
	}
	return base << uint(n-1)
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
