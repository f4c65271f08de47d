package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "gpt-4-turbo-preview", cfg.Openai.Model)
	assert.Equal(t, float32(0.7), cfg.LLM.Temperature)
	assert.Equal(t, 2000, cfg.LLM.MaxTokens)
	assert.Equal(t, DriverNone, cfg.Persistence.Driver)
	assert.Equal(t, "coach_analyses", cfg.Supabase.Table)
	assert.Equal(t, 2, cfg.LLM.MaxRetries)
	assert.Equal(t, 10, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
}

func TestLoadConfigKeepsExplicitZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	yml := `
llm:
  maxRetries: 0
rateLimit:
  requests: 0
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.LLM.MaxRetries)
	assert.Equal(t, 0, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window, "unset fields still default")
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
}

func TestLoadConfigRejectsNegativeRetries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  maxRetries: -1\n"), 0o600))
	t.Setenv("SUPABASE_URL", "")

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	yml := `
server:
  port: 9090
llm:
  provider: gemini
  timeout: 5s
persistence:
  driver: supabase
supabase:
  url: https://example.supabase.co
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service-key")
	t.Setenv("PORT", "")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "service-key", cfg.Supabase.ServiceRoleKey)
}

func TestSupabaseDriverInferredFromEnv(t *testing.T) {
	var cfg Config
	env := map[string]string{
		"SUPABASE_URL":              "https://example.supabase.co",
		"SUPABASE_SERVICE_ROLE_KEY": "k",
		"PORT":                      "7000",
	}
	cfg.ApplyEnv(func(k string) string { return env[k] })
	cfg.ApplyDefaults()

	assert.Equal(t, DriverSupabase, cfg.Persistence.Driver)
	assert.Equal(t, 7000, cfg.Server.Port)
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	cfg.LLM.Provider = "anthropic"
	assert.Error(t, cfg.Validate())

	cfg.LLM.Provider = ProviderOpenAI
	cfg.Persistence.Driver = "postgres"
	assert.Error(t, cfg.Validate())

	cfg.Persistence.Driver = DriverMongo
	assert.Error(t, cfg.Validate(), "mongo without uri")
}
