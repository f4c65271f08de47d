package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	LLM struct {
		Provider     string        `yaml:"provider"`
		Temperature  float32       `yaml:"temperature"`
		MaxTokens    int           `yaml:"maxTokens"`
		Timeout      time.Duration `yaml:"timeout"`
		MaxRetries   int           `yaml:"maxRetries"`
		RetryBackoff time.Duration `yaml:"retryBackoff"`
	} `yaml:"llm"`

	Openai struct {
		ApiKey  string `yaml:"apiKey"`
		BaseURL string `yaml:"baseUrl"`
		Model   string `yaml:"model"`
	} `yaml:"openai"`

	Gemini struct {
		ApiKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"gemini"`

	Persistence struct {
		Driver string `yaml:"driver"`
	} `yaml:"persistence"`

	Supabase struct {
		URL            string `yaml:"url"`
		ServiceRoleKey string `yaml:"serviceRoleKey"`
		Table          string `yaml:"table"`
	} `yaml:"supabase"`

	Database struct {
		URI string `yaml:"uri"`
	} `yaml:"database"`

	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	RateLimit struct {
		Requests int           `yaml:"requests"`
		Window   time.Duration `yaml:"window"`
	} `yaml:"rateLimit"`

	Auth struct {
		JWTSecret string `yaml:"jwtSecret"`
		Required  bool   `yaml:"required"`
	} `yaml:"auth"`
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	DriverNone     = "none"
	DriverSupabase = "supabase"
	DriverMongo    = "mongo"
	DriverSQLite   = "sqlite"
)

// LoadConfig reads the configuration file. A missing file is not an error;
// defaults and environment overrides still apply.
func LoadConfig(path string) (*Config, error) {
	cfg := newConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.ApplyEnv(os.Getenv)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// newConfig seeds the fields whose zero value is a valid setting, so a file
// that sets them to 0 keeps 0.
func newConfig() Config {
	var cfg Config
	cfg.LLM.MaxRetries = 2
	cfg.RateLimit.Requests = 10
	return cfg
}

// ApplyEnv overlays the process-level secrets and endpoints onto cfg.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Openai.ApiKey, "OPENAI_API_KEY")
	set(&c.Gemini.ApiKey, "GEMINI_API_KEY")
	set(&c.Supabase.URL, "SUPABASE_URL")
	set(&c.Supabase.ServiceRoleKey, "SUPABASE_SERVICE_ROLE_KEY")
	set(&c.Auth.JWTSecret, "SUPABASE_JWT_SECRET")
	set(&c.Database.URI, "MONGODB_URI")
	set(&c.Redis.Addr, "REDIS_ADDR")

	if v := getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

// ApplyDefaults fills unset fields. llm.maxRetries and rateLimit.requests are
// left alone: 0 means no retries and no rate limit.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderOpenAI
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 2000
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 60 * time.Second
	}
	if c.LLM.RetryBackoff == 0 {
		c.LLM.RetryBackoff = 500 * time.Millisecond
	}
	if c.Openai.BaseURL == "" {
		c.Openai.BaseURL = "https://api.openai.com/v1"
	}
	if c.Openai.Model == "" {
		c.Openai.Model = "gpt-4-turbo-preview"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-flash"
	}
	if c.Persistence.Driver == "" {
		c.Persistence.Driver = DriverNone
		if c.Supabase.URL != "" && c.Supabase.ServiceRoleKey != "" {
			c.Persistence.Driver = DriverSupabase
		}
	}
	if c.Supabase.Table == "" {
		c.Supabase.Table = "coach_analyses"
	}
	if c.SQLite.Path == "" {
		c.SQLite.Path = "essaycoach.db"
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Minute
	}
}

func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}

	switch c.Persistence.Driver {
	case DriverNone:
	case DriverSupabase:
		if c.Supabase.URL == "" || c.Supabase.ServiceRoleKey == "" {
			return errors.New("supabase persistence requires url and service role key")
		}
	case DriverMongo:
		if c.Database.URI == "" {
			return errors.New("mongo persistence requires database.uri")
		}
	case DriverSQLite:
	default:
		return fmt.Errorf("unknown persistence driver %q", c.Persistence.Driver)
	}

	if c.LLM.MaxRetries < 0 {
		return errors.New("llm.maxRetries must not be negative")
	}
	if c.RateLimit.Requests < 0 {
		return errors.New("rateLimit.requests must not be negative")
	}
	return nil
}
