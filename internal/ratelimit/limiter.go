// Package ratelimit bounds how many analyses a single client may request
// within a window.
package ratelimit

import (
	"context"
	"time"
)

// Limiter records one request for key and reports whether it is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Config defines rate limit rules
type Config struct {
	Requests int           // per window
	Window   time.Duration // fixed window length
}

// DefaultConfig returns default rate limit configuration
func DefaultConfig() Config {
	return Config{
		Requests: 10,
		Window:   time.Minute,
	}
}

// Disabled reports whether the config allows unlimited requests.
func (c Config) Disabled() bool {
	return c.Requests <= 0 || c.Window <= 0
}
