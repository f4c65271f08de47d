package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalLimiter keeps one token bucket per key in process memory. Buckets
// refill at Requests per Window and hold at most Requests tokens.
type LocalLimiter struct {
	mu      sync.Mutex
	config  Config
	entries map[string]*localEntry
	now     func() time.Time
}

func NewLocalLimiter(config Config) *LocalLimiter {
	return &LocalLimiter{
		config:  config,
		entries: map[string]*localEntry{},
		now:     time.Now,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, error) {
	if l.config.Disabled() {
		return true, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	e, ok := l.entries[key]
	if !ok {
		every := rate.Every(l.config.Window / time.Duration(l.config.Requests))
		e = &localEntry{limiter: rate.NewLimiter(every, l.config.Requests)}
		l.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1), nil
}

// sweep drops buckets idle for longer than a window; they would be full again.
func (l *LocalLimiter) sweep(now time.Time) {
	if len(l.entries) < 1024 {
		return
	}
	for k, e := range l.entries {
		if now.Sub(e.lastSeen) > l.config.Window {
			delete(l.entries, k)
		}
	}
}
