package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient initializes a Redis client and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

// windowScript counts one hit and arms the window TTL whenever the key has
// none, so a failed expire on an earlier hit cannot pin the counter.
const windowScript = `
local n = redis.call('INCR', KEYS[1])
if redis.call('PTTL', KEYS[1]) < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`

var incrWindow = redis.NewScript(windowScript)

// RedisLimiter is a fixed-window counter shared by every server instance.
type RedisLimiter struct {
	rdb    redis.Scripter
	config Config
	prefix string
}

func NewRedisLimiter(rdb redis.Scripter, config Config) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, config: config, prefix: "rate:coach:"}
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if rl == nil || rl.rdb == nil {
		return false, fmt.Errorf("Redis client not available")
	}
	if rl.config.Disabled() {
		return true, nil
	}

	count, err := incrWindow.Run(ctx, rl.rdb, []string{rl.prefix + key}, rl.config.Window.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return count <= int64(rl.config.Requests), nil
}
