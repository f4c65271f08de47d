package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScripter evaluates windowScript in memory.
type fakeScripter struct {
	counts map[string]int64
	ttls   map[string]int64
	keys   []string
	args   []interface{}
	err    error
}

func newFakeScripter() *fakeScripter {
	return &fakeScripter{counts: map[string]int64{}, ttls: map[string]int64{}}
}

func (f *fakeScripter) EvalSha(ctx context.Context, sha string, keys []string, args ...interface{}) *redis.Cmd {
	cmd := redis.NewCmd(ctx)
	f.keys, f.args = keys, args
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	k := keys[0]
	f.counts[k]++
	if _, ok := f.ttls[k]; !ok {
		f.ttls[k] = args[0].(int64)
	}
	cmd.SetVal(f.counts[k])
	return cmd
}

func (f *fakeScripter) Eval(ctx context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return f.EvalSha(ctx, "", keys, args...)
}

func (f *fakeScripter) EvalRO(ctx context.Context, s string, keys []string, args ...interface{}) *redis.Cmd {
	return f.Eval(ctx, s, keys, args...)
}

func (f *fakeScripter) EvalShaRO(ctx context.Context, s string, keys []string, args ...interface{}) *redis.Cmd {
	return f.EvalSha(ctx, s, keys, args...)
}

func (f *fakeScripter) ScriptExists(ctx context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceCmd(ctx)
}

func (f *fakeScripter) ScriptLoad(ctx context.Context, script string) *redis.StringCmd {
	return redis.NewStringCmd(ctx)
}

// expire drops the key the way Redis does once its TTL elapses.
func (f *fakeScripter) expire(key string) {
	delete(f.counts, key)
	delete(f.ttls, key)
}

func TestRedisLimiterFixedWindow(t *testing.T) {
	rdb := newFakeScripter()
	rl := NewRedisLimiter(rdb, Config{Requests: 2, Window: 30 * time.Second})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := rl.Allow(ctx, "ip:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, err := rl.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []string{"rate:coach:ip:1.2.3.4"}, rdb.keys)
	assert.Equal(t, []interface{}{int64(30000)}, rdb.args)

	rdb.expire("rate:coach:ip:1.2.3.4")
	ok, err = rl.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok, "new window")
}

func TestRedisLimiterRearmsMissingTTL(t *testing.T) {
	assert.Contains(t, windowScript, "PTTL")
	assert.Contains(t, windowScript, "PEXPIRE")

	rdb := newFakeScripter()
	rdb.counts["rate:coach:user:u1"] = 5
	rl := NewRedisLimiter(rdb, Config{Requests: 10, Window: time.Minute})

	_, err := rl.Allow(context.Background(), "user:u1")
	require.NoError(t, err)
	assert.Equal(t, int64(60000), rdb.ttls["rate:coach:user:u1"])
}

func TestRedisLimiterErrorsAndDisabled(t *testing.T) {
	rdb := newFakeScripter()
	rdb.err = errors.New("connection refused")

	_, err := NewRedisLimiter(rdb, DefaultConfig()).Allow(context.Background(), "k")
	assert.EqualError(t, err, "connection refused")

	ok, err := NewRedisLimiter(rdb, Config{}).Allow(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
}
