package ratelimit

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 Key 测试
// =============================================================================

func TestKey(t *testing.T) {
	k := Key("generate", "secret-api-key", "10.0.0.1")
	assert.True(t, strings.HasPrefix(k, "generate:cred:"))
	assert.NotContains(t, k, "secret")
	assert.Len(t, strings.TrimPrefix(k, "generate:cred:"), credentialPrefixLen)
	assert.Equal(t, k, Key("generate", "secret-api-key", "10.0.0.2"), "credential key ignores ip")

	assert.Equal(t, "read:ip:10.0.0.1", Key("read", "", "10.0.0.1"))
	assert.NotEqual(t, Key("generate", "a", ""), Key("generate", "b", ""))
}

func TestDecision_RetryAfter(t *testing.T) {
	now := time.Unix(1000, 0)
	assert.Equal(t, 30, Decision{ResetAt: now.Add(30 * time.Second)}.RetryAfter(now))
	assert.Equal(t, 2, Decision{ResetAt: now.Add(1500 * time.Millisecond)}.RetryAfter(now))
	assert.Equal(t, 1, Decision{ResetAt: now.Add(-time.Second)}.RetryAfter(now))
}

// =============================================================================
// 🧪 MemoryLimiter 测试
// =============================================================================

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newMemory(clock *fakeClock) *MemoryLimiter {
	m := NewMemoryLimiter()
	m.now = clock.Now
	m.lastSweep = clock.Now()
	return m
}

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	m := newMemory(clock)
	ctx := context.Background()
	rule := PerMinute(3)

	for i := 0; i < 3; i++ {
		d, err := m.Allow(ctx, "k", rule)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := m.Allow(ctx, "k", rule)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, 60, d.RetryAfter(clock.Now()))

	clock.Advance(59 * time.Second)
	d, _ = m.Allow(ctx, "k", rule)
	assert.False(t, d.Allowed)
	assert.Equal(t, 1, d.RetryAfter(clock.Now()))

	clock.Advance(time.Second)
	d, _ = m.Allow(ctx, "k", rule)
	assert.True(t, d.Allowed, "window resets")
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	m := NewMemoryLimiter()
	ctx := context.Background()
	rule := PerMinute(1)

	d, _ := m.Allow(ctx, "a", rule)
	assert.True(t, d.Allowed)
	d, _ = m.Allow(ctx, "a", rule)
	assert.False(t, d.Allowed)
	d, _ = m.Allow(ctx, "b", rule)
	assert.True(t, d.Allowed)
}

func TestMemoryLimiter_LazySweep(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	m := newMemory(clock)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		_, _ = m.Allow(ctx, k, PerMinute(10))
	}
	assert.Equal(t, 3, m.Len())

	// Windows expired but no sweep yet.
	clock.Advance(2 * time.Minute)
	_, _ = m.Allow(ctx, "a", PerMinute(10))
	assert.Equal(t, 3, m.Len())

	clock.Advance(sweepInterval)
	_, _ = m.Allow(ctx, "d", PerMinute(10))
	assert.Equal(t, 1, m.Len())
}

func TestMemoryLimiter_Concurrent(t *testing.T) {
	m := NewMemoryLimiter()
	ctx := context.Background()
	rule := PerMinute(50)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := m.Allow(ctx, "shared", rule)
			if err == nil && d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}

// =============================================================================
// 🧪 RedisLimiter 测试
// =============================================================================

func setupRedis(t *testing.T) (*miniredis.Miniredis, *RedisLimiter) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	l, err := DialRedis(context.Background(), RedisConfig{Addr: mr.Addr()}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return mr, l
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	mr, l := setupRedis(t)
	ctx := context.Background()
	rule := PerMinute(2)

	d, err := l.Allow(ctx, "generate:ip:1.2.3.4", rule)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)

	d, err = l.Allow(ctx, "generate:ip:1.2.3.4", rule)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	d, err = l.Allow(ctx, "generate:ip:1.2.3.4", rule)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter(time.Now()), 0)

	assert.True(t, mr.Exists("imageflow:rl:generate:ip:1.2.3.4"))
	assert.Equal(t, time.Minute, mr.TTL("imageflow:rl:generate:ip:1.2.3.4"))

	mr.FastForward(time.Minute)
	d, err = l.Allow(ctx, "generate:ip:1.2.3.4", rule)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "window resets after expiry")
}

func TestRedisLimiter_CustomPrefix(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := NewRedisLimiter(client, "test:", nil)
	defer l.Close()

	_, err = l.Allow(context.Background(), "k", PerMinute(5))
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:k"))
}

func TestRedisLimiter_BackendDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	l := NewRedisLimiter(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}), "", nil)
	defer l.Close()
	mr.Close()

	_, err = l.Allow(context.Background(), "k", PerMinute(1))
	assert.Error(t, err)
}

func TestDialRedis_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = DialRedis(context.Background(), RedisConfig{Addr: addr}, nil)
	assert.Error(t, err)
}

func TestLimiter_InterfaceSatisfied(t *testing.T) {
	var _ Limiter = (*MemoryLimiter)(nil)
	var _ Limiter = (*RedisLimiter)(nil)
}

func TestRedisLimiter_Ping(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	l := NewRedisLimiter(client, "", nil)
	t.Cleanup(func() { _ = l.Close() })

	require.NoError(t, l.Ping(context.Background()))

	mr.Close()
	assert.Error(t, l.Ping(context.Background()))
}
