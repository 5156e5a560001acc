package ratelimit

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/BaSui01/imageflow/internal/tlsutil"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// =============================================================================
// 🗄️ Redis 限流
// =============================================================================

// RedisConfig Redis 连接配置
type RedisConfig struct {
	// Redis 地址, 为空时使用内存限流
	Addr string `yaml:"addr" json:"addr"`

	// 密码
	Password string `yaml:"password" json:"password"`

	// 数据库编号
	DB int `yaml:"db" json:"db"`

	// 连接池大小
	PoolSize int `yaml:"pool_size" json:"pool_size"`

	// key 前缀
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`

	// 是否使用 TLS 连接
	TLS bool `yaml:"tls" json:"tls"`
}

// fixedWindow increments the counter, starts the window on the first hit and
// returns {count, pttl}.
var fixedWindow = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisLimiter shares fixed windows across processes through Redis.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
	logger *zap.Logger
	now    func() time.Time
}

// NewRedisLimiter wraps an existing client.
func NewRedisLimiter(client redis.UniversalClient, prefix string, logger *zap.Logger) *RedisLimiter {
	if prefix == "" {
		prefix = "imageflow:rl:"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		logger: logger.With(zap.String("component", "ratelimit")),
		now:    time.Now,
	}
}

// DialRedis connects to Redis and verifies the connection.
func DialRedis(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (*RedisLimiter, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}
	if cfg.TLS {
		host, _, err := net.SplitHostPort(cfg.Addr)
		if err != nil {
			host = cfg.Addr
		}
		opts.TLSConfig = tlsutil.ClientConfig(host)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	l := NewRedisLimiter(client, cfg.KeyPrefix, logger)
	l.logger.Info("redis rate limiter initialized", zap.String("addr", cfg.Addr))
	return l, nil
}

// Allow implements Limiter.
func (r *RedisLimiter) Allow(ctx context.Context, key string, rule Rule) (Decision, error) {
	res, err := fixedWindow.Run(ctx, r.client, []string{r.prefix + key}, rule.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}

	count, ttl := int(res[0]), time.Duration(res[1])*time.Millisecond
	d := Decision{
		Limit:   rule.Limit,
		ResetAt: r.now().Add(ttl),
	}
	if count > rule.Limit {
		return d, nil
	}
	d.Allowed = true
	d.Remaining = rule.Limit - count
	return d, nil
}

// Close implements Limiter.
func (r *RedisLimiter) Close() error {
	return r.client.Close()
}

// Ping checks the backend; used by the readiness probe.
func (r *RedisLimiter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
