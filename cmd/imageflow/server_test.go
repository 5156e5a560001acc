package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/imageflow/api/handlers"
	"github.com/BaSui01/imageflow/config"
	"github.com/BaSui01/imageflow/image"
	"github.com/BaSui01/imageflow/image/providers/gitee"
	"github.com/BaSui01/imageflow/internal/ratelimit"
	"github.com/BaSui01/imageflow/types"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 上游调用计数
// =============================================================================

type upstreamCall struct{ op, code string }

type fakeRecorder struct {
	mu    sync.Mutex
	calls []upstreamCall
}

func (f *fakeRecorder) RecordUpstreamCall(op, code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, upstreamCall{op, code})
}

type stubUpstream struct{ err error }

func (s stubUpstream) Upscale(context.Context, string, int, string) (string, error) {
	return "https://example.hf.space/out.png", s.err
}

func (s stubUpstream) CreateVideoTask(context.Context, *image.VideoRequest) (string, error) {
	return "task-1", s.err
}

func (s stubUpstream) VideoStatus(_ context.Context, id, _ string) (*image.VideoTask, error) {
	return &image.VideoTask{TaskID: id, Status: image.VideoPending}, s.err
}

func (s stubUpstream) Optimize(context.Context, *gitee.OptimizeRequest) (string, error) {
	return "a detailed prompt", s.err
}

func TestInstrumentedWrappers(t *testing.T) {
	rec := &fakeRecorder{}
	ctx := context.Background()

	ok := stubUpstream{}
	_, _ = instrumentedUpscaler{next: ok, rec: rec}.Upscale(ctx, "u", 4, "")
	_, _ = instrumentedVideo{next: ok, rec: rec}.CreateVideoTask(ctx, &image.VideoRequest{})
	_, _ = instrumentedVideo{next: ok, rec: rec}.VideoStatus(ctx, "t", "")

	failing := stubUpstream{err: types.NewError(types.ErrAuthInvalid, "bad key")}
	_, err := instrumentedOptimizer{next: failing, rec: rec}.Optimize(ctx, &gitee.OptimizeRequest{Prompt: "cat"})
	assert.True(t, types.IsErrorCode(err, types.ErrAuthInvalid))

	plain := stubUpstream{err: errors.New("socket closed")}
	_, _ = instrumentedUpscaler{next: plain, rec: rec}.Upscale(ctx, "u", 4, "")

	assert.Equal(t, []upstreamCall{
		{"upscale", ""},
		{"video_create", ""},
		{"video_status", ""},
		{"optimize", "AUTH_INVALID"},
		{"upscale", "UNKNOWN"},
	}, rec.calls)
}

// =============================================================================
// 🧪 Server 组装
// =============================================================================

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Server.HTTPPort = 0
	cfg.Server.MetricsPort = 0
	cfg.Server.ShutdownTimeout = 2 * time.Second
	cfg.Log.Level = "error"
	return cfg
}

func TestInitLimiter_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig()
	cfg.RateLimit.Backend = "redis"
	cfg.Redis.Addr = mr.Addr()

	s := &Server{cfg: cfg, logger: zap.NewNop(), health: handlers.NewHealthHandler(nil)}
	l, err := s.initLimiter(context.Background())
	require.NoError(t, err)
	defer l.Close()

	d, err := l.Allow(context.Background(), "generate:ip:10.0.0.1", ratelimit.PerMinute(3))
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 2, d.Remaining)
}

func TestInitLimiter_RedisUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Backend = "redis"
	cfg.Redis.Addr = "127.0.0.1:1"

	s := &Server{cfg: cfg, logger: zap.NewNop(), health: handlers.NewHealthHandler(nil)}
	_, err := s.initLimiter(context.Background())
	assert.Error(t, err)
}

func TestServer_EndToEnd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := NewServer(ctx, testConfig(), zap.NewNop(), nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	require.Eventually(t, srv.httpManager.IsRunning, 2*time.Second, 10*time.Millisecond)
	_, port, err := net.SplitHostPort(srv.httpManager.Addr())
	require.NoError(t, err)
	base := "http://127.0.0.1:" + port
	client := &http.Client{Timeout: 5 * time.Second}

	t.Run("health", func(t *testing.T) {
		resp, err := client.Get(base + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	})

	t.Run("providers", func(t *testing.T) {
		resp, err := client.Get(base + "/api/providers")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "60", resp.Header.Get("X-RateLimit-Limit"))

		var body handlers.ProvidersResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Len(t, body.Providers, 3)
	})

	t.Run("generate without key", func(t *testing.T) {
		resp, err := client.Post(base+"/api/generate", "application/json", strings.NewReader(`{"prompt":"a cat"}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		var body handlers.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, types.ErrAuthRequired, body.Code)
	})

	t.Run("unknown provider models", func(t *testing.T) {
		resp, err := client.Get(base + "/api/providers/midjourney/models")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("method not allowed", func(t *testing.T) {
		resp, err := client.Get(base + "/api/generate")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.False(t, srv.httpManager.IsRunning())
}
