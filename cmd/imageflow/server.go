package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/BaSui01/imageflow/api/handlers"
	"github.com/BaSui01/imageflow/config"
	"github.com/BaSui01/imageflow/image/dispatch"
	"github.com/BaSui01/imageflow/image/providers/gitee"
	"github.com/BaSui01/imageflow/image/providers/huggingface"
	"github.com/BaSui01/imageflow/image/providers/modelscope"
	"github.com/BaSui01/imageflow/image/upscale"
	"github.com/BaSui01/imageflow/internal/metrics"
	"github.com/BaSui01/imageflow/internal/ratelimit"
	"github.com/BaSui01/imageflow/internal/server"
	"github.com/BaSui01/imageflow/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 ImageFlow 的主服务器，持有 API 与 metrics 两个监听
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	collector *metrics.Collector
	limiter   ratelimit.Limiter
	otel      *telemetry.Providers
	health    *handlers.HealthHandler
}

// NewServer 组装所有组件。ctx 控制后台 goroutine (限流清理) 的生命周期。
func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger, otelProviders *telemetry.Providers) (*Server, error) {
	s := &Server{
		cfg:       cfg,
		logger:    logger,
		otel:      otelProviders,
		collector: metrics.NewCollector("imageflow", logger),
		health:    handlers.NewHealthHandler(logger).WithCheckTimeout(cfg.Timeouts.Read),
	}

	limiter, err := s.initLimiter(ctx)
	if err != nil {
		return nil, err
	}
	s.limiter = limiter

	mux, err := s.routes()
	if err != nil {
		_ = limiter.Close()
		return nil, err
	}

	api := Chain(mux,
		Recovery(logger),
		RequestID(),
		ClientIP(cfg.Server.TrustProxy),
		SecurityHeaders(),
		RequestLogger(logger),
		CORS(cfg.Server.CORSAllowedOrigins),
		MetricsMiddleware(s.collector),
		OTelTracing(),
		FloodGuard(ctx, float64(cfg.RateLimit.GlobalRPS), cfg.RateLimit.GlobalBurst, s.collector),
	)

	httpCfg := server.DefaultConfig()
	httpCfg.Addr = fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	httpCfg.ReadTimeout = cfg.Server.ReadTimeout
	httpCfg.WriteTimeout = cfg.Server.WriteTimeout
	httpCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	s.httpManager = server.NewManager("api", api, httpCfg, logger)

	if cfg.Server.MetricsPort > 0 {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("GET /metrics", promhttp.Handler())
		metricsCfg := server.DefaultConfig()
		metricsCfg.Addr = fmt.Sprintf(":%d", cfg.Server.MetricsPort)
		metricsCfg.WriteTimeout = 30 * time.Second
		metricsCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
		s.metricsManager = server.NewManager("metrics", metricsMux, metricsCfg, logger)
	}

	return s, nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

func (s *Server) initLimiter(ctx context.Context) (ratelimit.Limiter, error) {
	if s.cfg.RateLimit.Backend != "redis" {
		s.logger.Info("using in-memory rate limiter")
		return ratelimit.NewMemoryLimiter(), nil
	}

	rl, err := ratelimit.DialRedis(ctx, ratelimit.RedisConfig{
		Addr:      s.cfg.Redis.Addr,
		Password:  s.cfg.Redis.Password,
		DB:        s.cfg.Redis.DB,
		PoolSize:  s.cfg.Redis.PoolSize,
		KeyPrefix: s.cfg.Redis.KeyPrefix,
		TLS:       s.cfg.Redis.TLS,
	}, s.logger)
	if err != nil {
		return nil, fmt.Errorf("init redis rate limiter: %w", err)
	}
	s.health.RegisterCheck(handlers.NewCheck("redis", rl.Ping))
	return rl, nil
}

// routes 构建上游适配器、handler 与路由表
func (s *Server) routes() (*http.ServeMux, error) {
	cfg := s.cfg
	p := cfg.Providers

	giteeProvider := gitee.New(gitee.Config{
		BaseURL:       p.GiteeBaseURL,
		Timeout:       p.HTTPTimeout,
		OptimizeModel: p.OptimizeModel,
	}, s.logger)
	hfProvider := huggingface.New(huggingface.Config{
		Timeout:   p.HTTPTimeout,
		SpaceURLs: p.HFSpaceURLs,
	}, s.logger)
	msProvider := modelscope.New(modelscope.Config{
		BaseURL: p.ModelScopeBaseURL,
		Timeout: p.HTTPTimeout,
	}, s.logger)
	upscaler := upscale.New(upscale.Config{
		SpaceURL:     p.UpscalerSpaceURL,
		Endpoint:     p.UpscalerEndpoint,
		Timeout:      p.HTTPTimeout,
		AllowedHosts: p.AllowedHosts,
	}, s.logger)

	dispatcher, err := dispatch.New(dispatch.Adapters{
		Gitee:       giteeProvider,
		HuggingFace: hfProvider,
		ModelScope:  msProvider,
	}, dispatch.WithRecorder(s.collector), dispatch.WithLogger(s.logger))
	if err != nil {
		return nil, fmt.Errorf("init dispatcher: %w", err)
	}

	lim := cfg.Limits
	to := cfg.Timeouts
	generateH := handlers.NewGenerateHandler(dispatcher, handlers.GenerateOptions{
		Timeout:         to.Generate,
		MaxBodyBytes:    lim.MaxBodyBytes,
		MaxPromptLength: lim.MaxPromptLength,
	}, s.logger)
	upscaleH := handlers.NewUpscaleHandler(instrumentedUpscaler{next: upscaler, rec: s.collector},
		to.Upscale, lim.MaxBodyBytes, s.logger)
	videoH := handlers.NewVideoHandler(instrumentedVideo{next: giteeProvider, rec: s.collector}, handlers.VideoOptions{
		CreateTimeout: to.VideoCreate,
		StatusTimeout: to.VideoStatus,
		MaxBodyBytes:  lim.MaxBodyBytes,
	}, s.logger)
	optimizeH := handlers.NewOptimizeHandler(instrumentedOptimizer{next: giteeProvider, rec: s.collector},
		to.Optimize, lim.MaxShortBodyBytes, s.logger).WithMaxPromptLength(lim.MaxOptimizePromptLength)

	rl := NewRouteLimiter(s.limiter, s.collector, s.logger)
	rates := cfg.RateLimit
	generateLimit := rl.Limit("generate", ratelimit.PerMinute(rates.Generate))
	optimizeLimit := rl.Limit("optimize", ratelimit.PerMinute(rates.Optimize))
	videoLimit := rl.Limit("video", ratelimit.PerMinute(rates.Video))
	readLimit := rl.Limit("read", ratelimit.PerMinute(rates.Read))
	body := BodyLimit(lim.MaxBodyBytes)
	shortBody := BodyLimit(lim.MaxShortBodyBytes)

	route := func(h http.HandlerFunc, mws ...Middleware) http.Handler {
		return Chain(h, mws...)
	}

	mux := http.NewServeMux()

	// 健康检查 (不限流)
	mux.HandleFunc("GET /health", s.health.HandleHealth)
	mux.HandleFunc("GET /healthz", s.health.HandleHealth)
	mux.HandleFunc("GET /ready", s.health.HandleReady)
	mux.HandleFunc("GET /version", handlers.HandleVersion(Version))

	// 生成与 upscale 共用 generate 配额
	mux.Handle("POST /api/generate", route(generateH.HandleGenerate, generateLimit, body))
	mux.Handle("POST /api/generate-hf", route(generateH.HandleGenerateHF, generateLimit, body))
	mux.Handle("POST /api/upscale", route(upscaleH.HandleUpscale, generateLimit, body))

	mux.Handle("POST /api/optimize", route(optimizeH.HandleOptimize, optimizeLimit, shortBody))

	mux.Handle("POST /api/video/generate", route(videoH.HandleCreate, videoLimit, body))
	mux.Handle("GET /api/video/status/{taskId}", route(videoH.HandleStatus, readLimit))

	// 注册表
	mux.Handle("GET /api/providers", route(handlers.HandleProviders, readLimit))
	mux.Handle("GET /api/models", route(handlers.HandleModels, readLimit))
	mux.Handle("GET /api/providers/{provider}/models", route(handlers.HandleProviderModels, readLimit))

	return mux, nil
}

// =============================================================================
// 🚀 运行与关闭
// =============================================================================

// Run 启动所有监听并阻塞到 ctx 结束或任一服务器失败
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting servers",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.String("rate_limit_backend", s.cfg.RateLimit.Backend),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.httpManager.Run(gctx) })
	if s.metricsManager != nil {
		g.Go(func() error { return s.metricsManager.Run(gctx) })
	}
	err := g.Wait()

	s.shutdown(context.WithoutCancel(ctx))
	return err
}

// shutdown 释放限流后端并刷新遥测数据
func (s *Server) shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := s.limiter.Close(); err != nil {
		s.logger.Warn("rate limiter close error", zap.Error(err))
	}
	if err := s.otel.Shutdown(ctx); err != nil {
		s.logger.Warn("telemetry shutdown error", zap.Error(err))
	}
	s.logger.Info("all servers stopped")
}
