// =============================================================================
// 📦 ImageFlow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Redis:     DefaultRedisConfig(),
		RateLimit: DefaultRateLimitConfig(),
		Providers: DefaultProvidersConfig(),
		Timeouts:  DefaultTimeoutsConfig(),
		Limits:    DefaultLimitsConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    150 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "imageflow",
		SampleRate:   0.1,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:      "",
		DB:        0,
		PoolSize:  10,
		KeyPrefix: "imageflow:rl:",
	}
}

// DefaultRateLimitConfig 返回默认限流配置
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Backend:     "memory",
		Generate:    10,
		Optimize:    20,
		Video:       5,
		Read:        60,
		GlobalRPS:   20,
		GlobalBurst: 40,
	}
}

// DefaultProvidersConfig 返回默认上游配置
func DefaultProvidersConfig() ProvidersConfig {
	return ProvidersConfig{
		GiteeBaseURL:      "https://ai.gitee.com",
		OptimizeModel:     "Qwen2.5-72B-Instruct",
		ModelScopeBaseURL: "https://api-inference.modelscope.cn",
		HTTPTimeout:       120 * time.Second,
		UpscalerSpaceURL:  "https://tuan2308-upscaler.hf.space",
		UpscalerEndpoint:  "realesrgan",
		AllowedHosts: []string{
			".hf.space",
			"huggingface.co",
			".gitee.com",
			"gitee-ai.su.bcebos.com",
			".modelscope.cn",
			"muse-ai.oss-cn-hangzhou.aliyuncs.com",
		},
	}
}

// DefaultTimeoutsConfig 返回默认路由超时
func DefaultTimeoutsConfig() TimeoutsConfig {
	return TimeoutsConfig{
		Generate:    120 * time.Second,
		Upscale:     120 * time.Second,
		VideoCreate: 60 * time.Second,
		VideoStatus: 30 * time.Second,
		Optimize:    60 * time.Second,
		Read:        10 * time.Second,
	}
}

// DefaultLimitsConfig 返回默认请求限制
func DefaultLimitsConfig() LimitsConfig {
	return LimitsConfig{
		MaxBodyBytes:            50 << 10,
		MaxShortBodyBytes:       20 << 10,
		MaxPromptLength:         4000,
		MaxOptimizePromptLength: 10000,
	}
}
