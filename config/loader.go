// =============================================================================
// 📦 ImageFlow 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("IMAGEFLOW").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 ImageFlow 的完整配置结构
type Config struct {
	// Server 服务器配置
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Redis 限流后端配置 (addr 为空时使用内存限流)
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// RateLimit 每路由限流配置
	RateLimit RateLimitConfig `yaml:"rate_limit" env:"RATE_LIMIT"`

	// Providers 上游配置
	Providers ProvidersConfig `yaml:"providers" env:"PROVIDERS"`

	// Timeouts 路由超时
	Timeouts TimeoutsConfig `yaml:"timeouts" env:"TIMEOUTS"`

	// Limits 请求体与 prompt 限制
	Limits LimitsConfig `yaml:"limits" env:"LIMITS"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTP 端口
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// Metrics 端口
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时, 必须大于最长的路由超时
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// CORS 允许的来源, 为空时不输出 CORS 头
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
	// 是否信任 X-Forwarded-For / X-Real-IP
	TrustProxy bool `yaml:"trust_proxy" env:"TRUST_PROXY"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 地址, 为空表示不使用 Redis
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// key 前缀
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
	// 是否使用 TLS 连接
	TLS bool `yaml:"tls" env:"TLS"`
}

// RateLimitConfig 限流配置, 数值为每分钟请求数
type RateLimitConfig struct {
	// 后端: memory, redis
	Backend string `yaml:"backend" env:"BACKEND"`
	// 生成与 upscale
	Generate int `yaml:"generate" env:"GENERATE"`
	// prompt 优化
	Optimize int `yaml:"optimize" env:"OPTIMIZE"`
	// 视频任务创建
	Video int `yaml:"video" env:"VIDEO"`
	// 只读接口 (注册表、视频状态)
	Read int `yaml:"read" env:"READ"`
	// 全局每 IP 令牌桶, 0 表示关闭
	GlobalRPS   int `yaml:"global_rps" env:"GLOBAL_RPS"`
	GlobalBurst int `yaml:"global_burst" env:"GLOBAL_BURST"`
}

// ProvidersConfig 上游配置
type ProvidersConfig struct {
	// Gitee AI 基础 URL
	GiteeBaseURL string `yaml:"gitee_base_url" env:"GITEE_BASE_URL"`
	// Prompt 优化使用的模型
	OptimizeModel string `yaml:"optimize_model" env:"OPTIMIZE_MODEL"`
	// ModelScope 基础 URL
	ModelScopeBaseURL string `yaml:"modelscope_base_url" env:"MODELSCOPE_BASE_URL"`
	// HuggingFace space 覆盖 (model id → base URL), 仅支持 YAML
	HFSpaceURLs map[string]string `yaml:"hf_space_urls" env:"-"`
	// 上游 HTTP 超时
	HTTPTimeout time.Duration `yaml:"http_timeout" env:"HTTP_TIMEOUT"`
	// Upscaler space
	UpscalerSpaceURL string `yaml:"upscaler_space_url" env:"UPSCALER_SPACE_URL"`
	// Upscaler endpoint
	UpscalerEndpoint string `yaml:"upscaler_endpoint" env:"UPSCALER_ENDPOINT"`
	// upscale 允许的图片 host 后缀
	AllowedHosts []string `yaml:"allowed_hosts" env:"ALLOWED_HOSTS"`
}

// TimeoutsConfig 路由超时
type TimeoutsConfig struct {
	Generate    time.Duration `yaml:"generate" env:"GENERATE"`
	Upscale     time.Duration `yaml:"upscale" env:"UPSCALE"`
	VideoCreate time.Duration `yaml:"video_create" env:"VIDEO_CREATE"`
	VideoStatus time.Duration `yaml:"video_status" env:"VIDEO_STATUS"`
	Optimize    time.Duration `yaml:"optimize" env:"OPTIMIZE"`
	Read        time.Duration `yaml:"read" env:"READ"`
}

// LimitsConfig 请求限制
type LimitsConfig struct {
	// 默认请求体上限 (bytes)
	MaxBodyBytes int64 `yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`
	// 短文本路由请求体上限 (bytes)
	MaxShortBodyBytes int64 `yaml:"max_short_body_bytes" env:"MAX_SHORT_BODY_BYTES"`
	// 生成 prompt 最大字符数
	MaxPromptLength int `yaml:"max_prompt_length" env:"MAX_PROMPT_LENGTH"`
	// 优化 prompt 最大字符数
	MaxOptimizePromptLength int `yaml:"max_optimize_prompt_length" env:"MAX_OPTIMIZE_PROMPT_LENGTH"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "IMAGEFLOW",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			out := parts[:0]
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			field.Set(reflect.ValueOf(out))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		errs = append(errs, "invalid metrics port")
	}
	if c.Server.MetricsPort != 0 && c.Server.MetricsPort == c.Server.HTTPPort {
		errs = append(errs, "metrics port must differ from HTTP port")
	}

	switch c.RateLimit.Backend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			errs = append(errs, "redis rate limit backend requires redis.addr")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown rate limit backend %q", c.RateLimit.Backend))
	}
	for name, n := range map[string]int{
		"generate": c.RateLimit.Generate,
		"optimize": c.RateLimit.Optimize,
		"video":    c.RateLimit.Video,
		"read":     c.RateLimit.Read,
	} {
		if n <= 0 {
			errs = append(errs, fmt.Sprintf("rate_limit.%s must be positive", name))
		}
	}
	if c.RateLimit.GlobalRPS < 0 || c.RateLimit.GlobalBurst < 0 {
		errs = append(errs, "global rate limit must not be negative")
	}

	if c.Limits.MaxBodyBytes <= 0 || c.Limits.MaxShortBodyBytes <= 0 {
		errs = append(errs, "body limits must be positive")
	}
	if c.Limits.MaxPromptLength <= 0 || c.Limits.MaxOptimizePromptLength <= 0 {
		errs = append(errs, "prompt limits must be positive")
	}

	var longest time.Duration
	for _, d := range []time.Duration{c.Timeouts.Generate, c.Timeouts.Upscale, c.Timeouts.VideoCreate, c.Timeouts.VideoStatus, c.Timeouts.Optimize, c.Timeouts.Read} {
		if d <= 0 {
			errs = append(errs, "route timeouts must be positive")
			break
		}
		if d > longest {
			longest = d
		}
	}
	if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout <= longest {
		errs = append(errs, "server.write_timeout must exceed the longest route timeout")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
