// Package upscale enlarges previously generated images through a Gradio
// upscaler space.
package upscale

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/BaSui01/imageflow/image"
	"github.com/BaSui01/imageflow/image/gradio"
	"github.com/BaSui01/imageflow/image/providers"
	"github.com/BaSui01/imageflow/types"
	"go.uber.org/zap"
)

// DefaultScale is used when the caller does not pick one.
const DefaultScale = 4

// upscaler space 托管在 HuggingFace
const providerID = string(image.ProviderHuggingFace)

// Config configures the upscaler.
type Config struct {
	SpaceURL string        `json:"space_url" yaml:"space_url"`
	Endpoint string        `json:"endpoint" yaml:"endpoint"`
	Timeout  time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// AllowedHosts are host suffixes an input URL must match.
	AllowedHosts []string `json:"allowed_hosts" yaml:"allowed_hosts"`
}

// DefaultConfig returns the default upscaler configuration.
func DefaultConfig() Config {
	return Config{
		SpaceURL: "https://tuan2308-upscaler.hf.space",
		Endpoint: "realesrgan",
		Timeout:  120 * time.Second,
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

// Upscaler calls the upscaler space.
type Upscaler struct {
	cfg    Config
	gradio *gradio.Client
	logger *zap.Logger
}

// New creates an Upscaler. Empty fields fall back to DefaultConfig.
func New(cfg Config, logger *zap.Logger) *Upscaler {
	def := DefaultConfig()
	if cfg.SpaceURL == "" {
		cfg.SpaceURL = def.SpaceURL
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if len(cfg.AllowedHosts) == 0 {
		cfg.AllowedHosts = def.AllowedHosts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "upscale"))
	return &Upscaler{
		cfg:    cfg,
		gradio: gradio.NewClient(providers.NewHTTPClient(cfg.Timeout), logger),
		logger: logger,
	}
}

// Allowed reports whether rawURL points at a recognised upstream host.
func (u *Upscaler) Allowed(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "https" && parsed.Scheme != "http") {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return false
	}
	for _, allowed := range u.cfg.AllowedHosts {
		allowed = strings.ToLower(allowed)
		if strings.HasPrefix(allowed, ".") {
			if strings.HasSuffix(host, allowed) {
				return true
			}
			continue
		}
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

// Upscale enlarges the image at rawURL by scale (0 means DefaultScale) and
// returns the new image URL.
func (u *Upscaler) Upscale(ctx context.Context, rawURL string, scale int, token string) (string, error) {
	if !u.Allowed(rawURL) {
		return "", types.NewError(types.ErrInvalidParams, "URL not allowed").WithField("url")
	}
	if scale == 0 {
		scale = DefaultScale
	}
	if v := image.ValidateScale(scale); !v.Valid {
		return "", v.Err(types.ErrInvalidParams)
	}

	args := []any{
		map[string]any{"url": rawURL, "meta": map[string]any{"_type": "gradio.FileData"}},
		scale,
	}
	out, err := u.gradio.Call(ctx, u.cfg.SpaceURL, u.cfg.Endpoint, args, strings.TrimSpace(token))
	if err != nil {
		if e, ok := types.AsError(err); ok && e.Details.Provider == "" {
			e.WithProvider(providerID)
		}
		return "", err
	}

	var result string
	if len(out) > 0 {
		result = gradio.ExtractURL(out[0])
	}
	if result == "" {
		return "", types.NewError(types.ErrGenerationFailed, "No image URL in upscaler response").
			WithProvider(providerID)
	}
	u.logger.Debug("image upscaled", zap.Int("scale", scale))
	return result, nil
}
