// Package huggingface implements the HuggingFace adapter on top of public
// Gradio spaces.
package huggingface

import (
	"context"
	"strings"
	"time"

	"github.com/BaSui01/imageflow/image"
	"github.com/BaSui01/imageflow/image/gradio"
	"github.com/BaSui01/imageflow/image/providers"
	"github.com/BaSui01/imageflow/types"
	"go.uber.org/zap"
)

const providerID = string(image.ProviderHuggingFace)

// Config configures the HuggingFace adapter.
type Config struct {
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// SpaceURLs overrides the base URL of a space, keyed by model id.
	SpaceURLs map[string]string `json:"space_urls,omitempty" yaml:"space_urls,omitempty"`
}

// Provider generates images through Gradio spaces. A credential is optional
// and only raises the caller's quota.
type Provider struct {
	cfg    Config
	gradio *gradio.Client
	logger *zap.Logger
}

// New creates a HuggingFace adapter.
func New(cfg Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("provider", providerID))
	return &Provider{
		cfg:    cfg,
		gradio: gradio.NewClient(providers.NewHTTPClient(cfg.Timeout), logger),
		logger: logger,
	}
}

// ID implements image.Provider.
func (p *Provider) ID() image.ProviderID { return image.ProviderHuggingFace }

func (p *Provider) baseURL(model string, s Space) string {
	if u, ok := p.cfg.SpaceURLs[model]; ok && u != "" {
		return u
	}
	return s.BaseURL
}

// Generate runs the model's space and returns the produced image.
func (p *Provider) Generate(ctx context.Context, req *image.GenerateRequest) (*image.Result, error) {
	model := req.Model
	if model == "" {
		model = image.DefaultModel(image.ProviderHuggingFace)
	}
	space, ok := LookupSpace(model)
	if !ok {
		return nil, types.NewError(types.ErrInvalidModel, "Unknown HuggingFace model: "+model).
			WithProvider(providerID).
			WithField("model")
	}

	// dispatch 已校验 steps；直接调用方未设置时与 HTTP 默认值一致
	steps := req.Steps
	if steps == 0 {
		steps = image.DefaultSteps
	}
	seed := image.ResolveSeed(req.Seed)

	out, err := p.gradio.Call(ctx, p.baseURL(model, space), space.Endpoint,
		space.Args(req, seed, steps), strings.TrimSpace(req.AuthToken))
	if err != nil {
		if e, ok := types.AsError(err); ok && e.Details.Provider == "" {
			e.WithProvider(providerID)
		}
		return nil, err
	}

	var url string
	if len(out) > 0 {
		url = gradio.ExtractURL(out[0])
	}
	if url == "" {
		return nil, types.NewError(types.ErrGenerationFailed, "No image URL in space response").
			WithProvider(providerID)
	}

	if len(out) > 1 {
		seed = seedFrom(out[1], space.SeedFromString, seed)
	}

	p.logger.Debug("space call completed", zap.String("model", model), zap.Int64("seed", seed))
	return &image.Result{URL: url, Seed: seed}, nil
}
