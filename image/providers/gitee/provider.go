// Package gitee implements the Gitee AI adapter: text-to-image generation,
// image-to-video tasks and prompt optimization.
package gitee

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/imageflow/image"
	"github.com/BaSui01/imageflow/image/providers"
	"github.com/BaSui01/imageflow/types"
	"go.uber.org/zap"
)

const providerID = string(image.ProviderGitee)

// Config configures the Gitee AI adapter.
type Config struct {
	BaseURL       string        `json:"base_url" yaml:"base_url"`
	Timeout       time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	OptimizeModel string        `json:"optimize_model,omitempty" yaml:"optimize_model,omitempty"`
}

// DefaultConfig returns the default Gitee AI configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:       "https://ai.gitee.com",
		Timeout:       120 * time.Second,
		OptimizeModel: "Qwen2.5-72B-Instruct",
	}
}

// Provider talks to Gitee AI.
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New creates a Gitee AI adapter.
func New(cfg Config, logger *zap.Logger) *Provider {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.OptimizeModel == "" {
		cfg.OptimizeModel = def.OptimizeModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:    cfg,
		client: providers.NewHTTPClient(cfg.Timeout),
		logger: logger.With(zap.String("provider", providerID)),
	}
}

// ID implements image.Provider.
func (p *Provider) ID() image.ProviderID { return image.ProviderGitee }

type generateRequest struct {
	Prompt            string   `json:"prompt"`
	Model             string   `json:"model"`
	Width             int      `json:"width"`
	Height            int      `json:"height"`
	Seed              int64    `json:"seed"`
	NumInferenceSteps int      `json:"num_inference_steps"`
	ResponseFormat    string   `json:"response_format"`
	NegativePrompt    string   `json:"negative_prompt,omitempty"`
	GuidanceScale     *float64 `json:"guidance_scale,omitempty"`
}

// Generate creates an image.
// Endpoint: POST /v1/images/generations
// Auth: Bearer token
func (p *Provider) Generate(ctx context.Context, req *image.GenerateRequest) (*image.Result, error) {
	token := strings.TrimSpace(req.AuthToken)
	if token == "" {
		return nil, types.NewError(types.ErrAuthRequired, "Gitee AI API key is required").WithProvider(providerID)
	}

	model := req.Model
	if model == "" {
		model = image.DefaultModel(image.ProviderGitee)
	}
	steps := req.Steps
	if steps == 0 {
		steps = image.DefaultSteps
	}
	seed := image.ResolveSeed(req.Seed)

	body := generateRequest{
		Prompt:            req.Prompt,
		Model:             model,
		Width:             req.Width,
		Height:            req.Height,
		Seed:              seed,
		NumInferenceSteps: steps,
		ResponseFormat:    "url",
		NegativePrompt:    req.NegativePrompt,
		GuidanceScale:     req.GuidanceScale,
	}

	respBody, err := p.postJSON(ctx, "/v1/images/generations", token, body)
	if err != nil {
		return nil, err
	}

	url := providers.FirstString(respBody, "data.0.url", "images.0.url")
	if url == "" {
		return nil, types.NewError(types.ErrGenerationFailed, "No image URL in Gitee AI response").
			WithProvider(providerID).
			WithUpstream(providers.Truncate(string(respBody), 200))
	}

	return &image.Result{URL: url, Seed: seed}, nil
}

// postJSON sends a JSON body and returns the 2xx response body; anything else
// is classified.
func (p *Provider) postJSON(ctx context.Context, path, token string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, types.NewError(types.ErrUnknown, "failed to encode request").WithCause(err)
	}
	return p.do(ctx, http.MethodPost, path, token, "application/json", bytes.NewReader(data))
}

func (p *Provider) do(ctx context.Context, method, path, token, contentType string, body io.Reader) ([]byte, error) {
	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, types.NewError(types.ErrUnknown, "failed to create request").WithCause(err)
	}
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, providers.TransportError(providerID, err)
	}
	defer resp.Body.Close()

	respBody, err := providers.ReadBody(resp.Body)
	if err != nil {
		return nil, providers.TransportError(providerID, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e := classify(resp.StatusCode, providers.UpstreamMessage(respBody))
		p.logger.Warn("upstream rejected request",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("code", string(e.Code)),
		)
		return nil, e
	}
	return respBody, nil
}
