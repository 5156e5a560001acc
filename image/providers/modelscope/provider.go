// Package modelscope implements the ModelScope inference adapter.
package modelscope

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/imageflow/image"
	"github.com/BaSui01/imageflow/image/providers"
	"github.com/BaSui01/imageflow/types"
	"go.uber.org/zap"
)

const providerID = string(image.ProviderModelScope)

// minTokenLength is the shortest credential worth sending upstream.
const minTokenLength = 8

// Config configures the ModelScope adapter.
type Config struct {
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// DefaultConfig returns the default ModelScope configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://api-inference.modelscope.cn",
		Timeout: 120 * time.Second,
	}
}

// Provider talks to the ModelScope inference API.
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New creates a ModelScope adapter.
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
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
func (p *Provider) ID() image.ProviderID { return image.ProviderModelScope }

type generateRequest struct {
	Prompt   string   `json:"prompt"`
	Model    string   `json:"model"`
	Size     string   `json:"size"`
	Seed     int64    `json:"seed"`
	Steps    int      `json:"steps"`
	Guidance *float64 `json:"guidance,omitempty"`
}

// Generate creates an image.
// Endpoint: POST /v1/images/generations
// Auth: Bearer token
func (p *Provider) Generate(ctx context.Context, req *image.GenerateRequest) (*image.Result, error) {
	token := strings.TrimSpace(req.AuthToken)
	switch {
	case token == "":
		return nil, types.NewError(types.ErrAuthRequired, "ModelScope token is required").WithProvider(providerID)
	case len(token) < minTokenLength:
		return nil, types.NewError(types.ErrAuthInvalid, "ModelScope token is malformed").WithProvider(providerID)
	}

	model := req.Model
	if model == "" {
		model = image.DefaultModel(image.ProviderModelScope)
	}
	steps := req.Steps
	if steps == 0 {
		steps = image.DefaultSteps
	}
	seed := image.ResolveSeed(req.Seed)

	payload, err := json.Marshal(generateRequest{
		Prompt:   req.Prompt,
		Model:    model,
		Size:     image.FormatSize(req.Width, req.Height),
		Seed:     seed,
		Steps:    steps,
		Guidance: req.GuidanceScale,
	})
	if err != nil {
		return nil, types.NewError(types.ErrUnknown, "failed to encode request").WithCause(err)
	}

	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/images/generations"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.ErrUnknown, "failed to create request").WithCause(err)
	}
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, providers.TransportError(providerID, err)
	}
	defer resp.Body.Close()

	body, err := providers.ReadBody(resp.Body)
	if err != nil {
		return nil, providers.TransportError(providerID, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e := classify(resp.StatusCode, providers.UpstreamMessage(body))
		p.logger.Warn("upstream rejected request",
			zap.Int("status", resp.StatusCode),
			zap.String("code", string(e.Code)),
		)
		return nil, e
	}

	url := providers.FirstString(body, "images.0.url", "data.0.url")
	if url == "" {
		return nil, types.NewError(types.ErrGenerationFailed, "No image URL in ModelScope response").
			WithProvider(providerID).
			WithUpstream(providers.Truncate(string(body), 200))
	}
	return &image.Result{URL: url, Seed: seed}, nil
}

// classify maps a non-2xx ModelScope response into the taxonomy.
func classify(status int, message string) *types.Error {
	msg := strings.ToLower(message)

	var e *types.Error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e = types.NewError(types.ErrAuthInvalid, "ModelScope token is invalid")
	case status == http.StatusTooManyRequests || strings.Contains(msg, "rate limit"):
		e = types.NewError(types.ErrRateLimited, "ModelScope rate limit exceeded")
	case providers.ContainsAny(msg, "quota", "exceeded", "insufficient"):
		e = types.NewError(types.ErrQuotaExceeded, "ModelScope quota exceeded")
	case strings.Contains(msg, "expired"):
		e = types.NewError(types.ErrAuthExpired, "ModelScope token has expired")
	default:
		if message == "" {
			message = http.StatusText(status)
		}
		e = types.NewError(types.ErrProviderError, message)
	}
	return e.WithProvider(providerID).WithUpstream(providers.Truncate(message, 500))
}
