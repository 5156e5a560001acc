package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/imageflow/image"
	"github.com/BaSui01/imageflow/image/dispatch"
	"go.uber.org/zap"
)

// =============================================================================
// 🎨 图像生成 Handler
// =============================================================================

// Generator 由 dispatch.Dispatcher 实现
type Generator interface {
	Generate(ctx context.Context, req *dispatch.Request) (*image.ImageDetails, error)
}

// GenerateResponse 生成成功响应
type GenerateResponse struct {
	ImageDetails *image.ImageDetails `json:"imageDetails"`
}

// GenerateHandler 处理 /api/generate 与 /api/generate-hf
type GenerateHandler struct {
	generator       Generator
	timeout         time.Duration
	maxBodyBytes    int64
	maxPromptLength int
	logger          *zap.Logger
}

// GenerateOptions 生成路由参数
type GenerateOptions struct {
	Timeout         time.Duration
	MaxBodyBytes    int64
	MaxPromptLength int
}

// NewGenerateHandler 创建生成处理器
func NewGenerateHandler(g Generator, opts GenerateOptions, logger *zap.Logger) *GenerateHandler {
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.MaxPromptLength <= 0 {
		opts.MaxPromptLength = image.MaxPromptLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerateHandler{
		generator:       g,
		timeout:         opts.Timeout,
		maxBodyBytes:    opts.MaxBodyBytes,
		maxPromptLength: opts.MaxPromptLength,
		logger:          logger.With(zap.String("handler", "generate")),
	}
}

// generateBody 是生成路由的请求体。数值字段用指针区分 "未传" 与 "显式传 0"，
// 只有未传时才填默认值。
type generateBody struct {
	Provider       string   `json:"provider"`
	Model          string   `json:"model"`
	Prompt         string   `json:"prompt"`
	NegativePrompt string   `json:"negativePrompt,omitempty"`
	Width          *int     `json:"width,omitempty"`
	Height         *int     `json:"height,omitempty"`
	Steps          *int     `json:"steps,omitempty"`
	Seed           *int64   `json:"seed,omitempty"`
	GuidanceScale  *float64 `json:"guidanceScale,omitempty"`
}

// toRequest 填充默认值: 1024x1024, 9 steps。凭证只来自 header，不在这里设置。
func (b generateBody) toRequest() image.GenerateRequest {
	return image.GenerateRequest{
		Provider:       b.Provider,
		Model:          b.Model,
		Prompt:         b.Prompt,
		NegativePrompt: b.NegativePrompt,
		Width:          intOr(b.Width, image.DefaultWidth),
		Height:         intOr(b.Height, image.DefaultHeight),
		Steps:          intOr(b.Steps, image.DefaultSteps),
		Seed:           b.Seed,
		GuidanceScale:  b.GuidanceScale,
	}
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

// HandleGenerate 处理 POST /api/generate
func (h *GenerateHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var body generateBody
	if err := DecodeJSONBody(w, r, &body, h.maxBodyBytes); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	if strings.TrimSpace(body.Provider) == "" {
		body.Provider = string(image.DefaultProvider)
	}
	h.serve(w, r, body.toRequest())
}

// HandleGenerateHF 处理 POST /api/generate-hf，固定 HuggingFace，凭证可选
func (h *GenerateHandler) HandleGenerateHF(w http.ResponseWriter, r *http.Request) {
	var body generateBody
	if err := DecodeJSONBody(w, r, &body, h.maxBodyBytes); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	body.Provider = string(image.ProviderHuggingFace)
	h.serve(w, r, body.toRequest())
}

func (h *GenerateHandler) serve(w http.ResponseWriter, r *http.Request, body image.GenerateRequest) {
	var header string
	if id, ok := image.ParseProviderID(body.Provider); ok {
		cfg, _ := image.LookupProvider(id)
		header = cfg.AuthHeader
	}

	req := &dispatch.Request{
		Provider:        body.Provider,
		Body:            body,
		Credential:      Credential(r, header),
		MaxPromptLength: h.maxPromptLength,
	}

	details, err := RunWithDeadline(r.Context(), h.timeout, func(ctx context.Context) (*image.ImageDetails, error) {
		return h.generator.Generate(ctx, req)
	})
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, GenerateResponse{ImageDetails: details})
}
