package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/imageflow/image"
	"github.com/BaSui01/imageflow/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🔍 Upscale Handler
// =============================================================================

// Upscaler 由 upscale.Upscaler 实现
type Upscaler interface {
	Upscale(ctx context.Context, rawURL string, scale int, token string) (string, error)
}

// UpscaleRequest POST /api/upscale 请求体。Scale 为 nil 时由 upscaler 使用默认倍数
type UpscaleRequest struct {
	URL   string `json:"url"`
	Scale *int   `json:"scale,omitempty"`
}

// URLResponse 只包含一个 URL 的响应
type URLResponse struct {
	URL string `json:"url"`
}

// UpscaleHandler 处理 upscale 请求
type UpscaleHandler struct {
	upscaler     Upscaler
	timeout      time.Duration
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewUpscaleHandler 创建 upscale 处理器
func NewUpscaleHandler(u Upscaler, timeout time.Duration, maxBodyBytes int64, logger *zap.Logger) *UpscaleHandler {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UpscaleHandler{
		upscaler:     u,
		timeout:      timeout,
		maxBodyBytes: maxBodyBytes,
		logger:       logger.With(zap.String("handler", "upscale")),
	}
}

// HandleUpscale 处理 POST /api/upscale
func (h *UpscaleHandler) HandleUpscale(w http.ResponseWriter, r *http.Request) {
	var body UpscaleRequest
	if err := DecodeJSONBody(w, r, &body, h.maxBodyBytes); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	body.URL = strings.TrimSpace(body.URL)
	if body.URL == "" {
		WriteError(w, types.NewError(types.ErrInvalidParams, "URL is required").WithField("url"), h.logger)
		return
	}

	// 显式传入的 scale (包括 0) 必须落在范围内
	scale := 0
	if body.Scale != nil {
		if v := image.ValidateScale(*body.Scale); !v.Valid {
			WriteError(w, v.Err(types.ErrInvalidParams), h.logger)
			return
		}
		scale = *body.Scale
	}

	token := Credential(r, "X-HF-Token")
	out, err := RunWithDeadline(r.Context(), h.timeout, func(ctx context.Context) (string, error) {
		return h.upscaler.Upscale(ctx, body.URL, scale, token)
	})
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, URLResponse{URL: out})
}
