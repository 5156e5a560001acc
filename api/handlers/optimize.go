package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/BaSui01/imageflow/image/providers/gitee"
	"go.uber.org/zap"
)

// Optimizer 由 gitee.Provider 实现
type Optimizer interface {
	Optimize(ctx context.Context, req *gitee.OptimizeRequest) (string, error)
}

// PromptResponse POST /api/optimize 响应
type PromptResponse struct {
	Prompt string `json:"prompt"`
}

// OptimizeHandler 处理 prompt 优化
type OptimizeHandler struct {
	optimizer    Optimizer
	timeout      time.Duration
	maxBodyBytes int64
	maxPrompt    int
	logger       *zap.Logger
}

// NewOptimizeHandler 创建 prompt 优化处理器
func NewOptimizeHandler(o Optimizer, timeout time.Duration, maxBodyBytes int64, logger *zap.Logger) *OptimizeHandler {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OptimizeHandler{
		optimizer:    o,
		timeout:      timeout,
		maxBodyBytes: maxBodyBytes,
		logger:       logger.With(zap.String("handler", "optimize")),
	}
}

// WithMaxPromptLength 覆盖 prompt 最大长度
func (h *OptimizeHandler) WithMaxPromptLength(n int) *OptimizeHandler {
	h.maxPrompt = n
	return h
}

// HandleOptimize 处理 POST /api/optimize
func (h *OptimizeHandler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	var body gitee.OptimizeRequest
	if err := DecodeJSONBody(w, r, &body, h.maxBodyBytes); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	body.AuthToken = Credential(r, giteeAuthHeader())
	body.MaxPromptLength = h.maxPrompt

	out, err := RunWithDeadline(r.Context(), h.timeout, func(ctx context.Context) (string, error) {
		return h.optimizer.Optimize(ctx, &body)
	})
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, PromptResponse{Prompt: out})
}
