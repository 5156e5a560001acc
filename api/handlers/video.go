package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BaSui01/imageflow/image"
	"github.com/BaSui01/imageflow/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🎬 图生视频 Handler
// =============================================================================

// VideoPollInterval 建议客户端轮询未完成任务的间隔
const VideoPollInterval = 5 * time.Second

// VideoService 由 gitee.Provider 实现
type VideoService interface {
	CreateVideoTask(ctx context.Context, req *image.VideoRequest) (string, error)
	VideoStatus(ctx context.Context, taskID, token string) (*image.VideoTask, error)
}

// VideoHandler 处理视频任务的创建与查询
type VideoHandler struct {
	service       VideoService
	createTimeout time.Duration
	statusTimeout time.Duration
	maxBodyBytes  int64
	logger        *zap.Logger
}

// VideoOptions 视频路由参数
type VideoOptions struct {
	CreateTimeout time.Duration
	StatusTimeout time.Duration
	MaxBodyBytes  int64
}

// NewVideoHandler 创建视频处理器
func NewVideoHandler(s VideoService, opts VideoOptions, logger *zap.Logger) *VideoHandler {
	if opts.CreateTimeout <= 0 {
		opts.CreateTimeout = 60 * time.Second
	}
	if opts.StatusTimeout <= 0 {
		opts.StatusTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VideoHandler{
		service:       s,
		createTimeout: opts.CreateTimeout,
		statusTimeout: opts.StatusTimeout,
		maxBodyBytes:  opts.MaxBodyBytes,
		logger:        logger.With(zap.String("handler", "video")),
	}
}

// HandleCreate 处理 POST /api/video/generate
func (h *VideoHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var body image.VideoRequest
	if err := DecodeJSONBody(w, r, &body, h.maxBodyBytes); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	body.AuthToken = Credential(r, giteeAuthHeader())

	taskID, err := RunWithDeadline(r.Context(), h.createTimeout, func(ctx context.Context) (string, error) {
		return h.service.CreateVideoTask(ctx, &body)
	})
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	h.logger.Info("video task created", zap.String("task_id", taskID))
	WriteJSON(w, http.StatusOK, image.VideoTask{TaskID: taskID, Status: image.VideoPending})
}

// HandleStatus 处理 GET /api/video/status/{taskId}，结果从不缓存
func (h *VideoHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(r.PathValue("taskId"))
	if taskID == "" {
		WriteError(w, types.NewError(types.ErrInvalidParams, "Task id is required").WithField("taskId"), h.logger)
		return
	}
	token := Credential(r, giteeAuthHeader())

	task, err := RunWithDeadline(r.Context(), h.statusTimeout, func(ctx context.Context) (*image.VideoTask, error) {
		return h.service.VideoStatus(ctx, taskID, token)
	})
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	if !task.Status.Terminal() {
		w.Header().Set("Retry-After", strconv.Itoa(int(VideoPollInterval/time.Second)))
	}
	WriteJSON(w, http.StatusOK, task)
}

func giteeAuthHeader() string {
	cfg, _ := image.LookupProvider(image.ProviderGitee)
	return cfg.AuthHeader
}
