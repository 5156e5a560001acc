package gitee

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/BaSui01/imageflow/image"
	"github.com/BaSui01/imageflow/image/providers"
	"github.com/BaSui01/imageflow/types"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Fixed image-to-video parameters.
const (
	VideoModel            = "Wan2.1-I2V-14B-720P"
	videoNegativePrompt   = "blurry, low quality, distorted, deformed, static, watermark, text"
	videoInferenceSteps   = 30
	videoNumFrames        = 81
	videoGuidanceScale    = 5
	defaultVideoDimension = 1024
)

// CreateVideoTask submits an image-to-video task and returns the upstream task id.
// Endpoint: POST /v1/async/videos/image-to-video (multipart)
func (p *Provider) CreateVideoTask(ctx context.Context, req *image.VideoRequest) (string, error) {
	token := strings.TrimSpace(req.AuthToken)
	if token == "" {
		return "", types.NewError(types.ErrAuthRequired, "Gitee AI API key is required").WithProvider(providerID)
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		return "", types.NewError(types.ErrInvalidParams, "Image URL is required").WithField("imageUrl")
	}
	if v := image.ValidatePrompt(req.Prompt, image.MaxPromptLength); !v.Valid {
		return "", v.Err(types.ErrInvalidPrompt)
	}

	width, height := req.Width, req.Height
	if width == 0 {
		width = defaultVideoDimension
	}
	if height == 0 {
		height = defaultVideoDimension
	}
	if v := image.ValidateDimensions(width, height); !v.Valid {
		return "", v.Err(types.ErrInvalidDimensions)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := []struct{ key, value string }{
		{"image", req.ImageURL},
		{"prompt", req.Prompt},
		{"negative_prompt", videoNegativePrompt},
		{"model", VideoModel},
		{"num_inference_steps", strconv.Itoa(videoInferenceSteps)},
		{"num_frames", strconv.Itoa(videoNumFrames)},
		{"guidance_scale", strconv.Itoa(videoGuidanceScale)},
		{"width", strconv.Itoa(width)},
		{"height", strconv.Itoa(height)},
	}
	for _, f := range fields {
		if err := w.WriteField(f.key, f.value); err != nil {
			return "", types.NewError(types.ErrUnknown, "failed to encode request").WithCause(err)
		}
	}
	if err := w.Close(); err != nil {
		return "", types.NewError(types.ErrUnknown, "failed to encode request").WithCause(err)
	}

	respBody, err := p.do(ctx, http.MethodPost, "/v1/async/videos/image-to-video", token, w.FormDataContentType(), &buf)
	if err != nil {
		return "", err
	}

	taskID := providers.FirstString(respBody, "task_id", "id", "data.task_id")
	if taskID == "" {
		return "", types.NewError(types.ErrProviderError, "No task_id returned").
			WithProvider(providerID).
			WithUpstream(providers.Truncate(string(respBody), 200))
	}

	p.logger.Info("video task created", zap.String("task_id", taskID))
	return taskID, nil
}

// VideoStatus fetches the current state of a task. Nothing is cached.
// Endpoint: GET /v1/task/{taskID}
func (p *Provider) VideoStatus(ctx context.Context, taskID, token string) (*image.VideoTask, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, types.NewError(types.ErrAuthRequired, "Gitee AI API key is required").WithProvider(providerID)
	}
	if strings.TrimSpace(taskID) == "" {
		return nil, types.NewError(types.ErrInvalidParams, "Task id is required").WithField("taskId")
	}

	respBody, err := p.do(ctx, http.MethodGet, "/v1/task/"+url.PathEscape(taskID), token, "", nil)
	if err != nil {
		return nil, err
	}
	return parseVideoTask(taskID, respBody), nil
}

func parseVideoTask(taskID string, body []byte) *image.VideoTask {
	task := &image.VideoTask{TaskID: taskID}
	res := gjson.ParseBytes(body)

	switch res.Get("status").String() {
	case "pending":
		task.Status = image.VideoPending
	case "is_process":
		task.Status = image.VideoProcessing
	case "success":
		task.Status = image.VideoSuccess
		task.VideoURL = res.Get("output.file_url").String()
	case "failure":
		task.Status = image.VideoFailed
		task.Error = providers.UpstreamMessage(body)
		if e := res.Get("error"); e.Type == gjson.String {
			task.Error = e.String()
		}
	default:
		task.Status = image.VideoProcessing
	}
	return task
}
