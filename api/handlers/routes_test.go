package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BaSui01/imageflow/image"
	"github.com/BaSui01/imageflow/image/providers/gitee"
	"github.com/BaSui01/imageflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 Upscale
// =============================================================================

type fakeUpscaler struct {
	calls int
	url   string
	scale int
	token string
	err   error
}

func (f *fakeUpscaler) Upscale(ctx context.Context, rawURL string, scale int, token string) (string, error) {
	f.calls++
	f.url, f.scale, f.token = rawURL, scale, token
	if f.err != nil {
		return "", f.err
	}
	return "https://up.hf.space/out.png", nil
}

func TestHandleUpscale(t *testing.T) {
	up := &fakeUpscaler{}
	h := NewUpscaleHandler(up, 0, 1024, zap.NewNop())
	w := httptest.NewRecorder()

	h.HandleUpscale(w, postJSON(t, "/api/upscale", map[string]any{"url": " https://a.hf.space/x.png ", "scale": 2}, map[string]string{"X-HF-Token": "hf_tok"}))

	require.Equal(t, http.StatusOK, w.Code)
	var resp URLResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "https://up.hf.space/out.png", resp.URL)
	assert.Equal(t, "https://a.hf.space/x.png", up.url)
	assert.Equal(t, 2, up.scale)
	assert.Equal(t, "hf_tok", up.token)
}

func TestHandleUpscale_MissingURL(t *testing.T) {
	up := &fakeUpscaler{}
	h := NewUpscaleHandler(up, 0, 1024, nil)
	w := httptest.NewRecorder()

	h.HandleUpscale(w, postJSON(t, "/api/upscale", map[string]any{"scale": 4}, nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, up.calls)
}

func TestHandleUpscale_Scale(t *testing.T) {
	tests := []struct {
		name      string
		body      map[string]any
		status    int
		wantCalls int
		wantScale int
	}{
		{"absent uses upscaler default", map[string]any{"url": "https://a.hf.space/x.png"}, http.StatusOK, 1, 0},
		{"explicit in range", map[string]any{"url": "https://a.hf.space/x.png", "scale": 3}, http.StatusOK, 1, 3},
		{"explicit zero", map[string]any{"url": "https://a.hf.space/x.png", "scale": 0}, http.StatusBadRequest, 0, 0},
		{"explicit too large", map[string]any{"url": "https://a.hf.space/x.png", "scale": 8}, http.StatusBadRequest, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &fakeUpscaler{}
			h := NewUpscaleHandler(up, 0, 1024, nil)
			w := httptest.NewRecorder()

			h.HandleUpscale(w, postJSON(t, "/api/upscale", tt.body, nil))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.wantCalls, up.calls)
			assert.Equal(t, tt.wantScale, up.scale)
			if tt.status != http.StatusOK {
				var resp ErrorResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
				assert.Equal(t, types.ErrInvalidParams, resp.Code)
				require.NotNil(t, resp.Details)
				assert.Equal(t, "scale", resp.Details.Field)
			}
		})
	}
}

func TestHandleUpscale_RejectedURL(t *testing.T) {
	up := &fakeUpscaler{err: types.NewError(types.ErrInvalidParams, "URL not allowed").WithField("url")}
	h := NewUpscaleHandler(up, 0, 1024, nil)
	w := httptest.NewRecorder()

	h.HandleUpscale(w, postJSON(t, "/api/upscale", map[string]any{"url": "https://evil.com/x.png"}, nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "URL not allowed", resp.Error)
	assert.Equal(t, "url", resp.Details.Field)
}

// =============================================================================
// 🧪 Video
// =============================================================================

type fakeVideo struct {
	created *image.VideoRequest
	task    *image.VideoTask
	token   string
	calls   int
	err     error
}

func (f *fakeVideo) CreateVideoTask(ctx context.Context, req *image.VideoRequest) (string, error) {
	f.created = req
	if f.err != nil {
		return "", f.err
	}
	return "task-1", nil
}

func (f *fakeVideo) VideoStatus(ctx context.Context, taskID, token string) (*image.VideoTask, error) {
	f.calls++
	f.token = token
	if f.err != nil {
		return nil, f.err
	}
	t := *f.task
	t.TaskID = taskID
	return &t, nil
}

func TestVideoHandler_Create(t *testing.T) {
	svc := &fakeVideo{}
	h := NewVideoHandler(svc, VideoOptions{MaxBodyBytes: 4096}, zap.NewNop())
	w := httptest.NewRecorder()

	body := map[string]any{"imageUrl": "https://a.gitee.com/in.png", "prompt": "waves", "width": 720}
	h.HandleCreate(w, postJSON(t, "/api/video/generate", body, map[string]string{"X-API-Key": "gk"}))

	require.Equal(t, http.StatusOK, w.Code)
	var task image.VideoTask
	require.NoError(t, json.NewDecoder(w.Body).Decode(&task))
	assert.Equal(t, "task-1", task.TaskID)
	assert.Equal(t, image.VideoPending, task.Status)

	require.NotNil(t, svc.created)
	assert.Equal(t, "gk", svc.created.AuthToken)
	assert.Equal(t, "waves", svc.created.Prompt)
	assert.Equal(t, 720, svc.created.Width)
}

func TestVideoHandler_CreateError(t *testing.T) {
	svc := &fakeVideo{err: types.NewError(types.ErrAuthRequired, "Gitee AI API key is required")}
	h := NewVideoHandler(svc, VideoOptions{}, nil)
	w := httptest.NewRecorder()

	h.HandleCreate(w, postJSON(t, "/api/video/generate", map[string]any{"imageUrl": "u", "prompt": "p"}, nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVideoHandler_Status(t *testing.T) {
	tests := []struct {
		status     image.VideoStatus
		retryAfter string
	}{
		{image.VideoPending, "5"},
		{image.VideoProcessing, "5"},
		{image.VideoSuccess, ""},
		{image.VideoFailed, ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			svc := &fakeVideo{task: &image.VideoTask{Status: tt.status}}
			h := NewVideoHandler(svc, VideoOptions{}, nil)

			mux := http.NewServeMux()
			mux.HandleFunc("GET /api/video/status/{taskId}", h.HandleStatus)

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/video/status/abc-123", nil)
			r.Header.Set("X-API-Key", "gk")
			mux.ServeHTTP(w, r)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.retryAfter, w.Header().Get("Retry-After"))
			assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

			var task image.VideoTask
			require.NoError(t, json.NewDecoder(w.Body).Decode(&task))
			assert.Equal(t, "abc-123", task.TaskID)
			assert.Equal(t, tt.status, task.Status)
			assert.Equal(t, "gk", svc.token)
		})
	}
}

func TestVideoHandler_StatusNeverCached(t *testing.T) {
	svc := &fakeVideo{task: &image.VideoTask{Status: image.VideoProcessing}}
	h := NewVideoHandler(svc, VideoOptions{}, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/video/status/{taskId}", h.HandleStatus)

	for range 3 {
		mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/video/status/t", nil))
	}
	assert.Equal(t, 3, svc.calls)
}

func TestVideoHandler_StatusMissingID(t *testing.T) {
	h := NewVideoHandler(&fakeVideo{}, VideoOptions{}, nil)
	w := httptest.NewRecorder()
	h.HandleStatus(w, httptest.NewRequest(http.MethodGet, "/api/video/status/", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// =============================================================================
// 🧪 Optimize
// =============================================================================

type fakeOptimizer struct {
	req *gitee.OptimizeRequest
	err error
}

func (f *fakeOptimizer) Optimize(ctx context.Context, req *gitee.OptimizeRequest) (string, error) {
	f.req = req
	if f.err != nil {
		return "", f.err
	}
	return "a detailed " + req.Prompt, nil
}

func TestOptimizeHandler(t *testing.T) {
	opt := &fakeOptimizer{}
	h := NewOptimizeHandler(opt, 0, 2048, zap.NewNop())
	w := httptest.NewRecorder()

	h.HandleOptimize(w, postJSON(t, "/api/optimize", map[string]any{"prompt": "cat"}, map[string]string{"X-API-Key": "gk"}))

	require.Equal(t, http.StatusOK, w.Code)
	var resp PromptResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "a detailed cat", resp.Prompt)
	assert.Equal(t, "gk", opt.req.AuthToken)
}

func TestOptimizeHandler_PromptLimitForwarded(t *testing.T) {
	opt := &fakeOptimizer{}
	h := NewOptimizeHandler(opt, 0, 2048, nil).WithMaxPromptLength(500)
	w := httptest.NewRecorder()

	h.HandleOptimize(w, postJSON(t, "/api/optimize", map[string]any{"prompt": "cat"}, nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 500, opt.req.MaxPromptLength)
}

func TestOptimizeHandler_UnknownErrorIsHidden(t *testing.T) {
	opt := &fakeOptimizer{err: errors.New("nil map write")}
	h := NewOptimizeHandler(opt, 0, 2048, nil)
	w := httptest.NewRecorder()

	h.HandleOptimize(w, postJSON(t, "/api/optimize", map[string]any{"prompt": "cat"}, nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "nil map")
}

// =============================================================================
// 🧪 Registry
// =============================================================================

func TestRegistryHandlers(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/providers", HandleProviders)
	mux.HandleFunc("GET /api/models", HandleModels)
	mux.HandleFunc("GET /api/providers/{provider}/models", HandleProviderModels)

	t.Run("providers", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/providers", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var resp ProvidersResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Len(t, resp.Providers, len(image.AllProviders()))
	})

	t.Run("models", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/models", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var resp ModelsResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Len(t, resp.Models, len(image.Models()))
	})

	t.Run("provider models", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/providers/modelscope/models", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var resp ModelsResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "modelscope", resp.Provider)
		assert.NotEmpty(t, resp.Models)
		for _, m := range resp.Models {
			assert.Equal(t, image.ProviderModelScope, m.Provider)
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/providers/dalle/models", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, types.ErrInvalidProvider, resp.Code)
	})
}

// =============================================================================
// 🧪 Health
// =============================================================================

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler(zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.HandleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code, "no checks registered")

	h.RegisterCheck(NewCheck("redis", func(ctx context.Context) error { return nil }))
	w = httptest.NewRecorder()
	h.HandleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	h.RegisterCheck(NewCheck("upstream", func(ctx context.Context) error { return errors.New("down") }))
	w = httptest.NewRecorder()
	h.HandleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var status HealthStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "pass", status.Checks["redis"].Status)
	assert.Equal(t, "fail", status.Checks["upstream"].Status)
	assert.Equal(t, "down", status.Checks["upstream"].Message)
}

func TestHealthHandler_CheckTimeout(t *testing.T) {
	h := NewHealthHandler(nil).WithCheckTimeout(20 * time.Millisecond)
	h.RegisterCheck(NewCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	w := httptest.NewRecorder()
	h.HandleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleVersion(t *testing.T) {
	w := httptest.NewRecorder()
	HandleVersion("v1.2.3")(w, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&info))
	assert.Equal(t, "v1.2.3", info["version"])
	assert.NotEmpty(t, info["go"])
}
